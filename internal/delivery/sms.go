package delivery

import "go.uber.org/zap"

// LogSMSSender is the stand-in SMS transport: it logs the message instead of
// sending it. The upstream gateway integration is not wired up yet, matching
// the stubbed transport the dashboard expects.
type LogSMSSender struct {
	logger *zap.Logger
}

func NewLogSMSSender(logger *zap.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) Send(to, body string) error {
	s.logger.Info("sms dispatch (stub)", zap.String("to", to), zap.Int("len", len(body)))
	return nil
}

var _ SMSSender = (*LogSMSSender)(nil)
