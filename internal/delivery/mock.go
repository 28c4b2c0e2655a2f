package delivery

import (
	"context"
	"sync"
)

// RecordingPublisher captures published events for test assertions.
type RecordingPublisher struct {
	mu       sync.Mutex
	Channels []string
	Payloads [][]byte
	Err      error
}

func (p *RecordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Channels = append(p.Channels, channel)
	p.Payloads = append(p.Payloads, payload)
	return nil
}

// RecordingMailer captures sent mail for test assertions.
// FailTo makes sends to that address fail, for failure-isolation tests.
type RecordingMailer struct {
	mu     sync.Mutex
	Sent   []Email
	FailTo string
	Err    error
}

func (m *RecordingMailer) IsConfigured() bool { return true }

func (m *RecordingMailer) Send(to, subject, htmlBody string) error {
	if m.Err != nil || (m.FailTo != "" && to == m.FailTo) {
		if m.Err != nil {
			return m.Err
		}
		return errFailTo
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, Email{To: to, Subject: subject, HTML: htmlBody})
	return nil
}

type failToError struct{}

func (failToError) Error() string { return "send rejected" }

var errFailTo = failToError{}

// NopSMSSender discards messages but counts them.
type NopSMSSender struct {
	mu   sync.Mutex
	Sent []SMS
}

func (s *NopSMSSender) Send(to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SMS{To: to, Body: body})
	return nil
}
