package delivery

import (
	"context"

	"golang.org/x/time/rate"
)

// Channel is an outbound delivery channel subject to rate limiting.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Limiters holds one token bucket per outbound channel so a broad fanout
// cannot flood the mail relay or the SMS gateway. Burst equals the rate so
// no capacity is "saved up" beyond the configured per-second maximum.
type Limiters struct {
	limiters map[Channel]*rate.Limiter
}

// NewLimiters creates limiters with ratePerSec tokens per second per channel.
func NewLimiters(ratePerSec int) *Limiters {
	r := rate.Limit(ratePerSec)
	return &Limiters{
		limiters: map[Channel]*rate.Limiter{
			ChannelEmail: rate.NewLimiter(r, ratePerSec),
			ChannelSMS:   rate.NewLimiter(r, ratePerSec),
		},
	}
}

// Wait blocks until the channel's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiters) Wait(ctx context.Context, ch Channel) error {
	return l.limiters[ch].Wait(ctx)
}
