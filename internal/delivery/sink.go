// Package delivery is the terminal stage of a fanout job: it persists the
// pending notification rows, emits realtime events to recipient rooms, and
// dispatches email/SMS. Everything here is best-effort — a failed send is
// logged and skipped, never fatal to the job or to already-committed rows.
package delivery

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/repository"
)

// Room scopes one realtime emit. Scope is one of the Scope* constants;
// the channel name on the wire is "notify:<scope>:<key>".
type Room struct {
	Scope string
	Key   string
}

const (
	ScopeEmp        = "emp"
	ScopeCompany    = "company"
	ScopeDepartment = "department"
	ScopeBranch     = "branch"
	ScopeUser       = "user"
)

// Channel returns the pub/sub channel name for the room.
func (r Room) Channel() string {
	return "notify:" + r.Scope + ":" + r.Key
}

// Email is one outbound mail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// SMS is one outbound text message.
type SMS struct {
	To   string
	Body string
}

// Event is the JSON body published to a room.
type Event struct {
	Event string `json:"event"`
	Scope string `json:"scope"`
	Key   string `json:"key"`
	Table string `json:"transaction_table,omitempty"`
}

// EventNotificationNew is the single realtime event name; clients treat it
// as "your feed changed" for both fresh and reconciled rows.
const EventNotificationNew = "notification:new"

// Result reports what a Deliver call actually did.
type Result struct {
	Inserted     int
	Published    int
	EmailsSent   int
	EmailsFailed int
	SMSSent      int
}

// Publisher emits a payload to a named pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Mailer sends one HTML email. IsConfigured lets the sink skip the email
// leg entirely when no transport is set up.
type Mailer interface {
	IsConfigured() bool
	Send(to, subject, htmlBody string) error
}

// SMSSender hands a text to the (currently stubbed) SMS transport.
type SMSSender interface {
	Send(to, body string) error
}

// Sink fans completed notifications out to all channels.
type Sink struct {
	repo     repository.NotificationRepository
	pub      Publisher
	mailer   Mailer
	sms      SMSSender
	limiters *Limiters
	logger   *zap.Logger
}

func NewSink(
	repo repository.NotificationRepository,
	pub Publisher,
	mailer Mailer,
	sms SMSSender,
	limiters *Limiters,
	logger *zap.Logger,
) *Sink {
	return &Sink{repo: repo, pub: pub, mailer: mailer, sms: sms, limiters: limiters, logger: logger}
}

// Deliver persists all pending rows in one batched write, publishes one
// event per unique room, and dispatches email/SMS with per-item failure
// isolation. The insert failing aborts the whole call (nothing to announce);
// any later failure only reduces the counts.
func (s *Sink) Deliver(ctx context.Context, pending []*domain.Notification, rooms []Room, emails []Email, sms []SMS) (Result, error) {
	var res Result

	if len(pending) > 0 {
		if err := s.repo.InsertBatch(ctx, pending); err != nil {
			return res, err
		}
		res.Inserted = len(pending)
	}

	res.Published = s.publish(ctx, rooms, tableOf(pending))
	res.EmailsSent, res.EmailsFailed = s.sendEmails(ctx, emails)
	res.SMSSent = s.sendSMS(ctx, sms)

	return res, nil
}

// publish emits to each unique (scope, key) room exactly once, preserving
// first-seen order. Multiple references mapping to the same recipient must
// still produce a single emit.
func (s *Sink) publish(ctx context.Context, rooms []Room, table string) int {
	if s.pub == nil {
		return 0
	}
	seen := make(map[Room]struct{}, len(rooms))
	published := 0
	for _, room := range rooms {
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}

		payload, err := json.Marshal(Event{
			Event: EventNotificationNew,
			Scope: room.Scope,
			Key:   room.Key,
			Table: table,
		})
		if err != nil {
			continue
		}
		if err := s.pub.Publish(ctx, room.Channel(), payload); err != nil {
			s.logger.Warn("realtime publish failed",
				zap.String("channel", room.Channel()), zap.Error(err))
			continue
		}
		published++
	}
	return published
}

func (s *Sink) sendEmails(ctx context.Context, emails []Email) (sent, failed int) {
	if s.mailer == nil || !s.mailer.IsConfigured() || len(emails) == 0 {
		return 0, 0
	}
	for _, e := range emails {
		if err := s.limiters.Wait(ctx, ChannelEmail); err != nil {
			return sent, failed // ctx cancelled while waiting
		}
		if err := s.mailer.Send(e.To, e.Subject, e.HTML); err != nil {
			failed++
			s.logger.Warn("email send failed", zap.String("to", e.To), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, failed
}

func (s *Sink) sendSMS(ctx context.Context, messages []SMS) int {
	if s.sms == nil || len(messages) == 0 {
		return 0
	}
	sent := 0
	for _, m := range messages {
		if err := s.limiters.Wait(ctx, ChannelSMS); err != nil {
			return sent
		}
		if err := s.sms.Send(m.To, m.Body); err != nil {
			s.logger.Warn("sms send failed", zap.String("to", m.To), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func tableOf(pending []*domain.Notification) string {
	if len(pending) == 0 {
		return ""
	}
	return pending[0].Payload.Table
}
