package delivery_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/delivery"
	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/repository"
)

func newSink(repo repository.NotificationRepository, pub delivery.Publisher, mailer delivery.Mailer) *delivery.Sink {
	return delivery.NewSink(repo, pub, mailer, &delivery.NopSMSSender{}, delivery.NewLimiters(1000), zap.NewNop())
}

func pendingRow(empID string) *domain.Notification {
	return &domain.Notification{
		ID:             uuid.New().String(),
		CompanyID:      "3",
		RecipientEmpID: empID,
		Type:           domain.NotificationType,
		RelatedID:      "t1",
		Payload:        domain.MessagePayload{Kind: domain.NotificationType, Table: "transactions_sales"},
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSink_Deliver_InsertsAndPublishes(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	pub := &delivery.RecordingPublisher{}
	sink := newSink(repo, pub, &delivery.RecordingMailer{})

	res, err := sink.Deliver(context.Background(),
		[]*domain.Notification{pendingRow("e1"), pendingRow("e2")},
		[]delivery.Room{{Scope: delivery.ScopeEmp, Key: "e1"}, {Scope: delivery.ScopeEmp, Key: "e2"}},
		nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 2 {
		t.Fatalf("expected 2 inserts, got %d", res.Inserted)
	}
	if len(repo.All()) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(repo.All()))
	}
	if res.Published != 2 || len(pub.Channels) != 2 {
		t.Fatalf("expected 2 publishes, got %d", res.Published)
	}
	if pub.Channels[0] != "notify:emp:e1" {
		t.Fatalf("unexpected channel name: %s", pub.Channels[0])
	}
}

// Two relation columns resolving to the same employee must still produce a
// single emit to that employee's room.
func TestSink_Deliver_DeduplicatesRooms(t *testing.T) {
	pub := &delivery.RecordingPublisher{}
	sink := newSink(repository.NewMockNotificationRepository(), pub, &delivery.RecordingMailer{})

	rooms := []delivery.Room{
		{Scope: delivery.ScopeEmp, Key: "E42"},
		{Scope: delivery.ScopeEmp, Key: "E42"},
		{Scope: delivery.ScopeDepartment, Key: "7"},
		{Scope: delivery.ScopeEmp, Key: "E42"},
	}

	res, err := sink.Deliver(context.Background(), nil, rooms, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Published != 2 {
		t.Fatalf("expected 2 unique publishes, got %d", res.Published)
	}
	if pub.Channels[0] != "notify:emp:E42" || pub.Channels[1] != "notify:department:7" {
		t.Fatalf("unexpected channels: %v", pub.Channels)
	}
}

// One failed send must not abort the remaining sends.
func TestSink_Deliver_EmailFailureIsolation(t *testing.T) {
	mailer := &delivery.RecordingMailer{FailTo: "bad@x.com"}
	sink := newSink(repository.NewMockNotificationRepository(), &delivery.RecordingPublisher{}, mailer)

	emails := []delivery.Email{
		{To: "a@b.com", Subject: "s", HTML: "<p>1</p>"},
		{To: "bad@x.com", Subject: "s", HTML: "<p>2</p>"},
		{To: "c@d.org", Subject: "s", HTML: "<p>3</p>"},
	}

	res, err := sink.Deliver(context.Background(), nil, nil, emails, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EmailsSent != 2 || res.EmailsFailed != 1 {
		t.Fatalf("expected 2 sent / 1 failed, got %d/%d", res.EmailsSent, res.EmailsFailed)
	}
	if len(mailer.Sent) != 2 || mailer.Sent[1].To != "c@d.org" {
		t.Fatalf("expected delivery to continue past the failure, got %v", mailer.Sent)
	}
}

func TestSink_Deliver_PublishFailureIsNotFatal(t *testing.T) {
	repo := repository.NewMockNotificationRepository()
	pub := &delivery.RecordingPublisher{Err: context.DeadlineExceeded}
	sink := newSink(repo, pub, &delivery.RecordingMailer{})

	res, err := sink.Deliver(context.Background(),
		[]*domain.Notification{pendingRow("e1")},
		[]delivery.Room{{Scope: delivery.ScopeEmp, Key: "e1"}},
		nil, nil)
	if err != nil {
		t.Fatalf("publish failure must not fail delivery: %v", err)
	}
	if res.Inserted != 1 || res.Published != 0 {
		t.Fatalf("expected inserted=1 published=0, got %+v", res)
	}
}

func TestSink_Deliver_SkipsEmailWhenUnconfigured(t *testing.T) {
	sink := delivery.NewSink(repository.NewMockNotificationRepository(), nil,
		delivery.NewSMTPMailer(delivery.SMTPConfig{}), nil, delivery.NewLimiters(10), zap.NewNop())

	res, err := sink.Deliver(context.Background(), nil, nil,
		[]delivery.Email{{To: "a@b.com"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EmailsSent != 0 && res.EmailsFailed != 0 {
		t.Fatalf("expected email leg skipped, got %+v", res)
	}
}
