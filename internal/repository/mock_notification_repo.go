package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides — set in tests to simulate failure paths.
	InsertErr error
	ListErr   error
	UpdateErr error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{notifications: make(map[string]*domain.Notification)}
}

func (m *MockNotificationRepository) InsertBatch(_ context.Context, notifications []*domain.Notification) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range notifications {
		clone := *n
		m.notifications[n.ID] = &clone
	}
	return nil
}

func (m *MockNotificationRepository) ListByRelated(_ context.Context, companyID, relatedID string) ([]*domain.Notification, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Notification
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.RelatedID == relatedID && n.Type == domain.NotificationType {
			clone := *n
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockNotificationRepository) UpdatePayload(_ context.Context, id string, payload domain.MessagePayload, isRead bool) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.Type != domain.NotificationType {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	n.Payload = payload
	n.IsRead = isRead
	n.UpdatedAt = &now
	return nil
}

func (m *MockNotificationRepository) ListByRecipient(_ context.Context, companyID, empID string, page, limit int) ([]*domain.Notification, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*domain.Notification
	for _, n := range m.notifications {
		if n.CompanyID == companyID && n.RecipientEmpID == empID && n.Type == domain.NotificationType {
			clone := *n
			all = append(all, &clone)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, id, empID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.RecipientEmpID != empID {
		return domain.ErrNotFound
	}
	n.IsRead = true
	return nil
}

// All returns a stable-ordered copy of every stored row, for test assertions.
func (m *MockNotificationRepository) All() []*domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		clone := *n
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
