package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// MockRowStore is the in-memory counterpart of PgRowStore, covering the
// metadata, config, row, and directory interfaces consumed by the engine.
type MockRowStore struct {
	mu          sync.RWMutex
	rows        map[string]map[string]domain.Row // table -> id -> row
	structural  map[string][]domain.Relation
	custom      map[string][]domain.Relation // table|company
	configs     map[string][]domain.NotificationConfig
	employments []employment

	RowErr error
}

type employment struct {
	empID, companyID, departmentID, branchID string
}

func NewMockRowStore() *MockRowStore {
	return &MockRowStore{
		rows:       make(map[string]map[string]domain.Row),
		structural: make(map[string][]domain.Relation),
		custom:     make(map[string][]domain.Relation),
		configs:    make(map[string][]domain.NotificationConfig),
	}
}

func scoped(table, companyID string) string {
	return strings.ToLower(table) + "|" + companyID
}

func (m *MockRowStore) AddRow(table, id string, row domain.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := strings.ToLower(table)
	if m.rows[t] == nil {
		m.rows[t] = make(map[string]domain.Row)
	}
	m.rows[t][id] = row
}

func (m *MockRowStore) RemoveRow(table, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[strings.ToLower(table)], id)
}

func (m *MockRowStore) AddStructuralRelation(table string, rel domain.Relation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := strings.ToLower(table)
	m.structural[t] = append(m.structural[t], rel)
}

func (m *MockRowStore) AddCustomRelation(table, companyID string, rel domain.Relation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scoped(table, companyID)
	m.custom[key] = append(m.custom[key], rel)
}

func (m *MockRowStore) AddConfig(table, companyID string, cfg domain.NotificationConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scoped(table, companyID)
	m.configs[key] = append(m.configs[key], cfg)
}

func (m *MockRowStore) AddEmployment(empID, companyID, departmentID, branchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employments = append(m.employments, employment{empID, companyID, departmentID, branchID})
}

func (m *MockRowStore) RowByID(_ context.Context, table, id, _ string) (domain.Row, error) {
	if m.RowErr != nil {
		return nil, m.RowErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[strings.ToLower(table)][id]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (m *MockRowStore) StructuralRelations(_ context.Context, table string) ([]domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Relation(nil), m.structural[strings.ToLower(table)]...), nil
}

func (m *MockRowStore) CustomRelations(_ context.Context, table, companyID string) ([]domain.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Relation(nil), m.custom[scoped(table, companyID)]...), nil
}

func (m *MockRowStore) NotificationConfigs(_ context.Context, table, companyID string) ([]domain.NotificationConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.NotificationConfig(nil), m.configs[scoped(table, companyID)]...), nil
}

func (m *MockRowStore) EmployeesByCompany(_ context.Context, companyID string) ([]string, error) {
	return m.filterEmployees(func(e employment) bool { return e.companyID == companyID }), nil
}

func (m *MockRowStore) EmployeesByDepartment(_ context.Context, departmentID, companyID string) ([]string, error) {
	return m.filterEmployees(func(e employment) bool {
		return e.departmentID == departmentID && (companyID == "" || e.companyID == companyID)
	}), nil
}

func (m *MockRowStore) EmployeesByBranch(_ context.Context, branchID, companyID string) ([]string, error) {
	return m.filterEmployees(func(e employment) bool {
		return e.branchID == branchID && (companyID == "" || e.companyID == companyID)
	}), nil
}

func (m *MockRowStore) filterEmployees(keep func(employment) bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	seen := make(map[string]struct{})
	for _, e := range m.employments {
		if !keep(e) {
			continue
		}
		if _, dup := seen[e.empID]; dup {
			continue
		}
		seen[e.empID] = struct{}{}
		ids = append(ids, e.empID)
	}
	return ids
}
