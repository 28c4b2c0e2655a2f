package domain

import (
	"strings"
	"time"
)

// TransactionTablePrefix marks the tables whose writes fan out.
// Writes to any other table are silently ignored by Enqueue.
const TransactionTablePrefix = "transactions_"

// NotificationType tags rows owned by this engine. Rows with other type
// values belong to unrelated features and are never touched.
const NotificationType = "transaction"

// IsTransactionTable reports whether table follows the transaction-table
// naming convention.
func IsTransactionTable(table string) bool {
	return strings.HasPrefix(strings.ToLower(table), TransactionTablePrefix)
}

// Action is the write that triggered a fanout job.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Role is the recipient category a reference's target table notifies.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleCompany    Role = "company"
	RoleDepartment Role = "department"
	RoleBranch     Role = "branch"
	RoleCustomer   Role = "customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleCompany, RoleDepartment, RoleBranch, RoleCustomer:
		return true
	}
	return false
}

// Origin distinguishes foreign-key derived relations from tenant-configured ones.
type Origin string

const (
	OriginStructural Origin = "structural"
	OriginCustom     Origin = "custom"
)

// Job is the unit of work placed on the queue by the write path.
// It is consumed exactly once by the worker and never persisted.
type Job struct {
	Table     string
	RecordID  string
	CompanyID string
	Action    Action
	ChangedBy string
	// Snapshot is the row after the write (nil for delete when the caller
	// did not capture it). Previous is the row before an update.
	Snapshot Row
	Previous Row
}

// Relation is a link from a source column on a transaction table to a
// target table. FilterColumn/FilterValue disambiguate polymorphic columns:
// the relation applies only when the sibling column holds the given value.
type Relation struct {
	SourceColumn  string
	TargetTable   string
	TargetIDField string
	IsArray       bool
	FilterColumn  string
	FilterValue   string
	Origin        Origin
}

// Matches reports whether the relation's filter predicate (if any) holds
// for the given transaction row.
func (rel Relation) Matches(row Row) bool {
	if rel.FilterColumn == "" {
		return true
	}
	return strings.EqualFold(row.String(rel.FilterColumn), rel.FilterValue)
}

// NotificationConfig describes how references into one target table fan out.
// Several configs may exist per table, distinguished by the TypeField/
// TypeValue predicate evaluated against the reference row.
type NotificationConfig struct {
	Name            string
	IDField         string
	DisplayFields   []string
	Role            Role
	DashboardFields []string
	EmailFields     []string
	PhoneFields     []string
	// NotifyFields, when set, restricts which source columns trigger fanout
	// at all; other columns are ignored even if a relation exists.
	NotifyFields []string
	TypeField    string
	TypeValue    string
}

// NotifiesColumn reports whether the given source column participates in
// fanout under this config.
func (c NotificationConfig) NotifiesColumn(col string) bool {
	if len(c.NotifyFields) == 0 {
		return true
	}
	for _, f := range c.NotifyFields {
		if strings.EqualFold(f, col) {
			return true
		}
	}
	return false
}

// SummaryField is one rendered field of a notification summary.
// Old is set only for update diffs.
type SummaryField struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Old   string `json:"old,omitempty"`
}

// MessagePayload is the structured message stored in the notification row.
// The reconciler keys all mutations off (ReferenceTable, ReferenceID), so
// both are always populated.
type MessagePayload struct {
	Kind           string         `json:"kind"`
	Version        int            `json:"version"`
	Table          string         `json:"transaction_table"`
	RecordID       string         `json:"transaction_id"`
	Action         Action         `json:"action"`
	ReferenceTable string         `json:"reference_table"`
	ReferenceID    string         `json:"reference_id"`
	Role           Role           `json:"role"`
	SummaryFields  []SummaryField `json:"summary_fields,omitempty"`
	SummaryText    string         `json:"summary_text"`
	Actor          string         `json:"actor,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
	// Excluded marks a reference removed from the transaction by a later
	// edit; the row is kept and re-flagged rather than deleted.
	Excluded bool `json:"excluded,omitempty"`
	// Deleted marks the terminal state after the transaction row is removed.
	Deleted bool `json:"deleted,omitempty"`
}

// ReferenceKey identifies the reference a payload was built for, used by the
// reconciler to match previously sent notifications against the current
// reference set.
func (p MessagePayload) ReferenceKey() string {
	return strings.ToLower(p.ReferenceTable) + "\x00" + p.ReferenceID
}

// Notification is the persisted in-app feed row.
type Notification struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"company_id"`
	RecipientEmpID string         `json:"recipient_emp_id"`
	Type           string         `json:"type"`
	RelatedID      string         `json:"related_id"`
	Payload        MessagePayload `json:"message"`
	IsRead         bool           `json:"is_read"`
	CreatedAt      time.Time      `json:"created_at"`
	CreatedBy      string         `json:"created_by,omitempty"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}
