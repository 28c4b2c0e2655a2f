package message_test

import (
	"testing"

	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/message"
)

var rel = domain.Relation{SourceColumn: "customer_id", TargetTable: "customers", TargetIDField: "id"}

func TestBuild_Create(t *testing.T) {
	job := domain.Job{
		Table:     "transactions_sales",
		RecordID:  "t1",
		CompanyID: "3",
		Action:    domain.ActionCreate,
		ChangedBy: "u9",
		Snapshot:  domain.Row{"name": "INV-0042", "total": float64(1200), "status": "draft"},
	}
	cfg := &domain.NotificationConfig{
		Role:            domain.RoleCustomer,
		DashboardFields: []string{"total", "status"},
	}

	p := message.Build(job, rel, "55", cfg, domain.Row{"id": "55"})

	if p.Kind != domain.NotificationType || p.Version != message.PayloadVersion {
		t.Fatalf("unexpected kind/version: %s/%d", p.Kind, p.Version)
	}
	if p.ReferenceTable != "customers" || p.ReferenceID != "55" {
		t.Fatalf("unexpected reference: %s/%s", p.ReferenceTable, p.ReferenceID)
	}
	if p.SummaryText != "New INV-0042" {
		t.Fatalf("unexpected summary text: %q", p.SummaryText)
	}
	if len(p.SummaryFields) != 2 || p.SummaryFields[0].Field != "total" || p.SummaryFields[0].Value != "1200" {
		t.Fatalf("unexpected summary fields: %+v", p.SummaryFields)
	}
	if p.Actor != "u9" {
		t.Fatalf("unexpected actor: %q", p.Actor)
	}
}

func TestBuild_Create_DisplayFieldFallback(t *testing.T) {
	job := domain.Job{
		Table:    "transactions_sales",
		Action:   domain.ActionCreate,
		Snapshot: domain.Row{"code": "SO-7", "status": "open"},
	}
	cfg := &domain.NotificationConfig{Role: domain.RoleEmployee, DisplayFields: []string{"status"}}

	p := message.Build(job, rel, "1", cfg, nil)
	if len(p.SummaryFields) != 1 || p.SummaryFields[0].Field != "status" {
		t.Fatalf("expected display-field fallback, got %+v", p.SummaryFields)
	}
	if p.SummaryText != "New SO-7" {
		t.Fatalf("unexpected summary text: %q", p.SummaryText)
	}
}

func TestBuild_Update_DiffRestrictedToNotifyFields(t *testing.T) {
	job := domain.Job{
		Table:    "transactions_sales",
		Action:   domain.ActionUpdate,
		Previous: domain.Row{"name": "INV-0042", "status": "draft", "internal_note": "a"},
		Snapshot: domain.Row{"name": "INV-0042", "status": "approved", "internal_note": "b"},
	}
	cfg := &domain.NotificationConfig{Role: domain.RoleEmployee, NotifyFields: []string{"status"}}

	p := message.Build(job, rel, "1", cfg, nil)

	if p.SummaryText != "INV-0042 updated" {
		t.Fatalf("unexpected summary text: %q", p.SummaryText)
	}
	if len(p.SummaryFields) != 1 {
		t.Fatalf("expected only the notify field in the diff, got %+v", p.SummaryFields)
	}
	f := p.SummaryFields[0]
	if f.Field != "status" || f.Value != "draft → approved" || f.Old != "draft" {
		t.Fatalf("unexpected diff entry: %+v", f)
	}
}

func TestBuild_Update_NoDiffFallsBackToSummary(t *testing.T) {
	job := domain.Job{
		Table:    "transactions_sales",
		Action:   domain.ActionUpdate,
		Snapshot: domain.Row{"name": "INV-1", "total": "10"},
		// Previous snapshot missing: diff impossible.
	}
	cfg := &domain.NotificationConfig{Role: domain.RoleEmployee, DashboardFields: []string{"total"}}

	p := message.Build(job, rel, "1", cfg, nil)
	if len(p.SummaryFields) != 1 || p.SummaryFields[0].Field != "total" {
		t.Fatalf("expected dashboard fallback, got %+v", p.SummaryFields)
	}
}

func TestBuild_Delete(t *testing.T) {
	job := domain.Job{Table: "transactions_sales", Action: domain.ActionDelete}

	p := message.Build(job, rel, "1", nil, nil)
	if p.SummaryText != message.SummaryDeleted {
		t.Fatalf("unexpected summary: %q", p.SummaryText)
	}
	if !p.Deleted {
		t.Fatal("expected Deleted flag")
	}
	if len(p.SummaryFields) != 0 {
		t.Fatalf("delete must not carry fields, got %+v", p.SummaryFields)
	}
}

func TestTitleizeTable(t *testing.T) {
	tests := map[string]string{
		"transactions_sales":        "Sales",
		"transactions_sales_orders": "Sales Orders",
		"transactions_hr":           "Hr",
	}
	for in, want := range tests {
		if got := message.TitleizeTable(in); got != want {
			t.Fatalf("TitleizeTable(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName_Probing(t *testing.T) {
	row := domain.Row{"Title": "Weekly payroll"}
	if got := message.DisplayName(row, "transactions_hr"); got != "Weekly payroll" {
		t.Fatalf("expected title probe, got %q", got)
	}
	if got := message.DisplayName(domain.Row{}, "transactions_hr_payroll"); got != "Hr Payroll" {
		t.Fatalf("expected titleized fallback, got %q", got)
	}
}
