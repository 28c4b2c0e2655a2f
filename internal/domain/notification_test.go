package domain_test

import (
	"testing"

	"github.com/dynaerp/notify-engine/internal/domain"
)

func TestIsTransactionTable(t *testing.T) {
	cases := []struct {
		table string
		want  bool
	}{
		{"transactions_sales", true},
		{"Transactions_Purchase_Orders", true},
		{"transactions_", true},
		{"employees", false},
		{"transaction_sales", false},
		{"", false},
	}
	for _, c := range cases {
		if got := domain.IsTransactionTable(c.table); got != c.want {
			t.Fatalf("IsTransactionTable(%q) = %v, want %v", c.table, got, c.want)
		}
	}
}

func TestAction_IsValid(t *testing.T) {
	for _, a := range []domain.Action{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
		if !a.IsValid() {
			t.Fatalf("action %q: expected valid", a)
		}
	}
	for _, a := range []domain.Action{"", "upsert", "CREATE"} {
		if a.IsValid() {
			t.Fatalf("action %q: expected invalid", a)
		}
	}
}

func TestRelation_Matches(t *testing.T) {
	row := domain.Row{"party_type": "Customer", "party_id": "C7"}

	t.Run("no filter always matches", func(t *testing.T) {
		rel := domain.Relation{SourceColumn: "party_id", TargetTable: "customers"}
		if !rel.Matches(row) {
			t.Fatal("expected unfiltered relation to match")
		}
	})

	t.Run("filter compares case-insensitively", func(t *testing.T) {
		rel := domain.Relation{
			SourceColumn: "party_id", TargetTable: "customers",
			FilterColumn: "party_type", FilterValue: "customer",
		}
		if !rel.Matches(row) {
			t.Fatal("expected matching filter value")
		}
	})

	t.Run("filter mismatch rejects", func(t *testing.T) {
		rel := domain.Relation{
			SourceColumn: "party_id", TargetTable: "suppliers",
			FilterColumn: "party_type", FilterValue: "supplier",
		}
		if rel.Matches(row) {
			t.Fatal("expected non-matching filter value to reject")
		}
	})
}

func TestNotificationConfig_NotifiesColumn(t *testing.T) {
	t.Run("empty NotifyFields allows every column", func(t *testing.T) {
		cfg := domain.NotificationConfig{Name: "employees"}
		if !cfg.NotifiesColumn("anything") {
			t.Fatal("expected column to notify when NotifyFields is empty")
		}
	})

	t.Run("listed column notifies, case-insensitive", func(t *testing.T) {
		cfg := domain.NotificationConfig{NotifyFields: []string{"Assignee_ID"}}
		if !cfg.NotifiesColumn("assignee_id") {
			t.Fatal("expected listed column to notify")
		}
		if cfg.NotifiesColumn("reviewer_id") {
			t.Fatal("expected unlisted column to be ignored")
		}
	})
}

func TestMessagePayload_ReferenceKey(t *testing.T) {
	a := domain.MessagePayload{ReferenceTable: "Employees", ReferenceID: "E1"}
	b := domain.MessagePayload{ReferenceTable: "employees", ReferenceID: "E1"}
	if a.ReferenceKey() != b.ReferenceKey() {
		t.Fatal("reference key must fold table case")
	}

	c := domain.MessagePayload{ReferenceTable: "employees", ReferenceID: "E2"}
	if a.ReferenceKey() == c.ReferenceKey() {
		t.Fatal("different reference ids must produce different keys")
	}
}

func TestRow_LookupAndStringify(t *testing.T) {
	row := domain.Row{"Customer_ID": float64(42), "name": "Acme", "active": true}

	if got := row.String("customer_id"); got != "42" {
		t.Fatalf("expected folded lookup to render 42, got %q", got)
	}
	if got := row.String("name"); got != "Acme" {
		t.Fatalf("expected Acme, got %q", got)
	}
	if got := row.String("active"); got != "true" {
		t.Fatalf("expected true, got %q", got)
	}
	if got := row.String("missing"); got != "" {
		t.Fatalf("expected empty string for missing column, got %q", got)
	}
	if got := domain.Stringify(3.5); got != "3.5" {
		t.Fatalf("expected 3.5, got %q", got)
	}
	if got := domain.Stringify([]any{"x"}); got != "" {
		t.Fatalf("expected empty string for non-scalar, got %q", got)
	}
}
