package catalog_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/catalog"
	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/repository"
)

func newCatalog(store *repository.MockRowStore) *catalog.Catalog {
	return catalog.New(store, store, zap.NewNop())
}

func TestCatalog_RelationsFor_MergesSources(t *testing.T) {
	store := repository.NewMockRowStore()
	store.AddStructuralRelation("transactions_sales", domain.Relation{
		SourceColumn: "Customer_ID", TargetTable: "customers", TargetIDField: "id",
	})
	store.AddCustomRelation("transactions_sales", "3", domain.Relation{
		SourceColumn: "customer_id", TargetTable: "vip_customers", TargetIDField: "id",
	})
	store.AddCustomRelation("transactions_sales", "3", domain.Relation{
		SourceColumn: "emp_ids", TargetTable: "employees", TargetIDField: "id", IsArray: true,
	})

	rels, err := newCatalog(store).RelationsFor(context.Background(), "transactions_sales", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Column keys are folded to lower case, so the structural "Customer_ID"
	// and the custom "customer_id" land in the same bucket, structural first.
	got := rels["customer_id"]
	if len(got) != 2 {
		t.Fatalf("expected 2 relations for customer_id, got %d", len(got))
	}
	if got[0].Origin != domain.OriginStructural || got[1].Origin != domain.OriginCustom {
		t.Fatalf("expected structural before custom, got %v then %v", got[0].Origin, got[1].Origin)
	}
	if len(rels["emp_ids"]) != 1 || !rels["emp_ids"][0].IsArray {
		t.Fatal("expected one IsArray relation for emp_ids")
	}
}

func TestCatalog_RelationsFor_NoRelations(t *testing.T) {
	rels, err := newCatalog(repository.NewMockRowStore()).RelationsFor(context.Background(), "transactions_pos", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rels) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(rels))
	}
}

func TestCatalog_ConfigFor_PredicateMatch(t *testing.T) {
	store := repository.NewMockRowStore()
	store.AddConfig("partners", "3", domain.NotificationConfig{
		Name: "supplier", Role: domain.RoleCompany, TypeField: "partner_type", TypeValue: "supplier",
	})
	store.AddConfig("partners", "3", domain.NotificationConfig{
		Name: "zz-default", Role: domain.RoleCustomer,
	})

	cat := newCatalog(store)
	ctx := context.Background()

	cfg, err := cat.ConfigFor(ctx, "partners", domain.Row{"partner_type": "supplier"}, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.Name != "supplier" {
		t.Fatalf("expected predicate config, got %+v", cfg)
	}

	// No predicate matches: the config without a predicate is the default.
	cfg, err = cat.ConfigFor(ctx, "partners", domain.Row{"partner_type": "other"}, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.Name != "zz-default" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestCatalog_ConfigFor_AmbiguityFirstByName(t *testing.T) {
	store := repository.NewMockRowStore()
	store.AddConfig("partners", "3", domain.NotificationConfig{
		Name: "b-cfg", Role: domain.RoleCompany, TypeField: "kind", TypeValue: "x",
	})
	store.AddConfig("partners", "3", domain.NotificationConfig{
		Name: "a-cfg", Role: domain.RoleEmployee, TypeField: "kind", TypeValue: "x",
	})

	cfg, err := newCatalog(store).ConfigFor(context.Background(), "partners", domain.Row{"kind": "x"}, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.Name != "a-cfg" {
		t.Fatalf("expected first config by name, got %+v", cfg)
	}
}

func TestCatalog_ConfigFor_NoRoleMeansNoFanout(t *testing.T) {
	store := repository.NewMockRowStore()
	store.AddConfig("attachments", "3", domain.NotificationConfig{Name: "display-only"})

	cfg, err := newCatalog(store).ConfigFor(context.Background(), "attachments", domain.Row{}, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config for role-less entry, got %+v", cfg)
	}
}

func TestCatalog_ConfigFor_NoConfigs(t *testing.T) {
	cfg, err := newCatalog(repository.NewMockRowStore()).ConfigFor(context.Background(), "unknown", domain.Row{}, "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil, got %+v", cfg)
	}
}
