// Package catalog merges structural foreign-key metadata with tenant-
// configured relations and resolves per-table notification configs.
package catalog

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// MetadataProvider supplies relation metadata for a table.
// The pg implementation lives in internal/repository.
type MetadataProvider interface {
	// StructuralRelations returns one relation per foreign key on table.
	StructuralRelations(ctx context.Context, table string) ([]domain.Relation, error)
	// CustomRelations returns tenant-configured relations, zero or many per
	// column, including IsArray JSON-list columns and filter predicates.
	CustomRelations(ctx context.Context, table, companyID string) ([]domain.Relation, error)
}

// ConfigProvider supplies notification configs for a target table.
type ConfigProvider interface {
	NotificationConfigs(ctx context.Context, table, companyID string) ([]domain.NotificationConfig, error)
}

// Catalog answers "what does this column point at" and "how does that
// target fan out". It holds no state of its own; callers may cache results
// per job but the catalog always reads fresh.
type Catalog struct {
	meta   MetadataProvider
	cfgs   ConfigProvider
	logger *zap.Logger
}

func New(meta MetadataProvider, cfgs ConfigProvider, logger *zap.Logger) *Catalog {
	return &Catalog{meta: meta, cfgs: cfgs, logger: logger}
}

// RelationsFor returns all relations for table, keyed by lower-cased source
// column. Custom relations are appended after structural ones so a tenant
// override never hides a foreign key. A table with no relations yields an
// empty map, not an error.
func (c *Catalog) RelationsFor(ctx context.Context, table, companyID string) (map[string][]domain.Relation, error) {
	structural, err := c.meta.StructuralRelations(ctx, table)
	if err != nil {
		return nil, err
	}
	custom, err := c.meta.CustomRelations(ctx, table, companyID)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]domain.Relation, len(structural)+len(custom))
	for _, rel := range structural {
		rel.Origin = domain.OriginStructural
		key := strings.ToLower(rel.SourceColumn)
		out[key] = append(out[key], rel)
	}
	for _, rel := range custom {
		rel.Origin = domain.OriginCustom
		key := strings.ToLower(rel.SourceColumn)
		out[key] = append(out[key], rel)
	}
	return out, nil
}

// ConfigFor picks the notification config for one reference row of
// targetTable. Configs carrying a TypeField/TypeValue predicate are matched
// against the reference row; a config with no predicate is the default.
// Several predicate matches with no default is a tenant configuration
// ambiguity: the first match in name order wins and a warning is logged.
//
// Returns (nil, nil) when no config applies or the chosen config has no
// role — the signal that this relation does not fan out.
func (c *Catalog) ConfigFor(ctx context.Context, targetTable string, referenceRow domain.Row, companyID string) (*domain.NotificationConfig, error) {
	configs, err := c.cfgs.NotificationConfigs(ctx, targetTable, companyID)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}

	sort.SliceStable(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })

	var matched []domain.NotificationConfig
	var fallback *domain.NotificationConfig
	for i, cfg := range configs {
		if cfg.TypeField == "" {
			if fallback == nil {
				fallback = &configs[i]
			}
			continue
		}
		if strings.EqualFold(referenceRow.String(cfg.TypeField), cfg.TypeValue) {
			matched = append(matched, cfg)
		}
	}

	var chosen *domain.NotificationConfig
	switch {
	case len(matched) == 1:
		chosen = &matched[0]
	case len(matched) > 1:
		c.logger.Warn("ambiguous notification config match, using first by name",
			zap.String("table", targetTable),
			zap.String("config", matched[0].Name),
			zap.Int("matches", len(matched)),
		)
		chosen = &matched[0]
	default:
		chosen = fallback
	}

	if chosen == nil || !chosen.Role.IsValid() {
		return nil, nil
	}
	return chosen, nil
}
