// Package message composes the structured, versioned payload stored in each
// notification row and rendered by the dashboard feed.
package message

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// PayloadVersion is bumped whenever the stored payload shape changes.
const PayloadVersion = 1

// Fixed summaries used by the reconciler's state transitions.
const (
	SummaryDeleted  = "Transaction deleted"
	SummaryExcluded = "Excluded from transaction"
	SummaryIncluded = "Included in transaction"
)

// nameCandidates is the ordered list of columns probed for a transaction's
// display name before falling back to a titleized table name.
var nameCandidates = []string{"name", "title", "transaction_name", "type_name", "code", "no"}

// Build composes the payload for one (job, reference) pair.
//
// Summary rules: create renders the config's dashboard fields (display
// fields as fallback) from the transaction snapshot; update renders a
// before/after diff restricted to the config's notify fields; delete is a
// fixed summary with no fields.
func Build(job domain.Job, rel domain.Relation, referenceID string, cfg *domain.NotificationConfig, referenceRow domain.Row) domain.MessagePayload {
	p := domain.MessagePayload{
		Kind:           domain.NotificationType,
		Version:        PayloadVersion,
		Table:          job.Table,
		RecordID:       job.RecordID,
		Action:         job.Action,
		ReferenceTable: rel.TargetTable,
		ReferenceID:    referenceID,
		Actor:          job.ChangedBy,
		UpdatedAt:      time.Now().UTC(),
	}
	if cfg != nil {
		p.Role = cfg.Role
	}

	name := DisplayName(job.Snapshot, job.Table)

	switch job.Action {
	case domain.ActionCreate:
		p.SummaryFields = summaryFields(job.Snapshot, summarySource(cfg))
		p.SummaryText = "New " + name
	case domain.ActionUpdate:
		p.SummaryFields = diffFields(job.Previous, job.Snapshot, notifySource(cfg))
		if len(p.SummaryFields) == 0 {
			// No usable diff (missing previous snapshot or untracked
			// columns changed): fall back to the create-style summary.
			p.SummaryFields = summaryFields(job.Snapshot, summarySource(cfg))
		}
		p.SummaryText = name + " updated"
	case domain.ActionDelete:
		p.SummaryText = SummaryDeleted
		p.Deleted = true
	}

	return p
}

// DisplayName derives a human-readable name for the transaction row by
// probing candidate name columns, falling back to the titleized table name.
func DisplayName(row domain.Row, table string) string {
	for _, col := range nameCandidates {
		if v := row.String(col); v != "" {
			return v
		}
	}
	return TitleizeTable(table)
}

// TitleizeTable turns "transactions_sales_orders" into "Sales Orders".
func TitleizeTable(table string) string {
	table = strings.TrimPrefix(strings.ToLower(table), domain.TransactionTablePrefix)
	words := strings.Split(table, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

// summarySource picks the field list used for create summaries.
func summarySource(cfg *domain.NotificationConfig) []string {
	if cfg == nil {
		return nil
	}
	if len(cfg.DashboardFields) > 0 {
		return cfg.DashboardFields
	}
	return cfg.DisplayFields
}

// notifySource picks the field list an update diff is restricted to.
// Empty means every changed column is reported.
func notifySource(cfg *domain.NotificationConfig) []string {
	if cfg == nil {
		return nil
	}
	return cfg.NotifyFields
}

func summaryFields(row domain.Row, fields []string) []domain.SummaryField {
	var out []domain.SummaryField
	for _, f := range fields {
		if v := row.String(f); v != "" {
			out = append(out, domain.SummaryField{Field: f, Value: v})
		}
	}
	return out
}

// diffFields produces "old → new" entries for columns that changed between
// the two snapshots. With a restriction list only those columns are
// considered; otherwise every column present in either snapshot is.
func diffFields(before, after domain.Row, restrict []string) []domain.SummaryField {
	if before == nil || after == nil {
		return nil
	}

	cols := restrict
	if len(cols) == 0 {
		seen := make(map[string]struct{})
		for _, row := range []domain.Row{before, after} {
			for k := range row {
				key := strings.ToLower(k)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				cols = append(cols, k)
			}
		}
		// Stable field order regardless of map iteration.
		sort.Strings(cols)
	}

	var out []domain.SummaryField
	for _, col := range cols {
		oldV, newV := before.String(col), after.String(col)
		if oldV == newV {
			continue
		}
		out = append(out, domain.SummaryField{
			Field: col,
			Value: fmt.Sprintf("%s → %s", orBlank(oldV), orBlank(newV)),
			Old:   oldV,
		})
	}
	return out
}

func orBlank(s string) string {
	if s == "" {
		return "(blank)"
	}
	return s
}
