// Package engine is the fanout core: it turns one transaction write into the
// set of notification inserts, in-place reconciliations, realtime emits, and
// email/SMS dispatches the configuration calls for.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/catalog"
	"github.com/dynaerp/notify-engine/internal/delivery"
	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/message"
	"github.com/dynaerp/notify-engine/internal/normalize"
	"github.com/dynaerp/notify-engine/internal/queue"
	"github.com/dynaerp/notify-engine/internal/recipient"
	"github.com/dynaerp/notify-engine/internal/repository"
)

// arrayDelimiter splits legacy delimited ids in columns declared IsArray.
const arrayDelimiter = ","

// RowProvider fetches one row of a dynamic table.
// Returns (nil, nil) when the row does not exist.
type RowProvider interface {
	RowByID(ctx context.Context, table, id, companyID string) (domain.Row, error)
}

// Hooks carries metric callbacks injected by main so the engine itself
// stays metrics-agnostic. Nil fields are replaced with no-ops.
type Hooks struct {
	OnDropped    func(reason string)
	OnInserted   func(n int)
	OnReconciled func(n int)
	OnExcluded   func(n int)
}

func (h *Hooks) fill() {
	if h.OnDropped == nil {
		h.OnDropped = func(string) {}
	}
	if h.OnInserted == nil {
		h.OnInserted = func(int) {}
	}
	if h.OnReconciled == nil {
		h.OnReconciled = func(int) {}
	}
	if h.OnExcluded == nil {
		h.OnExcluded = func(int) {}
	}
}

// Engine owns the queue handle and the full job pipeline. One instance per
// process; the worker calls Process, write paths call Enqueue.
type Engine struct {
	q      *queue.Queue
	repo   repository.NotificationRepository
	rows   RowProvider
	cat    *catalog.Catalog
	res    *recipient.Resolver
	sink   *delivery.Sink
	logger *zap.Logger
	hooks  Hooks
}

func New(
	q *queue.Queue,
	repo repository.NotificationRepository,
	rows RowProvider,
	cat *catalog.Catalog,
	res *recipient.Resolver,
	sink *delivery.Sink,
	logger *zap.Logger,
	hooks Hooks,
) *Engine {
	hooks.fill()
	return &Engine{q: q, repo: repo, rows: rows, cat: cat, res: res, sink: sink, logger: logger, hooks: hooks}
}

// Enqueue is called by the write path after a transaction row is committed.
// It never blocks and never returns an error to the caller: jobs that fail
// validation are dropped silently (visible only in metrics and debug logs),
// because notification fanout must not surface into the triggering request.
func (e *Engine) Enqueue(table, recordID, companyID string, action domain.Action, changedBy string, snapshot, previous domain.Row) {
	switch {
	case !domain.IsTransactionTable(table):
		e.hooks.OnDropped("not_transaction_table")
		e.logger.Debug("ignoring write to non-transaction table", zap.String("table", table))
		return
	case recordID == "" || companyID == "":
		e.hooks.OnDropped("missing_ids")
		e.logger.Debug("ignoring write without record/company id", zap.String("table", table))
		return
	case !action.IsValid():
		e.hooks.OnDropped("invalid_action")
		e.logger.Debug("ignoring write with unknown action", zap.String("action", string(action)))
		return
	}

	job := domain.Job{
		Table:     table,
		RecordID:  recordID,
		CompanyID: companyID,
		Action:    action,
		ChangedBy: changedBy,
		Snapshot:  snapshot,
		Previous:  previous,
	}
	if err := e.q.Enqueue(job); err != nil {
		e.hooks.OnDropped("queue_full")
		e.logger.Warn("fanout queue full, dropping job",
			zap.String("table", table), zap.String("record_id", recordID))
	}
}

// QueueDepth exposes the queue depth for the metrics gauge.
func (e *Engine) QueueDepth() int {
	return e.q.Depth()
}

// reference is one resolved (relation, target row) pair of the current job.
type reference struct {
	rel     domain.Relation
	id      string
	cfg     *domain.NotificationConfig
	row     domain.Row
	aud     recipient.Audience
	payload domain.MessagePayload
}

func referenceKey(targetTable, id string) string {
	return strings.ToLower(targetTable) + "\x00" + id
}

// Process runs one job to completion: discovery, reconciliation, delivery.
// A returned error means the job was abandoned; the worker logs it and moves
// on — there are no retries anywhere in the pipeline.
func (e *Engine) Process(ctx context.Context, job domain.Job) error {
	log := e.logger.With(
		zap.String("table", job.Table),
		zap.String("record_id", job.RecordID),
		zap.String("company_id", job.CompanyID),
		zap.String("action", string(job.Action)),
	)

	existing, err := e.repo.ListByRelated(ctx, job.CompanyID, job.RecordID)
	if err != nil {
		return fmt.Errorf("load prior notifications: %w", err)
	}

	if job.Action == domain.ActionDelete {
		return e.processDelete(ctx, job, existing, log)
	}

	if job.Snapshot == nil {
		row, err := e.rows.RowByID(ctx, job.Table, job.RecordID, job.CompanyID)
		if err != nil {
			return fmt.Errorf("load transaction row: %w", err)
		}
		if row == nil {
			return domain.ErrMissingRecord
		}
		job.Snapshot = row
	}

	active, order, err := e.discoverReferences(ctx, job, log)
	if err != nil {
		return err
	}

	// Index prior notifications by reference key, then recipient. Mutations
	// key off this index, which is what makes replaying a job converge
	// instead of duplicating rows.
	prior := make(map[string]map[string]*domain.Notification)
	for _, n := range existing {
		key := n.Payload.ReferenceKey()
		if prior[key] == nil {
			prior[key] = make(map[string]*domain.Notification)
		}
		prior[key][n.RecipientEmpID] = n
	}

	now := time.Now().UTC()
	var pending []*domain.Notification
	var rooms []delivery.Room
	var emails []delivery.Email
	var sms []delivery.SMS
	reconciled := 0

	for _, key := range order {
		ref := active[key]
		known := prior[key]
		freshReference := len(known) == 0

		for _, empID := range ref.aud.EmpIDs {
			if n, ok := known[empID]; ok {
				p := ref.payload
				if n.Payload.Excluded {
					// The reference was re-added after an exclusion: flip
					// the same row back instead of inserting a duplicate.
					p.SummaryText = message.SummaryIncluded
				}
				p.Excluded = false
				if err := e.repo.UpdatePayload(ctx, n.ID, p, false); err != nil {
					log.Warn("reconcile update failed", zap.String("id", n.ID), zap.Error(err))
					continue
				}
				reconciled++
			} else {
				pending = append(pending, &domain.Notification{
					ID:             uuid.New().String(),
					CompanyID:      job.CompanyID,
					RecipientEmpID: empID,
					Type:           domain.NotificationType,
					RelatedID:      job.RecordID,
					Payload:        ref.payload,
					CreatedAt:      now,
					CreatedBy:      job.ChangedBy,
				})
			}
			rooms = append(rooms, delivery.Room{Scope: delivery.ScopeEmp, Key: empID})
		}

		if room, ok := broadcastRoom(ref.cfg.Role, ref.id); ok {
			rooms = append(rooms, room)
		}

		// Contacts get mail on first acquaintance only: on create, and on
		// updates that introduce a reference not notified before. Re-mailing
		// an unchanged customer on every edit would be noise.
		if job.Action == domain.ActionCreate || freshReference {
			for _, to := range ref.aud.Emails {
				emails = append(emails, delivery.Email{
					To:      to,
					Subject: ref.payload.SummaryText,
					HTML:    message.EmailHTML(ref.payload),
				})
			}
			for _, to := range ref.aud.Phones {
				sms = append(sms, delivery.SMS{To: to, Body: ref.payload.SummaryText})
			}
		}
	}

	excluded := e.excludeStale(ctx, job, prior, active, now, &rooms, log)

	res, err := e.sink.Deliver(ctx, pending, rooms, emails, sms)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}

	e.hooks.OnInserted(res.Inserted)
	e.hooks.OnReconciled(reconciled)
	e.hooks.OnExcluded(excluded)

	log.Info("fanout complete",
		zap.Int("references", len(order)),
		zap.Int("inserted", res.Inserted),
		zap.Int("reconciled", reconciled),
		zap.Int("excluded", excluded),
		zap.Int("published", res.Published),
		zap.Int("emails", res.EmailsSent),
	)
	return nil
}

// discoverReferences walks every relation of the table, extracts reference
// ids from the snapshot, and resolves config + audience per reference.
// Per-reference failures (row fetch, config lookup, directory query) are
// logged and skipped; only relation metadata failing outright abandons the job.
func (e *Engine) discoverReferences(ctx context.Context, job domain.Job, log *zap.Logger) (map[string]*reference, []string, error) {
	relations, err := e.cat.RelationsFor(ctx, job.Table, job.CompanyID)
	if err != nil {
		return nil, nil, fmt.Errorf("load relations: %w", err)
	}

	active := make(map[string]*reference)
	var order []string

	// Stable column order keeps reference discovery deterministic across runs.
	cols := make([]string, 0, len(relations))
	for col := range relations {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		for _, rel := range relations[col] {
			if !rel.Matches(job.Snapshot) {
				continue
			}

			raw := job.Snapshot.Get(rel.SourceColumn)
			var ids []string
			if rel.IsArray {
				ids = normalize.ReferenceIDsDelimited(raw, rel.TargetIDField, arrayDelimiter)
			} else {
				ids = normalize.ReferenceIDs(raw, rel.TargetIDField)
			}

			for _, id := range ids {
				key := referenceKey(rel.TargetTable, id)
				if _, dup := active[key]; dup {
					continue
				}

				refRow, err := e.rows.RowByID(ctx, rel.TargetTable, id, job.CompanyID)
				if err != nil {
					log.Warn("reference row fetch failed, skipping",
						zap.String("target", rel.TargetTable), zap.String("ref_id", id), zap.Error(err))
					continue
				}

				cfg, err := e.cat.ConfigFor(ctx, rel.TargetTable, refRow, job.CompanyID)
				if err != nil {
					log.Warn("config lookup failed, skipping",
						zap.String("target", rel.TargetTable), zap.Error(err))
					continue
				}
				if cfg == nil || !cfg.NotifiesColumn(rel.SourceColumn) {
					continue
				}

				aud, err := e.res.Resolve(ctx, cfg.Role, id, refRow, job.CompanyID, cfg)
				if err != nil {
					log.Warn("recipient resolution failed, skipping",
						zap.String("role", string(cfg.Role)), zap.String("ref_id", id), zap.Error(err))
					continue
				}

				active[key] = &reference{
					rel:     rel,
					id:      id,
					cfg:     cfg,
					row:     refRow,
					aud:     aud,
					payload: message.Build(job, rel, id, cfg, refRow),
				}
				order = append(order, key)
			}
		}
	}
	return active, order, nil
}

// excludeStale transitions previously notified references that are no longer
// linked to the excluded state. Rows already excluded or deleted are left
// alone, which is what keeps a replayed update idempotent.
func (e *Engine) excludeStale(
	ctx context.Context,
	job domain.Job,
	prior map[string]map[string]*domain.Notification,
	active map[string]*reference,
	now time.Time,
	rooms *[]delivery.Room,
	log *zap.Logger,
) int {
	excluded := 0
	for key, byRecipient := range prior {
		if _, still := active[key]; still {
			continue
		}
		for empID, n := range byRecipient {
			if n.Payload.Excluded || n.Payload.Deleted {
				continue
			}
			p := n.Payload
			p.Action = domain.ActionUpdate
			p.SummaryText = message.SummaryExcluded
			p.SummaryFields = nil
			p.Excluded = true
			p.Actor = job.ChangedBy
			p.UpdatedAt = now
			if err := e.repo.UpdatePayload(ctx, n.ID, p, false); err != nil {
				log.Warn("exclusion update failed", zap.String("id", n.ID), zap.Error(err))
				continue
			}
			excluded++
			*rooms = append(*rooms, delivery.Room{Scope: delivery.ScopeEmp, Key: empID})
		}
	}
	return excluded
}

// processDelete stamps every live notification of the transaction with the
// terminal deleted summary. No new recipients are computed.
func (e *Engine) processDelete(ctx context.Context, job domain.Job, existing []*domain.Notification, log *zap.Logger) error {
	now := time.Now().UTC()
	var rooms []delivery.Room
	stamped := 0

	for _, n := range existing {
		if n.Payload.Deleted {
			continue
		}
		p := n.Payload
		p.Action = domain.ActionDelete
		p.SummaryText = message.SummaryDeleted
		p.SummaryFields = nil
		p.Deleted = true
		p.Actor = job.ChangedBy
		p.UpdatedAt = now
		if err := e.repo.UpdatePayload(ctx, n.ID, p, false); err != nil {
			log.Warn("delete stamp failed", zap.String("id", n.ID), zap.Error(err))
			continue
		}
		stamped++
		rooms = append(rooms, delivery.Room{Scope: delivery.ScopeEmp, Key: n.RecipientEmpID})
	}

	res, err := e.sink.Deliver(ctx, nil, rooms, nil, nil)
	if err != nil {
		return fmt.Errorf("deliver delete events: %w", err)
	}
	e.hooks.OnReconciled(stamped)

	log.Info("delete fanout complete", zap.Int("stamped", stamped), zap.Int("published", res.Published))
	return nil
}

func broadcastRoom(role domain.Role, referenceID string) (delivery.Room, bool) {
	switch role {
	case domain.RoleCompany:
		return delivery.Room{Scope: delivery.ScopeCompany, Key: referenceID}, true
	case domain.RoleDepartment:
		return delivery.Room{Scope: delivery.ScopeDepartment, Key: referenceID}, true
	case domain.RoleBranch:
		return delivery.Room{Scope: delivery.ScopeBranch, Key: referenceID}, true
	}
	return delivery.Room{}, false
}
