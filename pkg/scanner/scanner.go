// Package scanner runs sweeps over monitored leases and debts, recording
// threshold alerts exactly once and keeping triggers up to date.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/alerts"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/ledger"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/recipients"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/trigger"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/window"
)

// Sweep stages reported in model.EntityError.
const (
	StageLedger   = "ledger"
	StageTrigger  = "trigger"
	StageResolve  = "resolve"
	StageDeliver  = "deliver"
	StageAutoAct  = "auto_action"
)

// DefaultWorkers is the sweep parallelism used when none is configured.
const DefaultWorkers = 4

// Scanner performs sweeps. Several sweeps may run at once, in this process
// or others sharing the database; storage constraints keep the results
// exactly-once.
type Scanner struct {
	storage  storage.Storage
	ledger   *ledger.Ledger
	triggers *trigger.Store
	resolver recipients.Resolver
	emitter  alerts.Emitter
	workers  int
	logger   *slog.Logger
}

// New creates a scanner. workers bounds how many entities are processed in
// parallel; values below 1 use DefaultWorkers.
func New(store storage.Storage, l *ledger.Ledger, triggers *trigger.Store, resolver recipients.Resolver, emitter alerts.Emitter, workers int, logger *slog.Logger) *Scanner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Scanner{
		storage:  store,
		ledger:   l,
		triggers: triggers,
		resolver: resolver,
		emitter:  emitter,
		workers:  workers,
		logger:   logger,
	}
}

// entityResult is the outcome of processing one entity.
type entityResult struct {
	skipped       bool
	alerts        int
	conflicts     int
	notifications int
	failedSends   int
	errors        []model.EntityError
}

func (r *entityResult) fail(ref model.EntityRef, stage string, err error) {
	r.errors = append(r.errors, model.EntityError{Entity: ref, Stage: stage, Err: err.Error()})
}

// Sweep evaluates every monitored entity at now. Per-entity failures are
// collected into the summary; an error is returned only when the entity
// list cannot be loaded.
func (s *Scanner) Sweep(ctx context.Context, now time.Time) (*model.SweepSummary, error) {
	now = now.UTC()
	started := time.Now()

	entities, err := s.storage.ListMonitored(ctx)
	if err != nil {
		return nil, fmt.Errorf("list monitored entities: %w", err)
	}

	summary := &model.SweepSummary{StartedAt: now, Scanned: len(entities)}
	monitored := make(map[model.EntityRef]bool, len(entities))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, entity := range entities {
		monitored[entity.Ref] = true
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := s.processEntity(ctx, entity, now)
			mu.Lock()
			merge(summary, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() == nil {
		s.autoAction(ctx, monitored, summary)
	}

	summary.FinishedAt = now.Add(time.Since(started))
	if err := s.storage.RecordSweep(ctx, summary); err != nil {
		s.logger.Error("record sweep", "error", err)
	}

	s.logger.Info("sweep complete",
		"scanned", summary.Scanned,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"alerts", summary.AlertsRecorded,
		"conflicts", summary.Conflicts,
		"notifications_sent", summary.NotificationsSent,
		"notifications_failed", summary.NotificationsFailed,
		"auto_actioned", summary.TriggersAutoActioned,
		"duration", summary.Duration(),
	)
	return summary, nil
}

func merge(summary *model.SweepSummary, res entityResult) {
	switch {
	case res.skipped:
		summary.Skipped++
	case len(res.errors) > 0:
		summary.Failed++
	default:
		summary.Processed++
	}
	summary.AlertsRecorded += res.alerts
	summary.Conflicts += res.conflicts
	summary.NotificationsSent += res.notifications
	summary.NotificationsFailed += res.failedSends
	summary.Errors = append(summary.Errors, res.errors...)
}

// processEntity records and delivers every due threshold for one entity.
func (s *Scanner) processEntity(ctx context.Context, entity model.MonitoredEntity, now time.Time) entityResult {
	var res entityResult
	ref := entity.Ref

	sent, err := s.ledger.Sent(ctx, ref)
	if err != nil {
		res.fail(ref, StageLedger, err)
		return res
	}

	due := window.Evaluate(now, entity.TargetDate, sent)
	if len(due) == 0 {
		return res
	}

	tr, err := s.triggers.FindOrCreate(ctx, ref, model.TriggerTypeFor(ref.Kind), entity.TargetDate, window.PriorityForDue(due))
	if err != nil {
		res.fail(ref, StageTrigger, err)
		return res
	}

	users, err := s.resolver.Resolve(ctx, ref)
	if errors.Is(err, recipients.ErrNoRecipient) {
		// Nothing is recorded, so the next pass tries again.
		s.logger.Warn("no recipient for entity, skipping",
			"entity", ref.String(),
			"due", due,
		)
		res.skipped = true
		res.fail(ref, StageResolve, err)
		return res
	}
	if err != nil {
		res.fail(ref, StageResolve, err)
		return res
	}

	days := window.DaysRemaining(now, entity.TargetDate)
	delivered := false
	for _, threshold := range due {
		entry, created, err := s.ledger.Record(ctx, ref, threshold, users[0], now)
		if err != nil {
			res.fail(ref, StageLedger, err)
			continue
		}
		if !created {
			res.conflicts++
			continue
		}
		res.alerts++

		for _, user := range users {
			alert := alerts.Alert{
				LedgerEntryID: entry.ID,
				TriggerID:     tr.ID,
				Entity:        ref,
				EntityLabel:   entity.Label,
				AlertType:     threshold,
				Priority:      window.PriorityFor(threshold),
				TargetDate:    entity.TargetDate,
				DaysRemaining: days,
				Recipient:     user,
			}
			if err := s.emitter.Emit(ctx, alert); err != nil {
				// The ledger row stays: the decision was made, delivery is
				// reported rather than retried.
				res.failedSends++
				res.fail(ref, StageDeliver, err)
				continue
			}
			res.notifications++
			delivered = true
		}
	}

	if delivered {
		if err := s.triggers.Activate(ctx, tr.ID); err != nil {
			if errors.Is(err, trigger.ErrInvalidTransition) {
				s.logger.Warn("trigger closed before activation",
					"trigger", tr.ID,
					"entity", ref.String(),
				)
			} else {
				res.fail(ref, StageTrigger, err)
			}
		}
	}
	return res
}

// autoAction closes open triggers whose entity is no longer monitored:
// its status changed, its target date was cleared or it was removed.
func (s *Scanner) autoAction(ctx context.Context, monitored map[model.EntityRef]bool, summary *model.SweepSummary) {
	open, err := s.triggers.OpenTriggers(ctx)
	if err != nil {
		s.logger.Error("list open triggers", "error", err)
		return
	}

	for _, tr := range open {
		if monitored[tr.Entity] {
			continue
		}
		// The entity may have been added after this sweep loaded its list.
		still, err := s.stillMonitored(ctx, tr.Entity)
		if err != nil {
			summary.Errors = append(summary.Errors, model.EntityError{Entity: tr.Entity, Stage: StageAutoAct, Err: err.Error()})
			continue
		}
		if still {
			continue
		}

		err = s.triggers.Actioned(ctx, tr.ID)
		switch {
		case errors.Is(err, trigger.ErrInvalidTransition):
			s.logger.Debug("trigger already closed", "trigger", tr.ID)
		case err != nil:
			summary.Errors = append(summary.Errors, model.EntityError{Entity: tr.Entity, Stage: StageAutoAct, Err: err.Error()})
		default:
			summary.TriggersAutoActioned++
			s.logger.Info("trigger auto-actioned",
				"trigger", tr.ID,
				"entity", tr.Entity.String(),
			)
		}
	}
}

func (s *Scanner) stillMonitored(ctx context.Context, ref model.EntityRef) (bool, error) {
	switch ref.Kind {
	case model.KindLease:
		lease, err := s.storage.GetLease(ctx, ref.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return lease.Status == model.LeaseActive && lease.EndDate != nil, nil
	case model.KindDebt:
		debt, err := s.storage.GetDebt(ctx, ref.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return debt.Status == model.DebtActive && debt.MaturityDate != nil, nil
	default:
		return false, fmt.Errorf("unknown entity kind %q", ref.Kind)
	}
}
