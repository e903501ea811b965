// Package ledger records which threshold alerts have been issued for each
// monitored entity.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
)

// Ledger is the append-only record of issued alerts. At most one entry
// exists per entity and alert type.
type Ledger struct {
	storage storage.Storage
	logger  *slog.Logger
}

// New creates a ledger backed by store.
func New(store storage.Storage, logger *slog.Logger) *Ledger {
	return &Ledger{storage: store, logger: logger}
}

// HasFired reports whether alertType was already recorded for ref.
func (l *Ledger) HasFired(ctx context.Context, ref model.EntityRef, alertType model.Threshold) (bool, error) {
	entries, err := l.storage.ListAlerts(ctx, model.AlertFilter{EntityID: ref.ID, AlertType: alertType})
	if err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	return len(entries) > 0, nil
}

// Sent returns the set of thresholds already recorded for ref.
func (l *Ledger) Sent(ctx context.Context, ref model.EntityRef) (map[model.Threshold]bool, error) {
	entries, err := l.ForEntity(ctx, ref)
	if err != nil {
		return nil, err
	}
	sent := make(map[model.Threshold]bool, len(entries))
	for _, e := range entries {
		sent[e.AlertType] = true
	}
	return sent, nil
}

// Record appends an entry for ref and alertType. When another writer
// recorded the same pair first, Record returns created=false and no error;
// the caller must not notify in that case.
func (l *Ledger) Record(ctx context.Context, ref model.EntityRef, alertType model.Threshold, sentTo string, at time.Time) (*model.AlertLedgerEntry, bool, error) {
	entry := &model.AlertLedgerEntry{
		Entity:    ref,
		AlertType: alertType,
		SentAt:    at.UTC(),
		SentTo:    sentTo,
	}

	err := l.storage.InsertAlert(ctx, entry)
	if errors.Is(err, storage.ErrConflict) {
		l.logger.Debug("alert already recorded",
			"entity", ref.String(),
			"alert_type", alertType,
		)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("record alert: %w", err)
	}
	return entry, true, nil
}

// Acknowledge marks an entry acknowledged. Acknowledging an entry twice is
// a no-op; an unknown id returns storage.ErrNotFound.
func (l *Ledger) Acknowledge(ctx context.Context, id string, at time.Time) error {
	if err := l.storage.AcknowledgeAlert(ctx, id, at.UTC()); err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	return nil
}

// Get returns a single entry.
func (l *Ledger) Get(ctx context.Context, id string) (*model.AlertLedgerEntry, error) {
	return l.storage.GetAlert(ctx, id)
}

// ForEntity returns every entry recorded for ref.
func (l *Ledger) ForEntity(ctx context.Context, ref model.EntityRef) ([]model.AlertLedgerEntry, error) {
	entries, err := l.storage.ListAlerts(ctx, model.AlertFilter{EntityID: ref.ID})
	if err != nil {
		return nil, fmt.Errorf("list entity alerts: %w", err)
	}
	return entries, nil
}

// List returns entries matching filter, newest first.
func (l *Ledger) List(ctx context.Context, filter model.AlertFilter) ([]model.AlertLedgerEntry, error) {
	entries, err := l.storage.ListAlerts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return entries, nil
}
