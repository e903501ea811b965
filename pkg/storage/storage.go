package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

var (
	// ErrConflict is returned when a write loses to an existing row under a
	// uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// Storage defines the persistence layer for monitored entities, the alert
// ledger, triggers and delivery bookkeeping.
type Storage interface {
	// UpsertLease creates or replaces a lease.
	UpsertLease(ctx context.Context, lease *model.Lease) error

	// UpsertDebt creates or replaces a debt.
	UpsertDebt(ctx context.Context, debt *model.Debt) error

	// GetLease retrieves a lease by ID.
	GetLease(ctx context.Context, id string) (*model.Lease, error)

	// GetDebt retrieves a debt by ID.
	GetDebt(ctx context.Context, id string) (*model.Debt, error)

	// ListLeases returns all leases.
	ListLeases(ctx context.Context) ([]model.Lease, error)

	// ListDebts returns all debts.
	ListDebts(ctx context.Context) ([]model.Debt, error)

	// ListMonitored returns active leases and debts that have a target date.
	ListMonitored(ctx context.Context) ([]model.MonitoredEntity, error)

	// InsertAlert appends a ledger entry. It returns ErrConflict when an entry
	// for the same entity ID and alert type already exists.
	InsertAlert(ctx context.Context, entry *model.AlertLedgerEntry) error

	// GetAlert retrieves a ledger entry by ID.
	GetAlert(ctx context.Context, id string) (*model.AlertLedgerEntry, error)

	// ListAlerts returns ledger entries matching the filter, newest first.
	ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertLedgerEntry, error)

	// AcknowledgeAlert marks a ledger entry acknowledged. Acknowledging twice
	// keeps the first timestamp.
	AcknowledgeAlert(ctx context.Context, id string, at time.Time) error

	// InsertTrigger creates a trigger. It returns ErrConflict when the entity
	// already has an open trigger.
	InsertTrigger(ctx context.Context, trigger *model.Trigger) error

	// GetTrigger retrieves a trigger by ID.
	GetTrigger(ctx context.Context, id string) (*model.Trigger, error)

	// GetOpenTrigger retrieves the pending or active trigger for an entity.
	GetOpenTrigger(ctx context.Context, ref model.EntityRef) (*model.Trigger, error)

	// EscalateTrigger raises an open trigger's priority (never lowers it) and
	// refreshes its trigger date.
	EscalateTrigger(ctx context.Context, id string, priority model.Priority, triggerDate, at time.Time) error

	// TransitionTrigger moves a trigger to status `to` when its current status
	// is one of `from`. It returns ErrConflict when the current status is not
	// in `from`.
	TransitionTrigger(ctx context.Context, id string, from []model.TriggerStatus, to model.TriggerStatus, at time.Time) error

	// ListTriggers returns triggers matching the filter.
	ListTriggers(ctx context.Context, filter model.TriggerFilter) ([]model.Trigger, error)

	// SetAssignment creates or updates a recipient assignment.
	SetAssignment(ctx context.Context, a *model.Assignment) error

	// RemoveAssignment deletes a recipient assignment.
	RemoveAssignment(ctx context.Context, ref model.EntityRef, userID string) error

	// ListAssignments returns the assignments for an entity, owners first.
	ListAssignments(ctx context.Context, ref model.EntityRef) ([]model.Assignment, error)

	// RecordNotification persists a delivery record.
	RecordNotification(ctx context.Context, n *model.Notification) error

	// ListNotifications returns delivery records, newest first. An empty
	// status returns every record.
	ListNotifications(ctx context.Context, status model.NotificationStatus, limit int) ([]model.Notification, error)

	// RecordSweep persists a sweep summary.
	RecordSweep(ctx context.Context, summary *model.SweepSummary) error

	// ListSweeps returns recent sweep summaries, newest first.
	ListSweeps(ctx context.Context, limit int) ([]model.SweepSummary, error)

	// Close releases resources.
	Close() error
}
