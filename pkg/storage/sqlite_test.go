package storage_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func datePtr(t time.Time) *time.Time { return &t }

func TestSQLite_UpsertLease(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	lease := &model.Lease{
		PropertyID:  "prop-1",
		Tenant:      "Acme Corp",
		EndDate:     &end,
		MonthlyRent: decimal.RequireFromString("4250.50"),
	}
	require.NoError(t, db.UpsertLease(ctx, lease))
	assert.NotEmpty(t, lease.ID)
	assert.Equal(t, model.LeaseActive, lease.Status)

	got, err := db.GetLease(ctx, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Tenant)
	assert.True(t, got.MonthlyRent.Equal(decimal.RequireFromString("4250.50")))
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))
	assert.Nil(t, got.StartDate)

	// Same ID replaces the row
	lease.Status = model.LeaseTerminated
	require.NoError(t, db.UpsertLease(ctx, lease))
	got, err = db.GetLease(ctx, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeaseTerminated, got.Status)

	leases, err := db.ListLeases(ctx)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}

func TestSQLite_UpsertDebt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	debt := &model.Debt{
		Lender:       "First Bank",
		Amount:       decimal.RequireFromString("1250000"),
		InterestRate: decimal.RequireFromString("0.0625"),
		MaturityDate: datePtr(time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, db.UpsertDebt(ctx, debt))

	got, err := db.GetDebt(ctx, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, "First Bank", got.Lender)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1250000)))
	assert.Equal(t, model.DebtActive, got.Status)

	debts, err := db.ListDebts(ctx)
	require.NoError(t, err)
	assert.Len(t, debts, 1)
}

func TestSQLite_GetLease_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetLease(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLite_ListMonitored(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.UpsertLease(ctx, &model.Lease{ID: "l-active", Tenant: "A", EndDate: &end}))
	require.NoError(t, db.UpsertLease(ctx, &model.Lease{ID: "l-terminated", Tenant: "B", EndDate: &end, Status: model.LeaseTerminated}))
	require.NoError(t, db.UpsertLease(ctx, &model.Lease{ID: "l-no-date", Tenant: "C"}))
	require.NoError(t, db.UpsertDebt(ctx, &model.Debt{ID: "d-active", Lender: "Bank", MaturityDate: &end}))
	require.NoError(t, db.UpsertDebt(ctx, &model.Debt{ID: "d-paid", Lender: "Bank", MaturityDate: &end, Status: model.DebtPaidOff}))

	entities, err := db.ListMonitored(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	byID := map[string]model.MonitoredEntity{}
	for _, e := range entities {
		byID[e.Ref.ID] = e
	}
	assert.Equal(t, model.KindLease, byID["l-active"].Ref.Kind)
	assert.Equal(t, "A", byID["l-active"].Label)
	assert.True(t, end.Equal(byID["l-active"].TargetDate))
	assert.Equal(t, model.KindDebt, byID["d-active"].Ref.Kind)
}

func TestSQLite_InsertAlert_Conflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindLease, ID: "lease-1"}

	first := &model.AlertLedgerEntry{Entity: ref, AlertType: model.Threshold90, SentTo: "alice"}
	require.NoError(t, db.InsertAlert(ctx, first))
	assert.NotEmpty(t, first.ID)

	dup := &model.AlertLedgerEntry{Entity: ref, AlertType: model.Threshold90, SentTo: "bob"}
	err := db.InsertAlert(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrConflict)

	// Uniqueness ignores the entity kind
	other := &model.AlertLedgerEntry{Entity: model.EntityRef{Kind: model.KindDebt, ID: "lease-1"}, AlertType: model.Threshold90, SentTo: "carol"}
	assert.ErrorIs(t, db.InsertAlert(ctx, other), storage.ErrConflict)

	entries, err := db.ListAlerts(ctx, model.AlertFilter{EntityID: "lease-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].SentTo)
	assert.Equal(t, ref, entries[0].Entity)
}

func TestSQLite_InsertAlert_InvalidRef(t *testing.T) {
	db := newTestDB(t)

	err := db.InsertAlert(context.Background(), &model.AlertLedgerEntry{
		Entity:    model.EntityRef{Kind: "property", ID: "p-1"},
		AlertType: model.Threshold7,
	})
	assert.Error(t, err)
}

func TestSQLite_InsertAlert_ConcurrentWriters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindDebt, ID: "debt-1"}

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.InsertAlert(ctx, &model.AlertLedgerEntry{Entity: ref, AlertType: model.Threshold30, SentTo: "alice"})
		}()
	}
	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		default:
			require.ErrorIs(t, err, storage.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, writers-1, conflicts)
}

func TestSQLite_AcknowledgeAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &model.AlertLedgerEntry{Entity: model.EntityRef{Kind: model.KindLease, ID: "l-1"}, AlertType: model.Threshold60, SentTo: "alice"}
	require.NoError(t, db.InsertAlert(ctx, entry))

	first := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AcknowledgeAlert(ctx, entry.ID, first))
	require.NoError(t, db.AcknowledgeAlert(ctx, entry.ID, first.Add(time.Hour)))

	got, err := db.GetAlert(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	require.NotNil(t, got.AcknowledgedAt)
	assert.True(t, first.Equal(*got.AcknowledgedAt))

	unacked, err := db.ListAlerts(ctx, model.AlertFilter{Unacknowledged: true})
	require.NoError(t, err)
	assert.Empty(t, unacked)

	assert.ErrorIs(t, db.AcknowledgeAlert(ctx, "missing", first), storage.ErrNotFound)
}

func TestSQLite_Triggers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindLease, ID: "l-1"}
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tr := &model.Trigger{Type: model.TriggerLeaseExpiration, Entity: ref, TriggerDate: date, Priority: model.PriorityLow}
	require.NoError(t, db.InsertTrigger(ctx, tr))
	assert.Equal(t, model.TriggerPending, tr.Status)

	// A second open trigger for the same entity is rejected
	dup := &model.Trigger{Type: model.TriggerLeaseExpiration, Entity: ref, TriggerDate: date, Priority: model.PriorityHigh}
	assert.ErrorIs(t, db.InsertTrigger(ctx, dup), storage.ErrConflict)

	open, err := db.GetOpenTrigger(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, open.ID)

	now := time.Now().UTC()
	require.NoError(t, db.EscalateTrigger(ctx, tr.ID, model.PriorityHigh, date, now))
	require.NoError(t, db.EscalateTrigger(ctx, tr.ID, model.PriorityMedium, date, now))
	got, err := db.GetTrigger(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, got.Priority, "escalation never lowers priority")

	require.NoError(t, db.TransitionTrigger(ctx, tr.ID, []model.TriggerStatus{model.TriggerPending}, model.TriggerActive, now))
	err = db.TransitionTrigger(ctx, tr.ID, []model.TriggerStatus{model.TriggerPending}, model.TriggerActive, now)
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, db.TransitionTrigger(ctx, tr.ID, []model.TriggerStatus{model.TriggerPending, model.TriggerActive}, model.TriggerDismissed, now))
	got, err = db.GetTrigger(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerDismissed, got.Status)
	assert.NotNil(t, got.ResolvedAt)

	// Once terminal, a fresh trigger may be opened for the entity
	_, err = db.GetOpenTrigger(ctx, ref)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, db.InsertTrigger(ctx, dup))

	all, err := db.ListTriggers(ctx, model.TriggerFilter{EntityID: "l-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	openOnly, err := db.ListTriggers(ctx, model.TriggerFilter{OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, openOnly, 1)
	assert.Equal(t, dup.ID, openOnly[0].ID)

	assert.ErrorIs(t, db.EscalateTrigger(ctx, tr.ID, model.PriorityCritical, date, now), storage.ErrNotFound)
	assert.ErrorIs(t, db.TransitionTrigger(ctx, "missing", []model.TriggerStatus{model.TriggerPending}, model.TriggerActive, now), storage.ErrNotFound)
}

func TestSQLite_Assignments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindDebt, ID: "d-1"}

	require.NoError(t, db.SetAssignment(ctx, &model.Assignment{Entity: ref, UserID: "agent-1", Role: model.RoleAgent}))
	require.NoError(t, db.SetAssignment(ctx, &model.Assignment{Entity: ref, UserID: "owner-1"}))

	list, err := db.ListAssignments(ctx, ref)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "owner-1", list[0].UserID)
	assert.Equal(t, model.RoleOwner, list[0].Role)

	require.NoError(t, db.RemoveAssignment(ctx, ref, "agent-1"))
	assert.ErrorIs(t, db.RemoveAssignment(ctx, ref, "agent-1"), storage.ErrNotFound)

	list, err = db.ListAssignments(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_Notifications(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entry := &model.AlertLedgerEntry{Entity: model.EntityRef{Kind: model.KindLease, ID: "l-1"}, AlertType: model.Threshold7, SentTo: "alice"}
	require.NoError(t, db.InsertAlert(ctx, entry))

	require.NoError(t, db.RecordNotification(ctx, &model.Notification{
		LedgerEntryID: entry.ID, Recipient: "alice", Channel: "inapp",
		Priority: model.PriorityCritical, Status: model.NotificationSent,
	}))
	require.NoError(t, db.RecordNotification(ctx, &model.Notification{
		LedgerEntryID: entry.ID, Recipient: "alice", Channel: "slack",
		Priority: model.PriorityCritical, Status: model.NotificationFailed, Error: "status 500",
	}))

	all, err := db.ListNotifications(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := db.ListNotifications(ctx, model.NotificationFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "slack", failed[0].Channel)
	assert.Equal(t, "status 500", failed[0].Error)
}

func TestSQLite_Sweeps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)

	summary := &model.SweepSummary{
		StartedAt:      start,
		FinishedAt:     start.Add(2 * time.Second),
		Scanned:        3,
		Processed:      2,
		Skipped:        1,
		AlertsRecorded: 4,
		Errors: []model.EntityError{
			{Entity: model.EntityRef{Kind: model.KindLease, ID: "l-9"}, Stage: "resolve", Err: "no recipient"},
		},
	}
	require.NoError(t, db.RecordSweep(ctx, summary))
	require.NoError(t, db.RecordSweep(ctx, &model.SweepSummary{StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour)}))

	sweeps, err := db.ListSweeps(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sweeps, 2)
	assert.Empty(t, sweeps[0].Errors)
	assert.Equal(t, 4, sweeps[1].AlertsRecorded)
	require.Len(t, sweeps[1].Errors, 1)
	assert.Equal(t, "l-9", sweeps[1].Errors[0].Entity.ID)
	assert.Equal(t, 2*time.Second, sweeps[1].Duration())
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	// Open and close twice to verify migration idempotency
	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db2.Close()
}
