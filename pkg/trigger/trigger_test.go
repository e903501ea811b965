package trigger_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/trigger"
)

func newTestStore(t *testing.T) *trigger.Store {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return trigger.NewStore(db)
}

var (
	leaseRef = model.EntityRef{Kind: model.KindLease, ID: "lease-1"}
	endDate  = time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
)

func TestStore_FindOrCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerPending, first.Status)
	assert.Equal(t, model.PriorityMedium, first.Priority)

	second, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	open, err := s.OpenTriggers(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestStore_FindOrCreate_Escalates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityLow)
	require.NoError(t, err)

	escalated, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, first.ID, escalated.ID)
	assert.Equal(t, model.PriorityHigh, escalated.Priority)

	same, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, same.Priority, "priority is never lowered")
}

func TestStore_FindOrCreate_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityMedium)
			if assert.NoError(t, err) {
				ids[i] = tr.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	open, err := s.OpenTriggers(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestStore_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tr, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityHigh)
	require.NoError(t, err)

	require.NoError(t, s.Activate(ctx, tr.ID))
	require.NoError(t, s.Activate(ctx, tr.ID), "activating an active trigger is a no-op")

	got, err := s.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerActive, got.Status)
	assert.Nil(t, got.ResolvedAt)

	require.NoError(t, s.Dismiss(ctx, tr.ID))
	got, err = s.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerDismissed, got.Status)
	require.NotNil(t, got.ResolvedAt)
	resolved := *got.ResolvedAt

	assert.ErrorIs(t, s.Activate(ctx, tr.ID), trigger.ErrInvalidTransition)
	assert.ErrorIs(t, s.Dismiss(ctx, tr.ID), trigger.ErrInvalidTransition)
	assert.ErrorIs(t, s.Actioned(ctx, tr.ID), trigger.ErrInvalidTransition)

	got, err = s.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerDismissed, got.Status, "terminal triggers are immutable")
	assert.True(t, resolved.Equal(*got.ResolvedAt))
}

func TestStore_Actioned_FromPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tr, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityLow)
	require.NoError(t, err)
	require.NoError(t, s.Actioned(ctx, tr.ID))

	// A new trigger may be opened once the previous one is closed
	next, err := s.FindOrCreate(ctx, leaseRef, model.TriggerLeaseExpiration, endDate, model.PriorityCritical)
	require.NoError(t, err)
	assert.NotEqual(t, tr.ID, next.ID)
	assert.Equal(t, model.TriggerPending, next.Status)

	actioned, err := s.List(ctx, model.TriggerFilter{Status: model.TriggerActioned})
	require.NoError(t, err)
	require.Len(t, actioned, 1)
	assert.Equal(t, tr.ID, actioned[0].ID)
}

func TestStore_UnknownTrigger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Dismiss(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, s.Activate(ctx, "missing"), storage.ErrNotFound)
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
