package ledger_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/ledger"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
)

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return ledger.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLedger_Record(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindLease, ID: "lease-1"}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	fired, err := l.HasFired(ctx, ref, model.Threshold90)
	require.NoError(t, err)
	assert.False(t, fired)

	entry, created, err := l.Record(ctx, ref, model.Threshold90, "alice", now)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, entry)
	assert.Equal(t, "alice", entry.SentTo)
	assert.False(t, entry.Acknowledged)

	entry, created, err = l.Record(ctx, ref, model.Threshold90, "bob", now.Add(time.Hour))
	require.NoError(t, err, "a duplicate is not an error")
	assert.False(t, created)
	assert.Nil(t, entry)

	fired, err = l.HasFired(ctx, ref, model.Threshold90)
	require.NoError(t, err)
	assert.True(t, fired)

	sent, err := l.Sent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[model.Threshold]bool{model.Threshold90: true}, sent)
}

func TestLedger_Record_Concurrent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindDebt, ID: "debt-1"}

	const writers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := l.Record(ctx, ref, model.Threshold7, "alice", time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	entries, err := l.ForEntity(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_Acknowledge(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	ref := model.EntityRef{Kind: model.KindLease, ID: "lease-2"}

	entry, _, err := l.Record(ctx, ref, model.Threshold30, "alice", time.Now())
	require.NoError(t, err)

	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, l.Acknowledge(ctx, entry.ID, at))
	require.NoError(t, l.Acknowledge(ctx, entry.ID, at.Add(24*time.Hour)))

	got, err := l.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, got.Acknowledged)
	require.NotNil(t, got.AcknowledgedAt)
	assert.True(t, at.Equal(*got.AcknowledgedAt))

	err = l.Acknowledge(ctx, "unknown", at)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLedger_List(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	_, _, err := l.Record(ctx, model.EntityRef{Kind: model.KindLease, ID: "a"}, model.Threshold90, "alice", now)
	require.NoError(t, err)
	_, _, err = l.Record(ctx, model.EntityRef{Kind: model.KindLease, ID: "b"}, model.Threshold90, "bob", now)
	require.NoError(t, err)

	all, err := l.List(ctx, model.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bobs, err := l.List(ctx, model.AlertFilter{SentTo: "bob"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, "b", bobs[0].Entity.ID)
}
