package alerts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/alerts"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

type memoryRecorder struct {
	mu            sync.Mutex
	notifications []model.Notification
}

func (m *memoryRecorder) RecordNotification(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *memoryRecorder) byChannel() map[string]model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]model.Notification, len(m.notifications))
	for _, n := range m.notifications {
		out[n.Channel] = n
	}
	return out
}

type flakyNotifier struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyNotifier) Name() string { return "flaky" }

func (f *flakyNotifier) Send(context.Context, alerts.Alert) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("temporarily unavailable")
	}
	return nil
}

var fastRetry = alerts.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_Emit_InAppOnly(t *testing.T) {
	rec := &memoryRecorder{}
	d := alerts.NewDispatcher(rec, nil, fastRetry, discardLogger())

	require.NoError(t, d.Emit(context.Background(), testAlert()))

	require.Len(t, rec.notifications, 1)
	n := rec.notifications[0]
	assert.Equal(t, alerts.ChannelInApp, n.Channel)
	assert.Equal(t, model.NotificationSent, n.Status)
	assert.Equal(t, "entry-1", n.LedgerEntryID)
	assert.Equal(t, "trigger-1", n.TriggerID)
	assert.Equal(t, "alice", n.Recipient)
	assert.Equal(t, model.PriorityMedium, n.Priority)
}

func TestDispatcher_Emit_RetriesTransientFailure(t *testing.T) {
	rec := &memoryRecorder{}
	flaky := &flakyNotifier{failures: 2}
	d := alerts.NewDispatcher(rec, []alerts.Notifier{flaky}, fastRetry, discardLogger())

	require.NoError(t, d.Emit(context.Background(), testAlert()))
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, model.NotificationSent, rec.byChannel()["flaky"].Status)
}

func TestDispatcher_Emit_DeliveryFailed(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &memoryRecorder{}
	d := alerts.NewDispatcher(rec, []alerts.Notifier{alerts.NewWebhookNotifier(server.URL, "")}, fastRetry, discardLogger())

	err := d.Emit(context.Background(), testAlert())
	require.Error(t, err)
	assert.ErrorIs(t, err, alerts.ErrDeliveryFailed)
	assert.Equal(t, int32(3), calls.Load())

	byChannel := rec.byChannel()
	assert.Equal(t, model.NotificationSent, byChannel[alerts.ChannelInApp].Status)
	failed := byChannel["webhook"]
	assert.Equal(t, model.NotificationFailed, failed.Status)
	assert.Contains(t, failed.Error, "status 502")
}

func TestDispatcher_Emit_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rec := &memoryRecorder{}
	d := alerts.NewDispatcher(rec, []alerts.Notifier{alerts.NewSlackNotifier(server.URL, "")}, fastRetry, discardLogger())

	err := d.Emit(context.Background(), testAlert())
	assert.ErrorIs(t, err, alerts.ErrDeliveryFailed)
	assert.Equal(t, int32(1), calls.Load())
}
