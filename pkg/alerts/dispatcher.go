package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

// ErrDeliveryFailed is returned when at least one channel could not deliver
// an alert after retries.
var ErrDeliveryFailed = errors.New("delivery failed")

// ChannelInApp is the channel name of the notification row every alert gets.
const ChannelInApp = "inapp"

// NotificationRecorder persists delivery records.
type NotificationRecorder interface {
	RecordNotification(ctx context.Context, n *model.Notification) error
}

// RetryPolicy bounds notifier retries.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a dispatcher is created without one.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// Dispatcher is the default Emitter. It records an in-app notification for
// the recipient and then fans the alert out to every notifier.
type Dispatcher struct {
	store     NotificationRecorder
	notifiers []Notifier
	retry     RetryPolicy
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. A zero retry policy uses
// DefaultRetryPolicy.
func NewDispatcher(store NotificationRecorder, notifiers []Notifier, retry RetryPolicy, logger *slog.Logger) *Dispatcher {
	if retry.MaxTries == 0 {
		retry = DefaultRetryPolicy
	}
	return &Dispatcher{
		store:     store,
		notifiers: notifiers,
		retry:     retry,
		logger:    logger,
	}
}

// Emit records and delivers alert. Each channel outcome is stored as a
// notification row; any failed channel makes Emit return ErrDeliveryFailed.
func (d *Dispatcher) Emit(ctx context.Context, alert Alert) error {
	if alert.Message == "" {
		alert.Message = alert.DefaultMessage()
	}

	if err := d.record(ctx, alert, ChannelInApp, nil); err != nil {
		return fmt.Errorf("record in-app notification: %w", err)
	}

	var failures []error
	for _, notifier := range d.notifiers {
		sendErr := d.send(ctx, notifier, alert)
		if sendErr != nil {
			d.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"entity", alert.Entity.String(),
				"alert_type", alert.AlertType,
				"recipient", alert.Recipient,
				"error", sendErr,
			)
			failures = append(failures, fmt.Errorf("%s: %w", notifier.Name(), sendErr))
		}
		if err := d.record(ctx, alert, notifier.Name(), sendErr); err != nil {
			d.logger.Error("record notification", "notifier", notifier.Name(), "error", err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, errors.Join(failures...))
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, notifier Notifier, alert Alert) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.retry.InitialInterval
	if d.retry.MaxInterval > 0 {
		b.MaxInterval = d.retry.MaxInterval
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, notifier.Send(ctx, alert)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(d.retry.MaxTries))
	return err
}

func (d *Dispatcher) record(ctx context.Context, alert Alert, channel string, sendErr error) error {
	n := &model.Notification{
		LedgerEntryID: alert.LedgerEntryID,
		TriggerID:     alert.TriggerID,
		Recipient:     alert.Recipient,
		Channel:       channel,
		Priority:      alert.Priority,
		Status:        model.NotificationSent,
	}
	if sendErr != nil {
		n.Status = model.NotificationFailed
		n.Error = sendErr.Error()
	}
	return d.store.RecordNotification(ctx, n)
}
