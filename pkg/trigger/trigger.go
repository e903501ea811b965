// Package trigger manages the lifecycle of "needs attention" triggers raised
// for monitored entities.
//
// A trigger moves pending -> active -> (dismissed | actioned). Dismissed and
// actioned are terminal. An entity has at most one open trigger at a time.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
)

// ErrInvalidTransition is returned when a trigger cannot move to the
// requested status from its current one.
var ErrInvalidTransition = errors.New("invalid trigger transition")

var openStatuses = []model.TriggerStatus{model.TriggerPending, model.TriggerActive}

// Store applies trigger lifecycle rules on top of storage.
type Store struct {
	storage storage.Storage
	now     func() time.Time
}

// NewStore creates a trigger store.
func NewStore(store storage.Storage) *Store {
	return &Store{storage: store, now: time.Now}
}

// FindOrCreate returns the open trigger for ref, creating a pending one when
// none exists. An existing trigger has its priority raised to at least
// priority and its trigger date refreshed. Concurrent callers for the same
// entity converge on a single trigger.
func (s *Store) FindOrCreate(ctx context.Context, ref model.EntityRef, typ model.TriggerType, triggerDate time.Time, priority model.Priority) (*model.Trigger, error) {
	t := &model.Trigger{
		Type:        typ,
		Entity:      ref,
		TriggerDate: triggerDate.UTC(),
		Priority:    priority,
		Status:      model.TriggerPending,
	}

	err := s.storage.InsertTrigger(ctx, t)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, storage.ErrConflict) {
		return nil, fmt.Errorf("create trigger: %w", err)
	}

	existing, err := s.storage.GetOpenTrigger(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("find open trigger: %w", err)
	}
	if err := s.storage.EscalateTrigger(ctx, existing.ID, priority, triggerDate.UTC(), s.now().UTC()); err != nil {
		return nil, fmt.Errorf("escalate trigger: %w", err)
	}
	return s.storage.GetTrigger(ctx, existing.ID)
}

// Activate moves a pending trigger to active. Activating an active trigger
// is a no-op; a terminal trigger returns ErrInvalidTransition.
func (s *Store) Activate(ctx context.Context, id string) error {
	err := s.storage.TransitionTrigger(ctx, id, []model.TriggerStatus{model.TriggerPending}, model.TriggerActive, s.now().UTC())
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("activate trigger: %w", err)
	}

	current, getErr := s.storage.GetTrigger(ctx, id)
	if getErr != nil {
		return fmt.Errorf("activate trigger: %w", getErr)
	}
	if current.Status == model.TriggerActive {
		return nil
	}
	return fmt.Errorf("activate trigger %q from %s: %w", id, current.Status, ErrInvalidTransition)
}

// Dismiss closes an open trigger without action.
func (s *Store) Dismiss(ctx context.Context, id string) error {
	return s.close(ctx, id, model.TriggerDismissed)
}

// Actioned closes an open trigger as handled.
func (s *Store) Actioned(ctx context.Context, id string) error {
	return s.close(ctx, id, model.TriggerActioned)
}

func (s *Store) close(ctx context.Context, id string, to model.TriggerStatus) error {
	err := s.storage.TransitionTrigger(ctx, id, openStatuses, to, s.now().UTC())
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("mark trigger %q %s: %w", id, to, ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("mark trigger %s: %w", to, err)
	}
	return nil
}

// Get returns a trigger by ID.
func (s *Store) Get(ctx context.Context, id string) (*model.Trigger, error) {
	return s.storage.GetTrigger(ctx, id)
}

// List returns triggers matching filter, most urgent first.
func (s *Store) List(ctx context.Context, filter model.TriggerFilter) ([]model.Trigger, error) {
	triggers, err := s.storage.ListTriggers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return triggers, nil
}

// OpenTriggers returns every pending or active trigger.
func (s *Store) OpenTriggers(ctx context.Context) ([]model.Trigger, error) {
	return s.List(ctx, model.TriggerFilter{OpenOnly: true})
}
