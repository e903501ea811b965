// Package recipients decides who is told about an entity's alerts.
package recipients

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/storage"
)

// ErrNoRecipient is returned when nobody is responsible for an entity.
var ErrNoRecipient = errors.New("no recipient")

// Resolver returns the users responsible for an entity, primary first.
type Resolver interface {
	Resolve(ctx context.Context, ref model.EntityRef) ([]string, error)
}

// AssignmentLister is the slice of storage the assignment resolver needs.
type AssignmentLister interface {
	ListAssignments(ctx context.Context, ref model.EntityRef) ([]model.Assignment, error)
}

var _ AssignmentLister = (storage.Storage)(nil)

// AssignmentResolver resolves recipients from stored assignments, owners
// before agents.
type AssignmentResolver struct {
	store AssignmentLister
}

// NewAssignmentResolver creates a resolver over stored assignments.
func NewAssignmentResolver(store AssignmentLister) *AssignmentResolver {
	return &AssignmentResolver{store: store}
}

func (r *AssignmentResolver) Resolve(ctx context.Context, ref model.EntityRef) ([]string, error) {
	assignments, err := r.store.ListAssignments(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(assignments) == 0 {
		return nil, fmt.Errorf("%s: %w", ref.String(), ErrNoRecipient)
	}

	users := make([]string, 0, len(assignments))
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		users = append(users, a.UserID)
	}
	return users, nil
}

// Static always resolves to a fixed list of users.
type Static []string

func (s Static) Resolve(_ context.Context, ref model.EntityRef) ([]string, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("%s: %w", ref.String(), ErrNoRecipient)
	}
	return append([]string(nil), s...), nil
}

// Chain tries each resolver in order and returns the first non-empty
// answer. Only ErrNoRecipient moves on to the next resolver.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, ref model.EntityRef) ([]string, error) {
	for _, r := range c {
		users, err := r.Resolve(ctx, ref)
		if errors.Is(err, ErrNoRecipient) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(users) > 0 {
			return users, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ref.String(), ErrNoRecipient)
}
