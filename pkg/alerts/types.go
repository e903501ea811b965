package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

// Alert is one threshold notification for one recipient.
type Alert struct {
	LedgerEntryID string          `json:"ledger_entry_id"`
	TriggerID     string          `json:"trigger_id,omitempty"`
	Entity        model.EntityRef `json:"entity"`
	EntityLabel   string          `json:"entity_label,omitempty"`
	AlertType     model.Threshold `json:"alert_type"`
	Priority      model.Priority  `json:"priority"`
	TargetDate    time.Time       `json:"target_date"`
	DaysRemaining int             `json:"days_remaining"`
	Recipient     string          `json:"recipient"`
	Message       string          `json:"message"`
}

// Title is a one-line summary of the alert.
func (a Alert) Title() string {
	what := "Lease expiring"
	if a.Entity.Kind == model.KindDebt {
		what = "Debt maturing"
	}
	return fmt.Sprintf("%s in %d days", what, a.DaysRemaining)
}

// DefaultMessage builds the human-readable message used when Message is empty.
func (a Alert) DefaultMessage() string {
	name := a.EntityLabel
	if name == "" {
		name = a.Entity.ID
	}
	verb := "expires"
	if a.Entity.Kind == model.KindDebt {
		verb = "matures"
	}
	return fmt.Sprintf("%s %q %s on %s (%d days, %s notice)",
		a.Entity.Kind, name, verb, a.TargetDate.Format("2006-01-02"), a.DaysRemaining, a.AlertType)
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}

// Emitter delivers an alert to its recipient through every configured channel.
type Emitter interface {
	Emit(ctx context.Context, alert Alert) error
}
