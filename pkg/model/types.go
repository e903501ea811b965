package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityKind identifies which kind of obligation an entity is.
type EntityKind string

const (
	KindLease EntityKind = "lease"
	KindDebt  EntityKind = "debt"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindLease || k == KindDebt
}

// EntityRef points at exactly one monitored entity. It replaces a pair of
// nullable lease/debt columns: a reference always names one kind and one ID.
type EntityRef struct {
	Kind EntityKind `json:"entity_kind" db:"entity_kind"`
	ID   string     `json:"entity_id" db:"entity_id"`
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeaseExpired    LeaseStatus = "expired"
	LeaseTerminated LeaseStatus = "terminated"
	LeasePending    LeaseStatus = "pending"
)

// Lease is a tenancy with an end date.
type Lease struct {
	ID          string          `json:"id" db:"id"`
	PropertyID  string          `json:"property_id" db:"property_id"`
	Tenant      string          `json:"tenant" db:"tenant"`
	StartDate   *time.Time      `json:"start_date,omitempty" db:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty" db:"end_date"`
	Status      LeaseStatus     `json:"status" db:"status"`
	MonthlyRent decimal.Decimal `json:"monthly_rent" db:"monthly_rent"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// DebtStatus is the lifecycle state of a debt.
type DebtStatus string

const (
	DebtActive     DebtStatus = "active"
	DebtPaidOff    DebtStatus = "paid_off"
	DebtRefinanced DebtStatus = "refinanced"
)

// Debt is a loan secured against a property with a maturity date.
type Debt struct {
	ID           string          `json:"id" db:"id"`
	PropertyID   string          `json:"property_id" db:"property_id"`
	Lender       string          `json:"lender" db:"lender"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	MaturityDate *time.Time      `json:"maturity_date,omitempty" db:"maturity_date"`
	Status       DebtStatus      `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// MonitoredEntity is the projection of a lease or debt the scanner works on.
type MonitoredEntity struct {
	Ref        EntityRef `json:"ref"`
	Label      string    `json:"label"`
	Status     string    `json:"status"`
	TargetDate time.Time `json:"target_date"`
}

// Threshold is one of the fixed warning distances before a target date.
type Threshold string

const (
	Threshold90 Threshold = "90day"
	Threshold60 Threshold = "60day"
	Threshold30 Threshold = "30day"
	Threshold7  Threshold = "7day"
)

// Thresholds lists every threshold in descending window order.
var Thresholds = []Threshold{Threshold90, Threshold60, Threshold30, Threshold7}

// Window returns the threshold size in days, or 0 for an unknown threshold.
func (t Threshold) Window() int {
	switch t {
	case Threshold90:
		return 90
	case Threshold60:
		return 60
	case Threshold30:
		return 30
	case Threshold7:
		return 7
	default:
		return 0
	}
}

// AlertLedgerEntry proves that one threshold alert was issued for one entity.
// Only the acknowledgement fields change after creation.
type AlertLedgerEntry struct {
	ID             string     `json:"id" db:"id"`
	Entity         EntityRef  `json:"entity" db:"-"`
	AlertType      Threshold  `json:"alert_type" db:"alert_type"`
	SentAt         time.Time  `json:"sent_at" db:"sent_at"`
	SentTo         string     `json:"sent_to" db:"sent_to"`
	Acknowledged   bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
}

// TriggerType classifies the concern a trigger tracks.
type TriggerType string

const (
	TriggerLeaseExpiration TriggerType = "lease_expiration"
	TriggerDebtMaturity    TriggerType = "debt_maturity"
	TriggerPropertyAlert   TriggerType = "property_alert"
	TriggerDealAlert       TriggerType = "deal_alert"
	TriggerCustom          TriggerType = "custom"
)

// TriggerTypeFor returns the trigger type raised for an entity kind.
func TriggerTypeFor(kind EntityKind) TriggerType {
	if kind == KindDebt {
		return TriggerDebtMaturity
	}
	return TriggerLeaseExpiration
}

// Priority is the urgency of a trigger.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from low (0) to critical (3).
func (p Priority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return 0
	}
}

// TriggerStatus is the lifecycle state of a trigger.
type TriggerStatus string

const (
	TriggerPending   TriggerStatus = "pending"
	TriggerActive    TriggerStatus = "active"
	TriggerDismissed TriggerStatus = "dismissed"
	TriggerActioned  TriggerStatus = "actioned"
)

// Terminal reports whether no further transition is allowed from s.
func (s TriggerStatus) Terminal() bool {
	return s == TriggerDismissed || s == TriggerActioned
}

// Trigger is the "this needs attention" concern for one entity event.
type Trigger struct {
	ID          string        `json:"id" db:"id"`
	Type        TriggerType   `json:"type" db:"type"`
	Entity      EntityRef     `json:"entity" db:"-"`
	TriggerDate time.Time     `json:"trigger_date" db:"trigger_date"`
	Priority    Priority      `json:"priority" db:"priority"`
	Status      TriggerStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AssignmentRole describes why a user is responsible for an entity.
type AssignmentRole string

const (
	RoleOwner AssignmentRole = "owner"
	RoleAgent AssignmentRole = "agent"
)

// Assignment maps an entity to a responsible user.
type Assignment struct {
	Entity    EntityRef      `json:"entity" db:"-"`
	UserID    string         `json:"user_id" db:"user_id"`
	Role      AssignmentRole `json:"role" db:"role"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NotificationStatus records whether a notification reached its channels.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Notification is the delivery record for one alert to one recipient.
type Notification struct {
	ID            string             `json:"id" db:"id"`
	LedgerEntryID string             `json:"ledger_entry_id" db:"ledger_entry_id"`
	TriggerID     string             `json:"trigger_id" db:"trigger_id"`
	Recipient     string             `json:"recipient" db:"recipient"`
	Channel       string             `json:"channel" db:"channel"`
	Priority      Priority           `json:"priority" db:"priority"`
	Status        NotificationStatus `json:"status" db:"status"`
	Error         string             `json:"error,omitempty" db:"error"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

// EntityError describes a failure while processing one entity in a sweep.
type EntityError struct {
	Entity EntityRef `json:"entity"`
	Stage  string    `json:"stage"`
	Err    string    `json:"error"`
}

// SweepSummary is the outcome of one scan pass.
type SweepSummary struct {
	ID                   string        `json:"id" db:"id"`
	StartedAt            time.Time     `json:"started_at" db:"started_at"`
	FinishedAt           time.Time     `json:"finished_at" db:"finished_at"`
	Scanned              int           `json:"scanned" db:"scanned"`
	Processed            int           `json:"processed" db:"processed"`
	Skipped              int           `json:"skipped" db:"skipped"`
	Failed               int           `json:"failed" db:"failed"`
	AlertsRecorded       int           `json:"alerts_recorded" db:"alerts_recorded"`
	Conflicts            int           `json:"conflicts" db:"conflicts"`
	NotificationsSent    int           `json:"notifications_sent" db:"notifications_sent"`
	NotificationsFailed  int           `json:"notifications_failed" db:"notifications_failed"`
	TriggersAutoActioned int           `json:"triggers_auto_actioned" db:"triggers_auto_actioned"`
	Errors               []EntityError `json:"errors,omitempty" db:"-"`
}

// Duration returns how long the sweep took.
func (s *SweepSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// AlertFilter controls which ledger entries are listed.
type AlertFilter struct {
	EntityID       string    `json:"entity_id,omitempty"`
	AlertType      Threshold `json:"alert_type,omitempty"`
	Unacknowledged bool      `json:"unacknowledged,omitempty"`
	SentTo         string    `json:"sent_to,omitempty"`
}

// TriggerFilter controls which triggers are listed.
type TriggerFilter struct {
	Status   TriggerStatus `json:"status,omitempty"`
	Priority Priority      `json:"priority,omitempty"`
	EntityID string        `json:"entity_id,omitempty"`
	OpenOnly bool          `json:"open_only,omitempty"`
}
