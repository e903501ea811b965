// Package portfolio loads leases, debts and recipient assignments from YAML
// files into storage.
package portfolio

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

// DateLayout is the date format used in portfolio files.
const DateLayout = "2006-01-02"

// Document is the on-disk portfolio format.
type Document struct {
	Leases      []LeaseRecord      `yaml:"leases"`
	Debts       []DebtRecord       `yaml:"debts"`
	Assignments []AssignmentRecord `yaml:"assignments"`
}

// LeaseRecord is a lease as written in a portfolio file.
type LeaseRecord struct {
	ID          string `yaml:"id"`
	PropertyID  string `yaml:"property_id"`
	Tenant      string `yaml:"tenant"`
	StartDate   string `yaml:"start_date"`
	EndDate     string `yaml:"end_date"`
	Status      string `yaml:"status"`
	MonthlyRent string `yaml:"monthly_rent"`
}

// DebtRecord is a debt as written in a portfolio file.
type DebtRecord struct {
	ID           string `yaml:"id"`
	PropertyID   string `yaml:"property_id"`
	Lender       string `yaml:"lender"`
	Amount       string `yaml:"amount"`
	InterestRate string `yaml:"interest_rate"`
	MaturityDate string `yaml:"maturity_date"`
	Status       string `yaml:"status"`
}

// AssignmentRecord names a user responsible for an entity.
type AssignmentRecord struct {
	EntityKind string `yaml:"entity_kind"`
	EntityID   string `yaml:"entity_id"`
	UserID     string `yaml:"user_id"`
	Role       string `yaml:"role"`
}

// Load reads a portfolio file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portfolio file %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("portfolio file %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes portfolio YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse portfolio: %w", err)
	}
	if len(doc.Leases) == 0 && len(doc.Debts) == 0 && len(doc.Assignments) == 0 {
		return nil, fmt.Errorf("portfolio is empty")
	}
	return &doc, nil
}

// Lease converts the record to a model lease.
func (r LeaseRecord) Lease() (*model.Lease, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("lease: missing id")
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("lease %s start_date: %w", r.ID, err)
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("lease %s end_date: %w", r.ID, err)
	}
	rent, err := parseDecimal(r.MonthlyRent)
	if err != nil {
		return nil, fmt.Errorf("lease %s monthly_rent: %w", r.ID, err)
	}

	status := model.LeaseStatus(r.Status)
	switch status {
	case "":
		status = model.LeaseActive
	case model.LeaseActive, model.LeaseExpired, model.LeaseTerminated, model.LeasePending:
	default:
		return nil, fmt.Errorf("lease %s: unknown status %q", r.ID, r.Status)
	}

	return &model.Lease{
		ID:          r.ID,
		PropertyID:  r.PropertyID,
		Tenant:      r.Tenant,
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		MonthlyRent: rent,
	}, nil
}

// Debt converts the record to a model debt.
func (r DebtRecord) Debt() (*model.Debt, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("debt: missing id")
	}
	maturity, err := parseDate(r.MaturityDate)
	if err != nil {
		return nil, fmt.Errorf("debt %s maturity_date: %w", r.ID, err)
	}
	amount, err := parseDecimal(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("debt %s amount: %w", r.ID, err)
	}
	rate, err := parseDecimal(r.InterestRate)
	if err != nil {
		return nil, fmt.Errorf("debt %s interest_rate: %w", r.ID, err)
	}

	status := model.DebtStatus(r.Status)
	switch status {
	case "":
		status = model.DebtActive
	case model.DebtActive, model.DebtPaidOff, model.DebtRefinanced:
	default:
		return nil, fmt.Errorf("debt %s: unknown status %q", r.ID, r.Status)
	}

	return &model.Debt{
		ID:           r.ID,
		PropertyID:   r.PropertyID,
		Lender:       r.Lender,
		Amount:       amount,
		InterestRate: rate,
		MaturityDate: maturity,
		Status:       status,
	}, nil
}

// Assignment converts the record to a model assignment.
func (r AssignmentRecord) Assignment() (*model.Assignment, error) {
	kind := model.EntityKind(r.EntityKind)
	if !kind.Valid() {
		return nil, fmt.Errorf("assignment: unknown entity kind %q", r.EntityKind)
	}
	if r.EntityID == "" || r.UserID == "" {
		return nil, fmt.Errorf("assignment: entity_id and user_id are required")
	}

	role := model.AssignmentRole(r.Role)
	switch role {
	case "":
		role = model.RoleOwner
	case model.RoleOwner, model.RoleAgent:
	default:
		return nil, fmt.Errorf("assignment %s/%s: unknown role %q", r.EntityID, r.UserID, r.Role)
	}

	return &model.Assignment{
		Entity: model.EntityRef{Kind: kind, ID: r.EntityID},
		UserID: r.UserID,
		Role:   role,
	}, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Writer is the slice of storage an import needs.
type Writer interface {
	UpsertLease(ctx context.Context, lease *model.Lease) error
	UpsertDebt(ctx context.Context, debt *model.Debt) error
	SetAssignment(ctx context.Context, a *model.Assignment) error
}

// Result counts what an import wrote.
type Result struct {
	Leases      int `json:"leases"`
	Debts       int `json:"debts"`
	Assignments int `json:"assignments"`
}

// Import validates every record in doc and then writes them. Nothing is
// written if any record is invalid. Existing records with the same ID are
// replaced.
func Import(ctx context.Context, w Writer, doc *Document) (Result, error) {
	leases := make([]*model.Lease, 0, len(doc.Leases))
	for _, r := range doc.Leases {
		l, err := r.Lease()
		if err != nil {
			return Result{}, err
		}
		leases = append(leases, l)
	}
	debts := make([]*model.Debt, 0, len(doc.Debts))
	for _, r := range doc.Debts {
		d, err := r.Debt()
		if err != nil {
			return Result{}, err
		}
		debts = append(debts, d)
	}
	assignments := make([]*model.Assignment, 0, len(doc.Assignments))
	for _, r := range doc.Assignments {
		a, err := r.Assignment()
		if err != nil {
			return Result{}, err
		}
		assignments = append(assignments, a)
	}

	var res Result
	for _, l := range leases {
		if err := w.UpsertLease(ctx, l); err != nil {
			return res, fmt.Errorf("import lease %s: %w", l.ID, err)
		}
		res.Leases++
	}
	for _, d := range debts {
		if err := w.UpsertDebt(ctx, d); err != nil {
			return res, fmt.Errorf("import debt %s: %w", d.ID, err)
		}
		res.Debts++
	}
	for _, a := range assignments {
		if err := w.SetAssignment(ctx, a); err != nil {
			return res, fmt.Errorf("import assignment %s/%s: %w", a.Entity.ID, a.UserID, err)
		}
		res.Assignments++
	}
	return res, nil
}
