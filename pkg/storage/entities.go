package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

const leaseColumns = `id, property_id, tenant, start_date, end_date, status, monthly_rent, created_at, updated_at`

const debtColumns = `id, property_id, lender, amount, interest_rate, maturity_date, status, created_at, updated_at`

func (s *SQLite) UpsertLease(ctx context.Context, lease *model.Lease) error {
	if lease.ID == "" {
		lease.ID = uuid.New().String()
	}
	if lease.Status == "" {
		lease.Status = model.LeaseActive
	}
	now := time.Now().UTC()
	if lease.CreatedAt.IsZero() {
		lease.CreatedAt = now
	}
	lease.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO leases (`+leaseColumns+`)
		 VALUES (:id, :property_id, :tenant, :start_date, :end_date, :status, :monthly_rent, :created_at, :updated_at)
		 ON CONFLICT(id) DO UPDATE SET
		   property_id = excluded.property_id,
		   tenant = excluded.tenant,
		   start_date = excluded.start_date,
		   end_date = excluded.end_date,
		   status = excluded.status,
		   monthly_rent = excluded.monthly_rent,
		   updated_at = excluded.updated_at`,
		lease,
	)
	if err != nil {
		return fmt.Errorf("upsert lease: %w", err)
	}
	return nil
}

func (s *SQLite) UpsertDebt(ctx context.Context, debt *model.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.Status == "" {
		debt.Status = model.DebtActive
	}
	now := time.Now().UTC()
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = now
	}
	debt.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`)
		 VALUES (:id, :property_id, :lender, :amount, :interest_rate, :maturity_date, :status, :created_at, :updated_at)
		 ON CONFLICT(id) DO UPDATE SET
		   property_id = excluded.property_id,
		   lender = excluded.lender,
		   amount = excluded.amount,
		   interest_rate = excluded.interest_rate,
		   maturity_date = excluded.maturity_date,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		debt,
	)
	if err != nil {
		return fmt.Errorf("upsert debt: %w", err)
	}
	return nil
}

func (s *SQLite) GetLease(ctx context.Context, id string) (*model.Lease, error) {
	var l model.Lease
	err := s.db.GetContext(ctx, &l, `SELECT `+leaseColumns+` FROM leases WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lease %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lease: %w", err)
	}
	return &l, nil
}

func (s *SQLite) GetDebt(ctx context.Context, id string) (*model.Debt, error) {
	var d model.Debt
	err := s.db.GetContext(ctx, &d, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("debt %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get debt: %w", err)
	}
	return &d, nil
}

func (s *SQLite) ListLeases(ctx context.Context) ([]model.Lease, error) {
	var leases []model.Lease
	if err := s.db.SelectContext(ctx, &leases, `SELECT `+leaseColumns+` FROM leases ORDER BY end_date`); err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	return leases, nil
}

func (s *SQLite) ListDebts(ctx context.Context) ([]model.Debt, error) {
	var debts []model.Debt
	if err := s.db.SelectContext(ctx, &debts, `SELECT `+debtColumns+` FROM debts ORDER BY maturity_date`); err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return debts, nil
}

// monitoredRow is one active lease or debt with its target date.
type monitoredRow struct {
	ID         string    `db:"id"`
	Label      string    `db:"label"`
	Status     string    `db:"status"`
	TargetDate time.Time `db:"target_date"`
}

func (s *SQLite) ListMonitored(ctx context.Context) ([]model.MonitoredEntity, error) {
	// Two queries rather than a UNION: the driver only converts DATETIME
	// columns it can trace back to a declared column type.
	var leases []monitoredRow
	err := s.db.SelectContext(ctx, &leases,
		`SELECT id, tenant AS label, status, end_date AS target_date
		 FROM leases WHERE status = ? AND end_date IS NOT NULL`, string(model.LeaseActive))
	if err != nil {
		return nil, fmt.Errorf("list monitored leases: %w", err)
	}

	var debts []monitoredRow
	err = s.db.SelectContext(ctx, &debts,
		`SELECT id, lender AS label, status, maturity_date AS target_date
		 FROM debts WHERE status = ? AND maturity_date IS NOT NULL`, string(model.DebtActive))
	if err != nil {
		return nil, fmt.Errorf("list monitored debts: %w", err)
	}

	entities := make([]model.MonitoredEntity, 0, len(leases)+len(debts))
	for _, r := range leases {
		entities = append(entities, r.toModel(model.KindLease))
	}
	for _, r := range debts {
		entities = append(entities, r.toModel(model.KindDebt))
	}
	return entities, nil
}

func (r monitoredRow) toModel(kind model.EntityKind) model.MonitoredEntity {
	return model.MonitoredEntity{
		Ref:        model.EntityRef{Kind: kind, ID: r.ID},
		Label:      r.Label,
		Status:     r.Status,
		TargetDate: r.TargetDate,
	}
}
