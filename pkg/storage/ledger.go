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

// ledgerRow is the flat column layout of alert_ledger.
type ledgerRow struct {
	ID             string     `db:"id"`
	EntityKind     string     `db:"entity_kind"`
	EntityID       string     `db:"entity_id"`
	AlertType      string     `db:"alert_type"`
	SentAt         time.Time  `db:"sent_at"`
	SentTo         string     `db:"sent_to"`
	Acknowledged   bool       `db:"acknowledged"`
	AcknowledgedAt *time.Time `db:"acknowledged_at"`
}

const ledgerColumns = `id, entity_kind, entity_id, alert_type, sent_at, sent_to, acknowledged, acknowledged_at`

func (r ledgerRow) toModel() model.AlertLedgerEntry {
	return model.AlertLedgerEntry{
		ID:             r.ID,
		Entity:         model.EntityRef{Kind: model.EntityKind(r.EntityKind), ID: r.EntityID},
		AlertType:      model.Threshold(r.AlertType),
		SentAt:         r.SentAt,
		SentTo:         r.SentTo,
		Acknowledged:   r.Acknowledged,
		AcknowledgedAt: r.AcknowledgedAt,
	}
}

func (s *SQLite) InsertAlert(ctx context.Context, entry *model.AlertLedgerEntry) error {
	if !entry.Entity.Kind.Valid() || entry.Entity.ID == "" {
		return fmt.Errorf("insert alert: invalid entity reference %q", entry.Entity.String())
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}

	// A single statement: the unique (entity_id, alert_type) index decides
	// the winner when two sweeps race, even across processes.
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_ledger (id, entity_kind, entity_id, alert_type, sent_at, sent_to, acknowledged)
		 VALUES (?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(entity_id, alert_type) DO NOTHING`,
		entry.ID, string(entry.Entity.Kind), entry.Entity.ID, string(entry.AlertType), entry.SentAt, entry.SentTo,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s for %s: %w", entry.AlertType, entry.Entity.ID, ErrConflict)
	}
	return nil
}

func (s *SQLite) GetAlert(ctx context.Context, id string) (*model.AlertLedgerEntry, error) {
	var r ledgerRow
	err := s.db.GetContext(ctx, &r, `SELECT `+ledgerColumns+` FROM alert_ledger WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	entry := r.toModel()
	return &entry, nil
}

func (s *SQLite) ListAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertLedgerEntry, error) {
	var conditions []string
	var args []any

	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.AlertType != "" {
		conditions = append(conditions, "alert_type = ?")
		args = append(args, string(filter.AlertType))
	}
	if filter.SentTo != "" {
		conditions = append(conditions, "sent_to = ?")
		args = append(args, filter.SentTo)
	}
	if filter.Unacknowledged {
		conditions = append(conditions, "acknowledged = 0")
	}

	query := `SELECT ` + ledgerColumns + ` FROM alert_ledger` + whereClause(conditions) + ` ORDER BY sent_at DESC`

	var rows []ledgerRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	entries := make([]model.AlertLedgerEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toModel())
	}
	return entries, nil
}

func (s *SQLite) AcknowledgeAlert(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alert_ledger SET acknowledged = 1, acknowledged_at = ?
		 WHERE id = ? AND acknowledged = 0`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Either already acknowledged (a no-op) or missing.
	var exists int
	err = s.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM alert_ledger WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	return checkAffected(int64(exists), "alert", id)
}
