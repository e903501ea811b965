package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

// triggerRow is the flat column layout of triggers.
type triggerRow struct {
	ID          string     `db:"id"`
	Type        string     `db:"type"`
	EntityKind  string     `db:"entity_kind"`
	EntityID    string     `db:"entity_id"`
	TriggerDate time.Time  `db:"trigger_date"`
	Priority    string     `db:"priority"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	ResolvedAt  *time.Time `db:"resolved_at"`
}

const triggerColumns = `id, type, entity_kind, entity_id, trigger_date, priority, status, created_at, updated_at, resolved_at`

// priorityRank mirrors model.Priority.Rank for use inside SQL.
const priorityRank = `CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END`

func (r triggerRow) toModel() model.Trigger {
	return model.Trigger{
		ID:          r.ID,
		Type:        model.TriggerType(r.Type),
		Entity:      model.EntityRef{Kind: model.EntityKind(r.EntityKind), ID: r.EntityID},
		TriggerDate: r.TriggerDate,
		Priority:    model.Priority(r.Priority),
		Status:      model.TriggerStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func (s *SQLite) InsertTrigger(ctx context.Context, t *model.Trigger) error {
	if !t.Entity.Kind.Valid() || t.Entity.ID == "" {
		return fmt.Errorf("insert trigger: invalid entity reference %q", t.Entity.String())
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.TriggerPending
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (id, type, entity_kind, entity_id, trigger_date, priority, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		t.ID, string(t.Type), string(t.Entity.Kind), t.Entity.ID, t.TriggerDate,
		string(t.Priority), string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("open trigger for %s: %w", t.Entity.String(), ErrConflict)
	}
	return nil
}

func (s *SQLite) GetTrigger(ctx context.Context, id string) (*model.Trigger, error) {
	var r triggerRow
	err := s.db.GetContext(ctx, &r, `SELECT `+triggerColumns+` FROM triggers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trigger %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trigger: %w", err)
	}
	t := r.toModel()
	return &t, nil
}

func (s *SQLite) GetOpenTrigger(ctx context.Context, ref model.EntityRef) (*model.Trigger, error) {
	var r triggerRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+triggerColumns+` FROM triggers
		 WHERE entity_kind = ? AND entity_id = ? AND status IN ('pending', 'active')`,
		string(ref.Kind), ref.ID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open trigger for %s: %w", ref.String(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get open trigger: %w", err)
	}
	t := r.toModel()
	return &t, nil
}

func (s *SQLite) EscalateTrigger(ctx context.Context, id string, priority model.Priority, triggerDate, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE triggers SET
		   priority = CASE WHEN `+priorityRank+` < ? THEN ? ELSE priority END,
		   trigger_date = ?,
		   updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'active')`,
		priority.Rank(), string(priority), triggerDate, at, id,
	)
	if err != nil {
		return fmt.Errorf("escalate trigger: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	return checkAffected(rows, "open trigger", id)
}

func (s *SQLite) TransitionTrigger(ctx context.Context, id string, from []model.TriggerStatus, to model.TriggerStatus, at time.Time) error {
	if len(from) == 0 {
		return fmt.Errorf("transition trigger: no source statuses")
	}

	placeholders := make([]string, len(from))
	args := []any{string(to), at}
	var resolvedAt *time.Time
	if to.Terminal() {
		resolvedAt = &at
	}
	args = append(args, resolvedAt, id)
	for i, st := range from {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE triggers SET status = ?, updated_at = ?, resolved_at = COALESCE(?, resolved_at)
		 WHERE id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("transition trigger: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	current, err := s.GetTrigger(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("trigger %q is %s: %w", id, current.Status, ErrConflict)
}

func (s *SQLite) ListTriggers(ctx context.Context, filter model.TriggerFilter) ([]model.Trigger, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.OpenOnly {
		conditions = append(conditions, "status IN ('pending', 'active')")
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	query := `SELECT ` + triggerColumns + ` FROM triggers` + whereClause(conditions) +
		` ORDER BY ` + priorityRank + ` DESC, trigger_date`

	var rows []triggerRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}

	triggers := make([]model.Trigger, 0, len(rows))
	for _, r := range rows {
		triggers = append(triggers, r.toModel())
	}
	return triggers, nil
}
