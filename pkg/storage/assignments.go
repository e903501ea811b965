package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

type assignmentRow struct {
	EntityKind string    `db:"entity_kind"`
	EntityID   string    `db:"entity_id"`
	UserID     string    `db:"user_id"`
	Role       string    `db:"role"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *SQLite) SetAssignment(ctx context.Context, a *model.Assignment) error {
	if !a.Entity.Kind.Valid() || a.Entity.ID == "" {
		return fmt.Errorf("set assignment: invalid entity reference %q", a.Entity.String())
	}
	if a.UserID == "" {
		return fmt.Errorf("set assignment: user id must not be empty")
	}
	if a.Role == "" {
		a.Role = model.RoleOwner
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (entity_kind, entity_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(entity_kind, entity_id, user_id) DO UPDATE SET role = excluded.role`,
		string(a.Entity.Kind), a.Entity.ID, a.UserID, string(a.Role), a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("set assignment: %w", err)
	}
	return nil
}

func (s *SQLite) RemoveAssignment(ctx context.Context, ref model.EntityRef, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM assignments WHERE entity_kind = ? AND entity_id = ? AND user_id = ?`,
		string(ref.Kind), ref.ID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	return checkAffected(rows, "assignment", userID)
}

func (s *SQLite) ListAssignments(ctx context.Context, ref model.EntityRef) ([]model.Assignment, error) {
	var rows []assignmentRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT entity_kind, entity_id, user_id, role, created_at FROM assignments
		 WHERE entity_kind = ? AND entity_id = ?
		 ORDER BY CASE role WHEN 'owner' THEN 0 ELSE 1 END, created_at, user_id`,
		string(ref.Kind), ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	assignments := make([]model.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, model.Assignment{
			Entity:    model.EntityRef{Kind: model.EntityKind(r.EntityKind), ID: r.EntityID},
			UserID:    r.UserID,
			Role:      model.AssignmentRole(r.Role),
			CreatedAt: r.CreatedAt,
		})
	}
	return assignments, nil
}
