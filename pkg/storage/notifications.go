package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/model"
)

const notificationColumns = `id, ledger_entry_id, trigger_id, recipient, channel, priority, status, error, created_at`

func (s *SQLite) RecordNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (:id, :ledger_entry_id, :trigger_id, :recipient, :channel, :priority, :status, :error, :created_at)`,
		n,
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (s *SQLite) ListNotifications(ctx context.Context, status model.NotificationStatus, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// sweepRow adds the JSON-encoded error list to a sweep summary.
type sweepRow struct {
	model.SweepSummary
	ErrorsJSON string `db:"errors"`
}

const sweepColumns = `id, started_at, finished_at, scanned, processed, skipped, failed, alerts_recorded,
	conflicts, notifications_sent, notifications_failed, triggers_auto_actioned, errors`

func (s *SQLite) RecordSweep(ctx context.Context, summary *model.SweepSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}

	errs := summary.Errors
	if errs == nil {
		errs = []model.EntityError{}
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("encode sweep errors: %w", err)
	}

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO sweep_runs (`+sweepColumns+`)
		 VALUES (:id, :started_at, :finished_at, :scanned, :processed, :skipped, :failed, :alerts_recorded,
		   :conflicts, :notifications_sent, :notifications_failed, :triggers_auto_actioned, :errors)`,
		sweepRow{SweepSummary: *summary, ErrorsJSON: string(encoded)},
	)
	if err != nil {
		return fmt.Errorf("record sweep: %w", err)
	}
	return nil
}

func (s *SQLite) ListSweeps(ctx context.Context, limit int) ([]model.SweepSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []sweepRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sweepColumns+` FROM sweep_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}

	sweeps := make([]model.SweepSummary, 0, len(rows))
	for _, r := range rows {
		summary := r.SweepSummary
		if r.ErrorsJSON != "" {
			if err := json.Unmarshal([]byte(r.ErrorsJSON), &summary.Errors); err != nil {
				return nil, fmt.Errorf("decode sweep errors: %w", err)
			}
		}
		sweeps = append(sweeps, summary)
	}
	return sweeps, nil
}
