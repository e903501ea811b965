package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: entities, alert ledger, triggers, assignments
	`CREATE TABLE IF NOT EXISTS leases (
		id           TEXT PRIMARY KEY,
		property_id  TEXT NOT NULL DEFAULT '',
		tenant       TEXT NOT NULL DEFAULT '',
		start_date   DATETIME,
		end_date     DATETIME,
		status       TEXT NOT NULL CHECK(status IN ('active', 'expired', 'terminated', 'pending')),
		monthly_rent TEXT NOT NULL DEFAULT '0',
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_leases_status ON leases(status);

	CREATE TABLE IF NOT EXISTS debts (
		id            TEXT PRIMARY KEY,
		property_id   TEXT NOT NULL DEFAULT '',
		lender        TEXT NOT NULL DEFAULT '',
		amount        TEXT NOT NULL DEFAULT '0',
		interest_rate TEXT NOT NULL DEFAULT '0',
		maturity_date DATETIME,
		status        TEXT NOT NULL CHECK(status IN ('active', 'paid_off', 'refinanced')),
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_debts_status ON debts(status);

	CREATE TABLE IF NOT EXISTS alert_ledger (
		id              TEXT PRIMARY KEY,
		entity_kind     TEXT NOT NULL CHECK(entity_kind IN ('lease', 'debt')),
		entity_id       TEXT NOT NULL,
		alert_type      TEXT NOT NULL CHECK(alert_type IN ('90day', '60day', '30day', '7day')),
		sent_at         DATETIME NOT NULL,
		sent_to         TEXT NOT NULL,
		acknowledged    INTEGER NOT NULL DEFAULT 0 CHECK(acknowledged IN (0, 1)),
		acknowledged_at DATETIME,
		UNIQUE(entity_id, alert_type)
	);

	CREATE INDEX IF NOT EXISTS idx_alert_ledger_sent_to ON alert_ledger(sent_to);

	CREATE TRIGGER IF NOT EXISTS alert_ledger_no_delete
	BEFORE DELETE ON alert_ledger
	BEGIN
		SELECT RAISE(ABORT, 'alert ledger is append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS alert_ledger_immutable
	BEFORE UPDATE OF id, entity_kind, entity_id, alert_type, sent_at, sent_to ON alert_ledger
	BEGIN
		SELECT RAISE(ABORT, 'alert ledger entries are immutable');
	END;

	CREATE TABLE IF NOT EXISTS triggers (
		id           TEXT PRIMARY KEY,
		type         TEXT NOT NULL CHECK(type IN ('lease_expiration', 'debt_maturity', 'property_alert', 'deal_alert', 'custom')),
		entity_kind  TEXT NOT NULL CHECK(entity_kind IN ('lease', 'debt')),
		entity_id    TEXT NOT NULL,
		trigger_date DATETIME NOT NULL,
		priority     TEXT NOT NULL CHECK(priority IN ('low', 'medium', 'high', 'critical')),
		status       TEXT NOT NULL CHECK(status IN ('pending', 'active', 'dismissed', 'actioned')),
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		resolved_at  DATETIME
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_triggers_open_entity
		ON triggers(entity_kind, entity_id) WHERE status IN ('pending', 'active');
	CREATE INDEX IF NOT EXISTS idx_triggers_status ON triggers(status);

	CREATE TABLE IF NOT EXISTS assignments (
		entity_kind TEXT NOT NULL CHECK(entity_kind IN ('lease', 'debt')),
		entity_id   TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		role        TEXT NOT NULL CHECK(role IN ('owner', 'agent')),
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (entity_kind, entity_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,

	// Migration 2: delivery log and sweep history
	`CREATE TABLE IF NOT EXISTS notifications (
		id              TEXT PRIMARY KEY,
		ledger_entry_id TEXT NOT NULL REFERENCES alert_ledger(id),
		trigger_id      TEXT NOT NULL DEFAULT '',
		recipient       TEXT NOT NULL,
		channel         TEXT NOT NULL,
		priority        TEXT NOT NULL,
		status          TEXT NOT NULL CHECK(status IN ('sent', 'failed')),
		error           TEXT NOT NULL DEFAULT '',
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status);
	CREATE INDEX IF NOT EXISTS idx_notifications_ledger ON notifications(ledger_entry_id);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		id                     TEXT PRIMARY KEY,
		started_at             DATETIME NOT NULL,
		finished_at            DATETIME NOT NULL,
		scanned                INTEGER NOT NULL DEFAULT 0,
		processed              INTEGER NOT NULL DEFAULT 0,
		skipped                INTEGER NOT NULL DEFAULT 0,
		failed                 INTEGER NOT NULL DEFAULT 0,
		alerts_recorded        INTEGER NOT NULL DEFAULT 0,
		conflicts              INTEGER NOT NULL DEFAULT 0,
		notifications_sent     INTEGER NOT NULL DEFAULT 0,
		notifications_failed   INTEGER NOT NULL DEFAULT 0,
		triggers_auto_actioned INTEGER NOT NULL DEFAULT 0,
		errors                 TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_started ON sweep_runs(started_at);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
