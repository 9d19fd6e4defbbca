// Package drivedb persists the control loop's per-tick actuation decisions
// to a local sqlite database for later inspection.
package drivedb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/omnibase/internal/messaging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sqlite handle holding actuation history.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp applies all pending migrations from the embedded source.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// ActuationRecord is one row of actuation history.
type ActuationRecord struct {
	ID         string
	Actuation  messaging.BaseActuation
	Health     messaging.Health
	RecordedAt time.Time
}

// RecordActuation appends one tick's actuation decision.
func (db *DB) RecordActuation(act messaging.BaseActuation, health messaging.Health) error {
	_, err := db.Exec(
		`INSERT INTO actuations (id, x_vel, y_vel, theta_vel, health, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), act.XVel, act.YVel, act.ThetaVel, string(health),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record actuation: %w", err)
	}
	return nil
}

// RecentActuations returns up to limit rows, newest first.
func (db *DB) RecentActuations(limit int) ([]ActuationRecord, error) {
	rows, err := db.Query(
		`SELECT id, x_vel, y_vel, theta_vel, health, recorded_at
		 FROM actuations ORDER BY recorded_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query actuations: %w", err)
	}
	defer rows.Close()

	var records []ActuationRecord
	for rows.Next() {
		var r ActuationRecord
		var health string
		if err := rows.Scan(&r.ID, &r.Actuation.XVel, &r.Actuation.YVel,
			&r.Actuation.ThetaVel, &health, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan actuation row: %w", err)
		}
		r.Health = messaging.Health(health)
		records = append(records, r)
	}
	return records, rows.Err()
}
