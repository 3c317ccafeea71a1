// Package health provides readiness checks for the directory's backing services.
package health

import (
	"context"
	"database/sql"
)

// DBChecker checks the profile store's Postgres connection.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{
		db: db,
	}
}

// Name identifies the dependency in readiness responses.
func (d *DBChecker) Name() string {
	return "database"
}

// HealthCheck pings the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
