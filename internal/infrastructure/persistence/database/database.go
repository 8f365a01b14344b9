// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/diagram-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	logger.Database().Info("Database connection established", "driverName", driverName, "duration", time.Since(start))
	return &DB{db}, nil
}

// Connect opens the configured database: Turso when TURSO_DATABASE_URL is
// set, the local sqlite file otherwise.
func Connect(logger *logging.ChanneledLogger) (*DB, error) {
	if config.TursoDatabaseURL != "" {
		connStr := fmt.Sprintf("%s?authToken=%s", config.TursoDatabaseURL, config.TursoAuthToken)
		return NewConnectionWithLogger("libsql", connStr, logger)
	}
	return NewConnectionWithLogger(config.DBDriver, config.DBPath, logger)
}

// TestTursoConnection tests the Turso database connection.
func TestTursoConnection(databaseURL, authToken string) error {
	connStr := fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)

	db, err := NewConnection("libsql", connStr)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("connection test query failed: %w", err)
	}

	return nil
}
