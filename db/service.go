package db

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaFile is the baseline migration; it doubles as the idempotent schema.
const schemaFile = "migrations/000001_init.up.sql"

// RequiredTables are the base tables every catalog database must contain.
var RequiredTables = []string{
	"constellations",
	"query_history",
	"downloads",
	"images",
	"detections",
	"ais",
	"objects",
	"generated_views",
}

// Service represents the database service with connection management
type Service struct {
	DB     *sql.DB
	DBPath string

	log *slog.Logger
}

// Config holds database configuration
type Config struct {
	DBPath         string
	MaxOpenConns   int
	MaxIdleConns   int
	BusyTimeoutMS  int
	AutoInitialize bool // Create missing tables on open
	Logger         *slog.Logger
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		DBPath:         "./data/downloads.db",
		MaxOpenConns:   1, // SQLite serializes writers at the file level
		MaxIdleConns:   1,
		BusyTimeoutMS:  5000,
		AutoInitialize: true,
	}
}

// New creates a new database service instance
func New(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	service := &Service{
		DBPath: config.DBPath,
		log:    log,
	}

	dbExists := fileExists(config.DBPath)

	if err := os.MkdirAll(filepath.Dir(config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(0)

	service.DB = db

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.AutoInitialize {
		if !dbExists {
			log.Info("database not found, initializing schema", "path", config.DBPath)
		}
		if err := service.InitializeSchema(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Info("database service initialized", "path", config.DBPath)
	return service, nil
}

func dsn(config *Config) string {
	busy := config.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d&_journal_mode=WAL", config.DBPath, busy)
}

// InitializeSchema creates any missing tables and indexes. Existing tables are
// left untouched; column changes need MigrateUp.
func (s *Service) InitializeSchema() error {
	schemaSQL, err := migrationsFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := s.DB.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// VerifySchema checks if the database schema is properly initialized
func (s *Service) VerifySchema() error {
	for _, table := range RequiredTables {
		var exists int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := s.DB.QueryRow(query, table).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if exists == 0 {
			return fmt.Errorf("required table missing: %s", table)
		}
	}

	s.log.Debug("schema verification successful", "tables", len(RequiredTables))
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.DB != nil {
		s.log.Debug("closing database connection", "path", s.DBPath)
		return s.DB.Close()
	}
	return nil
}

// Transaction executes fn within a database transaction. The transaction is
// committed when fn returns nil and rolled back when it returns an error or
// panics; the panic is re-raised after rollback.
func (s *Service) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Health checks the database connection health
func (s *Service) Health() error {
	if s.DB == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.DB.Ping()
}

// GetStats returns database connection statistics
func (s *Service) GetStats() sql.DBStats {
	return s.DB.Stats()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
