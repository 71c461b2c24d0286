package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one versioned schema change loaded from a .sql file
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending schema migrations at startup. Applied versions
// are tracked in schema_migrations, so reruns are no-ops.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new Migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// RunMigrations applies every pending migration found under migrationsDir,
// in version order, each inside its own transaction.
func (m *Migrator) RunMigrations(migrationsDir string) error {
	if _, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return err
	}

	migrations, err := loadMigrations(migrationsDir)
	if err != nil {
		return err
	}

	pending := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		m.logger.Info("Applying migration",
			zap.Int("version", mig.Version), zap.String("name", mig.Name))
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		pending++
	}

	m.logger.Info("Migrations up to date",
		zap.String("dir", migrationsDir), zap.Int("applied", pending))
	return nil
}

func (m *Migrator) appliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(mig Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		mig.Version, mig.Name,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads the directory's .sql files, sorted by the numeric
// version prefix of the filename ("001_initial_schema.sql" -> 1).
func loadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration filename %q missing version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration filename %q: bad version: %w", name, err)
		}

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
