// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	log "github.com/sirupsen/logrus"
)

// Dialect selects placeholder syntax for SQLStore.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

const listBatchSize = 100

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLStore keeps records in a two-column table (id, content).
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewSQLStore wraps an open database handle. The schema is not touched; call EnsureSchema.
func NewSQLStore(db *sql.DB, dialect Dialect, table string) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("database handle cannot be nil")
	}
	table = strings.TrimSpace(table)
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SQLStore{db: db, dialect: dialect, table: table}, nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path, table string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s, err := NewSQLStore(db, DialectSQLite, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("sqlite store initialized (db: %s, table: %s)", path, table)
	return s, nil
}

// OpenPostgres connects to Postgres through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn, table string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	s, err := NewSQLStore(db, DialectPostgres, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Infof("postgres store initialized (table: %s)", table)
	return s, nil
}

func (s *SQLStore) fullTableName() string {
	return s.table
}

func (s *SQLStore) ph(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) schemaQuery() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, content TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)", s.fullTableName())
}

func (s *SQLStore) getQuery() string {
	return fmt.Sprintf("SELECT content FROM %s WHERE id = %s", s.fullTableName(), s.ph(1))
}

func (s *SQLStore) upsertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (id, content, updated_at) VALUES (%s, %s, %s) ON CONFLICT (id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at",
		s.fullTableName(), s.ph(1), s.ph(2), s.ph(3))
}

func (s *SQLStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.fullTableName(), s.ph(1))
}

func (s *SQLStore) listFirstQuery() string {
	return fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE %s ESCAPE '\' ORDER BY id LIMIT %d`, s.fullTableName(), s.ph(1), listBatchSize)
}

func (s *SQLStore) listNextQuery() string {
	return fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE %s ESCAPE '\' AND id > %s ORDER BY id LIMIT %d`, s.fullTableName(), s.ph(1), s.ph(2), listBatchSize)
}

// EnsureSchema creates the backing table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schemaQuery()); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var content string
	err := s.db.QueryRowContext(ctx, s.getQuery(), key).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(content), nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.deleteQuery(), key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ListKeys pages through the table in id order, listBatchSize rows at a time.
func (s *SQLStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	pattern := likePrefix(prefix)
	keys := make([]string, 0)
	lastID := ""
	for {
		var rows *sql.Rows
		var err error
		if lastID == "" {
			rows, err = s.db.QueryContext(ctx, s.listFirstQuery(), pattern)
		} else {
			rows, err = s.db.QueryContext(ctx, s.listNextQuery(), pattern, lastID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}

		count := 0
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan key: %w", err)
			}
			keys = append(keys, id)
			lastID = id
			count++
		}
		errRows := rows.Err()
		rows.Close()
		if errRows != nil {
			return nil, fmt.Errorf("failed to iterate keys: %w", errRows)
		}
		if count < listBatchSize {
			break
		}
	}
	return keys, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// likePrefix escapes LIKE metacharacters in prefix and appends the wildcard.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
