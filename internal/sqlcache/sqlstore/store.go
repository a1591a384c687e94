package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"

	"github.com/sqlscribe/sqlscribe/internal/sqlcache"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// New binds a Store to table and creates the table if it does not exist.
func New(ctx context.Context, db *sql.DB, dialect Dialect, table string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid cache table name: %q", table)
	}
	store := &Store{db: db, dialect: dialect, table: table}
	if err := store.ensureTable(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	cache_key TEXT PRIMARY KEY,
	sql_text TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create cache table %q: %w", s.table, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (sqlcache.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT cache_key, sql_text FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("select cache rows: %w", err)
	}
	defer rows.Close()

	m := sqlcache.Mapping{}
	for rows.Next() {
		var key, sqlText string
		if err := rows.Scan(&key, &sqlText); err != nil {
			return nil, fmt.Errorf("scan cache row: %w", err)
		}
		m[key] = sqlText
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache rows: %w", err)
	}
	return m, nil
}

// Save upserts every entry of m in one transaction. Rows absent from m are
// left in place.
func (s *Store) Save(ctx context.Context, m sqlcache.Mapping) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return fmt.Errorf("prepare cache upsert: %w", err)
	}
	defer stmt.Close()

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if _, err = stmt.ExecContext(ctx, key, m[key]); err != nil {
			return fmt.Errorf("upsert cache key %q: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cache tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (cache_key, sql_text)
VALUES (%s, %s)
ON CONFLICT (cache_key) DO UPDATE SET sql_text = EXCLUDED.sql_text`,
		s.table, s.dialect.placeholder(1), s.dialect.placeholder(2))
}
