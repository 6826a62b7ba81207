package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            BIGSERIAL PRIMARY KEY,
	owner         TEXT NOT NULL,
	doc_type      TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	is_history    BOOLEAN NOT NULL DEFAULT FALSE,
	last_modified TIMESTAMPTZ NOT NULL DEFAULT now(),
	data          JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS documents_history_idx ON documents (owner, doc_type, last_modified DESC) WHERE is_history;
CREATE TABLE IF NOT EXISTS grants (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL,
	server      TEXT NOT NULL DEFAULT '',
	db          TEXT NOT NULL DEFAULT '',
	tbl         TEXT NOT NULL DEFAULT '',
	col         TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS grants_user_idx ON grants (username);
`

// PostgresStore implements Store using Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a new store with an existing *sql.DB.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a lib/pq connection pool and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgres(db), nil
}

// Migrate creates the tables the store reads from.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// Close releases the pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) History(ctx context.Context, user, docType string, limit int) ([]Document, error) {
	query := `SELECT id, owner, doc_type, name, last_modified, data
		FROM documents
		WHERE owner = $1 AND doc_type = $2 AND is_history
		ORDER BY last_modified DESC`
	args := []any{user, docType}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.ID, &d.Owner, &d.Type, &d.Name, &d.LastModified, &data); err != nil {
			return nil, err
		}
		d.Data = data
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (p *PostgresStore) GrantsForUser(ctx context.Context, user string) ([]Grant, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, username, server, db, tbl, col, action
		FROM grants WHERE username = $1 ORDER BY id`, user)
	if err != nil {
		return nil, fmt.Errorf("query grants: %w", err)
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.User, &g.Server, &g.DB, &g.Table, &g.Column, &g.Action); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (p *PostgresStore) PutGrant(ctx context.Context, g Grant) error {
	if g.ID == "" {
		return errors.New("grant id required")
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO grants (id, username, server, db, tbl, col, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, server = EXCLUDED.server,
			db = EXCLUDED.db, tbl = EXCLUDED.tbl, col = EXCLUDED.col, action = EXCLUDED.action`,
		g.ID, g.User, g.Server, g.DB, g.Table, g.Column, g.Action)
	return err
}

func (p *PostgresStore) DeleteGrant(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM grants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
