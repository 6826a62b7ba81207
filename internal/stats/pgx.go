package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is used when a table reference carries no database.
const DefaultSchema = "public"

// PgxProvider reads statistics from pg_class, pg_stats and information_schema.
type PgxProvider struct {
	pool *pgxpool.Pool
}

// NewPgxProvider wraps an existing pool.
func NewPgxProvider(pool *pgxpool.Pool) *PgxProvider {
	return &PgxProvider{pool: pool}
}

// OpenPgxProvider connects a pool to dsn.
func OpenPgxProvider(ctx context.Context, dsn string) (*PgxProvider, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping stats database: %w", err)
	}
	return NewPgxProvider(pool), nil
}

// Close releases the pool.
func (p *PgxProvider) Close() {
	p.pool.Close()
}

func schemaOf(database string) string {
	if database == "" {
		return DefaultSchema
	}
	return database
}

func (p *PgxProvider) TableStats(ctx context.Context, database, table string) (TableStats, error) {
	schema := schemaOf(database)
	var reltuples float64
	var totalSize int64
	err := p.pool.QueryRow(ctx, `
		SELECT c.reltuples::float8, pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p', 'm', 'f')`,
		schema, table).Scan(&reltuples, &totalSize)
	if errors.Is(err, pgx.ErrNoRows) {
		return TableStats{}, fmt.Errorf("%s.%s: %w", schema, table, ErrTableNotFound)
	}
	if err != nil {
		return TableStats{}, fmt.Errorf("table stats %s.%s: %w", schema, table, err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return TableStats{}, fmt.Errorf("columns %s.%s: %w", schema, table, err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return TableStats{}, fmt.Errorf("columns %s.%s: %w", schema, table, err)
	}

	return TableStats{
		Stats: map[string]string{
			StatNumRows:   rowCount(reltuples),
			StatTotalSize: fmt.Sprintf("%d", totalSize),
		},
		Columns: columns,
	}, nil
}

func (p *PgxProvider) ColumnStats(ctx context.Context, database, table, column string) (ColumnStats, error) {
	schema := schemaOf(database)
	var (
		dataType  string
		nDistinct *float64
		nullFrac  *float64
		avgWidth  *int64
		reltuples float64
	)
	err := p.pool.QueryRow(ctx, `
		SELECT col.data_type, s.n_distinct::float8, s.null_frac::float8, s.avg_width::int8, c.reltuples::float8
		FROM information_schema.columns col
		JOIN pg_namespace n ON n.nspname = col.table_schema
		JOIN pg_class c ON c.relnamespace = n.oid AND c.relname = col.table_name
		LEFT JOIN pg_stats s
			ON s.schemaname = col.table_schema AND s.tablename = col.table_name AND s.attname = col.column_name
		WHERE col.table_schema = $1 AND col.table_name = $2 AND col.column_name = $3`,
		schema, table, column).Scan(&dataType, &nDistinct, &nullFrac, &avgWidth, &reltuples)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s.%s.%s: %w", schema, table, column, ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("column stats %s.%s.%s: %w", schema, table, column, err)
	}
	return columnStatsFromCatalog(dataType, nDistinct, nullFrac, avgWidth, reltuples), nil
}
