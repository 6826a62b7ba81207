// Package stats reads table and column statistics from a Postgres catalog.
// Values are returned as strings keyed the way the upload assembler expects,
// with "" standing for "not collected".
package stats

import (
	"context"
	"errors"
	"math"
	"strconv"
)

// Table-level statistic keys.
const (
	StatNumRows   = "numRows"
	StatTotalSize = "totalSize"
)

// Column-level statistic keys.
const (
	ColDataType      = "data_type"
	ColDistinctCount = "distinct_count"
	ColNumNulls      = "num_nulls"
	ColAvgLen        = "avg_col_len"
)

// ErrTableNotFound is returned when the catalog has no such relation.
var ErrTableNotFound = errors.New("stats: table not found")

// TableStats is the table-level view of a relation.
type TableStats struct {
	Stats   map[string]string
	Columns []string
}

// ColumnStats maps column statistic keys to their values.
type ColumnStats map[string]string

// Provider fetches statistics for one table or column.
type Provider interface {
	TableStats(ctx context.Context, database, table string) (TableStats, error)
	ColumnStats(ctx context.Context, database, table, column string) (ColumnStats, error)
}

// rowCount renders reltuples; negative means the relation was never analyzed.
func rowCount(reltuples float64) string {
	if reltuples < 0 {
		return ""
	}
	return strconv.FormatInt(int64(reltuples), 10)
}

// columnStatsFromCatalog converts pg_stats values. A negative n_distinct is a
// fraction of the row count; nil values mean the column has not been analyzed.
func columnStatsFromCatalog(dataType string, nDistinct, nullFrac *float64, avgWidth *int64, reltuples float64) ColumnStats {
	out := ColumnStats{
		ColDataType:      dataType,
		ColDistinctCount: "",
		ColNumNulls:      "",
		ColAvgLen:        "",
	}
	if nDistinct != nil {
		d := *nDistinct
		if d < 0 {
			if reltuples >= 0 {
				out[ColDistinctCount] = strconv.FormatInt(int64(math.Round(-d*reltuples)), 10)
			}
		} else {
			out[ColDistinctCount] = strconv.FormatInt(int64(d), 10)
		}
	}
	if nullFrac != nil && reltuples >= 0 {
		out[ColNumNulls] = strconv.FormatInt(int64(math.Round(*nullFrac*reltuples)), 10)
	}
	if avgWidth != nil {
		out[ColAvgLen] = strconv.FormatFloat(float64(*avgWidth), 'f', -1, 64)
	}
	return out
}
