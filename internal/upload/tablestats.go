package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/stats"
)

// Missing marks a statistic that was absent or empty.
const Missing int64 = -1

// TableStatsBatch holds the records for the two stats upload kinds.
type TableStatsBatch struct {
	Tables  []optimizer.TableStat
	Columns []optimizer.ColumnStat
}

// TableStats gathers table statistics, and column statistics when
// withColumns is set, for every dbTables entry. A table whose statistics
// cannot be read is logged and skipped; the rest of the batch continues.
func TableStats(ctx context.Context, p stats.Provider, dbTables []string, withColumns bool, logger *slog.Logger) TableStatsBatch {
	batch := TableStatsBatch{
		Tables:  []optimizer.TableStat{},
		Columns: []optimizer.ColumnStat{},
	}
	for _, dbTable := range dbTables {
		tbl, cols, err := tableStats(ctx, p, dbTable, withColumns)
		if err != nil {
			logger.Error("skipping upload of table", "table", dbTable, "err", err)
			continue
		}
		batch.Tables = append(batch.Tables, tbl)
		batch.Columns = append(batch.Columns, cols...)
	}
	return batch
}

func tableStats(ctx context.Context, p stats.Provider, dbTable string, withColumns bool) (optimizer.TableStat, []optimizer.ColumnStat, error) {
	path := optimizer.SplitTableName(dbTable)
	full, err := p.TableStats(ctx, path.Database, path.Table)
	if err != nil {
		return optimizer.TableStat{}, nil, err
	}
	rows, err := parseCount(full.Stats[stats.StatNumRows])
	if err != nil {
		return optimizer.TableStat{}, nil, fmt.Errorf("%s: %w", stats.StatNumRows, err)
	}
	tbl := optimizer.TableStat{Table: dbTable, RowCount: rows}
	if !withColumns {
		return tbl, nil, nil
	}
	cols := make([]optimizer.ColumnStat, 0, len(full.Columns))
	for _, col := range full.Columns {
		cs, err := p.ColumnStats(ctx, path.Database, path.Table, col)
		if err != nil {
			return optimizer.TableStat{}, nil, fmt.Errorf("column %s: %w", col, err)
		}
		stat, err := columnStat(dbTable, col, cs)
		if err != nil {
			return optimizer.TableStat{}, nil, fmt.Errorf("column %s: %w", col, err)
		}
		cols = append(cols, stat)
	}
	return tbl, cols, nil
}

func columnStat(dbTable, column string, cs stats.ColumnStats) (optimizer.ColumnStat, error) {
	distinct, err := parseCount(cs[stats.ColDistinctCount])
	if err != nil {
		return optimizer.ColumnStat{}, fmt.Errorf("%s: %w", stats.ColDistinctCount, err)
	}
	nulls, err := parseCount(cs[stats.ColNumNulls])
	if err != nil {
		return optimizer.ColumnStat{}, fmt.Errorf("%s: %w", stats.ColNumNulls, err)
	}
	avg, err := parseAvg(cs[stats.ColAvgLen])
	if err != nil {
		return optimizer.ColumnStat{}, fmt.Errorf("%s: %w", stats.ColAvgLen, err)
	}
	return optimizer.ColumnStat{
		Table:         dbTable,
		Column:        column,
		Type:          cs[stats.ColDataType],
		DistinctCount: distinct,
		NullCount:     nulls,
		AvgLen:        avg,
	}, nil
}

func parseCount(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Missing, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// parseAvg accepts fractional lengths and truncates them.
func parseAvg(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Missing, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
