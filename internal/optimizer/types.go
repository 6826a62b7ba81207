package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
)

// StatusSuccess is the status value the optimizer returns for a successful call.
const StatusSuccess = "success"

// Upload data types understood by the optimizer upload endpoint.
const (
	DataTypeQueries    = "queries"
	DataTypeTableStats = "table_stats"
	DataTypeColsStats  = "cols_stats"
)

// Response is a decoded optimizer reply. Every reply carries a "status" key;
// the remaining keys depend on the operation.
type Response map[string]any

// OK reports whether the reply has status "success".
func (r Response) OK() bool {
	s, _ := r["status"].(string)
	return s == StatusSuccess
}

// Get returns the value stored under key, or nil.
func (r Response) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Detail describes a failed reply: the "details" value when present,
// otherwise the whole reply rendered as JSON.
func (r Response) Detail() string {
	if d, ok := r["details"]; ok && d != nil {
		if s, ok := d.(string); ok {
			return s
		}
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprint(map[string]any(r))
	}
	return string(b)
}

// Decode converts the value under key into dst.
func (r Response) Decode(key string, dst any) error {
	raw, ok := r[key]
	if !ok {
		return fmt.Errorf("optimizer response missing %q", key)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// TableRecord is one row of a top-tables reply.
// The numeric fields are passed through as the optimizer sent them.
type TableRecord struct {
	EID             any    `json:"eid"`
	Name            string `json:"name"`
	WorkloadPercent any    `json:"workloadPercent"`
	ColumnCount     any    `json:"columnCount"`
	PatternCount    any    `json:"patternCount"`
	Total           any    `json:"total"`
	Type            string `json:"type"`
}

// QueryRecord is one historical query sent with data type "queries".
type QueryRecord struct {
	ID            string  `json:"id"`
	ExecutionTime float64 `json:"execution_time"`
	Statement     string  `json:"statement"`
}

// TableStat is one table statistic sent with data type "table_stats".
type TableStat struct {
	Table    string `json:"table"`
	RowCount int64  `json:"row_count"`
}

// ColumnStat is one column statistic sent with data type "cols_stats".
type ColumnStat struct {
	Table         string `json:"table"`
	Column        string `json:"column"`
	Type          string `json:"type"`
	DistinctCount int64  `json:"distinct_count"`
	NullCount     int64  `json:"null_count"`
	AvgLen        int64  `json:"avg_len"`
}

// UploadRequest is a batch of records of a single data type.
type UploadRequest struct {
	DataType       string `json:"dataType"`
	SourcePlatform string `json:"sourcePlatform"`
	Rows           any    `json:"rows"`
}

// API is the set of optimizer operations exposed over HTTP.
type API interface {
	GetTenant(ctx context.Context, email string) (Response, error)
	TopTables(ctx context.Context, database string) (Response, error)
	TableDetails(ctx context.Context, database, table string) (Response, error)
	QueryCompatibility(ctx context.Context, sourcePlatform, targetPlatform, query string) (Response, error)
	QueryRisk(ctx context.Context, query any) (Response, error)
	SimilarQueries(ctx context.Context, sourcePlatform string, query any) (Response, error)
	TopFilters(ctx context.Context, dbTables []string) (Response, error)
	TopJoins(ctx context.Context, dbTables []string) (Response, error)
	TopAggs(ctx context.Context, dbTables []string) (Response, error)
	TopColumns(ctx context.Context, dbTables []string) (Response, error)
	TopDatabases(ctx context.Context) (Response, error)
	Upload(ctx context.Context, req UploadRequest) (Response, error)
	UploadStatus(ctx context.Context, workloadID string) (Response, error)
}
