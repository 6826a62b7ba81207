package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/k8ika0s/optimizer-api/internal/archive"
	"github.com/k8ika0s/optimizer-api/internal/journal"
	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/upload"
)

const maxJournalLimit = 200

// UploadHistoryResponse answers /upload_history.
type UploadHistoryResponse struct {
	Envelope
	UploadHistory optimizer.Response `json:"upload_history"`
}

// UploadTableStatsResponse answers /upload_table_stats. UploadColsStats is
// present only when column statistics were requested.
type UploadTableStatsResponse struct {
	Envelope
	UploadTableStats optimizer.Response `json:"upload_table_stats"`
	UploadColsStats  optimizer.Response `json:"upload_cols_stats,omitempty"`
}

// UploadStatusResponse answers /upload_status.
type UploadStatusResponse struct {
	Envelope
	UploadStatus optimizer.Response `json:"upload_status"`
}

// UploadJournalResponse answers /upload_journal.
type UploadJournalResponse struct {
	Envelope
	Uploads []journal.Entry `json:"uploads"`
	Stats   journal.Stats   `json:"stats"`
}

func (h *Handler) uploadHistory(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	n, err := p.optionalInt("n")
	if err != nil {
		return nil, err
	}
	platform := p.get("sourcePlatform", h.settings().DefaultSourcePlatform)
	if h.Documents == nil {
		return nil, fmt.Errorf("upload history: no document store configured")
	}
	docs, err := h.Documents.History(r.Context(), UserFromContext(r.Context()), "query-"+platform, n)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	queries := upload.QueryRecords(docs, h.logger())

	resp, err := h.upload(r.Context(), optimizer.DataTypeQueries, platform, queries, len(queries))
	if err != nil {
		return nil, err
	}
	return UploadHistoryResponse{Envelope: ok(), UploadHistory: resp}, nil
}

func (h *Handler) uploadTableStats(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	dbTables := []string{}
	if err := p.json("dbTables", "[]", &dbTables); err != nil {
		return nil, err
	}
	var withColumns bool
	if err := p.json("with_columns", "false", &withColumns); err != nil {
		return nil, err
	}
	platform := p.get("sourcePlatform", h.settings().DefaultSourcePlatform)
	if h.Stats == nil {
		return nil, fmt.Errorf("upload table stats: no statistics provider configured")
	}

	batch := upload.TableStats(r.Context(), h.Stats, dbTables, withColumns, h.logger())

	out := UploadTableStatsResponse{Envelope: ok()}
	out.UploadTableStats, err = h.upload(r.Context(), optimizer.DataTypeTableStats, platform, batch.Tables, len(batch.Tables))
	if err != nil {
		return nil, err
	}
	if withColumns {
		out.UploadColsStats, err = h.upload(r.Context(), optimizer.DataTypeColsStats, platform, batch.Columns, len(batch.Columns))
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (h *Handler) uploadStatus(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	resp, err := h.optimizer().UploadStatus(r.Context(), p.get("workloadId", ""))
	if err != nil {
		return nil, err
	}
	return UploadStatusResponse{Envelope: ok(), UploadStatus: resp}, nil
}

func (h *Handler) uploadJournal(r *http.Request) (any, error) {
	p, err := readParams(r)
	if err != nil {
		return nil, err
	}
	if h.Journal == nil {
		return UploadJournalResponse{Envelope: ok(), Uploads: []journal.Entry{}}, nil
	}
	limit := parseIntDefault(p.get("limit", ""), h.settings().JournalListLimit, maxJournalLimit)
	entries, err := h.Journal.List(r.Context(), limit)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	st, err := h.Journal.Stats(r.Context())
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	return UploadJournalResponse{Envelope: ok(), Uploads: entries, Stats: st}, nil
}

// upload forwards one batch. Only batches the optimizer accepted are
// archived and journaled; both steps are best effort and their failures are
// logged without failing the request.
func (h *Handler) upload(ctx context.Context, dataType, platform string, rows any, count int) (optimizer.Response, error) {
	now := time.Now().UTC()
	resp, err := h.optimizer().Upload(ctx, optimizer.UploadRequest{DataType: dataType, SourcePlatform: platform, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", dataType, err)
	}
	uploadRowsTotal.WithLabelValues(dataType).Add(float64(count))
	archiveKey := h.archiveBatch(ctx, dataType, rows, now)

	if h.Journal != nil {
		workload, _ := resp.Get("workloadId").(string)
		entry := journal.Entry{
			ID:             uuid.NewString(),
			DataType:       dataType,
			SourcePlatform: platform,
			User:           UserFromContext(ctx),
			Rows:           count,
			WorkloadID:     workload,
			ArchiveKey:     archiveKey,
			SubmittedAt:    now.Unix(),
		}
		if err := h.Journal.Record(ctx, entry); err != nil {
			h.logger().Warn("journal upload failed", "data_type", dataType, "err", err)
		}
	}
	return resp, nil
}

func (h *Handler) archiveBatch(ctx context.Context, dataType string, rows any, at time.Time) string {
	if h.Archive == nil {
		return ""
	}
	if _, null := h.Archive.(archive.NullStore); null {
		return ""
	}
	data, err := json.Marshal(rows)
	if err != nil {
		h.logger().Warn("archive encode failed", "data_type", dataType, "err", err)
		return ""
	}
	key := archive.UploadKey(dataType, at)
	if err := h.Archive.Put(ctx, key, data, "application/json"); err != nil {
		h.logger().Warn("archive upload failed", "data_type", dataType, "key", key, "err", err)
		return ""
	}
	return key
}
