package upload

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/k8ika0s/optimizer-api/internal/optimizer"
	"github.com/k8ika0s/optimizer-api/internal/store"
)

// executionTimeScale converts seconds to the hundredths the optimizer expects.
const executionTimeScale = 100

// QueryData is the subset of a saved query document needed for upload.
type QueryData struct {
	Snippets []struct {
		Statement string `json:"statement"`
		Result    struct {
			Handle struct {
				GUID string `json:"guid"`
			} `json:"handle"`
			ExecutionTime *float64 `json:"executionTime"`
		} `json:"result"`
	} `json:"snippets"`
}

// DecodeGUID decodes a base64 operation handle into the "hi:lo" query id.
// The handle must be exactly 16 bytes: two big-endian uint64 values.
func DecodeGUID(guid string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(guid))
	if err != nil {
		return "", fmt.Errorf("decode guid: %w", err)
	}
	if len(raw) != 16 {
		return "", fmt.Errorf("decode guid: want 16 bytes, got %d", len(raw))
	}
	hi := binary.BigEndian.Uint64(raw[:8])
	lo := binary.BigEndian.Uint64(raw[8:])
	return fmt.Sprintf("%d:%d", hi, lo), nil
}

// QueryRecord extracts the upload record from one history document.
func QueryRecord(doc store.Document) (optimizer.QueryRecord, error) {
	var data QueryData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return optimizer.QueryRecord{}, fmt.Errorf("parse document: %w", err)
	}
	if len(data.Snippets) == 0 {
		return optimizer.QueryRecord{}, errors.New("document has no snippets")
	}
	snippet := data.Snippets[0]
	id, err := DecodeGUID(snippet.Result.Handle.GUID)
	if err != nil {
		return optimizer.QueryRecord{}, err
	}
	if snippet.Result.ExecutionTime == nil {
		return optimizer.QueryRecord{}, errors.New("snippet has no execution time")
	}
	return optimizer.QueryRecord{
		ID:            id,
		ExecutionTime: *snippet.Result.ExecutionTime * executionTimeScale,
		Statement:     snippet.Statement,
	}, nil
}

// QueryRecords builds the "queries" batch. Documents that cannot be
// converted are logged and left out.
func QueryRecords(docs []store.Document, logger *slog.Logger) []optimizer.QueryRecord {
	out := make([]optimizer.QueryRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := QueryRecord(doc)
		if err != nil {
			logger.Warn("skipping upload of document", "doc_id", doc.ID, "name", doc.Name, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}
