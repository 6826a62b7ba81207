package journal

import "context"

// Entry records one batch forwarded to the optimizer upload endpoint.
type Entry struct {
	ID             string `json:"id"`
	DataType       string `json:"data_type"`
	SourcePlatform string `json:"source_platform"`
	User           string `json:"user,omitempty"`
	Rows           int    `json:"rows"`
	WorkloadID     string `json:"workload_id,omitempty"`
	ArchiveKey     string `json:"archive_key,omitempty"`
	SubmittedAt    int64  `json:"submitted_at"`
}

// Backend defines operations for the upload journal.
type Backend interface {
	Record(ctx context.Context, e Entry) error
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
}

// Stats summarizes journal depth and the age of the newest entry.
type Stats struct {
	Length    int   `json:"length"`
	NewestAge int64 `json:"newest_age_seconds"`
}

// NullJournal discards entries.
type NullJournal struct{}

func (NullJournal) Record(context.Context, Entry) error        { return nil }
func (NullJournal) List(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
func (NullJournal) Stats(context.Context) (Stats, error)       { return Stats{}, nil }

func newestFirst(items []Entry, limit int) []Entry {
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	out := make([]Entry, 0, limit)
	for i := len(items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, items[i])
	}
	return out
}
