package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxFileEntries caps the on-disk journal; older entries are dropped first.
const maxFileEntries = 5000

// FileJournal is a simple file-backed journal (JSON list).
type FileJournal struct {
	path string
	mu   sync.Mutex
}

// NewFileJournal creates a journal at the given file path.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{path: path}
}

func (f *FileJournal) load() ([]Entry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []Entry{}, nil
	}
	var items []Entry
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (f *FileJournal) save(items []Entry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileJournal) Record(ctx context.Context, e Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if e.SubmittedAt == 0 {
		e.SubmittedAt = time.Now().Unix()
	}
	items, err := f.load()
	if err != nil {
		return err
	}
	items = append(items, e)
	if len(items) > maxFileEntries {
		items = items[len(items)-maxFileEntries:]
	}
	return f.save(items)
}

func (f *FileJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	items, err := f.load()
	if err != nil {
		return nil, err
	}
	return newestFirst(items, limit), nil
}

func (f *FileJournal) Stats(ctx context.Context) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	default:
	}
	items, err := f.load()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Length: len(items)}
	if len(items) > 0 {
		newest := items[0].SubmittedAt
		for _, it := range items[1:] {
			if it.SubmittedAt > newest {
				newest = it.SubmittedAt
			}
		}
		stats.NewestAge = time.Now().Unix() - newest
	}
	return stats, nil
}
