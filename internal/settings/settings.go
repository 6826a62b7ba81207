package settings

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Settings are optional runtime-tunable knobs exposed to the UI.
type Settings struct {
	DefaultDatabase       string `json:"default_database,omitempty"`
	DefaultSourcePlatform string `json:"default_source_platform,omitempty"`
	TopTablesLimit        int    `json:"top_tables_limit,omitempty"`
	JournalListLimit      int    `json:"journal_list_limit,omitempty"`
}

const (
	defaultDatabase       = "default"
	defaultSourcePlatform = "hive"
	defaultTopTablesLimit = 1000
	defaultJournalLimit   = 50
)

// ApplyDefaults fills zero-values with sane defaults.
func ApplyDefaults(s Settings) Settings {
	if s.DefaultDatabase == "" {
		s.DefaultDatabase = defaultDatabase
	}
	if s.DefaultSourcePlatform == "" {
		s.DefaultSourcePlatform = defaultSourcePlatform
	}
	if s.TopTablesLimit <= 0 {
		s.TopTablesLimit = defaultTopTablesLimit
	}
	if s.JournalListLimit <= 0 {
		s.JournalListLimit = defaultJournalLimit
	}
	return s
}

// Load reads settings from path; a missing or unreadable file yields defaults.
func Load(fs afero.Fs, path string) Settings {
	if path == "" {
		return ApplyDefaults(Settings{})
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return ApplyDefaults(Settings{})
	}
	var s Settings
	_ = json.Unmarshal(data, &s)
	return ApplyDefaults(s)
}

// Save writes settings to path, creating parent directories.
func Save(fs afero.Fs, path string, s Settings) error {
	if path == "" {
		return nil
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

// Holder keeps the current settings for concurrent readers.
type Holder struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
	cur  Settings
}

// NewHolder loads path from fs. A nil fs means the OS filesystem.
func NewHolder(fs afero.Fs, path string) *Holder {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Holder{fs: fs, path: path, cur: Load(fs, path)}
}

// Static wraps fixed settings, for tests and for deployments without a settings file.
func Static(s Settings) *Holder {
	return &Holder{fs: afero.NewMemMapFs(), cur: ApplyDefaults(s)}
}

// Current returns a copy of the active settings.
func (h *Holder) Current() Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Path is the backing file, or "" when settings are not persisted.
func (h *Holder) Path() string { return h.path }

// Update persists s and makes it current.
func (h *Holder) Update(s Settings) (Settings, error) {
	s = ApplyDefaults(s)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := Save(h.fs, h.path, s); err != nil {
		return h.cur, err
	}
	h.cur = s
	return s, nil
}

// Reload re-reads the backing file.
func (h *Holder) Reload() Settings {
	s := Load(h.fs, h.path)
	h.mu.Lock()
	h.cur = s
	h.mu.Unlock()
	return s
}
