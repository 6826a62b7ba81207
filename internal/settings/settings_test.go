package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestApplyDefaultsKeepsProvidedFields(t *testing.T) {
	out := ApplyDefaults(Settings{DefaultDatabase: "sales", DefaultSourcePlatform: "impala", TopTablesLimit: 10, JournalListLimit: 5})
	assert.Equal(t, Settings{DefaultDatabase: "sales", DefaultSourcePlatform: "impala", TopTablesLimit: 10, JournalListLimit: 5}, out)
}

func TestApplyDefaultsSetsMissing(t *testing.T) {
	out := ApplyDefaults(Settings{TopTablesLimit: -3})
	assert.Equal(t, "default", out.DefaultDatabase)
	assert.Equal(t, "hive", out.DefaultSourcePlatform)
	assert.Equal(t, 1000, out.TopTablesLimit)
	assert.Equal(t, 50, out.JournalListLimit)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/config/settings.json"

	assert.Equal(t, ApplyDefaults(Settings{}), Load(fs, path))

	require.NoError(t, Save(fs, path, Settings{DefaultDatabase: "web", TopTablesLimit: 25}))
	got := Load(fs, path)
	assert.Equal(t, "web", got.DefaultDatabase)
	assert.Equal(t, 25, got.TopTablesLimit)
	assert.Equal(t, "hive", got.DefaultSourcePlatform)
}

func TestHolderUpdate(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := NewHolder(fs, "/s.json")
	s, err := h.Update(Settings{TopTablesLimit: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.TopTablesLimit)
	assert.Equal(t, 3, h.Current().TopTablesLimit)
	assert.Equal(t, 3, Load(fs, "/s.json").TopTablesLimit)

	static := Static(Settings{DefaultDatabase: "x"})
	assert.Equal(t, "x", static.Current().DefaultDatabase)
	_, err = static.Update(Settings{DefaultDatabase: "y"})
	require.NoError(t, err)
	assert.Equal(t, "y", static.Current().DefaultDatabase)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	h := NewHolder(afero.NewOsFs(), path)
	require.Equal(t, 1000, h.Current().TopTablesLimit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, h, nil) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"top_tables_limit": 7}`), 0o644)
		return h.Current().TopTablesLimit == 7
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchWithoutPathReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Watch(ctx, Static(Settings{}), nil))
}
