package cfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDataPageDefaults(t *testing.T) {
	config := Default()
	require.EqualValues(t, 2048, config.ExpectedMessageSize)
	require.EqualValues(t, 65535, config.Slots)
	require.Zero(t, config.MaxPages)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
directory: /tmp/mqueue
slots: 128
max_pages: 4
groups:
  - ingest
  - audit
admin:
  endpoint: "127.0.0.1:9000"
`), 0o644))

	config, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/tmp/mqueue", config.Directory)
	require.EqualValues(t, 128, config.Slots)
	require.EqualValues(t, 4, config.MaxPages)
	require.Equal(t, "127.0.0.1:9000", config.Admin.Endpoint)
	// Untouched by the overlay, so it keeps the default.
	require.EqualValues(t, 2048, config.ExpectedMessageSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestGroupIndexResolvesConfiguredNames(t *testing.T) {
	config := Default()
	config.Groups = []string{"ingest", "audit"}

	idx, ok := config.GroupIndex("audit")
	require.True(t, ok)
	require.EqualValues(t, 1, idx)

	_, ok = config.GroupIndex("unknown")
	require.False(t, ok)
}

func TestParamsUsesFixedGroupCount(t *testing.T) {
	config := Default()
	config.Slots = 10
	config.ExpectedMessageSize = 100

	params := config.Params()
	require.EqualValues(t, 10, params.Slots)
	require.EqualValues(t, 100, params.ExpectedMessageSize)
	require.EqualValues(t, 64, params.Groups)
}
