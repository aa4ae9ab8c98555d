package histfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMetaOfMissingFileIsEmptyAtCurrentSchema(t *testing.T) {
	m, err := LoadMeta(filepath.Join(t.TempDir(), "nope.meta.yaml"))
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, m.SchemaVersion)
	assert.Empty(t, m.Sessions)
}

func TestRecordSessionStartAppendsAndPersists(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	start := time.Unix(1700000000, 0)

	require.NoError(t, RecordSessionStart(historyPath, 111, start))
	require.NoError(t, RecordSessionStart(historyPath, 222, start.Add(time.Hour)))

	m, err := LoadMeta(MetaPath(historyPath))
	require.NoError(t, err)
	require.Len(t, m.Sessions, 2)
	assert.Equal(t, 111, m.Sessions[0].PID)
	assert.Equal(t, 222, m.Sessions[1].PID)
	assert.True(t, m.Sessions[1].StartedAt.Equal(start.Add(time.Hour)))
}

func TestRecordSessionStartTrimsToMaxMarkers(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history")
	start := time.Unix(1700000000, 0)

	for i := 0; i < maxSessionMarkers+5; i++ {
		require.NoError(t, RecordSessionStart(historyPath, i, start.Add(time.Duration(i)*time.Second)))
	}

	m, err := LoadMeta(MetaPath(historyPath))
	require.NoError(t, err)
	require.Len(t, m.Sessions, maxSessionMarkers)
	assert.Equal(t, 5, m.Sessions[0].PID)
	assert.Equal(t, maxSessionMarkers+4, m.Sessions[len(m.Sessions)-1].PID)
}
