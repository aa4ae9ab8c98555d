package histfile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadAllRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	start := time.Unix(1700000000, 0)
	err := Append(path, Entry{Cmdline: "echo hi", StartTime: start, Duration: 2500 * time.Millisecond})
	require.NoError(t, err)
	err = Append(path, Entry{Cmdline: "ls -la", StartTime: start.Add(time.Minute)})
	require.NoError(t, err)

	entries, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "echo hi", entries[0].Cmdline)
	assert.True(t, entries[0].StartTime.Equal(start))
	assert.InDelta(t, 2.5, entries[0].Duration.Seconds(), 0.01)

	assert.Equal(t, "ls -la", entries[1].Cmdline)
	assert.Equal(t, time.Duration(0), entries[1].Duration)
}

func TestReadAllMissingFileReturnsEmpty(t *testing.T) {
	entries, err := ReadAll(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseLineBareCmdlineHasNoTiming(t *testing.T) {
	e := parseLine("vim ~/.zsh_history")
	assert.Equal(t, "vim ~/.zsh_history", e.Cmdline)
	assert.True(t, e.StartTime.IsZero())
}

func TestParseLineZshHistoryFormat(t *testing.T) {
	e := parseLine(": 1646779848:1234.56;vim ~/.zsh_history")
	assert.Equal(t, "vim ~/.zsh_history", e.Cmdline)
	assert.Equal(t, int64(1646779848), e.StartTime.Unix())
	assert.InDelta(t, 1234.56, e.Duration.Seconds(), 0.01)
}

func TestParseLineZeroDuration(t *testing.T) {
	e := parseLine(": 1646779848:0;vim ~/.zsh_history")
	assert.Equal(t, "vim ~/.zsh_history", e.Cmdline)
	assert.Equal(t, time.Duration(0), e.Duration)
}

func TestParseLineMalformedFallsBackToWholeLineAsCmdline(t *testing.T) {
	e := parseLine(": not-a-number;echo hi")
	assert.Equal(t, ": not-a-number;echo hi", e.Cmdline)
}

func TestAppendCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history")
	err := Append(path, Entry{Cmdline: "pwd"})
	require.NoError(t, err)

	entries, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pwd", entries[0].Cmdline)
}

func TestBrowserOrdersNewestFirstAndClampsMovement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, Append(path, Entry{Cmdline: "first"}))
	require.NoError(t, Append(path, Entry{Cmdline: "second"}))
	require.NoError(t, Append(path, Entry{Cmdline: "third"}))

	b, err := NewBrowser(path)
	require.NoError(t, err)
	require.Equal(t, 3, b.Len())

	cur, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "third", cur.Cmdline)

	b.Older()
	cur, _ = b.Current()
	assert.Equal(t, "second", cur.Cmdline)

	b.Older()
	cur, _ = b.Current()
	assert.Equal(t, "first", cur.Cmdline)

	b.Older() // clamp at oldest
	cur, _ = b.Current()
	assert.Equal(t, "first", cur.Cmdline)

	b.Newer()
	b.Newer()
	cur, _ = b.Current()
	assert.Equal(t, "third", cur.Cmdline)

	b.Newer() // clamp at newest
	cur, _ = b.Current()
	assert.Equal(t, "third", cur.Cmdline)
}

func TestBrowserEmptyLogCurrentIsFalse(t *testing.T) {
	b, err := NewBrowser(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	_, ok := b.Current()
	assert.False(t, ok)
}
