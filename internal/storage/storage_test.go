package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOptionsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	// Empty store yields the advertised defaults.
	opts, err := s.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	opts.HashMB = 256
	opts.Threads = 4
	opts.Chess960 = true
	opts.WeakenEval = 100
	require.NoError(t, s.SaveOptions(opts))

	got, err := s.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, opts, got)
}

func TestLoadOptionsSanitizes(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveOptions(Options{HashMB: 0, Threads: -2}))

	got, err := s.LoadOptions()
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().HashMB, got.HashMB)
	assert.Equal(t, DefaultOptions().Threads, got.Threads)
}

func TestRecordSearch(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordSearch(1000))
	require.NoError(t, s.RecordSearch(2500))

	st, err := s.LoadStats()
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Searches)
	assert.EqualValues(t, 3500, st.Nodes)
	assert.False(t, st.LastUsed.IsZero())
	assert.False(t, st.FirstUsed.IsZero())
	assert.False(t, st.LastUsed.Before(st.FirstUsed))
}
