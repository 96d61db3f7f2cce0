package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T, limit int) (*Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datastore.json")
	s, err := New(path, limit)
	require.NoError(t, err)
	return s, path
}

func TestStorage_AppendAndFetch(t *testing.T) {
	s, _ := newStorage(t, 0)
	defer s.Close()

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendWelcome("g1", WelcomeRecord{UserID: "u1", Text: "Bonjour Alice", Datetime: at}))

	got, err := s.FetchWelcomes("g1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bonjour Alice", got[0].Text)

	last, ok, err := s.LastGreeted("g1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(last))

	_, ok, err = s.LastGreeted("g2", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_HistoryIsCapped(t *testing.T) {
	s, _ := newStorage(t, 3)
	defer s.Close()

	for i := range 5 {
		require.NoError(t, s.AppendWelcome("g1", WelcomeRecord{UserID: fmt.Sprint(i), Datetime: time.Now()}))
	}

	got, err := s.FetchWelcomes("g1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].UserID)
	assert.Equal(t, "4", got[2].UserID)
}

func TestStorage_SurvivesReopen(t *testing.T) {
	s, path := newStorage(t, 0)
	require.NoError(t, s.AppendWelcome("g1", WelcomeRecord{UserID: "u1", Text: "Bonsoir Bob", Datetime: time.Now()}))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	reopened, err := New(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.FetchWelcomes("g1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bonsoir Bob", got[0].Text)

	_, ok, err := reopened.LastGreeted("g1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
