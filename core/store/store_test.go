package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSession struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

func exerciseStore(t *testing.T, s SessionStore[*testSession]) {
	t.Helper()
	_, err := s.LoadSession()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveSession(&testSession{Token: "t1", UserID: 7}))
	got, err := s.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, int64(7), got.UserID)

	require.NoError(t, s.ClearSession())
	_, err = s.LoadSession()
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.ClearSession(), "重复清除不应报错")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore[*testSession]())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	fs := NewFileStore[*testSession](path, nil)
	assert.Equal(t, path, fs.Path())
	exerciseStore(t, fs)
}
