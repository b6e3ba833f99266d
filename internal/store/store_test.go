package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	u := User{ID: "u1", Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(u))

	got, err := s.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	byName, err := s.GetUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", byName.ID)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser("missing")
	assert.Error(t, err)
}

func TestInstallAddonRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	a := Addon{ID: "a1", UserID: "u1", ManifestURL: "https://example.com/manifest.json", Manifest: Manifest{ID: "org.example.addon"}}
	require.NoError(t, s.InstallAddon(a))

	dup := a
	dup.ID = "a2"
	err := s.InstallAddon(dup)
	assert.ErrorIs(t, err, ErrAddonAlreadyInstalled)

	list, err := s.ListAddons("u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUninstallAddon(t *testing.T) {
	s := newTestStore(t)
	a := Addon{ID: "a1", UserID: "u1", Manifest: Manifest{ID: "org.example.addon"}}
	require.NoError(t, s.InstallAddon(a))
	require.NoError(t, s.UninstallAddon("u1", "org.example.addon"))

	list, err := s.ListAddons("u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLibraryAddAndRemove(t *testing.T) {
	s := newTestStore(t)
	item := LibraryItem{UserID: "u1", ID: "tt0111161", Type: "movie", Name: "The Shawshank Redemption", AddedAt: time.Now()}
	require.NoError(t, s.AddLibraryItem(item))

	list, err := s.ListLibrary("u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tt0111161", list[0].ID)

	require.NoError(t, s.RemoveLibraryItem("u1", "movie", "tt0111161"))
	list, err = s.ListLibrary("u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
