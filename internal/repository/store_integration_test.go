package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository/db"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewRepository(conn, db.SQLite), conn
}

func seedUser(t *testing.T, repos *Repository, username string, email *string) int {
	t.Helper()
	id, err := repos.Users.Create(context.Background(), models.User{
		Username:     username,
		PasswordHash: "hash",
		Email:        email,
		FirstName:    strp("Test"),
	})
	require.NoError(t, err)
	return id
}

func TestStore_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	repos, _ := openTestStore(t)

	id := seedUser(t, repos, "alice", strp("alice@example.com"))

	u, err := repos.Users.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, 1, u.TokenVersion)
	require.False(t, u.CreatedAt.IsZero())

	_, err = repos.Users.Create(ctx, models.User{Username: "alice", PasswordHash: "x", FirstName: strp("A")})
	require.ErrorIs(t, err, ErrDuplicate)

	taken, err := repos.Users.EmailExists(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, taken)

	v, err := repos.Users.BumpTokenVersion(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, v)
	v, err = repos.Users.BumpTokenVersion(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	_, err = repos.Users.BumpTokenVersion(ctx, id+100)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repos.Users.UpdatePassword(ctx, id, "newhash"))
	u, err = repos.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "newhash", u.PasswordHash)
	require.Equal(t, 3, u.TokenVersion)

	missing, err := repos.Users.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStore_UserUpdate(t *testing.T) {
	ctx := context.Background()
	repos, _ := openTestStore(t)

	alice := seedUser(t, repos, "alice", strp("alice@example.com"))
	seedUser(t, repos, "bob", strp("bob@example.com"))

	_, err := repos.Users.Update(ctx, alice, models.UserPatch{Email: strp("bob@example.com")})
	require.ErrorIs(t, err, ErrDuplicate)

	u, err := repos.Users.Update(ctx, alice, models.UserPatch{
		FirstName: strp("Alicia"),
		Email:     strp(""),
	})
	require.NoError(t, err)
	require.Equal(t, "Alicia", *u.FirstName)
	require.Nil(t, u.Email)

	_, err = repos.Users.Update(ctx, alice+100, models.UserPatch{FirstName: strp("X")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Locations(t *testing.T) {
	ctx := context.Background()
	repos, _ := openTestStore(t)

	alice := seedUser(t, repos, "alice", nil)
	bob := seedUser(t, repos, "bob", nil)

	paris := models.Location{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522, Country: strp("France"), UserID: &alice}

	first, created, err := repos.Locations.Create(ctx, paris)
	require.NoError(t, err)
	require.True(t, created)
	require.NotZero(t, first.ID)

	paris.Name = "Paris again"
	second, created, err := repos.Locations.Create(ctx, paris)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Paris", second.Name)

	// Same coordinates under a different owner is a separate favorite.
	paris.UserID = &bob
	_, created, err = repos.Locations.Create(ctx, paris)
	require.NoError(t, err)
	require.True(t, created)

	list, err := repos.Locations.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)

	deleted, err := repos.Locations.Delete(ctx, first.ID, bob)
	require.NoError(t, err)
	require.False(t, deleted)
	list, err = repos.Locations.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)

	deleted, err = repos.Locations.Delete(ctx, first.ID, alice)
	require.NoError(t, err)
	require.True(t, deleted)
	list, err = repos.Locations.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestStore_AliceDelhiSequence(t *testing.T) {
	ctx := context.Background()
	repos, _ := openTestStore(t)

	alice := seedUser(t, repos, "alice", nil)
	u, err := repos.Users.GetByID(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, 1, u.TokenVersion)

	_, err = repos.Users.Create(ctx, models.User{Username: "alice", PasswordHash: "x", FirstName: strp("Alice")})
	require.ErrorIs(t, err, ErrDuplicate)

	delhi := models.Location{Name: "Delhi", Latitude: 28.65195, Longitude: 77.23149, Country: strp("India"), UserID: &alice}
	first, created, err := repos.Locations.Create(ctx, delhi)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repos.Locations.Create(ctx, delhi)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	list, err := repos.Locations.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 28.65195, list[0].Latitude)
	require.Equal(t, 77.23149, list[0].Longitude)
}
