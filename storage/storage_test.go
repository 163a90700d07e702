package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"draftsync/models"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Storage, realmID int64, email string) *models.User {
	t.Helper()
	u := &models.User{RealmID: realmID, Email: email, FullName: email}
	require.NoError(t, s.Users.CreateUser(u, "secret"))
	return u
}
