package service

import (
	"context"
	"testing"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	admins map[string]*models.Admin
}

func (f *fakeAdminStore) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return f.admins[username], nil
}

type fakeSessionStore struct {
	sessions map[string]int64
}

func (f *fakeSessionStore) StoreSession(ctx context.Context, token string, adminID int64) error {
	f.sessions[token] = adminID
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, token string) (int64, bool, error) {
	id, ok := f.sessions[token]
	return id, ok, nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func newTestAuth(t *testing.T) (*AuthService, *fakeSessionStore, *fakeRecorder) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	admins := &fakeAdminStore{admins: map[string]*models.Admin{
		"librarian": {ID: 7, Username: "librarian", PasswordHash: string(hash), Role: "admin"},
	}}
	sessions := &fakeSessionStore{sessions: map[string]int64{}}
	recorder := &fakeRecorder{}
	return NewAuthService(admins, sessions, recorder), sessions, recorder
}

func TestLogin(t *testing.T) {
	auth, sessions, recorder := newTestAuth(t)

	result, err := auth.Login(context.Background(), "127.0.0.1", &LoginRequest{
		Username: "librarian",
		Password: "letmein",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, int64(7), result.AdminID)
	assert.Equal(t, "librarian", result.Username)
	assert.Equal(t, int64(7), sessions.sessions[result.Token])

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.ActionLogin, recorder.events[0].Action)
}

func TestLoginRejected(t *testing.T) {
	auth, sessions, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Login(ctx, "127.0.0.1", &LoginRequest{Username: "librarian", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown username fails the same way as a wrong password.
	_, err = auth.Login(ctx, "127.0.0.1", &LoginRequest{Username: "nobody", Password: "letmein"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, sessions.sessions)
}

func TestAuthenticate(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	ctx := context.Background()

	result, err := auth.Login(ctx, "127.0.0.1", &LoginRequest{
		Username: "librarian",
		Password: "letmein",
	})
	require.NoError(t, err)

	actor, err := auth.Authenticate(ctx, result.Token, "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, ActorTypeAdmin, actor.Type)
	assert.Equal(t, int64(7), actor.ID)
	assert.Equal(t, "10.0.0.9", actor.Origin)

	_, err = auth.Authenticate(ctx, "not-a-session", "10.0.0.9")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate(ctx, "", "10.0.0.9")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	auth, sessions, _ := newTestAuth(t)
	ctx := context.Background()

	result, err := auth.Login(ctx, "127.0.0.1", &LoginRequest{
		Username: "librarian",
		Password: "letmein",
	})
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, result.Token))
	assert.Empty(t, sessions.sessions)

	_, err = auth.Authenticate(ctx, result.Token, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
