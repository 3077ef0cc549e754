package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "name", "avatar_url", "provider", "provider_id", "created_at", "updated_at",
}

func setupUserService(t *testing.T) (*UserService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewUserService(db), mock
}

func githubUser() *oauth.UserInfo {
	return &oauth.UserInfo{
		Email:     "new@example.com",
		Name:      "New User",
		AvatarURL: "https://example.com/avatar.png",
		ID:        "provider-123",
		Provider:  "github",
	}
}

func TestUserService_FindOrCreateFromOAuth_CreateNew(t *testing.T) {
	svc, mock := setupUserService(t)
	info := githubUser()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(pgx.ErrNoRows)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, info.Provider, info.ID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, info.Email, info.Name, &info.AvatarURL, info.Provider, info.ID, now, now))

	user, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, info.Email, user.Email)
	assert.Equal(t, info.Name, user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_FindExisting(t *testing.T) {
	svc, mock := setupUserService(t)
	info := githubUser()
	userID := uuid.New()
	now := time.Now()
	avatarURL := info.AvatarURL

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, info.Email, info.Name, &avatarURL, info.Provider, info.ID, now, now))

	user, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_RefreshesProfile(t *testing.T) {
	svc, mock := setupUserService(t)
	info := githubUser()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "old@example.com", "Old Name", nil, info.Provider, info.ID, now, now))

	mock.ExpectExec(`UPDATE users SET email = .+, name = .+, avatar_url`).
		WithArgs(info.Email, info.Name, &info.AvatarURL, userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	user, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	require.NoError(t, err)
	assert.Equal(t, info.Email, user.Email)
	assert.Equal(t, info.Name, user.Name)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, info.AvatarURL, *user.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_RefreshFailure(t *testing.T) {
	svc, mock := setupUserService(t)
	info := githubUser()
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users\s+WHERE provider = .+ AND provider_id`).
		WithArgs(info.Provider, info.ID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "old@example.com", "Old Name", nil, info.Provider, info.ID, now, now))

	mock.ExpectExec(`UPDATE users SET email`).
		WillReturnError(errors.New("read-only transaction"))

	user, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	require.Error(t, err)
	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "failed to refresh user profile")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_FindOrCreateFromOAuth_LookupFailure(t *testing.T) {
	svc, mock := setupUserService(t)
	info := githubUser()

	mock.ExpectQuery(`SELECT .+ FROM users`).
		WithArgs(info.Provider, info.ID).
		WillReturnError(errors.New("connection refused"))

	_, err := svc.FindOrCreateFromOAuth(context.Background(), info)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "test@example.com", "Test User", nil, "github", "123", now, now))

	user, err := svc.GetByID(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByID(context.Background(), userID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("find@example.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "find@example.com", "Test User", nil, "google", "g-1", now, now))

	user, err := svc.GetByEmail(context.Background(), "find@example.com")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_GetByEmail_NotFound(t *testing.T) {
	svc, mock := setupUserService(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email`).
		WithArgs("notfound@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetByEmail(context.Background(), "notfound@example.com")

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserService_Update(t *testing.T) {
	svc, mock := setupUserService(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`UPDATE users SET name = .+ WHERE id`).
		WithArgs("Updated Name", userID).
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow(userID, "test@example.com", "Updated Name", nil, "github", "123", now, now))

	user, err := svc.Update(context.Background(), userID, "Updated Name")

	require.NoError(t, err)
	assert.Equal(t, "Updated Name", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
