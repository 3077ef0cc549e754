package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, name, avatar_url, provider, provider_id, created_at, updated_at`

type UserService struct {
	db *database.DB
}

func NewUserService(db *database.DB) *UserService {
	return &UserService{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindOrCreateFromOAuth keys users by (provider, provider_id) and refreshes
// the profile fields the provider reports on every login.
func (s *UserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	user, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE provider = $1 AND provider_id = $2
	`, info.Provider, info.ID))

	if err == nil {
		if user.Email != info.Email || user.Name != info.Name || (user.AvatarURL == nil && info.AvatarURL != "") {
			_, err := s.db.Pool.Exec(ctx, `
				UPDATE users SET email = $1, name = $2, avatar_url = $3, updated_at = NOW()
				WHERE id = $4
			`, info.Email, info.Name, nullableString(info.AvatarURL), user.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to refresh user profile: %w", err)
			}
			user.Email = info.Email
			user.Name = info.Name
			if info.AvatarURL != "" {
				user.AvatarURL = &info.AvatarURL
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user, err = scanUser(s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		info.Email, info.Name, nullableString(info.AvatarURL), info.Provider, info.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, id))
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1
	`, email))
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	return scanUser(s.db.Pool.QueryRow(ctx, `
		UPDATE users SET name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		name, id))
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
