package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/internal/cryptox"
	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/google/uuid"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email:      fmt.Sprintf("user%d@example.com", f.counter),
		Name:       fmt.Sprintf("Test User %d", f.counter),
		Provider:   "github",
		ProviderID: fmt.Sprintf("provider-%d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	err := f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, name, avatar_url, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, name, avatar_url, provider, provider_id, created_at, updated_at
	`, user.Email, user.Name, user.AvatarURL, user.Provider, user.ProviderID).Scan(
		&user.ID, &user.Email, &user.Name, &user.AvatarURL,
		&user.Provider, &user.ProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// CreateOrganization creates an organization owned by owner, who is also its first member
func (f *Fixtures) CreateOrganization(t *testing.T, owner *models.User) *models.Organization {
	t.Helper()
	f.counter++

	org := &models.Organization{
		Name:    fmt.Sprintf("Test Organization %d", f.counter),
		OwnerID: owner.ID,
	}

	ctx := context.Background()
	tx, err := f.db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO organizations (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at, updated_at
	`, org.Name, org.OwnerID).Scan(&org.ID, &org.Name, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
	`, org.ID, owner.ID, models.RoleOwner)
	if err != nil {
		t.Fatalf("failed to add owner as member: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("failed to commit transaction: %v", err)
	}

	return org
}

// AddMember adds user to org as a regular member
func (f *Fixtures) AddMember(t *testing.T, org *models.Organization, user *models.User) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, org.ID, user.ID, models.RoleMember)
	if err != nil {
		t.Fatalf("failed to add organization member: %v", err)
	}
}

// CreatePersonalSecret encrypts name and value with privateKey and stores the
// result for owner. It returns the stored record.
func (f *Fixtures) CreatePersonalSecret(t *testing.T, owner models.Owner, secretType models.SecretType, name, value, privateKey string) *models.PersonalSecret {
	t.Helper()

	nameField, valueField, err := cryptox.EncryptPair(name, value, cryptox.DeriveKey(privateKey))
	if err != nil {
		t.Fatalf("failed to encrypt personal secret: %v", err)
	}

	s := &models.PersonalSecret{}
	err = f.db.Pool.QueryRow(context.Background(), `
		INSERT INTO personal_secrets (
			user_id, organization_id, secret_type,
			secret_name_cipher, secret_name_iv, secret_name_auth_tag,
			secret_value_cipher, secret_value_iv, secret_value_auth_tag
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, organization_id, algorithm, version, created_at, updated_at
	`, owner.UserID, owner.OrganizationID, string(secretType),
		nameField.Ciphertext, nameField.IV, nameField.AuthTag,
		valueField.Ciphertext, valueField.IV, valueField.AuthTag,
	).Scan(&s.ID, &s.UserID, &s.OrganizationID, &s.Algorithm, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to create personal secret: %v", err)
	}

	s.Type = secretType
	s.Name = models.CipherField(nameField)
	s.Value = models.CipherField(valueField)
	return s
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()

	_, err := f.db.Pool.Exec(context.Background(), `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}

// OAuthUserInfo creates test OAuth user info
func OAuthUserInfo(email, name, provider, id string) *oauth.UserInfo {
	return &oauth.UserInfo{
		Email:     email,
		Name:      name,
		AvatarURL: "https://example.com/avatar.png",
		ID:        id,
		Provider:  provider,
	}
}
