package handlers

import (
	"context"
	"time"

	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/google/uuid"
)

// UserServiceInterface defines the methods used by handlers from UserService
type UserServiceInterface interface {
	FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error)
}

// OrganizationServiceInterface defines the methods used by handlers from OrganizationService
type OrganizationServiceInterface interface {
	Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Organization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, []string, error)
	IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// PersonalSecretServiceInterface defines the methods used by handlers from PersonalSecretService
type PersonalSecretServiceInterface interface {
	Create(ctx context.Context, session models.Owner, in models.SecretInput) (*models.PersonalSecret, error)
	Get(ctx context.Context, session models.Owner, id uuid.UUID) (*models.PersonalSecret, error)
	List(ctx context.Context, session models.Owner) ([]models.PersonalSecret, error)
	Update(ctx context.Context, session, claimed models.Owner, id uuid.UUID, in models.SecretInput) (*models.PersonalSecret, error)
	Delete(ctx context.Context, session models.Owner, id uuid.UUID) error
}

// TokenServiceInterface defines the methods used by handlers from TokenService
type TokenServiceInterface interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
}

// JWTServiceInterface defines the methods used by handlers from JWTService
type JWTServiceInterface interface {
	GenerateTokenPair(userID uuid.UUID, email string, organizationID uuid.UUID) (*services.TokenPair, error)
	ValidateRefreshToken(token string) (uuid.UUID, uuid.UUID, error)
	RefreshExpiry() time.Duration
}
