package testutil

import (
	"context"
	"time"

	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserService mocks the UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindOrCreateFromOAuth(ctx context.Context, info *oauth.UserInfo) (*models.User, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockOrganizationService mocks the OrganizationService
type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) Create(ctx context.Context, name string, ownerID uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, name, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, []string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]models.Organization), args.Get(1).([]string), args.Error(2)
}

func (m *MockOrganizationService) IsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Bool(0), args.Error(1)
}

// MockPersonalSecretService mocks the PersonalSecretService
type MockPersonalSecretService struct {
	mock.Mock
}

func (m *MockPersonalSecretService) Create(ctx context.Context, session models.Owner, in models.SecretInput) (*models.PersonalSecret, error) {
	args := m.Called(ctx, session, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PersonalSecret), args.Error(1)
}

func (m *MockPersonalSecretService) Get(ctx context.Context, session models.Owner, id uuid.UUID) (*models.PersonalSecret, error) {
	args := m.Called(ctx, session, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PersonalSecret), args.Error(1)
}

func (m *MockPersonalSecretService) List(ctx context.Context, session models.Owner) ([]models.PersonalSecret, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PersonalSecret), args.Error(1)
}

func (m *MockPersonalSecretService) Update(ctx context.Context, session, claimed models.Owner, id uuid.UUID, in models.SecretInput) (*models.PersonalSecret, error) {
	args := m.Called(ctx, session, claimed, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PersonalSecret), args.Error(1)
}

func (m *MockPersonalSecretService) Delete(ctx context.Context, session models.Owner, id uuid.UUID) error {
	args := m.Called(ctx, session, id)
	return args.Error(0)
}

// MockTokenService mocks the TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockTokenService) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenService) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockJWTService mocks the JWTService
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenPair(userID uuid.UUID, email string, organizationID uuid.UUID) (*services.TokenPair, error) {
	args := m.Called(userID, email, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockJWTService) ValidateRefreshToken(token string) (uuid.UUID, uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Get(1).(uuid.UUID), args.Error(2)
}

func (m *MockJWTService) RefreshExpiry() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

// MockOAuthProvider mocks an oauth.Provider
type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) GetConsentURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth.UserInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth.UserInfo), args.Error(1)
}

func (m *MockOAuthProvider) Name() string {
	args := m.Called()
	return args.String(0)
}
