package middleware

import (
	"strings"

	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey         = "user_id"
	UserEmailKey      = "user_email"
	OrganizationIDKey = "organization_id"
)

// TokenValidator is satisfied by *services.JWTService.
type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

func Auth(validator TokenValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := validator.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(OrganizationIDKey, claims.OrganizationID)

		c.Next()
	}
}

// RequireOrganization must run after Auth. It rejects sessions that have not
// selected an organization yet.
func RequireOrganization() drift.HandlerFunc {
	return func(c *drift.Context) {
		if GetOrganizationID(c) == uuid.Nil {
			c.Forbidden("organization not selected")
			return
		}
		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	return getUUID(c, UserIDKey)
}

func GetOrganizationID(c *drift.Context) uuid.UUID {
	return getUUID(c, OrganizationIDKey)
}

// GetSession returns the owner pair of the verified session.
func GetSession(c *drift.Context) models.Owner {
	return models.Owner{
		UserID:         GetUserID(c),
		OrganizationID: GetOrganizationID(c),
	}
}

func GetUserEmail(c *drift.Context) string {
	if email, ok := c.Get(UserEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}

func getUUID(c *drift.Context, key string) uuid.UUID {
	if v, ok := c.Get(key); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
