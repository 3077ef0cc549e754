package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
}

func generateTestToken(t *testing.T, jwtSvc *services.JWTService, userID uuid.UUID, email string, orgID uuid.UUID) string {
	t.Helper()
	pair, err := jwtSvc.GenerateTokenPair(userID, email, orgID)
	require.NoError(t, err)
	return pair.AccessToken
}

func newProtectedApp(validator TokenValidator, handlers ...drift.HandlerFunc) http.Handler {
	app := drift.New()
	app.Use(Auth(validator))
	for _, h := range handlers {
		app.Use(h)
	}
	app.Get("/protected", func(c *drift.Context) {
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return app
}

func get(app http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestAuth_RejectsBadHeaders(t *testing.T) {
	app := newProtectedApp(newTestJWTService())

	testCases := []struct {
		name          string
		authorization string
		message       string
	}{
		{"missing header", "", "missing authorization header"},
		{"wrong scheme", "Token some-token", "invalid authorization header format"},
		{"scheme only", "Bearer", "invalid authorization header format"},
		{"garbage token", "Bearer invalid-token", "invalid or expired token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(app, tc.authorization)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.message)
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	jwtSvc := services.NewJWTService("test-secret-key", 1*time.Millisecond, 24*time.Hour)
	token := generateTestToken(t, jwtSvc, uuid.New(), "test@example.com", uuid.New())

	time.Sleep(10 * time.Millisecond)

	rec := get(newProtectedApp(jwtSvc), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuth_WrongSecret(t *testing.T) {
	other := services.NewJWTService("secret-1", 15*time.Minute, 24*time.Hour)
	token := generateTestToken(t, other, uuid.New(), "test@example.com", uuid.New())

	rec := get(newProtectedApp(newTestJWTService()), "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidTokenExposesSession(t *testing.T) {
	jwtSvc := newTestJWTService()
	userID, orgID := uuid.New(), uuid.New()
	token := generateTestToken(t, jwtSvc, userID, "test@example.com", orgID)

	var session models.Owner
	var email string

	app := drift.New()
	app.Use(Auth(jwtSvc))
	app.Get("/protected", func(c *drift.Context) {
		session = GetSession(c)
		email = GetUserEmail(c)
		_ = c.JSON(http.StatusOK, nil)
	})

	rec := get(app, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.Owner{UserID: userID, OrganizationID: orgID}, session)
	assert.Equal(t, "test@example.com", email)
}

func TestAuth_BearerCaseInsensitive(t *testing.T) {
	jwtSvc := newTestJWTService()
	token := generateTestToken(t, jwtSvc, uuid.New(), "test@example.com", uuid.Nil)
	app := newProtectedApp(jwtSvc)

	for _, bearer := range []string{"bearer", "BEARER", "BeArEr"} {
		t.Run(bearer, func(t *testing.T) {
			rec := get(app, bearer+" "+token)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRequireOrganization(t *testing.T) {
	jwtSvc := newTestJWTService()
	app := newProtectedApp(jwtSvc, RequireOrganization())

	t.Run("no organization selected", func(t *testing.T) {
		token := generateTestToken(t, jwtSvc, uuid.New(), "test@example.com", uuid.Nil)

		rec := get(app, "Bearer "+token)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "organization not selected")
	})

	t.Run("organization selected", func(t *testing.T) {
		token := generateTestToken(t, jwtSvc, uuid.New(), "test@example.com", uuid.New())

		rec := get(app, "Bearer "+token)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestGetSession_NotSet(t *testing.T) {
	app := drift.New()

	var session models.Owner
	var email string
	app.Get("/protected", func(c *drift.Context) {
		session = GetSession(c)
		email = GetUserEmail(c)
		_ = c.JSON(http.StatusOK, nil)
	})

	get(app, "")

	assert.False(t, session.Valid())
	assert.Equal(t, uuid.Nil, session.UserID)
	assert.Equal(t, "", email)
}
