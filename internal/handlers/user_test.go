package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/dimitrije/personal-secrets/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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

// serve sends one request through app. A non-empty token is sent as a bearer
// token and a non-nil body is JSON encoded unless it is already a string.
func serve(app http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func newUserApp(handler *UserHandler, jwtSvc *services.JWTService) http.Handler {
	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Get("/users/me", handler.GetMe)
	app.Patch("/users/me", handler.UpdateMe)
	return app
}

func TestUserHandler_GetMe_Success(t *testing.T) {
	mockUserService := new(testutil.MockUserService)
	jwtSvc := newTestJWTService()
	app := newUserApp(NewUserHandler(mockUserService), jwtSvc)

	userID := uuid.New()
	avatarURL := "https://example.com/avatar.png"
	mockUserService.On("GetByID", mock.Anything, userID).Return(&models.User{
		ID:        userID,
		Email:     "test@example.com",
		Name:      "Test User",
		AvatarURL: &avatarURL,
		Provider:  "github",
	}, nil)

	rec := serve(app, http.MethodGet, "/users/me", generateTestToken(t, jwtSvc, userID, "test@example.com", uuid.Nil), nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, userID, response.ID)
	assert.Equal(t, "Test User", response.Name)
	assert.Equal(t, &avatarURL, response.AvatarURL)
	assert.Equal(t, "github", response.Provider)

	mockUserService.AssertExpectations(t)
}

func TestUserHandler_GetMe_NotAuthenticated(t *testing.T) {
	app := newUserApp(NewUserHandler(new(testutil.MockUserService)), newTestJWTService())

	rec := serve(app, http.MethodGet, "/users/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler_GetMe_UserNotFound(t *testing.T) {
	mockUserService := new(testutil.MockUserService)
	jwtSvc := newTestJWTService()
	app := newUserApp(NewUserHandler(mockUserService), jwtSvc)
	userID := uuid.New()

	mockUserService.On("GetByID", mock.Anything, userID).Return(nil, services.ErrUserNotFound)

	rec := serve(app, http.MethodGet, "/users/me", generateTestToken(t, jwtSvc, userID, "test@example.com", uuid.Nil), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")
	mockUserService.AssertExpectations(t)
}

func TestUserHandler_UpdateMe_Success(t *testing.T) {
	mockUserService := new(testutil.MockUserService)
	jwtSvc := newTestJWTService()
	app := newUserApp(NewUserHandler(mockUserService), jwtSvc)
	userID := uuid.New()

	mockUserService.On("Update", mock.Anything, userID, "Updated Name").Return(&models.User{
		ID:       userID,
		Email:    "test@example.com",
		Name:     "Updated Name",
		Provider: "github",
	}, nil)

	rec := serve(app, http.MethodPatch, "/users/me", generateTestToken(t, jwtSvc, userID, "test@example.com", uuid.Nil),
		dto.UpdateUserRequest{Name: "Updated Name"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Updated Name", response.Name)
	mockUserService.AssertExpectations(t)
}

func TestUserHandler_UpdateMe_BadRequests(t *testing.T) {
	jwtSvc := newTestJWTService()
	app := newUserApp(NewUserHandler(new(testutil.MockUserService)), jwtSvc)
	token := generateTestToken(t, jwtSvc, uuid.New(), "test@example.com", uuid.Nil)

	testCases := []struct {
		name    string
		body    any
		message string
	}{
		{"empty name", dto.UpdateUserRequest{Name: ""}, "name is required"},
		{"invalid json", "invalid json", "invalid request body"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(app, http.MethodPatch, "/users/me", token, tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.message)
		})
	}
}

func TestUserHandler_UpdateMe_ServiceError(t *testing.T) {
	mockUserService := new(testutil.MockUserService)
	jwtSvc := newTestJWTService()
	app := newUserApp(NewUserHandler(mockUserService), jwtSvc)
	userID := uuid.New()

	mockUserService.On("Update", mock.Anything, userID, "New Name").Return(nil, errors.New("database error"))

	rec := serve(app, http.MethodPatch, "/users/me", generateTestToken(t, jwtSvc, userID, "test@example.com", uuid.Nil),
		dto.UpdateUserRequest{Name: "New Name"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	mockUserService.AssertExpectations(t)
}
