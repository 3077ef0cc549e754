package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
)

// fakeAPI is an in-memory stand-in for the personal secrets server.
type fakeAPI struct {
	mu      sync.Mutex
	token   string
	userID  uuid.UUID
	orgs    []dto.OrganizationResponse
	order   []uuid.UUID
	records map[uuid.UUID]dto.PersonalSecretResponse
	orgID   uuid.UUID

	refreshed bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		token:   "access-1",
		userID:  uuid.New(),
		records: map[uuid.UUID]dto.PersonalSecretResponse{},
	}
	f.orgs = []dto.OrganizationResponse{{ID: uuid.New(), Name: "Acme", Role: "owner"}}
	f.orgID = f.orgs[0].ID

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/auth/{provider}/consent", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.ConsentURLResponse{URL: "https://example.test/login/" + r.PathValue("provider")})
	})
	mux.HandleFunc("POST /api/v1/auth/exchange", func(w http.ResponseWriter, r *http.Request) {
		var req dto.ExchangeCodeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Code != "good-code" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired code"})
			return
		}
		writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: f.token, RefreshToken: "refresh-1", ExpiresIn: 900})
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshed = true
		f.token = "access-refreshed"
		writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: f.token, RefreshToken: "refresh-2", ExpiresIn: 900})
	})
	mux.HandleFunc("POST /api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	})
	mux.HandleFunc("POST /api/v1/auth/organization", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req dto.SelectOrganizationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, dto.TokenResponse{AccessToken: f.token, RefreshToken: "refresh-org", ExpiresIn: 900})
	}))
	mux.HandleFunc("GET /api/v1/users/me", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.UserResponse{ID: f.userID, Email: "alice@example.com"})
	}))
	mux.HandleFunc("GET /api/v1/organizations", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, f.orgs)
	}))
	mux.HandleFunc("POST /api/v1/personal-secrets", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req dto.PersonalSecretRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		now := time.Now().UTC().Format(time.RFC3339)
		rec := dto.PersonalSecretResponse{
			ID:             uuid.New(),
			UserID:         f.userID,
			OrganizationID: f.orgID,
			Algorithm:      "aes-256-gcm",
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		setFields(&rec, req)
		f.order = append(f.order, rec.ID)
		f.records[rec.ID] = rec
		writeJSON(w, http.StatusCreated, rec.ID.String())
	}))
	mux.HandleFunc("GET /api/v1/personal-secrets", f.authed(func(w http.ResponseWriter, r *http.Request) {
		list := []dto.PersonalSecretResponse{}
		for _, id := range f.order {
			if rec, ok := f.records[id]; ok {
				list = append(list, rec)
			}
		}
		writeJSON(w, http.StatusOK, list)
	}))
	mux.HandleFunc("GET /api/v1/personal-secrets/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := f.lookup(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "personal secret not found"})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}))
	mux.HandleFunc("PUT /api/v1/personal-secrets/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := f.lookup(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "personal secret not found"})
			return
		}
		var req dto.UpdatePersonalSecretRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.OrganizationID != nil && *req.OrganizationID != f.orgID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "unauthorized to modify personal secret"})
			return
		}
		setFields(&rec, req.PersonalSecretRequest)
		f.records[rec.ID] = rec
		writeJSON(w, http.StatusOK, rec)
	}))
	mux.HandleFunc("DELETE /api/v1/personal-secrets/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := f.lookup(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "personal secret not found"})
			return
		}
		delete(f.records, rec.ID)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) lookup(r *http.Request) (dto.PersonalSecretResponse, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return dto.PersonalSecretResponse{}, false
	}
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func setFields(rec *dto.PersonalSecretResponse, req dto.PersonalSecretRequest) {
	rec.SecretType = req.SecretType
	rec.SecretNameCipher = req.SecretNameCipher
	rec.SecretNameIV = req.SecretNameIV
	rec.SecretNameAuthTag = req.SecretNameAuthTag
	rec.SecretValueCipher = req.SecretValueCipher
	rec.SecretValueIV = req.SecretValueIV
	rec.SecretValueAuthTag = req.SecretValueAuthTag
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
