package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Session is the signed-in state persisted between invocations. The private
// key is never written here.
type Session struct {
	Email            string    `json:"email,omitempty"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name,omitempty"`

	path string
}

func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{path: path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	s.path = path
	return &s, nil
}

func (s *Session) LoggedIn() bool {
	return s.RefreshToken != ""
}

func (s *Session) HasOrganization() bool {
	return s.OrganizationID != uuid.Nil
}

// Expired reports whether the access token expires within leeway of now.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	return s.AccessToken == "" || !now.Add(leeway).Before(s.ExpiresAt)
}

func (s *Session) SetTokens(access, refresh string, expiresIn int64, now time.Time) {
	s.AccessToken = access
	s.RefreshToken = refresh
	s.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
}

func (s *Session) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *Session) Clear() error {
	path := s.path
	*s = Session{path: path}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
