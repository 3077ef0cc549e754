package dto

import "github.com/google/uuid"

type ConsentURLResponse struct {
	URL string `json:"url"`
}

type ExchangeCodeRequest struct {
	Code string `json:"code"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SelectOrganizationRequest scopes a new session to one organization.
type SelectOrganizationRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
}
