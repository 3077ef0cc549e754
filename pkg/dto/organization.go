package dto

import "github.com/google/uuid"

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type OrganizationResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	OwnerID uuid.UUID `json:"owner_id"`
	Role    string    `json:"role"`
}
