package handlers

import (
	"errors"
	"time"

	"github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

const personalSecretNotFound = "personal secret not found"

// PersonalSecretHandler exposes the personal secret service over REST. The
// owner of every operation is the session set by middleware.Auth; owner
// fields in request bodies are only ever compared against it.
type PersonalSecretHandler struct {
	secretService PersonalSecretServiceInterface
	log           logrus.FieldLogger
}

func NewPersonalSecretHandler(secretService PersonalSecretServiceInterface, log logrus.FieldLogger) *PersonalSecretHandler {
	return &PersonalSecretHandler{secretService: secretService, log: log}
}

func (h *PersonalSecretHandler) Create(c *drift.Context) {
	session := middleware.GetSession(c)

	var req dto.PersonalSecretRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	in := toSecretInput(req)
	if err := in.Validate(); err != nil {
		c.BadRequest(err.Error())
		return
	}

	secret, err := h.secretService.Create(c.Request.Context(), session, in)
	if err != nil {
		h.fail(c, err, session, uuid.Nil, "create")
		return
	}

	_ = c.JSON(201, secret.ID.String())
}

func (h *PersonalSecretHandler) Get(c *drift.Context) {
	session := middleware.GetSession(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound(personalSecretNotFound)
		return
	}

	secret, err := h.secretService.Get(c.Request.Context(), session, id)
	if err != nil {
		h.fail(c, err, session, id, "get")
		return
	}

	_ = c.JSON(200, toPersonalSecretResponse(secret))
}

func (h *PersonalSecretHandler) List(c *drift.Context) {
	session := middleware.GetSession(c)

	secrets, err := h.secretService.List(c.Request.Context(), session)
	if err != nil {
		h.fail(c, err, session, uuid.Nil, "list")
		return
	}

	response := make([]dto.PersonalSecretResponse, len(secrets))
	for i := range secrets {
		response[i] = toPersonalSecretResponse(&secrets[i])
	}

	_ = c.JSON(200, response)
}

func (h *PersonalSecretHandler) Update(c *drift.Context) {
	session := middleware.GetSession(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound(personalSecretNotFound)
		return
	}

	var req dto.UpdatePersonalSecretRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	in := toSecretInput(req.PersonalSecretRequest)
	if err := in.Validate(); err != nil {
		c.BadRequest(err.Error())
		return
	}

	claimed := session
	if req.UserID != nil {
		claimed.UserID = *req.UserID
	}
	if req.OrganizationID != nil {
		claimed.OrganizationID = *req.OrganizationID
	}

	secret, err := h.secretService.Update(c.Request.Context(), session, claimed, id, in)
	if err != nil {
		h.fail(c, err, session, id, "update")
		return
	}

	_ = c.JSON(200, toPersonalSecretResponse(secret))
}

func (h *PersonalSecretHandler) Delete(c *drift.Context) {
	session := middleware.GetSession(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.NotFound(personalSecretNotFound)
		return
	}

	if err := h.secretService.Delete(c.Request.Context(), session, id); err != nil {
		h.fail(c, err, session, id, "delete")
		return
	}

	_ = c.JSON(200, dto.SuccessResponse{Success: true})
}

// fail logs every service error and maps it to a response. Storage details
// never reach the client.
func (h *PersonalSecretHandler) fail(c *drift.Context, err error, session models.Owner, id uuid.UUID, op string) {
	entry := h.log.WithError(err).WithFields(logrus.Fields{
		"op":              op,
		"user_id":         session.UserID.String(),
		"organization_id": session.OrganizationID.String(),
	})
	if id != uuid.Nil {
		entry = entry.WithField("personal_secret_id", id.String())
	}

	switch {
	case errors.Is(err, services.ErrPersonalSecretNotFound):
		entry.Info("personal secret not found")
		c.NotFound(personalSecretNotFound)
	case errors.Is(err, services.ErrUnauthorizedOwner):
		entry.Warn("personal secret owner mismatch")
		c.Forbidden("unauthorized to modify personal secret")
	case errors.Is(err, services.ErrInvalidSession):
		entry.Warn("personal secret request without organization")
		c.Forbidden("organization not selected")
	case errors.Is(err, models.ErrInvalidSecret):
		entry.Info("invalid personal secret")
		c.BadRequest(err.Error())
	default:
		entry.Error("personal secret operation failed")
		c.InternalServerError("failed to " + op + " personal secret")
	}
}

func toSecretInput(req dto.PersonalSecretRequest) models.SecretInput {
	return models.SecretInput{
		Type: models.SecretType(req.SecretType),
		Name: models.CipherField{
			Ciphertext: req.SecretNameCipher,
			IV:         req.SecretNameIV,
			AuthTag:    req.SecretNameAuthTag,
		},
		Value: models.CipherField{
			Ciphertext: req.SecretValueCipher,
			IV:         req.SecretValueIV,
			AuthTag:    req.SecretValueAuthTag,
		},
	}
}

func toPersonalSecretResponse(s *models.PersonalSecret) dto.PersonalSecretResponse {
	return dto.PersonalSecretResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		OrganizationID:     s.OrganizationID,
		SecretType:         string(s.Type),
		SecretNameCipher:   s.Name.Ciphertext,
		SecretNameIV:       s.Name.IV,
		SecretNameAuthTag:  s.Name.AuthTag,
		SecretValueCipher:  s.Value.Ciphertext,
		SecretValueIV:      s.Value.IV,
		SecretValueAuthTag: s.Value.AuthTag,
		Algorithm:          s.Algorithm,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          s.UpdatedAt.Format(time.RFC3339),
	}
}
