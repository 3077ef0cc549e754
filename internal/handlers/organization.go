package handlers

import (
	"github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

type OrganizationHandler struct {
	orgService OrganizationServiceInterface
	log        logrus.FieldLogger
}

func NewOrganizationHandler(orgService OrganizationServiceInterface, log logrus.FieldLogger) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService, log: log}
}

func (h *OrganizationHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateOrganizationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("create organization failed")
		c.InternalServerError("failed to create organization")
		return
	}

	_ = c.JSON(201, dto.OrganizationResponse{
		ID:      org.ID,
		Name:    org.Name,
		OwnerID: org.OwnerID,
		Role:    models.RoleOwner,
	})
}

func (h *OrganizationHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	orgs, roles, err := h.orgService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("list organizations failed")
		c.InternalServerError("failed to get organizations")
		return
	}

	response := make([]dto.OrganizationResponse, len(orgs))
	for i, org := range orgs {
		response[i] = dto.OrganizationResponse{
			ID:      org.ID,
			Name:    org.Name,
			OwnerID: org.OwnerID,
			Role:    roles[i],
		}
	}

	_ = c.JSON(200, response)
}
