package handlers

import (
	"errors"

	"github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type UserHandler struct {
	userService UserServiceInterface
}

func NewUserHandler(userService UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if errors.Is(err, services.ErrUserNotFound) {
		c.NotFound("user not found")
		return
	}
	if err != nil {
		c.InternalServerError("failed to load user")
		return
	}

	_ = c.JSON(200, toUserResponse(user))
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	user, err := h.userService.Update(c.Request.Context(), userID, req.Name)
	if err != nil {
		c.InternalServerError("failed to update user")
		return
	}

	_ = c.JSON(200, toUserResponse(user))
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Provider:  user.Provider,
	}
}
