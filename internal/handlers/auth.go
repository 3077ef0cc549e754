package handlers

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"sync"
	"time"

	"github.com/dimitrije/personal-secrets/internal/config"
	"github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/dimitrije/personal-secrets/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

const (
	stateTTL    = 10 * time.Minute
	authCodeTTL = 2 * time.Minute
)

type AuthHandler struct {
	cfg          *config.Config
	providers    map[string]oauth.Provider
	userService  UserServiceInterface
	tokenService TokenServiceInterface
	jwtService   JWTServiceInterface
	orgService   OrganizationServiceInterface
	log          logrus.FieldLogger
	states       sync.Map
	authCodes    sync.Map
}

type stateData struct {
	expiresAt time.Time
}

type authCodeData struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewAuthHandler(
	cfg *config.Config,
	providers map[string]oauth.Provider,
	userService UserServiceInterface,
	tokenService TokenServiceInterface,
	jwtService JWTServiceInterface,
	orgService OrganizationServiceInterface,
	log logrus.FieldLogger,
) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		providers:    providers,
		userService:  userService,
		tokenService: tokenService,
		jwtService:   jwtService,
		orgService:   orgService,
		log:          log,
	}
}

// CleanupStates drops expired OAuth states and one-time login codes every
// minute until ctx is done.
func (h *AuthHandler) CleanupStates(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.dropExpired(time.Now())
		}
	}
}

func (h *AuthHandler) dropExpired(now time.Time) {
	h.states.Range(func(key, value any) bool {
		if sd, ok := value.(stateData); ok && now.After(sd.expiresAt) {
			h.states.Delete(key)
		}
		return true
	})
	h.authCodes.Range(func(key, value any) bool {
		if acd, ok := value.(authCodeData); ok && now.After(acd.expiresAt) {
			h.authCodes.Delete(key)
		}
		return true
	})
}

func (h *AuthHandler) GetConsentURL(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		c.BadRequest("unsupported provider: " + provider)
		return
	}

	state, err := oauth.GenerateState()
	if err != nil {
		c.InternalServerError("failed to generate state")
		return
	}

	h.states.Store(state, stateData{expiresAt: time.Now().Add(stateTTL)})

	_ = c.JSON(200, dto.ConsentURLResponse{
		URL: p.GetConsentURL(state),
	})
}

// Callback completes the provider login and shows a one-time code that the
// client trades for tokens at ExchangeCode.
func (h *AuthHandler) Callback(c *drift.Context) {
	provider := c.Param("provider")

	p, ok := h.providers[provider]
	if !ok {
		h.renderError(c, "unsupported provider")
		return
	}

	state := c.QueryParam("state")
	if state == "" {
		h.renderError(c, "missing state parameter")
		return
	}

	sd, ok := h.states.LoadAndDelete(state)
	if !ok {
		h.renderError(c, "invalid or expired state")
		return
	}

	sdTyped, ok := sd.(stateData)
	if !ok || time.Now().After(sdTyped.expiresAt) {
		h.renderError(c, "state expired")
		return
	}

	code := c.QueryParam("code")
	if code == "" {
		h.renderError(c, "missing authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	userInfo, err := p.ExchangeCode(ctx, code)
	if err != nil {
		h.log.WithError(err).WithField("provider", provider).Warn("oauth code exchange failed")
		h.renderError(c, "failed to exchange code")
		return
	}

	user, err := h.userService.FindOrCreateFromOAuth(ctx, userInfo)
	if err != nil {
		h.log.WithError(err).WithField("provider", provider).Error("oauth user upsert failed")
		h.renderError(c, "failed to create user")
		return
	}

	authCode, err := oauth.GenerateState()
	if err != nil {
		h.renderError(c, "failed to generate auth code")
		return
	}

	h.authCodes.Store(authCode, authCodeData{
		userID:    user.ID,
		expiresAt: time.Now().Add(authCodeTTL),
	})

	redirectURL := fmt.Sprintf("%s?code=%s", h.cfg.FrontendCallbackURL, url.QueryEscape(authCode))
	h.renderCallbackPage(c, 200, redirectURL, "You're signed in", authCode)
}

func (h *AuthHandler) ExchangeCode(c *drift.Context) {
	var req dto.ExchangeCodeRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Code == "" {
		c.BadRequest("code is required")
		return
	}

	acd, ok := h.authCodes.LoadAndDelete(req.Code)
	if !ok {
		c.Unauthorized("invalid or expired code")
		return
	}

	codeData, ok := acd.(authCodeData)
	if !ok || time.Now().After(codeData.expiresAt) {
		c.Unauthorized("code expired")
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.GetByID(ctx, codeData.userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	h.issueTokens(c, user.ID, user.Email, uuid.Nil)
}

// RefreshToken rotates a refresh token. The new pair keeps the organization
// of the old one as long as the user is still a member of it.
func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	userID, orgID, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.Unauthorized("invalid refresh token")
		return
	}

	tokenHash := services.HashToken(req.RefreshToken)
	ctx := c.Request.Context()

	storedUserID, err := h.tokenService.ValidateRefreshToken(ctx, tokenHash)
	if err != nil || storedUserID != userID {
		c.Unauthorized("refresh token not found or expired")
		return
	}

	user, err := h.userService.GetByID(ctx, userID)
	if err != nil {
		c.Unauthorized("user not found")
		return
	}

	if orgID != uuid.Nil {
		member, err := h.orgService.IsMember(ctx, orgID, userID)
		if err != nil {
			c.InternalServerError("failed to check membership")
			return
		}
		if !member {
			orgID = uuid.Nil
		}
	}

	if err := h.tokenService.RevokeRefreshToken(ctx, tokenHash); err != nil {
		c.InternalServerError("failed to revoke old token")
		return
	}

	h.issueTokens(c, user.ID, user.Email, orgID)
}

// SelectOrganization issues a token pair scoped to an organization the caller
// belongs to. A refresh token sent along is revoked.
func (h *AuthHandler) SelectOrganization(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.SelectOrganizationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.OrganizationID == uuid.Nil {
		c.BadRequest("organization_id is required")
		return
	}

	ctx := c.Request.Context()

	member, err := h.orgService.IsMember(ctx, req.OrganizationID, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("membership check failed")
		c.InternalServerError("failed to check membership")
		return
	}
	if !member {
		c.Forbidden("not a member of this organization")
		return
	}

	if req.RefreshToken != "" {
		if err := h.tokenService.RevokeRefreshToken(ctx, services.HashToken(req.RefreshToken)); err != nil {
			h.log.WithError(err).WithField("user_id", userID).Warn("failed to revoke unscoped refresh token")
		}
	}

	h.issueTokens(c, userID, middleware.GetUserEmail(c), req.OrganizationID)
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		tokenHash := services.HashToken(req.RefreshToken)
		if err := h.tokenService.RevokeRefreshToken(c.Request.Context(), tokenHash); err != nil {
			h.log.WithError(err).Warn("failed to revoke refresh token on logout")
		}
	}

	_ = c.JSON(200, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.tokenService.RevokeAllUserTokens(c.Request.Context(), userID); err != nil {
		c.InternalServerError("failed to revoke tokens")
		return
	}

	_ = c.JSON(200, map[string]string{"message": "all sessions logged out"})
}

func (h *AuthHandler) issueTokens(c *drift.Context, userID uuid.UUID, email string, orgID uuid.UUID) {
	tokenPair, err := h.jwtService.GenerateTokenPair(userID, email, orgID)
	if err != nil {
		c.InternalServerError("failed to generate tokens")
		return
	}

	tokenHash := services.HashToken(tokenPair.RefreshToken)
	expiresAt := time.Now().Add(h.jwtService.RefreshExpiry())
	if err := h.tokenService.StoreRefreshToken(c.Request.Context(), userID, tokenHash, expiresAt); err != nil {
		c.InternalServerError("failed to store refresh token")
		return
	}

	_ = c.JSON(200, dto.TokenResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	})
}

func (h *AuthHandler) renderError(c *drift.Context, msg string) {
	redirectURL := fmt.Sprintf("%s?error=%s", h.cfg.FrontendCallbackURL, url.QueryEscape(msg))
	h.renderCallbackPage(c, 400, redirectURL, "Sign-in failed", msg)
}

// renderCallbackPage shows the outcome in the browser and forwards to
// deepLink. detail is the one-time code on success or the error otherwise.
func (h *AuthHandler) renderCallbackPage(c *drift.Context, status int, deepLink, heading, detail string) {
	hint := "Paste this code into psecret to finish signing in:"
	if status != 200 {
		hint = "Reason:"
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
    <style>
        body { font-family: system-ui, sans-serif; background: #f9fafb; color: #374151; padding: 40px 20px; }
        .container { max-width: 420px; margin: 0 auto; background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 32px; text-align: center; }
        code { display: block; background: #f3f4f6; padding: 8px 12px; border-radius: 6px; word-break: break-all; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
        <code id="auth-code">%s</code>
    </div>
    <script>window.location.href = %q;</script>
</body>
</html>`, html.EscapeString(heading), html.EscapeString(heading), hint, html.EscapeString(detail), deepLink)

	_ = c.HTML(status, page)
}
