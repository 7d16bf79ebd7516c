package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-erp-api/internal/middleware"
	"github.com/noah-isme/college-erp-api/internal/models"
	"github.com/noah-isme/college-erp-api/internal/service"
	appErrors "github.com/noah-isme/college-erp-api/pkg/errors"
	"github.com/noah-isme/college-erp-api/pkg/response"
)

// CookieConfig controls how session cookies are issued.
type CookieConfig struct {
	Domain string
	Secure bool
}

// AuthHandler wires one portal's session endpoints to the auth service.
// Each portal mounts its own instance bound to its principal kind.
type AuthHandler struct {
	service *service.AuthService
	kind    models.PrincipalKind
	cookies CookieConfig
}

// NewAuthHandler creates a new handler for the given portal.
func NewAuthHandler(svc *service.AuthService, kind models.PrincipalKind, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, kind: kind, cookies: cookies}
}

func (h *AuthHandler) setSessionCookies(c *gin.Context, access, refresh string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, access, maxAge, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie("refresh_token", refresh, maxAge, "/", h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
	c.SetCookie("refresh_token", "", -1, "/", h.cookies.Domain, h.cookies.Secure, true)
}

// Login godoc
// @Summary Authenticate a portal account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), h.kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, res.AccessToken, res.RefreshToken, int(res.ExpiresIn))
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Rotate the session token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Fall back to the refresh cookie for browser portals.
		if cookie, cookieErr := c.Cookie("refresh_token"); cookieErr == nil && cookie != "" {
			req.RefreshToken = cookie
		} else {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
			return
		}
	}

	res, err := h.service.Refresh(c.Request.Context(), h.kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookies(c, res.AccessToken, res.RefreshToken, int(res.ExpiresIn))
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Terminate the session
// @Tags Authentication
// @Produce json
// @Success 204
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), h.kind, claims.PrincipalID); err != nil {
		response.Error(c, err)
		return
	}

	h.clearSessionCookies(c)
	response.NoContent(c)
}

// Me godoc
// @Summary Describe the authenticated principal
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	account, err := h.service.LookupPrincipal(c.Request.Context(), h.kind, claims.PrincipalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.PrincipalInfo{
		ID:       account.ID,
		Kind:     account.Kind,
		Email:    account.Email,
		FullName: account.FullName,
	}, nil)
}

// ChangePassword godoc
// @Summary Change the principal's password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 204
// @Router /change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), h.kind, claims.PrincipalID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
