package handlers

import (
	"strings"

	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/adapters/persistence/models"
	"lifekline-api/internal/core/services"
	"lifekline-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles account login
// @Summary Login
// @Description Authenticate with a purchased account and receive a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response{data=services.LoginResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "Username and password are required")
	}

	result, err := h.authService.Login(c.UserContext(), &services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}, requestMeta(c))
	if err != nil {
		return fail(c, err)
	}

	return response.Success(c, "Login successful", result)
}

// Logout records a logout
// @Summary Logout
// @Description Record a logout. The token stays valid until it expires; clients discard it.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	if err := h.authService.Logout(c.UserContext(), account.ID, requestMeta(c)); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Logged out", nil)
}

// Me returns the current account
// @Summary Current account
// @Description Get the authenticated account's balance and status
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.ProfileResponse}
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	return response.SuccessWithBalance(c, "", models.NewProfileResponse(account), account.RemainingUses)
}
