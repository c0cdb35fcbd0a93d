package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"strings"

	"lifekline-api/internal/config"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/core/services"
	"lifekline-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminKeyHeader carries the provisioning API secret
const AdminKeyHeader = "X-Admin-Key"

const accountKey = "account"

// AccountAuth resolves the bearer token to an account
func AccountAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}

		account, err := auth.Resolve(c.UserContext(), token)
		if err != nil {
			return AuthFailure(c, err)
		}

		c.Locals(accountKey, account)
		return c.Next()
	}
}

// CurrentAccount returns the account set by AccountAuth
func CurrentAccount(c *fiber.Ctx) *domain.Account {
	account, _ := c.Locals(accountKey).(*domain.Account)
	return account
}

// AuthFailure writes the response for an authentication error
func AuthFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return response.Unauthorized(c, domain.CodeAuthRequired, "Authentication required")
	case errors.Is(err, domain.ErrAuthExpired):
		return response.Unauthorized(c, domain.CodeAuthExpired, "Session expired, please log in again")
	case errors.Is(err, domain.ErrAuthInvalid), errors.Is(err, domain.ErrInvalidCredentials):
		return response.Unauthorized(c, domain.CodeAuthInvalid, "Invalid username or password")
	case errors.Is(err, domain.ErrAccountDisabled):
		return response.Forbidden(c, domain.CodeAccountDisabled, "Account is disabled")
	}
	log.Printf("❌ Auth error: %v", err)
	return response.InternalServerError(c, "Authentication failed")
}

// AdminKey guards the provisioning API with a shared secret
func AdminKey(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := cfg.Admin.APIKey
		if expected == "" {
			return response.InternalServerError(c, "Admin API key is not configured")
		}

		provided := c.Get(AdminKeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			return response.Forbidden(c, domain.CodeAdminForbidden, "Invalid admin key")
		}
		return c.Next()
	}
}
