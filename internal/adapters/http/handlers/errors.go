package handlers

import (
	"errors"
	"log"

	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/core/domain"
	"lifekline-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// requestMeta captures the request context recorded in usage logs.
// Values are copied out of the request buffer, which fasthttp reuses.
func requestMeta(c *fiber.Ctx) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}
}

// fail maps a domain error onto the API error envelope
func fail(c *fiber.Ctx, err error) error {
	var (
		insufficient *domain.InsufficientCreditsError
		upstream     *domain.UpstreamError
	)
	switch {
	case errors.As(err, &insufficient):
		return response.FailWithBalance(c, fiber.StatusForbidden, domain.CodeInsufficientUses,
			"No remaining uses, please purchase more", insufficient.Remaining)
	case errors.Is(err, domain.ErrInsufficientCredits):
		return response.FailWithBalance(c, fiber.StatusForbidden, domain.CodeInsufficientUses,
			"No remaining uses, please purchase more", 0)
	case errors.Is(err, domain.ErrPoolExhausted):
		return response.Fail(c, fiber.StatusServiceUnavailable, domain.CodePoolExhausted,
			"Account pool exhausted, generate more accounts")
	case errors.Is(err, domain.ErrServiceUnavailable):
		return response.Fail(c, fiber.StatusServiceUnavailable, domain.CodeServiceUnavailable,
			"Generation service is not configured")
	case errors.As(err, &upstream) && upstream.Remaining != nil:
		return response.FailWithBalance(c, fiber.StatusBadGateway, domain.CodeAIError,
			"AI generation failed, no use was charged", *upstream.Remaining)
	case errors.Is(err, domain.ErrUpstreamFailed):
		return response.Fail(c, fiber.StatusBadGateway, domain.CodeAIError,
			"AI generation failed, no use was charged")
	case errors.Is(err, domain.ErrAllocationNotFound):
		return response.NotFound(c, "No account is allocated to this order")
	case errors.Is(err, domain.ErrAccountNotFound):
		return response.NotFound(c, "Account not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.Fail(c, fiber.StatusConflict, domain.CodeInvalidState,
			"Account is not in a state that allows this operation")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrAuthRequired),
		errors.Is(err, domain.ErrAuthExpired),
		errors.Is(err, domain.ErrAuthInvalid),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountDisabled):
		return middleware.AuthFailure(c, err)
	case errors.Is(err, domain.ErrStorageConflict):
		log.Printf("❌ Storage conflict on %s: %v", c.Path(), err)
		return response.InternalServerError(c, "Server busy, check your balance before retrying")
	}

	log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
	return response.InternalServerError(c, "Internal Server Error")
}
