package response

import "github.com/gofiber/fiber/v2"

// Response represents a standard API response
type Response struct {
	Success       bool        `json:"success"`
	Message       string      `json:"message,omitempty"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	ErrorCode     string      `json:"errorCode,omitempty"`
	RemainingUses *int        `json:"remainingUses,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessWithBalance sends a success response carrying the post-operation balance
func SuccessWithBalance(c *fiber.Ctx, message string, data interface{}, remaining int) error {
	return c.JSON(Response{
		Success:       true,
		Message:       message,
		Data:          data,
		RemainingUses: &remaining,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// Fail sends an error response with a stable machine-readable code
func Fail(c *fiber.Ctx, statusCode int, code, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success:   false,
		Error:     message,
		ErrorCode: code,
	})
}

// FailWithBalance sends an error response that also reports the authoritative balance
func FailWithBalance(c *fiber.Ctx, statusCode int, code, message string, remaining int) error {
	return c.Status(statusCode).JSON(Response{
		Success:       false,
		Error:         message,
		ErrorCode:     code,
		RemainingUses: &remaining,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusBadRequest, "INVALID_INPUT", message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, code, message string) error {
	return Fail(c, fiber.StatusUnauthorized, code, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, code, message string) error {
	return Fail(c, fiber.StatusForbidden, code, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusNotFound, "NOT_FOUND", message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", message)
}
