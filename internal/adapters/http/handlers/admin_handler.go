package handlers

import (
	"lifekline-api/internal/core/services"
	"lifekline-api/internal/pkg/pagination"
	"lifekline-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles the account provisioning endpoints
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// GenerateAccounts creates a batch of pool accounts
// @Summary Generate accounts
// @Description Create up to 1000 unused accounts in one call
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminKey
// @Param body body services.GenerateAccountsInput true "Batch size and uses per account"
// @Success 200 {object} response.Response{data=services.GenerateAccountsResult}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/accounts/generate [post]
func (h *AdminHandler) GenerateAccounts(c *fiber.Ctx) error {
	var input services.GenerateAccountsInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	result, err := h.adminService.GenerateAccounts(c.UserContext(), &input)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Accounts generated", result)
}

// Allocate hands a pool account to an order
// @Summary Allocate account
// @Description Bind an unused account to an order; repeating the call returns the same account
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminKey
// @Param body body services.AllocateInput true "Order"
// @Success 200 {object} response.Response{data=services.AllocationResult}
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /admin/accounts/allocate [post]
func (h *AdminHandler) Allocate(c *fiber.Ctx) error {
	var input services.AllocateInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.adminService.Allocate(c.UserContext(), &input)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessWithBalance(c, "", result, result.RemainingUses)
}

// Recycle returns an order's account to the pool
// @Summary Recycle account
// @Description Release the account bound to a cancelled order if it was never logged in
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminKey
// @Param body body services.RecycleInput true "Order"
// @Success 200 {object} response.Response{data=services.RecycleResult}
// @Failure 404 {object} response.Response
// @Router /admin/accounts/recycle [post]
func (h *AdminHandler) Recycle(c *fiber.Ctx) error {
	var input services.RecycleInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.adminService.Recycle(c.UserContext(), &input)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "", result)
}

// Pool reports pool statistics
// @Summary Pool status
// @Tags Admin
// @Produce json
// @Security AdminKey
// @Success 200 {object} response.Response{data=domain.PoolStatus}
// @Router /admin/accounts/pool [get]
func (h *AdminHandler) Pool(c *fiber.Ctx) error {
	status, err := h.adminService.PoolStatus(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "", status)
}

// List lists accounts
// @Summary List accounts
// @Tags Admin
// @Produce json
// @Security AdminKey
// @Param status query string false "unused, active, expired or disabled"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} response.Response{data=services.AccountListResponse}
// @Router /admin/accounts/list [get]
func (h *AdminHandler) List(c *fiber.Ctx) error {
	result, err := h.adminService.ListAccounts(c.UserContext(), c.Query("status"), pagination.FromQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "", result)
}

// Disable disables an account
// @Summary Disable account
// @Tags Admin
// @Produce json
// @Security AdminKey
// @Param id path string true "Account ID"
// @Success 200 {object} response.Response{data=models.AccountResponse}
// @Failure 404 {object} response.Response
// @Router /admin/accounts/{id}/disable [post]
func (h *AdminHandler) Disable(c *fiber.Ctx) error {
	result, err := h.adminService.Disable(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Account disabled", result)
}

// Usage lists an account's usage log
// @Summary Account usage log
// @Tags Admin
// @Produce json
// @Security AdminKey
// @Param id path string true "Account ID"
// @Param limit query int false "Entries to return (max 100)" default(50)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/accounts/{id}/usage [get]
func (h *AdminHandler) Usage(c *fiber.Ctx) error {
	entries, err := h.adminService.UsageHistory(c.UserContext(), c.Params("id"), c.QueryInt("limit", services.DefaultUsageLogLimit))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "", entries)
}
