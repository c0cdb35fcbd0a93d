package handlers

import (
	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/core/services"
	"lifekline-api/internal/pkg/bazi"
	"lifekline-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GenerateHandler handles report generation endpoints
type GenerateHandler struct {
	generationService *services.GenerationService
}

// NewGenerateHandler creates a new generate handler
func NewGenerateHandler(generationService *services.GenerationService) *GenerateHandler {
	return &GenerateHandler{generationService: generationService}
}

// GenerateRequest wraps the birth chart computed on the client
type GenerateRequest struct {
	BaziInfo *bazi.Info `json:"baziInfo"`
}

// GenerationStatus reports whether the account can generate
type GenerationStatus struct {
	RemainingUses    int  `json:"remainingUses"`
	CanGenerate      bool `json:"canGenerate"`
	ServiceAvailable bool `json:"serviceAvailable"`
}

// Main generates the life K-line report
// @Summary Generate main report
// @Description Generate the life K-line report; one use is charged only if generation succeeds
// @Tags Generate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateRequest true "Birth chart"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 502 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /generate [post]
func (h *GenerateHandler) Main(c *fiber.Ctx) error {
	return h.generate(c, bazi.KindMain)
}

// Wealth generates the wealth analysis
// @Summary Generate wealth analysis
// @Tags Generate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateRequest true "Birth chart"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /generate/wealth [post]
func (h *GenerateHandler) Wealth(c *fiber.Ctx) error {
	return h.generate(c, bazi.KindWealth)
}

// Love generates the relationship analysis
// @Summary Generate love analysis
// @Tags Generate
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body GenerateRequest true "Birth chart"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /generate/love [post]
func (h *GenerateHandler) Love(c *fiber.Ctx) error {
	return h.generate(c, bazi.KindLove)
}

// Status reports the remaining balance
// @Summary Generation status
// @Tags Generate
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=GenerationStatus}
// @Router /generate/status [get]
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	account := middleware.CurrentAccount(c)
	return response.Success(c, "", GenerationStatus{
		RemainingUses:    account.RemainingUses,
		CanGenerate:      account.RemainingUses > 0,
		ServiceAvailable: h.generationService.Available(),
	})
}

func (h *GenerateHandler) generate(c *fiber.Ctx, kind bazi.Kind) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BaziInfo == nil {
		return response.BadRequest(c, "baziInfo is required")
	}

	account := middleware.CurrentAccount(c)
	result, err := h.generationService.GenerateReport(c.UserContext(), account.ID, kind, req.BaziInfo, requestMeta(c))
	if err != nil {
		return fail(c, err)
	}

	return response.SuccessWithBalance(c, "", result.Data, result.RemainingUses)
}
