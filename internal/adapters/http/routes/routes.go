package routes

import (
	"lifekline-api/internal/adapters/events"
	"lifekline-api/internal/adapters/http/handlers"
	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/adapters/persistence/repositories"
	"lifekline-api/internal/config"
	"lifekline-api/internal/core/services"
	"lifekline-api/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Services holds the wired application services
type Services struct {
	Store      repositories.LedgerStore
	Ledger     *services.LedgerService
	Auth       *services.AuthService
	Generation *services.GenerationService
	Admin      *services.AdminService
}

// NewServices wires the services on top of a ledger store
func NewServices(store repositories.LedgerStore, publisher events.Publisher, generator services.Generator, cfg *config.Config) *Services {
	credentials := services.NewCredentialService(cfg.Password.BcryptCost, cfg.Location())
	ledger := services.NewLedgerService(store, publisher, credentials)
	tokens := jwt.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.TokenTTL())

	return &Services{
		Store:      store,
		Ledger:     ledger,
		Auth:       services.NewAuthService(ledger, tokens),
		Generation: services.NewGenerationService(ledger, generator),
		Admin:      services.NewAdminService(ledger),
	}
}

// Setup configures all routes for the application
func Setup(app *fiber.App, svc *Services, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Store, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(svc.Auth)
	generateHandler := handlers.NewGenerateHandler(svc.Generation)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	requireAccount := middleware.AccountAuth(svc.Auth)

	// ============================================================
	// Public routes
	// ============================================================
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api", middleware.NoCacheHeaders())

	// ============================================================
	// Auth routes
	// ============================================================
	auth := api.Group("/auth")
	auth.Post("/login", middleware.LoginRateLimiter(), authHandler.Login)
	auth.Post("/logout", requireAccount, authHandler.Logout)
	auth.Get("/me", requireAccount, authHandler.Me)

	// ============================================================
	// Generation routes (one use per successful report)
	// ============================================================
	generate := api.Group("/generate", requireAccount)
	generate.Post("/", generateHandler.Main)
	generate.Post("/wealth", generateHandler.Wealth)
	generate.Post("/love", generateHandler.Love)
	generate.Get("/status", generateHandler.Status)

	// ============================================================
	// Admin routes (X-Admin-Key)
	// ============================================================
	admin := api.Group("/admin", middleware.AdminKey(cfg))
	accounts := admin.Group("/accounts")
	accounts.Post("/generate", adminHandler.GenerateAccounts)
	accounts.Post("/allocate", adminHandler.Allocate)
	accounts.Post("/recycle", adminHandler.Recycle)
	accounts.Get("/pool", adminHandler.Pool)
	accounts.Get("/list", adminHandler.List)
	accounts.Post("/:id/disable", adminHandler.Disable)
	accounts.Get("/:id/usage", adminHandler.Usage)
}
