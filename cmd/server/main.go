package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"lifekline-api/internal/adapters/events"
	"lifekline-api/internal/adapters/http/middleware"
	"lifekline-api/internal/adapters/http/routes"
	"lifekline-api/internal/adapters/llm"
	"lifekline-api/internal/adapters/persistence"
	"lifekline-api/internal/config"
	"lifekline-api/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "lifekline-api/docs" // Swagger docs
)

// @title Life K-Line API
// @version 1.0
// @description Prepaid accounts and usage credits for destiny report generation
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @securityDefinitions.apikey AdminKey
// @in header
// @name X-Admin-Key

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Open ledger store
	store, closeStore, err := persistence.Open(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open ledger store: %v", err)
	}
	defer closeStore()

	// Usage events are optional
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Events.AMQPURL != "" {
		mq, err := events.NewRabbitMQPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			log.Printf("⚠️ Warning: usage events disabled: %v", err)
		} else {
			publisher = mq
		}
	}
	defer publisher.Close()

	generator := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if !generator.Available() {
		log.Println("⚠️ Warning: LLM_API_KEY not set, report generation is unavailable")
	}

	svc := routes.NewServices(store, publisher, generator, cfg)

	// Start pool watcher
	cronService := services.NewCronService(svc.Ledger, services.PoolWatcherConfig{
		Spec:       cfg.Pool.CheckSpec,
		MinUnused:  cfg.Pool.MinUnused,
		RefillUses: cfg.Pool.RefillUses,
	}, cfg.Location())
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start pool watcher: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Life K-Line API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, svc, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
