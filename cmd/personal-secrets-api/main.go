package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/personal-secrets/internal/config"
	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/handlers"
	authmw "github.com/dimitrije/personal-secrets/internal/middleware"
	"github.com/dimitrije/personal-secrets/internal/oauth"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := cfg.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	orgService := services.NewOrganizationService(db)
	secretService := services.NewPersonalSecretService(services.NewPersonalSecretStore(db))

	providers := oauth.NewProviders(cfg)
	if len(providers) == 0 {
		log.Warn("No OAuth providers configured; sign-in is disabled")
	}

	authHandler := handlers.NewAuthHandler(cfg, providers, userService, tokenService, jwtService, orgService, log)
	userHandler := handlers.NewUserHandler(userService)
	orgHandler := handlers.NewOrganizationHandler(orgService, log)
	secretHandler := handlers.NewPersonalSecretHandler(secretService, log)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())
	app.Use(authmw.RequestLogger(log))

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Get("/:provider/consent", authHandler.GetConsentURL)
	auth.Get("/:provider/callback", authHandler.Callback)
	auth.Post("/exchange", authHandler.ExchangeCode)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)
	protected.Post("/auth/organization", authHandler.SelectOrganization)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/organizations", orgHandler.List)
	protected.Post("/organizations", orgHandler.Create)

	secrets := protected.Group("/personal-secrets")
	secrets.Use(authmw.RequireOrganization())
	secrets.Post("", secretHandler.Create)
	secrets.Get("", secretHandler.List)
	secrets.Get("/:id", secretHandler.Get)
	secrets.Put("/:id", secretHandler.Update)
	secrets.Delete("/:id", secretHandler.Delete)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go authHandler.CleanupStates(ctx)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := tokenService.CleanupExpired(ctx)
				if err != nil {
					log.WithError(err).Error("Failed to clean up expired refresh tokens")
					continue
				}
				log.WithField("removed", removed).Debug("Cleaned up expired refresh tokens")
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.WithField("addr", addr).Info("Server starting")
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
}
