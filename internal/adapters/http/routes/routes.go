package routes

import (
	"time"

	"latanda-core/internal/adapters/http/handlers"
	"latanda-core/internal/adapters/http/middleware"
	"latanda-core/internal/adapters/persistence/repositories"
	"latanda-core/internal/config"
	"latanda-core/internal/core/ratelimit"
	"latanda-core/internal/core/risk"
	"latanda-core/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	contribRepo := repositories.NewContributionRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)

	// Security: sliding-window limiter + risk scorer share one store so
	// the scorer sees every request the limiter counted. The tolerant
	// auth pass runs first so both gates key authenticated traffic by
	// user ID instead of source address.
	store := ratelimit.NewStore(ratelimit.DefaultPolicies())
	scorer := risk.NewScorer(store, cfg.Security.VPNRanges, cfg.Security.MaliciousIPs)
	app.Use(middleware.OptionalAuth(cfg))
	app.Use(middleware.RateLimit(store))
	app.Use(middleware.RiskGate(scorer, eventRepo))

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	rotationService := services.NewRotationService(groupRepo)
	contributionService := services.NewContributionService(contribRepo, groupRepo, userRepo)
	notifyService := services.NewNotificationService(cfg.Notify.WebhookURL)
	groupService := services.NewGroupService(groupRepo, userRepo, notifyService)
	payoutService := services.NewPayoutService(groupRepo, contribRepo, notifyService)
	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupService)
	rotationHandler := handlers.NewRotationHandler(rotationService)
	contributionHandler := handlers.NewContributionHandler(contributionService, payoutService)
	adminHandler := handlers.NewAdminHandler(authService, payoutService, eventRepo, store)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, userHandler, groupHandler,
		rotationHandler, contributionHandler, dashboardHandler, adminHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	groupHandler *handlers.GroupHandler,
	rotationHandler *handlers.RotationHandler,
	contributionHandler *handlers.ContributionHandler,
	dashboardHandler *handlers.DashboardHandler,
	adminHandler *handlers.AdminHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Auth routes (public, never cached)
	authRoutes := router.Group("/auth")
	authRoutes.Use(middleware.NoCacheHeaders())
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Profile routes (Authenticated users)
	profileRoutes := router.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	profileRoutes.Get("/", userHandler.GetProfile)
	profileRoutes.Put("/", userHandler.UpdateProfile)
	profileRoutes.Put("/password", userHandler.ChangePassword)

	// Group routes (Authenticated users)
	groupRoutes := router.Group("/groups")
	groupRoutes.Use(middleware.AuthMiddleware(cfg))
	setupGroupRoutes(groupRoutes, groupHandler, rotationHandler)

	// Wallet routes (Authenticated users)
	walletRoutes := router.Group("/wallet")
	walletRoutes.Use(middleware.AuthMiddleware(cfg))
	setupWalletRoutes(walletRoutes, contributionHandler)

	// Contribution routes (Authenticated users)
	contributionRoutes := router.Group("/contributions")
	contributionRoutes.Use(middleware.AuthMiddleware(cfg))
	contributionRoutes.Post("/groups/:id", contributionHandler.Contribute)
	contributionRoutes.Get("/groups/:id", contributionHandler.ListContributions)

	// Payout routes (Authenticated users)
	payoutRoutes := router.Group("/payouts")
	payoutRoutes.Use(middleware.AuthMiddleware(cfg))
	payoutRoutes.Get("/groups/:id", contributionHandler.ListPayouts)

	// Dashboard routes (Authenticated users)
	dashboardRoutes := router.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Get("/", dashboardHandler.GetMyDashboard)
	dashboardRoutes.Get("/member", dashboardHandler.GetMemberDashboard)
	dashboardRoutes.Get("/admin", middleware.AdminOnly(), dashboardHandler.GetAdminDashboard)

	// User management routes (Admin only)
	userRoutes := router.Group("/admin/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AdminOnly())
	userRoutes.Get("/", userHandler.ListUsers)
	userRoutes.Get("/:id", userHandler.GetUser)
	userRoutes.Put("/:id", userHandler.UpdateUser)
	userRoutes.Delete("/:id", userHandler.DeleteUser)

	// Admin routes (Admin only)
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, adminHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", handler.Register)
	router.Post("/login", handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupGroupRoutes configures tanda group + rotation routes
func setupGroupRoutes(router fiber.Router, groupHandler *handlers.GroupHandler, rotationHandler *handlers.RotationHandler) {
	// Group lifecycle
	router.Post("/", groupHandler.Create)
	router.Get("/", groupHandler.List)
	router.Post("/join", groupHandler.Join)
	router.Get("/:id", groupHandler.Get)
	router.Post("/:id/start", groupHandler.Start)

	// Payout rotation editor
	router.Get("/:id/rotation", rotationHandler.Get)
	router.Put("/:id/rotation", rotationHandler.Reorder)
	router.Post("/:id/rotation/slots", rotationHandler.AddSlot)
	router.Delete("/:id/rotation/slots", rotationHandler.RemoveSlot)
	router.Put("/:id/rotation/locks", rotationHandler.SetLock)
	router.Delete("/:id/rotation/members/:userId", rotationHandler.RemoveMember)
}

// setupWalletRoutes configures wallet routes
func setupWalletRoutes(router fiber.Router, handler *handlers.ContributionHandler) {
	router.Post("/deposit", handler.Deposit)
	router.Get("/balance", middleware.PrivateCacheHeaders(5*time.Second), handler.Balance)
	router.Get("/transactions", handler.Transactions)
}

// setupAdminRoutes configures admin routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler) {
	// KYC review
	router.Post("/users/:id/kyc", handler.VerifyKYC)

	// Security introspection
	router.Get("/security/events", handler.SecurityEvents)
	router.Get("/security/limiter", handler.LimiterStats)

	// Manual payout run
	router.Post("/groups/:id/payout", handler.RunPayout)
}
