// Package router assembles the HTTP API: services, handlers, middleware and
// routes.
package router

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spendwise/internal/config"
	"spendwise/internal/handlers"
	"spendwise/internal/logger"
	"spendwise/internal/middleware"
	"spendwise/internal/permissions"
	"spendwise/internal/repository"
	"spendwise/internal/services"
)

// Services holds the business layer shared by the HTTP API and the
// background worker.
type Services struct {
	Users      services.UserServicer
	Categories services.CategoryServicer
	Expenses   services.ExpenseServicer
	Budgets    services.BudgetServicer
	Audit      services.AuditServicer
	Analytics  services.AnalyticsServicer
}

// NewServices wires every service on db. now is the clock used for lockouts,
// rollovers and reports.
func NewServices(db *gorm.DB, now func() time.Time) *Services {
	store := repository.NewStore(db)
	audit := services.NewAuditService(store.AuditLogs, store.Users)
	categories := services.NewCategoryService(store.Categories, audit)
	expenses := services.NewExpenseService(store, audit)
	budgets := services.NewBudgetService(store, audit, now)

	return &Services{
		Users:      services.NewUserService(store.Users, audit, now),
		Categories: categories,
		Expenses:   expenses,
		Budgets:    budgets,
		Audit:      audit,
		Analytics:  services.NewAnalyticsService(expenses, budgets, categories, now),
	}
}

// New builds the gin engine for cfg on top of svc.
func New(cfg *config.Config, svc *Services) (*gin.Engine, error) {
	loginLimiter, err := middleware.NewRateLimiter(cfg.LoginRateLimit)
	if err != nil {
		return nil, fmt.Errorf("login rate limit: %w", err)
	}
	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authHandler := handlers.NewAuthHandler(svc.Users, tokens)
	userHandler := handlers.NewUserHandler(svc.Users)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	expenseHandler := handlers.NewExpenseHandler(svc.Expenses)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets)
	auditHandler := handlers.NewAuditHandler(svc.Audit)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	jobsHandler := handlers.NewJobsHandler(svc.Budgets)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging())
	r.Use(middleware.ErrorHandler())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	jobs := r.Group("/internal/jobs", middleware.JobsAuthMiddleware(cfg.JobsAPIKey))
	jobs.POST("/rollovers", jobsHandler.RunRollovers)

	v1 := r.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", middleware.RateLimit(loginLimiter), authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	protected.GET("/profile", authHandler.GetProfile)

	expenses := protected.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.GET("/totals", expenseHandler.GetExpenseTotals)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/statuses", budgetHandler.GetBudgetStatuses)
	budgets.GET("/summary", budgetHandler.GetBudgetSummary)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/status", budgetHandler.GetBudgetStatus)
	budgets.POST("/:id/deactivate", budgetHandler.DeactivateBudget)
	budgets.POST("/:id/rollover", budgetHandler.RolloverBudget)

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	adminCategories := categories.Group("", middleware.RequireRole(permissions.LevelAdmin))
	adminCategories.POST("", categoryHandler.CreateCategory)
	adminCategories.PUT("/:id", categoryHandler.UpdateCategory)
	adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)

	users := protected.Group("/users", middleware.RequireRole(permissions.LevelAdmin))
	users.GET("", userHandler.GetUsers)
	users.POST("", userHandler.CreateUser)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeactivateUser)

	audit := protected.Group("/audit", middleware.RequireRole(permissions.LevelAccountant))
	audit.GET("", auditHandler.GetAuditLogs)
	audit.GET("/recent", auditHandler.GetRecentActivity)
	audit.GET("/stats", auditHandler.GetAuditStats)
	audit.GET("/:entity_type/:id", auditHandler.GetEntityHistory)

	reports := protected.Group("/analytics")
	reports.GET("/dashboard", analyticsHandler.GetDashboard)
	reports.GET("/categories", analyticsHandler.GetCategoryBreakdown)
	reports.GET("/trend", analyticsHandler.GetMonthlyTrend)
	reports.GET("/payment-methods", analyticsHandler.GetPaymentMethods)
	reports.GET("/budget-vs-actual", analyticsHandler.GetBudgetVsActual)
	reports.GET("/average-daily", analyticsHandler.GetAverageDaily)

	logger.Get().Infow("router ready", "cors_origins", cfg.CORSOrigins, "jobs_enabled", cfg.JobsAPIKey != "")
	return r, nil
}

// corsConfig allows any origin without credentials for "*", and the listed
// origins with credentials otherwise.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
