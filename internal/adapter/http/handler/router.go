package handler

import (
	"emoney-ledger/internal/adapter/http/middleware"
	redisStore "emoney-ledger/internal/adapter/storage/redis"
	"emoney-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	QuerySvc       ports.LedgerQueryService
	ComplianceSvc  ports.ComplianceService
	HoldSvc        ports.HoldService
	TransferSvc    ports.WorkflowService
	FundingSvc     ports.WorkflowService
	PayoutSvc      ports.PayoutService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	accountHandler := NewAccountHandler(deps.QuerySvc, deps.ComplianceSvc)
	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.GET("/:address", rl("queries"), accountHandler.Get)
		accounts.GET("/:address/roles", rl("queries"), accountHandler.ListRoles)
		accounts.POST("/:address/whitelist", rl("admin"), accountHandler.Whitelist)
		accounts.DELETE("/:address/whitelist", rl("admin"), accountHandler.Unwhitelist)
		accounts.POST("/:address/roles", rl("admin"), accountHandler.GrantRole)
		accounts.DELETE("/:address/roles/:role", rl("admin"), accountHandler.RevokeRole)
		accounts.PUT("/:address/overdraft-limit", rl("admin"), accountHandler.SetOverdraftLimit)
	}

	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.PUT("/interest-engine", rl("admin"), accountHandler.SetInterestEngine)
		ledger.POST("/interest-charges", rl("admin"), accountHandler.ChargeInterest)
	}

	operators := v1.Group("/operators", jwtAuth)
	{
		operators.POST("/:capability/:delegate", rl("admin"), accountHandler.AuthorizeOperator)
		operators.DELETE("/:capability/:delegate", rl("admin"), accountHandler.RevokeOperator)
		operators.GET("/:capability/:delegate", rl("queries"), accountHandler.CheckOperator)
	}

	operations := v1.Group("/operations", jwtAuth)
	{
		operations.GET("", rl("queries"), accountHandler.ListOperations)
		operations.GET("/:id/events", rl("queries"), accountHandler.ListEvents)
	}

	holdHandler := NewHoldHandler(deps.HoldSvc)
	holds := v1.Group("/holds", jwtAuth)
	{
		holds.POST("", rl("holds"), holdHandler.Create)
		holds.GET("/:id", rl("queries"), holdHandler.Get)
		holds.GET("/:id/exists", rl("queries"), holdHandler.Exists)
		holds.POST("/:id/execute", rl("holds"), holdHandler.Execute)
		holds.POST("/:id/release", rl("holds"), holdHandler.Release)
		holds.POST("/:id/renew", rl("holds"), holdHandler.Renew)
	}

	registerWorkflow := func(group *gin.RouterGroup, h *WorkflowHandler, order gin.HandlerFunc) {
		group.POST("", rl("orders"), order)
		group.GET("/:id", rl("queries"), h.Get)
		group.GET("/:id/exists", rl("queries"), h.Exists)
		group.POST("/:id/cancel", rl("orders"), h.Cancel)
		group.POST("/:id/process", rl("orders"), h.Process)
		group.POST("/:id/execute", rl("orders"), h.Execute)
		group.POST("/:id/reject", rl("orders"), h.Reject)
	}

	transferHandler := NewWorkflowHandler(deps.TransferSvc)
	registerWorkflow(v1.Group("/transfers", jwtAuth), transferHandler, transferHandler.OrderTransfer)

	fundingHandler := NewWorkflowHandler(deps.FundingSvc)
	registerWorkflow(v1.Group("/funding", jwtAuth), fundingHandler, fundingHandler.OrderFunding)

	payoutHandler := NewPayoutHandler(deps.PayoutSvc)
	payouts := v1.Group("/payouts", jwtAuth)
	registerWorkflow(payouts, payoutHandler.WorkflowHandler, payoutHandler.OrderPayout)
	payouts.POST("/:id/suspense", rl("orders"), payoutHandler.MoveToSuspense)

	return r
}
