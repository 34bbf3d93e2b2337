package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emoney-ledger/config"
	httpHandler "emoney-ledger/internal/adapter/http/handler"
	pgStorage "emoney-ledger/internal/adapter/storage/postgres"
	redisStorage "emoney-ledger/internal/adapter/storage/redis"
	"emoney-ledger/internal/core/domain"
	"emoney-ledger/internal/core/ports"
	"emoney-ledger/internal/service"
	"emoney-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting E-Money Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	holdRepo := pgStorage.NewHoldRepo(pool)
	opRepo := pgStorage.NewOperationRepo(pool)
	roleRepo := pgStorage.NewRoleRepo(pool)
	eventRepo := pgStorage.NewEventRepo(pool)
	settingsRepo := pgStorage.NewSettingsRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis adapters
	publisher := redisStorage.NewEventPublisher(rdb, cfg.Ledger.EventChannel)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc)
	holdSvc := service.NewHoldService(
		accountRepo,
		holdRepo,
		opRepo,
		roleRepo,
		eventRepo,
		publisher,
		transactor,
		logger.Component(log, "holds"),
	)
	workflowDeps := service.WorkflowDeps{
		AccountRepo:     accountRepo,
		HoldRepo:        holdRepo,
		OpRepo:          opRepo,
		RoleRepo:        roleRepo,
		EventRepo:       eventRepo,
		Publisher:       publisher,
		Transactor:      transactor,
		SuspenseAddress: cfg.Ledger.SuspenseAddress,
		Log:             logger.Component(log, "workflows"),
	}
	transferSvc := service.NewTransferService(workflowDeps)
	fundingSvc := service.NewFundingService(workflowDeps)
	payoutSvc := service.NewPayoutService(workflowDeps)
	complianceSvc := service.NewComplianceService(
		accountRepo,
		roleRepo,
		settingsRepo,
		eventRepo,
		publisher,
		transactor,
		logger.Component(log, "compliance"),
	)
	querySvc := service.NewLedgerQueryService(accountRepo, opRepo, eventRepo)

	// Ensure the suspense wallet and optional bootstrap admin exist
	if err := bootstrapLedger(ctx, cfg.Ledger, accountRepo, roleRepo, hashSvc, transactor, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap ledger")
	}

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		TokenSvc:       tokenSvc,
		QuerySvc:       querySvc,
		ComplianceSvc:  complianceSvc,
		HoldSvc:        holdSvc,
		TransferSvc:    transferSvc,
		FundingSvc:     fundingSvc,
		PayoutSvc:      payoutSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// bootstrapLedger makes a fresh deployment usable: the suspense wallet must
// exist before the first payout, and without at least one privileged account
// no role can ever be granted. Both steps are idempotent across restarts.
func bootstrapLedger(
	ctx context.Context,
	cfg config.LedgerConfig,
	accountRepo ports.AccountRepository,
	roleRepo ports.RoleRepository,
	hashSvc ports.HashService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) error {
	if err := ensureAccount(ctx, accountRepo, cfg.SuspenseAddress, ""); err != nil {
		return fmt.Errorf("creating suspense wallet: %w", err)
	}

	if cfg.BootstrapAddress == "" {
		return nil
	}
	if cfg.BootstrapSecret == "" {
		return fmt.Errorf("bootstrap address %s configured without a secret", cfg.BootstrapAddress)
	}

	secretHash, err := hashSvc.Hash(cfg.BootstrapSecret)
	if err != nil {
		return fmt.Errorf("hashing bootstrap secret: %w", err)
	}
	if err := ensureAccount(ctx, accountRepo, cfg.BootstrapAddress, secretHash); err != nil {
		return fmt.Errorf("creating bootstrap account: %w", err)
	}

	tx, err := transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning bootstrap transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, role := range []domain.Role{domain.RoleOperator, domain.RoleCompliance, domain.RoleCreditRisk} {
		if err := roleRepo.Grant(ctx, tx, cfg.BootstrapAddress, role); err != nil {
			return fmt.Errorf("granting %s role: %w", role, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing bootstrap transaction: %w", err)
	}

	log.Info().Str("address", cfg.BootstrapAddress).Msg("Bootstrap account ready")
	return nil
}

// ensureAccount creates a whitelisted zero-balance account if it does not
// already exist.
func ensureAccount(ctx context.Context, repo ports.AccountRepository, address, secretHash string) error {
	existing, err := repo.GetByAddress(ctx, address)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	now := time.Now().UTC()
	return repo.Create(ctx, &domain.Account{
		Address:     address,
		Whitelisted: true,
		SecretHash:  secretHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
