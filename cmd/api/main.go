package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fasthttp"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/config"
	"bank-ledger/internal/handlers"
	"bank-ledger/internal/middleware"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/worker"
)

func main() {
	cfg := config.Load()

	utils.InitLogger(cfg.LogLevel)
	defer utils.SyncLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		utils.LogError("Main", "Database configuration rejected", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := pool.Ping(dbCtx); err != nil {
		dbCancel()
		utils.LogError("Main", "Database unreachable", err)
		os.Exit(1)
	}
	dbCancel()
	utils.LogSuccess("Main", "Connected to Postgres")

	if err := repository.RunMigrations(pool); err != nil {
		utils.LogError("Main", "Migrations failed", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPass)
	defer redisCache.Close()

	cacheReady := true
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		utils.LogWarning("Main", "Redis unavailable, running without cache: %v", err)
		cacheReady = false
	} else {
		utils.LogSuccess("Main", "Connected to Redis")
	}
	pingCancel()

	cipher, err := utils.NewFieldCipher(cfg.FieldKey)
	if err != nil {
		utils.LogError("Main", "Field encryption key rejected", err)
		os.Exit(1)
	}

	workerPool := worker.NewWorkerPool(cfg.Workers, cfg.QueueSize, cfg.MaxRetries)
	workerPool.Start()

	accountRepo := repository.NewAccountRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	sessionService := services.NewSessionService(sessionRepo, cfg.SessionBuffer)

	var accountService *services.AccountService
	var ledgerService *services.LedgerService
	if cacheReady {
		accountService = services.NewAccountServiceWithCache(accountRepo, redisCache)
		ledgerService = services.NewLedgerServiceWithCache(transactionRepo, accountRepo, cipher, cfg.DepositCeiling, redisCache)
	} else {
		accountService = services.NewAccountService(accountRepo)
		ledgerService = services.NewLedgerService(transactionRepo, accountRepo, cipher, cfg.DepositCeiling)
	}
	ledgerService.SetWorkerPool(workerPool)

	authMiddleware := middleware.NewAuthMiddleware(sessionService)
	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	sessionHandler := handlers.NewSessionHandler(sessionService)

	r := router.New()
	r.GET("/health", healthHandler(pool, redisCache, workerPool))
	r.GET("/accounts", authMiddleware.RequireAuth(accountHandler.GetAccounts))
	r.GET("/accounts/{id}", authMiddleware.RequireAuth(accountHandler.GetAccountByID))
	r.GET("/accounts/{id}/balance", authMiddleware.RequireAuth(accountHandler.GetBalance))
	r.POST("/accounts/{id}/fund", authMiddleware.RequireAuth(transactionHandler.Fund))
	r.GET("/accounts/{id}/transactions", authMiddleware.RequireAuth(transactionHandler.GetHistory))
	r.GET("/transactions/{id}", authMiddleware.RequireAuth(transactionHandler.GetByID))
	r.POST("/logout", authMiddleware.RequireAuth(sessionHandler.Logout))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		Name:         "bank-ledger",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Main", "HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(cfg.HTTPAddr); err != nil {
			utils.LogError("Main", "HTTP server stopped", err)
		}
	}()

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go sweepSessions(sweepCtx, sessionService, workerPool, cfg.SweepInterval)

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChannel

	utils.LogInfo("Main", "Shutting down...")
	sweepCancel()

	if err := server.Shutdown(); err != nil {
		utils.LogError("Main", "HTTP server shutdown failed", err)
	}
	if err := workerPool.Shutdown(10 * time.Second); err != nil {
		utils.LogError("Main", "Worker pool shutdown incomplete", err)
	}

	utils.LogSuccess("Main", "Server stopped")
}

// healthHandler reports liveness. A dead database makes the service
// unavailable; a dead cache only degrades it.
func healthHandler(pool *pgxpool.Pool, redisCache *cache.RedisCache, workerPool *worker.WorkerPool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		status := "ok"
		statusCode := fasthttp.StatusOK
		database := "up"
		if err := pool.Ping(pingCtx); err != nil {
			status = "degraded"
			statusCode = fasthttp.StatusServiceUnavailable
			database = "down"
		}

		cacheStatus := "up"
		if err := redisCache.Ping(pingCtx); err != nil {
			cacheStatus = "down"
		}

		stats := workerPool.GetStats()

		ctx.SetStatusCode(statusCode)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]interface{}{
			"status":   status,
			"time":     time.Now().Format(time.RFC3339),
			"database": database,
			"cache":    cacheStatus,
			"workers": map[string]interface{}{
				"active":    stats.ActiveWorkers,
				"queued":    stats.QueuedJobs,
				"completed": stats.CompletedJobs,
				"failed":    stats.FailedJobs,
			},
		})
	}
}

// sweepSessions periodically clears expired session rows. Validation
// never deletes anything, so without the sweep the table only grows.
func sweepSessions(ctx context.Context, sessions *services.SessionService, pool *worker.WorkerPool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			job := worker.Job{
				ID: "session-sweep",
				Task: func() error {
					_, err := sessions.SweepExpired(context.Background())
					return err
				},
			}
			if err := pool.Submit(job); err != nil {
				if _, err := sessions.SweepExpired(context.Background()); err != nil {
					utils.LogError("Main", "Session sweep failed", err)
				}
			}
		}
	}
}
