package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/PauloHFS/goth-blog/internal/auth"
	"github.com/PauloHFS/goth-blog/internal/config"
	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/policies"
	"github.com/PauloHFS/goth-blog/internal/services"
	"github.com/PauloHFS/goth-blog/internal/telemetry"
	"github.com/PauloHFS/goth-blog/internal/upload"
	"github.com/PauloHFS/goth-blog/internal/web"
	"github.com/PauloHFS/goth-blog/internal/worker"
)

func newResolver(cfg *config.Config) (*auth.Resolver, error) {
	return auth.NewResolver(cfg.TokenSecret,
		auth.WithIssuer(cfg.TokenIssuer),
		auth.WithTTL(cfg.TokenTTL),
	)
}

// @title goth-blog API
// @version 1.0
// @description API do blog: identidade por bearer token, política de acesso a posts e uploads.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RunServer() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logging.Init(cfg.LogLevel)
	logger := logging.Get()

	shutdownTracing, err := telemetry.Init(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		panic(err)
	}

	// 1. Migrações numa conexão avulsa, antes dos pools
	migrateConn, err := initDB(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		panic(err)
	}
	if err := db.RunMigrations(context.Background(), migrateConn); err != nil {
		logger.Error("failed to run migrations", "error", err)
		panic(err)
	}
	migrateConn.Close()

	// 2. Pools de leitura e escrita
	pool, err := db.NewDualPool("sqlite3", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database pools", "error", err)
		panic(err)
	}
	defer pool.Close()
	store := pool.Store()

	// 2.1 Garantir diretórios de storage
	if err := os.MkdirAll(filepath.Join(cfg.UploadDir, upload.ImageConfig.Directory), 0755); err != nil {
		logger.Error("failed to create storage directories", "error", err)
		panic(err)
	}

	// 3. Núcleo: identidade, política e serviços
	resolver, err := newResolver(cfg)
	if err != nil {
		logger.Error("failed to build token resolver", "error", err)
		panic(err)
	}
	policy, err := policies.NewPostPolicy()
	if err != nil {
		logger.Error("failed to build post policy", "error", err)
		panic(err)
	}

	// 4. Worker
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()

	w := worker.New(pool.QueriesWrite(), cfg.UploadDir, logger)
	if err := w.RescueZombies(workerCtx); err != nil {
		logger.Error("zombie hunter failed", "error", err)
	}
	go w.Start(workerCtx)

	mux := http.NewServeMux()
	web.RegisterRoutes(mux, web.HandlerDeps{
		Config:       cfg,
		Store:        store,
		Posts:        services.NewPostService(store, policy),
		Auth:         services.NewAuthService(store, resolver),
		Resolver:     resolver,
		LoginLimiter: middleware.LoginRateLimiter(),
	})

	handler := middleware.Recovery(
		middleware.DefaultRateLimiter().Middleware(
			middleware.SecurityHeaders(cfg.Env == "prod")(
				middleware.CORS(cfg.CORSAllowedOrigins)(
					middleware.Logger(mux),
				),
			),
		),
	)

	compressedHandler := gzhttp.GzipHandler(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           compressedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("server stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancelWorker()
	w.Wait()

	if err := shutdownTracing(ctx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server exited properly")
}
