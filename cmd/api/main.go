package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
	"github.com/zhouzirui/healthcare-site/backend/internal/handler"
	"github.com/zhouzirui/healthcare-site/backend/internal/logging"
	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
	"github.com/zhouzirui/healthcare-site/backend/internal/service/ai"
	chatService "github.com/zhouzirui/healthcare-site/backend/internal/service/chat"
	medsService "github.com/zhouzirui/healthcare-site/backend/internal/service/meds"
	"github.com/zhouzirui/healthcare-site/backend/internal/site"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load(config.DefaultFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Debug("no .env file loaded, using process environment only", zap.Error(envErr))
	}

	profile := clinic.DefaultProfile()
	services := clinic.NewMemoryStore(clinic.Seed())

	var system string
	if cfg.AI.ClinicContext {
		system = ai.NewClinicPrompt(profile, services.List()).Build()
	}

	provider, err := ai.NewProvider(ctx, cfg.AI, system)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("ai provider credentials missing, chat widget will answer with 503",
			zap.String("provider", cfg.AI.Provider))
		provider = nil
	case err != nil:
		logger.Warn("failed to initialize ai provider, continuing without chat", zap.Error(err))
		provider = nil
	default:
		logger.Info("ai provider initialized",
			zap.String("provider", provider.Name()),
			zap.String("model", cfg.AI.ModelOrDefault()),
			zap.Duration("timeout", cfg.AI.RequestTimeout),
		)
	}

	chatSvc := chatService.NewService(provider, cfg.Widget.IdleTTL, logger.Named("chat"))
	go chatSvc.Run(ctx)

	pages, err := site.New(profile, services)
	if err != nil {
		logger.Fatal("failed to render site", zap.Error(err))
	}

	deps := handler.Deps{
		Site:           pages,
		Clinic:         services,
		Profile:        profile,
		Chat:           chatSvc,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	}

	if cfg.Meds.Enabled {
		medsSvc, db, err := medsService.Open(ctx, cfg.Meds, cfg.AI, logger.Named("meds"))
		if err != nil {
			logger.Warn("failed to initialize medication lookup, continuing without it", zap.Error(err))
		} else {
			defer func() { _ = db.Close() }()
			deps.Meds = medsSvc
			deps.MedsHistory = db
		}
	} else {
		logger.Info("FDA_API_KEY not set or MEDS_ENABLED=false, skipping medication lookup")
	}

	router := handler.NewRouter(deps)

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger *zap.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("healthcare site listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
