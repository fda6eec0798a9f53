package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/speech2face/internal/config"
	"github.com/Vovarama1992/speech2face/internal/delivery"
	"github.com/Vovarama1992/speech2face/internal/domain"
	"github.com/Vovarama1992/speech2face/internal/error_notificator"
	"github.com/Vovarama1992/speech2face/internal/gemini"
	"github.com/Vovarama1992/speech2face/internal/results"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const serviceName = "speech2face"

func main() {

	// =========================================================================
	// CONFIG / LOGGER
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config failed: %v", err)
	}

	prompt, err := cfg.Prompt()
	if err != nil {
		log.Fatalf("prompt failed: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// CLIENTS
	// =========================================================================

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("failed to init gemini: %v", err)
	}

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var errInfra error_notificator.Notificator = error_notificator.Noop{}
	if cfg.TelegramBotToken != "" {
		tg, err := error_notificator.NewTelegramInfra(cfg.TelegramBotToken, cfg.TelegramAdminChatIDs, serviceName)
		if err != nil {
			log.Fatalf("failed to init telegram notificator: %v", err)
		}
		errInfra = tg
	}
	errService := error_notificator.NewService(errInfra)

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	store := results.NewMemoryStore(zl, cfg.ResultMaxBytes)

	portraitService := domain.NewPortraitService(geminiClient, errService, zl, domain.PortraitConfig{
		Model:          cfg.GeminiModel,
		Prompt:         prompt,
		TempDir:        cfg.TempDir,
		AttemptTimeout: cfg.GenerationTimeout,
	})

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	portraitHandler := delivery.NewPortraitHandler(portraitService, store, zl, cfg.ResultTTL, cfg.MaxUploadBytes)
	delivery.RegisterRoutes(r, portraitHandler, cfg.RateLimitPerMinute)

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	c := cron.New()
	if _, err := c.AddFunc(cfg.ResultSweepSpec, func() {
		store.Sweep(time.Now())
	}); err != nil {
		log.Fatalf("failed to schedule result sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	// =========================================================================
	// START SERVER
	// =========================================================================

	// четыре попытки подряд могут идти долго, поэтому без WriteTimeout
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + srv.Addr + " model=" + cfg.GeminiModel,
		Service: serviceName,
	})

	if err := serve(ctx, srv, ln, shutdownGrace(cfg.GenerationTimeout)); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "server stopped", Error: err, Service: serviceName})
		return
	}
	zl.Log(logger.LogEntry{Level: "info", Message: "server stopped", Service: serviceName})
}

// shutdownGrace: текущему запросу нужно дойти все попытки и удалить файл из API
func shutdownGrace(attemptTimeout time.Duration) time.Duration {
	return time.Duration(domain.AttemptCount)*attemptTimeout + 15*time.Second
}

// serve возвращается только после того, как Shutdown дождался активных запросов
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return <-stopped
}
