package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/debtbook/internal/auth"
	"github.com/mmynk/debtbook/internal/config"
	"github.com/mmynk/debtbook/internal/extraction"
	"github.com/mmynk/debtbook/internal/ledger"
	"github.com/mmynk/debtbook/internal/middleware"
	"github.com/mmynk/debtbook/internal/service"
	"github.com/mmynk/debtbook/internal/storage/sqlite"
	"github.com/mmynk/debtbook/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services := extraction.NewServices(nil)
	if err := services.Init(ctx, extraction.Config{
		APIKey:                 cfg.GeminiAPIKey,
		Model:                  cfg.GeminiModel,
		DiagnosticsCredentials: cfg.DiagnosticsCredentials,
		Timeout:                cfg.ExtractionTimeout,
		MaxImageBytes:          cfg.MaxImageBytes,
	}); err != nil {
		return fmt.Errorf("extraction services: %w", err)
	}
	defer services.Close()
	gateway, err := services.Gateway()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		slog.Warn("JWT_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
	}
	jwtManager := auth.NewJWTManager(secret, cfg.JWTTTL)
	authenticator := auth.NewPasswordAuthenticator(store, bcrypt.DefaultCost)
	applier := ledger.NewApplier(store, cfg.CommitParallelism)

	mux := http.NewServeMux()

	authPath, authHandler := service.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, slog.Default()),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), middleware.LoggingInterceptor()),
	)
	mux.Handle(authPath, authHandler)

	ledgerPath, ledgerHandler := service.NewLedgerServiceHandler(
		service.NewLedgerService(store, applier, slog.Default()),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor()),
	)
	mux.Handle(ledgerPath, ledgerHandler)

	mux.Handle(extraction.Path, gateway)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := middleware.Logging(middleware.CORS(cfg.AllowedOrigin)(mux))

	// h2c serves HTTP/2 without TLS, which Connect clients use
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting",
			"address", server.Addr,
			"model", cfg.GeminiModel,
			"diagnostics", services.DiagnosticsEnabled(),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
