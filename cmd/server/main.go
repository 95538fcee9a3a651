package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	echoapi "github.com/mimoto-id/mimoto/api/echo"
	"github.com/mimoto-id/mimoto/cache"
	redisstore "github.com/mimoto-id/mimoto/cache/redis"
	"github.com/mimoto-id/mimoto/config"
	"github.com/mimoto-id/mimoto/internal/audit"
	"github.com/mimoto-id/mimoto/internal/auth"
	"github.com/mimoto-id/mimoto/internal/federation"
	"github.com/mimoto-id/mimoto/internal/interaction"
	"github.com/mimoto-id/mimoto/internal/sessionstore"
	"github.com/mimoto-id/mimoto/log"
	"github.com/mimoto-id/mimoto/mongodb"
	"github.com/mimoto-id/mimoto/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := log.New(cfg.LogLevel, cfg.LogPretty)
	logger.Info().
		Str("http_port", cfg.HTTPPort).
		Str("mongo_db", cfg.MongoDBName).
		Str("otel_service", cfg.OtelServiceName).
		Msg("starting interaction server")

	ctx := context.Background()

	tp, err := tracing.InitTracerProvider(ctx, cfg.OtelServiceName, cfg.OtelExporterEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.MongoDBName)

	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	userRepo, err := mongodb.NewUserRepository(ctx, db, hasher)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize user repository")
	}
	clientRepo := mongodb.NewClientRepository(db)
	resourceRepo := mongodb.NewResourceRepository(db)
	grantRepo, err := mongodb.NewGrantRepository(ctx, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize grant repository")
	}

	// Assertion staging: Redis when configured, in-memory otherwise.
	var assertions cache.AssertionStore
	var memoryAssertions *cache.MemoryAssertionStore
	if cfg.RedisAddr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to ping Redis")
		}
		assertions = redisstore.NewAssertionStore(redisClient, "mimoto")
	} else {
		memoryAssertions = cache.NewMemoryAssertionStore(cfg.AssertionTTL)
		assertions = memoryAssertions
	}

	broker, err := federation.NewBrokerFromConfig(cfg.Providers, assertions, cfg.AssertionTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure identity providers")
	}

	sessions := sessionstore.NewStore(grantRepo, sessionstore.DefaultOptions())
	devices := sessionstore.NewDeviceStore(15 * time.Minute)
	manager := echoapi.NewCookieSessionManager(
		[]byte(cfg.SessionSecretKey),
		cfg.SessionCookieName,
		cfg.SessionLifetime,
		cfg.SecureCookies,
	)
	events := audit.NewSink(logger)
	policy := interaction.NewRedirectPolicy(cfg.AllowedRedirectOrigins...)
	opts := interaction.AccountOptions{
		AllowLocalLogin:              cfg.AllowLocalLogin,
		AllowRememberLogin:           cfg.AllowRememberLogin,
		RememberMeLoginDuration:      cfg.RememberMeLifetime,
		ShowLogoutPrompt:             cfg.ShowLogoutPrompt,
		AutomaticRedirectAfterLogout: cfg.AutomaticRedirectAfterLogout,
		InvalidCredentialsMessage:    interaction.DefaultAccountOptions().InvalidCredentialsMessage,
	}

	api := echoapi.NewInteractionAPI(
		interaction.NewLoginOrchestrator(sessions, clientRepo, userRepo, broker, manager, events, policy, opts, logger),
		interaction.NewExternalCallbackHandler(sessions, clientRepo, userRepo, broker, manager, events, policy, logger),
		interaction.NewConsentOrchestrator(sessions, clientRepo, resourceRepo, events, policy, logger),
		interaction.NewDeviceFlowOrchestrator(devices, clientRepo, resourceRepo, events, logger),
		interaction.NewLogoutOrchestrator(sessions, broker, manager, events, opts, logger),
		interaction.NewGrantsOrchestrator(sessions, clientRepo, resourceRepo, events, logger),
		broker,
		logger,
	)

	httpServer := echoapi.NewServer(cfg, api, manager, logger)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	sessions.Close()
	devices.Close()
	if memoryAssertions != nil {
		_ = memoryAssertions.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer provider shutdown error")
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("mongodb disconnect error")
	}
	logger.Info().Msg("server stopped")
}
