// Command broker runs the RailWatch signaling and presence broker.
//
// The broker authenticates kiosks (producers) and monitor stations
// (consumers), tracks their presence, arbitrates exclusive monitoring
// sessions, forwards WebRTC signaling along authorized edges, and broadcasts
// crew sign-on/sign-off events. It never touches media.
package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/railwatch/broker/internal/auth"
	"github.com/railwatch/broker/internal/broker"
	"github.com/railwatch/broker/internal/cache"
	"github.com/railwatch/broker/internal/config"
	brokererrors "github.com/railwatch/broker/internal/errors"
	"github.com/railwatch/broker/internal/events"
	"github.com/railwatch/broker/internal/handlers"
	"github.com/railwatch/broker/internal/liveness"
	"github.com/railwatch/broker/internal/logger"
	"github.com/railwatch/broker/internal/presence"
	"github.com/railwatch/broker/internal/ratelimit"
	"github.com/railwatch/broker/internal/session"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.GetLogger()

	log.Info().Str("port", cfg.Port).Msg("Starting RailWatch signaling broker")

	// Registries: the broker-private state.
	presenceReg := presence.NewRegistry()
	sessionReg := session.NewRegistry()
	limiter := ratelimit.NewLimiter(time.Duration(cfg.RateWindowMs)*time.Millisecond, cfg.RateCeilings)
	heartbeats := liveness.NewTracker()

	// Optional domain event feed.
	publisher, err := events.NewPublisher(events.Config{
		Enabled: cfg.NATS.Enabled,
		URL:     cfg.NATS.URL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()

	// Optional Redis state mirror.
	mirror, err := cache.NewCache(cache.Config{
		Enabled:  cfg.Redis.Enabled,
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, state mirror disabled")
		mirror, _ = cache.NewCache(cache.Config{Enabled: false})
	}
	defer mirror.Close()

	hub := broker.NewHub()
	controller := broker.NewController(hub, presenceReg, sessionReg, limiter, heartbeats, publisher, mirror, cfg)
	controller.PurgeMirror(context.Background())
	controller.StartScheduler()
	defer controller.StopScheduler()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.TokenDurationMinutes)*time.Minute)
	authHandler := auth.NewHandler(jwtManager, cfg.Clients, cfg.ProvisionSecret)
	wsHandler := handlers.NewWebSocketHandler(hub, controller, jwtManager, cfg.CORSOrigin)
	statusHandler := handlers.NewStatusHandler(hub, presenceReg, sessionReg, mirror)

	if cfg.LogLevel != "debug" && cfg.LogLevel != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(brokererrors.Recovery())
	router.Use(brokererrors.ErrorHandler())
	router.Use(corsMiddleware(cfg.CORSOrigin))

	authHandler.RegisterRoutes(router.Group("/api/v1"))
	wsHandler.RegisterRoutes(router)
	statusHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}

// corsMiddleware applies the configured origin policy to the REST surface.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
