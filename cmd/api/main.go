package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"freshkart/internal/adapter/api"
	"freshkart/internal/adapter/api/handler"
	apimiddleware "freshkart/internal/adapter/api/middleware"
	"freshkart/internal/adapter/api/router"
	"freshkart/internal/domain/entity"
	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/internal/infrastructure/websocket"
	"freshkart/internal/usecase"
	"freshkart/pkg/config"
	"freshkart/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackends(ctx, cfg)
	if err != nil {
		logger.L().Fatal().Err(err).Str("store", cfg.StoreBackend).Msg("Failed to initialize backends")
	}
	defer b.Close()

	limiter := ratelimit.NewRateLimiter(withConnectLimit(ratelimit.DefaultLimits(cfg.MessagesPerMinute, cfg.ConversationsPerHour)))
	limiter.StartCleanupRoutine(ctx.Done())

	conversationUseCase := usecase.NewConversationUseCase(b.conversations, b.users, b.products, limiter)
	messageUseCase := usecase.NewMessageUseCase(b.conversations, b.messages, b.typing, b.products, limiter, entity.UnreadMode(cfg.UnreadMode))
	if b.attachments != nil {
		messageUseCase.WithAttachmentVerifier(b.attachments)
	}
	typingUseCase := usecase.NewTypingUseCase(b.conversations, b.typing, limiter, cfg.TypingWindow)

	wsManager := websocket.NewManager(websocket.NewChatService(conversationUseCase, messageUseCase, typingUseCase))
	var revoker usecase.TokenRevoker
	if b.authClient != nil {
		revoker = b.authClient
	}
	sessionUseCase := usecase.NewSessionUseCase(revoker, wsManager)

	handler.Setup(conversationUseCase, messageUseCase, typingUseCase, sessionUseCase, wsManager, handler.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StoreBackend:   cfg.StoreBackend,
		TypingBackend:  cfg.TypingBackend,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins(cfg.AllowedOrigins),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(apimiddleware.Metrics())

	router.Setup(e, apimiddleware.NewAuthMiddleware(b.verifier), limiter)

	go func() {
		logger.Info("Starting server on port %s (store=%s, typing=%s)", cfg.ServerPort, cfg.StoreBackend, cfg.TypingBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal().Err(err).Msg("Server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	wsManager.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func withConnectLimit(limits map[string]ratelimit.Limit) map[string]ratelimit.Limit {
	limits[router.ActionConnect] = ratelimit.PerMinute(10)
	return limits
}

func corsOrigins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.L().Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = logger.L().Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("uid", apimiddleware.UserID(c)).
				Msg("request")
			return nil
		},
	})
}
