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

	_ "mailwriter/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"mailwriter/internal/auth"
	"mailwriter/internal/cache"
	"mailwriter/internal/config"
	"mailwriter/internal/db"
	"mailwriter/internal/handler"
	"mailwriter/internal/llm"
	"mailwriter/internal/logger"
	"mailwriter/internal/mail"
	"mailwriter/internal/repository"
	"mailwriter/internal/router"
	"mailwriter/internal/service"
	"mailwriter/internal/view"
)

// @title Mail Writer API
// @version 1.0
// @description Account registration with emailed one-time codes and LLM-drafted emails.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	gormDB, err := db.NewMySQL(cfg.DSN())
	if err != nil {
		logg.Fatalw("database init", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logg.Fatalw("database handle", "error", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB); err != nil {
		logg.Fatalw("migrate", "error", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, logg)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logg.Warnw("redis unreachable, logouts will not be remembered", "addr", cfg.RedisAddr, "error", err)
	}

	knowledge, err := config.LoadKnowledge(cfg.KnowledgeFile)
	if err != nil {
		logg.Warnw("knowledge file", "path", cfg.KnowledgeFile, "error", err)
	}
	logg.Infow("knowledge file loaded", "path", cfg.KnowledgeFile, "bytes", len(knowledge))

	notifier, err := mail.NewSMTPNotifier(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
	}, logg)
	if err != nil {
		logg.Fatalw("smtp client", "error", err)
	}
	llmClient := llm.NewClient(llm.Config{APIKey: cfg.LLMAPIKey, BaseURL: cfg.LLMBaseURL, Model: cfg.LLMModel})

	// Repositories and auth components
	userRepo := repository.NewUserRepository(gormDB)
	jwtService := auth.NewJWTService(cfg.SessionSecret, cfg.SessionTTL, cfg.PendingTTL)
	sessions := auth.NewSessionManager(jwtService, auth.NewSessionStore(cacheClient))

	// Services
	authService := service.NewAuthService(
		userRepo,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewOTPGenerator(),
		notifier,
		sessions,
		service.AuthPolicy{OTPTTL: cfg.OTPTTL, DuplicateEmailPrecheck: cfg.DuplicateEmailPrecheck},
		logg,
	)
	emailService := service.NewEmailService(llmClient, logg)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, handler.Options{
		DetailedFeedback:   cfg.DetailedFeedback(),
		SurfaceMailFailure: cfg.SurfaceMailFailure,
		SecureCookies:      cfg.CookieSecure,
		PendingTTL:         cfg.PendingTTL,
	}, logg)
	userHandler := handler.NewUserHandler(emailService)

	renderer, err := view.New()
	if err != nil {
		logg.Fatalw("templates", "error", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	router.Register(
		e,
		renderer,
		router.RequireAuth(sessions, userRepo, cfg.CookieSecure, logg),
		authHandler,
		userHandler,
	)

	addr := ":" + cfg.ServerPort
	go func() {
		logg.Infow("starting server", "address", addr, "swagger", "http://localhost"+addr+"/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatalw("server start", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Errorw("server shutdown", "error", err)
	}
}
