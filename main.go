package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	"chat-backend/internal/logger"
	"chat-backend/internal/metrics"
	"chat-backend/internal/routes"
	"chat-backend/internal/storage"
	"chat-backend/internal/uploads"
)

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("error loading .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	appLog, err := logger.Setup("chat-backend", cfg.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up logger")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := storage.Open(cfg.Database, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("error connecting to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messages, err := storage.NewMessageStore(ctx, db, time.Now)
	if err != nil {
		appLog.Fatal().Err(err).Msg("error initializing message store")
	}
	users := storage.NewUserStore(db)

	uploadStore, err := uploads.NewStore(cfg.Uploads)
	if err != nil {
		appLog.Fatal().Err(err).Msg("error initializing upload store")
	}

	metrics.Register()

	router := routes.NewRouter(routes.Dependencies{
		Config:  cfg,
		DB:      db,
		Users:   users,
		Chat:    chat.NewService(messages, users, cfg.Chat, appLog),
		Uploads: uploadStore,
		Log:     appLog,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		appLog.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	appLog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
