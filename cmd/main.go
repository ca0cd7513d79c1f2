package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/ladder-system/config"
	"github.com/courtside/ladder-system/db"
	"github.com/courtside/ladder-system/handlers"
	"github.com/courtside/ladder-system/live"
	"github.com/courtside/ladder-system/repositories"
	api "github.com/courtside/ladder-system/routes"
	"github.com/courtside/ladder-system/services"
	"github.com/courtside/ladder-system/storage"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

const schedulerInterval = time.Minute // How often the schedulers run

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	courtRepo := repositories.NewPostgresCourtRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	emailService := services.NewEmailService(cfg)
	authService := services.NewAuthService(playerRepo)
	tournamentService := services.NewTournamentService(
		dbConn,
		tournamentRepo,
		participantRepo,
		matchRepo,
		playerRepo,
		cloudflareUploader,
		emailService,
		logger,
	)
	participantService := services.NewParticipantService(
		participantRepo,
		tournamentRepo,
		playerRepo,
	)
	matchService := services.NewMatchService(
		services.NewSQLTxBeginner(dbConn),
		matchRepo,
		participantRepo,
		tournamentRepo,
		playerRepo,
		courtRepo,
		emailService,
		wsHub,
		time.Duration(cfg.ChallengeTTLDays)*24*time.Hour,
	)
	standingsService := services.NewStandingsService(tournamentRepo, participantRepo, matchRepo)
	courtService := services.NewCourtService(courtRepo, playerRepo, cloudflareUploader)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	router := api.SetupRoutes(api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, []byte(cfg.JWTSecretKey)),
		Tournament:  handlers.NewTournamentHandler(tournamentService, standingsService),
		Participant: handlers.NewParticipantHandler(participantService),
		Match:       handlers.NewMatchHandler(matchService),
		Court:       handlers.NewCourtHandler(courtService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub),
	}, []byte(cfg.JWTSecretKey))
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Планировщик: автопереключение статусов турниров по датам и отмена
	// просроченных вызовов.
	group.Go(func() error {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("scheduler started", slog.Duration("interval", schedulerInterval))

		runSweeps := func() {
			if err := tournamentService.AutoUpdateTournamentStatusesByDates(groupCtx); err != nil {
				logger.Error("scheduler: tournament status sweep failed", slog.Any("error", err))
			}
			expired, err := matchService.ExpireStaleProposals(groupCtx)
			if err != nil {
				logger.Error("scheduler: stale proposal sweep failed", slog.Any("error", err))
			} else if expired > 0 {
				logger.Info("scheduler: stale proposals cancelled", slog.Int("count", expired))
			}
		}

		// Run once immediately at startup, then on ticker.
		runSweeps()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				runSweeps()
			}
		}
	})

	// Graceful shutdown по сигналу завершения.
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("application exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
