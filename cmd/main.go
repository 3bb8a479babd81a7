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

	"github.com/karigarlink/rfq-service/internal/auth"
	"github.com/karigarlink/rfq-service/internal/db"
	"github.com/karigarlink/rfq-service/internal/handlers"
	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/realtime"
	"github.com/karigarlink/rfq-service/internal/repository"
	"github.com/karigarlink/rfq-service/internal/router"
	"github.com/karigarlink/rfq-service/internal/router/config"
	"github.com/karigarlink/rfq-service/internal/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env необязателен, переменные окружения могут быть заданы иначе
	_ = godotenv.Load()

	var configPath string
	rootCmd := &cobra.Command{
		Use:           "rfq-service",
		Short:         "Marketplace backend for requests for quotation, bids and notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("cannot load config: %w", err)
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if !skipMigrations {
				if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn, false); err != nil {
					return err
				}
				logger.Info("db migrated successfully")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply schema migrations on start")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) error {
	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer dbPool.Close()

	rfqRepo := repository.NewPostgresRFQRepository(dbPool)
	bidRepo := repository.NewPostgresBidRepository(dbPool)
	notificationRepo := repository.NewPostgresNotificationRepository(dbPool)
	messageRepo := repository.NewPostgresMessageRepository(dbPool)
	userRepo := repository.NewPostgresUserRepository(dbPool)

	hub := realtime.NewHub(logger.Named("realtime"))
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	notificationService := services.NewNotificationService(notificationRepo, hub, logger.Named("notifications"))
	rfqService := services.NewRFQService(rfqRepo, bidRepo)
	bidService := services.NewBidService(bidRepo, rfqRepo, notificationService, logger.Named("bids"))
	chatService := services.NewChatService(messageRepo, userRepo, notificationService, hub, logger.Named("chat"))

	httpLog := logger.Named("http")
	routes := router.InitRoutes(router.Handlers{
		Auth:         handlers.NewAuthenticator(tokens, httpLog),
		RFQ:          handlers.NewRFQHandler(rfqService, httpLog, cfg.RequestTimeout),
		Bid:          handlers.NewBidHandler(bidService, httpLog, cfg.RequestTimeout),
		Notification: handlers.NewNotificationHandler(notificationService, httpLog, cfg.RequestTimeout),
		Chat:         handlers.NewChatHandler(chatService, httpLog, cfg.RequestTimeout),
		WS:           handlers.NewWSHandler(hub, tokens, cfg.WSSendBuffer, logger.Named("realtime")),
		Ping:         handlers.NewPingHandler(dbPool, httpLog),
	}, httpLog)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("server is listening", "address", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		// websocket-соединения уже hijacked, Shutdown их не ждет
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("cannot load config: %w", err)
			}
			down := len(args) == 1 && args[0] == "down"
			if err := db.RunMigrations(cfg.MigrationURL, cfg.PostgresConn, down); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "db migrated successfully")
			return nil
		},
	}
}

func tokenCmd(configPath *string) *cobra.Command {
	var (
		userId  string
		role    string
		name    string
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("cannot load config: %w", err)
			}
			if !models.ValidRole(models.Role(role)) {
				return fmt.Errorf("role must be %q or %q", models.Customer, models.Provider)
			}
			token, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL).Issue(models.Principal{
				ID:      userId,
				Role:    models.Role(role),
				Name:    name,
				IsAdmin: isAdmin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userId, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&role, "role", string(models.Customer), "customer or provider")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant administrator access")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}
