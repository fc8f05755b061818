package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	messagingServices "atendo/internal/application/messaging/services"
	ticketUsecases "atendo/internal/application/ticket/usecases"
	"atendo/internal/importer"
	"atendo/internal/infrastructure/cache"
	"atendo/internal/infrastructure/config"
	"atendo/internal/infrastructure/database"
	"atendo/internal/infrastructure/persistence/models"
	"atendo/internal/infrastructure/pubsub"
	"atendo/internal/infrastructure/repository"
	"atendo/internal/infrastructure/scheduler"
	"atendo/internal/shared/db"
	"atendo/internal/shared/keylock"
	"atendo/internal/shared/logger"
	"atendo/internal/whatsapp"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the session and import engine",
		Long:  `Start the Atendo core: WhatsApp session supervision, historical import pipeline, and the imported-ticket sweep.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting atendo core",
		"environment", env,
		"auto-migrate", autoMigrate,
	)

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate {
		if err := database.Get().AutoMigrate(
			&models.AccountModel{},
			&models.ContactModel{},
			&models.TicketModel{},
			&models.MessageModel{},
		); err != nil {
			logger.Fatal("auto-migration failed", "error", err)
		}
		logger.Info("auto-migration completed")
	}

	if err := cache.Init(&cfg.Redis); err != nil {
		logger.Fatal("failed to initialize redis", "error", err)
	}
	defer cache.Close()

	log := logger.NewLogger()

	accountRepo := repository.NewAccountRepository(database.Get())
	contactRepo := repository.NewContactRepository(database.Get())
	ticketRepo := repository.NewTicketRepository(database.Get())
	messageRepo := repository.NewMessageRepository(database.Get())

	notifier := pubsub.NewRedisTenantNotifier(cache.Get(), log)
	credStore := cache.NewRedisCredentialStore(cache.Get())
	drainLock := cache.NewRedisDrainLock(
		cache.Get(),
		time.Duration(cfg.Import.DrainLockTTLMinutes)*time.Minute,
	)

	resolveTicket := ticketUsecases.NewResolveTicketUseCase(
		ticketRepo, accountRepo, notifier, keylock.New(), log,
	)
	closeImported := ticketUsecases.NewCloseImportedTicketsUseCase(
		ticketRepo, accountRepo, notifier, log,
		time.Duration(cfg.Import.CloseGraceHours)*time.Hour,
		time.Duration(cfg.Import.ClosePacingMillis)*time.Millisecond,
	)
	txManager := db.NewTransactionManager(database.Get())
	ingestion := messagingServices.NewIngestionService(contactRepo, messageRepo, resolveTicket, txManager, log)

	registry := whatsapp.NewSessionRegistry(log)
	retry := whatsapp.NewRetryScheduler(
		cfg.WhatsApp.MaxQRRetries,
		time.Duration(cfg.WhatsApp.ReconnectBaseDelaySec)*time.Second,
		time.Duration(cfg.WhatsApp.ReconnectMaxDelaySec)*time.Second,
	)

	pipeline := importer.NewPipeline(
		accountRepo, ingestion, registry, drainLock, notifier, closeImported, log,
		importer.Config{
			Quiescence:    time.Duration(cfg.Import.QuiescenceSec) * time.Second,
			YieldEvery:    cfg.Import.YieldEveryMessages,
			Yield:         time.Duration(cfg.Import.YieldMillis) * time.Millisecond,
			ProgressEvery: cfg.Import.ProgressEveryCount,
		},
	)

	dialer, err := whatsapp.DefaultDialer()
	if err != nil {
		logger.Fatal("no transport driver available", "error", err)
	}

	manager := whatsapp.NewManager(
		accountRepo, credStore, registry, retry, notifier, ingestion, dialer, pipeline, log,
		whatsapp.SupervisorConfig{
			ConnectTimeout: time.Duration(cfg.WhatsApp.ConnectTimeoutSec) * time.Second,
			QueryTimeout:   time.Duration(cfg.WhatsApp.QueryTimeoutSec) * time.Second,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager.ResumeSessions(ctx)

	schedMgr, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		logger.Fatal("failed to create scheduler", "error", err)
	}
	if err := schedMgr.RegisterImportSweepJob(
		closeImported,
		time.Duration(cfg.Import.SweepIntervalMin)*time.Minute,
	); err != nil {
		logger.Fatal("failed to register import sweep job", "error", err)
	}
	schedMgr.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	manager.Shutdown(shutdownCtx)
	if err := schedMgr.Stop(); err != nil {
		logger.Error("failed to stop scheduler", "error", err)
	}

	logger.Info("atendo core exited gracefully")
	return nil
}
