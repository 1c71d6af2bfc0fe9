package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spotdesk/spot-service/internal/api/http"
	"github.com/spotdesk/spot-service/internal/api/http/handlers"
	"github.com/spotdesk/spot-service/internal/auth"
	"github.com/spotdesk/spot-service/internal/config"
	"github.com/spotdesk/spot-service/internal/events"
	"github.com/spotdesk/spot-service/internal/mailer"
	"github.com/spotdesk/spot-service/internal/observability"
	"github.com/spotdesk/spot-service/internal/persistence"
	"github.com/spotdesk/spot-service/internal/repository"
	"github.com/spotdesk/spot-service/internal/service"
	"github.com/spotdesk/spot-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	mappingRepo := repository.NewMappingRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	credentialRepo := repository.NewCredentialRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	sender := mailer.NewLogSender(logger, cfg.Notification.EmailFrom)

	lookupService := service.NewLookupService(mappingRepo, employeeRepo)
	numberGenerator := service.NewNumberGenerator(mappingRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		EmployeeRepo: employeeRepo,
		Lookup:       lookupService,
		Numbers:      numberGenerator,
		Tx:           pg,
		Dispatcher:   dispatcher,
	})
	mappingService := service.NewMappingService(mappingRepo, employeeRepo)
	notificationService := service.NewNotificationService(
		dispatcher, employeeRepo, ticketRepo, historyRepo, sender, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	otpStore := auth.NewOTPStore(redis.Client, cfg.Auth.OTPTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		EmployeeRepo:   employeeRepo,
		CredentialRepo: credentialRepo,
		OTPStore:       otpStore,
		Sender:         sender,
		Logger:         logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo)

	metrics := observability.NewMetrics()
	sweeper := service.NewSweeper(service.SweeperDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Tx:          pg,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Grace:       cfg.Sweep.GracePeriod(),
	})
	sweeperWorker := worker.NewSweeperWorker(sweeper, cfg.Sweep.Interval(), logger)
	sweeperWorker.Start(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Mappings:       handlers.NewMappingsHandler(mappingService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweeperWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
