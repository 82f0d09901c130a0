package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	appstock "github.com/erp/stockcore/internal/application/stock"
	"github.com/erp/stockcore/internal/infrastructure/cache"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/erp/stockcore/internal/infrastructure/event"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/persistence"
	"github.com/erp/stockcore/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stockcore",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	recordRepo := persistence.NewGormInventoryRecordRepository(db.DB)
	movementRepo := persistence.NewGormStockMovementRepository(db.DB)
	reservationRepo := persistence.NewGormStockReservationRepository(db.DB)
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	adjustmentRepo := persistence.NewGormStockAdjustmentRepository(db.DB)
	transferRepo := persistence.NewGormWarehouseTransferRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Initialize the in-process event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Ledger posting consumers key idempotency on the event ID so that
	// replayed movements are not double-posted
	idempotencyStore := cache.NewInMemoryIdempotencyStore()
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()
	postingHandler := event.NewIdempotentHandler(
		appstock.NewMovementAppendedHandler(log),
		idempotencyStore,
		log,
	)
	eventBus.Subscribe(postingHandler)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize application services
	inventoryService := appstock.NewInventoryService(txScope, recordRepo, movementRepo, batchRepo)
	inventoryService.SetEventPublisher(eventBus)

	reservationService := appstock.NewReservationService(txScope, reservationRepo)
	reservationService.SetEventPublisher(eventBus)
	reservationService.SetDefaultTTL(cfg.Reservation.DefaultTTL)

	expiryService := appstock.NewReservationExpiryService(txScope, reservationRepo, log)
	expiryService.SetEventPublisher(eventBus)

	transferService := appstock.NewTransferService(txScope, transferRepo)
	transferService.SetEventPublisher(eventBus)

	adjustmentService := appstock.NewAdjustmentService(txScope, adjustmentRepo)
	adjustmentService.SetEventPublisher(eventBus)

	// Start the reservation expiry sweep
	sweepScheduler := scheduler.NewExpirySweepScheduler(expiryService, log, scheduler.ExpirySweepSchedulerConfig{
		Enabled:      cfg.Sweep.Enabled,
		Interval:     cfg.Sweep.Interval,
		SweepTimeout: cfg.Sweep.Timeout,
	})
	if err := sweepScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start expiry sweep scheduler", zap.Error(err))
	}

	log.Info("Stockcore started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sweepScheduler.Stop(ctx); err != nil {
		log.Error("Expiry sweep scheduler forced to stop", zap.Error(err))
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Stockcore exited gracefully")
}
