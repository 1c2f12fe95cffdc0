package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"doorman/bot"
	"doorman/config"
	"doorman/database"
	"doorman/events"
	"doorman/repository"
	"doorman/scheduler"
	"doorman/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting doorman bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	databaseURL := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()
	log.Println("Event bus initialized successfully")

	// Initialize unit of work factory
	log.Println("Initializing unit of work factory...")
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	log.Println("Unit of work factory initialized successfully")

	// Initialize Telegram API client
	log.Println("Connecting to Telegram...")
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}
	messenger := bot.NewMessenger(api)
	log.Printf("Telegram client authorized as @%s", api.Self.UserName)

	// Initialize services
	log.Println("Initializing services...")
	registry := service.NewInviteRegistry(service.InviteTTL)
	subscriberService := service.NewSubscriberService(uowFactory)
	referralService := service.NewReferralService(uowFactory)
	adminService := service.NewAdminService(uowFactory)
	accessService := service.NewAccessService(uowFactory, messenger, registry)
	paymentService := service.NewPaymentService(uowFactory, messenger, adminService, accessService)
	log.Println("Services initialized successfully")

	// Start scheduled workers
	log.Println("Starting scheduled workers...")
	reminderWorker := scheduler.NewReminderWorker(subscriberService, messenger, cfg.ExpiryLookaheadDays)
	stopReminders := reminderWorker.Start(ctx, cfg.ReminderHour)
	defer stopReminders()

	broadcastWorker := scheduler.NewBroadcastWorker(subscriberService, adminService, messenger)
	stopBroadcasts := broadcastWorker.Start(ctx, cfg.BroadcastHour)
	defer stopBroadcasts()

	reconcileWorker := scheduler.NewReconcileWorker(accessService, adminService, messenger)
	stopReconcile := reconcileWorker.Start(ctx, cfg.ReconcileHour)
	defer stopReconcile()
	log.Println("Scheduled workers started successfully")

	// Consume Telegram updates until shutdown
	telegramBot := bot.New(api, messenger, subscriberService, referralService, paymentService, accessService, adminService, eventBus)
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	telegramBot.Run(ctx)

	// Cleanup resources
	log.Println("Shutting down bot...")

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
