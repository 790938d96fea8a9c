package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthbot/internal/config"
	"healthbot/internal/database"
	"healthbot/internal/handlers"
	"healthbot/internal/logging"
	"healthbot/internal/middleware"
	"healthbot/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting HealthBot server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}
	if cfg.ConversationWorkspaceID == "" {
		log.Fatal("❌ CONVERSATION_WORKSPACE_ID environment variable is required")
	}

	db, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	if err := db.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}

	// Stores
	userStore := services.NewUserStore(db)
	dialogStore := services.NewDialogStore(db)

	// Dialog engine
	watson := services.NewWatsonClient(services.WatsonConfig{
		URL:         cfg.ConversationURL,
		Username:    cfg.ConversationUsername,
		Password:    cfg.ConversationPassword,
		WorkspaceID: cfg.ConversationWorkspaceID,
		Version:     cfg.ConversationVersion,
		Timeout:     cfg.ConversationTimeout,
	})

	// Action handlers
	actions := services.NewActionRegistry()
	if cfg.FoursquareClientID != "" && cfg.FoursquareClientSecret != "" {
		foursquare := services.NewFoursquareClient(cfg.FoursquareClientID, cfg.FoursquareClientSecret)
		actions.Register(services.ActionFindDoctorLocation, services.NewFindDoctorLocationHandler(foursquare))
		log.Println("✅ Foursquare location enrichment enabled")
	} else {
		log.Println("⚠️  Foursquare credentials not set - location enrichment disabled")
	}

	// Orchestrator and background dialog logging
	queue := services.NewDialogWriteQueue(dialogStore)
	bot := services.NewBotService(userStore, watson, dialogStore, actions, queue)

	connManager := services.NewConnectionManager()
	services.InitMetrics(connManager, queue)

	// Slack transport (optional)
	slackCtx, stopSlack := context.WithCancel(context.Background())
	defer stopSlack()
	if cfg.SlackBotToken != "" {
		slackListener := services.NewSlackListener(bot, cfg.SlackBotToken)
		go slackListener.Run(slackCtx)
		log.Println("✅ Slack transport enabled")
	} else {
		log.Println("⚠️  SLACK_BOT_TOKEN not set - Slack transport disabled")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "HealthBot v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("healthbot")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, connManager, queue)
	wsHandler := handlers.NewWebSocketHandler(connManager, bot)

	app.Get("/health", healthHandler.Handle)

	// WebSocket transport
	rateLimitConfig := middleware.LoadRateLimitConfig()
	app.Use("/ws", middleware.WebSocketConnectionLimiter(rateLimitConfig))
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.Handle))

	// Web client
	app.Static("/", "./public")

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Printf("🛑 Received signal %v, shutting down...", sig)

		stopSlack()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	// Give the write queue a moment to finish draining queued turns.
	deadline := time.Now().Add(5 * time.Second)
	for !queue.Idle() && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	log.Println("👋 Server stopped")
}
