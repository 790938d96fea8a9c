package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"healthbot/internal/config"
	"healthbot/internal/database"
	"healthbot/internal/logging"
	"healthbot/internal/services"

	"github.com/joho/godotenv"
)

// cliSenderID is the implicit sender for the single prompt user.
const cliSenderID = "cli-user"

func main() {
	log.SetFlags(log.LstdFlags)
	logging.Init()

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()

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

	userStore := services.NewUserStore(db)
	dialogStore := services.NewDialogStore(db)

	watson := services.NewWatsonClient(services.WatsonConfig{
		URL:         cfg.ConversationURL,
		Username:    cfg.ConversationUsername,
		Password:    cfg.ConversationPassword,
		WorkspaceID: cfg.ConversationWorkspaceID,
		Version:     cfg.ConversationVersion,
		Timeout:     cfg.ConversationTimeout,
	})

	actions := services.NewActionRegistry()
	if cfg.FoursquareClientID != "" && cfg.FoursquareClientSecret != "" {
		foursquare := services.NewFoursquareClient(cfg.FoursquareClientID, cfg.FoursquareClientSecret)
		actions.Register(services.ActionFindDoctorLocation, services.NewFindDoctorLocationHandler(foursquare))
	}

	queue := services.NewDialogWriteQueue(dialogStore)
	bot := services.NewBotService(userStore, watson, dialogStore, actions, queue)

	fmt.Println("HealthBot ready. Type your message, or 'quit' to exit.")

	// One turn at a time: the prompt waits for the reply before
	// accepting the next message.
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" {
			break
		}

		envelope := bot.ProcessMessage(context.Background(), cliSenderID, line)
		fmt.Println(envelope.Text)
	}

	fmt.Println("Bye!")
}
