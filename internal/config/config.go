package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string

	// Watson Conversation configuration
	ConversationURL         string
	ConversationUsername    string
	ConversationPassword    string
	ConversationWorkspaceID string
	ConversationVersion     string // API version date, e.g. "2017-04-21"
	ConversationTimeout     time.Duration

	// Foursquare configuration (optional - location enrichment disabled when empty)
	FoursquareClientID     string
	FoursquareClientSecret string

	// Slack configuration (optional - Slack transport disabled when empty)
	SlackBotToken string

	// CORS configuration
	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return &Config{
		Port:     getEnv("PORT", "3000"),
		MongoURI: getEnv("MONGODB_URI", ""),

		ConversationURL:         getEnv("CONVERSATION_URL", "https://gateway.watsonplatform.net/conversation/api"),
		ConversationUsername:    getEnv("CONVERSATION_USERNAME", ""),
		ConversationPassword:    getEnv("CONVERSATION_PASSWORD", ""),
		ConversationWorkspaceID: getEnv("CONVERSATION_WORKSPACE_ID", ""),
		ConversationVersion:     getEnv("CONVERSATION_VERSION", "2017-04-21"),
		ConversationTimeout:     getDurationEnv("CONVERSATION_TIMEOUT_SECONDS", 30),

		FoursquareClientID:     getEnv("FOURSQUARE_CLIENT_ID", ""),
		FoursquareClientSecret: getEnv("FOURSQUARE_CLIENT_SECRET", ""),

		SlackBotToken: getEnv("SLACK_BOT_TOKEN", ""),

		AllowedOrigins: strings.Join(parts, ","),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
