package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	TypingFirestore = "firestore"
	TypingRedis     = "redis"

	UnreadFlag  = "flag"
	UnreadCount = "count"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	FirebaseProject      string
	ServiceAccountJSON   string
	ServiceAccountPath   string
	StorageBucket        string
	StoreBackend         string
	TypingBackend        string
	TypingWindow         time.Duration
	RedisAddr            string
	UnreadMode           string
	AllowedOrigins       []string
	MessagesPerMinute    int
	ConversationsPerHour int
}

func Load() (*Config, error) {
	godotenv.Load()

	typingWindow, err := getEnvAsDuration("TYPING_WINDOW", 3*time.Second)
	if err != nil {
		return nil, err
	}

	config := &Config{
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		FirebaseProject:      getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON:   getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:   getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:        getEnv("STORAGE_BUCKET", ""),
		StoreBackend:         getEnv("STORE_BACKEND", StoreFirestore),
		TypingBackend:        getEnv("TYPING_BACKEND", TypingFirestore),
		TypingWindow:         typingWindow,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		UnreadMode:           getEnv("UNREAD_MODE", UnreadFlag),
		AllowedOrigins:       getEnvAsList("WS_ALLOWED_ORIGINS"),
		MessagesPerMinute:    getEnvAsInt("MESSAGES_PER_MINUTE", 30),
		ConversationsPerHour: getEnvAsInt("CONVERSATIONS_PER_HOUR", 20),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreFirestore, StoreMemory, c.StoreBackend)
	}
	switch c.TypingBackend {
	case TypingFirestore, TypingRedis:
	default:
		return fmt.Errorf("TYPING_BACKEND must be %q or %q, got %q", TypingFirestore, TypingRedis, c.TypingBackend)
	}
	switch c.UnreadMode {
	case UnreadFlag, UnreadCount:
	default:
		return fmt.Errorf("UNREAD_MODE must be %q or %q, got %q", UnreadFlag, UnreadCount, c.UnreadMode)
	}
	if c.TypingWindow <= 0 {
		return fmt.Errorf("TYPING_WINDOW must be positive")
	}
	if c.StoreBackend == StoreFirestore && c.FirebaseProject == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
