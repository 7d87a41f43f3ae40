package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	BotToken       string
	ServerPort     string
	WebhookBaseURL string
	WebhookSecret  string
	PollTimeout    string
}

func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env file")
	}

	return &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "padel"),
		JWTSecret:      getEnv("JWT_SECRET", "super-secret-key-change-me"),
		BotToken:       getEnv("TELEGRAM_TOKEN", ""),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		PollTimeout:    getEnv("POLL_TIMEOUT", "30"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
