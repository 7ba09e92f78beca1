// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the auth server.
type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	Production     bool
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPass       string
	MailFrom       string
	RedisAddr      string
	RedisPassword  string
	AllowedOrigins []string
	LogLevel       string
	LogDev         bool
}

// MemoryURI as MONGO_URI keeps users in process memory. Development only.
const MemoryURI = "memory"

var (
	// ErrMissingSecret is returned when JWT_SECRET_KEY is not set.
	ErrMissingSecret = errors.New("JWT_SECRET_KEY is not set")
	// ErrMemoryInProduction is returned when APP_ENV=production uses MemoryURI.
	ErrMemoryInProduction = errors.New("MONGO_URI=memory is not allowed in production")
)

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenv("MONGO_DB", "chatauth"),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		Production:     os.Getenv("APP_ENV") == "production",
		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       getenv("SMTP_PORT", "587"),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPass:       os.Getenv("SMTP_PASS"),
		MailFrom:       os.Getenv("MAIL_FROM"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogDev:         os.Getenv("LOG_DEV") == "1",
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Production && cfg.InMemory() {
		return nil, ErrMemoryInProduction
	}
	return cfg, nil
}

// InMemory reports whether the user store should live in process memory.
func (c *Config) InMemory() bool {
	return c.MongoURI == MemoryURI
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
