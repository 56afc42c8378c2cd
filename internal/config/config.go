package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string
	PhoneAPIURL   string
	VehicleAPIURL string
	EmailAPIURL   string
	AdminPassword string
	PanelAddr     string
	// CIDR allow-list for the control panel; empty means any source.
	PanelAllowedIPs []string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "lookup_bot"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		PhoneAPIURL:     getEnv("PHONE_API_URL", ""),
		VehicleAPIURL:   getEnv("VEHICLE_API_URL", ""),
		EmailAPIURL:     getEnv("EMAIL_API_URL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		PanelAddr:       getEnv("PANEL_ADDR", ":5000"),
		PanelAllowedIPs: splitList(getEnv("PANEL_ALLOWED_IPS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
