package config

import (
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		DSN string // "memory" or a file path for SQLite
	}
	Autosave struct {
		DebounceMs int `mapstructure:"debounce_ms"` // quiet window before an explanation upsert
	}
	ContextPrompt struct {
		TimeoutSeconds int `mapstructure:"timeout_seconds"` // hard cancellation for one prompt fetch
	} `mapstructure:"context_prompt"`
	Memo struct {
		WebhookURL string `mapstructure:"webhook_url"` // empty disables the memorandum trigger
	}
}

// AppConfig is the global configuration instance.
var AppConfig Config

// LoadConfig loads configuration from file and environment variables.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../config") // for running from locations like tests

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.dsn", "memory")
	viper.SetDefault("autosave.debounce_ms", 600)
	viper.SetDefault("context_prompt.timeout_seconds", 6)
	viper.SetDefault("memo.webhook_url", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("WARN: [Config] Configuration file (config.yaml) not found. Using environment variables and defaults.")
		} else {
			log.Fatalf("FATAL: [Config] Error reading configuration file: %v", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("FATAL: [Config] Failed to unmarshal configuration into AppConfig struct: %v", err)
	}

	// Environment variable overrides
	if port := os.Getenv("SERVER_PORT"); port != "" {
		AppConfig.Server.Port = port
		log.Printf("INFO: [Config] Server port overridden by environment variable SERVER_PORT: %s", port)
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		AppConfig.Database.DSN = dsn
		log.Printf("INFO: [Config] Database DSN overridden by environment variable DATABASE_DSN.")
	}
	if url := os.Getenv("MEMO_WEBHOOK_URL"); url != "" {
		AppConfig.Memo.WebhookURL = url
		log.Println("INFO: [Config] Memo webhook URL overridden by environment variable MEMO_WEBHOOK_URL.")
	}

	log.Println("INFO: [Config] Configuration loading complete.")
}
