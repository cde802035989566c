package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/boda2004/game-catalog/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port        string
	DBPath      string
	RAWGAPIKey  string
	RAWGAPIURL  string
	SteamAPIKey string
	SteamAPIURL string
	LogLevel    string
	LogFormat   string
	Username    string
	Password    string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", constants.DefaultPort),
		DBPath:      getEnv("DB_PATH", constants.DefaultDBPath),
		RAWGAPIKey:  getEnv("RAWG_API_KEY", ""),
		RAWGAPIURL:  getEnv("RAWG_API_URL", constants.DefaultRAWGAPIURL),
		SteamAPIKey: getEnv("STEAM_API_KEY", ""),
		SteamAPIURL: getEnv("STEAM_API_URL", constants.DefaultSteamAPIURL),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Username:    getEnv("GAMECATALOG_USERNAME", constants.DefaultUsername),
		Password:    getEnv("GAMECATALOG_PASSWORD", ""),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.RAWGAPIURL == "" {
		errors = append(errors, "RAWG_API_URL cannot be empty")
	} else if _, err := url.Parse(c.RAWGAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("RAWG_API_URL is not a valid URL: %s", c.RAWGAPIURL))
	}

	if c.SteamAPIURL == "" {
		errors = append(errors, "STEAM_API_URL cannot be empty")
	} else if _, err := url.Parse(c.SteamAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("STEAM_API_URL is not a valid URL: %s", c.SteamAPIURL))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.Username == "" {
		errors = append(errors, "GAMECATALOG_USERNAME cannot be empty")
	}

	if c.Password == "" {
		errors = append(errors, "GAMECATALOG_PASSWORD cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
