package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// AppID identifies the application on disk and to the UI toolkit
const AppID = "com.kyle.bugeaichat"

// Config represents the application configuration
type Config struct {
	OpenAI    OpenAIConfig    `json:"openai"`
	Assistant AssistantConfig `json:"assistant"`
	UI        UIConfig        `json:"ui"`
	Data      DataConfig      `json:"data"`
	Rewards   RewardsConfig   `json:"rewards"`
	Debug     bool            `json:"debug" env:"BUGEAI_DEBUG"`
}

// OpenAIConfig configures the chat-completion API
type OpenAIConfig struct {
	APIKey      string  `json:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string  `json:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	Model       string  `json:"model" env:"OPENAI_MODEL" env-default:"gpt-3.5-turbo"`
	MaxTokens   int     `json:"max_tokens,omitempty" env-default:"1024"`
	Temperature float64 `json:"temperature,omitempty" env-default:"0.7"`
	Timeout     int     `json:"timeout_seconds,omitempty" env-default:"60"`
	MaxRetries  int     `json:"max_retries,omitempty" env-default:"2"`
}

// AssistantConfig describes the character the user is chatting with
type AssistantConfig struct {
	Name         string `json:"name" env-default:"AI 助手"`
	Icon         string `json:"icon"`
	SystemPrompt string `json:"system_prompt" env-default:"You are a helpful assistant."`
	UserName     string `json:"user_name" env-default:"我"`
}

// UIConfig represents UI configuration
type UIConfig struct {
	Theme        string `json:"theme" env-default:"light"`
	FontSize     int    `json:"font_size" env-default:"14"`
	WindowWidth  int    `json:"window_width" env-default:"420"`
	WindowHeight int    `json:"window_height" env-default:"800"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath        string `json:"db_path" env:"BUGEAI_DB_PATH"`
	ContextTokens int    `json:"context_tokens" env-default:"3500"`
}

// RewardsConfig controls the coin balance and the in-app review prompt
type RewardsConfig struct {
	InitialCoins        int  `json:"initial_coins" env-default:"20"`
	Unlimited           bool `json:"unlimited"`
	ReviewAfterMessages int  `json:"review_after_messages" env-default:"5"`
}

// LoadDotEnv loads variables from .env files without overriding the environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from file, then applies environment overrides and defaults
func LoadConfig(configPath string) (*Config, error) {
	var config Config
	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if config.Data.DBPath != "" {
		config.Data.DBPath = expandPath(config.Data.DBPath)
	}

	return &config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "config", "config.json")
	}

	return filepath.Join(configDir, AppID, "config.json")
}

// DefaultConfig returns the configuration written on first run
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     60,
			MaxRetries:  2,
		},
		Assistant: AssistantConfig{
			Name:         "AI 助手",
			SystemPrompt: "You are a helpful assistant.",
			UserName:     "我",
		},
		UI: UIConfig{
			Theme:        "light",
			FontSize:     14,
			WindowWidth:  420,
			WindowHeight: 800,
		},
		Data: DataConfig{
			ContextTokens: 3500,
		},
		Rewards: RewardsConfig{
			InitialCoins:        20,
			ReviewAfterMessages: 5,
		},
	}
}

// EnsureDefaultConfig creates a default config file at configPath if it doesn't exist
func EnsureDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}
	return SaveConfig(configPath, DefaultConfig())
}
