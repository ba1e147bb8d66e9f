package main

import (
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"

	"bugeai-chat/db"
	"bugeai-chat/llm"
	"bugeai-chat/ui"
	"bugeai-chat/utils"
)

var (
	version = "0.1.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", utils.AppName, version)
		os.Exit(0)
	}

	if err := utils.LoadDotEnv(); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
	}

	// Load or create default configuration
	actualConfigPath := *configPath
	if actualConfigPath == "" {
		actualConfigPath = utils.GetConfigPath()
		if err := utils.EnsureDefaultConfig(actualConfigPath); err != nil {
			fmt.Printf("Failed to create default config: %v\n", err)
			os.Exit(1)
		}
	}
	config, err := utils.LoadConfig(actualConfigPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.GetLogPath(), config.Debug)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting %s v%s", utils.AppName, version)
	logger.Info("Using config file: %s", actualConfigPath)

	fyneApp := app.NewWithID(utils.AppID)

	// Initialize database
	dbPath := ui.DatabasePath(fyneApp, config.Data.DBPath)
	database, err := db.New(dbPath)
	if err != nil {
		logger.Error("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer database.Close()

	logger.Info("Database initialized: %s", dbPath)

	provider, err := llm.NewOpenAIProvider(llm.Config{
		APIKey:      config.OpenAI.APIKey,
		BaseURL:     config.OpenAI.BaseURL,
		Model:       config.OpenAI.Model,
		Timeout:     config.OpenAI.Timeout,
		MaxTokens:   config.OpenAI.MaxTokens,
		Temperature: config.OpenAI.Temperature,
	})
	if err != nil {
		logger.Error("Failed to create provider: %v", err)
		os.Exit(1)
	}
	if err := provider.ValidateConfig(); err != nil {
		logger.Warn("Provider not ready: %v", err)
	}

	// Create and run application
	application := ui.NewApp(fyneApp, config, actualConfigPath, database, provider, logger)
	defer application.Cleanup()

	logger.Info("Application started")
	application.Run()
	logger.Info("Application stopped")
}
