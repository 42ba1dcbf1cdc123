package main

import (
	"log/slog"
	"os"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess/connection"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
)

const (
	// AppName is the name of the application.
	AppName = "lostland"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvApplicationId is the environment variable for the application ID.
	EnvApplicationId = `APPLICATION_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`

	// EnvPanelsFile is the environment variable for the panel configuration
	// file.
	EnvPanelsFile = `PANELS_FILE`
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// ApplicationId is the ID of the application.
	ApplicationId string

	// MongoUri is the URI for the MongoDB database.
	MongoUri string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string

	// PanelsFile is the path of the panel configuration file.
	PanelsFile string

	// Panels is the loaded panel tree. Read-only after parseConfig.
	Panels *panels.Config
)

func parseConfig(l *slog.Logger) {
	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		l.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envAppId := os.Getenv(EnvApplicationId); envAppId != "" {
		l.Debug("Found application ID in environment", slog.String("key", EnvApplicationId))
		ApplicationId = envAppId
	}

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		l.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		l.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		l.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if envPanelsFile := os.Getenv(EnvPanelsFile); envPanelsFile != "" {
		l.Debug("Found panels file in environment", slog.String("key", EnvPanelsFile))
		PanelsFile = envPanelsFile
	} else {
		PanelsFile = "panels.yaml"
		l.Info("No panels file provided in environment, defaulting to panels.yaml", slog.String("key", EnvPanelsFile))
	}

	if BotToken == "" ||
		ApplicationId == "" ||
		MongoUri == "" {

		l.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
		os.Exit(1)
	}

	loadPanels(l)
	connectMongo(l)
}

func loadPanels(l *slog.Logger) {
	cfg, err := panels.Load(PanelsFile)
	if err != nil {
		l.Error("Error loading panel configuration", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
	Panels = cfg
	l.Debug("Loaded panel configuration", slog.Int("panels", len(cfg.Panels)))
}

func connectMongo(l *slog.Logger) {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		l.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		l.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	l.Debug("Connected to MongoDB", slog.String("key", EnvMongoUri))
}
