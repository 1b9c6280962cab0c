package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/drugs"
	"github.com/bobmcallan/agentdrugs/internal/interfaces"
	"github.com/bobmcallan/agentdrugs/internal/oauth"
	"github.com/bobmcallan/agentdrugs/internal/storage"
)

// App holds the initialized storage, services and MCP server.
// It is the shared core behind cmd/agentdrugs-server and the tests.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	OAuth       *oauth.Service
	Drugs       *drugs.Service
	MCPServer   *server.MCPServer
	StartupTime time.Time

	purgeCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: configPath, AGENTDRUGS_CONFIG,
// agentdrugs.toml next to the binary, then config/agentdrugs.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("AGENTDRUGS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "agentdrugs.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/agentdrugs.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every component.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return New(config, logger, storageManager), nil
}

// New assembles an App around an existing storage manager.
func New(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		OAuth:       oauth.NewService(storageManager, config.Auth, credentials.Default, logger),
		Drugs:       drugs.NewService(storageManager, logger),
		StartupTime: time.Now(),
	}

	a.MCPServer = server.NewMCPServer(
		"agentdrugs",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	a.registerTools()

	return a
}

// StartCodePurge launches the background purge of expired authorization codes.
func (a *App) StartCodePurge() {
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	a.purgeCancel = purgeCancel
	go startCodePurge(purgeCtx, a.OAuth.Exchanger, a.Logger, a.Config.Auth.GetPurgeInterval())
}

// Close releases all resources held by the App.
// Shutdown order: stop the purge loop, close storage.
func (a *App) Close() {
	if a.purgeCancel != nil {
		a.purgeCancel()
		a.purgeCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createListDrugsTool(), handleListDrugs(a.Drugs, logger))
	s.AddTool(createTakeDrugTool(), handleTakeDrug(a.Drugs, logger))
	s.AddTool(createActiveDrugsTool(), handleActiveDrugs(a.Drugs, logger))
	s.AddTool(createDetoxTool(), handleDetox(a.Drugs, logger))
}
