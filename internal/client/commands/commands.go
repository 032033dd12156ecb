package commands

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/chinesepoker/internal/client"
	"github.com/lox/chinesepoker/internal/server"
)

// GlobalFlags holds common configuration for all client commands
type GlobalFlags struct {
	Config   string `short:"c" default:"chinesepoker-client.hcl" help:"Path to HCL configuration file"`
	Server   string `short:"s" help:"Server URL to connect to (overrides config)"`
	Room     string `short:"r" help:"Room to join (overrides config)"`
	ID       string `help:"Player id (overrides config)"`
	Name     string `short:"n" help:"Display name (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	LogFile  string `help:"Log file path (overrides config)"`
}

// Load reads the configuration file and applies command line overrides.
func (f *GlobalFlags) Load() (*client.ClientConfig, error) {
	cfg, err := client.LoadClientConfig(f.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if f.Server != "" {
		cfg.Server.URL = f.Server
	}
	if f.Room != "" {
		cfg.Server.Room = f.Room
	}
	if f.ID != "" {
		cfg.Player.ID = f.ID
	}
	if f.Name != "" {
		cfg.Player.Name = f.Name
	}
	if f.LogLevel != "" {
		cfg.UI.LogLevel = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.UI.LogFile = f.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SetupClient loads configuration, opens the log file and connects to the
// configured room. The returned cleanup disconnects and closes the log.
func SetupClient(ctx context.Context, flags *GlobalFlags) (*client.Client, *client.ClientConfig, *log.Logger, func(), error) {
	cfg, err := flags.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	// Overwrite each time; the terminal belongs to the shell
	logFile, err := os.OpenFile(cfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "chinesepoker",
	})
	level, _ := log.ParseLevel(cfg.UI.LogLevel)
	logger.SetLevel(level)

	connectCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ConnectTimeout)*time.Second)
	defer cancel()

	rooms, err := server.WaitForRooms(connectCtx, cfg.Server.URL)
	if err != nil {
		_ = logFile.Close()
		return nil, nil, nil, nil, fmt.Errorf("server not reachable at %s: %w", cfg.Server.URL, err)
	}
	exists := slices.ContainsFunc(rooms, func(r server.RoomInfo) bool { return r.ID == cfg.Server.Room })
	logger.Info("Server is up", "rooms", len(rooms), "room", cfg.Server.Room, "existing", exists)

	wsClient := client.NewClient(cfg.Server.URL, cfg.Server.Room, logger)
	if err := wsClient.Connect(connectCtx); err != nil {
		_ = logFile.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	cleanup := func() {
		_ = wsClient.Disconnect()
		_ = logFile.Close()
	}
	return wsClient, cfg, logger, cleanup, nil
}
