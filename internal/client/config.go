package client

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ClientConfig represents the complete client configuration
type ClientConfig struct {
	Server ServerConnection `hcl:"server,block"`
	Player PlayerSettings   `hcl:"player,block"`
	UI     UISettings       `hcl:"ui,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	URL            string `hcl:"url,optional"`
	Room           string `hcl:"room,optional"`
	ConnectTimeout int    `hcl:"connect_timeout,optional"`
}

// PlayerSettings contains player-specific settings
type PlayerSettings struct {
	ID   string `hcl:"id,optional"`
	Name string `hcl:"name,optional"`
}

// UISettings contains user interface settings
type UISettings struct {
	LogLevel    string `hcl:"log_level,optional"`
	LogFile     string `hcl:"log_file,optional"`
	HistoryFile string `hcl:"history_file,optional"`
	Color       *bool  `hcl:"color,optional"`
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	color := true
	return &ClientConfig{
		Server: ServerConnection{
			URL:            "http://localhost:8080",
			Room:           "default",
			ConnectTimeout: 10,
		},
		UI: UISettings{
			LogLevel:    "warn",
			LogFile:     "chinesepoker-client.log",
			HistoryFile: ".chinesepoker_history",
			Color:       &color,
		},
	}
}

// LoadClientConfig loads client configuration from an HCL file. A missing file
// yields the defaults.
func LoadClientConfig(filename string) (*ClientConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultClientConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ClientConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultClientConfig()
	if config.Server.URL == "" {
		config.Server.URL = defaults.Server.URL
	}
	if config.Server.Room == "" {
		config.Server.Room = defaults.Server.Room
	}
	if config.Server.ConnectTimeout == 0 {
		config.Server.ConnectTimeout = defaults.Server.ConnectTimeout
	}
	if config.UI.LogLevel == "" {
		config.UI.LogLevel = defaults.UI.LogLevel
	}
	if config.UI.LogFile == "" {
		config.UI.LogFile = defaults.UI.LogFile
	}
	if config.UI.HistoryFile == "" {
		config.UI.HistoryFile = defaults.UI.HistoryFile
	}
	if config.UI.Color == nil {
		config.UI.Color = defaults.UI.Color
	}

	return &config, nil
}

// Validate validates the client configuration
func (c *ClientConfig) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server URL is required")
	}
	if c.Player.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if c.Server.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if _, err := log.ParseLevel(c.UI.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.UI.LogLevel)
	}
	return nil
}

// PlayerName returns the display name, falling back to the id.
func (c *ClientConfig) PlayerName() string {
	if c.Player.Name != "" {
		return c.Player.Name
	}
	return c.Player.ID
}

// ColorEnabled reports whether cards are rendered in colour.
func (c *ClientConfig) ColorEnabled() bool {
	return c.UI.Color == nil || *c.UI.Color
}
