package server

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/chinesepoker/internal/store"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Rooms  []RoomConfig   `hcl:"room,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address         string `hcl:"address,optional"`
	Port            int    `hcl:"port,optional"`
	LogLevel        string `hcl:"log_level,optional"`
	DataDir         string `hcl:"data_dir,optional"`
	HistoryDir      string `hcl:"history_dir,optional"`
	AutosaveSeconds int    `hcl:"autosave_seconds,optional"`
	StrictPlacement bool   `hcl:"strict_placement,optional"`
}

// RoomConfig pre-creates a room, optionally with a fixed shuffle seed.
type RoomConfig struct {
	Name string `hcl:"name,label"`
	Seed *int64 `hcl:"seed,optional"`
}

const (
	defaultAddress  = "localhost"
	defaultPort     = 8080
	defaultLogLevel = "info"
	defaultAutosave = 30
)

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:         defaultAddress,
			Port:            defaultPort,
			LogLevel:        defaultLogLevel,
			AutosaveSeconds: defaultAutosave,
		},
		Rooms: []RoomConfig{{Name: DefaultRoom}},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = defaultAddress
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaultPort
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaultLogLevel
	}
	if config.Server.AutosaveSeconds == 0 {
		config.Server.AutosaveSeconds = defaultAutosave
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Server.AutosaveSeconds < 0 {
		return fmt.Errorf("autosave_seconds must not be negative")
	}

	seen := make(map[string]bool, len(c.Rooms))
	for _, room := range c.Rooms {
		if !store.ValidRoomID(room.Name) {
			return fmt.Errorf("room %q: invalid name", room.Name)
		}
		if seen[room.Name] {
			return fmt.Errorf("room %s: defined twice", room.Name)
		}
		seen[room.Name] = true
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetRoomByName returns a room configuration by name
func (c *ServerConfig) GetRoomByName(name string) *RoomConfig {
	for i := range c.Rooms {
		if c.Rooms[i].Name == name {
			return &c.Rooms[i]
		}
	}
	return nil
}

// AutosaveInterval is the period between room saves; zero disables autosave.
func (c *ServerConfig) AutosaveInterval() time.Duration {
	return time.Duration(c.Server.AutosaveSeconds) * time.Second
}
