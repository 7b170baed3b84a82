// Package config loads the parley configuration. Precedence, lowest to
// highest: built-in defaults, the YAML config file, PARLEY_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level parley configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Turn      TurnConfig      `yaml:"turn"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP gateway listener.
type ServerConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// ModelConfig selects the default provider and model for new conversations.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
}

// WorkspaceConfig roots the local capability skills.
type WorkspaceConfig struct {
	Path string `yaml:"path"`
}

// TurnConfig tunes per-turn orchestration behavior.
type TurnConfig struct {
	AutoExecute       bool `yaml:"auto_execute"`
	CallTimeoutMS     int  `yaml:"call_timeout_ms"`
	OutputLimit       int  `yaml:"output_limit"`
	RepetitionWarning bool `yaml:"repetition_warning"`
	RepetitionWindow  int  `yaml:"repetition_window"`
}

// LogConfig controls gateway logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8089"},
		Turn: TurnConfig{
			CallTimeoutMS:     30000,
			RepetitionWarning: true,
			RepetitionWindow:  10,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An empty path skips the file layer; a named
// file that cannot be read or parsed is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = envString("PARLEY_ADDR", c.Server.Addr)
	c.Server.APIKey = envString("PARLEY_API_KEY", c.Server.APIKey)
	c.Model.Provider = envString("PARLEY_PROVIDER", c.Model.Provider)
	c.Model.Name = envString("PARLEY_MODEL", c.Model.Name)
	c.Workspace.Path = envString("PARLEY_WORKSPACE", c.Workspace.Path)
	c.Turn.AutoExecute = envBool("PARLEY_AUTO_EXECUTE", c.Turn.AutoExecute)
	c.Turn.CallTimeoutMS = envInt("PARLEY_CALL_TIMEOUT_MS", c.Turn.CallTimeoutMS)
	c.Turn.OutputLimit = envInt("PARLEY_OUTPUT_LIMIT", c.Turn.OutputLimit)
	c.Turn.RepetitionWarning = envBool("PARLEY_REPETITION_WARNING", c.Turn.RepetitionWarning)
	c.Turn.RepetitionWindow = envInt("PARLEY_REPETITION_WINDOW", c.Turn.RepetitionWindow)
	c.Log.Level = envString("PARLEY_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("PARLEY_LOG_FORMAT", c.Log.Format)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8089"
	}
	if c.Turn.CallTimeoutMS <= 0 {
		c.Turn.CallTimeoutMS = 30000
	}
	if c.Turn.RepetitionWindow <= 0 {
		c.Turn.RepetitionWindow = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func envString(key, current string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return current
}

func envBool(key string, current bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return current
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return current
	}
	return parsed
}

func envInt(key string, current int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return current
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return current
	}
	return parsed
}
