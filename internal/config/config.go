// Package config loads bridge configuration from files and the environment.
//
// Sources, in priority order (later wins):
//  1. defaults
//  2. config file: bridge.jsonc / bridge.json / bridge.yaml, looked up in
//     the working directory, then ~/.config/localbridge/
//  3. environment variables with a BRIDGE_ prefix (BRIDGE_PORT, ...)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/oklog/ulid/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// candidate file names, checked in order.
var fileNames = []string{"bridge.jsonc", "bridge.json", "bridge.yaml", "bridge.yml"}

// Default returns the built-in configuration.
func Default() *types.Config {
	return &types.Config{
		DeniedExtensions:       []string{".env", ".pem", ".key", ".p12", ".pfx", ".secret"},
		Host:                   "127.0.0.1",
		Port:                   9120,
		DefaultTTLMinutes:      60,
		DecisionTimeoutSeconds: 300,
		AuditCapacity:          5000,
		MaxFileSizeMB:          10,
		LogLevel:               "info",
	}
}

// Load builds the effective configuration. path may name an explicit config
// file; when empty the standard locations are searched. A missing config
// file is not an error, only a malformed one is. Callers apply their own
// overrides (flags) and then run Validate.
func Load(path string) (*types.Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		if err := loadFile(file, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", file, err)
		}
	}

	if err := envconfig.Process("bridge", cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	// A token is required for the agent-facing routes; generate one when the
	// operator did not choose their own.
	if cfg.Token == "" {
		cfg.Token = ulid.Make().String()
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot safely run with.
func Validate(cfg *types.Config) error {
	if len(cfg.WorkspaceRoots) == 0 {
		return &types.ValidationError{Field: "workspaceRoots", Message: "at least one workspace root is required"}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &types.ValidationError{Field: "port", Message: fmt.Sprintf("invalid port %d", cfg.Port)}
	}
	if cfg.DefaultTTLMinutes < 0 {
		return &types.ValidationError{Field: "defaultTtlMinutes", Message: "must not be negative"}
	}
	if cfg.MaxTTLMinutes < 0 {
		return &types.ValidationError{Field: "maxTtlMinutes", Message: "must not be negative"}
	}
	if cfg.DecisionTimeoutSeconds <= 0 {
		return &types.ValidationError{Field: "decisionTimeoutSeconds", Message: "must be positive"}
	}
	return nil
}

func findConfigFile() string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "localbridge"))
	}

	for _, dir := range dirs {
		for _, name := range fileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func loadFile(path string, cfg *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		// Strip JSONC comments and trailing commas before decoding.
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
}
