package types

import "time"

// Config is the runtime configuration for the bridge.
//
// Env overrides use the BRIDGE_ prefix (e.g. BRIDGE_PORT, BRIDGE_TOKEN,
// BRIDGE_WORKSPACE_ROOTS as a comma-separated list).
type Config struct {
	// WorkspaceRoots are the directories the bridge may serve files from.
	// No access outside these roots is ever permitted.
	WorkspaceRoots []string `json:"workspaceRoots" yaml:"workspaceRoots" envconfig:"WORKSPACE_ROOTS"`

	// DeniedExtensions are file extensions (with leading dot, matched
	// case-insensitively) that are always refused.
	DeniedExtensions []string `json:"deniedExtensions" yaml:"deniedExtensions" envconfig:"DENIED_EXTENSIONS"`

	Host string `json:"host" yaml:"host" envconfig:"HOST"`
	Port int    `json:"port" yaml:"port" envconfig:"PORT"`

	// Token is the bearer token the agent must present on protected routes.
	Token string `json:"token" yaml:"token" envconfig:"TOKEN"`

	// DefaultTTLMinutes is applied when a request does not name a TTL.
	// Zero means grants do not expire by default.
	DefaultTTLMinutes int `json:"defaultTtlMinutes" yaml:"defaultTtlMinutes" envconfig:"DEFAULT_TTL_MINUTES"`

	// MaxTTLMinutes caps requested and overridden TTLs. Zero means no cap.
	MaxTTLMinutes int `json:"maxTtlMinutes" yaml:"maxTtlMinutes" envconfig:"MAX_TTL_MINUTES"`

	// DecisionTimeoutSeconds bounds how long a blocking approval request
	// waits for the operator.
	DecisionTimeoutSeconds int `json:"decisionTimeoutSeconds" yaml:"decisionTimeoutSeconds" envconfig:"DECISION_TIMEOUT_SECONDS"`

	AuditCapacity int `json:"auditCapacity" yaml:"auditCapacity" envconfig:"AUDIT_CAPACITY"`
	MaxFileSizeMB int `json:"maxFileSizeMb" yaml:"maxFileSizeMb" envconfig:"MAX_FILE_SIZE_MB"`

	LogLevel string `json:"logLevel" yaml:"logLevel" envconfig:"LOG_LEVEL"`

	// WatchRoots enables the fsnotify watcher on the workspace roots.
	WatchRoots bool `json:"watchRoots" yaml:"watchRoots" envconfig:"WATCH_ROOTS"`
}

// DecisionTimeout returns the configured decision wait as a duration.
func (c *Config) DecisionTimeout() time.Duration {
	return time.Duration(c.DecisionTimeoutSeconds) * time.Second
}

// DefaultTTL returns the default grant TTL as a duration (zero = no expiry).
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLMinutes) * time.Minute
}
