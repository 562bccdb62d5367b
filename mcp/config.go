package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport selects how a server is reached.
type Transport string

const (
	// TransportStdio spawns the server as a subprocess and speaks
	// newline-delimited JSON over its stdin/stdout.
	TransportStdio Transport = "stdio"
	// TransportHTTP posts each JSON-RPC request to a URL.
	TransportHTTP Transport = "http"
)

// DefaultTimeoutSeconds bounds a single request/response exchange when the
// server config does not set its own timeout.
const DefaultTimeoutSeconds = 30

// ServerConfig describes one MCP server. Stdio fields and HTTP fields are
// mutually exclusive by transport; Validate enforces the split.
type ServerConfig struct {
	Transport Transport `yaml:"transport" json:"transport"`

	// Stdio transport.
	Command string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	UsePTY  bool              `yaml:"use_pty,omitempty" json:"use_pty,omitempty"`

	// HTTP transport.
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	APIKey  string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	TimeoutSeconds int   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Enabled        *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the server participates in discovery and calls.
// Servers are enabled unless explicitly disabled.
func (c ServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Timeout returns the per-call deadline for this server.
func (c ServerConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// Validate checks transport-specific required fields.
func (c ServerConfig) Validate(name string) error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("mcp server %q: stdio transport requires a command", name)
		}
	case TransportHTTP:
		if c.URL == "" {
			return fmt.Errorf("mcp server %q: http transport requires a url", name)
		}
	default:
		return fmt.Errorf("mcp server %q: unknown transport %q", name, c.Transport)
	}
	return nil
}

// configFile is the YAML document shape: a servers map keyed by server name.
type configFile struct {
	Servers map[string]ServerConfig `yaml:"servers"`
}

// LoadConfigFile reads server configurations from a YAML file.
func LoadConfigFile(path string) (map[string]ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mcp config %q: %w", path, err)
	}
	return ParseConfig(raw)
}

// ParseConfig parses a YAML server configuration document and validates
// every entry.
func ParseConfig(raw []byte) (map[string]ServerConfig, error) {
	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse mcp config: %w", err)
	}
	for name, cfg := range file.Servers {
		if err := cfg.Validate(name); err != nil {
			return nil, err
		}
	}
	if file.Servers == nil {
		file.Servers = make(map[string]ServerConfig)
	}
	return file.Servers, nil
}

// mergeConfig deep-merges a partial override onto a base config. Nested maps
// merge key by key; scalars and lists in the override replace the base value.
func mergeConfig(base ServerConfig, override map[string]any) (ServerConfig, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("failed to encode base config: %w", err)
	}
	var baseMap map[string]any
	if err := json.Unmarshal(raw, &baseMap); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to decode base config: %w", err)
	}

	merged := deepMerge(baseMap, override)

	raw, err = json.Marshal(merged)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("failed to encode merged config: %w", err)
	}
	var out ServerConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid config override: %w", err)
	}
	return out, nil
}

// deepMerge returns base with override applied. Map values merge
// recursively; any other value type in the override wins.
func deepMerge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = deepMerge(bv, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}
