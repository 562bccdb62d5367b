package mcp

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/hupe1980/agentforge/logging"
)

// DefaultDiscoveryTTL bounds how long discovery results (tool, resource and
// prompt lists) are served from cache before the server is asked again.
const DefaultDiscoveryTTL = 5 * time.Minute

// ClientManager owns one client per configured server and layers three
// concerns on top: caller-supplied configuration overrides (deep-merged onto
// the static config), client recreation after transport errors, and a
// time-boxed discovery cache.
//
// The manager inherits the clients' concurrency contract: it is not
// internally synchronized and must not be shared across uncoordinated
// goroutines.
type ClientManager struct {
	configs   map[string]ServerConfig
	overrides map[string]map[string]any
	merged    map[string]ServerConfig
	clients   map[string]Client
	discovery *gocache.Cache
	logger    logging.Logger
}

// ClientManagerOptions configure a ClientManager.
type ClientManagerOptions struct {
	Logger logging.Logger
	// DiscoveryTTL overrides how long discovery results are cached.
	DiscoveryTTL time.Duration
}

// NewClientManager constructs a manager over the given static server
// configurations.
func NewClientManager(configs map[string]ServerConfig, optFns ...func(o *ClientManagerOptions)) *ClientManager {
	opts := ClientManagerOptions{
		Logger:       logging.NoOpLogger{},
		DiscoveryTTL: DefaultDiscoveryTTL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if configs == nil {
		configs = make(map[string]ServerConfig)
	}
	return &ClientManager{
		configs:   configs,
		overrides: make(map[string]map[string]any),
		merged:    make(map[string]ServerConfig),
		clients:   make(map[string]Client),
		discovery: gocache.New(opts.DiscoveryTTL, 2*opts.DiscoveryTTL),
		logger:    opts.Logger,
	}
}

// ServerNames lists the configured servers.
func (m *ClientManager) ServerNames() []string {
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	return names
}

// HasServer reports whether a server is configured.
func (m *ClientManager) HasServer(name string) bool {
	_, ok := m.configs[name]
	return ok
}

// IsServerEnabled reports whether a server is configured and enabled after
// overrides are applied.
func (m *ClientManager) IsServerEnabled(name string) bool {
	cfg, err := m.EffectiveConfig(name)
	if err != nil {
		return false
	}
	return cfg.IsEnabled()
}

// SetServerOverrides installs a partial config for one server, deep-merged
// onto its static config. The cached merged view, the cached client and any
// cached discovery results for that server are invalidated.
func (m *ClientManager) SetServerOverrides(name string, override map[string]any) error {
	if !m.HasServer(name) {
		return fmt.Errorf("unknown mcp server %q", name)
	}
	if override == nil {
		delete(m.overrides, name)
	} else {
		m.overrides[name] = override
	}
	m.invalidate(name)
	return nil
}

// ClearServerOverrides removes any overrides for the server.
func (m *ClientManager) ClearServerOverrides(name string) {
	delete(m.overrides, name)
	m.invalidate(name)
}

// EffectiveConfig returns the server's config with overrides applied.
// Merged views are cached until overrides change.
func (m *ClientManager) EffectiveConfig(name string) (ServerConfig, error) {
	if cfg, ok := m.merged[name]; ok {
		return cfg, nil
	}
	base, ok := m.configs[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("unknown mcp server %q", name)
	}
	cfg := base
	if override, ok := m.overrides[name]; ok {
		var err error
		cfg, err = mergeConfig(base, override)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("mcp server %q: %w", name, err)
		}
	}
	if err := cfg.Validate(name); err != nil {
		return ServerConfig{}, err
	}
	m.merged[name] = cfg
	return cfg, nil
}

// Client returns the cached client for a server, constructing one on first
// access.
func (m *ClientManager) Client(name string) (Client, error) {
	if client, ok := m.clients[name]; ok {
		return client, nil
	}
	cfg, err := m.EffectiveConfig(name)
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("mcp server %q is disabled", name)
	}

	var client Client
	switch cfg.Transport {
	case TransportStdio:
		client = NewStdioClient(name, cfg, func(o *StdioClientOptions) { o.Logger = m.logger })
	case TransportHTTP:
		client = NewHTTPClient(name, cfg, func(o *HTTPClientOptions) { o.Logger = m.logger })
	default:
		return nil, fmt.Errorf("mcp server %q: unknown transport %q", name, cfg.Transport)
	}
	m.clients[name] = client
	return client, nil
}

// CallTool invokes a tool on a server. Errors propagate to the caller; the
// cached client is dropped so the next call starts from a fresh connection.
func (m *ClientManager) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (string, error) {
	client, err := m.Client(serverName)
	if err != nil {
		return "", err
	}
	started := time.Now()
	result, err := client.CallTool(ctx, toolName, args)
	if err != nil {
		m.logger.Error("mcp tool call failed", "server", serverName, "tool", toolName, "duration", time.Since(started), "error", err)
		m.dropClient(serverName)
		return "", err
	}
	m.logger.Debug("mcp tool call completed", "server", serverName, "tool", toolName, "duration", time.Since(started))
	return result, nil
}

// DiscoverTools returns the server's tool list, served from cache within the
// TTL. Discovery is best-effort: protocol and transport failures degrade to
// an empty list after logging, so one broken server never poisons a
// multi-server surface.
func (m *ClientManager) DiscoverTools(ctx context.Context, serverName string) []Tool {
	key := "tools:" + serverName
	if cached, ok := m.discovery.Get(key); ok {
		return cached.([]Tool)
	}
	client, err := m.Client(serverName)
	if err != nil {
		m.logger.Warn("mcp tool discovery skipped", "server", serverName, "error", err)
		return nil
	}
	tools, err := client.ListTools(ctx)
	if err != nil {
		m.logger.Warn("mcp tool discovery failed", "server", serverName, "error", err)
		m.dropClient(serverName)
		return nil
	}
	for i := range tools {
		tools[i].Server = serverName
	}
	m.discovery.Set(key, tools, gocache.DefaultExpiration)
	return tools
}

// DiscoverAllTools unions tool discovery across all enabled servers, each
// tool stamped with its origin server.
func (m *ClientManager) DiscoverAllTools(ctx context.Context) []Tool {
	var all []Tool
	for name := range m.configs {
		if !m.IsServerEnabled(name) {
			continue
		}
		all = append(all, m.DiscoverTools(ctx, name)...)
	}
	return all
}

// DiscoverResources returns the server's resource list, cached like tools.
func (m *ClientManager) DiscoverResources(ctx context.Context, serverName string) []Resource {
	key := "resources:" + serverName
	if cached, ok := m.discovery.Get(key); ok {
		return cached.([]Resource)
	}
	client, err := m.Client(serverName)
	if err != nil {
		m.logger.Warn("mcp resource discovery skipped", "server", serverName, "error", err)
		return nil
	}
	resources, err := client.ListResources(ctx)
	if err != nil {
		m.logger.Warn("mcp resource discovery failed", "server", serverName, "error", err)
		m.dropClient(serverName)
		return nil
	}
	for i := range resources {
		resources[i].Server = serverName
	}
	m.discovery.Set(key, resources, gocache.DefaultExpiration)
	return resources
}

// DiscoverPrompts returns the server's prompt list, cached like tools.
func (m *ClientManager) DiscoverPrompts(ctx context.Context, serverName string) []Prompt {
	key := "prompts:" + serverName
	if cached, ok := m.discovery.Get(key); ok {
		return cached.([]Prompt)
	}
	client, err := m.Client(serverName)
	if err != nil {
		m.logger.Warn("mcp prompt discovery skipped", "server", serverName, "error", err)
		return nil
	}
	prompts, err := client.ListPrompts(ctx)
	if err != nil {
		m.logger.Warn("mcp prompt discovery failed", "server", serverName, "error", err)
		m.dropClient(serverName)
		return nil
	}
	for i := range prompts {
		prompts[i].Server = serverName
	}
	m.discovery.Set(key, prompts, gocache.DefaultExpiration)
	return prompts
}

// ReadResource fetches one resource from a server.
func (m *ClientManager) ReadResource(ctx context.Context, serverName, uri string) (map[string]any, error) {
	client, err := m.Client(serverName)
	if err != nil {
		return nil, err
	}
	result, err := client.ReadResource(ctx, uri)
	if err != nil {
		m.dropClient(serverName)
		return nil, err
	}
	return result, nil
}

// GetPrompt fetches one rendered prompt from a server.
func (m *ClientManager) GetPrompt(ctx context.Context, serverName, promptName string, args map[string]any) (map[string]any, error) {
	client, err := m.Client(serverName)
	if err != nil {
		return nil, err
	}
	result, err := client.GetPrompt(ctx, promptName, args)
	if err != nil {
		m.dropClient(serverName)
		return nil, err
	}
	return result, nil
}

// ClearCache drops cached discovery results for one server.
func (m *ClientManager) ClearCache(serverName string) {
	m.discovery.Delete("tools:" + serverName)
	m.discovery.Delete("resources:" + serverName)
	m.discovery.Delete("prompts:" + serverName)
}

// ClearAllCaches drops all cached discovery results.
func (m *ClientManager) ClearAllCaches() {
	m.discovery.Flush()
}

// ConnectionTestResult reports the outcome of probing one server.
type ConnectionTestResult struct {
	Server    string
	Success   bool
	Error     string
	ToolCount int
	Duration  time.Duration
}

// TestConnection probes a server by connecting and listing its tools.
func (m *ClientManager) TestConnection(ctx context.Context, serverName string) ConnectionTestResult {
	started := time.Now()
	result := ConnectionTestResult{Server: serverName}

	client, err := m.Client(serverName)
	if err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(started)
		return result
	}
	tools, err := client.ListTools(ctx)
	result.Duration = time.Since(started)
	if err != nil {
		m.dropClient(serverName)
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.ToolCount = len(tools)
	return result
}

// TestAllConnections probes every configured, enabled server.
func (m *ClientManager) TestAllConnections(ctx context.Context) map[string]ConnectionTestResult {
	results := make(map[string]ConnectionTestResult, len(m.configs))
	for name := range m.configs {
		if !m.IsServerEnabled(name) {
			continue
		}
		results[name] = m.TestConnection(ctx, name)
	}
	return results
}

// DisconnectAll tears down every cached client.
func (m *ClientManager) DisconnectAll() {
	for name, client := range m.clients {
		if err := client.Disconnect(); err != nil {
			m.logger.Warn("mcp disconnect failed", "server", name, "error", err)
		}
		delete(m.clients, name)
	}
}

// dropClient disconnects and forgets the cached client so the next use
// rebuilds it from a clean state.
func (m *ClientManager) dropClient(name string) {
	if client, ok := m.clients[name]; ok {
		_ = client.Disconnect()
		delete(m.clients, name)
	}
}

// invalidate forgets all derived state for a server after a config change.
func (m *ClientManager) invalidate(name string) {
	delete(m.merged, name)
	m.dropClient(name)
	m.ClearCache(name)
}
