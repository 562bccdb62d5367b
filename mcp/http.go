package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hupe1980/agentforge/logging"
)

// HTTPClient talks to an MCP server over HTTP: every JSON-RPC request is a
// single POST to the configured URL. There is no persistent connection to
// lose, so Connect only performs the initialize handshake.
type HTTPClient struct {
	serverName string
	cfg        ServerConfig
	logger     logging.Logger
	httpClient *http.Client

	nextID    int
	connected bool
}

var _ Client = (*HTTPClient)(nil)

// HTTPClientOptions configure an HTTPClient.
type HTTPClientOptions struct {
	Logger logging.Logger
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// NewHTTPClient constructs an HTTP client for the given server config.
func NewHTTPClient(serverName string, cfg ServerConfig, optFns ...func(o *HTTPClientOptions)) *HTTPClient {
	opts := HTTPClientOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &HTTPClient{
		serverName: serverName,
		cfg:        cfg,
		logger:     opts.Logger,
		httpClient: httpClient,
		nextID:     1,
	}
}

// Connect performs the initialize handshake.
func (c *HTTPClient) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}
	id := c.nextID
	c.nextID++
	if _, err := c.post(ctx, request{JSONRPC: "2.0", ID: id, Method: methodInitialize, Params: initializeParams()}, methodInitialize, true); err != nil {
		return err
	}
	// Notifications carry no id; the server may answer with an empty body.
	if _, err := c.post(ctx, notification{JSONRPC: "2.0", Method: methodInitialized}, methodInitialized, false); err != nil {
		return err
	}
	c.connected = true
	c.logger.Debug("mcp server connected", "server", c.serverName, "transport", "http", "url", c.cfg.URL)
	return nil
}

// Disconnect implements Client. HTTP holds no session state to tear down.
func (c *HTTPClient) Disconnect() error {
	c.connected = false
	return nil
}

// Connected implements Client.
func (c *HTTPClient) Connected() bool {
	return c.connected
}

// ListTools implements Client.
func (c *HTTPClient) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.call(ctx, methodToolsList, map[string]any{})
	if err != nil {
		return nil, err
	}
	var tools []Tool
	if err := decodeList(result, "tools", &tools); err != nil {
		return nil, &Error{Server: c.serverName, Method: methodToolsList, Message: err.Error()}
	}
	return tools, nil
}

// CallTool implements Client.
func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.call(ctx, methodToolsCall, map[string]any{
		"name":      name,
		"arguments": normalizeArgs(args),
	})
	if err != nil {
		return "", err
	}
	content, err := toolCallContent(result)
	if err != nil {
		return "", &Error{Server: c.serverName, Method: methodToolsCall, Message: err.Error()}
	}
	return content, nil
}

// ListResources implements Client.
func (c *HTTPClient) ListResources(ctx context.Context) ([]Resource, error) {
	result, err := c.call(ctx, methodResourcesList, map[string]any{})
	if err != nil {
		return nil, err
	}
	var resources []Resource
	if err := decodeList(result, "resources", &resources); err != nil {
		return nil, &Error{Server: c.serverName, Method: methodResourcesList, Message: err.Error()}
	}
	return resources, nil
}

// ReadResource implements Client.
func (c *HTTPClient) ReadResource(ctx context.Context, uri string) (map[string]any, error) {
	result, err := c.call(ctx, methodResourcesRead, map[string]any{"uri": uri})
	if err != nil {
		return nil, err
	}
	return decodeResultObject(c.serverName, methodResourcesRead, result)
}

// ListPrompts implements Client.
func (c *HTTPClient) ListPrompts(ctx context.Context) ([]Prompt, error) {
	result, err := c.call(ctx, methodPromptsList, map[string]any{})
	if err != nil {
		return nil, err
	}
	var prompts []Prompt
	if err := decodeList(result, "prompts", &prompts); err != nil {
		return nil, &Error{Server: c.serverName, Method: methodPromptsList, Message: err.Error()}
	}
	return prompts, nil
}

// GetPrompt implements Client.
func (c *HTTPClient) GetPrompt(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, methodPromptsGet, map[string]any{
		"name":      name,
		"arguments": normalizeArgs(args),
	})
	if err != nil {
		return nil, err
	}
	return decodeResultObject(c.serverName, methodPromptsGet, result)
}

// call sends one request, connecting first if needed.
func (c *HTTPClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}
	id := c.nextID
	c.nextID++
	return c.post(ctx, request{JSONRPC: "2.0", ID: id, Method: method, Params: params}, method, true)
}

// post performs one JSON-RPC exchange. Non-2xx statuses are transport
// errors; a JSON-RPC error member is a protocol error.
func (c *HTTPClient) post(ctx context.Context, payload any, method string, expectResponse bool) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Server: c.serverName, Method: method, Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Server: c.serverName, Method: method, Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.connected = false
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Server: c.serverName, Method: method, Timeout: isTimeoutErr(err), Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Server: c.serverName, Method: method, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &Error{Server: c.serverName, Method: method, Code: httpResp.StatusCode, Message: fmt.Sprintf("server returned HTTP %d: %s", httpResp.StatusCode, truncate(string(body), 200))}
	}
	if !expectResponse || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Server: c.serverName, Method: method, Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if resp.Error != nil {
		return nil, &Error{Server: c.serverName, Method: method, Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
	}
	return resp.Result, nil
}

// isTimeoutErr reports whether a transport error was a deadline expiry.
func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	for e := err; e != nil; {
		if t, ok := e.(timeouter); ok && t.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return false
}

// truncate clips s for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
