package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/hupe1980/agentforge/logging"
)

// pollInterval is how often the response reader re-checks for a matching
// line while waiting for a reply.
const pollInterval = 100 * time.Millisecond

// defaultPath is injected into the child environment when neither the parent
// environment nor the configured env carries a PATH. Servers launched via
// interpreters (npx, uvx) break without one.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// StdioClient talks to an MCP server running as a child process, framing
// JSON-RPC messages as newline-delimited JSON on the child's stdin/stdout.
// Request ids increment from 1 per client; stray stdout lines that are not
// valid JSON-RPC responses (banners, log output) are skipped, not errors.
type StdioClient struct {
	serverName string
	cfg        ServerConfig
	logger     logging.Logger

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	lines     chan string
	nextID    int
	connected bool
}

var _ Client = (*StdioClient)(nil)

// StdioClientOptions configure a StdioClient.
type StdioClientOptions struct {
	Logger logging.Logger
}

// NewStdioClient constructs a stdio client for the given server config.
func NewStdioClient(serverName string, cfg ServerConfig, optFns ...func(o *StdioClientOptions)) *StdioClient {
	opts := StdioClientOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &StdioClient{
		serverName: serverName,
		cfg:        cfg,
		logger:     opts.Logger,
		nextID:     1,
	}
}

// Connect spawns the server process and performs the initialize handshake.
func (c *StdioClient) Connect(ctx context.Context) error {
	if c.connected {
		return nil
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Env = mergedEnv(c.cfg.Env)

	var reader io.Reader
	if c.cfg.UsePTY {
		f, err := pty.Start(cmd)
		if err != nil {
			return &Error{Server: c.serverName, Method: methodInitialize, Message: fmt.Sprintf("failed to start server in pty: %v", err)}
		}
		c.stdin = f
		reader = f
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return &Error{Server: c.serverName, Method: methodInitialize, Message: fmt.Sprintf("failed to open stdin: %v", err)}
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return &Error{Server: c.serverName, Method: methodInitialize, Message: fmt.Sprintf("failed to open stdout: %v", err)}
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return &Error{Server: c.serverName, Method: methodInitialize, Message: fmt.Sprintf("failed to open stderr: %v", err)}
		}
		if err := cmd.Start(); err != nil {
			return &Error{Server: c.serverName, Method: methodInitialize, Message: fmt.Sprintf("failed to start server: %v", err)}
		}
		go c.drainStderr(stderr)
		c.stdin = stdin
		reader = stdout
	}
	c.cmd = cmd

	c.lines = make(chan string, 64)
	go c.readLines(reader)

	if err := c.handshake(ctx); err != nil {
		_ = c.Disconnect()
		return err
	}

	c.connected = true
	c.logger.Debug("mcp server connected", "server", c.serverName, "transport", "stdio", "command", c.cfg.Command)
	return nil
}

// handshake sends initialize, waits for its response and sends the
// initialized notification.
func (c *StdioClient) handshake(ctx context.Context) error {
	id := c.nextID
	c.nextID++
	if err := c.writeJSON(request{JSONRPC: "2.0", ID: id, Method: methodInitialize, Params: initializeParams()}); err != nil {
		return err
	}
	if _, err := c.readResponse(ctx, id, methodInitialize); err != nil {
		return err
	}
	return c.writeJSON(notification{JSONRPC: "2.0", Method: methodInitialized})
}

// Disconnect closes stdin and kills the child process. Safe to call twice.
func (c *StdioClient) Disconnect() error {
	c.connected = false
	if c.stdin != nil {
		_ = c.stdin.Close()
		c.stdin = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	c.cmd = nil
	return nil
}

// Connected implements Client.
func (c *StdioClient) Connected() bool {
	return c.connected
}

// ListTools implements Client.
func (c *StdioClient) ListTools(ctx context.Context) ([]Tool, error) {
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
func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
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
func (c *StdioClient) ListResources(ctx context.Context) ([]Resource, error) {
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
func (c *StdioClient) ReadResource(ctx context.Context, uri string) (map[string]any, error) {
	result, err := c.call(ctx, methodResourcesRead, map[string]any{"uri": uri})
	if err != nil {
		return nil, err
	}
	return decodeResultObject(c.serverName, methodResourcesRead, result)
}

// ListPrompts implements Client.
func (c *StdioClient) ListPrompts(ctx context.Context) ([]Prompt, error) {
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
func (c *StdioClient) GetPrompt(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, methodPromptsGet, map[string]any{
		"name":      name,
		"arguments": normalizeArgs(args),
	})
	if err != nil {
		return nil, err
	}
	return decodeResultObject(c.serverName, methodPromptsGet, result)
}

// call sends one request and waits for its correlated response, connecting
// first if needed.
func (c *StdioClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !c.connected {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}
	id := c.nextID
	c.nextID++
	if err := c.writeJSON(request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}
	return c.readResponse(ctx, id, method)
}

// writeJSON frames v as a single newline-terminated line on the child's stdin.
func (c *StdioClient) writeJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &Error{Server: c.serverName, Message: fmt.Sprintf("failed to encode request: %v", err)}
	}
	raw = append(raw, '\n')
	if _, err := c.stdin.Write(raw); err != nil {
		c.connected = false
		return &Error{Server: c.serverName, Message: fmt.Sprintf("failed to write to server: %v", err)}
	}
	return nil
}

// readResponse polls stdout lines until the response with the matching id
// arrives or the configured timeout elapses. Lines that are not valid
// JSON-RPC responses, or that carry a different id, are skipped.
func (c *StdioClient) readResponse(ctx context.Context, id int, method string) (json.RawMessage, error) {
	attempts := c.cfg.TimeoutSeconds
	if attempts <= 0 {
		attempts = DefaultTimeoutSeconds
	}
	attempts *= 10

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-c.lines:
			if !ok {
				c.connected = false
				return nil, &Error{Server: c.serverName, Method: method, Message: "server closed its output stream"}
			}
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "{") {
				continue
			}
			var resp response
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				continue
			}
			if resp.ID != id {
				continue
			}
			if resp.Error != nil {
				return nil, &Error{Server: c.serverName, Method: method, Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
			}
			return resp.Result, nil
		case <-time.After(pollInterval):
		}
	}
	return nil, &Error{Server: c.serverName, Method: method, Timeout: true, Message: fmt.Sprintf("no response within %s", c.cfg.Timeout())}
}

// readLines pumps child stdout into the line channel until EOF.
func (c *StdioClient) readLines(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	lines := c.lines
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

// drainStderr logs child stderr at debug level so server diagnostics are
// visible without polluting the protocol stream.
func (c *StdioClient) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.logger.Debug("mcp server stderr", "server", c.serverName, "line", scanner.Text())
	}
}

// decodeResultObject decodes a JSON-RPC result into a generic map.
func decodeResultObject(server, method string, result json.RawMessage) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, &Error{Server: server, Method: method, Message: fmt.Sprintf("malformed result: %v", err)}
	}
	return out, nil
}

// mergedEnv combines the parent environment with the configured overrides
// and guarantees a PATH entry exists.
func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	seen := make(map[string]int, len(env))
	for i, kv := range env {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			seen[kv[:idx]] = i
		}
	}
	for k, v := range extra {
		if i, ok := seen[k]; ok {
			env[i] = k + "=" + v
			continue
		}
		seen[k] = len(env)
		env = append(env, k+"="+v)
	}
	if _, ok := seen["PATH"]; !ok {
		env = append(env, "PATH="+defaultPath)
	}
	return env
}
