// Package bridge exposes the current artwork to a voice agent as
// synchronously invokable tools returning JSON text.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/artdocent/docent/internal/artwork"
)

const (
	FetchArtworkTool  = "fetchArtworkIdentification"
	LogDiagnosticTool = "logDiagnostic"
)

// NoArtworkMessage is returned to the agent when nothing has been captured.
const NoArtworkMessage = "No artwork has been uploaded yet. Please ask the user to upload an artwork image first using the upload button on the page."

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) (string, error)
}

// DiagnosticSink receives messages forwarded by the logDiagnostic tool.
type DiagnosticSink func(ctx context.Context, message string)

// Bridge holds the tools registered for one voice session.
type Bridge struct {
	tools  map[string]*Tool
	store  artwork.Reader
	sink   DiagnosticSink
	logger *slog.Logger
}

// New creates a bridge reading from store. The store is dereferenced on
// every call, never copied.
func New(store artwork.Reader, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		tools:  make(map[string]*Tool),
		store:  store,
		logger: logger,
	}
	b.sink = func(ctx context.Context, message string) {
		b.logger.InfoContext(ctx, "Agent diagnostic", "message", message)
	}
	b.registerBuiltins()
	return b
}

// WithDiagnosticSink replaces the default slog sink.
func (b *Bridge) WithDiagnosticSink(sink DiagnosticSink) *Bridge {
	if sink != nil {
		b.sink = sink
	}
	return b
}

func (b *Bridge) registerBuiltins() {
	b.Register(&Tool{
		Name:        FetchArtworkTool,
		Description: "Fetch the artwork the user has photographed: name, artist, year, medium, confidence and background context. Call this before discussing the artwork.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: b.handleFetchArtwork,
	})

	b.Register(&Tool{
		Name:        LogDiagnosticTool,
		Description: "Write a diagnostic message to the application log.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The message to log",
				},
			},
			"required": []string{"message"},
		},
		Handler: b.handleLogDiagnostic,
	})
}

// Register adds a tool, replacing any tool with the same name.
func (b *Bridge) Register(t *Tool) {
	b.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (b *Bridge) Get(name string) *Tool {
	return b.tools[name]
}

// Names returns the registered tool names in lexical order.
func (b *Bridge) Names() []string {
	names := make([]string, 0, len(b.tools))
	for name := range b.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns tool definitions in function-calling form.
func (b *Bridge) List() []map[string]any {
	result := make([]map[string]any, 0, len(b.tools))
	for _, name := range b.Names() {
		t := b.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with decoded arguments.
func (b *Bridge) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := b.tools[name]
	if tool == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool.Handler(ctx, args)
}

// ExecuteJSON runs a tool with JSON-encoded arguments. Empty input means
// no arguments.
func (b *Bridge) ExecuteJSON(ctx context.Context, name, argsJSON string) (string, error) {
	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}
	return b.Execute(ctx, name, args)
}
