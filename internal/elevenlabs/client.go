// Package elevenlabs is a client for ElevenLabs Conversational AI sessions.
// It handles the control protocol (initiation, ping/pong, client tool
// calls) and leaves audio to the caller.
package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/artdocent/docent/internal/apperr"
)

const DefaultBaseURL = "https://api.elevenlabs.io"

// Mode is what the agent is doing right now.
type Mode string

const (
	ModeSpeaking  Mode = "speaking"
	ModeListening Mode = "listening"
)

// ToolInvoker executes client tools on behalf of the agent. The returned
// text is sent back verbatim.
type ToolInvoker interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Callbacks are session lifecycle hooks. Any of them may be nil. They run
// on the session's read goroutine and must not block on the session.
type Callbacks struct {
	OnConnect    func(conversationID string)
	OnDisconnect func()
	OnError      func(err error)
	OnModeChange func(mode Mode)
	OnTranscript func(role, text string)
}

// SessionConfig describes one conversation.
type SessionConfig struct {
	AgentID          string
	Tools            ToolInvoker
	DynamicVariables map[string]string
	Callbacks        Callbacks
}

// Client opens conversations against the ElevenLabs API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger

	// handshakeTimeout bounds the wait for conversation metadata.
	handshakeTimeout time.Duration
}

// NewClient creates a client. With an apiKey, conversations use a signed
// URL so private agents work; without one only public agents do.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
			ReadBufferSize:   64 * 1024,
			WriteBufferSize:  16 * 1024,
		},
		logger:           logger,
		handshakeTimeout: 15 * time.Second,
	}
}

// StartSession connects, sends the initiation data and waits for the
// conversation metadata before returning.
func (c *Client) StartSession(ctx context.Context, cfg SessionConfig) (*Conversation, error) {
	if cfg.AgentID == "" {
		return nil, apperr.Configuration("voice agent id is not configured",
			"Server configuration error. Please ensure ELEVENLABS_AGENT_ID is set.", nil)
	}

	wsURL, err := c.conversationURL(ctx, cfg.AgentID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Connecting to voice agent", "agent_id", cfg.AgentID)

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, apperr.Upstream("Failed to connect to voice agent", err)
	}

	hello := initiationClientData{Type: msgInitiationClientData, DynamicVariables: cfg.DynamicVariables}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, apperr.Upstream("Failed to initiate conversation", err)
	}

	deadline := time.Now().Add(c.handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	// A cancelled ctx closes the socket so the metadata read returns.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	conversationID, err := awaitMetadata(conn)
	if !stop() {
		conn.Close()
		return nil, apperr.Upstream("Voice agent did not start the conversation", ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, apperr.Upstream("Voice agent did not start the conversation", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	conv := newConversation(conn, conversationID, cfg, c.logger.With("conversation_id", conversationID))
	if cb := cfg.Callbacks.OnConnect; cb != nil {
		cb(conversationID)
	}
	go conv.readLoop()

	c.logger.Info("Voice conversation started", "conversation_id", conversationID)
	return conv, nil
}

// awaitMetadata reads until the initiation metadata arrives. Pings sent
// before it are answered.
func awaitMetadata(conn *websocket.Conn) (string, error) {
	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return "", fmt.Errorf("read initiation metadata: %w", err)
		}
		switch ev.Type {
		case eventInitiationMetadata:
			if ev.Metadata == nil {
				return "", fmt.Errorf("initiation metadata without payload")
			}
			return ev.Metadata.ConversationID, nil
		case eventPing:
			if ev.Ping != nil {
				if err := conn.WriteJSON(pong{Type: msgPong, EventID: ev.Ping.EventID}); err != nil {
					return "", fmt.Errorf("send pong: %w", err)
				}
			}
		}
	}
}

func (c *Client) conversationURL(ctx context.Context, agentID string) (string, error) {
	if c.apiKey != "" {
		return c.signedURL(ctx, agentID)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", apperr.Configuration("invalid voice agent base URL", "Check ELEVENLABS_BASE_URL.", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = "/v1/convai/conversation"
	u.RawQuery = url.Values{"agent_id": {agentID}}.Encode()
	return u.String(), nil
}

func (c *Client) signedURL(ctx context.Context, agentID string) (string, error) {
	endpoint := c.baseURL + "/v1/convai/conversation/get_signed_url?" + url.Values{"agent_id": {agentID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signed URL request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Upstream("Failed to request signed conversation URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return "", apperr.Configuration("voice agent API key was rejected",
			"Server configuration error. Please ensure ELEVENLABS_API_KEY is set.",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperr.Upstream("Failed to request signed conversation URL",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var out struct {
		SignedURL string `json:"signed_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Upstream("Failed to decode signed conversation URL", err)
	}
	if out.SignedURL == "" {
		return "", apperr.Upstream("Signed conversation URL missing from response", nil)
	}
	return out.SignedURL, nil
}
