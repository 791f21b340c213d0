package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

const writeTimeout = 10 * time.Second

// Conversation is a live voice session.
type Conversation struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	cfg       SessionConfig
	logger    *slog.Logger
	mode      atomic.String
	closing   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func newConversation(conn *websocket.Conn, id string, cfg SessionConfig, logger *slog.Logger) *Conversation {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conversation{
		id:     id,
		conn:   conn,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the server-assigned conversation id.
func (c *Conversation) ID() string { return c.id }

// Mode returns the last observed agent mode.
func (c *Conversation) Mode() Mode { return Mode(c.mode.Load()) }

// Done is closed once the read loop has exited.
func (c *Conversation) Done() <-chan struct{} { return c.done }

// SendContextualUpdate pushes background text to the agent without
// interrupting it.
func (c *Conversation) SendContextualUpdate(text string) error {
	return c.write(contextualUpdate{Type: msgContextualUpdate, Text: text})
}

// End closes the session and waits for the read loop to unwind or ctx to
// expire.
func (c *Conversation) End(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.cancel()

		select {
		case <-c.done:
			return
		default:
		}

		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended")
		if werr := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			err = fmt.Errorf("send close: %w", werr)
		}
		c.writeMu.Unlock()

		c.conn.Close()
	})

	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (c *Conversation) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closing.Load() {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Conversation) readLoop() {
	defer func() {
		c.cancel()
		c.conn.Close()
		if cb := c.cfg.Callbacks.OnDisconnect; cb != nil {
			cb()
		}
		close(c.done)
	}()

	for {
		var ev serverEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if c.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("Voice conversation closed")
			} else {
				c.logger.Error("Voice conversation read failed", "err", err)
				if cb := c.cfg.Callbacks.OnError; cb != nil {
					cb(err)
				}
			}
			return
		}
		c.handle(ev)
	}
}

func (c *Conversation) handle(ev serverEvent) {
	switch ev.Type {
	case eventPing:
		if ev.Ping == nil {
			return
		}
		if err := c.write(pong{Type: msgPong, EventID: ev.Ping.EventID}); err != nil {
			c.logger.Warn("Failed to answer ping", "err", err)
		}
	case eventClientToolCall:
		if ev.ToolCall != nil {
			c.handleToolCall(*ev.ToolCall)
		}
	case eventAgentResponse:
		c.setMode(ModeSpeaking)
		if ev.AgentResponse != nil {
			c.transcript("agent", ev.AgentResponse.Text)
		}
	case eventAudio:
		c.setMode(ModeSpeaking)
	case eventUserTranscript:
		c.setMode(ModeListening)
		if ev.UserTranscript != nil {
			c.transcript("user", ev.UserTranscript.Text)
		}
	case eventInterruption:
		c.setMode(ModeListening)
	default:
		c.logger.Debug("Ignoring voice event", "type", ev.Type)
	}
}

// handleToolCall runs the tool inline so calls are answered in arrival
// order.
func (c *Conversation) handleToolCall(call toolCall) {
	logger := c.logger.With("tool", call.ToolName, "tool_call_id", call.ToolCallID)
	logger.Info("Agent invoked client tool")

	result := toolResult{Type: msgClientToolResult, ToolCallID: call.ToolCallID}

	var args map[string]any
	if len(call.Parameters) > 0 && string(call.Parameters) != "null" {
		if err := json.Unmarshal(call.Parameters, &args); err != nil {
			result.Result = fmt.Sprintf("invalid parameters: %v", err)
			result.IsError = true
		}
	}

	if !result.IsError {
		if c.cfg.Tools == nil {
			result.Result = "no client tools are registered"
			result.IsError = true
		} else if out, err := c.cfg.Tools.Execute(c.ctx, call.ToolName, args); err != nil {
			logger.Warn("Client tool failed", "err", err)
			result.Result = err.Error()
			result.IsError = true
		} else {
			result.Result = out
		}
	}

	if err := c.write(result); err != nil {
		logger.Warn("Failed to send tool result", "err", err)
	}
}

func (c *Conversation) setMode(m Mode) {
	if Mode(c.mode.Swap(string(m))) == m {
		return
	}
	if cb := c.cfg.Callbacks.OnModeChange; cb != nil {
		cb(m)
	}
}

func (c *Conversation) transcript(role, text string) {
	if cb := c.cfg.Callbacks.OnTranscript; cb != nil && text != "" {
		cb(role, text)
	}
}
