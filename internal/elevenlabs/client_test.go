package elevenlabs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/artdocent/docent/internal/apperr"
)

type recordingTools struct {
	mu    sync.Mutex
	calls []string
	out   string
	err   error
}

func (r *recordingTools) Execute(_ context.Context, name string, _ map[string]any) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
	return r.out, r.err
}

// fakeAgent runs script against each accepted connection.
func fakeAgent(t *testing.T, script func(conn *websocket.Conn)) (*httptest.Server, *sync.WaitGroup) {
	t.Helper()
	var wg sync.WaitGroup
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/conversation" || r.URL.Query().Get("agent_id") != "agent-1" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		wg.Add(1)
		defer wg.Done()
		defer conn.Close()

		var hello map[string]any
		if err := conn.ReadJSON(&hello); err != nil {
			return
		}
		if hello["type"] != msgInitiationClientData {
			return
		}
		_ = conn.WriteJSON(map[string]any{
			"type": eventInitiationMetadata,
			"conversation_initiation_metadata_event": map[string]any{
				"conversation_id": "conv-42",
			},
		})
		script(conn)
	}))
	return srv, &wg
}

func drainUntilClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestStartSessionRequiresAgentID(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", nil)
	_, err := c.StartSession(context.Background(), SessionConfig{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfiguration, apperr.Classify(err))
}

func TestConversationToolCallRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	results := make(chan toolResult, 2)
	srv, wg := fakeAgent(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{
			"type": eventClientToolCall,
			"client_tool_call": map[string]any{
				"tool_name":    "fetchArtworkIdentification",
				"tool_call_id": "call-1",
				"parameters":   map[string]any{},
			},
		})
		var res toolResult
		if err := conn.ReadJSON(&res); err == nil {
			results <- res
		}
		_ = conn.WriteJSON(map[string]any{
			"type": eventClientToolCall,
			"client_tool_call": map[string]any{
				"tool_name":    "broken",
				"tool_call_id": "call-2",
				"parameters":   "not an object",
			},
		})
		if err := conn.ReadJSON(&res); err == nil {
			results <- res
		}
		drainUntilClose(conn)
	})
	defer srv.Close()

	tools := &recordingTools{out: `{"success":true}`}
	var connected string
	disconnected := make(chan struct{})

	c := NewClient(srv.URL, "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := c.StartSession(ctx, SessionConfig{
		AgentID: "agent-1",
		Tools:   tools,
		Callbacks: Callbacks{
			OnConnect:    func(id string) { connected = id },
			OnDisconnect: func() { close(disconnected) },
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-42", conv.ID())
	assert.Equal(t, "conv-42", connected)

	first := <-results
	assert.Equal(t, "call-1", first.ToolCallID)
	assert.Equal(t, `{"success":true}`, first.Result)
	assert.False(t, first.IsError)

	second := <-results
	assert.Equal(t, "call-2", second.ToolCallID)
	assert.True(t, second.IsError)
	assert.Contains(t, second.Result, "invalid parameters")

	require.NoError(t, conv.End(ctx))
	<-disconnected
	wg.Wait()

	tools.mu.Lock()
	assert.Equal(t, []string{"fetchArtworkIdentification"}, tools.calls)
	tools.mu.Unlock()
}

func TestConversationAnswersPingAndTracksMode(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pongs := make(chan pong, 1)
	srv, wg := fakeAgent(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{"type": eventPing, "ping_event": map[string]any{"event_id": 7}})
		var p pong
		if err := conn.ReadJSON(&p); err == nil {
			pongs <- p
		}
		_ = conn.WriteJSON(map[string]any{
			"type":                 eventAgentResponse,
			"agent_response_event": map[string]any{"agent_response": "Hello there."},
		})
		_ = conn.WriteJSON(map[string]any{
			"type":                     eventUserTranscript,
			"user_transcription_event": map[string]any{"user_transcript": "Who painted it?"},
		})
		drainUntilClose(conn)
	})
	defer srv.Close()

	var mu sync.Mutex
	var modes []Mode
	var lines []string
	gotTranscript := make(chan struct{})

	c := NewClient(srv.URL, "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := c.StartSession(ctx, SessionConfig{
		AgentID: "agent-1",
		Callbacks: Callbacks{
			OnModeChange: func(m Mode) {
				mu.Lock()
				modes = append(modes, m)
				mu.Unlock()
			},
			OnTranscript: func(role, text string) {
				mu.Lock()
				lines = append(lines, role+": "+text)
				done := len(lines) == 2
				mu.Unlock()
				if done {
					close(gotTranscript)
				}
			},
		},
	})
	require.NoError(t, err)

	p := <-pongs
	assert.Equal(t, msgPong, p.Type)
	assert.Equal(t, int64(7), p.EventID)

	<-gotTranscript
	mu.Lock()
	assert.Equal(t, []Mode{ModeSpeaking, ModeListening}, modes)
	assert.Equal(t, []string{"agent: Hello there.", "user: Who painted it?"}, lines)
	mu.Unlock()
	assert.Equal(t, ModeListening, conv.Mode())

	require.NoError(t, conv.End(ctx))
	wg.Wait()
}

func TestRemoteCloseFiresDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv, wg := fakeAgent(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})
	defer srv.Close()

	var errs []error
	disconnected := make(chan struct{})
	c := NewClient(srv.URL, "", nil)
	conv, err := c.StartSession(context.Background(), SessionConfig{
		AgentID: "agent-1",
		Callbacks: Callbacks{
			OnDisconnect: func() { close(disconnected) },
			OnError:      func(err error) { errs = append(errs, err) },
		},
	})
	require.NoError(t, err)

	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect callback not fired")
	}
	<-conv.Done()
	assert.Empty(t, errs)

	// Ending an already closed conversation is harmless.
	_ = conv.End(context.Background())
	wg.Wait()
}

func TestSignedURLRejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/convai/conversation/get_signed_url", r.URL.Path)
		assert.Equal(t, "bad-key", r.Header.Get("xi-api-key"))
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", nil)
	_, err := c.StartSession(context.Background(), SessionConfig{AgentID: "agent-1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfiguration, apperr.Classify(err))
}

func TestSignedURLUsed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	agent, wg := fakeAgent(t, drainUntilClose)
	defer agent.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		wsURL := "ws" + strings.TrimPrefix(agent.URL, "http") + "/v1/convai/conversation?agent_id=agent-1&token=abc"
		_, _ = w.Write([]byte(`{"signed_url":"` + wsURL + `"}`))
	}))
	defer api.Close()

	c := NewClient(api.URL, "good-key", nil)
	conv, err := c.StartSession(context.Background(), SessionConfig{AgentID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, "conv-42", conv.ID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = conv.End(ctx)
	if err != nil {
		assert.False(t, errors.Is(err, context.DeadlineExceeded), "end timed out")
	}
	wg.Wait()
	c.httpClient.CloseIdleConnections()
}

// silentAgent accepts the socket and never sends conversation metadata.
func silentAgent(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		drainUntilClose(conn)
	}))
}

func TestStartSessionObservesCancel(t *testing.T) {
	srv := silentAgent(t)
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.StartSession(ctx, SessionConfig{AgentID: "agent-1"})
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Equal(t, apperr.KindUpstream, apperr.Classify(err))
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("StartSession did not return after cancel")
	}
}

func TestStartSessionHandshakeBound(t *testing.T) {
	srv := silentAgent(t)
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	c.handshakeTimeout = 100 * time.Millisecond

	start := time.Now()
	_, err := c.StartSession(context.Background(), SessionConfig{AgentID: "agent-1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.Classify(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendContextualUpdate(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	updates := make(chan contextualUpdate, 1)
	srv, wg := fakeAgent(t, func(conn *websocket.Conn) {
		var u contextualUpdate
		if err := conn.ReadJSON(&u); err == nil {
			updates <- u
		}
		drainUntilClose(conn)
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := c.StartSession(ctx, SessionConfig{AgentID: "agent-1"})
	require.NoError(t, err)
	require.NoError(t, conv.SendContextualUpdate("The user is looking at Nighthawks by Edward Hopper."))

	u := <-updates
	assert.Equal(t, msgContextualUpdate, u.Type)
	assert.Equal(t, "The user is looking at Nighthawks by Edward Hopper.", u.Text)

	require.NoError(t, conv.End(ctx))
	require.ErrorIs(t, conv.SendContextualUpdate("late"), websocket.ErrCloseSent)
	wg.Wait()
}
