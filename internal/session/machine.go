// Package session orchestrates one user's capture, identification and
// conversation lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/artdocent/docent/internal/apperr"
	"github.com/artdocent/docent/internal/artwork"
	"github.com/artdocent/docent/internal/bridge"
	"github.com/artdocent/docent/internal/elevenlabs"
	"github.com/artdocent/docent/internal/identify"
	"github.com/artdocent/docent/internal/models"
)

// Identifier turns an image payload into an identification.
type Identifier interface {
	Identify(ctx context.Context, p models.ImagePayload) (*identify.Result, error)
}

// Camera hands out the current frame.
type Camera interface {
	Frame(ctx context.Context) (models.ImagePayload, error)
}

// Options configure a Machine.
type Options struct {
	Identifier Identifier
	Camera     Camera
	Voice      VoiceAgent
	AgentID    string

	// TeardownTimeout bounds how long Reset and EndConversation wait for
	// the voice session to close.
	TeardownTimeout time.Duration
	Diagnostics     bridge.DiagnosticSink
	Transcript      func(role, text string)
	Logger          *slog.Logger
}

// Snapshot is a point-in-time view of a Machine for rendering.
type Snapshot struct {
	State      State           `json:"state" yaml:"state"`
	Status     string          `json:"status" yaml:"status"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
	Artwork    *models.Artwork `json:"artwork,omitempty" yaml:"artwork,omitempty"`
	Conversing bool            `json:"conversing" yaml:"conversing"`
}

// Machine is the session state machine. All transitions go through its
// methods; the artwork store it owns is only written here.
type Machine struct {
	opts   Options
	logger *slog.Logger
	store  *artwork.Store

	mu       sync.Mutex
	state    State
	lastErr  error
	inflight bool
	starting bool
	voice    VoiceSession

	// gen advances on every capture and reset. Work started under an
	// older generation must not touch the store.
	gen    atomic.Uint64
	status atomic.String
	active atomic.Bool
}

// New returns a Machine in the Idle state.
func New(opts Options) *Machine {
	if opts.TeardownTimeout <= 0 {
		opts.TeardownTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		opts:   opts,
		logger: logger,
		store:  artwork.NewStore(),
		state:  Idle,
	}
	m.status.Store(StatusReady)
	return m
}

// Store exposes the artwork store for reading.
func (m *Machine) Store() artwork.Reader { return m.store }

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current state, status and artwork.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		State:      m.state,
		Status:     m.status.Load(),
		Artwork:    m.store.Read(),
		Conversing: m.active.Load(),
	}
	if m.lastErr != nil {
		s.Error = userMessage(m.lastErr)
	}
	return s
}

// StartCapture moves Idle (or Error) to Capturing and returns the
// generation of the new capture. It is rejected while an analysis is in
// flight or an artwork is already identified.
func (m *Machine) StartCapture() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.canCapture() || m.inflight || m.store.Read() != nil {
		return 0, m.reject("start capture")
	}
	m.state = Capturing
	m.lastErr = nil
	m.status.Store(StatusCapturing)
	return m.gen.Inc(), nil
}

// Capture runs StartCapture, takes a frame from the camera and submits it.
func (m *Machine) Capture(ctx context.Context) (*identify.Result, error) {
	if m.opts.Camera == nil {
		return nil, apperr.Configuration("no camera is attached to this session", "", nil)
	}
	gen, err := m.StartCapture()
	if err != nil {
		return nil, err
	}
	frame, err := m.opts.Camera.Frame(ctx)
	if err != nil {
		err = fmt.Errorf("capture frame: %w", err)
		m.fail(gen, err)
		return nil, err
	}
	return m.SubmitFrame(ctx, gen, frame)
}

// CaptureFrame runs StartCapture and submits p as the captured frame.
func (m *Machine) CaptureFrame(ctx context.Context, p models.ImagePayload) (*identify.Result, error) {
	gen, err := m.StartCapture()
	if err != nil {
		return nil, err
	}
	return m.SubmitFrame(ctx, gen, p)
}

// SubmitFrame moves the capture opened as gen from Capturing to Analyzing
// and runs identification. On success the artwork is written to the store
// and the machine is Identified; on failure it is in Error with nothing
// written. A capture overtaken by a reset gets ErrStale.
func (m *Machine) SubmitFrame(ctx context.Context, gen uint64, p models.ImagePayload) (*identify.Result, error) {
	m.mu.Lock()
	if m.gen.Load() != gen {
		m.mu.Unlock()
		m.logger.Info("Discarding frame from a reset capture", "generation", gen)
		return nil, ErrStale
	}
	if m.state != Capturing || m.inflight {
		defer m.mu.Unlock()
		return nil, m.reject("submit frame")
	}
	m.state = Analyzing
	m.inflight = true
	m.status.Store(StatusAnalyzing)
	m.mu.Unlock()

	res, err := m.opts.Identifier.Identify(ctx, p)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen.Load() != gen {
		m.logger.Info("Discarding identification from a reset capture", "generation", gen, "err", err)
		return nil, ErrStale
	}
	m.inflight = false

	if err != nil {
		m.failLocked(err)
		return nil, err
	}

	a := artwork.FromIdentification(res.Identification)
	m.store.Write(a)
	m.state = Identified
	m.status.Store(fmt.Sprintf("Identified: %q by %s", a.Name, a.Artist))
	m.logger.Info("Artwork ready for conversation", "artwork_id", a.ID, "capture_id", res.CaptureID, "confidence", a.Confidence)
	return res, nil
}

// StartConversation moves Identified to Conversing. The tool bridge is
// created here, bound to the store rather than to the current artwork.
func (m *Machine) StartConversation(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Identified || m.starting {
		defer m.mu.Unlock()
		return m.reject("start conversation")
	}
	if m.opts.AgentID == "" || m.opts.Voice == nil {
		defer m.mu.Unlock()
		err := apperr.Configuration("voice agent is not configured",
			"Server configuration error. Please ensure ELEVENLABS_AGENT_ID is set.", nil)
		m.logger.Error("Cannot start conversation", "err", err)
		return err
	}
	m.starting = true
	m.lastErr = nil
	m.status.Store(StatusConnecting)
	gen := m.gen.Load()
	cfg := m.sessionConfig(gen)
	m.mu.Unlock()

	voice, err := m.opts.Voice.StartSession(ctx, cfg)

	m.mu.Lock()
	m.starting = false
	if m.gen.Load() != gen {
		if voice != nil {
			m.endVoice(voice)
		}
		m.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		m.lastErr = err
		m.status.Store(StatusError)
		m.mu.Unlock()
		m.logger.Error("Failed to start conversation", "kind", apperr.Classify(err), "err", err)
		return err
	}
	m.voice = voice
	m.state = Conversing
	m.active.Store(true)
	m.status.Store(StatusReadyToTalk)
	a := m.store.Read()
	m.mu.Unlock()

	if a != nil {
		if err := voice.SendContextualUpdate(a.ConversationContext); err != nil {
			m.logger.Warn("Failed to send artwork context to voice agent", "err", err)
		}
	}
	return nil
}

// EndConversation moves Conversing back to Identified, keeping the artwork.
func (m *Machine) EndConversation(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Conversing {
		return m.reject("end conversation")
	}
	voice := m.voice
	m.voice = nil
	m.teardown(ctx, voice)
	m.active.Store(false)
	m.state = Identified
	m.status.Store(StatusEnded)
	return nil
}

// Reset returns the machine to Idle from any other state. The voice
// session is torn down first, then the store is cleared. Teardown errors
// are logged and otherwise ignored.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Idle && !m.inflight && !m.starting {
		return m.reject("reset")
	}

	if m.voice != nil {
		voice := m.voice
		m.voice = nil
		m.teardown(ctx, voice)
	}

	m.store.Clear()
	m.gen.Inc()
	m.inflight = false
	m.starting = false
	m.lastErr = nil
	m.active.Store(false)
	m.state = Idle
	m.status.Store(StatusReady)
	m.logger.Info("Session reset", "generation", m.gen.Load())
	return nil
}

func (m *Machine) sessionConfig(gen uint64) elevenlabs.SessionConfig {
	tools := bridge.New(m.store, m.logger)
	if m.opts.Diagnostics != nil {
		tools.WithDiagnosticSink(m.opts.Diagnostics)
	}

	vars := map[string]string{}
	if a := m.store.Read(); a != nil {
		vars["artwork_name"] = a.Name
		vars["artist_name"] = a.Artist
	}

	// Callbacks run on the voice read goroutine, possibly while Reset
	// holds mu, so they only touch atomics.
	current := func() bool { return m.gen.Load() == gen }
	return elevenlabs.SessionConfig{
		AgentID:          m.opts.AgentID,
		Tools:            tools,
		DynamicVariables: vars,
		Callbacks: elevenlabs.Callbacks{
			OnConnect: func(id string) {
				if current() {
					m.status.Store(StatusConnected)
					m.active.Store(true)
				}
			},
			OnDisconnect: func() {
				if current() {
					m.status.Store(StatusDisconnected)
					m.active.Store(false)
				}
			},
			OnError: func(err error) {
				m.logger.Error("Voice session error", "err", err)
				if current() {
					m.status.Store(StatusError)
				}
			},
			OnModeChange: func(mode elevenlabs.Mode) {
				if current() {
					m.status.Store("Mode: " + string(mode))
				}
			},
			OnTranscript: m.opts.Transcript,
		},
	}
}

func (m *Machine) endVoice(v VoiceSession) {
	m.teardown(context.Background(), v)
}

// teardown ends v within TeardownTimeout. Failures are logged only.
func (m *Machine) teardown(ctx context.Context, v VoiceSession) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.TeardownTimeout)
	defer cancel()
	if err := v.End(ctx); err != nil {
		m.logger.Warn("Voice session teardown failed", "err", err)
	}
}

func (m *Machine) fail(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen.Load() != gen || m.state != Capturing {
		return
	}
	m.failLocked(err)
}

func (m *Machine) failLocked(err error) {
	m.state = Error
	m.lastErr = err
	m.status.Store(StatusError)
	if apperr.Classify(err) == apperr.KindConfiguration {
		m.logger.Error("Identification misconfigured", "err", err)
	} else {
		m.logger.Warn("Identification failed", "kind", apperr.Classify(err), "err", err)
	}
}

func (m *Machine) reject(op string) error {
	m.logger.Debug("Rejected transition", "op", op, "state", m.state)
	return fmt.Errorf("%w: cannot %s while %s", ErrRejected, op, m.state)
}

// userMessage renders err for display, without upstream internals.
func userMessage(err error) string {
	var (
		ve *apperr.ValidationError
		ce *apperr.ConfigurationError
		ue *apperr.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ce):
		if ce.Hint != "" {
			return ce.Hint
		}
		return ce.Message
	case errors.As(err, &ue):
		return ue.Message
	default:
		return err.Error()
	}
}
