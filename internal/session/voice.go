package session

import (
	"context"

	"github.com/artdocent/docent/internal/elevenlabs"
)

// VoiceAgent starts voice conversations.
type VoiceAgent interface {
	StartSession(ctx context.Context, cfg elevenlabs.SessionConfig) (VoiceSession, error)
}

// VoiceSession is a live conversation that can be torn down.
type VoiceSession interface {
	// SendContextualUpdate gives the agent background text without
	// interrupting it.
	SendContextualUpdate(text string) error
	End(ctx context.Context) error
}

// ElevenLabsAgent adapts *elevenlabs.Client to VoiceAgent.
type ElevenLabsAgent struct {
	Client *elevenlabs.Client
}

func (a ElevenLabsAgent) StartSession(ctx context.Context, cfg elevenlabs.SessionConfig) (VoiceSession, error) {
	conv, err := a.Client.StartSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return conv, nil
}
