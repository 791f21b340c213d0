package elevenlabs

import "encoding/json"

// Server event types.
const (
	eventInitiationMetadata = "conversation_initiation_metadata"
	eventPing               = "ping"
	eventClientToolCall     = "client_tool_call"
	eventAgentResponse      = "agent_response"
	eventUserTranscript     = "user_transcript"
	eventInterruption       = "interruption"
	eventAudio              = "audio"
)

// Client message types.
const (
	msgInitiationClientData = "conversation_initiation_client_data"
	msgPong                 = "pong"
	msgClientToolResult     = "client_tool_result"
	msgContextualUpdate     = "contextual_update"
)

// serverEvent is the envelope of every message pushed by the agent.
type serverEvent struct {
	Type string `json:"type"`

	Metadata *struct {
		ConversationID         string `json:"conversation_id"`
		AgentOutputAudioFormat string `json:"agent_output_audio_format"`
	} `json:"conversation_initiation_metadata_event,omitempty"`

	Ping *struct {
		EventID int64 `json:"event_id"`
		PingMS  *int  `json:"ping_ms"`
	} `json:"ping_event,omitempty"`

	ToolCall *toolCall `json:"client_tool_call,omitempty"`

	AgentResponse *struct {
		Text string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`

	UserTranscript *struct {
		Text string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`
}

type toolCall struct {
	ToolName   string          `json:"tool_name"`
	ToolCallID string          `json:"tool_call_id"`
	Parameters json.RawMessage `json:"parameters"`
}

type initiationClientData struct {
	Type             string            `json:"type"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
}

type pong struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
}

type toolResult struct {
	Type       string `json:"type"`
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result"`
	IsError    bool   `json:"is_error"`
}

type contextualUpdate struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
