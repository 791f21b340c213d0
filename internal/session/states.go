package session

import "errors"

// State is the user-visible lifecycle position of a session.
type State string

const (
	Idle       State = "idle"
	Capturing  State = "capturing"
	Analyzing  State = "analyzing"
	Identified State = "identified"
	Conversing State = "conversing"
	Error      State = "error"
)

var (
	// ErrRejected is returned when an operation is not a legal transition
	// from the current state. The machine is left untouched.
	ErrRejected = errors.New("transition rejected")

	// ErrStale is returned to the caller of an operation whose result
	// arrived after a reset. The result has been discarded.
	ErrStale = errors.New("result discarded after reset")
)

// Status texts shown to the user.
const (
	StatusReady        = "Ready"
	StatusCapturing    = "Capturing..."
	StatusAnalyzing    = "Analyzing artwork..."
	StatusConnecting   = "Initializing conversation..."
	StatusConnected    = "Connected"
	StatusReadyToTalk  = "Ready to talk"
	StatusDisconnected = "Disconnected"
	StatusEnded        = "Session ended"
	StatusError        = "Error"
)

// canCapture reports whether a new capture may begin from s. Error is
// functionally Idle.
func (s State) canCapture() bool {
	return s == Idle || s == Error
}
