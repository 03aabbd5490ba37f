package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// TurnActor closes the set of participants that can contribute a turn to a
// call's conversation history.
type TurnActor string

const (
	ActorUser      TurnActor = "user"
	ActorAssistant TurnActor = "assistant"
	ActorSystem    TurnActor = "system"
	ActorDTMF      TurnActor = "dtmf"
	ActorTool      TurnActor = "tool"
)

// TurnType closes the set of kinds a turn's content can represent.
type TurnType string

const (
	TurnMessage             TurnType = "message"
	TurnFunctionCall        TurnType = "function_call"
	TurnFunctionCallOutput  TurnType = "function_call_output"
)

// Turn is one entry in a call's ordered conversation history.
type Turn struct {
	Actor     TurnActor
	Type      TurnType
	Content   string
	Timestamp time.Time
}

// ConversationLog is the append-only turn history for one call, dropping
// the oldest turn once MaxTurns is reached rather than growing unbounded.
type ConversationLog struct {
	turns    []Turn
	MaxTurns int
}

// NewConversationLog builds a log capped at maxTurns (0 means unbounded).
func NewConversationLog(maxTurns int) *ConversationLog {
	return &ConversationLog{MaxTurns: maxTurns}
}

// AppendTurn records one turn, dropping the oldest entry if over MaxTurns.
func (l *ConversationLog) AppendTurn(turn Turn) {
	l.turns = append(l.turns, turn)
	if l.MaxTurns > 0 && len(l.turns) > l.MaxTurns {
		l.turns = l.turns[len(l.turns)-l.MaxTurns:]
	}
}

// Turns returns a copy of the history in order.
func (l *ConversationLog) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// CallState closes the lifecycle states a Call passes through, including
// the two sticky/parallel substates.
type CallState string

const (
	StateNew            CallState = "New"
	StateAnswered       CallState = "Answered"
	StatePreRecognition CallState = "PreRecognition"
	StateActivating     CallState = "Activating"
	StateStreaming      CallState = "Streaming"
	StateFinalizing     CallState = "Finalizing"
	StateClosed         CallState = "Closed"
	StateDtmfCollecting CallState = "DtmfCollecting"
	StateFallbackBatch  CallState = "FallbackBatch"
)

// CallOutcome is the single terminal result published exactly once per
// call: either a recognized transcript, collected DTMF digits, or neither,
// plus the reason code that drove cleanup and which timeout (if any) fired.
type CallOutcome struct {
	Transcript  string
	DTMFDigits  string
	Reason      string
	Hangup      bool

	NoSpeechBeginTimeout     bool
	InitialStreamIdleTimeout bool
	MaxDurationTimeout       bool
}

// Call is one entity per active phone call: the aggregate root owning the
// Frame Pump, Recognizer Session, DTMF Collector, Playback Controller,
// Timer Registry and conversation log for the duration of one phone call.
// Call itself holds no behavior beyond bookkeeping; the Call Orchestrator
// (fsm.go) is what drives state transitions through it.
type Call struct {
	ID            string
	CallerID      string
	ChannelID     string
	State         CallState

	Config ConversationConfig

	Conversation *ConversationLog

	Timers    *TimerRegistry
	FramePump *FramePump
	Playback  *PlaybackController
	VAD       VADSensor
	DTMF      *DTMFCollector
	Recognizer RecognizerSession
	EchoGuard  *EchoSuppressor

	SpeechDisabled bool // sticky once DTMF collection starts

	snapshotRequested bool
	createdAt         time.Time
}

// ConversationConfig pairs the validated CallConfig with a generation
// counter that ApplyConfigUpdate increments on every accepted update.
// Nothing in this module compares generations.
type ConversationConfig struct {
	CallConfig
	Generation int
}

// NewCall allocates a Call with a fresh process-unique identifier.
func NewCall(callerID, channelID string, cfg CallConfig) *Call {
	return &Call{
		ID:           uuid.NewString(),
		CallerID:     callerID,
		ChannelID:    channelID,
		State:        StateNew,
		Config:       ConversationConfig{CallConfig: cfg},
		Conversation: NewConversationLog(200),
		EchoGuard:    NewEchoSuppressor(),
		createdAt:    time.Now(),
	}
}

// RequestSnapshot marks that the operator hub has asked for this call's
// conversation history, so fullCleanup keeps the log on the Call instead of
// dropping it on Closed.
func (c *Call) RequestSnapshot() {
	c.snapshotRequested = true
}

// SnapshotRequested reports whether RequestSnapshot was ever called.
func (c *Call) SnapshotRequested() bool {
	return c.snapshotRequested
}
