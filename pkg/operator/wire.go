// Package operator implements the process-wide Operator Control Plane: a
// hub that enumerates active calls, streams structured events to connected
// observers, and accepts per-call configuration updates and history
// requests.
package operator

import "time"

// EventType is the closed set of server→client event type values.
type EventType string

const (
	EventActiveCallsList      EventType = "active_calls_list"
	EventAriCallStatusUpdate  EventType = "ari_call_status_update"
	EventConversationHistory  EventType = "conversation_history"
	EventConfigUpdateAck      EventType = "config_update_ack"
	EventSessionCreated       EventType = "session.created"

	EventSystemMessage                    EventType = "system_message"
	EventTimerEvent                       EventType = "timer_event"
	EventVADSpeechDetectedStart           EventType = "vad_speech_detected_start"
	EventVADSpeechDetectedEnd             EventType = "vad_speech_detected_end"
	EventOpenAIRequestingResponse         EventType = "openai_requesting_response"
	EventOpenAIStreamActivated            EventType = "openai_stream_activated"
	EventOpenAIStreamActivationFailed     EventType = "openai_stream_activation_failed"
	EventOpenAITTSChunkReceivedAndQueued  EventType = "openai_tts_chunk_received_and_queued"
	EventOpenAITTSChunkAccumulated        EventType = "openai_tts_chunk_accumulated"
	EventOpenAITTSStreamEnded             EventType = "openai_tts_stream_ended"
	EventOpenAISessionEnded               EventType = "openai_session_ended"
	EventPlaybackStarted                  EventType = "playback_started"
	EventPlaybackFailedToStart            EventType = "playback_failed_to_start"
	EventPlaybackAllStoppedAction         EventType = "playback_all_stopped_action"
	EventTTSPlaybackInterrupted           EventType = "tts_playback_interrupted"
	EventDTMFModeActivated                EventType = "dtmf_mode_activated"
	EventDTMFInputFinalized               EventType = "dtmf_input_finalized"
	EventCallAnswered                     EventType = "call_answered"
	EventCallResourcesInitialized         EventType = "call_resources_initialized"
	EventCleanupResourceReleaseEvent      EventType = "cleanup_resource_release_event"
	EventVADPostPromptLogicStarted        EventType = "vad_post_prompt_logic_started"
	EventError                            EventType = "error"
)

// Envelope is the server→client wire format: `{type, callId?, timestamp, payload}`.
type Envelope struct {
	Type      EventType   `json:"type"`
	CallID    string      `json:"callId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// ClientMessageType is the closed set of client→server message types.
type ClientMessageType string

const (
	ClientGetCallConfiguration ClientMessageType = "get_call_configuration"
	ClientGetConversationHistory ClientMessageType = "get_conversation_history"
	ClientSessionUpdate       ClientMessageType = "session.update"
)

// ClientMessage is the client→server wire format. Session carries the
// raw session.update payload, interpreted by whichever handler processes
// ClientSessionUpdate.
type ClientMessage struct {
	Type    ClientMessageType      `json:"type"`
	CallID  string                 `json:"callId,omitempty"`
	Session map[string]interface{} `json:"session,omitempty"`
}
