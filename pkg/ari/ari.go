// Package ari defines the consumed contract between the core orchestrator
// and an Asterisk ARI client: the events the core reacts to and the actions
// it issues. The transport itself (ARI's REST/WebSocket client) is
// deliberately out of scope — this package has no network code. Production
// wiring supplies a concrete Client at cmd/bridge construction time; tests
// supply a hand-written fake.
package ari

import (
	"context"
	"errors"
	"time"
)

// ErrPlaybackFailed is the error handed to the Playback Controller when the
// platform reports PlaybackFailed; the event itself carries no detail beyond
// the playback ID.
var ErrPlaybackFailed = errors.New("ari: playback failed")

// EventType closes the set of ARI events the core consumes.
type EventType string

const (
	EventChannelEntered         EventType = "ChannelEntered"
	EventAnswered               EventType = "Answered"
	EventPlaybackStarted        EventType = "PlaybackStarted"
	EventPlaybackFinished       EventType = "PlaybackFinished"
	EventPlaybackFailed         EventType = "PlaybackFailed"
	EventChannelTalkingStarted  EventType = "ChannelTalkingStarted"
	EventChannelTalkingFinished EventType = "ChannelTalkingFinished"
	EventChannelDtmfReceived    EventType = "ChannelDtmfReceived"
	EventChannelDestroyed       EventType = "ChannelDestroyed"
	EventChannelHangup          EventType = "ChannelHangup"
)

// Event is one inbound ARI event, already demultiplexed to a channel.
type Event struct {
	Type      EventType
	ChannelID string

	// ChannelTalkingFinished
	TalkingDurationMs int64

	// ChannelDtmfReceived
	Digit byte

	// PlaybackStarted/Finished/Failed
	PlaybackID string

	Timestamp time.Time
}

// AudioFrame is one opaque chunk of external-media audio for a channel.
type AudioFrame struct {
	ChannelID string
	Bytes     []byte
}

// EventHandler receives one ARI event. Call dispatch (routing an event to
// the right Call's Orchestrator) is the responsibility of the caller
// wiring this package, not of Client itself.
type EventHandler func(Event)

// AudioHandler receives one inbound audio frame.
type AudioHandler func(AudioFrame)

// Client is the consumed ARI contract: actions the orchestrator issues
// against the telephony platform, plus subscription points for inbound
// events and audio.
type Client interface {
	Answer(ctx context.Context, channelID string) error
	Hangup(ctx context.Context, channelID string) error
	PlayMedia(ctx context.Context, channelID, mediaURI string) (playbackID string, err error)
	StopPlayback(ctx context.Context, channelID, playbackID string) error
	SetChannelVar(ctx context.Context, channelID, name, value string) error
	SendAudio(ctx context.Context, channelID string, chunk []byte) error

	OnEvent(EventHandler)
	OnAudio(AudioHandler)
}
