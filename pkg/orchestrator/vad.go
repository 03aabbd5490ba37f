package orchestrator

import (
	"context"
	"math"
	"strconv"
	"time"
)

// VADEventType distinguishes the two logical events the VAD Sensor Adapter
// ever produces.
type VADEventType string

const (
	VADSpeechStart VADEventType = "SPEECH_START"
	VADSpeechEnd   VADEventType = "SPEECH_END"
)

// VADEvent is what the adapter hands to the Call Orchestrator. DurationMs is
// only meaningful for VADSpeechEnd.
type VADEvent struct {
	Type       VADEventType
	DurationMs int64
}

// VADSensor is the contract the orchestrator depends on: a thin translator
// between the telephony platform's talk-detect feature and two logical
// events. It does no timing computation of its own — the platform decides
// when speech starts and ends; this adapter only arms/disarms the feature
// and relays what it reports. Enable/Disable must be idempotent.
type VADSensor interface {
	Enable(talkThresholdMs, silenceThresholdMs int) error
	Disable() error
	Name() string
}

// ChannelVarSetter is the slice of the ARI channel-variable contract the VAD
// adapter needs: arming/disarming TALK_DETECT.
type ChannelVarSetter interface {
	SetChannelVar(ctx context.Context, channelID, name, value string) error
}

// ARITalkDetectVAD adapts a telephony channel's TALK_DETECT feature to
// VADSensor. It is the production implementation: setting TALK_DETECT arms
// the platform's own speech detector, and ChannelTalkingStarted /
// ChannelTalkingFinished events (delivered by the orchestrator's ARI event
// dispatch, not polled here) are translated 1:1 into SpeechStart/SpeechEnd
// via Notify*.
type ARITalkDetectVAD struct {
	channel   ChannelVarSetter
	channelID string
	enabled   bool
	onEvent   func(VADEvent)
}

// NewARITalkDetectVAD builds an adapter bound to one telephony channel.
// onEvent is invoked synchronously from Notify*; callers are expected to be
// running on the call's single-threaded queue already.
func NewARITalkDetectVAD(channel ChannelVarSetter, channelID string, onEvent func(VADEvent)) *ARITalkDetectVAD {
	return &ARITalkDetectVAD{channel: channel, channelID: channelID, onEvent: onEvent}
}

func (v *ARITalkDetectVAD) Name() string { return "ari_talk_detect" }

// Enable arms TALK_DETECT with the given thresholds. Idempotent: calling
// Enable twice just re-sets the channel variable.
func (v *ARITalkDetectVAD) Enable(talkThresholdMs, silenceThresholdMs int) error {
	v.enabled = true
	return v.channel.SetChannelVar(context.Background(), v.channelID, "TALK_DETECT",
		formatTalkDetect(talkThresholdMs, silenceThresholdMs))
}

// Disable removes TALK_DETECT. Idempotent: calling Disable when already
// disabled is a no-op success.
func (v *ARITalkDetectVAD) Disable() error {
	if !v.enabled {
		return nil
	}
	v.enabled = false
	return v.channel.SetChannelVar(context.Background(), v.channelID, "TALK_DETECT", "remove")
}

// NotifyTalkingStarted translates a ChannelTalkingStarted event.
func (v *ARITalkDetectVAD) NotifyTalkingStarted() {
	if !v.enabled {
		return
	}
	v.onEvent(VADEvent{Type: VADSpeechStart})
}

// NotifyTalkingFinished translates a ChannelTalkingFinished(durationMs) event.
func (v *ARITalkDetectVAD) NotifyTalkingFinished(durationMs int64) {
	if !v.enabled {
		return
	}
	v.onEvent(VADEvent{Type: VADSpeechEnd, DurationMs: durationMs})
}

func formatTalkDetect(talkThresholdMs, silenceThresholdMs int) string {
	return strconv.Itoa(talkThresholdMs) + "," + strconv.Itoa(silenceThresholdMs)
}

// RMSVAD is a lightweight, dependency-free RMS-based energy detector. It is
// not wired into the production ARI path (the platform's own TALK_DETECT
// does that job — see ARITalkDetectVAD) but is kept and adapted from the
// teacher's self-timed sensor as a software double for tests and for local
// development against a raw audio feed with no telephony platform behind it.
type RMSVAD struct {
	threshold    float64
	silenceLimit time.Duration
	isSpeaking   bool
	silenceStart time.Time
	speechStart  time.Time

	consecutiveFrames int
	minConfirmed      int
	lastRMS           float64
}

// NewRMSVAD creates an RMS-based sensor double.
func NewRMSVAD(threshold float64, silenceLimit time.Duration) *RMSVAD {
	return &RMSVAD{
		threshold:    threshold,
		silenceLimit: silenceLimit,
		minConfirmed: 7,
	}
}

func (v *RMSVAD) SetMinConfirmed(count int) { v.minConfirmed = count }
func (v *RMSVAD) Threshold() float64        { return v.threshold }
func (v *RMSVAD) SetThreshold(t float64)    { v.threshold = t }
func (v *RMSVAD) LastRMS() float64          { return v.lastRMS }
func (v *RMSVAD) IsSpeaking() bool          { return v.isSpeaking }

// Process feeds one chunk of 16-bit PCM and returns a VADEvent when a
// transition is confirmed (nil otherwise).
func (v *RMSVAD) Process(chunk []byte) *VADEvent {
	rms := calculateRMS(chunk)
	v.lastRMS = rms
	now := time.Now()

	if rms > v.threshold {
		v.consecutiveFrames++
		if !v.isSpeaking {
			if v.consecutiveFrames >= v.minConfirmed {
				v.isSpeaking = true
				v.speechStart = now
				return &VADEvent{Type: VADSpeechStart}
			}
			return nil
		}
		v.silenceStart = time.Time{}
		return nil
	}

	v.consecutiveFrames = 0
	if v.isSpeaking {
		if v.silenceStart.IsZero() {
			v.silenceStart = now
		}
		if now.Sub(v.silenceStart) >= v.silenceLimit {
			v.isSpeaking = false
			duration := now.Sub(v.speechStart).Milliseconds()
			v.silenceStart = time.Time{}
			return &VADEvent{Type: VADSpeechEnd, DurationMs: duration}
		}
	}
	return nil
}

func (v *RMSVAD) Reset() {
	v.isSpeaking = false
	v.silenceStart = time.Time{}
	v.consecutiveFrames = 0
}

func calculateRMS(chunk []byte) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(chunk)-1; i += 2 {
		sample := int16(chunk[i]) | (int16(chunk[i+1]) << 8)
		f := float64(sample) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(chunk)/2))
}
