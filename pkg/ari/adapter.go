package ari

import (
	"context"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// ChannelAdapter binds one ARI Client to one channel, satisfying the three
// narrow consumer contracts the orchestrator package declares
// (orchestrator.TelephonyActions, orchestrator.MediaPlayer,
// orchestrator.ChannelVarSetter) without the orchestrator package ever
// importing ari.
type ChannelAdapter struct {
	Client    Client
	ChannelID string
}

var (
	_ orchestrator.TelephonyActions = (*ChannelAdapter)(nil)
	_ orchestrator.MediaPlayer      = (*ChannelAdapter)(nil)
	_ orchestrator.ChannelVarSetter = (*ChannelAdapter)(nil)
)

func (a *ChannelAdapter) Answer(ctx context.Context, channelID string) error {
	return a.Client.Answer(ctx, channelID)
}

func (a *ChannelAdapter) Hangup(ctx context.Context, channelID string) error {
	return a.Client.Hangup(ctx, channelID)
}

func (a *ChannelAdapter) PublishOutcomeVar(ctx context.Context, channelID, name, value string) error {
	return a.Client.SetChannelVar(ctx, channelID, name, value)
}

// PlayMedia dispatches a static prompt (MediaURI) through the platform's
// file-based playback API, or a raw TTS chunk (Bytes) straight onto the
// channel's outbound external-media audio stream — the platform reports no
// PlaybackFinished for the latter, so the Playback Controller synthesizes
// its completion instead of waiting on one (see playback.go's pump).
func (a *ChannelAdapter) PlayMedia(ctx context.Context, channelID string, clip orchestrator.PlaybackClip) (string, error) {
	if len(clip.Bytes) > 0 {
		if err := a.Client.SendAudio(ctx, channelID, clip.Bytes); err != nil {
			return "", err
		}
		return "raw-audio", nil
	}
	return a.Client.PlayMedia(ctx, channelID, clip.MediaURI)
}

func (a *ChannelAdapter) StopPlayback(ctx context.Context, channelID, platformPlaybackID string) error {
	return a.Client.StopPlayback(ctx, channelID, platformPlaybackID)
}

func (a *ChannelAdapter) SetChannelVar(ctx context.Context, channelID, name, value string) error {
	return a.Client.SetChannelVar(ctx, channelID, name, value)
}
