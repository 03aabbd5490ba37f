package ari

import (
	"context"
	"strconv"
	"testing"

	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

type recordingClient struct {
	calls []string
}

func (c *recordingClient) Answer(_ context.Context, channelID string) error {
	c.calls = append(c.calls, "answer:"+channelID)
	return nil
}

func (c *recordingClient) Hangup(_ context.Context, channelID string) error {
	c.calls = append(c.calls, "hangup:"+channelID)
	return nil
}

func (c *recordingClient) PlayMedia(_ context.Context, channelID, mediaURI string) (string, error) {
	c.calls = append(c.calls, "play:"+channelID+":"+mediaURI)
	return "platform-1", nil
}

func (c *recordingClient) StopPlayback(_ context.Context, channelID, playbackID string) error {
	c.calls = append(c.calls, "stop:"+channelID+":"+playbackID)
	return nil
}

func (c *recordingClient) SetChannelVar(_ context.Context, channelID, name, value string) error {
	c.calls = append(c.calls, "setvar:"+channelID+":"+name+"="+value)
	return nil
}

func (c *recordingClient) SendAudio(_ context.Context, channelID string, chunk []byte) error {
	c.calls = append(c.calls, "sendaudio:"+channelID+":"+strconv.Itoa(len(chunk)))
	return nil
}
func (c *recordingClient) OnEvent(EventHandler)                                 {}
func (c *recordingClient) OnAudio(AudioHandler)                                 {}

func TestChannelAdapter_DelegatesToClient(t *testing.T) {
	client := &recordingClient{}
	adapter := &ChannelAdapter{Client: client, ChannelID: "chan-1"}

	adapter.Answer(context.Background(), "chan-1")
	adapter.PublishOutcomeVar(context.Background(), "chan-1", "FINAL_TRANSCRIPT", "hi")
	id, err := adapter.PlayMedia(context.Background(), "chan-1", orchestrator.PlaybackClip{MediaURI: "sound:hello"})
	if err != nil {
		t.Fatal(err)
	}
	adapter.StopPlayback(context.Background(), "chan-1", id)
	adapter.Hangup(context.Background(), "chan-1")

	want := []string{
		"answer:chan-1",
		"setvar:chan-1:FINAL_TRANSCRIPT=hi",
		"play:chan-1:sound:hello",
		"stop:chan-1:platform-1",
		"hangup:chan-1",
	}
	if len(client.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(client.calls), client.calls)
	}
	for i, w := range want {
		if client.calls[i] != w {
			t.Fatalf("call %d: expected %q, got %q", i, w, client.calls[i])
		}
	}
}

func TestChannelAdapter_PlayMediaWithBytesSendsRawAudio(t *testing.T) {
	client := &recordingClient{}
	adapter := &ChannelAdapter{Client: client, ChannelID: "chan-1"}

	id, err := adapter.PlayMedia(context.Background(), "chan-1", orchestrator.PlaybackClip{Bytes: []byte{1, 2, 3}, Purpose: orchestrator.PlaybackTTS})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected a non-empty synthesized playback id")
	}
	if len(client.calls) != 1 || client.calls[0] != "sendaudio:chan-1:3" {
		t.Fatalf("expected a single sendaudio call, got %v", client.calls)
	}
}
