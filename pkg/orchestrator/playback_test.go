package orchestrator

import (
	"context"
	"errors"
	"testing"
)

type fakeMediaPlayer struct {
	playCalls int
	failNext  bool
	ids       []string
}

func (f *fakeMediaPlayer) PlayMedia(_ context.Context, _ string, _ PlaybackClip) (string, error) {
	f.playCalls++
	if f.failNext {
		f.failNext = false
		return "", errors.New("play failed")
	}
	id := "platform-" + string(rune('a'+f.playCalls))
	f.ids = append(f.ids, id)
	return id, nil
}

func (f *fakeMediaPlayer) StopPlayback(_ context.Context, _, _ string) error {
	return nil
}

func TestPlaybackController_PlayStartsImmediatelyWhenIdle(t *testing.T) {
	player := &fakeMediaPlayer{}
	var started []string
	pc := NewPlaybackController("chan-1", player, PlaybackCallbacks{
		OnStarted: func(id string, purpose PlaybackPurpose) { started = append(started, id) },
	})

	id := pc.Play(PlaybackClip{MediaURI: "sound:hello", Purpose: PlaybackPrompt})
	if len(started) != 1 || started[0] != id {
		t.Fatalf("expected immediate start for %q, got %v", id, started)
	}
	if pc.ActiveID() != id {
		t.Fatalf("expected active id %q, got %q", id, pc.ActiveID())
	}
}

func TestPlaybackController_OverlappingPlaysQueueFIFO(t *testing.T) {
	player := &fakeMediaPlayer{}
	pc := NewPlaybackController("chan-1", player, PlaybackCallbacks{})

	first := pc.Play(PlaybackClip{MediaURI: "sound:one"})
	second := pc.Play(PlaybackClip{MediaURI: "sound:two"})

	if pc.ActiveID() != first {
		t.Fatalf("expected first clip active, got %q", pc.ActiveID())
	}
	if pc.QueueDepth() != 1 {
		t.Fatalf("expected one queued clip, got %d", pc.QueueDepth())
	}

	pc.NotifyPlaybackFinished()
	if pc.ActiveID() != second {
		t.Fatalf("expected second clip to start after first finished, got %q", pc.ActiveID())
	}
}

func TestPlaybackController_StopAllReportsReasonAndClearsQueue(t *testing.T) {
	player := &fakeMediaPlayer{}
	var endedID string
	var endedReason PlaybackEndReason
	pc := NewPlaybackController("chan-1", player, PlaybackCallbacks{
		OnEnded: func(id string, reason PlaybackEndReason) {
			endedID = id
			endedReason = reason
		},
	})

	first := pc.Play(PlaybackClip{MediaURI: "sound:one"})
	pc.Play(PlaybackClip{MediaURI: "sound:two"})

	pc.StopAll(PlaybackEndBargeInVAD)

	if endedID != first {
		t.Fatalf("expected stop to report the active clip %q, got %q", first, endedID)
	}
	if endedReason != PlaybackEndBargeInVAD {
		t.Fatalf("expected reason barge_in_vad, got %q", endedReason)
	}
	if pc.ActiveID() != "" || pc.QueueDepth() != 0 {
		t.Fatal("expected StopAll to clear both active and queued clips")
	}
}

func TestPlaybackController_RawBytesClipCompletesSynchronously(t *testing.T) {
	player := &fakeMediaPlayer{}
	var ended []string
	pc := NewPlaybackController("chan-1", player, PlaybackCallbacks{
		OnEnded: func(id string, reason PlaybackEndReason) {
			if reason != PlaybackEndCompleted {
				t.Errorf("expected completed, got %q", reason)
			}
			ended = append(ended, id)
		},
	})

	id := pc.Play(PlaybackClip{Bytes: []byte{0x01, 0x02}, Purpose: PlaybackTTS})

	if len(ended) != 1 || ended[0] != id {
		t.Fatalf("expected raw-bytes clip to auto-complete, got %v", ended)
	}
	if pc.ActiveID() != "" {
		t.Fatalf("expected no active clip after synthesized completion, got %q", pc.ActiveID())
	}
}

func TestPlaybackController_PlayFailureAdvancesQueue(t *testing.T) {
	player := &fakeMediaPlayer{failNext: true}
	var failedID, startedID string
	pc := NewPlaybackController("chan-1", player, PlaybackCallbacks{
		OnFailed:  func(id string, err error) { failedID = id },
		OnStarted: func(id string, purpose PlaybackPurpose) { startedID = id },
	})

	first := pc.Play(PlaybackClip{MediaURI: "sound:one"})
	second := pc.Play(PlaybackClip{MediaURI: "sound:two"})

	if failedID != first {
		t.Fatalf("expected failure reported for first clip %q, got %q", first, failedID)
	}
	if startedID != second || pc.ActiveID() != second {
		t.Fatalf("expected second clip to start after first failed, got started=%q active=%q", startedID, pc.ActiveID())
	}
}
