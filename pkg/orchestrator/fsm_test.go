package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeTelephony struct {
	mu         sync.Mutex
	vars       map[string]string
	hungUp     bool
	answered   bool
}

func newFakeTelephony() *fakeTelephony {
	return &fakeTelephony{vars: make(map[string]string)}
}

func (f *fakeTelephony) Answer(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = true
	return nil
}

func (f *fakeTelephony) Hangup(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hungUp = true
	return nil
}

func (f *fakeTelephony) PublishOutcomeVar(_ context.Context, _, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars[name] = value
	return nil
}

func (f *fakeTelephony) get(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vars[name]
}

func (f *fakeTelephony) isHungUp() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hungUp
}

func newTestOrchestrator(cfg CallConfig) (*Orchestrator, *fakeTelephony, *fakeMediaPlayer) {
	call := NewCall("caller-1", "chan-1", cfg)
	telephony := newFakeTelephony()
	player := &fakeMediaPlayer{}

	o := NewOrchestrator(call, telephony, func() RecognizerSession {
		return &MockRecognizerSession{}
	}, nil, nil, nil)
	call.Playback = NewPlaybackController("chan-1", player, PlaybackCallbacks{
		OnEnded: func(id string, reason PlaybackEndReason) { o.HandlePlaybackEnded(id, reason) },
	})
	o.Start(context.Background())
	return o, telephony, player
}

func waitClosed(t *testing.T, o *Orchestrator, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("orchestrator never reached Closed")
	}
}

func TestOrchestrator_ImmediateActivationWithNoPromptOpensRecognizer(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	o, _, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)
	time.Sleep(20 * time.Millisecond)

	o.post(func() {
		if o.call.State != StateStreaming {
			t.Errorf("expected Streaming after immediate activation, got %q", o.call.State)
		}
		if o.call.Recognizer == nil {
			t.Error("expected recognizer session to be opened")
		}
	})
	time.Sleep(20 * time.Millisecond)
}

func TestOrchestrator_DropsEchoedAudioBeforeForwardingToRecognizer(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	o, _, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)
	time.Sleep(20 * time.Millisecond)

	tone := generateSine(440, 200, 8000, 0.8)
	caller := generateSine(1800, 200, 8000, 0.8)

	o.post(func() { o.onSpeechAudioChunk(tone) })
	time.Sleep(10 * time.Millisecond)

	o.HandleAudioFrame(tone)
	o.HandleAudioFrame(caller)
	time.Sleep(20 * time.Millisecond)

	o.post(func() {
		mock := o.call.Recognizer.(*MockRecognizerSession)
		if len(mock.SentChunks) != 1 {
			t.Fatalf("expected only the unrelated chunk to reach the recognizer, got %d chunks", len(mock.SentChunks))
		}
	})
	time.Sleep(20 * time.Millisecond)
}

func TestOrchestrator_FinalTranscriptPublishesOutcomeAndCloses(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	o, telephony, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)
	time.Sleep(20 * time.Millisecond)

	o.post(func() {
		mock := o.call.Recognizer.(*MockRecognizerSession)
		mock.Callbacks.OnTranscript(Transcript{Text: "hello world", IsFinal: true})
	})

	waitClosed(t, o, time.Second)

	if telephony.get("FINAL_TRANSCRIPT") != "hello world" {
		t.Fatalf("expected FINAL_TRANSCRIPT=%q, got %q", "hello world", telephony.get("FINAL_TRANSCRIPT"))
	}
	if telephony.get("CLEANUP_REASON") != "final_transcript_received" {
		t.Fatalf("expected reason final_transcript_received, got %q", telephony.get("CLEANUP_REASON"))
	}
	if telephony.isHungUp() {
		t.Fatal("final transcript path should not hang up")
	}
}

func TestOrchestrator_NoSpeechBeginTimeoutHangsUp(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	cfg.NoSpeechBeginTimeoutSeconds = 0.02
	o, telephony, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)

	waitClosed(t, o, time.Second)

	if telephony.get("CLEANUP_REASON") != "app_no_speech_begin_timeout" {
		t.Fatalf("expected app_no_speech_begin_timeout, got %q", telephony.get("CLEANUP_REASON"))
	}
	if telephony.get("NO_SPEECH_BEGIN_TIMEOUT") != "true" {
		t.Fatalf("expected NO_SPEECH_BEGIN_TIMEOUT=true, got %q", telephony.get("NO_SPEECH_BEGIN_TIMEOUT"))
	}
	if !telephony.isHungUp() {
		t.Fatal("expected hangup=true on no-speech-begin timeout")
	}
}

func TestOrchestrator_DTMFDigitsAccumulateAndFinalize(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	cfg.DTMFInterDigitTimeoutSeconds = 0.05
	cfg.DTMFFinalTimeoutSeconds = 0.08
	o, telephony, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)
	time.Sleep(10 * time.Millisecond)

	o.HandleDTMFDigit('1')
	o.HandleDTMFDigit('2')
	o.HandleDTMFDigit('3')

	waitClosed(t, o, time.Second)

	if telephony.get("DTMF_DIGITS") != "123" {
		t.Fatalf("expected DTMF_DIGITS=123, got %q", telephony.get("DTMF_DIGITS"))
	}
	if telephony.get("CLEANUP_REASON") != "dtmf_final_timeout" {
		t.Fatalf("expected reason dtmf_final_timeout, got %q", telephony.get("CLEANUP_REASON"))
	}
	if telephony.isHungUp() {
		t.Fatal("dtmf final path should not hang up")
	}
}

func TestOrchestrator_FullCleanupIsIdempotent(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationImmediate
	o, telephony, _ := newTestOrchestrator(cfg)

	o.HandleAnswered(nil)
	time.Sleep(10 * time.Millisecond)

	o.post(func() {
		o.fullCleanup(true, "max_duration_timeout")
		o.fullCleanup(true, "max_duration_timeout")
	})

	waitClosed(t, o, time.Second)

	if telephony.get("CLEANUP_REASON") != "max_duration_timeout" {
		t.Fatalf("expected reason max_duration_timeout, got %q", telephony.get("CLEANUP_REASON"))
	}
}

func TestOrchestrator_FixedDelayActivationArmsBargeInOnPromptEnd(t *testing.T) {
	cfg := DefaultCallConfig()
	cfg.ActivationMode = ActivationFixedDelay
	cfg.BargeInDelaySeconds = 0
	o, _, player := newTestOrchestrator(cfg)

	o.HandleAnswered(&PlaybackClip{MediaURI: "sound:prompt", Purpose: PlaybackPrompt})
	time.Sleep(10 * time.Millisecond)

	o.post(func() {
		if o.call.State != StatePreRecognition {
			t.Fatalf("expected PreRecognition before prompt ends, got %q", o.call.State)
		}
	})
	time.Sleep(10 * time.Millisecond)

	player.finishActive(o)

	time.Sleep(30 * time.Millisecond)
	o.post(func() {
		if o.call.State != StateStreaming {
			t.Errorf("expected Streaming after bargeIn fires with zero delay, got %q", o.call.State)
		}
	})
	time.Sleep(10 * time.Millisecond)
}

// finishActive simulates the telephony platform reporting PlaybackFinished
// for whatever clip is currently active.
func (f *fakeMediaPlayer) finishActive(o *Orchestrator) {
	o.post(func() {
		o.call.Playback.NotifyPlaybackFinished()
	})
}
