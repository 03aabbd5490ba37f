package orchestrator

import (
	"sync"
	"testing"
	"time"
)

// inlinePost runs callbacks synchronously from a background goroutine,
// serialized through a mutex — enough to exercise the registry's contract
// without needing a full Call Orchestrator queue.
func inlinePost(mu *sync.Mutex) func(func()) {
	return func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
}

func TestTimerRegistry_ArmReplacesPriorInstance(t *testing.T) {
	var mu sync.Mutex
	r := NewTimerRegistry(inlinePost(&mu))

	fired := make(chan string, 2)
	r.Arm(TimerBargeIn, 20*time.Millisecond, func() { fired <- "first" })
	r.Arm(TimerBargeIn, 5*time.Millisecond, func() { fired <- "second" })

	select {
	case v := <-fired:
		if v != "second" {
			t.Fatalf("expected second arm to win, got %q", v)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer never fired")
	}

	select {
	case v := <-fired:
		t.Fatalf("unexpected second fire: %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerRegistry_CancelPreventsFire(t *testing.T) {
	var mu sync.Mutex
	r := NewTimerRegistry(inlinePost(&mu))

	fired := false
	r.Arm(TimerMaxRecognition, 20*time.Millisecond, func() { fired = true })
	r.Cancel(TimerMaxRecognition)

	time.Sleep(60 * time.Millisecond)
	if fired {
		t.Fatal("onFire ran after Cancel returned before deadline")
	}
	if r.IsArmed(TimerMaxRecognition) {
		t.Fatal("timer still reported armed after cancel")
	}
}

func TestTimerRegistry_CancelAllLeavesNoArmedTimer(t *testing.T) {
	var mu sync.Mutex
	r := NewTimerRegistry(inlinePost(&mu))

	for _, name := range []TimerName{TimerNoSpeechBegin, TimerInitialStreamIdle, TimerSpeechEndSilence} {
		r.Arm(name, time.Second, func() {})
	}
	r.CancelAll()

	for _, name := range []TimerName{TimerNoSpeechBegin, TimerInitialStreamIdle, TimerSpeechEndSilence} {
		if r.IsArmed(name) {
			t.Fatalf("timer %s still armed after CancelAll", name)
		}
	}
}

func TestTimerRegistry_ZeroDurationFiresPromptly(t *testing.T) {
	var mu sync.Mutex
	r := NewTimerRegistry(inlinePost(&mu))

	fired := make(chan struct{})
	r.Arm(TimerVADInitialSilence, 0, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("zero-duration timer did not fire promptly")
	}
}

func TestTimerRegistry_UnknownNameIsNoOp(t *testing.T) {
	var mu sync.Mutex
	r := NewTimerRegistry(inlinePost(&mu))
	r.Arm(TimerName("bogus"), time.Millisecond, func() { t.Fatal("should never fire") })
	time.Sleep(20 * time.Millisecond)
}
