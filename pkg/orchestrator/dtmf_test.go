package orchestrator

import (
	"sync"
	"testing"
	"time"
)

func TestDTMFCollector_DigitAppendsAndRearmsTimers(t *testing.T) {
	var mu sync.Mutex
	timers := NewTimerRegistry(inlinePost(&mu))
	c := NewDTMFCollector(timers, 5*time.Second, 5*time.Second, func(string, DTMFFinalizeReason) {})

	c.OnDigit('1')
	c.OnDigit('2')
	c.OnDigit('3')

	if c.Digits() != "123" {
		t.Fatalf("expected accumulated digits %q, got %q", "123", c.Digits())
	}
	if !timers.IsArmed(TimerDTMFInterDigit) || !timers.IsArmed(TimerDTMFFinal) {
		t.Fatal("expected both DTMF timers armed after a digit")
	}
}

func TestDTMFCollector_FinalTimeoutFinalizesWithReason(t *testing.T) {
	var mu sync.Mutex
	timers := NewTimerRegistry(inlinePost(&mu))

	done := make(chan struct{})
	var gotDigits string
	var gotReason DTMFFinalizeReason
	c := NewDTMFCollector(timers, time.Hour, 20*time.Millisecond, func(digits string, reason DTMFFinalizeReason) {
		gotDigits = digits
		gotReason = reason
		close(done)
	})

	c.OnDigit('9')
	c.OnDigit('0')

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("dtmfFinal expiry never finalized the collector")
	}

	if gotDigits != "90" {
		t.Fatalf("expected digits %q, got %q", "90", gotDigits)
	}
	if gotReason != DTMFFinalTimeout {
		t.Fatalf("expected reason %q, got %q", DTMFFinalTimeout, gotReason)
	}
	if timers.IsArmed(TimerDTMFInterDigit) || timers.IsArmed(TimerDTMFFinal) {
		t.Fatal("expected both timers cancelled after finalize")
	}
}

func TestDTMFCollector_InterDigitExpiryAloneDoesNotFinalize(t *testing.T) {
	var mu sync.Mutex
	timers := NewTimerRegistry(inlinePost(&mu))

	finalized := false
	c := NewDTMFCollector(timers, 20*time.Millisecond, time.Hour, func(string, DTMFFinalizeReason) {
		finalized = true
	})

	c.OnDigit('5')
	time.Sleep(60 * time.Millisecond)

	if finalized {
		t.Fatal("dtmfInterDigit expiry alone must not finalize collection")
	}
	if timers.IsArmed(TimerDTMFInterDigit) {
		t.Fatal("expected dtmfInterDigit to have fired and cleared itself")
	}
	if !timers.IsArmed(TimerDTMFFinal) {
		t.Fatal("dtmfFinal should still be armed governing completion")
	}
}

func TestDTMFCollector_FinalizeIsOnceOnly(t *testing.T) {
	var mu sync.Mutex
	timers := NewTimerRegistry(inlinePost(&mu))

	calls := 0
	c := NewDTMFCollector(timers, time.Hour, time.Hour, func(string, DTMFFinalizeReason) {
		calls++
	})

	c.OnDigit('1')
	c.Finalize(DTMFForced)
	c.Finalize(DTMFForced)

	if calls != 1 {
		t.Fatalf("expected exactly one finalize callback, got %d", calls)
	}
}
