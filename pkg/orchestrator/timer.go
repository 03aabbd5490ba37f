package orchestrator

import (
	"sync"
	"time"
)

// TimerName closes the set of timeouts the core ever arms. Every timeout in
// the system flows through the Timer Registry so cleanup (cancelAll) is
// total.
type TimerName string

const (
	TimerBargeIn               TimerName = "bargeIn"
	TimerNoSpeechBegin         TimerName = "noSpeechBegin"
	TimerInitialStreamIdle     TimerName = "initialStreamIdle"
	TimerSpeechEndSilence      TimerName = "speechEndSilence"
	TimerMaxRecognition        TimerName = "maxRecognition"
	TimerVADInitialSilence     TimerName = "vadInitialSilence"
	TimerVADActivationDelay    TimerName = "vadActivationDelay"
	TimerVADMaxWaitAfterPrompt TimerName = "vadMaxWaitAfterPrompt"
	TimerDTMFInterDigit        TimerName = "dtmfInterDigit"
	TimerDTMFFinal             TimerName = "dtmfFinal"
)

var validTimerNames = map[TimerName]bool{
	TimerBargeIn:               true,
	TimerNoSpeechBegin:         true,
	TimerInitialStreamIdle:     true,
	TimerSpeechEndSilence:      true,
	TimerMaxRecognition:        true,
	TimerVADInitialSilence:     true,
	TimerVADActivationDelay:    true,
	TimerVADMaxWaitAfterPrompt: true,
	TimerDTMFInterDigit:        true,
	TimerDTMFFinal:             true,
}

type timerEntry struct {
	name  TimerName
	timer *time.Timer
	seq   uint64
}

// TimerRegistry arms, resets and cancels wall-clock timers for one call. At
// most one instance per name can be armed at a time (arm replaces any prior
// instance); onFire is never invoked directly on the timer goroutine —
// it is handed to post, which the Call Orchestrator uses to run it on its
// single-threaded logical queue.
type TimerRegistry struct {
	mu      sync.Mutex
	entries map[TimerName]*timerEntry
	seq     uint64
	post    func(func())
}

// NewTimerRegistry builds a registry that hands fired callbacks to post
// instead of running them inline. post must serialize its callbacks onto
// the owning call's single-writer queue.
func NewTimerRegistry(post func(func())) *TimerRegistry {
	return &TimerRegistry{
		entries: make(map[TimerName]*timerEntry),
		post:    post,
	}
}

// Arm schedules onFire to run (via post) after duration. Any previously
// armed timer with the same name is cancelled first. A duration of zero (or
// negative) fires on the next queue turn, so a VAD timer configured to 0
// behaves as already expired.
func (r *TimerRegistry) Arm(name TimerName, duration time.Duration, onFire func()) {
	if !validTimerNames[name] {
		return
	}

	r.mu.Lock()
	if prev, ok := r.entries[name]; ok {
		prev.timer.Stop()
		delete(r.entries, name)
	}
	r.seq++
	seq := r.seq
	if duration < 0 {
		duration = 0
	}

	entry := &timerEntry{name: name, seq: seq}
	entry.timer = time.AfterFunc(duration, func() {
		r.mu.Lock()
		current, ok := r.entries[name]
		if !ok || current.seq != seq {
			r.mu.Unlock()
			return
		}
		delete(r.entries, name)
		r.mu.Unlock()
		r.post(onFire)
	})
	r.entries[name] = entry
	r.mu.Unlock()
}

// Cancel removes any armed timer with this name. If Cancel returns before
// onFire would have run, onFire is guaranteed not to run (the underlying
// time.Timer.Stop contract); otherwise onFire has already been (or is about
// to be) posted and will run exactly once. Cancelling an unarmed name is a
// no-op.
func (r *TimerRegistry) Cancel(name TimerName) {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.entries, name)
	r.mu.Unlock()
	entry.timer.Stop()
}

// CancelAll cancels every armed timer for this call. Used by fullCleanup
// and guarantees no armed timer survives a cancelAll call.
func (r *TimerRegistry) CancelAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[TimerName]*timerEntry)
	r.mu.Unlock()
	for _, entry := range entries {
		entry.timer.Stop()
	}
}

// IsArmed reports whether a timer with this name currently has a pending fire.
func (r *TimerRegistry) IsArmed(name TimerName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}
