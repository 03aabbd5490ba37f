package orchestrator

import "time"

// DTMFFinalizeReason closes the set of reasons a DTMF collection can end.
type DTMFFinalizeReason string

const (
	DTMFFinalTimeout DTMFFinalizeReason = "final_timeout"
	DTMFForced       DTMFFinalizeReason = "forced"
)

// DTMFCollector accumulates keypad digits for one call. Every digit
// restarts both chained timers; only the final timer ever triggers
// completion on its own — the inter-digit timer firing is, by itself, a
// no-op, since the final timer alone governs when collection ends.
type DTMFCollector struct {
	timers  *TimerRegistry
	onFinal func(digits string, reason DTMFFinalizeReason)

	interDigitTimeout time.Duration
	finalTimeout      time.Duration

	digits []byte
}

// NewDTMFCollector builds a collector bound to a call's timer registry.
// onFinal is invoked (via the registry's post, i.e. on the call's queue)
// exactly once per finalize.
func NewDTMFCollector(timers *TimerRegistry, interDigitTimeout, finalTimeout time.Duration, onFinal func(digits string, reason DTMFFinalizeReason)) *DTMFCollector {
	return &DTMFCollector{
		timers:            timers,
		onFinal:           onFinal,
		interDigitTimeout: interDigitTimeout,
		finalTimeout:      finalTimeout,
	}
}

// OnDigit records one keypad digit and re-arms both chained timers from
// scratch.
func (c *DTMFCollector) OnDigit(d byte) {
	c.timers.Cancel(TimerDTMFInterDigit)
	c.timers.Cancel(TimerDTMFFinal)

	c.digits = append(c.digits, d)

	c.timers.Arm(TimerDTMFInterDigit, c.interDigitTimeout, func() {
		// Expiration of dtmfInterDigit is a no-op by itself; dtmfFinal alone
		// governs completion.
	})
	c.timers.Arm(TimerDTMFFinal, c.finalTimeout, func() {
		c.Finalize(DTMFFinalTimeout)
	})
}

// Finalize cancels both timers and publishes the accumulated digits.
// Idempotent past the first call: once digits have been reported, further
// calls are no-ops, matching the orchestrator's once-only transition out of
// DtmfCollecting.
func (c *DTMFCollector) Finalize(reason DTMFFinalizeReason) {
	c.timers.Cancel(TimerDTMFInterDigit)
	c.timers.Cancel(TimerDTMFFinal)
	if c.onFinal == nil {
		return
	}
	onFinal := c.onFinal
	c.onFinal = nil
	onFinal(c.Digits(), reason)
}

// Digits returns the accumulated digit buffer as a string, in entry order.
func (c *DTMFCollector) Digits() string {
	return string(c.digits)
}
