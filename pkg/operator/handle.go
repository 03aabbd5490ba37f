package operator

import (
	"github.com/lokutor-ai/ari-voicebridge/pkg/orchestrator"
)

// OrchestratorHandle adapts one orchestrator.Call + orchestrator.Orchestrator
// pair to the hub's CallHandle contract.
type OrchestratorHandle struct {
	call         *orchestrator.Call
	orchestrator *orchestrator.Orchestrator
}

// NewOrchestratorHandle builds a CallHandle backed by a live call.
func NewOrchestratorHandle(call *orchestrator.Call, o *orchestrator.Orchestrator) *OrchestratorHandle {
	return &OrchestratorHandle{call: call, orchestrator: o}
}

var _ CallHandle = (*OrchestratorHandle)(nil)

func (h *OrchestratorHandle) ID() string { return h.call.ID }

func (h *OrchestratorHandle) Snapshot() CallSnapshot {
	id, callerID, state := h.orchestrator.Snapshot()
	return CallSnapshot{CallID: id, CallerID: callerID, State: state}
}

func (h *OrchestratorHandle) History() []orchestrator.Turn {
	return h.orchestrator.History()
}

func (h *OrchestratorHandle) RequestHistorySnapshot() {
	h.orchestrator.RequestHistorySnapshot()
}

func (h *OrchestratorHandle) ApplyConfigUpdate(next orchestrator.CallConfig) error {
	return h.orchestrator.ApplyConfigUpdate(next)
}

func (h *OrchestratorHandle) CurrentConfig() orchestrator.CallConfig {
	return h.orchestrator.CurrentConfig()
}
