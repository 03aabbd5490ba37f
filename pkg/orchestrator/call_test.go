package orchestrator

import "testing"

func TestNewCall_AssignsUniqueID(t *testing.T) {
	a := NewCall("caller-1", "chan-1", DefaultCallConfig())
	b := NewCall("caller-1", "chan-2", DefaultCallConfig())

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty call ids")
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct call ids")
	}
	if a.State != StateNew {
		t.Fatalf("expected initial state New, got %q", a.State)
	}
}

func TestConversationLog_AppendCapsAtMaxTurns(t *testing.T) {
	log := NewConversationLog(2)
	log.AppendTurn(Turn{Actor: ActorUser, Type: TurnMessage, Content: "one"})
	log.AppendTurn(Turn{Actor: ActorAssistant, Type: TurnMessage, Content: "two"})
	log.AppendTurn(Turn{Actor: ActorUser, Type: TurnMessage, Content: "three"})

	turns := log.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected log capped at 2 turns, got %d", len(turns))
	}
	if turns[0].Content != "two" || turns[1].Content != "three" {
		t.Fatalf("expected oldest turn dropped, got %+v", turns)
	}
}

func TestConversationLog_UnboundedWhenMaxTurnsZero(t *testing.T) {
	log := NewConversationLog(0)
	for i := 0; i < 5; i++ {
		log.AppendTurn(Turn{Actor: ActorUser, Type: TurnMessage, Content: "x"})
	}
	if len(log.Turns()) != 5 {
		t.Fatalf("expected unbounded log to keep all turns, got %d", len(log.Turns()))
	}
}

func TestCall_SnapshotRequestedDefaultsFalse(t *testing.T) {
	c := NewCall("caller-1", "chan-1", DefaultCallConfig())
	if c.SnapshotRequested() {
		t.Fatal("expected snapshot not requested by default")
	}
	c.RequestSnapshot()
	if !c.SnapshotRequested() {
		t.Fatal("expected snapshot requested after RequestSnapshot")
	}
}
