package poller

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateFetching, true},
		{StateFetching, StateExtracting, true},
		{StateExtracting, StateSending, true},
		{StateSending, StateFetching, true},
		{StateSending, StateAdvancing, true},
		{StateAdvancing, StateIdle, true},
		{StateFailed, StateIdle, true},
		{StateIdle, StateSending, false},
		{StateFailed, StateFetching, false},
		{StateAdvancing, StateFetching, false},
		{StateIdle, StateAdvancing, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransition_IsValid(t *testing.T) {
	if !NewTransition(StateIdle, StateFetching, "start").IsValid() {
		t.Error("idle -> fetching should be valid")
	}
	if NewTransition(StateIdle, StateIdle, "noop").IsValid() {
		t.Error("idle -> idle should be invalid")
	}
}
