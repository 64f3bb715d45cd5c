package session

import "testing"

func TestStateValid(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StateActive, true},
		{StateSuspended, true},
		{StateCompleted, true},
		{State(""), false},
		{State("archived"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestStateCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"active to suspended", StateActive, StateSuspended, true},
		{"active to completed", StateActive, StateCompleted, true},
		{"active to active", StateActive, StateActive, false},
		{"suspended to active", StateSuspended, StateActive, true},
		{"suspended to completed", StateSuspended, StateCompleted, true},
		{"suspended to suspended", StateSuspended, StateSuspended, false},
		{"completed to active", StateCompleted, StateActive, false},
		{"completed to suspended", StateCompleted, StateSuspended, false},
		{"completed to completed", StateCompleted, StateCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%q → %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStateTerminal(t *testing.T) {
	if StateActive.Terminal() || StateSuspended.Terminal() {
		t.Error("active and suspended must not be terminal")
	}
	if !StateCompleted.Terminal() {
		t.Error("completed must be terminal")
	}
}
