package domain

import "time"

// ControlKind identifies a stateful control on a ticket's summary message.
type ControlKind string

const (
	ControlPriority  ControlKind = "priority"
	ControlCallStaff ControlKind = "call_staff"
)

// ControlState labels where a control is in its lifecycle.
type ControlState string

const (
	// ControlIssued is the initial state of every posted control.
	ControlIssued ControlState = "issued"
	// ControlPending means a two-phase control awaits confirmation.
	ControlPending ControlState = "pending"
	// ControlUsed marks a one-time control after its single use.
	ControlUsed ControlState = "used"
	// ControlConfirmed marks a two-phase control after confirmation.
	ControlConfirmed ControlState = "confirmed"
)

var controlTransitions = map[ControlKind]map[ControlState]map[ControlState]struct{}{
	ControlPriority: {
		ControlIssued: {ControlUsed: {}},
	},
	ControlCallStaff: {
		ControlIssued:  {ControlPending: {}},
		ControlPending: {ControlPending: {}, ControlConfirmed: {}},
	},
}

// Control is the persisted state of one control. Token binds a pending confirmation
// to the prompt that issued it.
type Control struct {
	Kind      ControlKind
	State     ControlState
	Token     string
	UpdatedAt time.Time
}

// NewControl returns a control in its initial state.
func NewControl(kind ControlKind) Control {
	return Control{Kind: kind, State: ControlIssued}
}

// Inert reports whether the control no longer accepts input.
func (c Control) Inert() bool {
	return c.State == ControlUsed || c.State == ControlConfirmed
}

// CanTransition reports whether kind allows moving from one state to another.
func CanTransition(kind ControlKind, from, to ControlState) bool {
	states, ok := controlTransitions[kind]
	if !ok {
		return false
	}
	allowed, ok := states[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}
