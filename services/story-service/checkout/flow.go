package checkout

import (
	"errors"
	"fmt"
)

// Phase is the position of a session in the payment flow.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseCreatingOrder   Phase = "creating_order"
	PhaseAwaitingGateway Phase = "awaiting_gateway"
	PhaseUploading       Phase = "uploading"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// Event drives a phase change.
type Event string

const (
	EventBegin        Event = "begin"
	EventOrderCreated Event = "order_created"
	EventOrderFailed  Event = "order_failed"
	EventDismissed    Event = "dismissed"
	EventPaid         Event = "paid"
	EventSaved        Event = "saved"
	EventSaveFailed   Event = "save_failed"
)

var ErrInvalidTransition = errors.New("invalid checkout transition")

type edge struct {
	from Phase
	ev   Event
}

var transitions = map[edge]Phase{
	{PhaseIdle, EventBegin}:                 PhaseCreatingOrder,
	{PhaseFailed, EventBegin}:               PhaseCreatingOrder,
	{PhaseCreatingOrder, EventOrderCreated}: PhaseAwaitingGateway,
	{PhaseCreatingOrder, EventOrderFailed}:  PhaseFailed,
	{PhaseAwaitingGateway, EventDismissed}:  PhaseIdle,
	{PhaseAwaitingGateway, EventPaid}:       PhaseUploading,
	{PhaseUploading, EventSaved}:            PhaseDone,
	{PhaseUploading, EventSaveFailed}:       PhaseFailed,
}

// Normalize maps the zero value to PhaseIdle.
func Normalize(p Phase) Phase {
	if p == "" {
		return PhaseIdle
	}
	return p
}

// Transition returns the phase reached from `from` on ev.
func Transition(from Phase, ev Event) (Phase, error) {
	from = Normalize(from)
	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// Processing reports whether a checkout is in flight, i.e. the pay button is disabled.
func Processing(p Phase) bool {
	switch p {
	case PhaseCreatingOrder, PhaseAwaitingGateway, PhaseUploading:
		return true
	}
	return false
}
