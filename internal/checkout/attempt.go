package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// State is the position of a confirmation attempt in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateRejected   State = "rejected"
	StatePersisting State = "persisting"
	StateFailed     State = "failed"
	StateConfirmed  State = "confirmed"
)

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateRejected, StatePersisting},
	StatePersisting: {StateFailed, StateConfirmed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateFailed || s == StateConfirmed
}

// Attempt records one confirmation. It is created idle and ends in exactly one
// terminal state.
type Attempt struct {
	State        State
	Reason       string
	OrderID      string
	PayableTotal decimal.Decimal
}

func newAttempt() *Attempt {
	return &Attempt{State: StateIdle}
}

func (a *Attempt) advance(next State) error {
	for _, allowed := range transitions[a.State] {
		if allowed == next {
			a.State = next
			return nil
		}
	}
	return fmt.Errorf("checkout attempt cannot move from %s to %s", a.State, next)
}

func (a *Attempt) reject(reason string) {
	_ = a.advance(StateRejected)
	a.Reason = reason
}

func (a *Attempt) fail(reason string) {
	_ = a.advance(StateFailed)
	a.Reason = reason
}

func (a *Attempt) confirm(orderID string) {
	_ = a.advance(StateConfirmed)
	a.OrderID = orderID
}
