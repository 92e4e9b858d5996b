package model

import "fmt"

// State tracks a ContentItem through the stages.
type State string

const (
	StatePending    State = "PENDING"
	StateIsolated   State = "ISOLATED"
	StateDiagnosed  State = "DIAGNOSED"
	StateEvidenced  State = "EVIDENCED"
	StateRendered   State = "RENDERED"
	StatePlaybooked State = "PLAYBOOKED"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

var nextState = map[State]State{
	StatePending:    StateIsolated,
	StateIsolated:   StateDiagnosed,
	StateDiagnosed:  StateEvidenced,
	StateEvidenced:  StateRendered,
	StateRendered:   StatePlaybooked,
	StatePlaybooked: StateDone,
}

// CanTransition reports whether s may move to to. FAILED is only reachable
// before diagnosis; later stages degrade in place.
func (s State) CanTransition(to State) bool {
	if to == StateFailed {
		return s == StatePending || s == StateIsolated
	}
	return nextState[s] == to
}

func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Advance moves the item to the given state or reports an illegal move.
func (c *ContentItem) Advance(to State) error {
	if !c.State.CanTransition(to) {
		return fmt.Errorf("illegal transition %s -> %s for %s", c.State, to, c.Key)
	}
	c.State = to
	return nil
}

// Fail marks the item FAILED with the reason.
func (c *ContentItem) Fail(err error) error {
	if advErr := c.Advance(StateFailed); advErr != nil {
		return advErr
	}
	if err != nil {
		c.FailedErr = err.Error()
	}
	return nil
}
