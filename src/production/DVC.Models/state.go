package dvcmodels

import (
	"errors"
	"fmt"
	"strings"
)

// State is the operational state of a device
type State string

const (
	StateAvailable State = "AVAILABLE"
	StateInUse     State = "INUSE"
	StateInactive  State = "INACTIVE"
)

var ErrInvalidState = errors.New("invalid state, expected one of AVAILABLE, INUSE, INACTIVE")

var stateDisplay = map[State]string{
	StateAvailable: "available",
	StateInUse:     "in-use",
	StateInactive:  "inactive",
}

// States returns every valid state in declaration order
func States() []State {
	return []State{StateAvailable, StateInUse, StateInactive}
}

// ParseState converts a request or column value into a State
func ParseState(s string) (State, error) {
	st := State(strings.TrimSpace(s))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return st, nil
}

func (s State) IsValid() bool {
	_, ok := stateDisplay[s]
	return ok
}

// Display returns the lowercase form used in response messages
func (s State) Display() string {
	return stateDisplay[s]
}

func (s State) String() string {
	return string(s)
}
