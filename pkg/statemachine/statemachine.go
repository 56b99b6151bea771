package statemachine

// State identifies a state in the chart.
type State string

// Event identifies an event that can trigger a transition.
type Event string

// Guard evaluates whether a transition should be allowed based on runtime data.
type Guard func(data any) bool

// Transition defines a state change triggered by an event, with optional guards.
type Transition struct {
	From   State
	To     State
	Event  Event
	Guards []Guard // All must pass for the transition to apply
}

// Chart is an immutable transition table. Build it once with NewChart and
// share it freely: lookups never mutate it, so no locking is needed.
type Chart struct {
	// [fromState][event][]Transition for O(1) lookup
	transitions map[State]map[Event][]Transition
}

// NewChart builds a chart from the given options.
func NewChart(opts ...Option) (*Chart, error) {
	c := &Chart{transitions: make(map[State]map[Event][]Transition)}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewChart builds a chart and panics on configuration errors.
// Transition tables are static program configuration, so a bad one should
// prevent startup rather than surface at runtime.
func MustNewChart(opts ...Option) *Chart {
	c, err := NewChart(opts...)
	if err != nil {
		panic("statemachine: " + err.Error())
	}
	return c
}

func (c *Chart) add(t Transition) error {
	if t.From == "" || t.To == "" || t.Event == "" {
		return ErrInvalidTransition
	}
	if _, ok := c.transitions[t.From]; !ok {
		c.transitions[t.From] = make(map[Event][]Transition)
	}
	// Multiple transitions allowed for same from/event to support guard-based branching
	c.transitions[t.From][t.Event] = append(c.transitions[t.From][t.Event], t)
	return nil
}

// Next returns the state reached by firing event from the given state.
// The first registered transition whose guards all pass wins. Returns a
// *NoTransitionError when the event is undefined for the state and a
// *TransitionRejectedError when every candidate was blocked by its guards.
func (c *Chart) Next(from State, event Event, data any) (State, error) {
	if event == "" {
		return "", ErrInvalidEvent
	}

	candidates := c.transitions[from][event]
	if len(candidates) == 0 {
		return "", &NoTransitionError{State: string(from), Event: string(event)}
	}

	for _, t := range candidates {
		if guardsPass(t.Guards, data) {
			return t.To, nil
		}
	}
	return "", &TransitionRejectedError{State: string(from), Event: string(event)}
}

// Can reports whether firing event from the given state would succeed.
func (c *Chart) Can(from State, event Event, data any) bool {
	_, err := c.Next(from, event, data)
	return err == nil
}

func guardsPass(guards []Guard, data any) bool {
	for _, guard := range guards {
		if guard != nil && !guard(data) {
			return false
		}
	}
	return true
}
