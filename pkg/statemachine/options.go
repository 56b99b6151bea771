package statemachine

// Option configures a chart during construction.
type Option func(*Chart) error

// TransitionOption attaches guards to a single transition.
type TransitionOption func(*Transition)

// TransitionDef defines a transition for bulk registration.
type TransitionDef struct {
	From   State
	To     State
	Event  Event
	Guards []Guard
}

// WithTransition adds a single transition to the chart.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(c *Chart) error {
		t := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		return c.add(t)
	}
}

// WithTransitions adds multiple transitions to the chart at once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(c *Chart) error {
		for _, def := range transitions {
			if err := c.add(Transition(def)); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithGuard adds a guard to a transition. Nil guards are ignored.
func WithGuard(guard Guard) TransitionOption {
	return func(t *Transition) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithGuards adds multiple guards to a transition, filtering out nils.
func WithGuards(guards ...Guard) TransitionOption {
	return func(t *Transition) {
		for _, guard := range guards {
			if guard != nil {
				t.Guards = append(t.Guards, guard)
			}
		}
	}
}
