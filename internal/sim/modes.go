package sim

// defaultModes is the minimal content-agnostic topology. Applications wire
// their own transitions with DefineTransition.
func defaultModes() Modes {
	return Modes{
		Current: "title",
		Transitions: map[string]map[string]string{
			"title":   {"start": "intro"},
			"intro":   {"start": "playing"},
			"playing": {"pause": "paused", "complete": "complete", "gameover": "gameover"},
			"paused":  {"resume": "playing"},
		},
	}
}

// SetMode overwrites the current mode directly, bypassing the transition
// table. The validated path is TriggerTransition.
func (s *State) SetMode(mode string) {
	s.Modes.Current = mode
}

// DefineTransition wires transitions[from][trigger] = to.
func (s *State) DefineTransition(from, trigger, to string) {
	if s.Modes.Transitions == nil {
		s.Modes.Transitions = make(map[string]map[string]string)
	}
	m, ok := s.Modes.Transitions[from]
	if !ok {
		m = make(map[string]string)
		s.Modes.Transitions[from] = m
	}
	m[trigger] = to
}

// TriggerTransition follows the table from the current mode. Unrecognized
// triggers leave the mode unchanged and return false.
func (s *State) TriggerTransition(trigger string) bool {
	to, ok := s.Modes.Transitions[s.Modes.Current][trigger]
	if !ok {
		return false
	}
	s.Modes.Current = to
	return true
}

// DefineScreen stores an opaque UI screen config.
func (s *State) DefineScreen(name string, config map[string]any) {
	if config == nil {
		config = make(map[string]any)
	}
	cloned, _ := cloneValue(config).(map[string]any)
	s.Screens[name] = cloned
}

// GetScreen returns a screen config, or nil.
func (s *State) GetScreen(name string) map[string]any {
	return s.Screens[name]
}
