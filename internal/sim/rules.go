package sim

// defaultRules is the engine's default tunables profile. Content packs
// overwrite freely; ResetRules restores exactly this snapshot.
func defaultRules() map[string]any {
	return map[string]any{
		"physics": map[string]any{
			"gravity":     float64(980),
			"friction":    0.85,
			"maxVelocity": float64(600),
			"jumpForce":   float64(420),
			"moveSpeed":   float64(220),
		},
		"scoring": map[string]any{
			"coinValue":  float64(100),
			"enemyValue": float64(250),
			"timeBonus":  float64(10),
			"livesStart": float64(3),
			"score":      float64(0),
		},
		"controls": map[string]any{
			"left":  "ArrowLeft",
			"right": "ArrowRight",
			"jump":  "Space",
			"pause": "Escape",
		},
		"abilities":    map[string]any{},
		"presentation": map[string]any{},
	}
}

// GetRule reads a dot-path from the rules tree. A nonexistent path returns
// nil, never an error.
func (s *State) GetRule(path string) any {
	v, ok := getAt(s.Rules, splitPath(path))
	if !ok {
		return nil
	}
	return v
}

// SetRule writes a dot-path into the rules tree, creating intermediate
// objects as needed.
func (s *State) SetRule(path string, value any) error {
	return setAt(s.Rules, splitPath(path), cloneValue(value))
}

// ResetRules restores the default profile snapshot.
func (s *State) ResetRules() {
	s.Rules = defaultRules()
}
