// Package content loads declarative game packs: YAML documents bundling
// rules, templates, systems, collisions, events, screens and mode wiring.
// A pack is applied through the same define/set paths the tool surface uses,
// so loading one is indistinguishable from a controller issuing the calls.
package content

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/simforge/engine/internal/expr"
	"github.com/simforge/engine/internal/sim"
)

// Transition is one mode-machine edge.
type Transition struct {
	From    string `yaml:"from"`
	Trigger string `yaml:"trigger"`
	To      string `yaml:"to"`
}

// TemplateDef mirrors sim.Template for YAML decoding.
type TemplateDef struct {
	Tags       []string       `yaml:"tags"`
	Components map[string]any `yaml:"components"`
}

// SystemDef mirrors sim.System for YAML decoding.
type SystemDef struct {
	Name    string       `yaml:"name"`
	Phase   string       `yaml:"phase"`
	Query   sim.Query    `yaml:"query"`
	Actions []sim.Action `yaml:"actions"`
}

// CollisionDef mirrors sim.CollisionHandler for YAML decoding.
type CollisionDef struct {
	Between   []string       `yaml:"between"`
	Condition string         `yaml:"condition"`
	Emit      string         `yaml:"emit"`
	Data      map[string]any `yaml:"data"`
}

// SpawnDef is one initial entity instantiation.
type SpawnDef struct {
	Template string    `yaml:"template"`
	ID       string    `yaml:"id"`
	At       *sim.Vec2 `yaml:"at"`
	Tags     []string  `yaml:"tags"`
}

// Pack is one complete content document.
type Pack struct {
	Name        string                    `yaml:"name"`
	Rules       map[string]any            `yaml:"rules"`
	Mode        string                    `yaml:"mode"`
	Transitions []Transition              `yaml:"transitions"`
	Screens     map[string]map[string]any `yaml:"screens"`
	Templates   map[string]TemplateDef    `yaml:"templates"`
	Systems     []SystemDef               `yaml:"systems"`
	Collisions  []CollisionDef            `yaml:"collisions"`
	Events      map[string][]sim.Action   `yaml:"events"`
	Level       *sim.Level                `yaml:"level"`
	Spawn       []SpawnDef                `yaml:"spawn"`
}

// Load reads and validates a pack file.
func Load(path string) (*Pack, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates pack bytes.
func Parse(b []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse pack: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// validate rejects a pack before any of it touches the state, so a bad pack
// never half-applies.
func (p *Pack) validate() error {
	for i, sys := range p.Systems {
		if sys.Name == "" {
			return fmt.Errorf("systems[%d]: name required", i)
		}
		if err := validateActions(sys.Actions); err != nil {
			return fmt.Errorf("system %s: %w", sys.Name, err)
		}
	}
	for i, c := range p.Collisions {
		if len(c.Between) != 2 {
			return fmt.Errorf("collisions[%d]: between must name exactly two layers", i)
		}
		if c.Emit == "" {
			return fmt.Errorf("collisions[%d]: emit required", i)
		}
		if c.Condition != "" {
			if err := expr.Validate(c.Condition); err != nil {
				return fmt.Errorf("collisions[%d]: %w", i, err)
			}
		}
	}
	for name, actions := range p.Events {
		if err := validateActions(actions); err != nil {
			return fmt.Errorf("event %s: %w", name, err)
		}
	}
	for i, sp := range p.Spawn {
		if sp.Template == "" {
			return fmt.Errorf("spawn[%d]: template required", i)
		}
		if _, ok := p.Templates[sp.Template]; !ok {
			return fmt.Errorf("spawn[%d]: unknown template: %s", i, sp.Template)
		}
	}
	return nil
}

// validateActions checks every expression an action tree carries. String
// Value/At/Condition fields are expressions; a malformed one fails the pack.
func validateActions(actions []sim.Action) error {
	for _, a := range actions {
		if src, ok := a.Value.(string); ok {
			if err := expr.Validate(src); err != nil {
				return err
			}
		}
		if a.Condition != "" {
			if err := expr.Validate(a.Condition); err != nil {
				return err
			}
		}
		if a.At != "" {
			if err := expr.Validate(a.At); err != nil {
				return err
			}
		}
		for _, sub := range [][]sim.Action{a.Then, a.Else, a.Do} {
			if err := validateActions(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply writes the pack into the state in a fixed order. Maps apply in
// sorted key order so two loads of the same pack build identical states.
func (p *Pack) Apply(s *sim.State) error {
	// Rules overlay the default profile leaf by leaf; a pack that sets
	// physics.gravity does not wipe the rest of the physics subtree.
	for _, leaf := range flattenRules("", p.Rules) {
		if err := s.SetRule(leaf.path, leaf.value); err != nil {
			return fmt.Errorf("rule %s: %w", leaf.path, err)
		}
	}
	for _, name := range sortedKeys(p.Templates) {
		def := p.Templates[name]
		s.DefineTemplate(name, sim.Template{Tags: def.Tags, Components: def.Components})
	}
	for _, sys := range p.Systems {
		err := s.DefineSystem(sim.System{
			Name: sys.Name, Phase: sys.Phase, Query: sys.Query, Actions: sys.Actions,
		})
		if err != nil {
			return fmt.Errorf("system %s: %w", sys.Name, err)
		}
	}
	for _, c := range p.Collisions {
		s.DefineCollision(sim.CollisionHandler{
			Between:   [2]string{c.Between[0], c.Between[1]},
			Condition: c.Condition,
			Emit:      c.Emit,
			Data:      c.Data,
		})
	}
	for _, name := range sortedKeys(p.Events) {
		s.DefineEvent(name, p.Events[name])
	}
	for _, t := range p.Transitions {
		s.DefineTransition(t.From, t.Trigger, t.To)
	}
	for _, name := range sortedKeys(p.Screens) {
		s.DefineScreen(name, p.Screens[name])
	}
	if p.Level != nil {
		s.Level = p.Level
	}
	for _, sp := range p.Spawn {
		ov := &sim.SpawnOverrides{ID: sp.ID, At: sp.At, Tags: sp.Tags}
		if _, err := s.SpawnEntity(sp.Template, ov); err != nil {
			return fmt.Errorf("spawn %s: %w", sp.Template, err)
		}
	}
	if p.Mode != "" {
		s.SetMode(p.Mode)
	}
	return nil
}

type ruleLeaf struct {
	path  string
	value any
}

func flattenRules(prefix string, m map[string]any) []ruleLeaf {
	var out []ruleLeaf
	for _, k := range sortedKeys(m) {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub, ok := m[k].(map[string]any); ok && len(sub) > 0 {
			out = append(out, flattenRules(path, sub)...)
			continue
		}
		out = append(out, ruleLeaf{path: path, value: m[k]})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
