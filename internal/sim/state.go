// Package sim is the deterministic simulation core. All behavior lives in
// serializable data: entities, templates, systems, collision handlers, event
// handlers, rules and modes. The only mutation paths are the action executor
// and the direct store operations; stepping the engine is single-writer and
// run-to-completion.
package sim

import (
	"fmt"

	"go.uber.org/zap"
)

// Phase names, executed in this order each tick.
const (
	PhaseInput     = "input"
	PhaseUpdate    = "update"
	PhasePhysics   = "physics"
	PhaseCollision = "collision"
)

func phaseRank(phase string) (int, bool) {
	switch phase {
	case PhaseInput:
		return 0, true
	case PhaseUpdate:
		return 1, true
	case PhasePhysics:
		return 2, true
	case PhaseCollision:
		return 3, true
	}
	return 0, false
}

// Entity is pure data: a stable id, a tag set and arbitrary components.
type Entity struct {
	ID         string         `json:"id"`
	Tags       []string       `json:"tags"`
	Components map[string]any `json:"components"`
}

// HasTag reports tag membership.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Member exposes the entity to the expression language, so "data.a.id" and
// "data.a.Position.x" resolve through a live entity reference.
func (e *Entity) Member(name string) (any, bool) {
	switch name {
	case "id":
		return e.ID, true
	case "tags":
		out := make([]any, len(e.Tags))
		for i, t := range e.Tags {
			out[i] = t
		}
		return out, true
	}
	v, ok := e.Components[name]
	return v, ok
}

// Template is an immutable blueprint. Spawning deep-copies it, so instances
// never alias template state.
type Template struct {
	Tags       []string       `json:"tags"`
	Components map[string]any `json:"components"`
}

// Query selects entities by tag membership and component presence/absence.
// The zero Query matches every entity.
type Query struct {
	Tag string   `json:"tag,omitempty"`
	Has []string `json:"has,omitempty"`
	Not []string `json:"not,omitempty"`
}

// System is a named, phase-tagged query+action bundle run once per tick.
type System struct {
	Name    string   `json:"name"`
	Phase   string   `json:"phase"`
	Query   Query    `json:"query"`
	Actions []Action `json:"actions"`
}

// CollisionHandler pairs two collider layers with an event to emit on AABB
// overlap. Keyed by the unordered layer pair: redefining a pair replaces it.
type CollisionHandler struct {
	Between   [2]string      `json:"between"`
	Condition string         `json:"condition,omitempty"`
	Emit      string         `json:"emit"`
	Data      map[string]any `json:"data,omitempty"`
}

// Modes is the top-level finite state machine.
type Modes struct {
	Current     string                       `json:"current"`
	Transitions map[string]map[string]string `json:"transitions"`
}

// Level is opaque world geometry, carried through serialization untouched.
// Collision inside the core is entity-collider driven, never tile driven.
type Level struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Tiles  [][]int `json:"tiles,omitempty"`
}

// State is the single root of truth. Every field is plain data; it must
// round-trip through Dump/Load with zero information loss.
type State struct {
	Frame      int64                     `json:"frame"`
	Time       float64                   `json:"time"`
	Entities   []*Entity                 `json:"entities"`
	Templates  map[string]*Template      `json:"templates"`
	Systems    []*System                 `json:"systems"`
	Collisions []*CollisionHandler       `json:"collisions"`
	Events     map[string][]Action       `json:"events"`
	Rules      map[string]any            `json:"rules"`
	Screens    map[string]map[string]any `json:"screens"`
	Modes      Modes                     `json:"modes"`
	Level      *Level                    `json:"level,omitempty"`

	// Id allocation and the Math.random stream are part of the state so two
	// engines replaying the same inputs stay byte-identical.
	NextID    int64  `json:"nextId"`
	Seed      uint64 `json:"seed"`
	RandState uint64 `json:"randState"`

	log *zap.Logger
}

// New returns a State with the default rules profile and mode topology.
func New(log *zap.Logger, seed uint64) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{
		Entities:   make([]*Entity, 0, 64),
		Templates:  make(map[string]*Template),
		Systems:    make([]*System, 0, 16),
		Collisions: make([]*CollisionHandler, 0, 8),
		Events:     make(map[string][]Action),
		Rules:      defaultRules(),
		Screens:    make(map[string]map[string]any),
		Modes:      defaultModes(),
		Seed:       seed,
		RandState:  seed,
		log:        log,
	}
}

// SetLogger replaces the state's logger. Loading a snapshot keeps the
// previous logger; this exists for wiring after manual construction.
func (s *State) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	s.log = log
}

// randFloat advances the serialized splitmix64 stream. Backing for
// Math.random inside expressions.
func (s *State) randFloat() float64 {
	s.RandState += 0x9e3779b97f4a7c15
	z := s.RandState
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(z>>11) / float64(1<<53)
}

func (s *State) allocID() string {
	s.NextID++
	return fmt.Sprintf("entity_%d", s.NextID)
}
