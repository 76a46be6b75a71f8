package sim

import "fmt"

// Vec2 is the {x,y} shape used by spawn position overrides.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpawnOverrides customize a template instantiation.
type SpawnOverrides struct {
	ID   string
	At   *Vec2
	Tags []string
}

// EntitySpec describes an ad-hoc entity for CreateEntity.
type EntitySpec struct {
	ID         string
	Tags       []string
	Components map[string]any
}

// SpawnEntity instantiates a template. The template's tags and components
// are deep-copied; the At override lands on the Position component only when
// the template actually has one. The new entity appends to the end of the
// list, preserving deterministic iteration order.
func (s *State) SpawnEntity(templateName string, ov *SpawnOverrides) (*Entity, error) {
	tpl, ok := s.Templates[templateName]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", templateName)
	}
	e := &Entity{
		Tags:       cloneTags(tpl.Tags),
		Components: cloneComponents(tpl.Components),
	}
	if ov != nil && ov.ID != "" {
		e.ID = ov.ID
	} else {
		e.ID = s.allocID()
	}
	if ov != nil {
		for _, t := range ov.Tags {
			if !e.HasTag(t) {
				e.Tags = append(e.Tags, t)
			}
		}
		if ov.At != nil {
			if pos, ok := e.Components["Position"].(map[string]any); ok {
				pos["x"] = ov.At.X
				pos["y"] = ov.At.Y
			}
		}
	}
	s.Entities = append(s.Entities, e)
	return e, nil
}

// CreateEntity bypasses templates entirely. Ids are allocated from the
// state-owned counter when omitted.
func (s *State) CreateEntity(spec EntitySpec) *Entity {
	e := &Entity{
		ID:         spec.ID,
		Tags:       cloneTags(spec.Tags),
		Components: cloneComponents(spec.Components),
	}
	if e.ID == "" {
		e.ID = s.allocID()
	}
	if e.Components == nil {
		e.Components = make(map[string]any)
	}
	s.Entities = append(s.Entities, e)
	return e
}

// RemoveEntity deletes by id. There is no cascade: references cached
// elsewhere simply stop resolving.
func (s *State) RemoveEntity(id string) bool {
	for i, e := range s.Entities {
		if e.ID == id {
			s.Entities = append(s.Entities[:i], s.Entities[i+1:]...)
			return true
		}
	}
	return false
}

// GetEntity returns the entity with the given id, or nil.
func (s *State) GetEntity(id string) *Entity {
	for _, e := range s.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// GetEntities returns entities matching the query, in insertion order.
func (s *State) GetEntities(q Query) []*Entity {
	out := make([]*Entity, 0, len(s.Entities))
	for _, e := range s.Entities {
		if matches(e, q) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e *Entity, q Query) bool {
	if q.Tag != "" && !e.HasTag(q.Tag) {
		return false
	}
	for _, c := range q.Has {
		if _, ok := e.Components[c]; !ok {
			return false
		}
	}
	for _, c := range q.Not {
		if _, ok := e.Components[c]; ok {
			return false
		}
	}
	return true
}

// SetComponent replaces a component wholesale. Returns false if the entity
// does not exist.
func (s *State) SetComponent(id, component string, data any) bool {
	e := s.GetEntity(id)
	if e == nil {
		return false
	}
	e.Components[component] = cloneValue(data)
	return true
}

// UpdateComponent writes a dot-path inside a component, creating
// intermediate objects as needed. Returns false if the entity is missing or
// the path cannot be written; it never panics.
func (s *State) UpdateComponent(id, component, path string, value any) bool {
	e := s.GetEntity(id)
	if e == nil {
		return false
	}
	comp, ok := e.Components[component]
	if !ok || comp == nil {
		comp = make(map[string]any)
		e.Components[component] = comp
	}
	segs := splitPath(path)
	if len(segs) == 0 {
		e.Components[component] = cloneValue(value)
		return true
	}
	if err := setAt(comp, segs, cloneValue(value)); err != nil {
		return false
	}
	return true
}

// RemoveComponent drops a component. Returns false if entity or component
// is absent.
func (s *State) RemoveComponent(id, component string) bool {
	e := s.GetEntity(id)
	if e == nil {
		return false
	}
	if _, ok := e.Components[component]; !ok {
		return false
	}
	delete(e.Components, component)
	return true
}

// DefineTemplate stores a deep copy of the blueprint. Redefining a name
// replaces it.
func (s *State) DefineTemplate(name string, tpl Template) {
	s.Templates[name] = &Template{
		Tags:       cloneTags(tpl.Tags),
		Components: cloneComponents(tpl.Components),
	}
}

// GetTemplate returns a deep copy so callers can never alias the stored
// blueprint.
func (s *State) GetTemplate(name string) *Template {
	tpl, ok := s.Templates[name]
	if !ok {
		return nil
	}
	return &Template{
		Tags:       cloneTags(tpl.Tags),
		Components: cloneComponents(tpl.Components),
	}
}
