package sim

import (
	"go.uber.org/zap"

	"github.com/simforge/engine/internal/expr"
)

// pairKey returns the unordered layer-pair key used for replace-on-redefine.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// DefineCollision adds a handler. At most one handler exists per unordered
// layer pair: redefining a pair replaces it in place, keeping the position
// order of the other entries.
func (s *State) DefineCollision(h CollisionHandler) {
	key := pairKey(h.Between[0], h.Between[1])
	for i, existing := range s.Collisions {
		if pairKey(existing.Between[0], existing.Between[1]) == key {
			s.Collisions[i] = &h
			return
		}
	}
	s.Collisions = append(s.Collisions, &h)
}

// RemoveCollision deletes the handler for the unordered layer pair.
func (s *State) RemoveCollision(layerA, layerB string) bool {
	key := pairKey(layerA, layerB)
	for i, h := range s.Collisions {
		if pairKey(h.Between[0], h.Between[1]) == key {
			s.Collisions = append(s.Collisions[:i], s.Collisions[i+1:]...)
			return true
		}
	}
	return false
}

// DetectResult reports one collision pass.
type DetectResult struct {
	Collisions int            `json:"collisionsDetected"`
	Events     []EmittedEvent `json:"eventsEmitted,omitempty"`
}

// DetectCollisions buckets entities by their collider's layer string and
// tests AABB overlap for each handler's layer pair. Entities whose collider
// has no layer are excluded from all checks by design: pairing is
// layer-name driven, not tag driven.
func (s *State) DetectCollisions() DetectResult {
	buckets := make(map[string][]*Entity)
	for _, e := range s.Entities {
		col, ok := e.Components["Collider"].(map[string]any)
		if !ok {
			continue
		}
		layer, ok := col["layer"].(string)
		if !ok || layer == "" {
			continue
		}
		buckets[layer] = append(buckets[layer], e)
	}

	out := DetectResult{}
	for _, h := range s.Collisions {
		listA := buckets[h.Between[0]]
		listB := buckets[h.Between[1]]
		for _, a := range listA {
			for _, b := range listB {
				if a == b {
					continue
				}
				if !overlaps(a, b) {
					continue
				}
				if h.Condition != "" {
					env := &expr.Env{
						Entity: a.Components,
						Data:   map[string]any{"a": a, "b": b},
						Rules:  s.Rules,
						Time:   s.Time,
						Rand:   s.randFloat,
					}
					v, err := expr.Evaluate(h.Condition, env)
					if err != nil {
						s.log.Debug("collision condition failed",
							zap.String("emit", h.Emit), zap.Error(err))
						continue
					}
					if !expr.Truthy(v) {
						continue
					}
				}
				out.Collisions++
				out.Events = append(out.Events, EmittedEvent{
					Name: h.Emit,
					Data: collisionPayload(h.Data, a, b),
				})
			}
		}
	}
	return out
}

// collisionPayload copies the handler's static data map, substituting the
// literal strings "a" and "b" with the matched entities. A convention, not
// a template engine.
func collisionPayload(data map[string]any, a, b *Entity) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch v {
		case "a":
			out[k] = a
		case "b":
			out[k] = b
		default:
			out[k] = cloneValue(v)
		}
	}
	return out
}

// overlaps is the strict AABB test; touching edges do not collide.
func overlaps(a, b *Entity) bool {
	ax, ay, aw, ah, ok := box(a)
	if !ok {
		return false
	}
	bx, by, bw, bh, ok := box(b)
	if !ok {
		return false
	}
	return ax < bx+bw && ax+aw > bx && ay < by+bh && ay+ah > by
}

func box(e *Entity) (x, y, w, h float64, ok bool) {
	pos, okP := e.Components["Position"].(map[string]any)
	col, okC := e.Components["Collider"].(map[string]any)
	if !okP || !okC {
		return 0, 0, 0, 0, false
	}
	x = asFloat(pos["x"]) + asFloat(col["offsetX"])
	y = asFloat(pos["y"]) + asFloat(col["offsetY"])
	w = asFloat(col["width"])
	h = asFloat(col["height"])
	return x, y, w, h, true
}
