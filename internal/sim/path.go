package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// Dot-path resolution shared by the action executor, component updates and
// the rules tree, so every call site agrees on what a path means. A path
// segment walks map[string]any objects, numeric indices walk []any, and a
// *Entity in the chain resolves "id"/"tags" specially with any other
// segment reaching into its components.

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// getAt resolves segs against root. Missing links resolve to (nil, false);
// dangling references are a lookup miss, never an error.
func getAt(root any, segs []string) (any, bool) {
	cur := root
	for _, seg := range segs {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		case *Entity:
			v, ok := c.Member(seg)
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// setAt writes value at segs under root, creating intermediate objects as
// needed. Fails when an intermediate exists and is not an object.
func setAt(root any, segs []string, value any) error {
	if len(segs) == 0 {
		return fmt.Errorf("empty path")
	}
	cur := root
	for i, seg := range segs[:len(segs)-1] {
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok || next == nil {
				m := make(map[string]any)
				c[seg] = m
				cur = m
				continue
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return fmt.Errorf("bad array index %q", seg)
			}
			cur = c[idx]
		case *Entity:
			next, ok := c.Components[seg]
			if !ok || next == nil {
				m := make(map[string]any)
				c.Components[seg] = m
				cur = m
				continue
			}
			cur = next
		default:
			return fmt.Errorf("path segment %q is not an object", segs[i])
		}
	}

	last := segs[len(segs)-1]
	switch c := cur.(type) {
	case map[string]any:
		c[last] = value
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(c) {
			return fmt.Errorf("bad array index %q", last)
		}
		c[idx] = value
	case *Entity:
		c.Components[last] = value
	default:
		return fmt.Errorf("path %q does not resolve to an object", strings.Join(segs, "."))
	}
	return nil
}

// deleteAt removes the value at segs. Returns false if the path does not
// resolve.
func deleteAt(root any, segs []string) bool {
	if len(segs) == 0 {
		return false
	}
	parent := root
	if len(segs) > 1 {
		var ok bool
		parent, ok = getAt(root, segs[:len(segs)-1])
		if !ok {
			return false
		}
	}
	last := segs[len(segs)-1]
	switch p := parent.(type) {
	case map[string]any:
		if _, ok := p[last]; !ok {
			return false
		}
		delete(p, last)
		return true
	case *Entity:
		if _, ok := p.Components[last]; !ok {
			return false
		}
		delete(p.Components, last)
		return true
	}
	return false
}
