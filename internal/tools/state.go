package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func (r *Registry) registerStateTools() {
	r.register("step",
		"Advance the simulation by one tick: run systems, detect collisions, process events.",
		[]param{
			{name: "dt", typ: "number", desc: "Tick duration in seconds, default 1/60."},
			{name: "input", typ: "object", desc: "Input snapshot for this tick."},
		},
		func(args map[string]any) (any, error) {
			dt := argFloat(args, "dt", 1.0/60.0)
			return r.state.Step(dt, argMap(args, "input")), nil
		})

	r.register("dump_state",
		"Serialize the complete engine state to canonical JSON.",
		nil,
		func(args map[string]any) (any, error) {
			b, err := r.state.Dump()
			if err != nil {
				return nil, err
			}
			var out map[string]any
			if err := json.Unmarshal(b, &out); err != nil {
				return nil, err
			}
			return out, nil
		})

	r.register("load_state",
		"Replace the engine state from a previously dumped snapshot. All-or-nothing.",
		[]param{
			{name: "state", typ: "object", desc: "A dump_state payload.", required: true},
		},
		func(args map[string]any) (any, error) {
			b, err := json.Marshal(args["state"])
			if err != nil {
				return nil, err
			}
			if err := r.state.Load(b); err != nil {
				return nil, err
			}
			return map[string]any{"frame": r.state.Frame}, nil
		})

	r.register("query_state",
		"Read one dot-path out of the serialized state, e.g. \"rules.physics.gravity\".",
		[]param{
			{name: "path", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			b, err := r.state.Dump()
			if err != nil {
				return nil, err
			}
			var root any
			if err := json.Unmarshal(b, &root); err != nil {
				return nil, err
			}
			v, ok := queryPath(root, argString(args, "path"))
			return map[string]any{"value": v, "found": ok}, nil
		})

	r.register("get_frame", "Current frame counter.", nil,
		func(args map[string]any) (any, error) {
			return map[string]any{"frame": r.state.Frame}, nil
		})

	r.register("get_time", "Accumulated simulation time in seconds.", nil,
		func(args map[string]any) (any, error) {
			return map[string]any{"time": r.state.Time}, nil
		})

	r.register("get_mode", "Current top-level mode.", nil,
		func(args map[string]any) (any, error) {
			return map[string]any{"mode": r.state.Modes.Current}, nil
		})

	r.register("state_digest",
		"xxhash64 of the canonical state dump, for replay verification.",
		nil,
		func(args map[string]any) (any, error) {
			hex, err := r.state.DigestHex()
			if err != nil {
				return nil, err
			}
			return map[string]any{"digest": hex, "frame": r.state.Frame}, nil
		})
}

// queryPath walks dot-separated segments through JSON-shaped data. Numeric
// segments index arrays.
func queryPath(root any, path string) (any, bool) {
	cur := root
	if path == "" {
		return cur, true
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func entityNotFound(id string) error {
	return fmt.Errorf("unknown entity: %s", id)
}
