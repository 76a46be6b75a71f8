package tools

import (
	"fmt"

	"github.com/simforge/engine/internal/sim"
)

func (r *Registry) registerEventTools() {
	r.register("define_event",
		"Bind an action list to an event name, replacing any prior handler.",
		[]param{
			{name: "event", typ: "string", required: true},
			{name: "actions", typ: "array", required: true},
		},
		func(args map[string]any) (any, error) {
			var actions []sim.Action
			if err := decodeInto(args["actions"], &actions); err != nil {
				return nil, fmt.Errorf("decode actions: %w", err)
			}
			name := argString(args, "event")
			r.state.DefineEvent(name, actions)
			return map[string]any{"event": name}, nil
		})

	r.register("remove_event",
		"Delete the handler for an event name.",
		[]param{
			{name: "event", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "event")
			if !r.state.RemoveEvent(name) {
				return nil, fmt.Errorf("unknown event: %s", name)
			}
			return map[string]any{"removed": name}, nil
		})

	r.register("trigger_event",
		"Fire one event with a data bag. Events with no handler are ignored.",
		[]param{
			{name: "event", typ: "string", required: true},
			{name: "data", typ: "object"},
		},
		func(args map[string]any) (any, error) {
			return r.state.TriggerEvent(argString(args, "event"), argMap(args, "data")), nil
		})

	r.register("process_events",
		"Drain an event queue FIFO; handler-emitted events chain onto the same queue.",
		[]param{
			{name: "events", typ: "array", required: true,
				desc: "List of {event, data} entries."},
			{name: "maxIterations", typ: "number",
				desc: "Dequeue bound, default 100."},
		},
		func(args map[string]any) (any, error) {
			var queue []sim.EmittedEvent
			if err := decodeInto(args["events"], &queue); err != nil {
				return nil, fmt.Errorf("decode events: %w", err)
			}
			max := argInt(args, "maxIterations", sim.DefaultMaxEventIterations)
			return r.state.ProcessEvents(queue, max), nil
		})

	r.register("get_rule",
		"Read a dot-path from the rules tree; missing paths yield null.",
		[]param{
			{name: "path", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			return map[string]any{"value": r.state.GetRule(argString(args, "path"))}, nil
		})

	r.register("set_rule",
		"Write a dot-path into the rules tree, creating intermediate objects.",
		[]param{
			{name: "path", typ: "string", required: true},
			{name: "value", required: true},
		},
		func(args map[string]any) (any, error) {
			path := argString(args, "path")
			if err := r.state.SetRule(path, args["value"]); err != nil {
				return nil, err
			}
			return map[string]any{"path": path}, nil
		})

	r.register("reset_rules",
		"Restore the default rules profile.",
		nil,
		func(args map[string]any) (any, error) {
			r.state.ResetRules()
			return map[string]any{"rules": r.state.Rules}, nil
		})

	r.register("set_mode",
		"Set the current mode directly, bypassing the transition table.",
		[]param{
			{name: "mode", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			r.state.SetMode(argString(args, "mode"))
			return map[string]any{"mode": r.state.Modes.Current}, nil
		})

	r.register("define_transition",
		"Wire transitions[from][trigger] = to in the mode machine.",
		[]param{
			{name: "from", typ: "string", required: true},
			{name: "trigger", typ: "string", required: true},
			{name: "to", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			r.state.DefineTransition(
				argString(args, "from"), argString(args, "trigger"), argString(args, "to"))
			return map[string]any{"from": argString(args, "from")}, nil
		})

	r.register("trigger_transition",
		"Follow the transition table from the current mode.",
		[]param{
			{name: "trigger", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			trigger := argString(args, "trigger")
			if !r.state.TriggerTransition(trigger) {
				return nil, fmt.Errorf("no transition for trigger %q from mode %q",
					trigger, r.state.Modes.Current)
			}
			return map[string]any{"mode": r.state.Modes.Current}, nil
		})

	r.register("define_screen",
		"Store an opaque UI screen config under a name.",
		[]param{
			{name: "name", typ: "string", required: true},
			{name: "config", typ: "object", required: true},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "name")
			r.state.DefineScreen(name, argMap(args, "config"))
			return map[string]any{"name": name}, nil
		})

	r.register("get_screen",
		"Fetch a screen config by name.",
		[]param{
			{name: "name", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "name")
			cfg := r.state.GetScreen(name)
			if cfg == nil {
				return nil, fmt.Errorf("unknown screen: %s", name)
			}
			return cfg, nil
		})
}
