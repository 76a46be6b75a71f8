package tools

import (
	"errors"
	"fmt"

	"github.com/simforge/engine/internal/expr"
	"github.com/simforge/engine/internal/sim"
)

func (r *Registry) registerBehaviorTools() {
	r.register("evaluate_expression",
		"Evaluate one expression against the live state, with optional entity and data bindings.",
		[]param{
			{name: "expression", typ: "string", required: true},
			{name: "context", typ: "object", desc: "{entity: id-or-components, data: {...}}."},
		},
		func(args map[string]any) (any, error) {
			ctx, err := r.exprCtx(argMap(args, "context"))
			if err != nil {
				return nil, err
			}
			v, err := r.state.EvaluateExpression(argString(args, "expression"), ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"value": v}, nil
		})

	r.register("validate_expression",
		"Check an expression for syntax and allowlist violations without running it.",
		[]param{
			{name: "expression", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			if err := expr.Validate(argString(args, "expression")); err != nil {
				return map[string]any{"valid": false, "error": err.Error()}, nil
			}
			return map[string]any{"valid": true}, nil
		})

	r.register("execute_action",
		"Run a single structured action, optionally bound to an entity by id.",
		[]param{
			{name: "action", typ: "object", required: true},
			{name: "entity", typ: "string", desc: "Entity id to bind as the action's context."},
			{name: "data", typ: "object", desc: "Initial data bag for the action."},
		},
		func(args map[string]any) (any, error) {
			var action sim.Action
			if err := decodeInto(args["action"], &action); err != nil {
				return nil, fmt.Errorf("decode action: %w", err)
			}
			ctx, err := r.actionCtx(argString(args, "entity"), argMap(args, "data"))
			if err != nil {
				return nil, err
			}
			res := r.state.ExecuteAction(action, ctx)
			if !res.Success {
				return nil, errors.New(res.Error)
			}
			return res, nil
		})

	r.register("execute_actions",
		"Run an ordered action list; stops at the first failure.",
		[]param{
			{name: "actions", typ: "array", required: true},
			{name: "entity", typ: "string"},
			{name: "data", typ: "object"},
		},
		func(args map[string]any) (any, error) {
			var actions []sim.Action
			if err := decodeInto(args["actions"], &actions); err != nil {
				return nil, fmt.Errorf("decode actions: %w", err)
			}
			ctx, err := r.actionCtx(argString(args, "entity"), argMap(args, "data"))
			if err != nil {
				return nil, err
			}
			res := r.state.ExecuteActions(actions, ctx)
			if !res.Success {
				return nil, errors.New(res.Error)
			}
			return res, nil
		})

	r.register("define_system",
		"Add or replace (by name) a phase-tagged query+actions system.",
		[]param{
			{name: "name", typ: "string", required: true},
			{name: "phase", typ: "string", required: true,
				desc: "One of input, update, physics, collision."},
			{name: "query", typ: "object"},
			{name: "actions", typ: "array", required: true},
		},
		func(args map[string]any) (any, error) {
			var sys sim.System
			if err := decodeInto(args, &sys); err != nil {
				return nil, fmt.Errorf("decode system: %w", err)
			}
			if err := r.state.DefineSystem(sys); err != nil {
				return nil, err
			}
			return map[string]any{"name": sys.Name, "phase": sys.Phase}, nil
		})

	r.register("remove_system",
		"Delete a system by name.",
		[]param{
			{name: "name", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "name")
			if !r.state.RemoveSystem(name) {
				return nil, fmt.Errorf("unknown system: %s", name)
			}
			return map[string]any{"removed": name}, nil
		})

	r.register("run_systems",
		"Run all systems in phase order without advancing frame or time.",
		[]param{
			{name: "dt", typ: "number", desc: "Tick duration in seconds, default 1/60."},
			{name: "input", typ: "object"},
		},
		func(args map[string]any) (any, error) {
			return r.state.RunSystems(argFloat(args, "dt", 1.0/60.0), argMap(args, "input")), nil
		})

	r.register("define_collision",
		"Bind an event to AABB overlap between two collider layers.",
		[]param{
			{name: "between", typ: "array", required: true, desc: "Exactly two layer names."},
			{name: "condition", typ: "string", desc: "Expression gating the emission."},
			{name: "emit", typ: "string", required: true},
			{name: "data", typ: "object", desc: "Event payload; values \"a\"/\"b\" bind the entities."},
		},
		func(args map[string]any) (any, error) {
			layers := argStrings(args, "between")
			if len(layers) != 2 {
				return nil, fmt.Errorf("between must name exactly two layers")
			}
			if cond := argString(args, "condition"); cond != "" {
				if err := expr.Validate(cond); err != nil {
					return nil, err
				}
			}
			r.state.DefineCollision(sim.CollisionHandler{
				Between:   [2]string{layers[0], layers[1]},
				Condition: argString(args, "condition"),
				Emit:      argString(args, "emit"),
				Data:      argMap(args, "data"),
			})
			return map[string]any{"between": layers}, nil
		})

	r.register("remove_collision",
		"Delete the handler for an unordered layer pair.",
		[]param{
			{name: "between", typ: "array", required: true},
		},
		func(args map[string]any) (any, error) {
			layers := argStrings(args, "between")
			if len(layers) != 2 {
				return nil, fmt.Errorf("between must name exactly two layers")
			}
			if !r.state.RemoveCollision(layers[0], layers[1]) {
				return nil, fmt.Errorf("unknown collision pair: %s|%s", layers[0], layers[1])
			}
			return map[string]any{"removed": layers}, nil
		})

	r.register("detect_collisions",
		"Run one collision pass and report emitted events, without processing them.",
		nil,
		func(args map[string]any) (any, error) {
			return r.state.DetectCollisions(), nil
		})
}

// exprCtx builds evaluation bindings from a tool-call context object. The
// entity binding accepts either an id string or an inline component map.
func (r *Registry) exprCtx(ctxArg map[string]any) (*sim.ActionCtx, error) {
	ctx := &sim.ActionCtx{Dt: 1.0 / 60.0}
	if ctxArg == nil {
		return ctx, nil
	}
	ctx.Data = argMap(ctxArg, "data")
	switch ent := ctxArg["entity"].(type) {
	case nil:
	case string:
		e := r.state.GetEntity(ent)
		if e == nil {
			return nil, entityNotFound(ent)
		}
		ctx.Entity = e.Components
		if ctx.Data == nil {
			ctx.Data = map[string]any{}
		}
		ctx.Data["entity"] = e
	case map[string]any:
		ctx.Entity = ent
	default:
		return nil, fmt.Errorf("context entity must be an id or a component map")
	}
	return ctx, nil
}

// actionCtx binds a live entity by id for the execute_action tools.
func (r *Registry) actionCtx(id string, data map[string]any) (*sim.ActionCtx, error) {
	ctx := &sim.ActionCtx{Data: data, Dt: 1.0 / 60.0}
	if ctx.Data == nil {
		ctx.Data = map[string]any{}
	}
	if id != "" {
		e := r.state.GetEntity(id)
		if e == nil {
			return nil, entityNotFound(id)
		}
		ctx.Entity = e.Components
		ctx.Data["entity"] = e
	}
	return ctx, nil
}
