package tools

import (
	"fmt"

	"github.com/simforge/engine/internal/sim"
)

func (r *Registry) registerEntityTools() {
	r.register("spawn_entity",
		"Instantiate a template, optionally overriding id, position and tags.",
		[]param{
			{name: "template", typ: "string", required: true},
			{name: "at", typ: "object", desc: "{x, y} landing on the Position component."},
			{name: "id", typ: "string"},
			{name: "tags", typ: "array"},
		},
		func(args map[string]any) (any, error) {
			ov := &sim.SpawnOverrides{
				ID:   argString(args, "id"),
				Tags: argStrings(args, "tags"),
			}
			if at := argMap(args, "at"); at != nil {
				ov.At = &sim.Vec2{
					X: argFloat(at, "x", 0),
					Y: argFloat(at, "y", 0),
				}
			}
			e, err := r.state.SpawnEntity(argString(args, "template"), ov)
			if err != nil {
				return nil, err
			}
			return e, nil
		})

	r.register("create_entity",
		"Create an ad-hoc entity without a template.",
		[]param{
			{name: "id", typ: "string"},
			{name: "tags", typ: "array"},
			{name: "components", typ: "object"},
		},
		func(args map[string]any) (any, error) {
			e := r.state.CreateEntity(sim.EntitySpec{
				ID:         argString(args, "id"),
				Tags:       argStrings(args, "tags"),
				Components: argMap(args, "components"),
			})
			return e, nil
		})

	r.register("remove_entity",
		"Delete an entity by id.",
		[]param{
			{name: "id", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			id := argString(args, "id")
			if !r.state.RemoveEntity(id) {
				return nil, entityNotFound(id)
			}
			return map[string]any{"removed": id}, nil
		})

	r.register("get_entity",
		"Fetch an entity by id.",
		[]param{
			{name: "id", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			id := argString(args, "id")
			e := r.state.GetEntity(id)
			if e == nil {
				return nil, entityNotFound(id)
			}
			return e, nil
		})

	r.register("get_entities",
		"List entities matching a query: tag membership plus component presence/absence.",
		[]param{
			{name: "tag", typ: "string"},
			{name: "has", typ: "array", desc: "Component names that must be present."},
			{name: "not", typ: "array", desc: "Component names that must be absent."},
		},
		func(args map[string]any) (any, error) {
			list := r.state.GetEntities(sim.Query{
				Tag: argString(args, "tag"),
				Has: argStrings(args, "has"),
				Not: argStrings(args, "not"),
			})
			return map[string]any{"entities": list, "count": len(list)}, nil
		})

	r.register("set_component",
		"Replace one component wholesale.",
		[]param{
			{name: "id", typ: "string", required: true},
			{name: "component", typ: "string", required: true},
			{name: "data", required: true},
		},
		func(args map[string]any) (any, error) {
			id := argString(args, "id")
			if !r.state.SetComponent(id, argString(args, "component"), args["data"]) {
				return nil, entityNotFound(id)
			}
			return map[string]any{"id": id}, nil
		})

	r.register("update_component",
		"Write one dot-path inside a component, creating intermediate objects.",
		[]param{
			{name: "id", typ: "string", required: true},
			{name: "component", typ: "string", required: true},
			{name: "path", typ: "string", required: true},
			{name: "value", required: true},
		},
		func(args map[string]any) (any, error) {
			id := argString(args, "id")
			ok := r.state.UpdateComponent(id,
				argString(args, "component"), argString(args, "path"), args["value"])
			if !ok {
				if r.state.GetEntity(id) == nil {
					return nil, entityNotFound(id)
				}
				return nil, fmt.Errorf("cannot write path %q in component %s",
					argString(args, "path"), argString(args, "component"))
			}
			return map[string]any{"id": id}, nil
		})

	r.register("remove_component",
		"Drop one component from an entity.",
		[]param{
			{name: "id", typ: "string", required: true},
			{name: "component", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			id := argString(args, "id")
			component := argString(args, "component")
			if !r.state.RemoveComponent(id, component) {
				if r.state.GetEntity(id) == nil {
					return nil, entityNotFound(id)
				}
				return nil, fmt.Errorf("entity %s has no component %s", id, component)
			}
			return map[string]any{"id": id}, nil
		})

	r.register("define_template",
		"Store or replace an entity blueprint.",
		[]param{
			{name: "name", typ: "string", required: true},
			{name: "tags", typ: "array"},
			{name: "components", typ: "object"},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "name")
			r.state.DefineTemplate(name, sim.Template{
				Tags:       argStrings(args, "tags"),
				Components: argMap(args, "components"),
			})
			return map[string]any{"name": name}, nil
		})

	r.register("get_template",
		"Fetch a template by name.",
		[]param{
			{name: "name", typ: "string", required: true},
		},
		func(args map[string]any) (any, error) {
			name := argString(args, "name")
			tpl := r.state.GetTemplate(name)
			if tpl == nil {
				return nil, fmt.Errorf("unknown template: %s", name)
			}
			return tpl, nil
		})
}
