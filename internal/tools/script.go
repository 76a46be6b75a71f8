package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simforge/engine/internal/modding"
	"github.com/simforge/engine/internal/sandbox"
)

func (r *Registry) registerScriptTools() {
	r.register("run_script",
		"Execute sandboxed script text and apply the operations it emits. "+
			"Pass code for a single chunk, or entry+modules for a module graph.",
		[]param{
			{name: "code", typ: "string", desc: "Plain script text."},
			{name: "entry", typ: "string", desc: "Entry module name."},
			{name: "modules", typ: "object", desc: "Module name to source map."},
		},
		func(args map[string]any) (any, error) {
			if r.host == nil {
				return nil, fmt.Errorf("sandboxed scripting is disabled")
			}
			exec, err := r.execScript(args)
			if err != nil {
				return nil, err
			}
			applied := r.applier.Apply(context.Background(),
				modding.Patch{Ops: exec.Ops})
			r.log.Debug("script ops applied",
				zap.Int("ops", len(exec.Ops)), zap.Int("applied", applied.Applied))
			return map[string]any{
				"ops":     exec.Ops,
				"logs":    exec.Logs,
				"output":  exec.Output,
				"applied": applied.Applied,
				"errors":  applied.Errors,
			}, nil
		})

	r.register("apply_patch",
		"Apply a {ops: [...]} patch batch best-effort; per-op errors are reported, not fatal.",
		[]param{
			{name: "ops", typ: "array", required: true},
		},
		func(args map[string]any) (any, error) {
			var p modding.Patch
			if err := decodeInto(args["ops"], &p.Ops); err != nil {
				return nil, fmt.Errorf("decode ops: %w", err)
			}
			return r.applier.Apply(context.Background(), p), nil
		})
}

func (r *Registry) execScript(args map[string]any) (*sandbox.ExecResult, error) {
	if code := argString(args, "code"); code != "" {
		return r.host.Exec(context.Background(), code)
	}
	entry := argString(args, "entry")
	if entry == "" {
		return nil, fmt.Errorf("either code or entry+modules is required")
	}
	raw := argMap(args, "modules")
	modules := make(map[string]string, len(raw))
	for name, src := range raw {
		text, ok := src.(string)
		if !ok {
			return nil, fmt.Errorf("module %s: source must be a string", name)
		}
		modules[name] = text
	}
	return r.host.ExecModule(context.Background(), entry, modules)
}
