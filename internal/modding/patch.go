// Package modding applies the patch format external mod tooling produces:
// {ops: [...]}. Unlike a single tool call, a patch batch is best-effort by
// contract: per-op errors are collected and the remaining ops still apply.
package modding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/simforge/engine/internal/sandbox"
	"github.com/simforge/engine/internal/sim"
)

// MaxScriptDepth bounds runScript ops spawning further scripts.
const MaxScriptDepth = 2

// Patch is an ordered batch of operations.
type Patch struct {
	Ops []sandbox.Op `json:"ops"`
}

// Result reports a patch application: how many ops applied and the errors
// the rest produced.
type Result struct {
	Applied int      `json:"applied"`
	Errors  []string `json:"errors,omitempty"`
}

// ScriptRunner executes sandboxed script text. Satisfied by *sandbox.Host.
type ScriptRunner interface {
	Exec(ctx context.Context, code string) (*sandbox.ExecResult, error)
}

// Applier applies patches to one engine state.
type Applier struct {
	State   *sim.State
	Scripts ScriptRunner
	Log     *zap.Logger
}

func NewApplier(state *sim.State, scripts ScriptRunner, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{State: state, Scripts: scripts, Log: log}
}

// Apply walks the patch in order. Best-effort: a failing op is recorded and
// skipped, it never aborts the batch.
func (ap *Applier) Apply(ctx context.Context, p Patch) Result {
	return ap.apply(ctx, p, 0)
}

func (ap *Applier) apply(ctx context.Context, p Patch, depth int) Result {
	out := Result{}
	for i, op := range p.Ops {
		if err := ap.applyOp(ctx, op, depth); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("op %d (%s): %v", i, op.Type, err))
			continue
		}
		out.Applied++
	}
	return out
}

func (ap *Applier) applyOp(ctx context.Context, op sandbox.Op, depth int) error {
	switch op.Type {
	case sandbox.OpSetRule:
		if op.Path == "" {
			return fmt.Errorf("missing path")
		}
		return ap.State.SetRule(op.Path, op.Value)

	case sandbox.OpSetAbility:
		if op.Ability == "" {
			return fmt.Errorf("missing ability")
		}
		return ap.State.SetRule("abilities."+op.Ability, op.Active)

	case sandbox.OpRemoveEntities:
		return ap.removeEntities(op.Filter)

	case sandbox.OpSetAudio:
		if op.Name == "" {
			return fmt.Errorf("missing name")
		}
		return ap.State.SetRule("presentation.audio."+op.Name, op.Value)

	case sandbox.OpSetMusic:
		return ap.State.SetRule("presentation.music", op.Name)

	case sandbox.OpSetBackgroundTheme:
		return ap.State.SetRule("presentation.backgroundTheme", op.Value)

	case sandbox.OpSetRenderFilters:
		return ap.State.SetRule("presentation.renderFilters", op.Value)

	case sandbox.OpReloadAssets:
		cur := ap.State.GetRule("presentation.assetsVersion")
		version := float64(0)
		if f, ok := cur.(float64); ok {
			version = f
		}
		return ap.State.SetRule("presentation.assetsVersion", version+1)

	case sandbox.OpSetEntityScript:
		return ap.setEntityScript(op)

	case sandbox.OpRunScript:
		return ap.runScript(ctx, op, depth)
	}
	return fmt.Errorf("unknown operation type")
}

// removeEntities drops entities matching {kind, area?}. Kind matches a tag;
// area is an {x, y, width, height} rectangle tested against Position.
func (ap *Applier) removeEntities(filter map[string]any) error {
	if filter == nil {
		return fmt.Errorf("missing filter")
	}
	kind, _ := filter["kind"].(string)
	if kind == "" {
		return fmt.Errorf("filter missing kind")
	}
	area, hasArea := filter["area"].(map[string]any)

	matched := ap.State.GetEntities(sim.Query{Tag: kind})
	removed := 0
	for _, e := range matched {
		if hasArea && !inArea(e, area) {
			continue
		}
		if ap.State.RemoveEntity(e.ID) {
			removed++
		}
	}
	ap.Log.Debug("removeEntities", zap.String("kind", kind), zap.Int("removed", removed))
	return nil
}

func inArea(e *sim.Entity, area map[string]any) bool {
	pos, ok := e.Components["Position"].(map[string]any)
	if !ok {
		return false
	}
	x, _ := pos["x"].(float64)
	y, _ := pos["y"].(float64)
	ax, _ := area["x"].(float64)
	ay, _ := area["y"].(float64)
	aw, _ := area["width"].(float64)
	ah, _ := area["height"].(float64)
	return x >= ax && x < ax+aw && y >= ay && y < ay+ah
}

// setEntityScript stores validated script text on a template's Script
// component. The engine never runs it; it is content for the behavior
// interpreter on the other side of the renderer boundary.
func (ap *Applier) setEntityScript(op sandbox.Op) error {
	if op.Name == "" {
		return fmt.Errorf("missing template name")
	}
	if err := sandbox.ValidateScript(op.Code); err != nil {
		return err
	}
	tpl := ap.State.GetTemplate(op.Name)
	if tpl == nil {
		return fmt.Errorf("unknown template: %s", op.Name)
	}
	tpl.Components["Script"] = map[string]any{"source": op.Code}
	ap.State.DefineTemplate(op.Name, *tpl)
	return nil
}

// runScript executes nested script text and applies its harvested ops,
// bounded at MaxScriptDepth to stop recursive sandbox spawning.
func (ap *Applier) runScript(ctx context.Context, op sandbox.Op, depth int) error {
	if ap.Scripts == nil {
		return fmt.Errorf("no script runner configured")
	}
	if depth+1 >= MaxScriptDepth {
		return fmt.Errorf("script depth limit reached")
	}
	res, err := ap.Scripts.Exec(ctx, op.Code)
	if err != nil {
		return err
	}
	sub := ap.apply(ctx, Patch{Ops: res.Ops}, depth+1)
	if len(sub.Errors) > 0 {
		return fmt.Errorf("nested script ops: %v", sub.Errors)
	}
	return nil
}
