package sim

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/simforge/engine/internal/expr"
)

// Action kinds. The instruction set is closed on purpose: actions are data,
// never code, and the executor is the only thing that interprets them.
const (
	ActionSet     = "set"
	ActionAdd     = "add"
	ActionRemove  = "remove"
	ActionSpawn   = "spawn"
	ActionDestroy = "destroy"
	ActionEmit    = "emit"
	ActionWhen    = "when"
	ActionForEach = "forEach"
	ActionSetMode = "setMode"
)

// Action is one structured mutation instruction. String Value/At/Condition
// fields hold expressions; everything else is literal data.
type Action struct {
	Type      string         `json:"type"`
	Target    string         `json:"target,omitempty"`
	Value     any            `json:"value,omitempty"`
	Condition string         `json:"condition,omitempty"`
	Template  string         `json:"template,omitempty"`
	At        string         `json:"at,omitempty"`
	Event     string         `json:"event,omitempty"`
	Mode      string         `json:"mode,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Query     *Query         `json:"query,omitempty"`
	Then      []Action       `json:"then,omitempty"`
	Else      []Action       `json:"else,omitempty"`
	Do        []Action       `json:"do,omitempty"`
}

// EmittedEvent is the emit side channel: a name plus the data bag it was
// emitted with.
type EmittedEvent struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data,omitempty"`
}

// ActionResult reports one action (or action list) execution.
type ActionResult struct {
	Success bool           `json:"success"`
	Events  []EmittedEvent `json:"eventsEmitted,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func actionFailure(format string, args ...any) ActionResult {
	return ActionResult{Error: fmt.Sprintf(format, args...)}
}

// ActionCtx carries the per-invocation bindings actions execute against.
// Entity is the current entity's components; Data the mutable data bag
// (Data["entity"] holds the full entity when one is bound).
type ActionCtx struct {
	Entity map[string]any
	Data   map[string]any
	Input  map[string]any
	Dt     float64
}

func (s *State) exprEnv(ctx *ActionCtx) *expr.Env {
	return &expr.Env{
		Entity: ctx.Entity,
		Data:   ctx.Data,
		Rules:  s.Rules,
		Input:  ctx.Input,
		Time:   s.Time,
		Dt:     ctx.Dt,
		Rand:   s.randFloat,
	}
}

// EvaluateExpression evaluates one expression with the context bindings and
// the state's rules, time and random stream. Sharing the stream with the
// action executor keeps replays deterministic no matter which surface asked.
func (s *State) EvaluateExpression(src string, ctx *ActionCtx) (any, error) {
	if ctx == nil {
		ctx = &ActionCtx{}
	}
	return expr.Evaluate(src, s.exprEnv(ctx))
}

// evalValue treats string values as expressions and anything else as a
// literal. Literal strings are written as quoted expressions ("'playing'").
func (s *State) evalValue(v any, ctx *ActionCtx) (any, error) {
	if src, ok := v.(string); ok {
		return expr.Evaluate(src, s.exprEnv(ctx))
	}
	return cloneValue(v), nil
}

// ExecuteActions runs the list in order, aggregating emitted events and
// stopping at the first failure.
func (s *State) ExecuteActions(actions []Action, ctx *ActionCtx) ActionResult {
	out := ActionResult{Success: true}
	for _, a := range actions {
		r := s.ExecuteAction(a, ctx)
		out.Events = append(out.Events, r.Events...)
		if !r.Success {
			out.Success = false
			out.Error = r.Error
			return out
		}
	}
	return out
}

// ExecuteAction interprets a single action against the state. Expression
// errors surface as {success:false}, never as panics or Go errors crossing
// the executor boundary.
func (s *State) ExecuteAction(a Action, ctx *ActionCtx) ActionResult {
	if ctx == nil {
		ctx = &ActionCtx{}
	}
	if ctx.Data == nil {
		ctx.Data = make(map[string]any)
	}

	switch a.Type {
	case ActionSet:
		val, err := s.evalValue(a.Value, ctx)
		if err != nil {
			return actionFailure("set %s: %v", a.Target, err)
		}
		if err := s.writeTarget(a.Target, val, ctx); err != nil {
			return actionFailure("set %s: %v", a.Target, err)
		}
		return ActionResult{Success: true}

	case ActionAdd:
		val, err := s.evalValue(a.Value, ctx)
		if err != nil {
			return actionFailure("add %s: %v", a.Target, err)
		}
		root, segs, err := s.resolveTarget(a.Target, ctx)
		if err != nil {
			return actionFailure("add %s: %v", a.Target, err)
		}
		cur, _ := getAt(root, segs)
		next := asFloat(cur) + asFloat(val)
		if err := setAt(root, segs, next); err != nil {
			return actionFailure("add %s: %v", a.Target, err)
		}
		return ActionResult{Success: true}

	case ActionRemove:
		root, segs, err := s.resolveTarget(a.Target, ctx)
		if err != nil {
			return actionFailure("remove %s: %v", a.Target, err)
		}
		deleteAt(root, segs) // removing a missing path is a no-op
		return ActionResult{Success: true}

	case ActionSpawn:
		var ov *SpawnOverrides
		if a.At != "" {
			pos, err := expr.Evaluate(a.At, s.exprEnv(ctx))
			if err != nil {
				return actionFailure("spawn %s: %v", a.Template, err)
			}
			at, ok := pos.(map[string]any)
			if !ok {
				return actionFailure("spawn %s: at did not yield {x, y}", a.Template)
			}
			ov = &SpawnOverrides{At: &Vec2{X: asFloat(at["x"]), Y: asFloat(at["y"])}}
		}
		if _, err := s.SpawnEntity(a.Template, ov); err != nil {
			return actionFailure("spawn: %v", err)
		}
		return ActionResult{Success: true}

	case ActionDestroy:
		id, err := s.resolveEntityID(a.Target, ctx)
		if err != nil {
			return actionFailure("destroy %s: %v", a.Target, err)
		}
		if !s.RemoveEntity(id) {
			// Destroying an already-gone entity is not an error; dangling
			// references resolve lazily.
			s.log.Debug("destroy: entity already gone", zap.String("id", id))
		}
		return ActionResult{Success: true}

	case ActionEmit:
		for k, v := range a.Data {
			ctx.Data[k] = cloneValue(v)
		}
		return ActionResult{
			Success: true,
			Events:  []EmittedEvent{{Name: a.Event, Data: ctx.Data}},
		}

	case ActionWhen:
		cond, err := expr.Evaluate(a.Condition, s.exprEnv(ctx))
		if err != nil {
			return actionFailure("when: %v", err)
		}
		if expr.Truthy(cond) {
			return s.ExecuteActions(a.Then, ctx)
		}
		return s.ExecuteActions(a.Else, ctx)

	case ActionForEach:
		q := Query{}
		if a.Query != nil {
			q = *a.Query
		}
		out := ActionResult{Success: true}
		for _, e := range s.GetEntities(q) {
			sub := &ActionCtx{
				Entity: e.Components,
				Data:   childData(ctx.Data, e),
				Input:  ctx.Input,
				Dt:     ctx.Dt,
			}
			r := s.ExecuteActions(a.Do, sub)
			out.Events = append(out.Events, r.Events...)
			if !r.Success {
				out.Success = false
				out.Error = r.Error
				return out
			}
		}
		return out

	case ActionSetMode:
		// Direct write, bypassing the transition table. TriggerTransition is
		// the validated path.
		s.Modes.Current = a.Mode
		return ActionResult{Success: true}
	}

	return actionFailure("unknown action type: %s", a.Type)
}

func childData(parent map[string]any, e *Entity) map[string]any {
	out := make(map[string]any, len(parent)+1)
	for k, v := range parent {
		out[k] = v
	}
	out["entity"] = e
	return out
}

// resolveTarget maps a target path onto a walkable root plus remaining
// segments. Grammar: "rules.<...>" into the rules tree, "entity.<...>" into
// the bound entity's components, "data.<ref>.<...>" through the data bag
// (entity references included), or "<entityId>.<...>" by direct id.
func (s *State) resolveTarget(target string, ctx *ActionCtx) (any, []string, error) {
	segs := splitPath(target)
	if len(segs) == 0 {
		return nil, nil, fmt.Errorf("empty target")
	}
	switch segs[0] {
	case "rules":
		if len(segs) < 2 {
			return nil, nil, fmt.Errorf("bare rules target")
		}
		return s.Rules, segs[1:], nil
	case "entity":
		if ctx.Entity == nil {
			return nil, nil, fmt.Errorf("no entity bound in context")
		}
		if len(segs) < 2 {
			return nil, nil, fmt.Errorf("bare entity target")
		}
		return ctx.Entity, segs[1:], nil
	case "data":
		if len(segs) < 2 {
			return nil, nil, fmt.Errorf("bare data target")
		}
		return ctx.Data, segs[1:], nil
	}
	e := s.GetEntity(segs[0])
	if e == nil {
		return nil, nil, fmt.Errorf("unknown entity: %s", segs[0])
	}
	if len(segs) < 2 {
		return nil, nil, fmt.Errorf("target %q names an entity, not a path", target)
	}
	return e, segs[1:], nil
}

func (s *State) writeTarget(target string, val any, ctx *ActionCtx) error {
	root, segs, err := s.resolveTarget(target, ctx)
	if err != nil {
		return err
	}
	return setAt(root, segs, val)
}

// resolveEntityID turns a destroy target into an entity id. Supports raw
// ids, "entity" for the bound entity, and "data.<ref>[.id]" indirection.
func (s *State) resolveEntityID(target string, ctx *ActionCtx) (string, error) {
	if target == "entity" {
		if e, ok := ctx.Data["entity"].(*Entity); ok {
			return e.ID, nil
		}
		return "", fmt.Errorf("no entity bound in context")
	}
	if strings.HasPrefix(target, "data.") {
		segs := splitPath(target)
		v, ok := getAt(ctx.Data, segs[1:])
		if !ok {
			return "", fmt.Errorf("reference %q not found", target)
		}
		switch ref := v.(type) {
		case *Entity:
			return ref.ID, nil
		case string:
			return ref, nil
		case map[string]any:
			if id, ok := ref["id"].(string); ok {
				return id, nil
			}
		}
		return "", fmt.Errorf("reference %q is not an entity", target)
	}
	return target, nil
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return float64(x)
	case int64:
		return float64(x)
	}
	return 0
}
