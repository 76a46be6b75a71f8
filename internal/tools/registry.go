// Package tools exposes every engine capability as a named operation with
// declared parameters. This is the sole surface any external controller —
// test harness, terminal UI, or AI agent — may use; nothing bypasses it to
// reach engine internals.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/simforge/engine/internal/modding"
	"github.com/simforge/engine/internal/sandbox"
	"github.com/simforge/engine/internal/sim"
)

// Result is the uniform tool response. Failures are data, never exceptions:
// the engine stays in its last valid state and the caller corrects and
// retries.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// ToolDesc is one catalog entry.
type ToolDesc struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type handlerFunc func(args map[string]any) (any, error)

type tool struct {
	desc     ToolDesc
	required []string
	schema   *jsonschema.Schema
	handler  handlerFunc
}

// Registry holds the tool catalog bound to one engine state.
type Registry struct {
	state   *sim.State
	host    *sandbox.Host
	applier *modding.Applier
	log     *zap.Logger
	tools   map[string]*tool
	order   []string
}

// NewRegistry builds the full catalog. host may be nil when sandboxed
// scripting is disabled; the script tools then report an error per call.
func NewRegistry(state *sim.State, host *sandbox.Host, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		state: state,
		host:  host,
		log:   log,
		tools: make(map[string]*tool),
	}
	// A nil *Host must become a nil interface, or the applier's runner
	// check would pass and then call through a nil receiver.
	var runner modding.ScriptRunner
	if host != nil {
		runner = host
	}
	r.applier = modding.NewApplier(state, runner, log)
	r.registerStateTools()
	r.registerEntityTools()
	r.registerBehaviorTools()
	r.registerEventTools()
	r.registerScriptTools()
	return r
}

// param declares one tool parameter for the generated JSON Schema.
type param struct {
	name     string
	typ      string // JSON Schema type; empty means any
	desc     string
	required bool
}

func (r *Registry) register(name, description string, params []param, h handlerFunc) {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]any{}
		if p.typ != "" {
			prop["type"] = p.typ
		}
		if p.desc != "" {
			prop["description"] = p.desc
		}
		props[p.name] = prop
		if p.required {
			required = append(required, p.name)
		}
	}
	schemaDoc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		panic(fmt.Sprintf("tool %s: marshal schema: %v", name, err))
	}
	schema := jsonschema.MustCompileString(name+".schema.json", string(raw))

	r.tools[name] = &tool{
		desc:     ToolDesc{Name: name, Description: description, Parameters: raw},
		required: required,
		schema:   schema,
		handler:  h,
	}
	r.order = append(r.order, name)
}

// Tools returns the discoverable catalog in registration order.
func (r *Registry) Tools() []ToolDesc {
	out := make([]ToolDesc, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].desc)
	}
	return out
}

// Call dispatches one tool invocation. Required-argument validation runs
// before dispatch; unknown names and handler panics both come back as
// failed results, never as exceptions visible to the caller.
func (r *Registry) Call(name string, args map[string]any) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("tool handler panicked",
				zap.String("tool", name), zap.Any("panic", p))
			res = failure("%v", p)
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return failure("Unknown tool: %s", name)
	}
	args = toJSONShape(args)
	for _, req := range t.required {
		if _, ok := args[req]; !ok {
			return failure("Missing required field: %s", req)
		}
	}
	if err := t.schema.Validate(map[string]any(args)); err != nil {
		return failure("Invalid arguments: %v", err)
	}
	data, err := t.handler(args)
	if err != nil {
		return failure("%v", err)
	}
	return Result{Success: true, Data: jsonValue(data)}
}

// jsonValue canonicalizes handler output the same way arguments come in, so
// callers always see plain JSON shapes rather than internal Go types.
func jsonValue(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// toJSONShape canonicalizes arguments through a JSON round trip so handlers
// and schema validation always see float64/map[string]any/[]any values,
// no matter whether the caller was a wire decoder or Go test code.
func toJSONShape(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// decodeInto moves a JSON-shaped value into a typed struct.
func decodeInto(v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argFloat(args map[string]any, key string, def float64) float64 {
	if f, ok := args[key].(float64); ok {
		return f
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return def
}

func argMap(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}

func argStrings(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
