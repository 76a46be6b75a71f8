package sandbox

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// instance owns one LState on a dedicated goroutine. All Lua execution for
// the instance happens on that goroutine; the host talks to it exclusively
// through the request channel, so the VM never shares memory with callers.
type instance struct {
	reqCh chan instanceReq
	log   *zap.Logger
}

type instanceReq struct {
	req  Request
	ctx  context.Context
	resp chan Response
}

func newInstance(log *zap.Logger) (*instance, error) {
	L, err := newVM()
	if err != nil {
		return nil, err
	}
	inst := &instance{
		reqCh: make(chan instanceReq, 1),
		log:   log,
	}
	go inst.loop(L)
	return inst, nil
}

func (inst *instance) loop(L *lua.LState) {
	defer L.Close()
	for ir := range inst.reqCh {
		ir.resp <- inst.handle(L, ir)
	}
}

func (inst *instance) close() {
	close(inst.reqCh)
}

func (inst *instance) handle(L *lua.LState, ir instanceReq) Response {
	switch ir.req.Type {
	case ReqInit:
		return Response{Type: RespReady}
	case ReqEval:
		return inst.eval(L, ir)
	case ReqEvalModule:
		return inst.evalModule(L, ir)
	}
	return Response{Type: RespError, ID: ir.req.ID,
		Error: fmt.Sprintf("unknown request type: %s", ir.req.Type)}
}

func (inst *instance) eval(L *lua.LState, ir instanceReq) Response {
	acc := &accumulator{}
	install(L, acc)
	L.SetContext(ir.ctx)
	defer L.RemoveContext()

	output, err := runChunk(L, ir.req.Code, "script")
	if err != nil {
		inst.log.Debug("script failed", zap.Error(err))
		return Response{Type: RespError, ID: ir.req.ID, Error: err.Error(), Logs: acc.logs}
	}
	return Response{Type: RespResult, ID: ir.req.ID, Result: buildResult(acc, output)}
}

func (inst *instance) evalModule(L *lua.LState, ir instanceReq) Response {
	acc := &accumulator{}
	install(L, acc)
	L.SetContext(ir.ctx)
	defer L.RemoveContext()

	loader := &moduleLoader{
		modules: ir.req.Modules,
		cache:   make(map[string]lua.LValue),
		loading: make(map[string]bool),
	}
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		spec := L.CheckString(1)
		v, err := loader.load(L, spec)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		L.Push(v)
		return 1
	}))
	defer L.SetGlobal("require", lua.LNil)

	output, err := loader.run(L, ir.req.Entry)
	if err != nil {
		inst.log.Debug("module script failed", zap.Error(err))
		return Response{Type: RespError, ID: ir.req.ID, Error: err.Error(), Logs: acc.logs}
	}
	return Response{Type: RespResult, ID: ir.req.ID, Result: buildResult(acc, luaToGo(output))}
}

func buildResult(acc *accumulator, output any) *ExecResult {
	res := &ExecResult{
		Ops:    append([]Op(nil), acc.ops...),
		Logs:   acc.logs,
		Output: output,
	}
	res.Ops = append(res.Ops, harvestOutput(output)...)
	return res
}

// runChunk compiles and runs one chunk, returning its first return value
// converted to Go data. The stack is restored no matter how the chunk ends.
func runChunk(L *lua.LState, src, name string) (any, error) {
	v, err := runChunkLV(L, src, name)
	if err != nil {
		return nil, err
	}
	return luaToGo(v), nil
}

// runChunkLV is runChunk keeping the raw Lua return value, used by the
// module loader so exported functions survive between imports.
func runChunkLV(L *lua.LState, src, name string) (lua.LValue, error) {
	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return lua.LNil, fmt.Errorf("compile %s: %w", name, err)
	}
	top := L.GetTop()
	defer L.SetTop(top)
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return lua.LNil, fmt.Errorf("run %s: %w", name, err)
	}
	if L.GetTop() > top {
		return L.Get(top + 1), nil
	}
	return lua.LNil, nil
}

// moduleLoader resolves specifiers against the supplied module map. Relative
// specifiers ("./", "../", "/") resolve against the importing module's path
// with plain segment arithmetic; there is no filesystem underneath.
type moduleLoader struct {
	modules map[string]string
	cache   map[string]lua.LValue
	loading map[string]bool
	stack   []string
}

func (ml *moduleLoader) current() string {
	if len(ml.stack) == 0 {
		return ""
	}
	return ml.stack[len(ml.stack)-1]
}

func (ml *moduleLoader) load(L *lua.LState, spec string) (lua.LValue, error) {
	name := resolveSpecifier(ml.current(), spec)
	if v, ok := ml.cache[name]; ok {
		return v, nil
	}
	if ml.loading[name] {
		return lua.LNil, fmt.Errorf("module cycle through %q", name)
	}
	return ml.run(L, name)
}

func (ml *moduleLoader) run(L *lua.LState, name string) (lua.LValue, error) {
	src, ok := ml.modules[name]
	if !ok {
		return lua.LNil, fmt.Errorf("unknown module: %s", name)
	}
	ml.loading[name] = true
	ml.stack = append(ml.stack, name)
	defer func() {
		delete(ml.loading, name)
		ml.stack = ml.stack[:len(ml.stack)-1]
	}()

	out, err := runChunkLV(L, src, name)
	if err != nil {
		return lua.LNil, err
	}
	ml.cache[name] = out
	return out, nil
}

// resolveSpecifier handles "." and ".." segments against the importing
// module's directory. Bare specifiers are direct map lookups.
func resolveSpecifier(from, spec string) string {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") && !strings.HasPrefix(spec, "/") {
		return spec
	}
	var base []string
	if strings.HasPrefix(spec, "/") {
		spec = strings.TrimPrefix(spec, "/")
	} else if from != "" {
		base = strings.Split(from, "/")
		base = base[:len(base)-1] // drop the importing module's filename
	}
	for _, seg := range strings.Split(spec, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(base) > 0 {
				base = base[:len(base)-1]
			}
		default:
			base = append(base, seg)
		}
	}
	return strings.Join(base, "/")
}
