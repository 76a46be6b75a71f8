package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// accumulator collects everything one execution produces. A fresh one is
// installed per request, so scripts cannot observe each other's output.
type accumulator struct {
	ops  []Op
	logs []string
}

// newVM builds a restricted LState: only base, table, string and math are
// opened, code-loading primitives are stripped, and network-shaped globals
// are pinned to nil so a script cannot even probe for them.
func newVM() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open %s: %w", lib.name, err)
		}
	}

	stripped := []string{
		"dofile", "loadfile", "loadstring", "load", "require",
		"collectgarbage", "getmetatable", "setmetatable", "rawset", "rawget",
		"package", "module", "newproxy", "_G",
	}
	for _, name := range stripped {
		L.SetGlobal(name, lua.LNil)
	}

	networkGlobals := []string{
		"fetch", "XMLHttpRequest", "WebSocket", "EventSource", "socket", "http",
	}
	for _, name := range networkGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

// install wires the per-request surface: the capabilities table, console.log
// and print. Every capability converts its arguments into an Op immediately;
// nothing touches live engine state from in here.
func install(L *lua.LState, acc *accumulator) {
	logFn := L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, lua.LVAsString(L.ToStringMeta(L.Get(i))))
		}
		acc.logs = append(acc.logs, strings.Join(parts, " "))
		return 0
	})
	console := L.NewTable()
	L.SetField(console, "log", logFn)
	L.SetGlobal("console", console)
	L.SetGlobal("print", logFn)

	caps := L.NewTable()
	L.SetField(caps, "emit", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		op, err := opFromValue(luaToGo(tbl))
		if err != nil {
			L.RaiseError("emit: %v", err)
			return 0
		}
		acc.ops = append(acc.ops, op)
		return 0
	}))
	L.SetField(caps, "setRule", L.NewFunction(func(L *lua.LState) int {
		path := L.CheckString(1)
		value := float64(L.CheckNumber(2))
		acc.ops = append(acc.ops, Op{Type: OpSetRule, Path: path, Value: value})
		return 0
	}))
	L.SetField(caps, "setAbility", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		active := lua.LVAsBool(L.Get(2))
		acc.ops = append(acc.ops, Op{Type: OpSetAbility, Ability: name, Active: active})
		return 0
	}))
	L.SetField(caps, "removeEntities", L.NewFunction(func(L *lua.LState) int {
		filter, _ := luaToGo(L.CheckTable(1)).(map[string]any)
		acc.ops = append(acc.ops, Op{Type: OpRemoveEntities, Filter: filter})
		return 0
	}))
	L.SetGlobal("capabilities", caps)
}

// luaToGo converts a sandbox value into JSON-shaped Go data. Tables with a
// contiguous integer prefix become arrays; everything else becomes a
// string-keyed map. Functions and userdata do not cross the boundary.
func luaToGo(lv lua.LValue) any {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(v.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = luaToGo(val)
			}
		})
		return m
	}
	return nil
}

// opFromValue decodes an emitted table into a typed Op.
func opFromValue(v any) (Op, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Op{}, fmt.Errorf("operation must be a table")
	}
	if _, ok := m["type"].(string); !ok {
		return Op{}, fmt.Errorf("operation missing type")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Op{}, err
	}
	var op Op
	if err := json.Unmarshal(b, &op); err != nil {
		return Op{}, err
	}
	return op, nil
}

// harvestOutput pulls additional ops from a script's returned value when it
// has the {ops = {...}} shape, or {default = {ops = {...}}} for module-style
// exports.
func harvestOutput(output any) []Op {
	m, ok := output.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["ops"]
	if !ok {
		if def, okDef := m["default"].(map[string]any); okDef {
			raw = def["ops"]
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []Op
	for _, item := range list {
		op, err := opFromValue(item)
		if err != nil {
			continue
		}
		out = append(out, op)
	}
	return out
}
