package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEval(t *testing.T, src string, env *Env) any {
	t.Helper()
	v, err := Evaluate(src, env)
	require.NoError(t, err)
	return v
}

func TestArithmetic(t *testing.T) {
	cases := map[string]any{
		"2 + 3 * 4":         14.0,
		"(2 + 3) * 4":       20.0,
		"10 / 4":            2.5,
		"7 % 3":             1.0,
		"-5 + 2":            -3.0,
		"2 < 3":             true,
		"3 <= 3":            true,
		"2 > 3":             false,
		"1 + 2 === 3":       true,
		"true ? 'a' : 'b'":  "a",
		"false ? 'a' : 'b'": "b",
		"!0":                true,
		"!'x'":              false,
	}
	for src, want := range cases {
		assert.Equal(t, want, mustEval(t, src, nil), src)
	}
}

func TestStringConcat(t *testing.T) {
	assert.Equal(t, "ab", mustEval(t, "'a' + 'b'", nil))
	assert.Equal(t, "score: 10", mustEval(t, "'score: ' + 10", nil))
	assert.Equal(t, "3 pts", mustEval(t, "1 + 2 + ' pts'", nil))
}

func TestEqualityIsStrictForBothFamilies(t *testing.T) {
	// == and === are the same operator here, as are != and !==.
	assert.Equal(t, false, mustEval(t, "1 == '1'", nil))
	assert.Equal(t, false, mustEval(t, "1 === '1'", nil))
	assert.Equal(t, true, mustEval(t, "1 != '1'", nil))
	assert.Equal(t, true, mustEval(t, "'go' == 'go'", nil))
	assert.Equal(t, true, mustEval(t, "null == undefined", nil))
}

func TestLogicalOperatorsReturnOperands(t *testing.T) {
	assert.Equal(t, "x", mustEval(t, "0 || 'x'", nil))
	assert.Equal(t, 0.0, mustEval(t, "0 && 'x'", nil))
	assert.Equal(t, "y", mustEval(t, "'x' && 'y'", nil))
	assert.Equal(t, 5.0, mustEval(t, "5 || 'fallback'", nil))
}

func TestMathCalls(t *testing.T) {
	cases := map[string]any{
		"Math.abs(-5)":      5.0,
		"Math.floor(2.7)":   2.0,
		"Math.ceil(2.1)":    3.0,
		"Math.round(2.5)":   3.0,
		"Math.round(-2.5)":  -2.0,
		"Math.max(1, 7, 3)": 7.0,
		"Math.min(4, 2)":    2.0,
		"Math.pow(2, 10)":   1024.0,
		"Math.sqrt(81)":     9.0,
		"Math.sign(-3)":     -1.0,
		"Math.trunc(-2.7)":  -2.0,
	}
	for src, want := range cases {
		assert.Equal(t, want, mustEval(t, src, nil), src)
	}
}

func TestContextResolution(t *testing.T) {
	env := &Env{
		Entity: map[string]any{
			"Health":   map[string]any{"current": 30.0, "max": 100.0},
			"Position": map[string]any{"x": 5.0, "y": 12.0},
		},
		Data:  map[string]any{"amount": 4.0},
		Rules: map[string]any{"physics": map[string]any{"gravity": 980.0}},
		Input: map[string]any{"jump": true},
		Time:  2.5,
		Dt:    1.0 / 60.0,
	}
	assert.Equal(t, 30.0, mustEval(t, "entity.Health.current", env))
	assert.Equal(t, 980.0, mustEval(t, "rules.physics.gravity", env))
	assert.Equal(t, 4.0, mustEval(t, "data.amount", env))
	assert.Equal(t, true, mustEval(t, "input.jump", env))
	assert.Equal(t, 2.5, mustEval(t, "time", env))
	assert.Equal(t, true, mustEval(t, "entity.Health.current < entity.Health.max", env))

	// Bare identifiers fall back to data, then entity components.
	assert.Equal(t, 4.0, mustEval(t, "amount", env))
	assert.Equal(t, 5.0, mustEval(t, "Position.x", env))
}

func TestMissingLookups(t *testing.T) {
	env := &Env{Data: map[string]any{"bag": map[string]any{}}}

	// A missing key on an existing object is undefined, not an error.
	assert.Nil(t, mustEval(t, "data.bag.missing", env))
	assert.Nil(t, mustEval(t, "nothing", env))

	// Reading through undefined is an error.
	_, err := Evaluate("nothing.at.all", env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot read property")
}

func TestArraysAndLength(t *testing.T) {
	env := &Env{Data: map[string]any{"list": []any{10.0, 20.0, 30.0}}}
	assert.Equal(t, 3.0, mustEval(t, "data.list.length", env))
	assert.Equal(t, 20.0, mustEval(t, "data.list[1]", env))
	assert.Nil(t, mustEval(t, "data.list[9]", env))
	assert.Equal(t, 2.0, mustEval(t, "[1, 2].length", env))
	assert.Equal(t, 5.0, mustEval(t, "'hello'.length", env))
}

func TestObjectInterface(t *testing.T) {
	env := &Env{Data: map[string]any{"a": fakeObject{}}}
	assert.Equal(t, "obj_1", mustEval(t, "data.a.id", env))
	assert.Nil(t, mustEval(t, "data.a.unknown", env))
}

type fakeObject struct{}

func (fakeObject) Member(name string) (any, bool) {
	if name == "id" {
		return "obj_1", true
	}
	return nil, false
}

func TestDeniedExpressions(t *testing.T) {
	denied := []string{
		"window.location",
		"eval('code')",
		"Function('return 1')",
		"constructor",
		"entity.constructor",
		"entity['constructor']",
		"__proto__.polluted",
		"entity.__proto__",
		"globalThis.process",
		"fetch('http://example.com')",
		"require('fs')",
		"document.cookie",
		"process.env",
		"Math.evil(1)",
		"Math['abs'](1)",
		"entity.Health.current(",
	}
	for _, src := range denied {
		assert.Error(t, Validate(src), src)
		assert.False(t, IsValid(src), src)
	}
}

func TestOnlyMathIsCallable(t *testing.T) {
	_, err := Evaluate("data.fn()", &Env{})
	require.Error(t, err)
	_, err = Evaluate("abs(1)", &Env{})
	require.Error(t, err)
}

func TestValidateAcceptsSafeExpressions(t *testing.T) {
	valid := []string{
		"entity.Velocity.y + rules.physics.gravity * dt",
		"input.jump && entity.Grounded.value",
		"data.a.id !== data.b.id",
		"Math.min(entity.Velocity.x, rules.physics.maxVelocity)",
		"time > 10 ? 'late' : 'early'",
	}
	for _, src := range valid {
		assert.NoError(t, Validate(src), src)
	}
}

func TestRandomDeterminism(t *testing.T) {
	// With no Rand source every evaluation draws from a fresh zero-seeded
	// stream, so repeated evaluations agree.
	a := mustEval(t, "Math.random()", nil)
	b := mustEval(t, "Math.random()", nil)
	assert.Equal(t, a, b)

	// An injected source is consumed in order.
	src := NewRandSource(42)
	first := src()
	env := &Env{Rand: NewRandSource(42)}
	assert.Equal(t, first, mustEval(t, "Math.random()", env))

	v, ok := a.(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
}

func TestProgramReuse(t *testing.T) {
	p, err := Compile("entity.Health.current - data.amount")
	require.NoError(t, err)
	assert.Equal(t, "entity.Health.current - data.amount", p.Source())

	envA := &Env{
		Entity: map[string]any{"Health": map[string]any{"current": 50.0}},
		Data:   map[string]any{"amount": 10.0},
	}
	envB := &Env{
		Entity: map[string]any{"Health": map[string]any{"current": 8.0}},
		Data:   map[string]any{"amount": 3.0},
	}
	vA, err := p.Eval(envA)
	require.NoError(t, err)
	vB, err := p.Eval(envB)
	require.NoError(t, err)
	assert.Equal(t, 40.0, vA)
	assert.Equal(t, 5.0, vB)
}

func TestSyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1 + 2", "1 ? 2", "foo..bar", "@x"} {
		assert.Error(t, Validate(src), "%q should not parse", src)
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(""))
	assert.True(t, Truthy(1.0))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(map[string]any{}))
}
