package modding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simforge/engine/internal/sandbox"
	"github.com/simforge/engine/internal/sim"
)

func newApplier() (*Applier, *sim.State) {
	state := sim.New(nil, 1)
	return NewApplier(state, nil, nil), state
}

func TestApplyRuleOps(t *testing.T) {
	ap, state := newApplier()
	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{
		{Type: sandbox.OpSetRule, Path: "physics.gravity", Value: 490.0},
		{Type: sandbox.OpSetAbility, Ability: "doubleJump", Active: true},
		{Type: sandbox.OpSetMusic, Name: "overworld"},
		{Type: sandbox.OpSetAudio, Name: "jump", Value: "jump.ogg"},
		{Type: sandbox.OpSetBackgroundTheme, Value: "night"},
		{Type: sandbox.OpSetRenderFilters, Value: []any{"crt"}},
	}})
	assert.Equal(t, 6, res.Applied)
	assert.Empty(t, res.Errors)

	assert.Equal(t, 490.0, state.GetRule("physics.gravity"))
	assert.Equal(t, true, state.GetRule("abilities.doubleJump"))
	assert.Equal(t, "overworld", state.GetRule("presentation.music"))
	assert.Equal(t, "jump.ogg", state.GetRule("presentation.audio.jump"))
	assert.Equal(t, "night", state.GetRule("presentation.backgroundTheme"))
}

func TestApplyIsBestEffort(t *testing.T) {
	ap, state := newApplier()
	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{
		{Type: sandbox.OpSetRule, Path: "a", Value: 1.0},
		{Type: "teleport"},        // unknown
		{Type: sandbox.OpSetRule}, // missing path
		{Type: sandbox.OpSetRule, Path: "b", Value: 2.0},
	}})
	assert.Equal(t, 2, res.Applied)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, 1.0, state.GetRule("a"))
	assert.Equal(t, 2.0, state.GetRule("b"))
}

func TestRemoveEntitiesByKindAndArea(t *testing.T) {
	ap, state := newApplier()
	mk := func(id string, x float64) {
		state.CreateEntity(sim.EntitySpec{ID: id, Tags: []string{"enemy"},
			Components: map[string]any{"Position": map[string]any{"x": x, "y": 10.0}}})
	}
	mk("near", 5)
	mk("far", 500)
	state.CreateEntity(sim.EntitySpec{ID: "coin", Tags: []string{"coin"},
		Components: map[string]any{"Position": map[string]any{"x": 5.0, "y": 10.0}}})

	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpRemoveEntities,
		Filter: map[string]any{
			"kind": "enemy",
			"area": map[string]any{"x": 0.0, "y": 0.0, "width": 100.0, "height": 100.0},
		},
	}}})
	assert.Equal(t, 1, res.Applied)
	assert.Nil(t, state.GetEntity("near"))
	assert.NotNil(t, state.GetEntity("far"), "outside the area")
	assert.NotNil(t, state.GetEntity("coin"), "wrong kind")
}

func TestReloadAssetsBumpsVersion(t *testing.T) {
	ap, state := newApplier()
	op := sandbox.Op{Type: sandbox.OpReloadAssets}
	ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{op, op}})
	assert.Equal(t, 2.0, state.GetRule("presentation.assetsVersion"))
}

func TestSetEntityScript(t *testing.T) {
	ap, state := newApplier()
	state.DefineTemplate("slime", sim.Template{Components: map[string]any{}})

	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpSetEntityScript, Name: "slime", Code: `print("tick")`,
	}}})
	require.Empty(t, res.Errors)
	tpl := state.GetTemplate("slime")
	script := tpl.Components["Script"].(map[string]any)
	assert.Equal(t, `print("tick")`, script["source"])

	// Hostile script text never lands on a template.
	res = ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpSetEntityScript, Name: "slime", Code: `os.execute("id")`,
	}}})
	assert.Len(t, res.Errors, 1)

	res = ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpSetEntityScript, Name: "ghost", Code: `print("x")`,
	}}})
	assert.Len(t, res.Errors, 1)
}

// stubRunner returns canned ops, recording what it was asked to run.
type stubRunner struct {
	calls []string
	ops   []sandbox.Op
	err   error
}

func (s *stubRunner) Exec(ctx context.Context, code string) (*sandbox.ExecResult, error) {
	s.calls = append(s.calls, code)
	if s.err != nil {
		return &sandbox.ExecResult{}, s.err
	}
	return &sandbox.ExecResult{Ops: s.ops}, nil
}

func TestRunScriptOp(t *testing.T) {
	state := sim.New(nil, 1)
	runner := &stubRunner{ops: []sandbox.Op{
		{Type: sandbox.OpSetRule, Path: "scoring.coinValue", Value: 110.0},
	}}
	ap := NewApplier(state, runner, nil)

	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpRunScript, Code: "nested",
	}}})
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, []string{"nested"}, runner.calls)
	assert.Equal(t, 110.0, state.GetRule("scoring.coinValue"))
}

func TestRunScriptDepthLimit(t *testing.T) {
	state := sim.New(nil, 1)
	runner := &stubRunner{ops: []sandbox.Op{{Type: sandbox.OpRunScript, Code: "deeper"}}}
	ap := NewApplier(state, runner, nil)

	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpRunScript, Code: "outer",
	}}})
	assert.Len(t, res.Errors, 1, "nested runScript must hit the depth limit")
	assert.Equal(t, []string{"outer"}, runner.calls)
}

func TestRunScriptWithoutRunner(t *testing.T) {
	ap, _ := newApplier()
	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpRunScript, Code: "anything",
	}}})
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "no script runner")
}

func TestRunScriptRunnerError(t *testing.T) {
	state := sim.New(nil, 1)
	runner := &stubRunner{err: fmt.Errorf("timed out")}
	ap := NewApplier(state, runner, nil)
	res := ap.Apply(context.Background(), Patch{Ops: []sandbox.Op{{
		Type: sandbox.OpRunScript, Code: "x",
	}}})
	assert.Len(t, res.Errors, 1)
}
