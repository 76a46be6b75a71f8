package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gravitySystem() System {
	return System{
		Name:  "gravity",
		Phase: PhasePhysics,
		Query: Query{Has: []string{"Velocity"}},
		Actions: []Action{{
			Type:   "set",
			Target: "entity.Velocity.y",
			Value:  "entity.Velocity.y + rules.physics.gravity * dt",
		}},
	}
}

func TestDefineSystemValidation(t *testing.T) {
	s := newTestState()
	assert.Error(t, s.DefineSystem(System{Name: "x", Phase: "render"}))
	assert.Error(t, s.DefineSystem(System{Phase: PhaseUpdate}))
	assert.NoError(t, s.DefineSystem(gravitySystem()))
}

func TestSystemsSortByPhaseStable(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.DefineSystem(System{Name: "c1", Phase: PhaseCollision}))
	require.NoError(t, s.DefineSystem(System{Name: "u1", Phase: PhaseUpdate}))
	require.NoError(t, s.DefineSystem(System{Name: "i1", Phase: PhaseInput}))
	require.NoError(t, s.DefineSystem(System{Name: "u2", Phase: PhaseUpdate}))

	var names []string
	for _, sys := range s.Systems {
		names = append(names, sys.Name)
	}
	assert.Equal(t, []string{"i1", "u1", "u2", "c1"}, names)

	// Redefining by name replaces, keeping one entry.
	require.NoError(t, s.DefineSystem(System{Name: "u1", Phase: PhaseUpdate,
		Actions: []Action{{Type: "set", Target: "rules.marker", Value: 1}}}))
	assert.Len(t, s.Systems, 4)

	assert.True(t, s.RemoveSystem("c1"))
	assert.False(t, s.RemoveSystem("c1"))
}

func TestRunSystemsAppliesActions(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.DefineSystem(gravitySystem()))
	s.CreateEntity(EntitySpec{ID: "p", Components: map[string]any{
		"Velocity": map[string]any{"x": 0, "y": 0},
	}})

	r := s.RunSystems(1.0/60.0, nil)
	assert.Equal(t, 1, r.SystemsRun)
	vel := s.GetEntity("p").Components["Velocity"].(map[string]any)
	assert.InDelta(t, 980.0/60.0, vel["y"], 1e-9)
}

func collide(t *testing.T, s *State) {
	t.Helper()
	s.DefineCollision(CollisionHandler{
		Between: [2]string{"player", "coin"},
		Emit:    "coin.collected",
		Data:    map[string]any{"player": "a", "coin": "b", "sound": "ping"},
	})
}

func addCollider(s *State, id, layer string, x, y, w, h float64) *Entity {
	return s.CreateEntity(EntitySpec{ID: id, Components: map[string]any{
		"Position": map[string]any{"x": x, "y": y},
		"Collider": map[string]any{"width": w, "height": h, "layer": layer},
	}})
}

func TestDetectCollisions(t *testing.T) {
	s := newTestState()
	collide(t, s)
	addCollider(s, "p", "player", 0, 0, 10, 10)
	addCollider(s, "c", "coin", 5, 5, 8, 8)

	r := s.DetectCollisions()
	require.Equal(t, 1, r.Collisions)
	require.Len(t, r.Events, 1)
	ev := r.Events[0]
	assert.Equal(t, "coin.collected", ev.Name)
	assert.Equal(t, "p", ev.Data["player"].(*Entity).ID)
	assert.Equal(t, "c", ev.Data["coin"].(*Entity).ID)
	assert.Equal(t, "ping", ev.Data["sound"])
}

func TestCollisionTouchingEdgesDoNotCollide(t *testing.T) {
	s := newTestState()
	collide(t, s)
	addCollider(s, "p", "player", 0, 0, 10, 10)
	addCollider(s, "c", "coin", 10, 0, 10, 10)
	assert.Equal(t, 0, s.DetectCollisions().Collisions)
}

func TestCollisionRequiresLayer(t *testing.T) {
	s := newTestState()
	collide(t, s)
	addCollider(s, "p", "player", 0, 0, 10, 10)
	// Overlapping, but the collider carries no layer.
	s.CreateEntity(EntitySpec{ID: "c", Components: map[string]any{
		"Position": map[string]any{"x": 0, "y": 0},
		"Collider": map[string]any{"width": 10, "height": 10},
	}})
	assert.Equal(t, 0, s.DetectCollisions().Collisions)
}

func TestCollisionCondition(t *testing.T) {
	s := newTestState()
	s.DefineCollision(CollisionHandler{
		Between:   [2]string{"player", "enemy"},
		Condition: "data.a.Velocity.y > 0",
		Emit:      "enemy.stomped",
	})
	p := addCollider(s, "p", "player", 0, 0, 10, 10)
	addCollider(s, "e", "enemy", 0, 0, 10, 10)

	p.Components["Velocity"] = map[string]any{"y": 0.0}
	assert.Equal(t, 0, s.DetectCollisions().Collisions)

	p.Components["Velocity"] = map[string]any{"y": 5.0}
	assert.Equal(t, 1, s.DetectCollisions().Collisions)
}

func TestDefineCollisionReplacesPerUnorderedPair(t *testing.T) {
	s := newTestState()
	collide(t, s)
	s.DefineCollision(CollisionHandler{Between: [2]string{"coin", "player"}, Emit: "other"})
	require.Len(t, s.Collisions, 1)
	assert.Equal(t, "other", s.Collisions[0].Emit)

	assert.True(t, s.RemoveCollision("player", "coin"))
	assert.False(t, s.RemoveCollision("player", "coin"))
}

func TestEventChaining(t *testing.T) {
	s := newTestState()
	s.DefineEvent("coin.collected", []Action{
		{Type: "add", Target: "rules.scoring.score", Value: "rules.scoring.coinValue"},
		{Type: "emit", Event: "score.changed"},
	})
	s.DefineEvent("score.changed", []Action{
		{Type: "set", Target: "rules.scoring.dirty", Value: true},
	})

	r := s.ProcessEvents([]EmittedEvent{{Name: "coin.collected"}}, 0)
	assert.Equal(t, 2, r.Processed)
	assert.Equal(t, 100.0, s.GetRule("scoring.score"))
	assert.Equal(t, true, s.GetRule("scoring.dirty"))
}

func TestEventCycleTerminates(t *testing.T) {
	s := newTestState()
	s.DefineEvent("loop", []Action{{Type: "emit", Event: "loop"}})
	r := s.ProcessEvents([]EmittedEvent{{Name: "loop"}}, 10)
	assert.Equal(t, 10, r.Processed)
}

func TestTriggerUnhandledEventIsSilent(t *testing.T) {
	s := newTestState()
	r := s.TriggerEvent("nobody.cares", nil)
	assert.False(t, r.Handled)
	assert.Empty(t, r.Error)
}

func TestRemoveEvent(t *testing.T) {
	s := newTestState()
	s.DefineEvent("e", nil)
	assert.True(t, s.RemoveEvent("e"))
	assert.False(t, s.RemoveEvent("e"))
}

func TestRules(t *testing.T) {
	s := newTestState()
	assert.Equal(t, 980.0, s.GetRule("physics.gravity"))
	assert.Nil(t, s.GetRule("physics.nope"))

	require.NoError(t, s.SetRule("physics.gravity", 490))
	assert.Equal(t, 490.0, s.GetRule("physics.gravity"))

	require.NoError(t, s.SetRule("custom.deeply.nested", "v"))
	assert.Equal(t, "v", s.GetRule("custom.deeply.nested"))

	s.ResetRules()
	assert.Equal(t, 980.0, s.GetRule("physics.gravity"))
	assert.Nil(t, s.GetRule("custom.deeply.nested"))
}

func TestModeTransitions(t *testing.T) {
	s := newTestState()
	assert.Equal(t, "title", s.Modes.Current)
	assert.True(t, s.TriggerTransition("start"))
	assert.Equal(t, "intro", s.Modes.Current)
	assert.True(t, s.TriggerTransition("start"))
	assert.Equal(t, "playing", s.Modes.Current)

	assert.False(t, s.TriggerTransition("start"))
	assert.Equal(t, "playing", s.Modes.Current)

	s.DefineTransition("playing", "die", "gameover")
	assert.True(t, s.TriggerTransition("die"))
	assert.Equal(t, "gameover", s.Modes.Current)
}

func TestScreens(t *testing.T) {
	s := newTestState()
	s.DefineScreen("hud", map[string]any{"elements": []any{"score", "lives"}})
	cfg := s.GetScreen("hud")
	require.NotNil(t, cfg)
	assert.Len(t, cfg["elements"], 2)
	assert.Nil(t, s.GetScreen("missing"))
}

func TestStepPipeline(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.DefineSystem(gravitySystem()))
	collide(t, s)
	s.DefineEvent("coin.collected", []Action{
		{Type: "add", Target: "rules.scoring.score", Value: "rules.scoring.coinValue"},
		{Type: "destroy", Target: "data.coin"},
	})

	p := addCollider(s, "p", "player", 0, 0, 10, 10)
	p.Components["Velocity"] = map[string]any{"x": 0.0, "y": 0.0}
	addCollider(s, "c", "coin", 3, 3, 8, 8)

	r := s.Step(1.0/60.0, nil)
	assert.Equal(t, int64(1), r.Frame)
	assert.Equal(t, 1, r.Collisions)
	assert.Equal(t, 1, r.EventsProcessed)
	assert.Equal(t, 100.0, s.GetRule("scoring.score"))
	assert.Nil(t, s.GetEntity("c"), "collected coin must be destroyed")
}

func TestCoinValueRuleChange(t *testing.T) {
	s := newTestState()
	collide(t, s)
	s.DefineEvent("coin.collected", []Action{
		{Type: "add", Target: "rules.scoring.score", Value: "rules.scoring.coinValue"},
		{Type: "destroy", Target: "data.coin"},
	})
	require.NoError(t, s.SetRule("scoring.coinValue", 110))

	addCollider(s, "p", "player", 0, 0, 10, 10)
	addCollider(s, "c", "coin", 0, 0, 8, 8)
	s.Step(1.0/60.0, nil)
	assert.Equal(t, 110.0, s.GetRule("scoring.score"))
}
