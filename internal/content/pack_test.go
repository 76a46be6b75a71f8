package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simforge/engine/internal/sim"
)

const miniPack = `
name: mini-platformer
rules:
  physics:
    gravity: 600
  scoring:
    coinValue: 110
mode: playing
transitions:
  - {from: playing, trigger: win, to: complete}
screens:
  hud:
    elements: [score, lives]
templates:
  player:
    tags: [player]
    components:
      Position: {x: 0, y: 0}
      Velocity: {x: 0, y: 0}
      Collider: {width: 10, height: 10, layer: player}
  coin:
    tags: [coin]
    components:
      Position: {x: 0, y: 0}
      Collider: {width: 8, height: 8, layer: coin}
systems:
  - name: gravity
    phase: physics
    query: {has: [Velocity]}
    actions:
      - type: set
        target: entity.Velocity.y
        value: "entity.Velocity.y + rules.physics.gravity * dt"
collisions:
  - between: [player, coin]
    emit: coin.collected
    data: {coin: b}
events:
  coin.collected:
    - {type: add, target: rules.scoring.score, value: rules.scoring.coinValue}
    - {type: destroy, target: data.coin}
spawn:
  - {template: player, id: p1}
  - {template: coin, at: {x: 3, y: 3}}
`

func TestParseAndApply(t *testing.T) {
	pack, err := Parse([]byte(miniPack))
	require.NoError(t, err)
	assert.Equal(t, "mini-platformer", pack.Name)

	s := sim.New(nil, 1)
	require.NoError(t, pack.Apply(s))

	// Rules overlay: the pack's leaves land, defaults survive.
	assert.Equal(t, 600.0, s.GetRule("physics.gravity"))
	assert.Equal(t, 0.85, s.GetRule("physics.friction"))
	assert.Equal(t, 110.0, s.GetRule("scoring.coinValue"))

	assert.Equal(t, "playing", s.Modes.Current)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, "p1", s.Entities[0].ID)
	require.Len(t, s.Systems, 1)
	require.Len(t, s.Collisions, 1)
	assert.NotNil(t, s.GetScreen("hud"))

	// The loaded game actually plays: the player collects the coin.
	s.Step(1.0/60.0, nil)
	assert.Equal(t, 110.0, s.GetRule("scoring.score"))
	assert.Len(t, s.Entities, 1)
}

func TestApplyIsDeterministic(t *testing.T) {
	pack, err := Parse([]byte(miniPack))
	require.NoError(t, err)

	digest := func() string {
		s := sim.New(nil, 1)
		require.NoError(t, pack.Apply(s))
		for i := 0; i < 30; i++ {
			s.Step(1.0/60.0, nil)
		}
		d, err := s.DigestHex()
		require.NoError(t, err)
		return d
	}
	assert.Equal(t, digest(), digest())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(miniPack), 0o644))
	pack, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, pack.Templates, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidationRejectsBadPacks(t *testing.T) {
	cases := map[string]string{
		"unnamed system": `
systems:
  - phase: update
    actions: []
`,
		"denied expression": `
systems:
  - name: evil
    phase: update
    actions:
      - {type: set, target: rules.x, value: "fetch('http://x')"}
`,
		"bad collision pair": `
collisions:
  - between: [player]
    emit: hit
`,
		"collision without emit": `
collisions:
  - between: [a, b]
`,
		"bad collision condition": `
collisions:
  - between: [a, b]
    emit: hit
    condition: "window.location"
`,
		"spawn of unknown template": `
spawn:
  - {template: ghost}
`,
		"bad event expression": `
events:
  boom:
    - {type: when, condition: "eval('x')", then: []}
`,
		"not yaml": `{{{`,
	}
	for name, src := range cases {
		_, err := Parse([]byte(src))
		assert.Error(t, err, name)
	}
}

func TestBadPhaseFailsOnApply(t *testing.T) {
	pack, err := Parse([]byte(`
systems:
  - name: draw
    phase: render
    actions: []
`))
	require.NoError(t, err)
	s := sim.New(nil, 1)
	assert.Error(t, pack.Apply(s))
}
