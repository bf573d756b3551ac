package cloth

import (
	"math"
	"testing"

	V "drape.com/drape/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//Still air cloth, gravity only
func calmConfig(sx, sy int) Config {
	cfg := DefaultConfig()
	cfg.SegmentsX = sx
	cfg.SegmentsY = sy
	cfg.WindStrength = 0
	cfg.Weight = V.Vec32{}
	return cfg
}

//Two free particles joined by one constraint
func pair(a, b V.Vec32, rest float32) *Cloth {
	cfg := calmConfig(1, 1)
	return &Cloth{
		Config:      cfg,
		Count:       2,
		Positions:   []V.Vec32{a, b},
		Previous:    []V.Vec32{a, b},
		Original:    []V.Vec32{a, b},
		Masses:      []float32{cfg.Mass, cfg.Mass},
		Pinned:      []bool{false, false},
		constraints: []Constraint{{A: 0, B: 1, Rest: rest}},
	}
}

func TestConstraintCount(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {3, 3}, {20, 20}, {4, 2}, {1, 7}} {
		sx, sy := dims[0], dims[1]
		c, err := New(calmConfig(sx, sy))
		require.NoError(t, err)

		assert.Equal(t, (sx+1)*(sy+1), c.Count)
		assert.Len(t, c.Constraints(), 2*sx*sy+sx+sy, "%dx%d", sx, sy)
		assert.Len(t, c.Faces(), 2*sx*sy)
	}
}

func TestLatticeLayout(t *testing.T) {
	c, err := New(calmConfig(3, 3))
	require.NoError(t, err)

	assert.Equal(t, V.Vec32{-5, -5, 0}, c.Positions[0])
	assert.Equal(t, V.Vec32{5, 5, 0}, c.Positions[c.Index(3, 3)])
	assert.Equal(t, 5, c.Centre())

	//Only the two top corners are pinned
	for i := 0; i < c.Count; i++ {
		want := i == c.Index(0, 3) || i == c.Index(3, 3)
		assert.Equal(t, want, c.Pinned[i], "particle %d", i)
	}

	rest := c.Config.Width / float32(c.Config.SegmentsX)
	seen := make(map[[2]int]bool)
	for _, con := range c.Constraints() {
		assert.Equal(t, rest, con.Rest)
		assert.InDelta(t, rest, V.Distance(c.Positions[con.A], c.Positions[con.B]), 1e-5)

		key := [2]int{con.A, con.B}
		assert.False(t, seen[key], "duplicate constraint %v", key)
		seen[key] = true
	}
}

func TestCustomPins(t *testing.T) {
	cfg := calmConfig(2, 2)
	cfg.Pins = [][2]int{{1, 0}}
	c, err := New(cfg)
	require.NoError(t, err)

	assert.True(t, c.Pinned[c.Index(1, 0)])
	assert.False(t, c.Pinned[c.Index(0, 2)])
	assert.True(t, c.Particle(c.Index(1, 0)).Pinned)
}

func TestInvalidConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"zero segments":     func(c *Config) { c.SegmentsX = 0 },
		"negative segments": func(c *Config) { c.SegmentsY = -2 },
		"zero width":        func(c *Config) { c.Width = 0 },
		"no iterations":     func(c *Config) { c.Iterations = 0 },
		"damping above one": func(c *Config) { c.Damping = 1.5 },
		"zero time step":    func(c *Config) { c.TimeStep = 0 },
		"pin off lattice":   func(c *Config) { c.Pins = [][2]int{{21, 0}} },
		"infinite gravity":  func(c *Config) { c.Gravity = V.Vec32{0, float32(math.Inf(-1)), 0} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			c, err := New(cfg)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStepPreviousPosition(t *testing.T) {
	c, err := New(calmConfig(3, 3))
	require.NoError(t, err)

	for s := 0; s < 5; s++ {
		before := c.Snapshot(nil)
		c.Step(c.Config.TimeStep)
		for i := 0; i < c.Count; i++ {
			if !c.Pinned[i] {
				assert.Equal(t, before.Positions[i], c.Previous[i], "step %d particle %d", s, i)
			}
		}
	}
	assert.Equal(t, uint64(5), c.Frame())
}

func TestStepPreviousIncludesWind(t *testing.T) {
	cfg := calmConfig(3, 3)
	cfg.WindDirection = V.Vec32{1, 0, 0}
	cfg.WindStrength = 0.01
	c, err := New(cfg)
	require.NoError(t, err)

	before := c.Snapshot(nil)
	c.Step(cfg.TimeStep)
	for i := 0; i < c.Count; i++ {
		if !c.Pinned[i] {
			assert.True(t, V.Near(V.Add(before.Positions[i], V.Vec32{0.01, 0, 0}), c.Previous[i], 1e-5))
		}
	}
}

func TestPinnedInvariant(t *testing.T) {
	cfg := calmConfig(6, 4)
	cfg.WindStrength = 0.05
	cfg.Weight = V.Vec32{0, -1, 1}
	c, err := New(cfg)
	require.NoError(t, err)

	pinned := c.Snapshot(nil)
	for s := 0; s < 200; s++ {
		c.Step(cfg.TimeStep)
	}
	for i := 0; i < c.Count; i++ {
		if c.Pinned[i] {
			assert.Equal(t, pinned.Positions[i], c.Positions[i])
			assert.Equal(t, pinned.Positions[i], c.Previous[i])
		}
	}
}

func TestExternalWeightOnCentre(t *testing.T) {
	cfg := calmConfig(3, 3)
	cfg.Weight = V.Vec32{0, -1, 0}
	c, err := New(cfg)
	require.NoError(t, err)

	before := c.Snapshot(nil)
	c.External()
	for i := 0; i < c.Count; i++ {
		if i == c.Centre() {
			assert.True(t, V.Near(V.Vec32{before.Positions[i][0], before.Positions[i][1] - 0.1, 0}, c.Positions[i], 1e-6))
			continue
		}
		assert.Equal(t, before.Positions[i], c.Positions[i])
	}
}

func TestRelaxFixedPoint(t *testing.T) {
	c := pair(V.Vec32{0, 0, 0}, V.Vec32{1, 0, 0}, 1)
	c.Relax()

	assert.Equal(t, V.Vec32{0, 0, 0}, c.Positions[0])
	assert.Equal(t, V.Vec32{1, 0, 0}, c.Positions[1])
}

func TestRelaxConverges(t *testing.T) {
	const rest = 1.5
	c := pair(V.Vec32{0, 0, 0}, V.Vec32{0, 2 * rest, 0}, rest)

	before := V.Distance(c.Positions[0], c.Positions[1])
	c.Relax()
	after := V.Distance(c.Positions[0], c.Positions[1])
	assert.Less(t, after-rest, before-rest)

	for i := 1; i < c.Config.Iterations; i++ {
		c.Relax()
	}
	assert.InDelta(t, rest, V.Distance(c.Positions[0], c.Positions[1]), 1e-5)
}

func TestRelaxPinnedEnd(t *testing.T) {
	c := pair(V.Vec32{0, 0, 0}, V.Vec32{4, 0, 0}, 1)
	c.Pinned[0] = true

	for i := 0; i < 20; i++ {
		c.Relax()
	}
	assert.Equal(t, V.Vec32{0, 0, 0}, c.Positions[0])
	assert.InDelta(t, 1.0, c.Positions[1][0], 1e-4)
}

func TestRelaxCoincidentSkipped(t *testing.T) {
	c := pair(V.Vec32{1, 1, 1}, V.Vec32{1, 1, 1}, 1)
	c.Relax()

	assert.True(t, c.Finite())
	assert.Equal(t, V.Vec32{1, 1, 1}, c.Positions[0])
	assert.Equal(t, V.Vec32{1, 1, 1}, c.Positions[1])
}

func TestRemoveConstraintsNear(t *testing.T) {
	c, err := New(calmConfig(3, 3))
	require.NoError(t, err)

	const target = 5
	referencing := 0
	for _, con := range c.Constraints() {
		if con.Has(target) {
			referencing++
		}
	}
	require.Equal(t, 4, referencing)

	total := len(c.Constraints())
	removed := c.RemoveConstraintsNear(target)

	assert.Len(t, removed, referencing)
	assert.Len(t, c.Constraints(), total-referencing)
	for _, con := range c.Constraints() {
		assert.False(t, con.Has(target))
	}
	for _, seg := range removed {
		assert.True(t, seg.A == target || seg.B == target)
		assert.Equal(t, c.Positions[seg.A], seg.From)
		assert.Equal(t, c.Positions[seg.B], seg.To)
	}

	//Already cut and unknown indices remove nothing
	assert.Empty(t, c.RemoveConstraintsNear(target))
	assert.Empty(t, c.RemoveConstraintsNear(1000))
	assert.Empty(t, c.RemoveConstraintsNear())
	assert.Len(t, c.Constraints(), total-referencing)
}

func TestRemoveConstraintsNearFace(t *testing.T) {
	c, err := New(calmConfig(3, 3))
	require.NoError(t, err)

	f := c.Faces()[0]
	c.RemoveConstraintsNear(f.A, f.B, f.C)
	for _, con := range c.Constraints() {
		assert.False(t, f.Has(con.A) || f.Has(con.B))
	}

	//A torn cloth keeps stepping
	for s := 0; s < 50; s++ {
		c.Step(c.Config.TimeStep)
	}
	assert.True(t, c.Finite())
}

func TestGravityConverges(t *testing.T) {
	c, err := New(calmConfig(3, 3))
	require.NoError(t, err)

	var prev []V.Vec32
	for s := 0; s < 100; s++ {
		prev = c.Snapshot(prev).Positions
		c.Step(c.Config.TimeStep)
		require.True(t, c.Finite(), "step %d", s)
	}
	assert.True(t, c.Stable(prev, 2e-3))

	for s := 0; s < 200; s++ {
		prev = c.Snapshot(prev).Positions
		c.Step(c.Config.TimeStep)
	}
	assert.True(t, c.Finite())
	assert.True(t, c.Stable(prev, 1e-4))
}

func TestDefaultSceneStaysFinite(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	for s := 0; s < 300; s++ {
		c.Step(c.Config.TimeStep)
	}
	assert.True(t, c.Finite())
}

func TestStepDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weight = V.Vec32{0, -0.5, 0.2}
	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)

	for s := 0; s < 30; s++ {
		a.Step(cfg.TimeStep)
		b.Step(cfg.TimeStep)
	}
	assert.Equal(t, a.Positions, b.Positions)
	assert.Equal(t, a.Previous, b.Previous)
}

func TestReset(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	c.RemoveConstraintsNear(c.Centre())
	cut := len(c.Constraints())
	for s := 0; s < 20; s++ {
		c.Step(c.Config.TimeStep)
	}
	c.Reset()

	assert.Equal(t, c.Original, c.Positions)
	assert.Equal(t, c.Original, c.Previous)
	assert.Len(t, c.Constraints(), cut)
}

func TestSnapshotIsCopy(t *testing.T) {
	c, err := New(calmConfig(2, 2))
	require.NoError(t, err)

	snap := c.Snapshot(nil)
	c.Step(c.Config.TimeStep)
	assert.Equal(t, uint64(0), snap.Frame)
	assert.Equal(t, c.Original, snap.Positions)
	assert.NotEqual(t, c.Positions, snap.Positions)
}

func BenchmarkStep(b *testing.B) {
	c, err := New(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Step(c.Config.TimeStep)
	}
}

func TestRetune(t *testing.T) {
	cfg := calmConfig(3, 3)
	c, err := New(cfg)
	require.NoError(t, err)

	next := cfg
	next.WindStrength = 0.2
	next.Gravity = V.Vec32{0, -5, 0}
	require.NoError(t, c.Retune(next))
	assert.Equal(t, float32(0.2), c.Config.WindStrength)

	shape := next
	shape.SegmentsX = 4
	assert.ErrorIs(t, c.Retune(shape), ErrInvalidConfig)

	pins := next
	pins.Pins = [][2]int{{0, 0}}
	assert.ErrorIs(t, c.Retune(pins), ErrInvalidConfig)

	bad := next
	bad.Damping = -1
	assert.ErrorIs(t, c.Retune(bad), ErrInvalidConfig)
	assert.Equal(t, float32(0.2), c.Config.WindStrength)
}

func TestIntegrateVerletFormula(t *testing.T) {
	c := pair(V.Vec32{0, 0, 0}, V.Vec32{1, 0, 0}, 1)
	c.Previous[0] = V.Vec32{-0.1, 0, 0}
	c.Pinned[1] = true

	const dt = float32(0.016)
	c.Integrate(dt)

	//next = p + (p - prev)*damping + g*dt*dt
	g := float32(GRAV * 0.1)
	want := V.Vec32{0.1 * DefaultDamping, g * dt * dt, 0}
	got := c.Positions[0]
	for k := 0; k < 3; k++ {
		assert.InDelta(t, want[k], got[k], 1e-7, "component %d", k)
	}
	assert.InDelta(t, 0.095, got[0], 1e-7)
	assert.InDelta(t, -0.000251136, got[1], 1e-8)
	assert.Equal(t, V.Vec32{0, 0, 0}, c.Previous[0])

	assert.Equal(t, V.Vec32{1, 0, 0}, c.Positions[1])
	assert.Equal(t, V.Vec32{1, 0, 0}, c.Previous[1])

	//A second step carries the new velocity forward
	c.Integrate(dt)
	next := got
	next.AddScaled(got, DefaultDamping) //prev is the origin
	next.Add(V.Vec32{0, g * dt * dt, 0})
	for k := 0; k < 3; k++ {
		assert.InDelta(t, next[k], c.Positions[0][k], 1e-7, "component %d", k)
	}
	assert.Equal(t, got, c.Previous[0])
}
