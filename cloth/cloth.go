package cloth

import (
	"errors"
	"fmt"

	G "drape.com/drape/geometry"
	V "drape.com/drape/vector"
	"github.com/chewxy/math32"
)

//Scene defaults of the portfolio cloth. Gravity is scaled down by ten so the
//cloth drifts instead of dropping
const (
	DefaultWidth        = 10.0
	DefaultHeight       = 10.0
	DefaultSegments     = 20
	DefaultMass         = 0.1
	DefaultWindStrength = 0.01
	DefaultWeightScale  = 0.1
	DefaultDamping      = 0.95 //Velocity retention per step
	DefaultIterations   = 10   //Constraint relaxation passes per step
	DefaultTimeStep     = 0.016
	GRAV                = -9.81

	//Constraints shorter than this are skipped for the pass, the correction
	//direction is undefined when two particles coincide
	Epsilon = 1e-6
)

var ErrInvalidConfig = errors.New("invalid cloth config")

//Config describes the cloth lattice and the forces acting on it
type Config struct {
	Width         float32  `toml:"width"`
	Height        float32  `toml:"height"`
	SegmentsX     int      `toml:"segments_x"`
	SegmentsY     int      `toml:"segments_y"`
	Mass          float32  `toml:"mass"`
	Gravity       V.Vec32  `toml:"gravity"`
	WindDirection V.Vec32  `toml:"wind_direction"`
	WindStrength  float32  `toml:"wind_strength"`
	Weight        V.Vec32  `toml:"weight"`       //Point load on the centre particle
	WeightScale   float32  `toml:"weight_scale"` //Multiplier applied to Weight each step
	Damping       float32  `toml:"damping"`
	Iterations    int      `toml:"iterations"`
	TimeStep      float32  `toml:"time_step"`   //Fixed step used by Advance
	MaxSubSteps   int      `toml:"max_substeps"` //Cap on fixed steps per Advance call
	Pins          [][2]int `toml:"pins"`        //Lattice (x, y) coords to pin. Empty pins the top corners
}

//DefaultConfig reproduces the portfolio scene
func DefaultConfig() Config {
	return Config{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		SegmentsX:     DefaultSegments,
		SegmentsY:     DefaultSegments,
		Mass:          DefaultMass,
		Gravity:       V.Vec32{0, GRAV * 0.1, 0},
		WindDirection: V.Vec32{0.01, 0.01, 0.01},
		WindStrength:  DefaultWindStrength,
		Weight:        V.Vec32{0, 0, 0},
		WeightScale:   DefaultWeightScale,
		Damping:       DefaultDamping,
		Iterations:    DefaultIterations,
		TimeStep:      DefaultTimeStep,
		MaxSubSteps:   5,
	}
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

//Validate fails fast on parameters the lattice cannot be built from
func (cfg Config) Validate() error {
	if cfg.SegmentsX <= 0 || cfg.SegmentsY <= 0 {
		return fmt.Errorf("%w: segments must be positive, got %dx%d", ErrInvalidConfig, cfg.SegmentsX, cfg.SegmentsY)
	}
	if !finite(cfg.Width) || !finite(cfg.Height) || cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: size must be positive and finite, got %gx%g", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, cfg.Iterations)
	}
	if !finite(cfg.Damping) || cfg.Damping < 0 || cfg.Damping > 1 {
		return fmt.Errorf("%w: damping must be within [0, 1], got %g", ErrInvalidConfig, cfg.Damping)
	}
	if !finite(cfg.TimeStep) || cfg.TimeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %g", ErrInvalidConfig, cfg.TimeStep)
	}
	if cfg.MaxSubSteps < 0 {
		return fmt.Errorf("%w: max substeps must not be negative, got %d", ErrInvalidConfig, cfg.MaxSubSteps)
	}
	if !finite(cfg.Mass) || !finite(cfg.WindStrength) || !finite(cfg.WeightScale) {
		return fmt.Errorf("%w: mass, wind strength and weight scale must be finite", ErrInvalidConfig)
	}
	for _, v := range []V.Vec32{cfg.Gravity, cfg.WindDirection, cfg.Weight} {
		if !V.IsFinite(v) {
			return fmt.Errorf("%w: force vector %s is not finite", ErrInvalidConfig, v.String())
		}
	}
	for _, p := range cfg.Pins {
		if p[0] < 0 || p[0] > cfg.SegmentsX || p[1] < 0 || p[1] > cfg.SegmentsY {
			return fmt.Errorf("%w: pin (%d, %d) outside %dx%d lattice", ErrInvalidConfig, p[0], p[1], cfg.SegmentsX+1, cfg.SegmentsY+1)
		}
	}
	return nil
}

//Cloth is a Verlet mass spring lattice. Particle state is held in parallel
//slices indexed row major, y*(SegmentsX+1)+x. It is not safe for concurrent
//use, one goroutine owns it and hands out Snapshots
type Cloth struct {
	Config      Config
	Count       int       //Count of particles
	Positions   []V.Vec32 //Particle pos
	Previous    []V.Vec32 //Particle pos last step
	Original    []V.Vec32 //Rest pose
	Masses      []float32
	Pinned      []bool
	constraints []Constraint
	faces       []G.Face
	centre      int
	frame       uint64
}

//New builds the particle lattice and its structural constraints
func New(cfg Config) (*Cloth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sx, sy := cfg.SegmentsX, cfg.SegmentsY
	cols := sx + 1

	c := &Cloth{Config: cfg}
	c.Count = cols * (sy + 1)
	c.Positions = make([]V.Vec32, c.Count)
	c.Previous = make([]V.Vec32, c.Count)
	c.Original = make([]V.Vec32, c.Count)
	c.Masses = make([]float32, c.Count)
	c.Pinned = make([]bool, c.Count)
	c.centre = (sy/2)*cols + sx/2

	for y := 0; y <= sy; y++ {
		for x := 0; x <= sx; x++ {
			i := y*cols + x
			p := V.Vec32{
				float32(x)/float32(sx)*cfg.Width - cfg.Width/2,
				float32(y)/float32(sy)*cfg.Height - cfg.Height/2,
				0,
			}
			c.Positions[i] = p
			c.Previous[i] = p
			c.Original[i] = p
			c.Masses[i] = cfg.Mass
		}
	}

	if len(cfg.Pins) == 0 {
		c.Pinned[sy*cols] = true
		c.Pinned[sy*cols+sx] = true
	}
	for _, p := range cfg.Pins {
		c.Pinned[p[1]*cols+p[0]] = true
	}

	rest := cfg.Width / float32(sx)
	c.constraints = make([]Constraint, 0, 2*sx*sy+sx+sy)
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			i := y*cols + x
			c.constraints = append(c.constraints,
				Constraint{i, i + 1, rest},    //Horizontal
				Constraint{i, i + cols, rest}, //Vertical
			)
		}
	}
	//Top row and right column close the lattice
	for x := 0; x < sx; x++ {
		i := sy*cols + x
		c.constraints = append(c.constraints, Constraint{i, i + 1, rest})
	}
	for y := 0; y < sy; y++ {
		i := y*cols + sx
		c.constraints = append(c.constraints, Constraint{i, i + cols, rest})
	}

	c.faces = make([]G.Face, 0, 2*sx*sy)
	for y := 0; y < sy; y++ {
		for x := 0; x < sx; x++ {
			a := y*cols + x
			b := (y+1)*cols + x
			cc := (y+1)*cols + x + 1
			d := y*cols + x + 1
			c.faces = append(c.faces, G.Face{A: a, B: b, C: d}, G.Face{A: b, B: cc, C: d})
		}
	}

	return c, nil
}

//Index maps lattice coordinates to a particle index
func (c *Cloth) Index(x, y int) int {
	return y*(c.Config.SegmentsX+1) + x
}

//Centre is the particle receiving the weight load
func (c *Cloth) Centre() int {
	return c.centre
}

func (c *Cloth) Particle(i int) Particle {
	return Particle{
		Position: c.Positions[i],
		Previous: c.Previous[i],
		Original: c.Original[i],
		Mass:     c.Masses[i],
		Pinned:   c.Pinned[i],
	}
}

//Constraints returns the live constraint list. Callers must not modify it
func (c *Cloth) Constraints() []Constraint {
	return c.constraints
}

//Faces returns the lattice triangles used for picking and drawing
func (c *Cloth) Faces() []G.Face {
	return c.faces
}

//Frame counts completed steps
func (c *Cloth) Frame() uint64 {
	return c.frame
}

//Retune swaps the force and solver parameters of a running cloth. The lattice
//itself cannot change, size, segment and pin changes are rejected
func (c *Cloth) Retune(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	old := c.Config
	if cfg.Width != old.Width || cfg.Height != old.Height ||
		cfg.SegmentsX != old.SegmentsX || cfg.SegmentsY != old.SegmentsY ||
		!samePins(cfg.Pins, old.Pins) {
		return fmt.Errorf("%w: lattice shape cannot change while running", ErrInvalidConfig)
	}
	c.Config = cfg
	return nil
}

func samePins(a, b [][2]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
