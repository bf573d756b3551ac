package cloth

import (
	V "drape.com/drape/vector"
)

//Particle is a read out of one lattice point. The cloth stores its particles as
//parallel slices so the position buffer can go straight to the vertex buffer
type Particle struct {
	Position V.Vec32 //Current position
	Previous V.Vec32 //Position before the last integration, velocity is implicit
	Original V.Vec32 //Rest pose used by Reset
	Mass     float32 //Stored but not used by the integrator
	Pinned   bool
}

//Constraint keeps particles A and B at Rest distance. A and B index the lattice
type Constraint struct {
	A, B int
	Rest float32
}

//Has reports whether the constraint references particle i
func (c Constraint) Has(i int) bool {
	return c.A == i || c.B == i
}

//Segment is a removed constraint and where its endpoints were when it was cut.
//Hosts draw these as markers
type Segment struct {
	A, B     int
	From, To V.Vec32
}
