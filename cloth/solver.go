package cloth

import (
	V "drape.com/drape/vector"
)

//Step advances the cloth by dt. External displacements, Verlet integration,
//then Config.Iterations relaxation passes. Pinned particles are never touched
func (c *Cloth) Step(dt float32) {
	c.External()
	c.Integrate(dt)
	for i := 0; i < c.Config.Iterations; i++ {
		c.Relax()
	}
	c.frame++
}

//External pushes wind and the centre weight straight into positions. The
//displacement feeds the next integration as velocity through Previous
func (c *Cloth) External() {
	wind := V.Scale(c.Config.WindDirection, c.Config.WindStrength)
	for i := 0; i < c.Count; i++ {
		if !c.Pinned[i] {
			c.Positions[i].Add(wind)
		}
	}

	if !c.Pinned[c.centre] {
		c.Positions[c.centre].AddScaled(c.Config.Weight, c.Config.WeightScale)
	}
}

//Integrate is the position Verlet update, damping stands in for drag and mass
//is not part of the update
func (c *Cloth) Integrate(dt float32) {
	gravity := V.Scale(c.Config.Gravity, dt*dt)
	damping := c.Config.Damping

	for i := 0; i < c.Count; i++ {
		if c.Pinned[i] {
			continue
		}
		p := c.Positions[i]
		next := p
		next.AddScaled(V.Sub(p, c.Previous[i]), damping)
		next.Add(gravity)
		c.Previous[i] = p
		c.Positions[i] = next
	}
}

//Relax runs one Gauss-Seidel pass over the constraints in list order. Each
//correction is visible to the constraints after it in the same pass
func (c *Cloth) Relax() {
	for _, con := range c.constraints {
		a := &c.Positions[con.A]
		b := &c.Positions[con.B]
		delta := V.Sub(*b, *a)
		l := V.Length(delta)
		if l < Epsilon {
			continue
		}

		half := 0.5 * (l - con.Rest) / l
		if !c.Pinned[con.A] {
			a.AddScaled(delta, half)
		}
		if !c.Pinned[con.B] {
			b.AddScaled(delta, -half)
		}
	}
}

//RemoveConstraintsNear cuts every constraint touching one of the given
//particles. Survivors keep their order. The removed constraints come back as
//segments at their current positions so the host can mark the tear
func (c *Cloth) RemoveConstraintsNear(indices ...int) []Segment {
	if len(indices) == 0 || len(c.constraints) == 0 {
		return nil
	}
	cut := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		cut[i] = struct{}{}
	}

	var removed []Segment
	kept := c.constraints[:0]
	for _, con := range c.constraints {
		_, hitA := cut[con.A]
		_, hitB := cut[con.B]
		if hitA || hitB {
			removed = append(removed, Segment{
				A:    con.A,
				B:    con.B,
				From: c.Positions[con.A],
				To:   c.Positions[con.B],
			})
			continue
		}
		kept = append(kept, con)
	}
	c.constraints = kept
	return removed
}

//Reset puts every particle back at rest. Cut constraints stay cut
func (c *Cloth) Reset() {
	copy(c.Positions, c.Original)
	copy(c.Previous, c.Original)
}

//Advance runs as many fixed Config.TimeStep steps as fit into elapsed seconds
//and returns the number taken. The remainder carries over through timer
func (c *Cloth) Advance(timer *Timer, elapsed float64) int {
	n := timer.Advance(elapsed)
	for i := 0; i < n; i++ {
		c.Step(c.Config.TimeStep)
	}
	return n
}
