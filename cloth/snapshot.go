package cloth

import (
	V "drape.com/drape/vector"
)

//Snapshot is a copy of the particle positions after a completed step. It is
//what other goroutines read, the cloth itself never leaves its owner
type Snapshot struct {
	Frame     uint64
	Positions []V.Vec32
}

//Snapshot copies the current positions, reusing dst when it has capacity
func (c *Cloth) Snapshot(dst []V.Vec32) Snapshot {
	if cap(dst) < c.Count {
		dst = make([]V.Vec32, c.Count)
	}
	dst = dst[:c.Count]
	copy(dst, c.Positions)
	return Snapshot{Frame: c.frame, Positions: dst}
}

//Finite reports whether every particle position is free of NaN and Inf
func (c *Cloth) Finite() bool {
	for i := 0; i < c.Count; i++ {
		if !V.IsFinite(c.Positions[i]) {
			return false
		}
	}
	return true
}

//Stable reports whether no particle moved further than eps since prev
func (c *Cloth) Stable(prev []V.Vec32, eps float32) bool {
	if len(prev) != c.Count {
		return false
	}
	for i := 0; i < c.Count; i++ {
		if V.Distance(c.Positions[i], prev[i]) > eps {
			return false
		}
	}
	return true
}
