package geometry

import (
	"fmt"

	Vec "drape.com/drape/vector"
	"github.com/chewxy/math32"
)

const (
	EPSILON = 0.00001
)

//drape geometry library - ray picking against the cloth surface. The cloth is
//rendered as a triangulated plane so picking runs against the same faces the
//viewer draws, in world coordinates with no modelview transform applied

//Face indexes three lattice particles. Winding follows the plane triangulation
//(a, b, d) and (b, c, d) per cell
type Face struct {
	A, B, C int
}

func (f Face) String() string {
	return fmt.Sprintf("face(%d, %d, %d)", f.A, f.B, f.C)
}

//Has reports whether particle i is one of the face vertices
func (f Face) Has(i int) bool {
	return f.A == i || f.B == i || f.C == i
}

type Triangle struct {
	Verts [3]Vec.Vec32
}

//Ray is a picking ray. Dir does not need to be normalized, hit distances are
//reported in multiples of Dir
type Ray struct {
	Origin Vec.Vec32
	Dir    Vec.Vec32
}

func (r Ray) At(t float32) Vec.Vec32 {
	return Vec.Add(r.Origin, Vec.Scale(r.Dir, t))
}

func InitTriangle(a Vec.Vec32, b Vec.Vec32, c Vec.Vec32) Triangle {
	return Triangle{Verts: [3]Vec.Vec32{a, b, c}}
}

//FaceTriangle builds the triangle for face f out of the position buffer
func FaceTriangle(positions []Vec.Vec32, f Face) Triangle {
	return InitTriangle(positions[f.A], positions[f.B], positions[f.C])
}

func (tri *Triangle) Normal() Vec.Vec32 {
	N := Vec.Cross(Vec.Sub(tri.Verts[1], tri.Verts[0]), Vec.Sub(tri.Verts[2], tri.Verts[0]))
	return Vec.Normalize(N)
}

//Barycentric coordinates of p projected into the triangle plane. Returns the
//coordinates and whether p lies inside the triangle (edges included)
func (t *Triangle) Barycentric(p Vec.Vec32) (Vec.Vec32, bool) {
	v0 := Vec.Sub(t.Verts[1], t.Verts[0])
	v1 := Vec.Sub(t.Verts[2], t.Verts[0])
	v2 := Vec.Sub(p, t.Verts[0])
	d00 := Vec.Dot(v0, v0)
	d01 := Vec.Dot(v0, v1)
	d11 := Vec.Dot(v1, v1)
	d20 := Vec.Dot(v2, v0)
	d21 := Vec.Dot(v2, v1)
	denom := d00*d11 - d01*d01

	//Degenerate triangle, collapsed cloth cells end up here
	if math32.Abs(denom) < EPSILON*EPSILON {
		return Vec.Vec32{}, false
	}

	u := (d11*d20 - d01*d21) / denom
	v := (d00*d21 - d01*d20) / denom
	w := 1.0 - v - u
	coord := Vec.Vec32{u, v, w}

	inside := u >= -EPSILON && v >= -EPSILON && w >= -EPSILON
	return coord, inside
}

//Intersect projects the ray onto the triangle plane and tests the hit point with
//barycentric containment. Returns the ray parameter of the hit
func (t *Triangle) Intersect(r Ray) (float32, bool) {
	n := t.Normal()
	nDotRay := Vec.Dot(n, r.Dir)

	//Parallel to the plane or degenerate normal
	if math32.Abs(nDotRay) < EPSILON {
		return 0, false
	}

	d := Vec.Dot(Vec.Sub(t.Verts[0], r.Origin), n)
	k := d / nDotRay
	if k < 0 {
		return 0, false
	}

	if _, inside := t.Barycentric(r.At(k)); !inside {
		return 0, false
	}
	return k, true
}

//Pick returns the face nearest to the ray origin that the ray passes through
func Pick(positions []Vec.Vec32, faces []Face, r Ray) (Face, float32, bool) {
	best := Face{}
	bestT := float32(math32.MaxFloat32)
	found := false

	for _, f := range faces {
		tri := FaceTriangle(positions, f)
		if k, hit := tri.Intersect(r); hit && k < bestT {
			best, bestT, found = f, k, true
		}
	}

	if !found {
		return Face{}, 0, false
	}
	return best, bestT, true
}
