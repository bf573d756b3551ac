package geometry

import (
	"testing"

	"drape.com/drape/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//Intuitive Geometry Coordinate Tests
func TestBarycentric(t *testing.T) {
	tri := InitTriangle(vector.Vec32{0, 0, 0}, vector.Vec32{1, 0, 0}, vector.Vec32{0, 1, 0})

	coord, inside := tri.Barycentric(vector.Vec32{0.25, 0.25, 0})
	assert.True(t, inside)
	assert.InDelta(t, 0.25, coord[0], 1e-6)
	assert.InDelta(t, 0.25, coord[1], 1e-6)
	assert.InDelta(t, 0.5, coord[2], 1e-6)

	_, inside = tri.Barycentric(vector.Vec32{1, 1, 0})
	assert.False(t, inside)

	//Edges count as inside
	_, inside = tri.Barycentric(vector.Vec32{0.5, 0, 0})
	assert.True(t, inside)
}

func TestDegenerateTriangle(t *testing.T) {
	tri := InitTriangle(vector.Vec32{1, 1, 1}, vector.Vec32{1, 1, 1}, vector.Vec32{1, 1, 1})

	_, inside := tri.Barycentric(vector.Vec32{1, 1, 1})
	assert.False(t, inside)

	_, hit := tri.Intersect(Ray{Origin: vector.Vec32{1, 1, 5}, Dir: vector.Vec32{0, 0, -1}})
	assert.False(t, hit)
}

func TestIntersect(t *testing.T) {
	tri := InitTriangle(vector.Vec32{-1, -1, 0}, vector.Vec32{1, -1, 0}, vector.Vec32{0, 1, 0})

	k, hit := tri.Intersect(Ray{Origin: vector.Vec32{0, 0, 5}, Dir: vector.Vec32{0, 0, -1}})
	require.True(t, hit)
	assert.InDelta(t, 5.0, k, 1e-5)

	//Behind the origin
	_, hit = tri.Intersect(Ray{Origin: vector.Vec32{0, 0, 5}, Dir: vector.Vec32{0, 0, 1}})
	assert.False(t, hit)

	//Parallel
	_, hit = tri.Intersect(Ray{Origin: vector.Vec32{0, 0, 5}, Dir: vector.Vec32{1, 0, 0}})
	assert.False(t, hit)

	//Misses the triangle but hits the plane
	_, hit = tri.Intersect(Ray{Origin: vector.Vec32{3, 3, 5}, Dir: vector.Vec32{0, 0, -1}})
	assert.False(t, hit)
}

func TestPickNearest(t *testing.T) {
	positions := []vector.Vec32{
		{-1, -1, 0}, {1, -1, 0}, {0, 1, 0},
		{-1, -1, 2}, {1, -1, 2}, {0, 1, 2},
	}
	faces := []Face{{0, 1, 2}, {3, 4, 5}}

	f, k, ok := Pick(positions, faces, Ray{Origin: vector.Vec32{0, 0, 5}, Dir: vector.Vec32{0, 0, -1}})
	require.True(t, ok)
	assert.Equal(t, Face{3, 4, 5}, f)
	assert.InDelta(t, 3.0, k, 1e-5)
	assert.True(t, f.Has(4))
	assert.False(t, f.Has(0))

	_, _, ok = Pick(positions, faces, Ray{Origin: vector.Vec32{10, 10, 5}, Dir: vector.Vec32{0, 0, -1}})
	assert.False(t, ok)
}
