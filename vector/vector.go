package vector

import (
	"fmt"

	"github.com/chewxy/math32"
)

//Vec32 Default Vector Implementation. Free functions are immutable, methods mutate
//the receiver and return it so calls can be chained
type Vec32 [3]float32

func Dot(a Vec32, b Vec32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

//Scale - Scales vector by scalar a
func Scale(v Vec32, a float32) Vec32 {
	return Vec32{v[0] * a, v[1] * a, v[2] * a}
}

func Add(v Vec32, b Vec32) Vec32 {
	return Vec32{v[0] + b[0], v[1] + b[1], v[2] + b[2]}
}

func Sub(v Vec32, b Vec32) Vec32 {
	return Vec32{v[0] - b[0], v[1] - b[1], v[2] - b[2]}
}

//Add - Mutate
func (v *Vec32) Add(b Vec32) *Vec32 {
	v[0] += b[0]
	v[1] += b[1]
	v[2] += b[2]
	return v
}

//AddScaled adds b*s in place without building a temporary
func (v *Vec32) AddScaled(b Vec32, s float32) *Vec32 {
	v[0] += b[0] * s
	v[1] += b[1] * s
	v[2] += b[2] * s
	return v
}

//Cross Product
func Cross(a Vec32, b Vec32) Vec32 {
	return Vec32{a[1]*b[2] - b[1]*a[2],
		a[2]*b[0] - b[2]*a[0],
		a[0]*b[1] - b[0]*a[1]}
}

func Length(a Vec32) float32 {
	return math32.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])
}

//Normalize returns the unit vector of a. The zero vector stays zero
func Normalize(a Vec32) Vec32 {
	l := Length(a)
	if l == 0 {
		return Vec32{}
	}
	return Vec32{a[0] / l, a[1] / l, a[2] / l}
}

func Distance(a Vec32, b Vec32) float32 {
	return Length(Sub(a, b))
}

//Near compares component wise within eps
func Near(v Vec32, a Vec32, eps float32) bool {
	return math32.Abs(v[0]-a[0]) <= eps &&
		math32.Abs(v[1]-a[1]) <= eps &&
		math32.Abs(v[2]-a[2]) <= eps
}

//IsFinite is false when any component is NaN or +-Inf
func IsFinite(v Vec32) bool {
	for i := 0; i < 3; i++ {
		if math32.IsNaN(v[i]) || math32.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

func (a *Vec32) String() string {
	return fmt.Sprintf("[ %f, %f, %f]", a[0], a[1], a[2])
}
