package app

import (
	"fmt"

	"drape.com/drape/config"
	G "drape.com/drape/geometry"
	V "drape.com/drape/vector"
	"github.com/go-gl/mathgl/mgl32"
)

//Camera looks at the cloth from +z. Pos and Target move together so the
//view direction never changes while panning
type Camera struct {
	Pos    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
	FOV    float32 //Degrees
	Aspect float32
	Near   float32
	Far    float32
	Speed  float32 //World units per key press
}

func NewCamera(view config.View) *Camera {
	return &Camera{
		Pos:    mgl32.Vec3{0, 0, view.Distance},
		Target: mgl32.Vec3{0, 0, 0},
		Up:     mgl32.Vec3{0, 1, 0},
		FOV:    view.FOV,
		Aspect: float32(view.Width) / float32(view.Height),
		Near:   0.1,
		Far:    1000,
		Speed:  0.25,
	}
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

//MVP is projection * view, the cloth is drawn in world space
func (c *Camera) MVP() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

//Move pans the camera along dir scaled by Speed. z moves towards the target
func (c *Camera) Move(dir V.Vec32) {
	d := mgl32.Vec3{dir[0], dir[1], dir[2]}.Mul(c.Speed)
	c.Pos = c.Pos.Add(d)
	if dir[2] == 0 {
		c.Target = c.Target.Add(d)
	}
}

//Ray turns a cursor position in window pixels into a world space ray.
//Window y grows downwards, GL viewport y grows upwards
func (c *Camera) Ray(x, y float64, width, height int) (G.Ray, error) {
	if width <= 0 || height <= 0 {
		return G.Ray{}, fmt.Errorf("viewport %dx%d is empty", width, height)
	}
	wy := float32(height) - float32(y)
	view, proj := c.View(), c.Projection()

	near, err := mgl32.UnProject(mgl32.Vec3{float32(x), wy, 0}, view, proj, 0, 0, width, height)
	if err != nil {
		return G.Ray{}, fmt.Errorf("unproject near: %w", err)
	}
	far, err := mgl32.UnProject(mgl32.Vec3{float32(x), wy, 1}, view, proj, 0, 0, width, height)
	if err != nil {
		return G.Ray{}, fmt.Errorf("unproject far: %w", err)
	}

	origin := V.Vec32{near[0], near[1], near[2]}
	dir := V.Normalize(V.Sub(V.Vec32{far[0], far[1], far[2]}, origin))
	return G.Ray{Origin: origin, Dir: dir}, nil
}
