package app

//OpenGL windowing calls and buffers
import (
	"fmt"
	"strings"

	C "drape.com/drape/cloth"
	"drape.com/drape/config"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

//Buffer slots
const (
	DSL_PARTICLES = 0 //Particle positions, shared by points and lines
	DSL_CUTS      = 1 //Red cut markers
)

const vertexSRC = `
#version 410 core
layout (location = 0) in vec3 position;
uniform mat4 mvp;
void main() {
	gl_Position = mvp * vec4(position, 1.0);
}
` + "\x00"

const fragSRC = `
#version 410 core
uniform vec4 color;
out vec4 frag;
void main() {
	frag = color;
}
` + "\x00"

var (
	lineColor  = mgl32.Vec4{0.1, 0.1, 0.1, 1}
	pointColor = mgl32.Vec4{0.2, 0.3, 0.8, 1}
	cutColor   = mgl32.Vec4{1, 0, 0, 1}
)

type AppWindow struct {
	Width  int
	Height int
	Name   string
}

//DrapeContext holds the GL program and buffers for one cloth
type DrapeContext struct {
	PrgID     uint32
	VAO       [2]uint32
	VBO       [2]uint32
	EBO       uint32
	MVPLoc    int32
	ColorLoc  int32
	Points    int32 //Particle count
	Edges     int32 //Index count in EBO
	Cuts      int32 //Vertex count in the cut buffer
	PointSize float32
	GLFWindow *glfw.Window
}

//InitGLFW opens a 4.1 core window. Must be called on the main thread
func InitGLFW(a *AppWindow) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(a.Width, a.Height, a.Name, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

//InitOpenGL compiles the shaders and uploads the cloth
func InitOpenGL(cloth *C.Cloth, view config.View) (*DrapeContext, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}

	vtxSHO, err := compileShader(vertexSRC, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	frgSHO, err := compileShader(fragSRC, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vtxSHO)
	gl.AttachShader(prog, frgSHO)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		return nil, fmt.Errorf("GLSL program failed to link: %v", log)
	}
	gl.DeleteShader(vtxSHO)
	gl.DeleteShader(frgSHO)

	dsl := &DrapeContext{
		PrgID:     prog,
		MVPLoc:    gl.GetUniformLocation(prog, gl.Str("mvp\x00")),
		ColorLoc:  gl.GetUniformLocation(prog, gl.Str("color\x00")),
		PointSize: view.PointSize,
	}
	MakeVAO(cloth, dsl)

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	return dsl, nil
}

//MakeVAO allocates the particle, edge and cut buffers. Positions and cuts are
//streamed every frame, edges only after a cut
func MakeVAO(cloth *C.Cloth, dsl *DrapeContext) {
	gl.GenBuffers(2, &dsl.VBO[0])
	gl.GenBuffers(1, &dsl.EBO)
	gl.GenVertexArrays(2, &dsl.VAO[0])

	gl.BindVertexArray(dsl.VAO[DSL_PARTICLES])
	gl.BindBuffer(gl.ARRAY_BUFFER, dsl.VBO[DSL_PARTICLES])
	gl.BufferData(gl.ARRAY_BUFFER, cloth.Count*4*3, gl.Ptr(&cloth.Positions[0][0]), gl.DYNAMIC_DRAW) //float32 (4 bytes)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, dsl.EBO)
	dsl.Points = int32(cloth.Count)

	gl.BindVertexArray(dsl.VAO[DSL_CUTS])
	gl.BindBuffer(gl.ARRAY_BUFFER, dsl.VBO[DSL_CUTS])
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 0, nil)

	gl.BindVertexArray(0)
}

//UploadPositions streams the current particle positions
func (dsl *DrapeContext) UploadPositions(flat []float32) {
	if len(flat) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, dsl.VBO[DSL_PARTICLES])
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(flat)*4, gl.Ptr(flat))
}

//UploadEdges replaces the line index buffer
func (dsl *DrapeContext) UploadEdges(idx []uint32) {
	dsl.Edges = int32(len(idx))
	gl.BindVertexArray(dsl.VAO[DSL_PARTICLES])
	if len(idx) == 0 {
		gl.BindVertexArray(0)
		return
	}
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(idx)*4, gl.Ptr(idx), gl.DYNAMIC_DRAW)
	gl.BindVertexArray(0)
}

//UploadCuts replaces the cut marker lines
func (dsl *DrapeContext) UploadCuts(verts []float32) {
	dsl.Cuts = int32(len(verts) / 3)
	if len(verts) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, dsl.VBO[DSL_CUTS])
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.DYNAMIC_DRAW)
}

//Draw renders one frame and swaps
func Draw(dsl *DrapeContext, cam *Camera) {
	gl.ClearColor(0.9, 0.9, 0.9, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	mvp := cam.MVP()
	gl.UseProgram(dsl.PrgID)
	gl.UniformMatrix4fv(dsl.MVPLoc, 1, false, &mvp[0])

	gl.BindVertexArray(dsl.VAO[DSL_PARTICLES])
	if dsl.Edges > 0 {
		gl.Uniform4fv(dsl.ColorLoc, 1, &lineColor[0])
		gl.DrawElements(gl.LINES, dsl.Edges, gl.UNSIGNED_INT, nil)
	}
	gl.Uniform4fv(dsl.ColorLoc, 1, &pointColor[0])
	gl.PointSize(dsl.PointSize)
	gl.DrawArrays(gl.POINTS, 0, dsl.Points)

	if dsl.Cuts > 0 {
		gl.BindVertexArray(dsl.VAO[DSL_CUTS])
		gl.Uniform4fv(dsl.ColorLoc, 1, &cutColor[0])
		gl.DrawArrays(gl.LINES, 0, dsl.Cuts)
	}
	gl.BindVertexArray(0)

	dsl.GLFWindow.SwapBuffers()
}

//Release frees the GL objects
func (dsl *DrapeContext) Release() {
	gl.DeleteBuffers(2, &dsl.VBO[0])
	gl.DeleteBuffers(1, &dsl.EBO)
	gl.DeleteVertexArrays(2, &dsl.VAO[0])
	gl.DeleteProgram(dsl.PrgID)
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("GLSL shader failed to compile: %v", log)
	}
	return shader, nil
}
