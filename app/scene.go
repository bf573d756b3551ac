package app

//Viewer main loop. Composes the cloth, its timer, the camera and input
import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	C "drape.com/drape/cloth"
	"drape.com/drape/config"
	G "drape.com/drape/geometry"
	"drape.com/drape/utils"
	V "drape.com/drape/vector"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	STATE_PLAY  = 0
	STATE_PAUSE = 1
)

//Viewer owns the cloth on the GL thread. Config reloads reach it through
//Retune, everything else arrives as glfw callbacks on the same thread
type Viewer struct {
	Cloth   *C.Cloth
	Timer   *C.Timer
	Cam     *Camera
	Context *DrapeContext
	Retune  chan C.Config
	View    config.View
	State   int
	logger  *slog.Logger

	holdMouse  bool
	cursorX    float64
	cursorY    float64
	edgesDirty bool
	cuts       []C.Segment
	flat       []float32
	edges      []uint32
	cutVerts   []float32
}

func NewViewer(cloth *C.Cloth, view config.View, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		Cloth:      cloth,
		Timer:      C.NewTimer(cloth.Config),
		Cam:        NewCamera(view),
		Retune:     make(chan C.Config, 1),
		View:       view,
		State:      STATE_PLAY,
		logger:     logger,
		edgesDirty: true,
	}
}

//Run opens the window and drives the cloth until the window closes or ctx
//ends. It locks the calling goroutine to its OS thread for GL
func (v *Viewer) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	window, err := InitGLFW(&AppWindow{v.View.Width, v.View.Height, v.View.Title})
	if err != nil {
		return err
	}
	defer glfw.Terminate()

	dsl, err := InitOpenGL(v.Cloth, v.View)
	if err != nil {
		return fmt.Errorf("opengl: %w", err)
	}
	defer dsl.Release()
	dsl.GLFWindow = window
	v.Context = dsl

	window.SetKeyCallback(v.ProcessInput)
	window.SetMouseButtonCallback(v.ProcessMouse)
	window.SetCursorPosCallback(v.ProcessCursor)

	v.logger.Info("viewer started", "particles", v.Cloth.Count, "constraints", len(v.Cloth.Constraints()))
	last := time.Now()
	for !window.ShouldClose() {
		select {
		case <-ctx.Done():
			window.SetShouldClose(true)
			continue
		case cfg := <-v.Retune:
			v.retune(cfg)
		default:
		}

		now := time.Now()
		elapsed := now.Sub(last).Seconds()
		last = now

		glfw.PollEvents()
		v.Frame(elapsed)
		Draw(dsl, v.Cam)
	}
	v.logger.Info("viewer closed", "frame", v.Cloth.Frame(), "sim_time", v.Timer.T)
	return nil
}

//Frame advances the cloth and refreshes the GL buffers
func (v *Viewer) Frame(elapsed float64) {
	if v.State == STATE_PLAY {
		v.Cloth.Advance(v.Timer, elapsed)
	}
	//The cloth keeps moving under a still cursor, keep tearing while held
	if v.holdMouse {
		v.cutAtCursor()
	}
	if v.Context == nil {
		return
	}
	v.flat = utils.Flatten(v.flat, v.Cloth.Positions)
	v.Context.UploadPositions(v.flat)
	if v.edgesDirty {
		v.edges = utils.EdgeIndices(v.edges, v.Cloth.Constraints())
		v.Context.UploadEdges(v.edges)
		v.cutVerts = utils.SegmentVertices(v.cutVerts[:0], v.cuts)
		v.Context.UploadCuts(v.cutVerts)
		v.edgesDirty = false
	}
}

//CutAt removes the constraints around the face under the ray
func (v *Viewer) CutAt(r G.Ray) int {
	f, _, ok := G.Pick(v.Cloth.Positions, v.Cloth.Faces(), r)
	if !ok {
		return 0
	}
	removed := v.Cloth.RemoveConstraintsNear(f.A, f.B, f.C)
	if len(removed) == 0 {
		return 0
	}
	v.cuts = append(v.cuts, removed...)
	v.edgesDirty = true
	v.logger.Debug("cut", "face", f.String(), "removed", len(removed), "left", len(v.Cloth.Constraints()))
	return len(removed)
}

func (v *Viewer) cutAtCursor() {
	r, err := v.Cam.Ray(v.cursorX, v.cursorY, v.View.Width, v.View.Height)
	if err != nil {
		v.logger.Warn("cursor ray", "err", err)
		return
	}
	v.CutAt(r)
}

func (v *Viewer) retune(cfg C.Config) {
	if err := v.Cloth.Retune(cfg); err != nil {
		v.logger.Warn("retune rejected", "err", err)
		return
	}
	v.Timer = C.NewTimer(cfg)
	v.logger.Info("cloth retuned", "wind_strength", cfg.WindStrength, "iterations", cfg.Iterations)
}

//Apply runs a key command against the viewer state
func (v *Viewer) Apply(cmd Command) {
	switch cmd.Kind {
	case CmdMove:
		v.Cam.Move(cmd.Dir)
	case CmdPause:
		if v.State == STATE_PLAY {
			v.State = STATE_PAUSE
		} else {
			v.State = STATE_PLAY
		}
		v.logger.Info("pause toggled", "paused", v.State == STATE_PAUSE)
	case CmdReset:
		v.Cloth.Reset()
		v.logger.Info("cloth reset", "frame", v.Cloth.Frame())
	case CmdTime:
		v.logger.Info("simulation time", "t", v.Timer.T, "frame", v.Cloth.Frame())
	case CmdQuit:
		if v.Context != nil && v.Context.GLFWindow != nil {
			v.Context.GLFWindow.SetShouldClose(true)
		}
	}
}

func (v *Viewer) ProcessInput(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	cmd, ok := KeyCommand(key)
	if !ok {
		return
	}
	//Only camera moves repeat while held
	if action == glfw.Repeat && cmd.Kind != CmdMove {
		return
	}
	v.Apply(cmd)
}

func (v *Viewer) ProcessMouse(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		v.holdMouse = true
		v.cutAtCursor()
	case glfw.Release:
		v.holdMouse = false
	}
}

func (v *Viewer) ProcessCursor(w *glfw.Window, xPos float64, yPos float64) {
	v.cursorX, v.cursorY = xPos, yPos
	if v.holdMouse {
		v.cutAtCursor()
	}
}

//Command kinds bound to keys
const (
	CmdMove = iota + 1
	CmdPause
	CmdReset
	CmdTime
	CmdQuit
)

type Command struct {
	Kind int
	Dir  V.Vec32 //Camera direction for CmdMove
}

//KeyCommand maps a key to its viewer command
func KeyCommand(key glfw.Key) (Command, bool) {
	switch key {
	case glfw.KeyW:
		return Command{CmdMove, V.Vec32{0, 0, -1}}, true
	case glfw.KeyS:
		return Command{CmdMove, V.Vec32{0, 0, 1}}, true
	case glfw.KeyA, glfw.KeyLeft:
		return Command{CmdMove, V.Vec32{-1, 0, 0}}, true
	case glfw.KeyD, glfw.KeyRight:
		return Command{CmdMove, V.Vec32{1, 0, 0}}, true
	case glfw.KeyUp:
		return Command{CmdMove, V.Vec32{0, 1, 0}}, true
	case glfw.KeyDown:
		return Command{CmdMove, V.Vec32{0, -1, 0}}, true
	case glfw.KeySpace:
		return Command{Kind: CmdPause}, true
	case glfw.KeyR:
		return Command{Kind: CmdReset}, true
	case glfw.KeyTab:
		return Command{Kind: CmdTime}, true
	case glfw.KeyEscape:
		return Command{Kind: CmdQuit}, true
	}
	return Command{}, false
}
