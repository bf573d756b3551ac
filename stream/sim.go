package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	C "drape.com/drape/cloth"
	"drape.com/drape/config"
	G "drape.com/drape/geometry"
	"drape.com/drape/utils"
)

//Sim owns a cloth and is the only goroutine that touches it. Everything else
//talks to it through Inbox
type Sim struct {
	Inbox          chan any
	cloth          *C.Cloth
	timer          *C.Timer
	tickHz         int
	broadcastEvery int
	ticks          int
	clients        map[int]Conn
	nextID         int
	pending        []C.Segment
	reset          bool
	flat           []float32
	logger         *slog.Logger
	done           chan struct{}
}

func NewSim(cloth *C.Cloth, cfg config.Stream, logger *slog.Logger) *Sim {
	tickHz := cfg.TickHz
	if tickHz <= 0 {
		tickHz = 60
	}
	broadcastEvery := 1
	if cfg.BroadcastHz > 0 && tickHz/cfg.BroadcastHz > 0 {
		broadcastEvery = tickHz / cfg.BroadcastHz
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		Inbox:          make(chan any, 256),
		cloth:          cloth,
		timer:          C.NewTimer(cloth.Config),
		tickHz:         tickHz,
		broadcastEvery: broadcastEvery,
		clients:        make(map[int]Conn),
		nextID:         1,
		logger:         logger,
		done:           make(chan struct{}),
	}
}

//Submit queues cmd for the sim loop. It returns false once the loop has
//stopped or ctx ends first
func (s *Sim) Submit(ctx context.Context, cmd any) bool {
	//Inbox is buffered, so a stopped loop would still accept sends
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.Inbox <- cmd:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

//Done is closed when Run returns
func (s *Sim) Done() <-chan struct{} {
	return s.done
}

//Run steps the cloth at the tick rate until ctx ends. Every client is closed
//on the way out
func (s *Sim) Run(ctx context.Context) {
	period := time.Second / time.Duration(s.tickHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	defer close(s.done)
	defer s.closeAll()

	s.logger.Info("sim started", "particles", s.cloth.Count, "constraints", len(s.cloth.Constraints()), "tick_hz", s.tickHz)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sim stopped", "frame", s.cloth.Frame())
			return
		case cmd := <-s.Inbox:
			s.handleCommand(cmd)
		case <-ticker.C:
			s.cloth.Advance(s.timer, period.Seconds())
			s.ticks++
			if s.ticks%s.broadcastEvery == 0 {
				s.broadcastState()
			}
		}
	}
}

func (s *Sim) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Join:
		id := s.nextID
		s.nextID++
		if err := s.sendWelcome(id, c.Conn); err != nil {
			s.logger.Warn("welcome failed", "client", id, "err", err)
			_ = c.Conn.Close()
			id = 0
		} else {
			s.clients[id] = c.Conn
			s.logger.Info("client joined", "client", id, "clients", len(s.clients))
		}
		if c.Reply != nil {
			c.Reply <- id
		}
	case Leave:
		s.removeClient(c.ClientID)
	case Cut:
		removed := s.cut(c)
		if c.Reply != nil {
			c.Reply <- removed
		}
	case Reset:
		s.cloth.Reset()
		s.reset = true
		s.logger.Info("cloth reset", "frame", s.cloth.Frame())
	case Retune:
		if err := s.cloth.Retune(c.Config); err != nil {
			s.logger.Warn("retune rejected", "err", err)
			return
		}
		s.timer = C.NewTimer(c.Config)
		s.logger.Info("cloth retuned", "wind_strength", c.Config.WindStrength, "iterations", c.Config.Iterations)
	case Stats:
		if c.Reply == nil {
			return
		}
		c.Reply <- StatsResult{
			Frame:       s.cloth.Frame(),
			Constraints: len(s.cloth.Constraints()),
			Clients:     len(s.clients),
		}
	default:
		s.logger.Warn("unknown sim command", "type", fmt.Sprintf("%T", cmd))
	}
}

func (s *Sim) cut(c Cut) []C.Segment {
	indices := c.Indices
	if c.Ray != nil {
		f, _, ok := G.Pick(s.cloth.Positions, s.cloth.Faces(), *c.Ray)
		if !ok {
			return nil
		}
		indices = []int{f.A, f.B, f.C}
	}
	removed := s.cloth.RemoveConstraintsNear(indices...)
	if len(removed) > 0 {
		s.pending = append(s.pending, removed...)
		s.logger.Debug("cut", "removed", len(removed), "left", len(s.cloth.Constraints()))
	}
	return removed
}

func (s *Sim) sendWelcome(id int, conn Conn) error {
	cfg := s.cloth.Config
	w := Welcome{
		ClientID:  id,
		TickHz:    s.tickHz,
		SegmentsX: cfg.SegmentsX,
		SegmentsY: cfg.SegmentsY,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}
	for i, p := range s.cloth.Pinned {
		if p {
			w.Pinned = append(w.Pinned, i)
		}
	}
	cons := s.cloth.Constraints()
	w.Constraints = make([][2]int, len(cons))
	for i, con := range cons {
		w.Constraints[i] = [2]int{con.A, con.B}
	}
	faces := s.cloth.Faces()
	w.Faces = make([][3]int, len(faces))
	for i, f := range faces {
		w.Faces[i] = [3]int{f.A, f.B, f.C}
	}

	b, err := Encode(MsgWelcome, w)
	if err != nil {
		return err
	}
	if err := conn.Send(b); err != nil {
		return err
	}
	return s.sendStateTo(conn)
}

func (s *Sim) buildState() State {
	s.flat = utils.Flatten(s.flat, s.cloth.Positions)
	st := State{
		Frame:     s.cloth.Frame(),
		Positions: s.flat,
		Reset:     s.reset,
	}
	for _, seg := range s.pending {
		st.Cuts = append(st.Cuts, CutSnapshot{A: seg.A, B: seg.B, From: seg.From, To: seg.To})
	}
	return st
}

//sendStateTo sends the current positions without pending cuts. Those are
//already missing from the welcome constraints and go out with the next broadcast
func (s *Sim) sendStateTo(c Conn) error {
	st := s.buildState()
	st.Cuts = nil
	st.Reset = false
	b, err := Encode(MsgState, st)
	if err != nil {
		return err
	}
	return c.Send(b)
}

func (s *Sim) broadcastState() {
	b, err := Encode(MsgState, s.buildState())
	if err != nil {
		s.logger.Error("encode state", "err", err)
		return
	}
	s.pending = s.pending[:0]
	s.reset = false

	var failed []int
	for id, c := range s.clients {
		if err := c.Send(b); err != nil {
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		s.logger.Warn("send failed, dropping client", "client", id)
		s.removeClient(id)
	}
}

func (s *Sim) removeClient(id int) {
	c, ok := s.clients[id]
	if !ok {
		return
	}
	_ = c.Close()
	delete(s.clients, id)
	s.logger.Info("client left", "client", id, "clients", len(s.clients))
}

func (s *Sim) closeAll() {
	for id := range s.clients {
		s.removeClient(id)
	}
}
