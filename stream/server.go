package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"drape.com/drape/config"
	G "drape.com/drape/geometry"
	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	sendQueue    = 16 //Broadcasts a client may fall behind by
)

//Server upgrades /ws requests and bridges each socket to the Sim
type Server struct {
	sim      *Sim
	cfg      config.Stream
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(sim *Sim, cfg config.Stream, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sim:    sim,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			//The viewer page may be served from anywhere
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.sim.Done():
			http.Error(w, "sim stopped", http.StatusServiceUnavailable)
		default:
			fmt.Fprintln(w, "ok")
		}
	})
	return mux
}

//ListenAndServe serves until ctx ends, then shuts the listener down
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "ws", "/ws")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("stream server: %w", err)
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return fmt.Errorf("stream shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var (
	ErrSlowClient = errors.New("client send queue full")
	errConnClosed = errors.New("connection closed")
)

//wsConn queues outgoing messages so the sim never waits on a socket. Only
//writeLoop touches the socket for writing
type wsConn struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func newWSConn(c *websocket.Conn, queue int) *wsConn {
	if queue <= 0 {
		queue = 1
	}
	return &wsConn{conn: c, send: make(chan []byte, queue), done: make(chan struct{})}
}

//Send never blocks. A full queue means the client fell behind and it is
//dropped by the caller
func (w *wsConn) Send(b []byte) error {
	select {
	case <-w.done:
		return errConnClosed
	default:
	}
	select {
	case w.send <- b:
		return nil
	default:
		return ErrSlowClient
	}
}

func (w *wsConn) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.conn != nil {
			err = w.conn.Close()
		}
	})
	return err
}

//writeLoop drains the queue and sends keepalive pings until the conn closes
func (w *wsConn) writeLoop(ping time.Duration) {
	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for {
		select {
		case b := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = w.Close()
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = w.Close()
				return
			}
		case <-w.done:
			return
		}
	}
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn := newWSConn(ws, sendQueue)
	go conn.writeLoop(pingInterval)
	defer conn.Close()

	limit := s.cfg.ReadLimit
	if limit <= 0 {
		limit = 1 << 20
	}
	ws.SetReadLimit(limit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	reply := make(chan int, 1)
	if !s.sim.Submit(ctx, Join{Conn: conn, Reply: reply}) {
		return
	}
	var id int
	select {
	case id = <-reply:
	case <-s.sim.Done():
		return
	}
	if id == 0 {
		return
	}
	defer s.sim.Submit(context.Background(), Leave{ClientID: id})

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read", "client", id, "err", err)
			}
			return
		}
		cmd, err := parseCommand(msg)
		if err != nil {
			s.logger.Debug("bad message", "client", id, "err", err)
			if b, encErr := Encode(MsgError, Error{Msg: err.Error()}); encErr == nil {
				_ = conn.Send(b)
			}
			continue
		}
		if !s.sim.Submit(ctx, cmd) {
			return
		}
	}
}

//parseCommand turns a client envelope into a sim command
func parseCommand(msg []byte) (any, error) {
	env, err := DecodeEnvelope(msg)
	if err != nil {
		return nil, err
	}
	switch env.T {
	case MsgCut:
		req, err := DecodePayload[CutRequest](env)
		if err != nil {
			return nil, fmt.Errorf("cut payload: %w", err)
		}
		switch {
		case req.Origin != nil && req.Dir != nil:
			return Cut{Ray: &G.Ray{Origin: *req.Origin, Dir: *req.Dir}}, nil
		case len(req.Indices) > 0:
			return Cut{Indices: req.Indices}, nil
		}
		return nil, fmt.Errorf("cut needs indices or an origin and dir")
	case MsgReset:
		return Reset{}, nil
	}
	return nil, fmt.Errorf("unknown message type %q", env.T)
}
