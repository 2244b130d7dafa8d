package remote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/program"
	"github.com/vango-dev/domsync/pkg/protocol"
	"github.com/vango-dev/domsync/pkg/sched"
)

// AppFactory builds the application of a new session. Handlers of the
// returned application run on the session loop and call s.RequestRender
// after changing state.
type AppFactory func(s *Session) program.Application

// Session is one connected client: a websocket, the loop that owns the
// session's document and the program rendering into it.
type Session struct {
	id      string
	conn    *websocket.Conn
	config  *Config
	logger  *slog.Logger
	metrics *Metrics

	loop    *sched.Loop
	frames  *sched.TickerFrames
	doc     *Document
	program *program.Program

	events  atomic.Uint64
	dropped atomic.Uint64
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func newSession(conn *websocket.Conn, factory AppFactory, config *Config, logger *slog.Logger, metrics *Metrics, opts []program.Option) *Session {
	s := &Session{
		id:      generateSessionID(),
		conn:    conn,
		config:  config,
		metrics: metrics,
	}
	s.logger = logger.With("component", "session", "session", s.id[:8])
	s.loop = sched.NewLoop(config.QueueSize, s.logger)
	s.frames = sched.NewTickerFrames(s.loop, config.FrameInterval)
	s.doc = NewDocument(s.send, s.logger)

	popts := append([]program.Option{
		program.WithLogger(s.logger),
		program.WithFrameSource(s.frames),
		program.WithStyles(program.NewStyles(s.doc.Head())),
	}, opts...)
	popts = append(popts, program.WithOnError(s.renderFailed))
	s.program = program.New(s.doc, s.doc.Container(), factory(s), popts...)
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Program returns the session's program. It must only be used on the
// session loop.
func (s *Session) Program() *program.Program {
	return s.program
}

// RequestRender schedules a render cycle. It must be called on the
// session loop, which is where event handlers run.
func (s *Session) RequestRender() {
	s.program.RequestRender()
}

// Dispatch runs fn on the session loop and requests a render afterwards.
// It is safe to call from any goroutine and reports false once the
// session has ended.
func (s *Session) Dispatch(fn func()) bool {
	return s.loop.Post(func() {
		fn()
		s.program.RequestRender()
	})
}

// Events returns the number of client events delivered.
func (s *Session) Events() uint64 {
	return s.events.Load()
}

// Close ends the session. Run returns once the loop has drained.
func (s *Session) Close() {
	s.loop.Stop()
}

// Run greets the client, mounts the application and serves events until
// the client goes away, ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) error {
	s.metrics.opened()
	defer s.metrics.closed()
	defer s.shutdown()

	hello := &protocol.Hello{
		Version:   protocol.ProtocolVersion,
		Session:   s.id,
		FrameRate: int(time.Second / s.frames.Interval()),
	}
	if err := s.send(protocol.NewFrame(protocol.FrameHello, protocol.EncodeHello(hello))); err != nil {
		return errors.New("E012").WithDetail("sending hello").Wrap(err)
	}

	s.loop.Post(func() {
		if err := s.program.Start(); err != nil {
			s.logger.Error("initial render failed", "error", err)
			s.renderFailed(err)
		}
	})
	go s.readLoop()
	go s.heartbeat()

	s.logger.Info("session started")
	if err := s.loop.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// renderFailed runs on the loop. A lost connection ends the session; other
// failures are reported to the client and repaired by the remount of the
// next cycle.
func (s *Session) renderFailed(err error) {
	if errors.IsCode(err, "E012") {
		s.logger.Warn("connection lost during render", "error", err)
		s.loop.Stop()
		return
	}
	s.sendError(protocol.ErrRenderFailed, err.Error())
}

func (s *Session) readLoop() {
	defer s.loop.Stop()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.metrics.drop("malformed")
			s.postError(protocol.ErrInvalidFrame, err.Error())
			continue
		}
		s.metrics.frame("in", frame.Type.String(), len(msg))

		switch frame.Type {
		case protocol.FrameEvent:
			m, err := protocol.DecodeEvent(frame.Payload)
			if err != nil {
				s.logger.Warn("event decode error", "error", err)
				s.metrics.drop("malformed")
				s.postError(protocol.ErrInvalidEvent, err.Error())
				continue
			}
			if !s.loop.Post(func() { s.deliver(m) }) {
				return
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				s.logger.Warn("error frame decode error", "error", err)
				continue
			}
			s.logger.Warn("client reported error", "code", em.Code, "message", em.Message, "fatal", em.Fatal)
			if em.Fatal {
				return
			}

		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// deliver runs on the loop.
func (s *Session) deliver(m *protocol.EventMessage) {
	if _, err := s.doc.Deliver(m); err != nil {
		s.dropped.Add(1)
		s.metrics.drop("unknown_target")
		s.logger.Debug("event dropped", "type", m.Type, "target", m.Target, "error", err)
		s.sendError(protocol.ErrUnknownTarget, err.Error())
		return
	}
	s.events.Add(1)
}

func (s *Session) heartbeat() {
	if s.config.HeartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("ping failed", "error", err)
				s.loop.Stop()
				return
			}
		case <-s.loop.Done():
			return
		}
	}
}

// send writes one frame. Only the loop writes data frames; Run sends the
// hello before the loop starts.
func (s *Session) send(f *protocol.Frame) error {
	data := f.Encode()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	s.metrics.frame("out", f.Type.String(), len(data))
	return nil
}

func (s *Session) sendError(code protocol.ErrorCode, message string) {
	em := protocol.NewError(code, message)
	if err := s.send(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))); err != nil {
		s.logger.Debug("error frame not sent", "error", err)
	}
}

func (s *Session) postError(code protocol.ErrorCode, message string) {
	s.loop.Post(func() { s.sendError(code, message) })
}

// shutdown runs after the loop has stopped, so it is the only goroutine
// touching the program.
func (s *Session) shutdown() {
	s.loop.Stop()
	s.frames.Close()
	if err := s.program.Close(); err != nil {
		s.logger.Debug("program close", "error", err)
	}
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.conn.Close()

	st := s.program.Stats()
	s.logger.Info("session closed",
		"events", s.events.Load(),
		"dropped", s.dropped.Load(),
		"cycles", st.Cycles,
		"patches", st.Patches,
		"ops_frames", s.doc.Seq())
}
