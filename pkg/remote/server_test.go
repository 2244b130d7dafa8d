package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/program"
	"github.com/vango-dev/domsync/pkg/protocol"
	"github.com/vango-dev/domsync/pkg/vdom"
)

type counter struct {
	s *Session
	n int
}

func (c *counter) Render() *vdom.VNode {
	return vdom.Div(
		vdom.P(vdom.ID("count"), strconv.Itoa(c.n)),
		vdom.Button(vdom.ID("inc"), vdom.OnClick(func(*vdom.Event) {
			c.n++
			c.s.RequestRender()
		}), "+"),
	)
}

// testClient is a websocket client replaying ops into a memdoc.
type testClient struct {
	t      *testing.T
	conn   *websocket.Conn
	doc    *memdoc.Document
	replay *Replayer
	hello  *protocol.Hello
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn, doc: memdoc.New()}
	c.replay = NewReplayer(c.doc, c.doc.Body(), c.sendEvent)
	c.replay.MapHead(c.doc.Head())

	f := c.read()
	require.Equal(t, protocol.FrameHello, f.Type)
	c.hello, err = protocol.DecodeHello(f.Payload)
	require.NoError(t, err)
	return c
}

func (c *testClient) read() *protocol.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	f, err := protocol.DecodeFrame(msg)
	require.NoError(c.t, err)
	return f
}

// readOps applies the next ops frame.
func (c *testClient) readOps() {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, protocol.FrameOps, f.Type)
	require.NoError(c.t, c.replay.ApplyFrame(f.Payload))
}

func (c *testClient) readError() *protocol.ErrorMessage {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, protocol.FrameError, f.Type)
	em, err := protocol.DecodeErrorMessage(f.Payload)
	require.NoError(c.t, err)
	return em
}

func (c *testClient) write(f *protocol.Frame) {
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, f.Encode()))
}

func (c *testClient) sendEvent(m *protocol.EventMessage) {
	c.write(protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(m)))
}

func (c *testClient) html() string {
	return memdoc.HTML(c.doc.Body())
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FrameInterval = 2 * time.Millisecond
	cfg.HeartbeatInterval = 0
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, factory AppFactory, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithConfig(testConfig()), WithLogger(quietLogger())}, opts...)
	srv := NewServer(factory, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		ts.Close()
	})
	return srv, ts
}

func counterFactory(s *Session) program.Application {
	return &counter{s: s}
}

func TestServerMountsAndRendersEvents(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry, "test")
	_, ts := startServer(t, counterFactory, WithMetrics(metrics))

	c := dial(t, ts.URL)
	assert.Equal(t, protocol.ProtocolVersion, c.hello.Version)
	assert.Len(t, c.hello.Session, 32)
	assert.Equal(t, 500, c.hello.FrameRate)

	c.readOps()
	assert.Equal(t, `<div><p id="count">0</p><button id="inc">+</button></div>`, c.html())
	assert.Equal(t, []string{"click"}, c.replay.Listening())

	button := memdoc.Find(c.doc.Body(), "id", "inc")
	c.doc.Fire(button, hostClick())
	c.readOps()
	assert.Contains(t, c.html(), `<p id="count">1</p>`)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.frames.WithLabelValues("in", "Event")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.frames.WithLabelValues("out", "Ops")) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.frames.WithLabelValues("out", "Hello")))
}

func TestServerSessionsAreIsolated(t *testing.T) {
	srv, ts := startServer(t, counterFactory)

	a := dial(t, ts.URL)
	b := dial(t, ts.URL)
	a.readOps()
	b.readOps()
	assert.NotEqual(t, a.hello.Session, b.hello.Session)

	a.doc.Fire(memdoc.Find(a.doc.Body(), "id", "inc"), hostClick())
	a.readOps()
	assert.Contains(t, a.html(), `<p id="count">1</p>`)
	assert.Contains(t, b.html(), `<p id="count">0</p>`)
	assert.Eventually(t, func() bool { return srv.Sessions() == 2 }, time.Second, 5*time.Millisecond)
}

func TestServerReportsBadFrames(t *testing.T) {
	_, ts := startServer(t, counterFactory)
	c := dial(t, ts.URL)
	c.readOps()

	c.sendEvent(&protocol.EventMessage{Type: "click", Target: 999})
	em := c.readError()
	assert.Equal(t, protocol.ErrUnknownTarget, em.Code)
	assert.False(t, em.Fatal)

	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, []byte{0x42, 0, 0, 0, 0}))
	assert.Equal(t, protocol.ErrInvalidFrame, c.readError().Code)

	c.write(protocol.NewFrame(protocol.FrameEvent, []byte{0xFF}))
	assert.Equal(t, protocol.ErrInvalidEvent, c.readError().Code)

	// The session survives bad input.
	c.doc.Fire(memdoc.Find(c.doc.Body(), "id", "inc"), hostClick())
	c.readOps()
	assert.Contains(t, c.html(), `<p id="count">1</p>`)
}

func TestSessionDispatchFromAnotherGoroutine(t *testing.T) {
	sessions := make(chan *Session, 1)
	var app *counter
	_, ts := startServer(t, func(s *Session) program.Application {
		app = &counter{s: s}
		sessions <- s
		return app
	})
	c := dial(t, ts.URL)
	c.readOps()
	s := <-sessions

	require.True(t, s.Dispatch(func() { app.n = 41 }))
	c.readOps()
	assert.Contains(t, c.html(), `<p id="count">41</p>`)
}

func TestServerShutdownClosesSessions(t *testing.T) {
	srv := NewServer(counterFactory, WithConfig(testConfig()), WithLogger(quietLogger()))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := dial(t, ts.URL)
	c.readOps()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Equal(t, 0, srv.Sessions())

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err = %v", err)
			break
		}
	}
}

func TestClientCloseEndsSession(t *testing.T) {
	srv, ts := startServer(t, counterFactory)
	c := dial(t, ts.URL)
	c.readOps()
	require.Equal(t, 1, srv.Sessions())

	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
	assert.Eventually(t, func() bool { return srv.Sessions() == 0 }, 5*time.Second, 5*time.Millisecond)
}
