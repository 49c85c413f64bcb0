package session

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-presence/internal/presence"
	"github.com/pixil98/go-presence/internal/registry"
	"github.com/pixil98/go-presence/internal/router"
	"github.com/pixil98/go-testutil"
)

// pipeConn is an in-memory Conn: the test writes inbound frames to in
// and reads the session's outbound frames from out.
type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}

	closeOnce sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) ReadFrame() ([]byte, error) {
	select {
	case frame, ok := <-c.in:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *pipeConn) WriteFrame(data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) isClosed(timeout time.Duration) bool {
	select {
	case <-c.closed:
		return true
	case <-time.After(timeout):
		return false
	}
}

func readFrame(t *testing.T, c *pipeConn) map[string]any {
	t.Helper()
	select {
	case frame := <-c.out:
		var m map[string]any
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("undecodable frame %q: %v", frame, err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound frame")
		return nil
	}
}

func expectSilence(t *testing.T, c *pipeConn, d time.Duration) {
	t.Helper()
	select {
	case frame := <-c.out:
		t.Fatalf("expected no frame, got %s", frame)
	case <-time.After(d):
	}
}

func newTestRig() (*router.Router, *presence.MemStore) {
	store := presence.NewMemStore()
	reg := registry.New()
	return router.New(store, reg, router.NewDirectPublisher(reg)), store
}

func startSession(t *testing.T, rt *router.Router) (*Session, *pipeConn) {
	t.Helper()
	conn := newPipeConn()
	s := New(conn, rt, nil, 0)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	t.Cleanup(func() {
		conn.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
	})
	return s, conn
}

func TestSession_JoinThenMove(t *testing.T) {
	rt, store := newTestRig()

	_, conn1 := startSession(t, rt)
	_, conn2 := startSession(t, rt)

	conn1.in <- []byte(`{"type":"join_room","playerId":"p1","roomId":"r1"}`)
	ack := readFrame(t, conn1)
	testutil.AssertEqual(t, "type", ack["type"], "room_joined")
	testutil.AssertEqual(t, "roomId", ack["roomId"], "r1")
	testutil.AssertEqual(t, "id", ack["id"], "p1")

	conn2.in <- []byte(`{"type":"join_room","playerId":"p2","roomId":"r1"}`)
	readFrame(t, conn2)

	// Joins are not broadcast.
	expectSilence(t, conn1, 100*time.Millisecond)

	conn1.in <- []byte(`{"type":"move","x":1,"y":1}`)
	moved := readFrame(t, conn2)
	testutil.AssertEqual(t, "type", moved["type"], "player_moved")
	testutil.AssertEqual(t, "id", moved["id"], "p1")
	testutil.AssertEqual(t, "x", moved["x"], 1.0)
	testutil.AssertEqual(t, "y", moved["y"], 1.0)

	waitFor(t, func() bool {
		rec, _ := store.GetPlayer(context.Background(), "p1")
		return rec != nil && rec.X == 1
	})
}

func TestSession_MalformedFramesAreDiscarded(t *testing.T) {
	rt, _ := newTestRig()
	_, conn := startSession(t, rt)

	conn.in <- []byte(`{{{not json`)
	conn.in <- []byte(`{"playerId":"p1"}`)
	conn.in <- []byte(`{"type":"teleport"}`)

	// The connection survives and a valid join still works.
	conn.in <- []byte(`{"type":"join_room","playerId":"p1","roomId":"r1"}`)
	ack := readFrame(t, conn)
	testutil.AssertEqual(t, "type", ack["type"], "room_joined")
}

func TestSession_MoveBeforeJoinIsIgnored(t *testing.T) {
	rt, store := newTestRig()
	_, conn := startSession(t, rt)

	conn.in <- []byte(`{"type":"move","x":5,"y":5}`)
	expectSilence(t, conn, 100*time.Millisecond)

	rec, _ := store.GetPlayer(context.Background(), "")
	if rec != nil {
		t.Fatal("expected no store mutation")
	}
}

func TestSession_JoinWithoutPlayerIDClosesConnection(t *testing.T) {
	rt, store := newTestRig()
	_, conn := startSession(t, rt)

	conn.in <- []byte(`{"type":"join_room","roomId":"r1"}`)

	errFrame := readFrame(t, conn)
	testutil.AssertEqual(t, "type", errFrame["type"], "error")

	if !conn.isClosed(2 * time.Second) {
		t.Fatal("expected the transport to be closed after the error event")
	}

	count, _ := store.RoomCount(context.Background(), "r1")
	testutil.AssertEqual(t, "room count", count, 0)
}

func TestSession_DisconnectBroadcastsPlayerLeft(t *testing.T) {
	rt, store := newTestRig()
	_, conn1 := startSession(t, rt)
	_, conn2 := startSession(t, rt)

	conn1.in <- []byte(`{"type":"join_room","playerId":"p1","roomId":"r1"}`)
	readFrame(t, conn1)
	conn2.in <- []byte(`{"type":"join_room","playerId":"p2","roomId":"r1"}`)
	readFrame(t, conn2)

	// Abrupt transport loss on p1's side.
	close(conn1.in)

	left := readFrame(t, conn2)
	testutil.AssertEqual(t, "type", left["type"], "player_left")
	testutil.AssertEqual(t, "id", left["id"], "p1")

	waitFor(t, func() bool {
		rec, _ := store.GetPlayer(context.Background(), "p1")
		count, _ := store.RoomCount(context.Background(), "r1")
		return rec == nil && count == 1
	})
}

func TestSession_DoubleCloseDoesNotDoubleBroadcast(t *testing.T) {
	rt, _ := newTestRig()
	s1, conn1 := startSession(t, rt)
	_, conn2 := startSession(t, rt)

	conn1.in <- []byte(`{"type":"join_room","playerId":"p1","roomId":"r1"}`)
	readFrame(t, conn1)
	conn2.in <- []byte(`{"type":"join_room","playerId":"p2","roomId":"r1"}`)
	readFrame(t, conn2)

	s1.Close()
	s1.Close()

	left := readFrame(t, conn2)
	testutil.AssertEqual(t, "type", left["type"], "player_left")
	expectSilence(t, conn2, 200*time.Millisecond)
}

func TestSession_SendNeverBlocks(t *testing.T) {
	// No pump running: the queue fills and Send must drop, not block.
	conn := newPipeConn()
	rt, _ := newTestRig()
	s := New(conn, rt, nil, 1)

	testutil.AssertEqual(t, "first send", s.Send([]byte("a")), true)
	testutil.AssertEqual(t, "second send", s.Send([]byte("b")), false)

	s.Close()
	testutil.AssertEqual(t, "send after close", s.Send([]byte("c")), false)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
