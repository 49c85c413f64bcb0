// Package session owns connection lifecycles: admission on the first
// valid join, message pumping while joined, and exactly-once teardown on
// disconnect.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-presence/internal/messaging"
	"github.com/pixil98/go-presence/internal/proto"
	"github.com/pixil98/go-presence/internal/router"
)

// Conn is a single framed transport connection. Implementations exist
// for websocket frames and newline-delimited streams.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
	Close() error
}

// Subscriber provides the ability to subscribe to message subjects.
// It is satisfied by messaging.NatsServer; a nil Subscriber means
// single-process operation where the registry delivers directly.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (unsubscribe func(), err error)
}

const defaultQueueSize = 32

// Session is one logical unit of execution per connection. The read
// loop is the only goroutine touching the protocol state; the write
// pump is the only goroutine touching the transport's write side.
type Session struct {
	id     string
	conn   Conn
	router *router.Router
	sub    Subscriber

	queue  chan []byte
	closed chan struct{}

	closeOnce    sync.Once
	teardownOnce sync.Once

	// playerID and unsub are owned by the Run goroutine.
	playerID string
	unsub    func()
}

func New(conn Conn, rt *router.Router, sub Subscriber, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Session{
		id:     uuid.NewString(),
		conn:   conn,
		router: rt,
		sub:    sub,
		queue:  make(chan []byte, queueSize),
		closed: make(chan struct{}),
	}
}

// Send queues a frame for delivery and reports whether it was accepted.
// It never blocks: when the peer is backed up and the queue is full the
// frame is dropped so one slow connection cannot stall a room
// broadcast.
func (s *Session) Send(data []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

// Close shuts the session down asynchronously. Queued frames are
// flushed before the transport closes; state cleanup happens when the
// read loop unwinds.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// Run drives the session until the transport closes, the context is
// cancelled, or a join is rejected. It blocks; callers run one
// goroutine per connection.
func (s *Session) Run(ctx context.Context) {
	go s.writePump()

	readDone := make(chan struct{})
	defer s.teardown(ctx)
	defer close(readDone)

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-readDone:
		}
	}()

	for {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClient(frame)
		if err != nil {
			// Malformed input is discarded per message; it never
			// terminates the connection by itself.
			slog.Debug("discarding message", "session", s.id, "error", err)
			continue
		}

		switch msg.Type {
		case proto.TypeJoinRoom:
			id, err := s.router.HandleJoin(ctx, msg, s, s.playerID)
			if err != nil {
				// Admission rejected: the error event is already
				// queued, closing flushes it.
				return
			}
			s.setPlayer(id)

		case proto.TypeMove:
			if s.playerID == "" {
				continue
			}
			s.router.HandleMove(ctx, s.playerID, msg.X, msg.Y, s)
		}
	}
}

// setPlayer records the bound player id and, in multi-process mode,
// repoints the fan-out subscription at it.
func (s *Session) setPlayer(id string) {
	if s.playerID == id {
		return
	}
	s.playerID = id

	if s.sub == nil {
		return
	}
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if id == "" {
		return
	}

	unsub, err := s.sub.Subscribe(messaging.PlayerSubject(id), func(data []byte) {
		s.Send(data)
	})
	if err != nil {
		slog.Warn("subscribing player subject", "session", s.id, "player", id, "error", err)
		return
	}
	s.unsub = unsub
}

// teardown runs the disconnect cleanup exactly once. It uses a
// non-cancelable context so presence state still gets cleaned up when
// the session ends because of shutdown.
func (s *Session) teardown(ctx context.Context) {
	s.teardownOnce.Do(func() {
		if s.unsub != nil {
			s.unsub()
			s.unsub = nil
		}
		s.router.HandleDisconnect(context.WithoutCancel(ctx), s.playerID, s)
		s.Close()
	})
}

// writePump is the transport's single writer. On close it drains what
// it can, then closes the transport, which also unblocks the read loop.
func (s *Session) writePump() {
	for {
		select {
		case data := <-s.queue:
			if err := s.conn.WriteFrame(data); err != nil {
				s.Close()
			}
		case <-s.closed:
			for {
				select {
				case data := <-s.queue:
					if err := s.conn.WriteFrame(data); err != nil {
						slog.Debug("flushing frame", "session", s.id, "error", err)
					}
				default:
					s.conn.Close()
					return
				}
			}
		}
	}
}
