package listener

import (
	"context"

	"github.com/pixil98/go-presence/internal/router"
	"github.com/pixil98/go-presence/internal/session"
)

// ConnectionManager bridges transport listeners to sessions: every
// accepted connection becomes one session running until disconnect.
type ConnectionManager struct {
	rt        *router.Router
	sub       session.Subscriber
	queueSize int
}

func NewConnectionManager(rt *router.Router, sub session.Subscriber, queueSize int) *ConnectionManager {
	return &ConnectionManager{
		rt:        rt,
		sub:       sub,
		queueSize: queueSize,
	}
}

// AcceptConnection runs a session for conn and blocks until it ends.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn session.Conn) {
	s := session.New(conn, m.rt, m.sub, m.queueSize)
	s.Run(ctx)
}
