package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-presence/internal/presence"
)

// WebsocketListener is the primary transport: an HTTP server upgrading
// connections at a configurable path, plus the read-only presence view
// consumed by the room-listing API.
type WebsocketListener struct {
	port     uint16
	path     string
	cm       *ConnectionManager
	store    presence.Store
	upgrader websocket.Upgrader
}

func NewWebsocketListener(port uint16, path string, cm *ConnectionManager, store presence.Store) *WebsocketListener {
	if path == "" {
		path = "/ws"
	}
	return &WebsocketListener{
		port:  port,
		path:  path,
		cm:    cm,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Admission happens before connections reach this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the HTTP mux. Sessions inherit ctx, so cancelling it
// closes every connection accepted through this handler.
func (l *WebsocketListener) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := l.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.WarnContext(r.Context(), "websocket upgrade", "remote", r.RemoteAddr, "error", err)
			return
		}
		l.cm.AcceptConnection(ctx, &wsConn{conn: conn})
	})
	mux.HandleFunc("GET /presence/rooms/{roomId}", l.handleRoomPresence)
	return mux
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", l.port),
		Handler: l.Handler(connCtx),
	}

	go func() {
		<-ctx.Done()
		// Close sessions first; upgraded connections are hijacked and
		// Shutdown won't wait for them.
		cancelConns()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down websocket listener", "error", err)
		}
	}()

	slog.InfoContext(ctx, "listening for websocket connections", "port", l.port, "path", l.path)

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
}

// wsConn adapts a gorilla connection to the session frame interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteFrame(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
