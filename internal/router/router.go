// Package router implements the protocol state machine: it interprets
// inbound messages, mutates the presence store, and fans resulting
// events out to the connections that need them.
package router

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/pixil98/go-presence/internal/presence"
	"github.com/pixil98/go-presence/internal/proto"
	"github.com/pixil98/go-presence/internal/registry"
)

// ErrJoinRejected signals that a join was refused and the connection
// must be closed. The rejection event has already been queued on the
// connection when this is returned.
var ErrJoinRejected = errors.New("join rejected")

// DefaultProximityThreshold is the distance under which a peer counts
// as nearby, in world length units.
const DefaultProximityThreshold = 100.0

// Publisher delivers an event to a single player, wherever their
// connection lives. Delivery is best-effort.
type Publisher interface {
	PublishToPlayer(playerID string, data []byte) error
}

// Admitter is the optional room-admission collaborator. When nil, every
// room id is accepted; existence checks belong to the room CRUD service.
type Admitter interface {
	CanJoin(roomID string) bool
}

type Router struct {
	store presence.Store
	reg   *registry.Registry
	pub   Publisher

	admit     Admitter
	threshold float64
}

type RouterOpt func(*Router)

// WithProximityThreshold overrides the nearby-event distance.
func WithProximityThreshold(d float64) RouterOpt {
	return func(r *Router) {
		r.threshold = d
	}
}

// WithAdmitter installs a room-admission check.
func WithAdmitter(a Admitter) RouterOpt {
	return func(r *Router) {
		r.admit = a
	}
}

func New(store presence.Store, reg *registry.Registry, pub Publisher, opts ...RouterOpt) *Router {
	r := &Router{
		store:     store,
		reg:       reg,
		pub:       pub,
		threshold: DefaultProximityThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleJoin admits a player to a room and returns the player id now
// bound to the connection. prev is the id from an earlier join on the
// same connection, or empty.
//
// A join while already joined is a room switch: the old membership is
// fully cleaned up, including the player_left broadcast, before the new
// room is entered. A store failure drops the join without an
// acknowledgment; the connection stays open so the client can retry.
func (r *Router) HandleJoin(ctx context.Context, msg *proto.ClientMessage, conn registry.Handle, prev string) (string, error) {
	if !proto.ValidID(msg.PlayerID) {
		conn.Send(proto.Error("missing playerId"))
		return "", ErrJoinRejected
	}
	if !proto.ValidID(msg.RoomID) {
		conn.Send(proto.Error("missing roomId"))
		return "", ErrJoinRejected
	}
	if r.admit != nil && !r.admit.CanJoin(msg.RoomID) {
		conn.Send(proto.Error("room is not open"))
		return "", ErrJoinRejected
	}

	// Membership is exclusive per player: a repeat join leaves the old
	// room first. A join under a different id abandons the old identity
	// entirely.
	if prev != "" {
		if prev == msg.PlayerID {
			r.leaveCurrentRoom(ctx, prev)
		} else {
			r.HandleDisconnect(ctx, prev, conn)
		}
	}

	r.reg.Bind(msg.PlayerID, conn)

	rec := &presence.Record{ID: msg.PlayerID, RoomID: msg.RoomID}
	if err := r.store.SetPlayer(ctx, rec); err != nil {
		slog.Warn("dropping join, presence store unavailable", "player", msg.PlayerID, "room", msg.RoomID, "error", err)
		r.reg.Unbind(msg.PlayerID, conn)
		return "", nil
	}
	if err := r.store.AddMember(ctx, msg.RoomID, msg.PlayerID); err != nil {
		slog.Warn("dropping join, presence store unavailable", "player", msg.PlayerID, "room", msg.RoomID, "error", err)
		if err := r.store.DeletePlayer(ctx, msg.PlayerID); err != nil {
			slog.Warn("rolling back player record", "player", msg.PlayerID, "error", err)
		}
		r.reg.Unbind(msg.PlayerID, conn)
		return "", nil
	}

	conn.Send(proto.RoomJoined(msg.RoomID, msg.PlayerID))
	return msg.PlayerID, nil
}

// HandleMove updates the player's position and notifies the rest of the
// room. The room is whatever the store has on file for the player; move
// messages do not carry one. On any store failure the move is dropped
// without broadcasting, so peers only ever see persisted positions.
func (r *Router) HandleMove(ctx context.Context, playerID string, x, y float64, conn registry.Handle) {
	rec, err := r.store.GetPlayer(ctx, playerID)
	if err != nil {
		slog.Warn("dropping move, presence store unavailable", "player", playerID, "error", err)
		return
	}
	if rec == nil || rec.RoomID == "" {
		return
	}

	rec.X, rec.Y = x, y
	if err := r.store.SetPlayer(ctx, rec); err != nil {
		slog.Warn("dropping move, presence store unavailable", "player", playerID, "error", err)
		return
	}

	members, err := r.store.Members(ctx, rec.RoomID)
	if err != nil {
		slog.Warn("skipping move broadcast, presence store unavailable", "player", playerID, "room", rec.RoomID, "error", err)
		return
	}

	moved := proto.PlayerMoved(playerID, x, y)
	for _, id := range members {
		if id == playerID {
			continue
		}
		if err := r.pub.PublishToPlayer(id, moved); err != nil {
			slog.Debug("publishing move", "to", id, "error", err)
		}

		// Proximity is one-directional: only the mover learns about
		// newly close peers on its own move. Peers discover the reverse
		// relation when they next move themselves.
		peer, err := r.store.GetPlayer(ctx, id)
		if err != nil || peer == nil {
			continue
		}
		if math.Hypot(x-peer.X, y-peer.Y) < r.threshold {
			conn.Send(proto.Nearby(id))
		}
	}
}

// HandleDisconnect tears down a joined player: membership, departure
// broadcast, record, registry binding, in that order. Every step runs
// even when an earlier one fails; cleanup is best-effort but must not
// leave the registry entry dangling.
func (r *Router) HandleDisconnect(ctx context.Context, playerID string, conn registry.Handle) {
	if playerID == "" {
		return
	}

	r.leaveCurrentRoom(ctx, playerID)

	if err := r.store.DeletePlayer(ctx, playerID); err != nil {
		slog.Warn("deleting player record", "player", playerID, "error", err)
	}
	r.reg.Unbind(playerID, conn)
}

// leaveCurrentRoom removes the player from whichever room the store has
// on file and tells the remaining members. No-op when the player has no
// record, which also makes disconnect cleanup idempotent.
func (r *Router) leaveCurrentRoom(ctx context.Context, playerID string) {
	rec, err := r.store.GetPlayer(ctx, playerID)
	if err != nil {
		slog.Warn("looking up player room", "player", playerID, "error", err)
		return
	}
	if rec == nil || rec.RoomID == "" {
		return
	}

	if err := r.store.RemoveMember(ctx, rec.RoomID, playerID); err != nil {
		slog.Warn("removing room membership", "player", playerID, "room", rec.RoomID, "error", err)
	}
	r.broadcast(ctx, rec.RoomID, playerID, proto.PlayerLeft(playerID))
}

// broadcast fans data out to every current room member except exclude.
// The membership snapshot is advisory: a member removed a moment ago
// may still get one attempt, and a resolution miss is simply skipped.
func (r *Router) broadcast(ctx context.Context, roomID, exclude string, data []byte) {
	members, err := r.store.Members(ctx, roomID)
	if err != nil {
		slog.Warn("skipping broadcast, presence store unavailable", "room", roomID, "error", err)
		return
	}
	for _, id := range members {
		if id == exclude {
			continue
		}
		if err := r.pub.PublishToPlayer(id, data); err != nil {
			slog.Debug("publishing broadcast", "to", id, "error", err)
		}
	}
}
