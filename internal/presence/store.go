package presence

import "context"

// Record is the durable presence entry for a single player. It is the
// cross-component contract read by room-listing consumers, so its JSON
// shape (string identifiers, numeric coordinates) must stay stable.
type Record struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	RoomID string  `json:"roomId"`
}

// Store tracks which players are present, where they are, and which room
// they occupy. It is the only state shared between connections, so every
// operation must be individually atomic; callers never get atomicity
// across a sequence of calls.
//
// Mutations are idempotent: adding a member twice, or removing an absent
// one, is a no-op. Membership reads are snapshots and may be slightly
// stale under concurrent mutation.
type Store interface {
	// AddMember adds a player to a room's membership set.
	AddMember(ctx context.Context, roomID, playerID string) error

	// RemoveMember removes a player from a room's membership set.
	RemoveMember(ctx context.Context, roomID, playerID string) error

	// Members returns a snapshot of the room's member ids.
	Members(ctx context.Context, roomID string) ([]string, error)

	// RoomCount returns the number of members in a room. An empty room
	// and an unknown room both count as zero.
	RoomCount(ctx context.Context, roomID string) (int, error)

	// SetPlayer writes a whole player record. Writes are total, not
	// partial patches, so last-write-wins applies to the full record.
	SetPlayer(ctx context.Context, rec *Record) error

	// GetPlayer returns the player's record, or nil if absent.
	GetPlayer(ctx context.Context, playerID string) (*Record, error)

	// DeletePlayer removes the player's record. It does not touch room
	// membership; callers tear down membership first, then the record.
	DeletePlayer(ctx context.Context, playerID string) error
}
