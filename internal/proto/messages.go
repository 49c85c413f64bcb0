// Package proto defines the wire protocol: tagged-union JSON messages
// over any ordered, bidirectional frame transport.
package proto

import (
	"encoding/json"
	"errors"
	"regexp"
)

// Message types.
const (
	TypeJoinRoom    = "join_room"
	TypeMove        = "move"
	TypeRoomJoined  = "room_joined"
	TypeError       = "error"
	TypePlayerMoved = "player_moved"
	TypeNearby      = "nearby"
	TypePlayerLeft  = "player_left"
)

var (
	// ErrMalformed marks an unparseable or type-less payload. Callers
	// discard the message silently; it never terminates the connection.
	ErrMalformed = errors.New("malformed message")

	// ErrUnknownType marks a payload whose type is not recognized.
	// Discarded the same way.
	ErrUnknownType = errors.New("unknown message type")
)

// identifierPattern constrains player and room ids to characters that
// are safe as store key tokens and broadcast subject tokens.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidID reports whether s is usable as a player or room identifier.
func ValidID(s string) bool {
	return identifierPattern.MatchString(s)
}

// ClientMessage is the union of inbound message shapes. Type selects
// which fields are meaningful.
type ClientMessage struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"playerId,omitempty"`
	RoomID   string  `json:"roomId,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
}

// DecodeClient parses an inbound frame. It returns ErrMalformed for
// unparseable or type-less payloads and ErrUnknownType for types this
// server does not handle.
func DecodeClient(data []byte) (*ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, ErrMalformed
	}
	switch m.Type {
	case TypeJoinRoom, TypeMove:
		return &m, nil
	case "":
		return nil, ErrMalformed
	default:
		return nil, ErrUnknownType
	}
}

type roomJoinedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	ID     string `json:"id"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type playerMovedMessage struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type nearbyMessage struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

type playerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RoomJoined acknowledges a successful join to the initiating connection.
func RoomJoined(roomID, playerID string) []byte {
	return marshal(roomJoinedMessage{Type: TypeRoomJoined, RoomID: roomID, ID: playerID})
}

// Error reports an admission failure; the connection closes after it.
func Error(message string) []byte {
	return marshal(errorMessage{Type: TypeError, Message: message})
}

// PlayerMoved announces a position change to room peers.
func PlayerMoved(playerID string, x, y float64) []byte {
	return marshal(playerMovedMessage{Type: TypePlayerMoved, ID: playerID, X: x, Y: y})
}

// Nearby tells the mover a peer is within the proximity threshold.
func Nearby(peerID string) []byte {
	return marshal(nearbyMessage{Type: TypeNearby, PeerID: peerID})
}

// PlayerLeft announces a departure to the remaining room members.
func PlayerLeft(playerID string) []byte {
	return marshal(playerLeftMessage{Type: TypePlayerLeft, ID: playerID})
}

func marshal(v any) []byte {
	// These shapes cannot fail to marshal.
	data, _ := json.Marshal(v)
	return data
}
