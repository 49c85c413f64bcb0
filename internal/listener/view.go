package listener

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pixil98/go-presence/internal/presence"
)

// roomPresence is the read-only view of a room's live occupancy,
// consumed by the room-listing API for player counts. Its JSON shape is
// a cross-service contract: string ids, numeric coordinates.
type roomPresence struct {
	RoomID      string            `json:"roomId"`
	PlayerCount int               `json:"playerCount"`
	Players     []presence.Record `json:"players"`
}

func (l *WebsocketListener) handleRoomPresence(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")

	members, err := l.store.Members(r.Context(), roomID)
	if err != nil {
		http.Error(w, "presence store unavailable", http.StatusServiceUnavailable)
		return
	}

	players := make([]presence.Record, 0, len(members))
	for _, id := range members {
		rec, err := l.store.GetPlayer(r.Context(), id)
		if err != nil || rec == nil {
			// A member mid-teardown may have no record; skip it.
			continue
		}
		players = append(players, *rec)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(roomPresence{
		RoomID:      roomID,
		PlayerCount: len(members),
		Players:     players,
	}); err != nil {
		slog.Debug("writing presence view", "room", roomID, "error", err)
	}
}
