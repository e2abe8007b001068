package room

import (
	"time"

	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/view"
)

// EventType identifies a server→client event.
type EventType string

const (
	EventRoomCreated          EventType = "room_created"
	EventRoomJoined           EventType = "room_joined"
	EventRoomLeft             EventType = "room_left"
	EventPlayerJoined         EventType = "player_joined"
	EventPlayerLeft           EventType = "player_left"
	EventPlayerReadyChanged   EventType = "player_ready_changed"
	EventGameStarted          EventType = "game_started"
	EventGameStateUpdated     EventType = "game_state_updated"
	EventMatchComplete        EventType = "match_complete"
	EventRoomsUpdated         EventType = "rooms_updated"
	EventRoomTerminated       EventType = "room_terminated"
	EventAutoAdvanceCancelled EventType = "auto_advance_cancelled"
	EventError                EventType = "error"
)

// Event is a typed payload destined for one or more connections.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Sender delivers events to connections. Send failures are the sender's to
// report; the room layer logs them and moves on — delivery to one viewer
// never blocks or rolls back anything.
type Sender interface {
	// Send delivers an event to a single connection.
	Send(connID string, event Event) error
	// Broadcast delivers an event to every connection (lobby updates).
	Broadcast(event Event)
}

// PlayerInfo describes one seat's occupant in membership events.
type PlayerInfo struct {
	Username string `json:"username"`
	Seat     int    `json:"seat"`
	Ready    bool   `json:"ready"`
}

// Summary is the lobby listing entry for a room.
type Summary struct {
	Code        string    `json:"code"`
	Status      Status    `json:"status"`
	Players     []string  `json:"players"`
	PlayerCount int       `json:"playerCount"`
	Joinable    bool      `json:"joinable"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Event payloads.

type RoomCreatedData struct {
	Code string `json:"code"`
	Seat int    `json:"seat"`
}

type RoomJoinedData struct {
	Code    string       `json:"code"`
	Seat    int          `json:"seat"`
	Players []PlayerInfo `json:"players"`
}

type RoomLeftData struct {
	Code string `json:"code"`
}

type PlayerJoinedData struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	Seat     int    `json:"seat"`
}

type PlayerLeftData struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	Seat     int    `json:"seat"`
}

type PlayerReadyChangedData struct {
	Code     string `json:"code"`
	Username string `json:"username"`
	Seat     int    `json:"seat"`
	Ready    bool   `json:"ready"`
}

type GameStartedData struct {
	Code          string `json:"code"`
	StartingSeat  int    `json:"startingSeat"`
	StartingChips int    `json:"startingChips"`
}

type GameStateData struct {
	Code string    `json:"code"`
	View view.View `json:"view"`
}

type MatchCompleteData struct {
	Code   string           `json:"code"`
	Result game.MatchResult `json:"result"`
}

type RoomsUpdatedData struct {
	Rooms []Summary `json:"rooms"`
}

type RoomTerminatedData struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type AutoAdvanceCancelledData struct {
	Code string `json:"code"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
