package server

import (
	"encoding/json"
	"time"

	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/room"
)

// MessageType identifies a WebSocket message.
type MessageType string

// Client → server commands.
const (
	MessageTypeCreateRoom        MessageType = "create_room"
	MessageTypeJoinRoom          MessageType = "join_room"
	MessageTypeLeaveRoom         MessageType = "leave_room"
	MessageTypePlayerReady       MessageType = "player_ready"
	MessageTypePlayerAction      MessageType = "player_action"
	MessageTypeListRooms         MessageType = "list_rooms"
	MessageTypeCancelAutoAdvance MessageType = "cancel_auto_advance"
)

// MessageTypeError is the only server→client type named here; the rest are
// room.EventType values carried through unchanged.
const MessageTypeError MessageType = "error"

// Message is the wire envelope in both directions.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope stamped with the current time.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// messageFromEvent converts a room event into a wire message.
func messageFromEvent(event room.Event) (*Message, error) {
	return NewMessage(MessageType(event.Type), event.Data)
}

// Command payloads.

type CreateRoomData struct {
	Username string `json:"username"`
}

type JoinRoomData struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type PlayerReadyData struct {
	RoomID string `json:"roomId"`
	Ready  bool   `json:"ready"`
}

// ActionPayload mirrors game.Action on the wire.
type ActionPayload struct {
	Type        string `json:"type"`
	Amount      int    `json:"amount,omitempty"`
	CardIndices []int  `json:"cardIndices,omitempty"`
}

type PlayerActionData struct {
	RoomID string        `json:"roomId"`
	Action ActionPayload `json:"action"`
}

type CancelAutoAdvanceData struct {
	RoomID string `json:"roomId"`
}

func (a ActionPayload) toGame() game.Action {
	return game.Action{
		Type:        game.ActionType(a.Type),
		Amount:      a.Amount,
		CardIndices: a.CardIndices,
	}
}
