package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cardtable/jokerdraw/internal/room"
	"github.com/cardtable/jokerdraw/internal/roomcode"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client. The connection ID is the stable
// handle the room layer addresses events to; the username/room association
// is set by the first successful create or join.
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	username  string
	roomCode  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	manager   *room.Manager
}

// NewConnection wraps an upgraded WebSocket connection.
func NewConnection(conn *websocket.Conn, logger *log.Logger, manager *room.Manager) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Connection{
		id:      id,
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn").With("conn", id[:8]),
		ctx:     ctx,
		cancel:  cancel,
		manager: manager,
	}
}

// ID returns the connection's stable identifier.
func (c *Connection) ID() string { return c.id }

// Start begins the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down exactly once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for delivery. A full buffer closes the
// connection rather than blocking the room layer.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Send channel closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) setIdentity(username, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.roomCode = code
}

func (c *Connection) clearRoom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = ""
}

// Identity returns the username and room association, either may be empty.
func (c *Connection) Identity() (username, roomCode string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username, c.roomCode
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage routes one client command. Every failure goes back to this
// caller as an error event; other seats never hear about it.
func (c *Connection) handleMessage(msg *Message) {
	username, _ := c.Identity()
	c.logger.Debug("received message", "type", msg.Type, "player", username)

	switch msg.Type {
	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse create room data")
			return
		}
		c.handleCreateRoom(data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse leave room data")
			return
		}
		c.handleLeaveRoom(data)

	case MessageTypePlayerReady:
		var data PlayerReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse ready data")
			return
		}
		c.handlePlayerReady(data)

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		c.handlePlayerAction(data)

	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeCancelAutoAdvance:
		var data CancelAutoAdvanceData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse cancel data")
			return
		}
		c.handleCancelAutoAdvance(data)

	default:
		c.sendError("unknown_message_type", "unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleCreateRoom(data CreateRoomData) {
	if data.Username == "" {
		c.sendError("invalid_username", "username required")
		return
	}

	code, err := c.manager.CreateRoom(c.id, data.Username)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.setIdentity(data.Username, code)
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	if data.Username == "" {
		c.sendError("invalid_username", "username required")
		return
	}
	if !roomcode.Valid(data.RoomID) {
		c.sendError("invalid_room_code", "malformed room code")
		return
	}

	if err := c.manager.JoinRoom(c.id, data.RoomID, data.Username); err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.setIdentity(data.Username, data.RoomID)
}

func (c *Connection) handleLeaveRoom(data LeaveRoomData) {
	username, _ := c.Identity()
	if username == "" {
		c.sendError("not_in_room", "join a room first")
		return
	}

	if err := c.manager.LeaveRoom(data.RoomID, username); err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.clearRoom()
}

func (c *Connection) handlePlayerReady(data PlayerReadyData) {
	username, _ := c.Identity()
	if username == "" {
		c.sendError("not_in_room", "join a room first")
		return
	}

	if err := c.manager.SetReady(data.RoomID, username, data.Ready); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) handlePlayerAction(data PlayerActionData) {
	username, _ := c.Identity()
	if username == "" {
		c.sendError("not_in_room", "join a room first")
		return
	}

	if err := c.manager.HandleAction(data.RoomID, username, data.Action.toGame()); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
	// No direct response; state updates flow back as events.
}

func (c *Connection) handleListRooms() {
	msg, err := NewMessage(MessageType(room.EventRoomsUpdated), room.RoomsUpdatedData{
		Rooms: c.manager.ActiveRooms(),
	})
	if err != nil {
		c.logger.Error("failed to build room list", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) handleCancelAutoAdvance(data CancelAutoAdvanceData) {
	username, _ := c.Identity()
	if username == "" {
		c.sendError("not_in_room", "join a room first")
		return
	}

	if err := c.manager.CancelAutoAdvance(data.RoomID, username); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, room.ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// errorCode classifies a command failure for the wire. Anything not a known
// capacity or lifecycle error is a validation rejection from the game.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, room.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, room.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, room.ErrNotInProgress), errors.Is(err, room.ErrAlreadyStarted):
		return "invalid_room_state"
	case errors.Is(err, roomcode.ErrExhausted):
		return "capacity_exhausted"
	default:
		return "invalid_action"
	}
}
