package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/roomcode"
	"github.com/cardtable/jokerdraw/internal/view"
)

// Lifecycle parameters.
const (
	MaxSeats         = 2
	AutoAdvanceDelay = 5 * time.Second
	IdleTimeout      = 3 * time.Minute
	SweepInterval    = 30 * time.Second
)

// Capacity and lifecycle errors, reported to the caller only.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrDuplicateUsername = errors.New("username already taken in this room")
	ErrNotInRoom         = errors.New("not a member of this room")
	ErrNotInProgress     = errors.New("no match in progress")
	ErrAlreadyStarted    = errors.New("match already started")
)

// Manager owns the room collection. The rooms map is guarded by mu; each
// room serializes its own mutations with its own lock, keeping unrelated
// rooms fully parallel.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	codes    *roomcode.Generator
	sender   Sender
	logger   *log.Logger
	clock    quartz.Clock
	gameOpts []game.Option

	autoAdvanceDelay time.Duration
	idleTimeout      time.Duration
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithClock injects the clock driving auto-advance and the sweep; tests use
// a quartz mock.
func WithClock(clock quartz.Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithCodeSource injects room-code randomness.
func WithCodeSource(src roomcode.RandSource) ManagerOption {
	return func(m *Manager) { m.codes = roomcode.NewGenerator(src) }
}

// WithGameOptions forwards options to every match the manager creates.
func WithGameOptions(opts ...game.Option) ManagerOption {
	return func(m *Manager) { m.gameOpts = opts }
}

// WithTimings overrides the auto-advance delay and idle timeout. Zero
// values keep the defaults.
func WithTimings(autoAdvance, idle time.Duration) ManagerOption {
	return func(m *Manager) {
		if autoAdvance > 0 {
			m.autoAdvanceDelay = autoAdvance
		}
		if idle > 0 {
			m.idleTimeout = idle
		}
	}
}

// NewManager creates a room manager that publishes through sender.
func NewManager(sender Sender, logger *log.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		rooms:            make(map[string]*Room),
		codes:            roomcode.NewGenerator(nil),
		sender:           sender,
		logger:           logger.WithPrefix("rooms"),
		clock:            quartz.NewReal(),
		autoAdvanceDelay: AutoAdvanceDelay,
		idleTimeout:      IdleTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the periodic inactivity sweep until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CreateRoom allocates a room and seats the creator at seat 0.
func (m *Manager) CreateRoom(connID, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username required")
	}

	m.mu.Lock()
	code, err := m.codes.GenerateUnused(func(c string) bool {
		_, taken := m.rooms[c]
		return taken
	})
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	r := newRoom(code, m.clock.Now())
	r.players[username] = &PlayerConnection{
		ConnID:   connID,
		Username: username,
		Seat:     0,
		JoinedAt: m.clock.Now(),
	}
	m.rooms[code] = r
	m.mu.Unlock()

	m.logger.Info("room created", "code", code, "creator", username)
	m.send(connID, Event{Type: EventRoomCreated, Data: RoomCreatedData{Code: code, Seat: 0}})
	m.broadcastRooms()
	return code, nil
}

// JoinRoom seats username at the next free seat. Membership is applied
// before any notification is computed, so the joiner always sees their own
// membership.
func (m *Manager) JoinRoom(connID, code, username string) error {
	r, err := m.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.players[username]; exists {
		r.mu.Unlock()
		return ErrDuplicateUsername
	}
	seat, ok := r.freeSeat()
	if !ok {
		r.mu.Unlock()
		return ErrRoomFull
	}
	r.players[username] = &PlayerConnection{
		ConnID:   connID,
		Username: username,
		Seat:     seat,
		JoinedAt: m.clock.Now(),
	}
	r.lastActivity = m.clock.Now()
	members := r.memberInfos()
	recipients := r.connIDsExcept(username)
	r.mu.Unlock()

	m.logger.Info("player joined", "code", code, "player", username, "seat", seat)
	m.send(connID, Event{Type: EventRoomJoined, Data: RoomJoinedData{Code: code, Seat: seat, Players: members}})
	for _, id := range recipients {
		m.send(id, Event{Type: EventPlayerJoined, Data: PlayerJoinedData{Code: code, Username: username, Seat: seat}})
	}
	m.broadcastRooms()
	return nil
}

// LeaveRoom frees username's seat. An empty room is deleted; a departure
// mid-match resets the room to waiting and discards the match.
func (m *Manager) LeaveRoom(code, username string) error {
	r, err := m.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	pc, ok := r.players[username]
	if !ok {
		r.mu.Unlock()
		return ErrNotInRoom
	}
	delete(r.players, username)
	r.lastActivity = m.clock.Now()

	empty := len(r.players) == 0
	abandoned := !empty && r.status == StatusInProgress
	if abandoned {
		// The opponent cannot continue alone; the room reverts to waiting.
		r.Game = nil
		r.status = StatusWaiting
		r.stopAutoAdvance()
		for _, other := range r.players {
			other.Ready = false
		}
	}
	if empty {
		r.stopAutoAdvance()
	}
	remaining := r.connIDs()
	r.mu.Unlock()

	m.send(pc.ConnID, Event{Type: EventRoomLeft, Data: RoomLeftData{Code: code}})
	if empty {
		m.remove(code)
	} else {
		for _, id := range remaining {
			m.send(id, Event{Type: EventPlayerLeft, Data: PlayerLeftData{Code: code, Username: username, Seat: pc.Seat}})
		}
	}
	m.logger.Info("player left", "code", code, "player", username, "roomEmpty", empty)
	m.broadcastRooms()
	return nil
}

// SetReady flips username's ready flag and starts the match once both
// seats are filled and ready.
func (m *Manager) SetReady(code, username string, ready bool) error {
	r, err := m.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pc, ok := r.players[username]
	if !ok {
		return ErrNotInRoom
	}
	if r.status != StatusWaiting {
		return ErrAlreadyStarted
	}
	pc.Ready = ready
	r.lastActivity = m.clock.Now()

	for _, id := range r.connIDs() {
		m.send(id, Event{Type: EventPlayerReadyChanged, Data: PlayerReadyChangedData{
			Code: code, Username: username, Seat: pc.Seat, Ready: ready,
		}})
	}

	if r.allReady() {
		m.startMatch(r)
	}
	return nil
}

// startMatch begins play; r.mu is held.
func (m *Manager) startMatch(r *Room) {
	var names [2]string
	for seat := 0; seat < MaxSeats; seat++ {
		names[seat] = r.bySeat(seat).Username
	}
	r.Game = game.NewMatch(r.Code, names, m.gameOpts...)
	if err := r.Game.StartHand(); err != nil {
		m.logger.Error("failed to start match", "code", r.Code, "error", err)
		r.Game = nil
		return
	}
	r.status = StatusInProgress
	m.logger.Info("match started", "code", r.Code, "players", names)

	for _, id := range r.connIDs() {
		m.send(id, Event{Type: EventGameStarted, Data: GameStartedData{
			Code:          r.Code,
			StartingSeat:  r.Game.StartingPlayer,
			StartingChips: r.Game.StartingChips(),
		}})
	}
	m.afterMutation(r)
	go m.broadcastRooms()
}

// HandleAction forwards a validated action for username's seat into the
// match. Validation errors return to the caller without touching the room.
func (m *Manager) HandleAction(code, username string, act game.Action) error {
	r, err := m.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seat, ok := r.seatOf(username)
	if !ok {
		return ErrNotInRoom
	}
	if r.status != StatusInProgress || r.Game == nil {
		return ErrNotInProgress
	}

	// An explicit next-hand request replaces the pending deferred one.
	if act.Type == game.ActionNextHand {
		r.stopAutoAdvance()
	}

	if err := r.Game.Apply(seat, act); err != nil {
		return err
	}
	r.lastActivity = m.clock.Now()
	m.afterMutation(r)
	return nil
}

// CancelAutoAdvance cancels the pending deferred next-hand, if any.
func (m *Manager) CancelAutoAdvance(code, username string) error {
	r, err := m.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[username]; !ok {
		return ErrNotInRoom
	}
	if !r.stopAutoAdvance() {
		return nil
	}
	r.lastActivity = m.clock.Now()
	for _, id := range r.connIDs() {
		m.send(id, Event{Type: EventAutoAdvanceCancelled, Data: AutoAdvanceCancelledData{Code: code}})
	}
	return nil
}

// ActiveRooms returns a lobby snapshot.
func (m *Manager) ActiveRooms() []Summary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		summaries = append(summaries, r.summary())
		r.mu.Unlock()
	}
	return summaries
}

// Counts reports total and in-progress room counts for health endpoints.
func (m *Manager) Counts() (total, inProgress int) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		r.mu.Lock()
		if r.status == StatusInProgress {
			inProgress++
		}
		r.mu.Unlock()
	}
	return len(rooms), inProgress
}

// Sweep removes rooms that are idle beyond IdleTimeout and not playing,
// notifying surviving connections first.
func (m *Manager) Sweep() {
	m.mu.RLock()
	candidates := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		candidates = append(candidates, r)
	}
	m.mu.RUnlock()

	removed := false
	now := m.clock.Now()
	for _, r := range candidates {
		r.mu.Lock()
		expired := r.status != StatusInProgress && now.Sub(r.lastActivity) > m.idleTimeout
		var recipients []string
		if expired {
			r.stopAutoAdvance()
			recipients = r.connIDs()
		}
		code := r.Code
		r.mu.Unlock()

		if !expired {
			continue
		}
		for _, id := range recipients {
			m.send(id, Event{Type: EventRoomTerminated, Data: RoomTerminatedData{
				Code: code, Reason: "room closed after inactivity",
			}})
		}
		m.remove(code)
		m.logger.Info("swept idle room", "code", code)
		removed = true
	}
	if removed {
		m.broadcastRooms()
	}
}

// afterMutation publishes per-seat masked views and manages hand/match
// progression side effects. r.mu is held.
func (m *Manager) afterMutation(r *Room) {
	g := r.Game
	for seat := 0; seat < MaxSeats; seat++ {
		pc := r.bySeat(seat)
		if pc == nil {
			continue
		}
		// One immutable projection per seat, dispatched independently; a
		// failed delivery is logged by send and never rolls anything back.
		v := view.Project(g, seat)
		m.send(pc.ConnID, Event{Type: EventGameStateUpdated, Data: GameStateData{Code: r.Code, View: v}})
	}

	switch g.Phase {
	case game.PhaseHandComplete:
		m.armAutoAdvance(r)
	case game.PhaseMatchComplete:
		r.stopAutoAdvance()
		r.status = StatusComplete
		for _, id := range r.connIDs() {
			m.send(id, Event{Type: EventMatchComplete, Data: MatchCompleteData{Code: r.Code, Result: *g.Result}})
		}
		go m.broadcastRooms()
	}
}

// armAutoAdvance schedules the deferred next-hand, atomically replacing any
// pending one. r.mu is held.
func (m *Manager) armAutoAdvance(r *Room) {
	r.stopAutoAdvance()
	code, gen := r.Code, r.autoAdvanceGen
	r.autoAdvance = m.clock.AfterFunc(m.autoAdvanceDelay, func() {
		m.fireAutoAdvance(code, gen)
	})
}

// fireAutoAdvance runs on the timer goroutine and re-enters through the
// room lock like any other command. A timer may fire and then wait on the
// lock while an explicit advance lands and arms a fresh timer; the
// generation check discards such stale fires before they can touch the
// newer hand.
func (m *Manager) fireAutoAdvance(code string, gen uint64) {
	r, err := m.lookup(code)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.autoAdvanceGen {
		return
	}
	r.autoAdvance = nil
	if r.status != StatusInProgress || r.Game == nil || r.Game.Phase != game.PhaseHandComplete {
		return
	}
	if err := r.Game.AdvanceHand(); err != nil {
		m.logger.Error("auto-advance failed", "code", code, "error", err)
		return
	}
	r.lastActivity = m.clock.Now()
	m.logger.Debug("auto-advanced to next hand", "code", code, "hand", r.Game.HandNum)
	m.afterMutation(r)
}

func (m *Manager) lookup(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return r, nil
}

func (m *Manager) remove(code string) {
	m.mu.Lock()
	delete(m.rooms, code)
	m.mu.Unlock()
}

func (m *Manager) send(connID string, event Event) {
	if err := m.sender.Send(connID, event); err != nil {
		m.logger.Error("event delivery failed", "conn", connID, "type", event.Type, "error", err)
	}
}

func (m *Manager) broadcastRooms() {
	m.sender.Broadcast(Event{Type: EventRoomsUpdated, Data: RoomsUpdatedData{Rooms: m.ActiveRooms()}})
}

// Helpers on Room that need no manager state; r.mu held.

func (r *Room) connIDs() []string {
	ids := make([]string, 0, len(r.players))
	for _, pc := range r.players {
		ids = append(ids, pc.ConnID)
	}
	return ids
}

func (r *Room) connIDsExcept(username string) []string {
	ids := make([]string, 0, len(r.players))
	for name, pc := range r.players {
		if name != username {
			ids = append(ids, pc.ConnID)
		}
	}
	return ids
}
