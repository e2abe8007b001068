package room

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/jokerdraw/internal/deck"
	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/roomcode"
)

// recorder captures delivered events for assertions. Timer callbacks fire
// on their own goroutines, so access is locked.
type recorder struct {
	mu         sync.Mutex
	sent       map[string][]Event
	broadcasts []Event
}

func newRecorder() *recorder {
	return &recorder{sent: make(map[string][]Event)}
}

func (r *recorder) Send(connID string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[connID] = append(r.sent[connID], event)
	return nil
}

func (r *recorder) Broadcast(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, event)
}

func (r *recorder) lastOfType(connID string, t EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.sent[connID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			return events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) countOfType(connID string, t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.sent[connID] {
		if e.Type == t {
			n++
		}
	}
	return n
}

func newTestManager(t *testing.T) (*Manager, *recorder, *quartz.Mock) {
	t.Helper()
	rec := newRecorder()
	mock := quartz.NewMock(t)
	m := NewManager(rec, log.New(io.Discard),
		WithClock(mock),
		WithGameOptions(game.WithRandSource(deck.SeededSource(42))),
	)
	return m, rec, mock
}

// fullRoom creates a room with alice seated at 0 and bob joined at 1.
func fullRoom(t *testing.T, m *Manager) string {
	t.Helper()
	code, err := m.CreateRoom("conn-alice", "alice")
	require.NoError(t, err)
	require.NoError(t, m.JoinRoom("conn-bob", code, "bob"))
	return code
}

// startedRoom readies both players so a match is live.
func startedRoom(t *testing.T, m *Manager) string {
	t.Helper()
	code := fullRoom(t, m)
	require.NoError(t, m.SetReady(code, "alice", true))
	require.NoError(t, m.SetReady(code, "bob", true))
	return code
}

// playHand drives one full hand to completion with the quietest line:
// check, check, both stand pat, check, check, showdown.
func playHand(t *testing.T, m *Manager, code string) {
	t.Helper()
	r := m.rooms[code]
	users := [2]string{"alice", "bob"}

	act := func(seat int, a game.Action) {
		require.NoError(t, m.HandleAction(code, users[seat], a))
	}

	r.mu.Lock()
	start := r.Game.StartingPlayer
	r.mu.Unlock()

	act(start, game.Action{Type: game.ActionCheck})
	act(1-start, game.Action{Type: game.ActionCheck})
	act(start, game.Action{Type: game.ActionDiscard})
	act(1-start, game.Action{Type: game.ActionDiscard})
	act(start, game.Action{Type: game.ActionCheck})
	act(1-start, game.Action{Type: game.ActionCheck})

	r.mu.Lock()
	phase := r.Game.Phase
	r.mu.Unlock()
	require.Contains(t, []game.Phase{game.PhaseHandComplete, game.PhaseMatchComplete}, phase)
}

func TestCreateRoom(t *testing.T) {
	m, rec, _ := newTestManager(t)

	code, err := m.CreateRoom("conn-alice", "alice")
	require.NoError(t, err)
	assert.True(t, roomcode.Valid(code))

	created, ok := rec.lastOfType("conn-alice", EventRoomCreated)
	require.True(t, ok)
	data := created.Data.(RoomCreatedData)
	assert.Equal(t, code, data.Code)
	assert.Equal(t, 0, data.Seat)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.broadcasts)
	assert.Equal(t, EventRoomsUpdated, rec.broadcasts[len(rec.broadcasts)-1].Type)
}

func TestCreateRoomRequiresUsername(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.CreateRoom("conn-1", "")
	require.Error(t, err)
}

func TestJoinRoom(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code := fullRoom(t, m)

	joined, ok := rec.lastOfType("conn-bob", EventRoomJoined)
	require.True(t, ok)
	data := joined.Data.(RoomJoinedData)
	assert.Equal(t, code, data.Code)
	assert.Equal(t, 1, data.Seat)
	require.Len(t, data.Players, 2)
	assert.Equal(t, "alice", data.Players[0].Username)
	assert.Equal(t, "bob", data.Players[1].Username)

	notice, ok := rec.lastOfType("conn-alice", EventPlayerJoined)
	require.True(t, ok)
	assert.Equal(t, "bob", notice.Data.(PlayerJoinedData).Username)
}

func TestJoinRoomErrors(t *testing.T) {
	m, _, _ := newTestManager(t)
	code := fullRoom(t, m)

	require.ErrorIs(t, m.JoinRoom("conn-x", "ZZZZZZ", "carol"), ErrRoomNotFound)
	require.ErrorIs(t, m.JoinRoom("conn-x", code, "alice"), ErrDuplicateUsername)
	require.ErrorIs(t, m.JoinRoom("conn-x", code, "carol"), ErrRoomFull)
}

func TestReadyStartsMatch(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code := fullRoom(t, m)

	require.NoError(t, m.SetReady(code, "alice", true))
	_, started := rec.lastOfType("conn-alice", EventGameStarted)
	assert.False(t, started, "match must not start with one player ready")

	require.NoError(t, m.SetReady(code, "bob", true))
	for _, conn := range []string{"conn-alice", "conn-bob"} {
		ev, ok := rec.lastOfType(conn, EventGameStarted)
		require.True(t, ok, "%s missing game_started", conn)
		data := ev.Data.(GameStartedData)
		assert.Equal(t, code, data.Code)
		assert.Equal(t, game.DefaultStartingChips, data.StartingChips)
	}

	r := m.rooms[code]
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, StatusInProgress, r.status)
	require.NotNil(t, r.Game)
	assert.Equal(t, game.PhasePreDrawBetting, r.Game.Phase)
}

func TestGameStartReportsConfiguredChips(t *testing.T) {
	rec := newRecorder()
	m := NewManager(rec, log.New(io.Discard),
		WithClock(quartz.NewMock(t)),
		WithGameOptions(
			game.WithRandSource(deck.SeededSource(42)),
			game.WithStartingChips(150),
			game.WithAnte(10),
		),
	)
	startedRoom(t, m)

	for _, conn := range []string{"conn-alice", "conn-bob"} {
		ev, ok := rec.lastOfType(conn, EventGameStarted)
		require.True(t, ok)
		assert.Equal(t, 150, ev.Data.(GameStartedData).StartingChips)
	}
}

func TestReadyAfterStartRejected(t *testing.T) {
	m, _, _ := newTestManager(t)
	code := startedRoom(t, m)
	require.ErrorIs(t, m.SetReady(code, "alice", false), ErrAlreadyStarted)
}

func TestViewsAreMaskedPerSeat(t *testing.T) {
	m, rec, _ := newTestManager(t)
	startedRoom(t, m)

	for conn, seat := range map[string]int{"conn-alice": 0, "conn-bob": 1} {
		ev, ok := rec.lastOfType(conn, EventGameStateUpdated)
		require.True(t, ok)
		v := ev.Data.(GameStateData).View
		assert.Equal(t, seat, v.Viewer)
		for _, c := range v.Players[seat].Hand {
			if !c.Joker {
				assert.NotNil(t, c.Rank, "own cards must be visible")
			}
		}
		for _, c := range v.Players[1-seat].Hand {
			assert.Nil(t, c.Rank, "opponent cards must be masked")
			assert.False(t, c.Joker)
		}
	}
}

func TestHandleActionErrors(t *testing.T) {
	m, _, _ := newTestManager(t)
	code := fullRoom(t, m)

	err := m.HandleAction(code, "alice", game.Action{Type: game.ActionCheck})
	require.ErrorIs(t, err, ErrNotInProgress)
	require.ErrorIs(t, m.HandleAction(code, "carol", game.Action{Type: game.ActionCheck}), ErrNotInRoom)
	require.ErrorIs(t, m.HandleAction("ZZZZZZ", "alice", game.Action{Type: game.ActionCheck}), ErrRoomNotFound)
}

func TestActionPushesStateToBothSeats(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code := startedRoom(t, m)

	r := m.rooms[code]
	r.mu.Lock()
	start := r.Game.StartingPlayer
	r.mu.Unlock()
	users := [2]string{"alice", "bob"}

	before := rec.countOfType("conn-alice", EventGameStateUpdated)
	require.NoError(t, m.HandleAction(code, users[start], game.Action{Type: game.ActionBet, Amount: 5}))
	assert.Equal(t, before+1, rec.countOfType("conn-alice", EventGameStateUpdated))
	assert.Equal(t, before+1, rec.countOfType("conn-bob", EventGameStateUpdated))
}

func TestAutoAdvanceFiresAfterDelay(t *testing.T) {
	m, _, mock := newTestManager(t)
	code := startedRoom(t, m)
	playHand(t, m, code)

	ctx := context.Background()
	mock.Advance(AutoAdvanceDelay).MustWait(ctx)

	r := m.rooms[code]
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 2, r.Game.HandNum)
	assert.Equal(t, game.PhasePreDrawBetting, r.Game.Phase)
}

func TestWithTimingsOverridesAutoAdvance(t *testing.T) {
	rec := newRecorder()
	mock := quartz.NewMock(t)
	m := NewManager(rec, log.New(io.Discard),
		WithClock(mock),
		WithTimings(2*time.Second, time.Minute),
		WithGameOptions(game.WithRandSource(deck.SeededSource(42))),
	)
	code := startedRoom(t, m)
	playHand(t, m, code)

	mock.Advance(2 * time.Second).MustWait(context.Background())

	r := m.rooms[code]
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 2, r.Game.HandNum)
}

func TestCancelAutoAdvance(t *testing.T) {
	m, rec, mock := newTestManager(t)
	code := startedRoom(t, m)
	playHand(t, m, code)

	require.NoError(t, m.CancelAutoAdvance(code, "bob"))
	_, ok := rec.lastOfType("conn-alice", EventAutoAdvanceCancelled)
	assert.True(t, ok, "both members hear the cancellation")

	mock.Advance(AutoAdvanceDelay).MustWait(context.Background())

	r := m.rooms[code]
	r.mu.Lock()
	assert.Equal(t, 1, r.Game.HandNum)
	assert.Equal(t, game.PhaseHandComplete, r.Game.Phase)
	r.mu.Unlock()

	// The hand still advances on an explicit request.
	require.NoError(t, m.HandleAction(code, "alice", game.Action{Type: game.ActionNextHand}))
	r.mu.Lock()
	assert.Equal(t, 2, r.Game.HandNum)
	r.mu.Unlock()
}

func TestExplicitNextHandDisarmsTimer(t *testing.T) {
	m, _, mock := newTestManager(t)
	code := startedRoom(t, m)
	playHand(t, m, code)

	require.NoError(t, m.HandleAction(code, "alice", game.Action{Type: game.ActionNextHand}))

	r := m.rooms[code]
	r.mu.Lock()
	assert.Equal(t, 2, r.Game.HandNum)
	r.mu.Unlock()

	// The old timer must not double-advance hand 2.
	mock.Advance(AutoAdvanceDelay).MustWait(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 2, r.Game.HandNum)
	assert.Equal(t, game.PhasePreDrawBetting, r.Game.Phase)
}

func TestStaleTimerFireDoesNotAdvanceNewerHand(t *testing.T) {
	m, _, mock := newTestManager(t)
	code := startedRoom(t, m)
	playHand(t, m, code)

	r := m.rooms[code]
	r.mu.Lock()
	staleGen := r.autoAdvanceGen
	r.mu.Unlock()

	// An explicit advance replaces the pending timer, and finishing the
	// next hand arms a fresh one.
	require.NoError(t, m.HandleAction(code, "alice", game.Action{Type: game.ActionNextHand}))
	playHand(t, m, code)

	r.mu.Lock()
	handNum := r.Game.HandNum
	r.mu.Unlock()

	// A delivery from the replaced timer that was already in flight when it
	// was stopped must neither advance the current hand nor clear the fresh
	// timer.
	m.fireAutoAdvance(code, staleGen)

	r.mu.Lock()
	assert.Equal(t, handNum, r.Game.HandNum)
	assert.NotNil(t, r.autoAdvance)
	r.mu.Unlock()

	mock.Advance(AutoAdvanceDelay).MustWait(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, handNum+1, r.Game.HandNum)
}

func TestCancelWithNothingPendingIsNoop(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code := startedRoom(t, m)

	require.NoError(t, m.CancelAutoAdvance(code, "alice"))
	_, ok := rec.lastOfType("conn-bob", EventAutoAdvanceCancelled)
	assert.False(t, ok)
}

func TestLeaveEmptyRoomIsDeleted(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code, err := m.CreateRoom("conn-alice", "alice")
	require.NoError(t, err)

	require.NoError(t, m.LeaveRoom(code, "alice"))
	_, ok := rec.lastOfType("conn-alice", EventRoomLeft)
	assert.True(t, ok)

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.NotContains(t, m.rooms, code)
}

func TestLeaveDuringMatchResetsRoom(t *testing.T) {
	m, rec, _ := newTestManager(t)
	code := startedRoom(t, m)

	require.NoError(t, m.LeaveRoom(code, "bob"))

	ev, ok := rec.lastOfType("conn-alice", EventPlayerLeft)
	require.True(t, ok)
	assert.Equal(t, "bob", ev.Data.(PlayerLeftData).Username)

	r := m.rooms[code]
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, StatusWaiting, r.status)
	assert.Nil(t, r.Game)
	assert.False(t, r.players["alice"].Ready)
}

func TestLeaveNonMember(t *testing.T) {
	m, _, _ := newTestManager(t)
	code := fullRoom(t, m)
	require.ErrorIs(t, m.LeaveRoom(code, "carol"), ErrNotInRoom)
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	m, rec, mock := newTestManager(t)
	idle, err := m.CreateRoom("conn-idle", "idler")
	require.NoError(t, err)

	mock.Advance(IdleTimeout + time.Second).MustWait(context.Background())

	// Created after the idle window, so this one must survive.
	fresh, err := m.CreateRoom("conn-fresh", "fresher")
	require.NoError(t, err)

	m.Sweep()

	ev, ok := rec.lastOfType("conn-idle", EventRoomTerminated)
	require.True(t, ok)
	assert.Equal(t, idle, ev.Data.(RoomTerminatedData).Code)

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.NotContains(t, m.rooms, idle)
	assert.Contains(t, m.rooms, fresh)
}

func TestSweepSparesActiveMatches(t *testing.T) {
	m, _, mock := newTestManager(t)
	code := startedRoom(t, m)

	mock.Advance(IdleTimeout + time.Second).MustWait(context.Background())
	m.Sweep()

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Contains(t, m.rooms, code)
}

func TestActivityDefersSweep(t *testing.T) {
	m, _, mock := newTestManager(t)
	code := fullRoom(t, m)
	ctx := context.Background()

	mock.Advance(IdleTimeout - time.Second).MustWait(ctx)
	require.NoError(t, m.SetReady(code, "alice", true))
	mock.Advance(2 * time.Second).MustWait(ctx)
	m.Sweep()

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Contains(t, m.rooms, code)
}

func TestActiveRoomsAndCounts(t *testing.T) {
	m, _, _ := newTestManager(t)
	waiting, err := m.CreateRoom("conn-w", "wendy")
	require.NoError(t, err)
	playing := startedRoom(t, m)

	summaries := m.ActiveRooms()
	require.Len(t, summaries, 2)
	byCode := make(map[string]Summary, len(summaries))
	for _, s := range summaries {
		byCode[s.Code] = s
	}
	assert.True(t, byCode[waiting].Joinable)
	assert.Equal(t, StatusWaiting, byCode[waiting].Status)
	assert.False(t, byCode[playing].Joinable)
	assert.Equal(t, StatusInProgress, byCode[playing].Status)

	total, inProgress := m.Counts()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, inProgress)
}

func TestMatchCompleteNotifiesAndClosesRoom(t *testing.T) {
	m, rec, mock := newTestManager(t)
	code := startedRoom(t, m)
	ctx := context.Background()

	for hand := 1; hand <= game.DefaultMaxHands; hand++ {
		playHand(t, m, code)
		r := m.rooms[code]
		r.mu.Lock()
		done := r.Game.Phase == game.PhaseMatchComplete
		r.mu.Unlock()
		if done {
			break
		}
		mock.Advance(AutoAdvanceDelay).MustWait(ctx)
	}

	r := m.rooms[code]
	r.mu.Lock()
	require.Equal(t, game.PhaseMatchComplete, r.Game.Phase)
	assert.Equal(t, StatusComplete, r.status)
	r.mu.Unlock()

	for _, conn := range []string{"conn-alice", "conn-bob"} {
		ev, ok := rec.lastOfType(conn, EventMatchComplete)
		require.True(t, ok, "%s missing match_complete", conn)
		data := ev.Data.(MatchCompleteData)
		assert.Equal(t, code, data.Code)

		sv, ok := rec.lastOfType(conn, EventGameStateUpdated)
		require.True(t, ok)
		require.NotNil(t, sv.Data.(GameStateData).View.Result)
	}

	require.ErrorIs(t,
		m.HandleAction(code, "alice", game.Action{Type: game.ActionNextHand}),
		ErrNotInProgress)
}

func TestRunSweepsOnTicks(t *testing.T) {
	m, _, mock := newTestManager(t)
	code, err := m.CreateRoom("conn-alice", "alice")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	trap := mock.Trap().NewTicker()
	defer trap.Close()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	// Hold Run at ticker creation so the advances below cannot outrun it.
	trap.MustWait(ctx).Release(ctx)

	// Step past the idle window one sweep interval at a time so every tick
	// is consumed before the next is produced.
	steps := int(IdleTimeout/SweepInterval) + 1
	for i := 0; i < steps; i++ {
		mock.Advance(SweepInterval).MustWait(ctx)
	}

	// MustWait returns at tick delivery, not after Sweep completes.
	assert.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		_, ok := m.rooms[code]
		return !ok
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
