package room

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/cardtable/jokerdraw/internal/game"
)

// Status is a room's lifecycle position.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// PlayerConnection binds a participant to a transport connection and a
// seat. The ready flag only matters while the room is waiting.
type PlayerConnection struct {
	ConnID   string
	Username string
	Seat     int
	Ready    bool
	JoinedAt time.Time
}

// Room wraps one match plus its connected-player bookkeeping. All fields
// are guarded by mu; every mutation path — client command, auto-advance
// timer, inactivity sweep — takes the same lock, so commands within a room
// are strictly serialized while distinct rooms proceed in parallel.
type Room struct {
	mu sync.Mutex

	Code         string
	Game         *game.GameState
	status       Status
	players      map[string]*PlayerConnection
	createdAt    time.Time
	lastActivity time.Time

	// Single outstanding deferred next-hand task; re-arming always stops
	// the previous timer first. The generation counter identifies the
	// current arming so a stopped timer that already fired is ignored.
	autoAdvance    *quartz.Timer
	autoAdvanceGen uint64
}

func newRoom(code string, now time.Time) *Room {
	return &Room{
		Code:         code,
		status:       StatusWaiting,
		players:      make(map[string]*PlayerConnection, MaxSeats),
		createdAt:    now,
		lastActivity: now,
	}
}

// The helpers below assume r.mu is held.

func (r *Room) seatOf(username string) (int, bool) {
	pc, ok := r.players[username]
	if !ok {
		return 0, false
	}
	return pc.Seat, true
}

func (r *Room) freeSeat() (int, bool) {
	for seat := 0; seat < MaxSeats; seat++ {
		taken := false
		for _, pc := range r.players {
			if pc.Seat == seat {
				taken = true
				break
			}
		}
		if !taken {
			return seat, true
		}
	}
	return 0, false
}

func (r *Room) bySeat(seat int) *PlayerConnection {
	for _, pc := range r.players {
		if pc.Seat == seat {
			return pc
		}
	}
	return nil
}

func (r *Room) allReady() bool {
	if len(r.players) != MaxSeats {
		return false
	}
	for _, pc := range r.players {
		if !pc.Ready {
			return false
		}
	}
	return true
}

func (r *Room) memberInfos() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.players))
	for seat := 0; seat < MaxSeats; seat++ {
		if pc := r.bySeat(seat); pc != nil {
			infos = append(infos, PlayerInfo{Username: pc.Username, Seat: pc.Seat, Ready: pc.Ready})
		}
	}
	return infos
}

func (r *Room) stopAutoAdvance() bool {
	r.autoAdvanceGen++
	if r.autoAdvance == nil {
		return false
	}
	stopped := r.autoAdvance.Stop()
	r.autoAdvance = nil
	return stopped
}

func (r *Room) summary() Summary {
	names := make([]string, 0, len(r.players))
	for _, pc := range r.memberInfos() {
		names = append(names, pc.Username)
	}
	return Summary{
		Code:        r.Code,
		Status:      r.status,
		Players:     names,
		PlayerCount: len(r.players),
		Joinable:    r.status == StatusWaiting && len(r.players) < MaxSeats,
		CreatedAt:   r.createdAt,
	}
}
