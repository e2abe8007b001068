package game

import "time"

// ActionType identifies a player or system action in the log.
type ActionType string

const (
	ActionCheck    ActionType = "check"
	ActionBet      ActionType = "bet"
	ActionCall     ActionType = "call"
	ActionRaise    ActionType = "raise"
	ActionFold     ActionType = "fold"
	ActionDiscard  ActionType = "discard"
	ActionNextHand ActionType = "next_hand"

	// System entries, logged with seat -1.
	ActionAnte          ActionType = "ante"
	ActionDeal          ActionType = "deal"
	ActionStreetClosed  ActionType = "street_closed"
	ActionShowdown      ActionType = "showdown"
	ActionHandComplete  ActionType = "hand_complete"
	ActionMatchComplete ActionType = "match_complete"
)

// SystemSeat marks log entries not attributable to a player.
const SystemSeat = -1

// LogEntry is one append-only audit record. The log is display/audit only;
// turn state is tracked explicitly on GameState.
type LogEntry struct {
	HandNum     int        `json:"handNum"`
	Seat        int        `json:"seat"`
	Action      ActionType `json:"action"`
	Description string     `json:"description"`
	Timestamp   time.Time  `json:"timestamp"`
}

func (g *GameState) appendLog(seat int, action ActionType, description string) {
	g.Log = append(g.Log, LogEntry{
		HandNum:     g.HandNum,
		Seat:        seat,
		Action:      action,
		Description: description,
		Timestamp:   time.Now(),
	})
}
