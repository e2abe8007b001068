package game

import "github.com/cardtable/jokerdraw/internal/deck"

// PlayerState is one seat's state within a match.
type PlayerState struct {
	Seat      int
	Name      string
	Hand      []deck.Card
	Chips     int
	Committed int
	Folded    bool
}

// commit moves up to amount chips into the player's street commitment,
// capping at the available stack (all-in). Returns the amount actually
// committed.
func (p *PlayerState) commit(amount int) int {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.Committed += amount
	return amount
}
