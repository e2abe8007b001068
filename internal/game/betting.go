package game

import "fmt"

// Fixed-limit parameters: bets and raises move in increments of 5 chips and
// total per-street wagering is capped at 30, giving at most one bet and five
// raises per street (5 → 10 → 15 → 20 → 25 → 30).
const (
	BetIncrement = 5
	StreetCap    = 30
)

// BettingState is the fixed-limit betting machine for one street. A street
// is open until a call, a fold, or a mutual check closes it; once closed it
// accepts no further actions.
type BettingState struct {
	Street     int
	CurrentBet int
	ToAct      int
	Closed     bool
	LastRaise  int
	Opener     int
}

func newBettingState(street, opener int) *BettingState {
	return &BettingState{
		Street: street,
		ToAct:  opener,
		Opener: opener,
	}
}

// Check passes the action when there is nothing to call. The opener's check
// hands the action across; a second check closes the street.
func (b *BettingState) Check(p, o *PlayerState) error {
	if b.Closed {
		return ErrStreetClosed
	}
	if b.CurrentBet != 0 {
		return fmt.Errorf("%w: must call %d", ErrBetOpen, b.CurrentBet-p.Committed)
	}
	if p.Seat == b.Opener && p.Committed == 0 && o.Committed == 0 {
		b.ToAct = o.Seat
		return nil
	}
	b.Closed = true
	return nil
}

// Bet opens the street's bet. The amount must be within [1, StreetCap] and
// is capped to the player's stack (all-in).
func (b *BettingState) Bet(p, o *PlayerState, amount int) error {
	if b.Closed {
		return ErrStreetClosed
	}
	if b.CurrentBet != 0 {
		return fmt.Errorf("%w: raise instead", ErrBetOpen)
	}
	if amount < 1 || amount > StreetCap {
		return fmt.Errorf("%w: bet must be between 1 and %d, got %d", ErrInvalidAmount, StreetCap, amount)
	}
	actual := p.commit(amount)
	b.CurrentBet = actual
	b.LastRaise = actual
	b.ToAct = o.Seat
	return nil
}

// Call matches the current bet, capped to the player's stack, and closes the
// street.
func (b *BettingState) Call(p *PlayerState) error {
	if b.Closed {
		return ErrStreetClosed
	}
	if b.CurrentBet == 0 {
		return ErrNoBetToCall
	}
	p.commit(b.CurrentBet - p.Committed)
	b.Closed = true
	return nil
}

// Raise lifts the street total to the requested amount and passes the
// action back. The new total must exceed the current bet and stay within the
// street cap.
func (b *BettingState) Raise(p, o *PlayerState, total int) error {
	if b.Closed {
		return ErrStreetClosed
	}
	if b.CurrentBet == 0 {
		return fmt.Errorf("%w: bet instead", ErrNoBetToCall)
	}
	if total <= b.CurrentBet {
		return fmt.Errorf("%w: raise total %d must exceed current bet %d", ErrInvalidAmount, total, b.CurrentBet)
	}
	if total > StreetCap {
		return fmt.Errorf("%w: raise total %d exceeds street cap %d", ErrInvalidAmount, total, StreetCap)
	}
	p.commit(total - p.Committed)
	if p.Committed > b.CurrentBet {
		b.LastRaise = p.Committed - b.CurrentBet
		b.CurrentBet = p.Committed
	}
	b.ToAct = o.Seat
	return nil
}

// Fold concedes the street and the hand.
func (b *BettingState) Fold(p *PlayerState) error {
	if b.Closed {
		return ErrStreetClosed
	}
	p.Folded = true
	b.Closed = true
	return nil
}
