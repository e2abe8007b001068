package game

import "errors"

// Validation errors. These are expected, user-facing, and always leave the
// game state untouched.
var (
	ErrWrongPhase    = errors.New("action not valid in current phase")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrStreetClosed  = errors.New("betting street is closed")
	ErrNoBetToCall   = errors.New("no bet to call")
	ErrBetOpen       = errors.New("a bet is already open")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSeat   = errors.New("invalid seat")
	ErrInvalidCards  = errors.New("invalid card selection")
	ErrMatchOver     = errors.New("match is complete")
)
