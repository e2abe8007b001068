package game

import "github.com/cardtable/jokerdraw/internal/deck"

// Option customizes a new match.
type Option func(*GameState)

// WithStartingChips sets each seat's starting stack.
func WithStartingChips(chips int) Option {
	return func(g *GameState) {
		g.startingChips = chips
		for _, p := range g.Players {
			p.Chips = chips
		}
	}
}

// WithAnte sets the per-hand forced contribution.
func WithAnte(ante int) Option {
	return func(g *GameState) { g.ante = ante }
}

// WithMaxHands sets the match length in hands.
func WithMaxHands(n int) Option {
	return func(g *GameState) { g.maxHands = n }
}

// WithRandSource supplies the shuffle randomness, for deterministic decks in
// tests and seeded local play.
func WithRandSource(src deck.RandSource) Option {
	return func(g *GameState) { g.Deck = deck.New(src) }
}
