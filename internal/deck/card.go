package deck

import "fmt"

// Suit represents a card suit. Suits are fully ordered for tie-breaking,
// Spades high.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Name returns the long form of a suit ("Spades")
func (s Suit) Name() string {
	switch s {
	case Clubs:
		return "Clubs"
	case Diamonds:
		return "Diamonds"
	case Hearts:
		return "Hearts"
	case Spades:
		return "Spades"
	default:
		return "Unknown"
	}
}

// Rank represents a card rank. The deck carries only Jacks through Aces,
// Ace high.
type Rank int

const (
	Jack Rank = iota + 11
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the plural long form of a rank, used in hand descriptions
// ("Kings", "Aces").
func (r Rank) Name() string {
	switch r {
	case Jack:
		return "Jacks"
	case Queen:
		return "Queens"
	case King:
		return "Kings"
	case Ace:
		return "Aces"
	default:
		return "Unknown"
	}
}

// Card represents a playing card. The zero Rank/Suit with Joker set is the
// single wild card; equality is by (rank, suit, joker).
type Card struct {
	Rank  Rank `json:"rank"`
	Suit  Suit `json:"suit"`
	Joker bool `json:"joker,omitempty"`
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// NewJoker creates the wild joker
func NewJoker() Card {
	return Card{Joker: true}
}

// String returns the string representation of a card (e.g. "A♠", "Joker")
func (c Card) String() string {
	if c.Joker {
		return "Joker"
	}
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Less orders cards by rank then suit, ascending. The joker sorts below
// everything; callers resolve it to a concrete card before ordering matters.
func (c Card) Less(other Card) bool {
	if c.Joker != other.Joker {
		return c.Joker
	}
	if c.Rank != other.Rank {
		return c.Rank < other.Rank
	}
	return c.Suit < other.Suit
}
