package deck

import "fmt"

// Size is the number of cards in the deck: four each of J/Q/K/A plus one
// joker.
const Size = 17

// ErrInsufficientCards is returned when a draw asks for more cards than
// remain in the current shuffle epoch.
var ErrInsufficientCards = fmt.Errorf("deck: insufficient cards remaining")

// Deck is the 17-card deck. Cards are drawn sequentially from an
// already-shuffled order; the same physical card is never yielded twice
// within one shuffle epoch.
type Deck struct {
	cards  [Size]Card
	cursor int
	src    RandSource
}

// New creates a deck using the given randomness source; nil means
// crypto/rand. The deck starts unshuffled with the cursor at 0.
func New(src RandSource) *Deck {
	if src == nil {
		src = CryptoSource()
	}
	d := &Deck{src: src}
	i := 0
	for rank := Jack; rank <= Ace; rank++ {
		for suit := Clubs; suit <= Spades; suit++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.cards[i] = NewJoker()
	return d
}

// Shuffle randomizes the card order with Fisher-Yates and resets the draw
// cursor, beginning a new shuffle epoch.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.src.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	d.cursor = 0
}

// Remaining returns the number of cards left to draw.
func (d *Deck) Remaining() int {
	return Size - d.cursor
}

// Draw returns the next n cards and advances the cursor.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 || n > d.Remaining() {
		return nil, fmt.Errorf("%w: requested %d with %d left", ErrInsufficientCards, n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.cursor:d.cursor+n])
	d.cursor += n
	return cards, nil
}

// DrawOne draws a single card.
func (d *Deck) DrawOne() (Card, error) {
	cards, err := d.Draw(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}
