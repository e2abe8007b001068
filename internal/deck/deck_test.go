package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckComposition(t *testing.T) {
	d := New(SeededSource(1))

	counts := make(map[Card]int)
	cards, err := d.Draw(Size)
	require.NoError(t, err)

	jokers := 0
	for _, c := range cards {
		counts[c]++
		if c.Joker {
			jokers++
		}
	}

	assert.Equal(t, 1, jokers)
	assert.Len(t, counts, 17, "all 17 cards distinct")
	for rank := Jack; rank <= Ace; rank++ {
		for suit := Clubs; suit <= Spades; suit++ {
			assert.Equal(t, 1, counts[NewCard(rank, suit)], "missing %s%s", rank, suit)
		}
	}
}

func TestShuffleNeverRepeatsWithinEpoch(t *testing.T) {
	d := New(SeededSource(42))
	d.Shuffle()

	seen := make(map[Card]bool)
	for d.Remaining() > 0 {
		c, err := d.DrawOne()
		require.NoError(t, err)
		require.False(t, seen[c], "card %s drawn twice", c)
		seen[c] = true
	}
}

func TestDrawExhaustion(t *testing.T) {
	d := New(SeededSource(7))
	d.Shuffle()

	// Dealing two full hands always succeeds and leaves 7 behind.
	for seat := 0; seat < 2; seat++ {
		_, err := d.Draw(5)
		require.NoError(t, err)
	}
	assert.Equal(t, 7, d.Remaining())

	_, err := d.Draw(8)
	require.ErrorIs(t, err, ErrInsufficientCards)
	assert.Equal(t, 7, d.Remaining(), "failed draw must not advance the cursor")

	_, err = d.Draw(7)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Remaining())

	_, err = d.DrawOne()
	require.ErrorIs(t, err, ErrInsufficientCards)
}

func TestSeededShuffleReproducible(t *testing.T) {
	a := New(SeededSource(99))
	b := New(SeededSource(99))
	a.Shuffle()
	b.Shuffle()

	ca, err := a.Draw(Size)
	require.NoError(t, err)
	cb, err := b.Draw(Size)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
}

func TestShuffleResetsCursor(t *testing.T) {
	d := New(SeededSource(3))
	d.Shuffle()
	_, err := d.Draw(10)
	require.NoError(t, err)

	d.Shuffle()
	assert.Equal(t, Size, d.Remaining())
}

func TestCardStrings(t *testing.T) {
	assert.Equal(t, "A♠", NewCard(Ace, Spades).String())
	assert.Equal(t, "J♣", NewCard(Jack, Clubs).String())
	assert.Equal(t, "Joker", NewJoker().String())
}

func TestCardOrdering(t *testing.T) {
	// Rank dominates, then suit; Spades high.
	assert.True(t, NewCard(King, Spades).Less(NewCard(Ace, Clubs)))
	assert.True(t, NewCard(Ace, Hearts).Less(NewCard(Ace, Spades)))
	assert.True(t, NewJoker().Less(NewCard(Jack, Clubs)))
}
