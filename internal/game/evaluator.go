package game

import (
	"fmt"
	"sort"

	"github.com/cardtable/jokerdraw/internal/deck"
)

// Category classifies a 5-card hand. With no straights or flushes possible
// in a 4-rank deck, six categories cover everything, and any 5 cards over 4
// ranks guarantee at least a pair.
type Category int

const (
	OnePair Category = iota + 1
	TwoPair
	ThreeOfAKind
	FullHouse
	FourOfAKind
	FiveOfAKind
)

func (c Category) String() string {
	switch c {
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case FiveOfAKind:
		return "Five of a Kind"
	default:
		return "Unknown"
	}
}

// Strength is a fully comparable hand strength: category, then the primary
// rank(s) of the combination, then kickers ordered by rank then suit. Suit
// being a total order, two strengths over distinct physical cards never tie.
type Strength struct {
	Category Category
	Primary  []deck.Rank
	Kickers  []deck.Card
}

// Evaluate classifies exactly 5 cards, at most one of which may be the
// joker. The joker is resolved by trying every rank/suit substitution and
// keeping the strongest result, so the highest-category completion always
// wins regardless of how placements tie.
func Evaluate(cards []deck.Card) (Strength, error) {
	if len(cards) != 5 {
		return Strength{}, fmt.Errorf("evaluate requires exactly 5 cards, got %d", len(cards))
	}
	jokerAt := -1
	for i, c := range cards {
		if !c.Joker {
			continue
		}
		if jokerAt >= 0 {
			return Strength{}, fmt.Errorf("more than one joker in hand")
		}
		jokerAt = i
	}

	var hand [5]deck.Card
	copy(hand[:], cards)
	if jokerAt < 0 {
		return evaluateNatural(hand), nil
	}

	var best Strength
	for rank := deck.Jack; rank <= deck.Ace; rank++ {
		for suit := deck.Clubs; suit <= deck.Spades; suit++ {
			hand[jokerAt] = deck.NewCard(rank, suit)
			if s := evaluateNatural(hand); best.Category == 0 || s.Compare(best) > 0 {
				best = s
			}
		}
	}
	return best, nil
}

// evaluateNatural classifies 5 joker-free cards by rank multiplicity.
func evaluateNatural(cards [5]deck.Card) Strength {
	counts := make(map[deck.Rank]int, 4)
	for _, c := range cards {
		counts[c.Rank]++
	}

	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 4)
	for rank, count := range counts {
		groups = append(groups, group{rank, count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	kickersOf := func(primary ...deck.Rank) []deck.Card {
		used := make(map[deck.Rank]bool, len(primary))
		for _, r := range primary {
			used[r] = true
		}
		var ks []deck.Card
		for _, c := range cards {
			if !used[c.Rank] {
				ks = append(ks, c)
			}
		}
		sort.Slice(ks, func(i, j int) bool { return ks[j].Less(ks[i]) })
		return ks
	}

	top := groups[0]
	switch {
	case top.count == 5:
		return Strength{Category: FiveOfAKind, Primary: []deck.Rank{top.rank}}
	case top.count == 4:
		return Strength{Category: FourOfAKind, Primary: []deck.Rank{top.rank}, Kickers: kickersOf(top.rank)}
	case top.count == 3 && groups[1].count == 2:
		return Strength{Category: FullHouse, Primary: []deck.Rank{top.rank, groups[1].rank}}
	case top.count == 3:
		return Strength{Category: ThreeOfAKind, Primary: []deck.Rank{top.rank}, Kickers: kickersOf(top.rank)}
	case top.count == 2 && groups[1].count == 2:
		return Strength{Category: TwoPair, Primary: []deck.Rank{top.rank, groups[1].rank}, Kickers: kickersOf(top.rank, groups[1].rank)}
	default:
		// 5 cards over 4 ranks always collide, so top.count >= 2 holds for
		// any hand drawn from this deck.
		return Strength{Category: OnePair, Primary: []deck.Rank{top.rank}, Kickers: kickersOf(top.rank)}
	}
}

// Compare returns >0 if s beats other, <0 if it loses, 0 if equal. Order:
// category, primary ranks in order, then kickers by rank then suit.
func (s Strength) Compare(other Strength) int {
	if s.Category != other.Category {
		return int(s.Category) - int(other.Category)
	}
	for i := 0; i < len(s.Primary) && i < len(other.Primary); i++ {
		if s.Primary[i] != other.Primary[i] {
			return int(s.Primary[i]) - int(other.Primary[i])
		}
	}
	for i := 0; i < len(s.Kickers) && i < len(other.Kickers); i++ {
		a, b := s.Kickers[i], other.Kickers[i]
		if a.Rank != b.Rank {
			return int(a.Rank) - int(b.Rank)
		}
		if a.Suit != b.Suit {
			return int(a.Suit) - int(b.Suit)
		}
	}
	return 0
}

// Describe renders the strength for logs and showdown summaries.
func (s Strength) Describe() string {
	switch s.Category {
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", s.Primary[0].Name(), s.Primary[1].Name())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s over %s", s.Primary[0].Name(), s.Primary[1].Name())
	default:
		return fmt.Sprintf("%s, %s", s.Category, s.Primary[0].Name())
	}
}
