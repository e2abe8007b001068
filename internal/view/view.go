// Package view projects authoritative game state into per-viewer, client-safe
// snapshots. Projections are pure: they never mutate game state, and the
// opponent's concealed cards are masked until a showdown has been computed.
package view

import (
	"github.com/cardtable/jokerdraw/internal/deck"
	"github.com/cardtable/jokerdraw/internal/game"
)

// CardView is a client-facing card. Rank and suit are nil for masked cards
// so the JSON carries explicit nulls.
type CardView struct {
	Rank  *string `json:"rank"`
	Suit  *string `json:"suit"`
	Joker bool    `json:"joker"`
}

// PlayerView is one seat as a given viewer may see it.
type PlayerView struct {
	Seat      int        `json:"seat"`
	Name      string     `json:"name"`
	Chips     int        `json:"chips"`
	Committed int        `json:"committed"`
	Folded    bool       `json:"folded"`
	Hand      []CardView `json:"hand"`
}

// BettingView is the current street snapshot.
type BettingView struct {
	Street     int  `json:"street"`
	CurrentBet int  `json:"currentBet"`
	ToAct      int  `json:"toAct"`
	Closed     bool `json:"closed"`
}

// ShowdownHandView summarizes one seat's revealed strength.
type ShowdownHandView struct {
	Description string   `json:"description"`
	Primary     []string `json:"primary"`
	Kickers     []string `json:"kickers"`
}

// ShowdownView is present once a showdown has been computed.
type ShowdownView struct {
	Winner int                 `json:"winner"`
	Hands  [2]ShowdownHandView `json:"hands"`
}

// Capabilities flags the actions currently available to the viewer.
type Capabilities struct {
	CanCheck    bool `json:"canCheck"`
	CanBet      bool `json:"canBet"`
	CanCall     bool `json:"canCall"`
	CanRaise    bool `json:"canRaise"`
	CanFold     bool `json:"canFold"`
	CanDiscard  bool `json:"canDiscard"`
	CanNextHand bool `json:"canNextHand"`
}

// View is the complete per-viewer projection.
type View struct {
	GameID       string            `json:"gameId"`
	HandNum      int               `json:"handNum"`
	Phase        string            `json:"phase"`
	Pot          int               `json:"pot"`
	Viewer       int               `json:"viewer"`
	Players      [2]PlayerView     `json:"players"`
	Betting      *BettingView      `json:"betting,omitempty"`
	Showdown     *ShowdownView     `json:"showdown,omitempty"`
	DrawTurn     *int              `json:"drawTurn,omitempty"`
	Capabilities Capabilities      `json:"capabilities"`
	Result       *game.MatchResult `json:"result,omitempty"`
}

// Project builds viewer's masked snapshot of g.
func Project(g *game.GameState, viewer int) View {
	v := View{
		GameID:  g.ID,
		HandNum: g.HandNum,
		Phase:   g.Phase.String(),
		Pot:     g.Pot,
		Viewer:  viewer,
		Result:  g.Result,
	}

	revealAll := g.Showdown != nil &&
		(g.Phase == game.PhaseHandComplete || g.Phase == game.PhaseMatchComplete)

	for seat, p := range g.Players {
		pv := PlayerView{
			Seat:      p.Seat,
			Name:      p.Name,
			Chips:     p.Chips,
			Committed: p.Committed,
			Folded:    p.Folded,
		}
		reveal := seat == viewer || revealAll
		for _, c := range p.Hand {
			pv.Hand = append(pv.Hand, projectCard(c, reveal))
		}
		v.Players[seat] = pv
	}

	if g.Betting != nil && (g.Phase == game.PhasePreDrawBetting || g.Phase == game.PhasePostDrawBetting) {
		v.Betting = &BettingView{
			Street:     g.Betting.Street,
			CurrentBet: g.Betting.CurrentBet,
			ToAct:      g.Betting.ToAct,
			Closed:     g.Betting.Closed,
		}
	}

	if g.Showdown != nil {
		sv := &ShowdownView{Winner: g.Showdown.Winner}
		for seat, s := range g.Showdown.Strengths {
			sv.Hands[seat] = projectStrength(s)
		}
		v.Showdown = sv
	}

	if turn := g.DrawTurn(); turn != game.SystemSeat {
		v.DrawTurn = &turn
	}

	v.Capabilities = capabilities(g, viewer)
	return v
}

func projectCard(c deck.Card, reveal bool) CardView {
	if !reveal {
		return CardView{}
	}
	if c.Joker {
		return CardView{Joker: true}
	}
	rank, suit := c.Rank.String(), c.Suit.String()
	return CardView{Rank: &rank, Suit: &suit}
}

func projectStrength(s game.Strength) ShowdownHandView {
	hv := ShowdownHandView{Description: s.Describe()}
	for _, r := range s.Primary {
		hv.Primary = append(hv.Primary, r.String())
	}
	for _, k := range s.Kickers {
		hv.Kickers = append(hv.Kickers, k.String())
	}
	return hv
}

func capabilities(g *game.GameState, viewer int) Capabilities {
	var caps Capabilities
	switch g.Phase {
	case game.PhasePreDrawBetting, game.PhasePostDrawBetting:
		if g.Betting == nil || g.Betting.Closed || g.Betting.ToAct != viewer {
			return caps
		}
		open := g.Betting.CurrentBet == 0
		caps.CanCheck = open
		caps.CanBet = open
		caps.CanCall = !open
		caps.CanRaise = !open && g.Betting.CurrentBet < game.StreetCap
		caps.CanFold = true
	case game.PhaseDraw:
		caps.CanDiscard = g.DrawTurn() == viewer
	case game.PhaseHandComplete:
		caps.CanNextHand = true
	}
	return caps
}
