package game

import (
	"fmt"
	"sort"

	"github.com/cardtable/jokerdraw/internal/deck"
)

// Phase is the hand/match lifecycle position.
type Phase int

const (
	PhaseNewHand Phase = iota
	PhasePreDrawBetting
	PhaseDraw
	PhasePostDrawBetting
	PhaseShowdown
	PhaseHandComplete
	PhaseMatchComplete
)

func (p Phase) String() string {
	return [...]string{
		"new_hand", "pre_draw_betting", "draw", "post_draw_betting",
		"showdown", "hand_complete", "match_complete",
	}[p]
}

// Match defaults.
const (
	DefaultStartingChips = 100
	DefaultAnte          = 5
	DefaultMaxHands      = 10
	HandSize             = 5
)

// ShowdownResult holds both evaluated strengths once a hand reaches
// showdown. Fold-won hands never populate one.
type ShowdownResult struct {
	Strengths [2]Strength
	Winner    int
}

// MatchResult is emitted once, at match completion. Winner is -1 and Draw
// true when both seats finish on equal chips.
type MatchResult struct {
	Winner      int    `json:"winner"`
	WinnerName  string `json:"winnerName,omitempty"`
	Draw        bool   `json:"draw"`
	FinalChips  [2]int `json:"finalChips"`
	FinalPot    int    `json:"finalPot"`
	HandsPlayed int    `json:"handsPlayed"`
}

// Action is a client-submitted action. Amount applies to bet/raise,
// CardIndices to discard.
type Action struct {
	Type        ActionType `json:"type"`
	Amount      int        `json:"amount,omitempty"`
	CardIndices []int      `json:"cardIndices,omitempty"`
}

// GameState is the authoritative per-match state machine. It is not
// concurrency-safe; callers serialize access (the room layer holds one mutex
// per room). Every entry point validates all preconditions before the first
// mutation.
type GameState struct {
	ID             string
	HandNum        int
	Players        [2]*PlayerState
	Pot            int
	StartingPlayer int
	Phase          Phase
	Betting        *BettingState
	Deck           *deck.Deck
	Log            []LogEntry
	Showdown       *ShowdownResult
	Result         *MatchResult

	// Explicit per-seat discard flags for the draw interlude; O(1) turn
	// lookup instead of scanning the log.
	discarded [2]bool

	ante          int
	maxHands      int
	startingChips int
}

// NewMatch creates a match in PhaseNewHand; StartHand begins play.
func NewMatch(id string, names [2]string, opts ...Option) *GameState {
	g := &GameState{
		ID:            id,
		HandNum:       1,
		Phase:         PhaseNewHand,
		ante:          DefaultAnte,
		maxHands:      DefaultMaxHands,
		startingChips: DefaultStartingChips,
	}
	for seat := range g.Players {
		g.Players[seat] = &PlayerState{
			Seat:  seat,
			Name:  names[seat],
			Chips: DefaultStartingChips,
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.Deck == nil {
		g.Deck = deck.New(nil)
	}
	return g
}

// StartingChips reports the configured per-seat starting stack.
func (g *GameState) StartingChips() int {
	return g.startingChips
}

// StartHand collects antes and deals the first hand. If an ante empties a
// stack the match ends immediately without dealing.
func (g *GameState) StartHand() error {
	if g.Phase != PhaseNewHand {
		return fmt.Errorf("%w: %s", ErrWrongPhase, g.Phase)
	}
	if g.collectAntes() {
		return nil
	}
	g.deal()
	g.openStreet(0)
	return nil
}

// Apply routes a validated player action into the state machine. Rejected
// actions leave state untouched.
func (g *GameState) Apply(seat int, act Action) error {
	if seat < 0 || seat > 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if g.Phase == PhaseMatchComplete {
		return ErrMatchOver
	}

	switch act.Type {
	case ActionCheck, ActionBet, ActionCall, ActionRaise, ActionFold:
		return g.applyBetting(seat, act)
	case ActionDiscard:
		return g.applyDiscard(seat, act.CardIndices)
	case ActionNextHand:
		return g.AdvanceHand()
	default:
		return fmt.Errorf("unknown action type %q", act.Type)
	}
}

func (g *GameState) applyBetting(seat int, act Action) error {
	if g.Phase != PhasePreDrawBetting && g.Phase != PhasePostDrawBetting {
		return fmt.Errorf("%w: %s during %s", ErrWrongPhase, act.Type, g.Phase)
	}
	if g.Betting.ToAct != seat {
		return ErrNotYourTurn
	}

	p, o := g.Players[seat], g.Players[1-seat]
	var err error
	switch act.Type {
	case ActionCheck:
		err = g.Betting.Check(p, o)
	case ActionBet:
		err = g.Betting.Bet(p, o, act.Amount)
	case ActionCall:
		err = g.Betting.Call(p)
	case ActionRaise:
		err = g.Betting.Raise(p, o, act.Amount)
	case ActionFold:
		err = g.Betting.Fold(p)
	}
	if err != nil {
		return err
	}

	g.appendLog(seat, act.Type, g.describeBetting(p, act))
	if g.Betting.Closed {
		g.settleStreet()
	}
	return nil
}

func (g *GameState) describeBetting(p *PlayerState, act Action) string {
	switch act.Type {
	case ActionCheck:
		return fmt.Sprintf("%s checks", p.Name)
	case ActionBet:
		return fmt.Sprintf("%s bets %d", p.Name, g.Betting.CurrentBet)
	case ActionCall:
		return fmt.Sprintf("%s calls %d", p.Name, g.Betting.CurrentBet)
	case ActionRaise:
		return fmt.Sprintf("%s raises to %d", p.Name, g.Betting.CurrentBet)
	default:
		return fmt.Sprintf("%s folds", p.Name)
	}
}

// applyDiscard handles one seat's draw-interlude discard. The starting
// player discards first; a discard larger than the deck's remainder is
// rejected.
func (g *GameState) applyDiscard(seat int, indices []int) error {
	if g.Phase != PhaseDraw {
		return fmt.Errorf("%w: discard during %s", ErrWrongPhase, g.Phase)
	}
	if g.DrawTurn() != seat {
		return ErrNotYourTurn
	}
	p := g.Players[seat]

	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.Hand) {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidCards, idx)
		}
		if seen[idx] {
			return fmt.Errorf("%w: duplicate index %d", ErrInvalidCards, idx)
		}
		seen[idx] = true
	}
	if len(indices) > g.Deck.Remaining() {
		return fmt.Errorf("%w: cannot discard %d with %d cards left in deck",
			ErrInvalidCards, len(indices), g.Deck.Remaining())
	}

	// Remove from the highest index down so earlier removals don't shift
	// later ones.
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, idx := range sorted {
		p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	}

	replacements, err := g.Deck.Draw(len(indices))
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, replacements...)

	g.discarded[seat] = true
	g.appendLog(seat, ActionDiscard, fmt.Sprintf("%s discards %d", p.Name, len(indices)))

	if g.discarded[0] && g.discarded[1] {
		g.openStreet(1)
	}
	return nil
}

// DrawTurn returns the seat whose turn it is to discard, or -1 when no one
// may act (outside the draw phase, or both already discarded).
func (g *GameState) DrawTurn() int {
	if g.Phase != PhaseDraw {
		return SystemSeat
	}
	if !g.discarded[g.StartingPlayer] {
		return g.StartingPlayer
	}
	if !g.discarded[1-g.StartingPlayer] {
		return 1 - g.StartingPlayer
	}
	return SystemSeat
}

// AdvanceHand moves a completed hand to the next one, alternating the
// starting player. It is the target of both the explicit next-hand command
// and the room's auto-advance timer.
func (g *GameState) AdvanceHand() error {
	if g.Phase != PhaseHandComplete {
		return fmt.Errorf("%w: next hand during %s", ErrWrongPhase, g.Phase)
	}
	g.HandNum++
	g.StartingPlayer = 1 - g.StartingPlayer
	g.Showdown = nil
	g.discarded = [2]bool{}
	for _, p := range g.Players {
		p.Hand = nil
		p.Committed = 0
		p.Folded = false
	}
	g.Phase = PhaseNewHand
	g.appendLog(SystemSeat, ActionNextHand, fmt.Sprintf("hand %d begins, %s to start", g.HandNum, g.Players[g.StartingPlayer].Name))
	return g.StartHand()
}

// collectAntes moves the ante from each stack straight into the pot.
// Returns true when the match ended because a stack hit zero.
func (g *GameState) collectAntes() bool {
	for _, p := range g.Players {
		a := g.ante
		if a > p.Chips {
			a = p.Chips
		}
		p.Chips -= a
		g.Pot += a
	}
	g.appendLog(SystemSeat, ActionAnte, fmt.Sprintf("both players ante %d", g.ante))

	if g.Players[0].Chips == 0 || g.Players[1].Chips == 0 {
		g.endMatch()
		return true
	}
	return false
}

// deal shuffles and deals 5 cards each, alternating from the hand's
// starting player.
func (g *GameState) deal() {
	g.Deck.Shuffle()
	for i := 0; i < 2*HandSize; i++ {
		seat := (g.StartingPlayer + i) % 2
		card, _ := g.Deck.DrawOne()
		g.Players[seat].Hand = append(g.Players[seat].Hand, card)
	}
	g.appendLog(SystemSeat, ActionDeal, fmt.Sprintf("hand %d dealt, %s acts first", g.HandNum, g.Players[g.StartingPlayer].Name))
}

func (g *GameState) openStreet(street int) {
	g.Betting = newBettingState(street, g.StartingPlayer)
	if street == 0 {
		g.Phase = PhasePreDrawBetting
	} else {
		g.Phase = PhasePostDrawBetting
	}
}

// settleStreet moves street commitments into the pot and advances the
// phase: fold ends the hand, street 0 opens the draw, street 1 goes to
// showdown.
func (g *GameState) settleStreet() {
	for _, p := range g.Players {
		g.Pot += p.Committed
		p.Committed = 0
	}

	for seat, p := range g.Players {
		if p.Folded {
			winner := 1 - seat
			g.appendLog(SystemSeat, ActionStreetClosed,
				fmt.Sprintf("%s folds, %s wins %d", p.Name, g.Players[winner].Name, g.Pot))
			g.awardPot(winner)
			g.finishHand()
			return
		}
	}

	if g.Betting.Street == 0 {
		g.Phase = PhaseDraw
		g.appendLog(SystemSeat, ActionStreetClosed, "pre-draw betting closed, draw begins")
		return
	}
	g.runShowdown()
}

// runShowdown evaluates both hands and awards the pot. The comparison order
// is total, so a winner always exists.
func (g *GameState) runShowdown() {
	g.Phase = PhaseShowdown

	var result ShowdownResult
	for seat, p := range g.Players {
		s, err := Evaluate(p.Hand)
		if err != nil {
			// Hands are engine-dealt; a malformed one is a programming
			// contract violation.
			panic(fmt.Sprintf("showdown with invalid hand for seat %d: %v", seat, err))
		}
		result.Strengths[seat] = s
	}
	if result.Strengths[0].Compare(result.Strengths[1]) > 0 {
		result.Winner = 0
	} else {
		result.Winner = 1
	}
	g.Showdown = &result

	g.appendLog(SystemSeat, ActionShowdown, fmt.Sprintf("%s wins %d with %s against %s",
		g.Players[result.Winner].Name, g.Pot,
		result.Strengths[result.Winner].Describe(),
		result.Strengths[1-result.Winner].Describe()))
	g.awardPot(result.Winner)
	g.finishHand()
}

func (g *GameState) awardPot(winner int) {
	g.Players[winner].Chips += g.Pot
	g.Pot = 0
}

// finishHand ends the match once the hand limit or an empty stack is
// reached; otherwise the hand waits for a next-hand trigger.
func (g *GameState) finishHand() {
	if g.HandNum >= g.maxHands || g.Players[0].Chips == 0 || g.Players[1].Chips == 0 {
		g.endMatch()
		return
	}
	g.Phase = PhaseHandComplete
	g.appendLog(SystemSeat, ActionHandComplete, fmt.Sprintf("hand %d complete", g.HandNum))
}

// endMatch resolves the winner by chip count; equal stacks are an explicit
// draw, never a default win.
func (g *GameState) endMatch() {
	result := &MatchResult{
		Winner:      SystemSeat,
		FinalChips:  [2]int{g.Players[0].Chips, g.Players[1].Chips},
		FinalPot:    g.Pot,
		HandsPlayed: g.HandNum,
	}
	switch {
	case g.Players[0].Chips > g.Players[1].Chips:
		result.Winner = 0
	case g.Players[1].Chips > g.Players[0].Chips:
		result.Winner = 1
	default:
		result.Draw = true
	}
	if result.Winner != SystemSeat {
		result.WinnerName = g.Players[result.Winner].Name
	}

	g.Result = result
	g.Phase = PhaseMatchComplete
	if result.Draw {
		g.appendLog(SystemSeat, ActionMatchComplete, "match drawn on equal chips")
	} else {
		g.appendLog(SystemSeat, ActionMatchComplete,
			fmt.Sprintf("match complete, %s wins with %d chips", result.WinnerName, g.Players[result.Winner].Chips))
	}
}
