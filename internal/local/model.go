// Package local runs a same-device match: two players share one terminal
// and pass it back and forth. A hand-off screen sits between turns so
// neither player sees the other's cards.
package local

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/cardtable/jokerdraw/internal/deck"
	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/view"
)

type screen int

const (
	screenNames screen = iota
	screenHandoff
	screenPlay
	screenDone
)

// Model is the Bubble Tea model for pass-and-play.
type Model struct {
	g      *game.GameState
	logger *log.Logger

	input  textinput.Model
	screen screen

	names    [2]string
	nameSlot int
	viewer   int
	status   string
	quitting bool

	gameOpts []game.Option
}

// NewModel creates a pass-and-play model; gameOpts configure the match that
// starts once both names are entered.
func NewModel(logger *log.Logger, gameOpts ...game.Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "Player 1 name"
	ti.Focus()
	ti.CharLimit = 24
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		logger:   logger.WithPrefix("local"),
		input:    ti,
		screen:   screenNames,
		gameOpts: gameOpts,
	}
}

// Run starts the program on the alternate screen and blocks until exit.
func Run(logger *log.Logger, gameOpts ...game.Option) error {
	p := tea.NewProgram(NewModel(logger, gameOpts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			m.submit()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter on whichever screen is active.
func (m *Model) submit() {
	value := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	switch m.screen {
	case screenNames:
		m.submitName(value)
	case screenHandoff:
		m.screen = screenPlay
	case screenPlay:
		m.submitCommand(value)
	case screenDone:
		m.quitting = true
	}
}

func (m *Model) submitName(name string) {
	if name == "" {
		m.status = "name required"
		return
	}
	m.names[m.nameSlot] = name
	m.status = ""
	if m.nameSlot == 0 {
		m.nameSlot = 1
		m.input.Placeholder = "Player 2 name"
		return
	}
	if m.names[0] == m.names[1] {
		m.nameSlot = 1
		m.status = "names must differ"
		return
	}
	m.startMatch()
}

func (m *Model) startMatch() {
	m.g = game.NewMatch("local", m.names, m.gameOpts...)
	if err := m.g.StartHand(); err != nil {
		m.status = err.Error()
		return
	}
	m.logger.Info("match started", "players", m.names)
	m.viewer = m.actingSeat()
	m.input.Placeholder = "check, bet 5, call, raise 10, fold, discard 1 3, stand, next"
	m.screen = screenHandoff
}

func (m *Model) submitCommand(input string) {
	if input == "quit" {
		m.quitting = true
		return
	}
	if input == "" {
		return
	}

	act, err := parseAction(input)
	if err != nil {
		m.status = err.Error()
		return
	}

	if err := m.g.Apply(m.viewer, act); err != nil {
		m.status = err.Error()
		return
	}
	m.status = ""
	m.afterAction()
}

// afterAction decides who holds the device next.
func (m *Model) afterAction() {
	if m.g.Phase == game.PhaseMatchComplete {
		m.screen = screenDone
		return
	}

	next := m.actingSeat()
	if next != m.viewer {
		m.viewer = next
		m.screen = screenHandoff
	}
}

// actingSeat returns whoever must act in the current phase. During the
// completed-hand pause either player may press next; the device stays put.
func (m *Model) actingSeat() int {
	switch m.g.Phase {
	case game.PhasePreDrawBetting, game.PhasePostDrawBetting:
		if m.g.Betting != nil {
			return m.g.Betting.ToAct
		}
	case game.PhaseDraw:
		if seat := m.g.DrawTurn(); seat >= 0 {
			return seat
		}
	}
	return m.viewer
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.screen {
	case screenNames:
		return m.viewNames()
	case screenHandoff:
		return m.viewHandoff()
	case screenPlay:
		return m.viewPlay()
	case screenDone:
		return m.viewDone()
	}
	return ""
}

func (m *Model) viewNames() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" Joker Draw "))
	b.WriteString("\n\n")
	b.WriteString(InfoStyle.Render("Pass-and-play: two players, one screen."))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) viewHandoff() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" Joker Draw "))
	b.WriteString("\n\n")
	b.WriteString(HandInfoStyle.Render(fmt.Sprintf("Pass the device to %s.", m.names[m.viewer])))
	b.WriteString("\n\n")
	b.WriteString(InfoStyle.Render("Press Enter when ready."))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) viewPlay() string {
	v := view.Project(m.g, m.viewer)

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" Hand %d · %s ", v.HandNum, m.names[m.viewer])))
	b.WriteString("\n\n")

	b.WriteString(WarningStyle.Render(fmt.Sprintf("Pot: %d", v.Pot)))
	if v.Betting != nil && v.Betting.CurrentBet > 0 {
		b.WriteString("  ")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Bet: %d", v.Betting.CurrentBet)))
	}
	b.WriteString("\n\n")

	for seat := 0; seat < 2; seat++ {
		p := v.Players[seat]
		marker := "  "
		if seat == m.viewer {
			marker = "▸ "
		}
		b.WriteString(fmt.Sprintf("%s%s  chips %d", marker, p.Name, p.Chips))
		if p.Folded {
			b.WriteString(ErrorStyle.Render("  folded"))
		}
		b.WriteString("\n   ")
		b.WriteString(m.formatHand(p.Hand))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if v.Showdown != nil {
		for seat, h := range v.Showdown.Hands {
			line := fmt.Sprintf("%s: %s", v.Players[seat].Name, h.Description)
			if seat == v.Showdown.Winner {
				b.WriteString(SuccessStyle.Render(line + "  wins"))
			} else {
				b.WriteString(InfoStyle.Render(line))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderActions(v.Capabilities))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render("Enter to submit · Ctrl+C to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) viewDone() string {
	result := m.g.Result

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" Match Complete "))
	b.WriteString("\n\n")
	if result != nil {
		if result.Draw {
			b.WriteString(WarningStyle.Render(fmt.Sprintf("Drawn match: %d chips apiece.", result.FinalChips[0])))
		} else {
			b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s wins, %d chips to %d.",
				result.WinnerName, result.FinalChips[result.Winner], result.FinalChips[1-result.Winner])))
		}
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(fmt.Sprintf("Hands played: %d", result.HandsPlayed)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render("Press Enter to exit."))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderActions(caps view.Capabilities) string {
	var actions []string
	if caps.CanCheck {
		actions = append(actions, SuccessStyle.Render("[check]"))
	}
	if caps.CanBet {
		actions = append(actions, WarningStyle.Render("[bet n]"))
	}
	if caps.CanCall {
		actions = append(actions, SuccessStyle.Render("[call]"))
	}
	if caps.CanRaise {
		actions = append(actions, WarningStyle.Render("[raise n]"))
	}
	if caps.CanFold {
		actions = append(actions, ErrorStyle.Render("[fold]"))
	}
	if caps.CanDiscard {
		actions = append(actions, WarningStyle.Render("[discard i j ...]"), SuccessStyle.Render("[stand]"))
	}
	if caps.CanNextHand {
		actions = append(actions, SuccessStyle.Render("[next]"))
	}
	if len(actions) == 0 {
		actions = append(actions, InfoStyle.Render("[waiting]"))
	}
	return ActionsStyle.Render("Actions: ") + strings.Join(actions, " ")
}

func (m *Model) formatHand(cards []view.CardView) string {
	if len(cards) == 0 {
		return InfoStyle.Render("(no cards)")
	}

	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		switch {
		case c.Joker:
			parts = append(parts, JokerCardStyle.Render("JOKER"))
		case c.Rank == nil || c.Suit == nil:
			parts = append(parts, InfoStyle.Render("??"))
		case *c.Suit == deck.Hearts.String() || *c.Suit == deck.Diamonds.String():
			parts = append(parts, RedCardStyle.Render(*c.Rank+*c.Suit))
		default:
			parts = append(parts, BlackCardStyle.Render(*c.Rank+*c.Suit))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// parseAction turns a typed command into a game action. Discard indices are
// entered 1-based.
func parseAction(input string) (game.Action, error) {
	parts := strings.Fields(strings.ToLower(input))
	if len(parts) == 0 {
		return game.Action{}, fmt.Errorf("empty command")
	}

	switch parts[0] {
	case "check":
		return game.Action{Type: game.ActionCheck}, nil
	case "call":
		return game.Action{Type: game.ActionCall}, nil
	case "fold":
		return game.Action{Type: game.ActionFold}, nil
	case "next":
		return game.Action{Type: game.ActionNextHand}, nil
	case "stand", "pat":
		return game.Action{Type: game.ActionDiscard}, nil
	case "bet", "raise":
		if len(parts) != 2 {
			return game.Action{}, fmt.Errorf("usage: %s <amount>", parts[0])
		}
		amount, err := strconv.Atoi(parts[1])
		if err != nil {
			return game.Action{}, fmt.Errorf("bad amount %q", parts[1])
		}
		t := game.ActionBet
		if parts[0] == "raise" {
			t = game.ActionRaise
		}
		return game.Action{Type: t, Amount: amount}, nil
	case "discard":
		if len(parts) == 1 {
			return game.Action{Type: game.ActionDiscard}, nil
		}
		indices := make([]int, 0, len(parts)-1)
		for _, p := range parts[1:] {
			i, err := strconv.Atoi(p)
			if err != nil || i < 1 {
				return game.Action{}, fmt.Errorf("bad card number %q", p)
			}
			indices = append(indices, i-1)
		}
		return game.Action{Type: game.ActionDiscard, CardIndices: indices}, nil
	default:
		return game.Action{}, fmt.Errorf("unknown command %q", parts[0])
	}
}
