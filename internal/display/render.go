// Package display renders cards, hands and room state for the terminal.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/server"
	"github.com/lox/chinesepoker/poker"
)

const (
	emptyPosition = "__"
	hiddenCard    = "??"
)

// Renderer formats game objects as text, optionally styled.
type Renderer struct {
	color bool
}

// New returns a Renderer. Without color, output is plain text.
func New(color bool) *Renderer {
	return &Renderer{color: color}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// Card renders a card, e.g. "A♠".
func (r *Renderer) Card(c poker.Card) string {
	style := BlackCardStyle
	if c.IsRed() {
		style = RedCardStyle
	}
	return r.style(style, c.String())
}

// Cards renders cards separated by spaces.
func (r *Renderer) Cards(cards []poker.Card) string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = r.Card(c)
	}
	return strings.Join(out, " ")
}

// WireCard renders a card received from the server; face-down cards show as "??".
func (r *Renderer) WireCard(c *poker.CardJSON) string {
	switch {
	case c == nil:
		return r.style(InfoStyle, emptyPosition)
	case c.Side == poker.Back:
		return r.style(CardBackStyle, hiddenCard)
	}
	card, err := cardFromWire(*c)
	if err != nil {
		return c.FaceDisplay + c.SuitDisplay
	}
	return r.Card(card)
}

func cardFromWire(c poker.CardJSON) (poker.Card, error) {
	suit, err := poker.ParseSuit(c.Suit)
	if err != nil {
		return poker.Card{}, err
	}
	face := poker.Face(c.Face)
	if !face.Valid() {
		return poker.Card{}, fmt.Errorf("%w: face %d", poker.ErrInvalidCardDisplay, c.Face)
	}
	return poker.Card{Suit: suit, Face: face, Key: c.Key}, nil
}

// Hand renders a classified hand, e.g. "Full House  3♠ 3♦ 3♥ A♥ A♣  (Full House, Threes over Aces)".
func (r *Renderer) Hand(h poker.Hand) string {
	return fmt.Sprintf("%s  %s  (%s)", r.style(HandInfoStyle, h.Type.Name()), r.Cards(h.Cards), h.Description())
}

// Ranked renders hands best first, one per line, numbered from 1.
func (r *Renderer) Ranked(hands []poker.Hand) string {
	var b strings.Builder
	for i, h := range hands {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Hand(h))
	}
	return b.String()
}

// Title renders a banner.
func (r *Renderer) Title(text string) string {
	return r.style(HeaderStyle, " "+text+" ")
}

// Failure renders a local error line.
func (r *Renderer) Failure(text string) string {
	return r.style(ErrorStyle, text)
}

// Error renders a server error.
func (r *Renderer) Error(e server.ErrorData) string {
	return r.style(ErrorStyle, fmt.Sprintf("error (%s): %s", e.Code, e.Message))
}

// State renders a room from the point of view of viewerID.
func (r *Renderer) State(st server.StateData, viewerID string) string {
	var b strings.Builder

	button := "-"
	if st.Button >= 0 && st.Button < len(st.Players) {
		button = st.Players[st.Button].ID
	}
	header := fmt.Sprintf(" %s · round %d · button %s · deck %d ", st.Room, st.Round, button, st.DeckRemaining)
	b.WriteString(r.style(HeaderStyle, header))
	b.WriteString("\n")

	for _, p := range st.Players {
		marker := " "
		if p.ID == viewerID {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s (%s) seat %d", marker, p.ID, p.Name, p.Seat)
		if p.Complete {
			b.WriteString(" ✓")
		}
		b.WriteString("\n")

		rows := []struct {
			slot  chinese.Slot
			cards []*poker.CardJSON
			hand  *poker.Hand
		}{
			{chinese.Top, p.Hand.Top, nil},
			{chinese.Middle, p.Hand.Middle, nil},
			{chinese.Bottom, p.Hand.Bottom, nil},
		}
		if p.Evaluation != nil {
			rows[0].hand, rows[1].hand, rows[2].hand = &p.Evaluation.Top, &p.Evaluation.Middle, &p.Evaluation.Bottom
		}
		for _, row := range rows {
			fmt.Fprintf(&b, "    %-8s", row.slot.String()+":")
			for i, c := range row.cards {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString(r.WireCard(c))
			}
			if row.hand != nil && row.hand.Type != poker.Incomplete {
				b.WriteString("   " + r.style(HandInfoStyle, row.hand.Description()))
			}
			b.WriteString("\n")
		}

		if unplaced := unplacedCards(p); len(unplaced) > 0 {
			parts := make([]string, len(unplaced))
			for i, c := range unplaced {
				parts[i] = r.WireCard(c)
			}
			fmt.Fprintf(&b, "    %-8s%s\n", "hand:", strings.Join(parts, " "))
		}
	}

	if len(st.Waiting) > 0 {
		ids := make([]string, len(st.Waiting))
		for i, w := range st.Waiting {
			ids[i] = w.ID
		}
		b.WriteString(r.style(InfoStyle, "  waiting: "+strings.Join(ids, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

// unplacedCards returns the dealt cards that appear in no slot.
func unplacedCards(p server.PlayerState) []*poker.CardJSON {
	placed := make(map[string]bool)
	for _, slot := range [][]*poker.CardJSON{p.Hand.Top, p.Hand.Middle, p.Hand.Bottom} {
		for _, c := range slot {
			if c != nil {
				placed[c.Key] = true
			}
		}
	}

	var out []*poker.CardJSON
	for i := range p.Cards {
		if !placed[p.Cards[i].Key] {
			out = append(out, &p.Cards[i])
		}
	}
	return out
}
