package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/server"
	"github.com/lox/chinesepoker/poker"
)

func wire(t *testing.T, display string) *poker.CardJSON {
	t.Helper()
	c, err := poker.ParseCard(display)
	require.NoError(t, err)
	j := c.JSON()
	return &j
}

func TestRenderCards(t *testing.T) {
	t.Parallel()
	r := New(false)

	assert.Equal(t, "A♠ T♥ 2♦", r.Cards(poker.MustParseCards("As Th 2d")))
	assert.Equal(t, "K♣", r.WireCard(wire(t, "Kc")))
	assert.Equal(t, "??", r.WireCard(&poker.CardJSON{Side: poker.Back, Key: "x"}))
	assert.Equal(t, "__", r.WireCard(nil))
}

func TestRenderHand(t *testing.T) {
	t.Parallel()
	r := New(false)

	hand := poker.MustClassify(poker.MustParseCards("9s 8s 7d 6h 5c"))
	assert.Equal(t, "Straight  9♠ 8♠ 7♦ 6♥ 5♣  (Nine-high Straight)", r.Hand(hand))

	pair := poker.MustClassify(poker.MustParseCards("Qh Qd"))
	ranked := r.Ranked([]poker.Hand{hand, pair})
	lines := strings.Split(strings.TrimSpace(ranked), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "1. Straight"))
	assert.True(t, strings.HasPrefix(lines[1], "2. One Pair"))
}

func TestRenderError(t *testing.T) {
	t.Parallel()
	out := New(false).Error(server.ErrorData{Code: server.ErrCodeNotSeated, Message: "take a seat first"})
	assert.Equal(t, "error (not_seated): take a seat first", out)
}

func TestRenderState(t *testing.T) {
	t.Parallel()

	empty := func(n int) []*poker.CardJSON { return make([]*poker.CardJSON, n) }
	top := empty(3)
	top[0] = wire(t, "As")

	st := server.StateData{
		Room:          "default",
		Round:         2,
		Button:        1,
		DeckRemaining: 48,
		Players: []server.PlayerState{
			{
				ID: "alice", Name: "Alice", Seat: 0,
				Cards: []poker.CardJSON{*wire(t, "As"), *wire(t, "Kh")},
				Hand:  server.HandState{Top: top, Middle: empty(5), Bottom: empty(5)},
			},
			{
				ID: "bob", Name: "Bob", Seat: 1,
				Cards: []poker.CardJSON{{Side: poker.Back, Key: "k1"}, {Side: poker.Back, Key: "k2"}},
				Hand:  server.HandState{Top: empty(3), Middle: empty(5), Bottom: empty(5)},
			},
		},
		Waiting: []server.WaitingInfo{{ID: "carol", Name: "Carol"}},
	}

	out := New(false).State(st, "alice")
	lines := strings.Split(out, "\n")

	assert.Equal(t, " default · round 2 · button bob · deck 48 ", lines[0])
	assert.Equal(t, "> alice (Alice) seat 0", lines[1])
	assert.Equal(t, "    top:    A♠ __ __", lines[2])
	assert.Equal(t, "    middle: __ __ __ __ __", lines[3])
	assert.Equal(t, "    bottom: __ __ __ __ __", lines[4])
	assert.Equal(t, "    hand:   K♥", lines[5], "placed cards are not repeated")
	assert.Equal(t, "  bob (Bob) seat 1", lines[6])
	assert.Contains(t, out, "    hand:   ?? ??")
	assert.Contains(t, out, "  waiting: carol")
}

func TestRenderStateShowsEvaluation(t *testing.T) {
	t.Parallel()

	p := chinese.NewPlayer("alice", "Alice")
	p.Cards = poker.MustParseCards("2s 2d 3c Ah Kh Qh Jh Th 9c 9d 9h 4s 4c")
	order := []chinese.Slot{chinese.Top, chinese.Top, chinese.Top}
	for range 5 {
		order = append(order, chinese.Middle)
	}
	for range 5 {
		order = append(order, chinese.Bottom)
	}
	for i, c := range p.Cards {
		require.True(t, p.AddToHand(order[i], c))
	}
	require.True(t, p.Complete())

	st := server.StateData{Room: "r", Button: 0, Players: []server.PlayerState{server.PlayerStateFromRound(p, 0, "")}}
	out := New(false).State(st, "")

	assert.Contains(t, out, "alice (Alice) seat 0 ✓")
	assert.Contains(t, out, "Pair of Deuces")
	assert.Contains(t, out, "Royal Flush")
	assert.Contains(t, out, "Full House, Nines over Fours")
	assert.NotContains(t, out, "hand:")
}
