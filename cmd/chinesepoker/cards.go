package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/display"
	"github.com/lox/chinesepoker/internal/randutil"
	"github.com/lox/chinesepoker/poker"
)

var stdout io.Writer = os.Stdout

// RenderFlags are shared by commands that print cards
type RenderFlags struct {
	NoColor bool `help:"Disable coloured output"`
}

func (f RenderFlags) renderer() *display.Renderer {
	return display.New(!f.NoColor)
}

// ClassifyCmd prints the category of a set of cards
type ClassifyCmd struct {
	RenderFlags `embed:""`
	Cards       []string `arg:"" help:"Cards such as As Kd 10h, at most five"`
}

func (c *ClassifyCmd) Run() error {
	cards, err := poker.ParseCards(strings.Join(c.Cards, " "))
	if err != nil {
		return err
	}
	hand, err := poker.Classify(cards)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, c.renderer().Hand(hand))
	return err
}

// RankCmd orders hands from best to worst
type RankCmd struct {
	RenderFlags `embed:""`
	Hands       []string `arg:"" help:"Hands as runs of cards, e.g. AsKsQsJsTs 9h9d9c2s2d"`
}

// parseHands classifies each argument as one hand.
func parseHands(args []string) ([]poker.Hand, error) {
	hands := make([]poker.Hand, 0, len(args))
	for i, arg := range args {
		cards, err := poker.ParseCards(arg)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i+1, err)
		}
		if len(cards) == 0 {
			return nil, fmt.Errorf("hand %d: %w: no cards", i+1, poker.ErrInvalidHand)
		}
		hand, err := poker.Classify(cards)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i+1, err)
		}
		hands = append(hands, hand)
	}
	return hands, nil
}

func (c *RankCmd) Run() error {
	hands, err := parseHands(c.Hands)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(stdout, c.renderer().Ranked(poker.RankHands(hands)))
	return err
}

// DealCmd deals one round to two players
type DealCmd struct {
	RenderFlags `embed:""`
	Seed        *int64 `help:"Deterministic shuffle seed (optional)"`
}

// dealRound seats two players, starts a round and deals it.
func dealRound(seed int64) (*chinese.Round, error) {
	r := chinese.NewRound(randutil.New(seed))
	r.SeatPlayer("north", "North")
	r.SeatPlayer("south", "South")
	r.StartRound()
	if err := r.Deal(); err != nil {
		return nil, err
	}
	return r, nil
}

// byFace orders cards high to low, then by suit.
func byFace(cards []poker.Card) []poker.Card {
	sorted := slices.Clone(cards)
	slices.SortFunc(sorted, func(a, b poker.Card) int {
		if c := cmp.Compare(b.Face.AceHigh(), a.Face.AceHigh()); c != 0 {
			return c
		}
		return cmp.Compare(a.Suit, b.Suit)
	})
	return sorted
}

func (c *DealCmd) Run() error {
	seed, _ := randutil.Seed(c.Seed)
	r, err := dealRound(seed)
	if err != nil {
		return err
	}

	rd := c.renderer()
	fmt.Fprintln(stdout, rd.Title(fmt.Sprintf("Round %d · seed %d", r.Number(), seed)))
	for i, p := range r.Players() {
		marker := " "
		if i == r.Button() {
			marker = "*"
		}
		fmt.Fprintf(stdout, "%s %-6s %s\n", marker, p.Name, rd.Cards(byFace(p.Cards)))
	}
	_, err = fmt.Fprintf(stdout, "  %d cards left in the deck\n", r.Deck().Len())
	return err
}
