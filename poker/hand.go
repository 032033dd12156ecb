package poker

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidHand is returned when a card set cannot form a hand, e.g. it holds
// the same card twice.
var ErrInvalidHand = errors.New("invalid hand")

// MaxHandSize is the largest card set Classify accepts.
const MaxHandSize = 5

// HandType enumerates hand categories ordered from weakest to strongest.
// Incomplete sits below every real category.
type HandType int

const (
	Incomplete HandType = iota - 1
	HighCard
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// HandTypes lists the ten real categories, weakest first.
var HandTypes = [...]HandType{
	HighCard, OnePair, TwoPair, ThreeOfAKind, Straight,
	Flush, FullHouse, FourOfAKind, StraightFlush, RoyalFlush,
}

// String returns the category tag, e.g. "full-house".
func (t HandType) String() string {
	switch t {
	case Incomplete:
		return "incomplete"
	case HighCard:
		return "high-card"
	case OnePair:
		return "one-pair"
	case TwoPair:
		return "two-pair"
	case ThreeOfAKind:
		return "three-of-a-kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full-house"
	case FourOfAKind:
		return "four-of-a-kind"
	case StraightFlush:
		return "straight-flush"
	case RoyalFlush:
		return "royal-flush"
	default:
		return "unknown"
	}
}

// Name returns a human-readable category name
func (t HandType) Name() string {
	switch t {
	case Incomplete:
		return "Incomplete"
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// ParseHandType converts a category tag back into a HandType.
func ParseHandType(tag string) (HandType, error) {
	if tag == Incomplete.String() {
		return Incomplete, nil
	}
	for _, t := range HandTypes {
		if t.String() == tag {
			return t, nil
		}
	}
	return Incomplete, fmt.Errorf("unknown hand type %q", tag)
}

// Hand is a classified card set. Cards are ordered for tie-breaking: matched
// groups first, then kickers, all ace-high (a wheel straight is ordered 5-4-3-2-A).
type Hand struct {
	Type  HandType
	Cards []Card
}

// Rank returns the category index, -1 for incomplete hands.
func (h Hand) Rank() int {
	return int(h.Type)
}

// Description returns a human-readable summary, e.g. "Full House, Threes over Aces".
func (h Hand) Description() string {
	if len(h.Cards) == 0 {
		return h.Type.Name()
	}
	top := h.Cards[0].Face

	switch h.Type {
	case HighCard:
		return fmt.Sprintf("%s High", top.Name())
	case OnePair:
		return fmt.Sprintf("Pair of %s", top.Plural())
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", top.Plural(), h.Cards[2].Face.Plural())
	case ThreeOfAKind:
		return fmt.Sprintf("Three %s", top.Plural())
	case Straight:
		return fmt.Sprintf("%s-high Straight", top.Name())
	case Flush:
		return fmt.Sprintf("%s-high Flush", top.Name())
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", top.Plural(), h.Cards[3].Face.Plural())
	case FourOfAKind:
		return fmt.Sprintf("Four %s", top.Plural())
	case StraightFlush:
		return fmt.Sprintf("%s-high Straight Flush", top.Name())
	default:
		return h.Type.Name()
	}
}

// String returns the description followed by the ordered cards
func (h Hand) String() string {
	return fmt.Sprintf("%s %v", h.Description(), h.Cards)
}

type handJSON struct {
	Type        string `json:"type"`
	Cards       []Card `json:"cards"`
	Rank        int    `json:"rank"`
	Description string `json:"description"`
}

// MarshalJSON implements json.Marshaler
func (h Hand) MarshalJSON() ([]byte, error) {
	cards := h.Cards
	if cards == nil {
		cards = []Card{}
	}
	return json.Marshal(handJSON{
		Type:        h.Type.String(),
		Cards:       cards,
		Rank:        h.Rank(),
		Description: h.Description(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (h *Hand) UnmarshalJSON(data []byte) error {
	var raw handJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseHandType(raw.Type)
	if err != nil {
		return err
	}
	*h = Hand{Type: t, Cards: raw.Cards}
	return nil
}

// compareAceHigh orders cards high to low with Ace above King. It returns a
// negative number when a should sort before b.
func compareAceHigh(a, b Card) int {
	return b.Face.AceHigh() - a.Face.AceHigh()
}

// compareAceLow orders cards high to low with Ace below Two.
func compareAceLow(a, b Card) int {
	return int(b.Face) - int(a.Face)
}

func sortedCopy(cards []Card, cmp func(a, b Card) int) []Card {
	out := slices.Clone(cards)
	slices.SortStableFunc(out, cmp)
	return out
}

// groups splits cards by how many times their face appears.
type groups struct {
	quads, trips, pairs, others []Card
}

func groupFaces(cards []Card) groups {
	byFace := make(map[Face][]Card, len(cards))
	for _, c := range cards {
		byFace[c.Face] = append(byFace[c.Face], c)
	}

	var g groups
	for _, same := range byFace {
		switch len(same) {
		case 4:
			g.quads = append(g.quads, same...)
		case 3:
			g.trips = append(g.trips, same...)
		case 2:
			g.pairs = append(g.pairs, same...)
		default:
			g.others = append(g.others, same...)
		}
	}

	// Map iteration order is random; a stable ace-high sort fixes the order
	// across faces and keeps input order within a face.
	for _, group := range []*[]Card{&g.quads, &g.trips, &g.pairs, &g.others} {
		slices.SortStableFunc(*group, compareAceHigh)
	}
	return g
}

func isFlush(cards []Card) bool {
	if len(cards) != MaxHandSize {
		return false
	}
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// straightOrder returns the cards in straight order when they form one.
// Ace-high runs are tried first; the ace-low order only matters for the wheel.
func straightOrder(cards []Card) ([]Card, bool) {
	if len(cards) != MaxHandSize {
		return nil, false
	}

	aceHigh := sortedCopy(cards, compareAceHigh)
	if descendsByOne(aceHigh, Face.AceHigh) {
		return aceHigh, true
	}

	aceLow := sortedCopy(cards, compareAceLow)
	if descendsByOne(aceLow, func(f Face) int { return int(f) }) {
		return aceLow, true
	}
	return nil, false
}

func descendsByOne(cards []Card, value func(Face) int) bool {
	for i := 1; i < len(cards); i++ {
		if value(cards[i-1].Face)-value(cards[i].Face) != 1 {
			return false
		}
	}
	return true
}

func validate(cards []Card) error {
	if len(cards) > MaxHandSize {
		return fmt.Errorf("%w: %d cards, at most %d allowed", ErrInvalidHand, len(cards), MaxHandSize)
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		id := NewCard(c.Face, c.Suit)
		if seen[id] {
			return fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c.Display())
		}
		seen[id] = true
	}
	return nil
}

// Classify assigns a category to a set of up to five cards. Categories are
// detected in a fixed precedence order, the first match wins.
func Classify(cards []Card) (Hand, error) {
	if err := validate(cards); err != nil {
		return Hand{}, err
	}

	if len(cards) < 2 {
		return Hand{Type: Incomplete, Cards: slices.Clone(cards)}, nil
	}

	g := groupFaces(cards)
	flush := isFlush(cards)
	straight, isStraight := straightOrder(cards)

	switch {
	case flush && isStraight && straight[0].Face == Ace && straight[4].Face == Ten:
		return Hand{Type: RoyalFlush, Cards: straight}, nil
	case flush && isStraight:
		return Hand{Type: StraightFlush, Cards: straight}, nil
	case len(g.quads) > 0:
		return Hand{Type: FourOfAKind, Cards: slices.Concat(g.quads, g.others)}, nil
	case len(g.trips) > 0 && len(g.pairs) == 2:
		return Hand{Type: FullHouse, Cards: slices.Concat(g.trips, g.pairs)}, nil
	case flush:
		return Hand{Type: Flush, Cards: sortedCopy(cards, compareAceHigh)}, nil
	case isStraight:
		return Hand{Type: Straight, Cards: straight}, nil
	case len(g.trips) > 0:
		return Hand{Type: ThreeOfAKind, Cards: slices.Concat(g.trips, g.others)}, nil
	case len(g.pairs) == 2:
		return Hand{Type: OnePair, Cards: slices.Concat(g.pairs, g.others)}, nil
	case len(g.pairs) == 4:
		return Hand{Type: TwoPair, Cards: slices.Concat(g.pairs, g.others)}, nil
	default:
		return Hand{Type: HighCard, Cards: sortedCopy(cards, compareAceHigh)}, nil
	}
}

// MustClassify is like Classify but panics on error. Intended for tests.
func MustClassify(cards []Card) Hand {
	h, err := Classify(cards)
	if err != nil {
		panic(err)
	}
	return h
}
