package poker

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/google/uuid"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// shufflePasses is how many shuffle-and-cut passes Shuffle performs.
const shufflePasses = 5

// ErrDeckExhausted is returned when more cards are requested than remain.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is an ordered sequence of distinct cards. The head of the deck is index 0.
type Deck struct {
	cards  []Card
	rng    *rand.Rand
	newKey func() string
}

// DeckOption configures a Deck
type DeckOption func(*Deck)

// WithKeyFunc overrides how card keys are generated on Reset. The default is a
// random UUID per card.
func WithKeyFunc(fn func() string) DeckOption {
	return func(d *Deck) {
		d.newKey = fn
	}
}

// NewDeck creates a full, unshuffled deck in canonical order using rng for shuffling
func NewDeck(rng *rand.Rand, opts ...DeckOption) *Deck {
	d := &Deck{
		cards:  make([]Card, 0, DeckSize),
		rng:    rng,
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// NewDeckFromCards rebuilds a deck holding exactly the given cards in order.
func NewDeckFromCards(rng *rand.Rand, cards []Card) (*Deck, error) {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Face.Valid() {
			return nil, fmt.Errorf("%w: face %d out of range", ErrInvalidCardDisplay, c.Face)
		}
		id := NewCard(c.Face, c.Suit)
		if seen[id] {
			return nil, fmt.Errorf("duplicate card %s in deck", c.Display())
		}
		seen[id] = true
	}
	if len(cards) > DeckSize {
		return nil, fmt.Errorf("deck holds %d cards, at most %d allowed", len(cards), DeckSize)
	}

	d := &Deck{
		cards:  append(make([]Card, 0, DeckSize), cards...),
		rng:    rng,
		newKey: uuid.NewString,
	}
	return d, nil
}

// Reset restores all 52 cards in canonical order with fresh keys.
// Suits follow Suits order; faces run Ace through King.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for _, suit := range Suits {
		for face := Ace; face <= King; face++ {
			card := NewCard(face, suit)
			if d.newKey != nil {
				card.Key = d.newKey()
			}
			d.cards = append(d.cards, card)
		}
	}
}

// Shuffle randomises the deck: several Fisher-Yates passes, each followed by a
// cut at the midpoint.
func (d *Deck) Shuffle() {
	half := len(d.cards) / 2
	for range shufflePasses {
		for i := len(d.cards) - 1; i > 0; i-- {
			j := d.intN(i + 1)
			d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
		}
		d.cards = slices.Concat(d.cards[half:], d.cards[:half])
	}
}

func (d *Deck) intN(n int) int {
	if d.rng != nil {
		return d.rng.IntN(n)
	}
	return rand.IntN(n)
}

// Pick removes and returns the first n cards. It fails without removing
// anything when fewer than n cards remain.
func (d *Deck) Pick(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot pick %d cards", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrDeckExhausted, n, len(d.cards))
	}
	picked := make([]Card, n)
	copy(picked, d.cards[:n])
	d.cards = append(d.cards[:0], d.cards[n:]...)
	return picked, nil
}

// Len returns the number of cards left in the deck
func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in deck order.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
