// Package chinese implements a two-player Chinese Poker round: seating, button
// rotation, dealing and the arrangement of thirteen cards into top, middle and
// bottom hands.
//
// A Round is not safe for concurrent use. Callers serving several connections
// must serialise calls, one request at a time.
package chinese

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/chinesepoker/poker"
)

// MaxSeats is the number of active seats at a round.
const MaxSeats = 2

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrCardNotHeld     = errors.New("card not held by player")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrInvalidPosition = errors.New("invalid position")
	ErrDeckExhausted   = errors.New("not enough cards to deal")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrIndexMismatch   = errors.New("placement index out of sync")
)

// Policy decides how out-of-range placements are reported.
type Policy uint8

const (
	// PolicyLenient ignores out-of-range placements; state is left unchanged.
	PolicyLenient Policy = iota
	// PolicyStrict rejects them with ErrInvalidPosition.
	PolicyStrict
)

// Option configures a Round
type Option func(*Round)

// WithPolicy sets the placement policy. The default is PolicyLenient.
func WithPolicy(p Policy) Option {
	return func(r *Round) {
		r.policy = p
	}
}

// WithDeck replaces the round's deck, e.g. with a prearranged one in tests.
func WithDeck(d *poker.Deck) Option {
	return func(r *Round) {
		r.deck = d
	}
}

// Round is the state of a Chinese Poker table: the deck, up to two active
// players in seat order, a FIFO waiting queue and the button.
type Round struct {
	deck    *poker.Deck
	players []*Player
	waiting []*Player
	button  int
	number  int
	policy  Policy
}

// NewRound creates an empty table with a full deck. The button is -1 until the
// first round starts.
func NewRound(rng *rand.Rand, opts ...Option) *Round {
	r := &Round{
		button: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.deck == nil {
		r.deck = poker.NewDeck(rng)
	}
	return r
}

// Players returns the active players in seat order.
func (r *Round) Players() []*Player {
	return slices.Clone(r.players)
}

// Waiting returns the queued players, first in line first.
func (r *Round) Waiting() []*Player {
	return slices.Clone(r.waiting)
}

// Button returns the seat index holding the button, -1 before the first round.
func (r *Round) Button() int {
	return r.button
}

// Number returns how many rounds have been started at this table.
func (r *Round) Number() int {
	return r.number
}

// Deck returns the round's deck
func (r *Round) Deck() *poker.Deck {
	return r.deck
}

// Policy returns the placement policy
func (r *Round) Policy() Policy {
	return r.policy
}

// Player returns the active player with the given id.
func (r *Round) Player(id string) (*Player, bool) {
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SeatPlayer takes an active seat when one is free, otherwise joins the back of
// the waiting queue. It reports whether an active seat was taken. Seating the
// same id twice creates two entries.
func (r *Round) SeatPlayer(id, name string) bool {
	p := NewPlayer(id, name)
	if len(r.players) >= MaxSeats {
		r.waiting = append(r.waiting, p)
		return false
	}
	r.players = append(r.players, p)
	return true
}

// UnseatPlayer removes the first active player with the given id. Waiting
// players are not affected.
func (r *Round) UnseatPlayer(id string) bool {
	for i, p := range r.players {
		if p.ID == id {
			r.players = slices.Delete(r.players, i, i+1)
			return true
		}
	}
	return false
}

// Unqueue removes the first waiting player with the given id.
func (r *Round) Unqueue(id string) bool {
	for i, p := range r.waiting {
		if p.ID == id {
			r.waiting = slices.Delete(r.waiting, i, i+1)
			return true
		}
	}
	return false
}

// StartRound fills free seats from the waiting queue, restores the full deck,
// moves the button, clears every active player's cards and arrangement and
// shuffles.
func (r *Round) StartRound() {
	for len(r.players) < MaxSeats && len(r.waiting) > 0 {
		r.players = append(r.players, r.waiting[0])
		r.waiting = r.waiting[1:]
	}

	r.deck.Reset()
	r.number++
	if n := len(r.players); n > 0 {
		r.button = (r.button + 1) % n
	}
	for _, p := range r.players {
		p.reset()
	}
	r.deck.Shuffle()
}

// Deal gives each active player thirteen cards, one at a time in seat order.
// Nothing is dealt when the deck is too short.
func (r *Round) Deal() error {
	need := HandSize * len(r.players)
	if r.deck.Len() < need {
		return fmt.Errorf("%w: need %d, deck has %d: %w", ErrDeckExhausted, need, r.deck.Len(), poker.ErrDeckExhausted)
	}

	for range HandSize {
		for _, p := range r.players {
			cards, err := r.deck.Pick(1)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDeckExhausted, err)
			}
			p.Cards = append(p.Cards, cards...)
		}
	}
	return nil
}

// PlaceCard moves the card with cardKey to position in slot. When the card was
// already placed, the card previously at the target takes its old position.
// When it was not, the previous occupant is left unplaced.
func (r *Round) PlaceCard(playerID string, slot Slot, position int, cardKey string) error {
	p, ok := r.Player(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if !slot.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if position < 0 || position >= slot.Capacity() {
		if r.policy == PolicyStrict {
			return fmt.Errorf("%w: %s holds %d cards, got position %d", ErrInvalidPosition, slot, slot.Capacity(), position)
		}
		return nil
	}
	if _, held := p.Card(cardKey); !held {
		return fmt.Errorf("%w: %s", ErrCardNotHeld, cardKey)
	}

	p.place(Placement{Slot: slot, Position: position}, cardKey)
	return nil
}

// RemoveCard unplaces the card with cardKey. Unplaced cards are left alone.
func (r *Round) RemoveCard(playerID, cardKey string) error {
	p, ok := r.Player(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	p.unplace(cardKey)
	return nil
}

// Complete reports whether there are active players and all have arranged
// every card.
func (r *Round) Complete() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.Complete() {
			return false
		}
	}
	return true
}
