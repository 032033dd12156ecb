package chinese

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/chinesepoker/poker"
)

// Snapshot is the serialisable state of a Round.
type Snapshot struct {
	Deck    []poker.Card     `json:"deck"`
	Players []PlayerSnapshot `json:"players"`
	Waiting []PlayerSnapshot `json:"waiting,omitempty"`
	Button  int              `json:"button"`
	Number  int              `json:"number"`
}

// PlayerSnapshot is the serialisable state of a Player.
type PlayerSnapshot struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Points int          `json:"points"`
	Cards  []poker.Card `json:"cards"`
	Hand   HandSnapshot `json:"hand"`
}

// HandSnapshot lists card keys per slot, "" for empty positions.
type HandSnapshot struct {
	Top    []string `json:"top"`
	Middle []string `json:"middle"`
	Bottom []string `json:"bottom"`
}

// Snapshot captures the round's current state.
func (r *Round) Snapshot() Snapshot {
	snap := Snapshot{
		Deck:    r.deck.Cards(),
		Players: make([]PlayerSnapshot, 0, len(r.players)),
		Button:  r.button,
		Number:  r.number,
	}
	for _, p := range r.players {
		snap.Players = append(snap.Players, p.snapshot())
	}
	for _, p := range r.waiting {
		snap.Waiting = append(snap.Waiting, p.snapshot())
	}
	return snap
}

func (p *Player) snapshot() PlayerSnapshot {
	cards := append([]poker.Card{}, p.Cards...)
	return PlayerSnapshot{
		ID:     p.ID,
		Name:   p.Name,
		Points: p.Points,
		Cards:  cards,
		Hand: HandSnapshot{
			Top:    p.hand.Keys(Top),
			Middle: p.hand.Keys(Middle),
			Bottom: p.hand.Keys(Bottom),
		},
	}
}

// MarshalJSON implements json.Marshaler using the round's snapshot.
func (r *Round) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}

// Restore rebuilds a round from a snapshot. The placement index of each player is
// derived from the slot lists.
func Restore(snap Snapshot, rng *rand.Rand, opts ...Option) (*Round, error) {
	deck, err := poker.NewDeckFromCards(rng, snap.Deck)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if len(snap.Players) > MaxSeats {
		return nil, fmt.Errorf("%w: %d active players", ErrCorruptSnapshot, len(snap.Players))
	}

	r := NewRound(rng, append(opts, WithDeck(deck))...)
	r.button = snap.Button
	if r.button >= len(snap.Players) || r.button < -1 {
		return nil, fmt.Errorf("%w: button %d with %d players", ErrCorruptSnapshot, r.button, len(snap.Players))
	}

	if snap.Number < 0 {
		return nil, fmt.Errorf("%w: round number %d", ErrCorruptSnapshot, snap.Number)
	}
	r.number = snap.Number

	if err := checkDistinct(snap); err != nil {
		return nil, err
	}

	for _, ps := range snap.Players {
		p, err := restorePlayer(ps)
		if err != nil {
			return nil, err
		}
		r.players = append(r.players, p)
	}
	for _, ps := range snap.Waiting {
		p, err := restorePlayer(ps)
		if err != nil {
			return nil, err
		}
		r.waiting = append(r.waiting, p)
	}
	return r, nil
}

// checkDistinct fails when a card appears twice across the deck and every
// player's cards, or a player holds more than a full hand.
func checkDistinct(snap Snapshot) error {
	seen := make(map[poker.Card]string, poker.DeckSize)
	hold := func(owner string, cards []poker.Card) error {
		for _, c := range cards {
			id := poker.NewCard(c.Face, c.Suit)
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: %s held by %s and %s", ErrCorruptSnapshot, c.Display(), prev, owner)
			}
			seen[id] = owner
		}
		return nil
	}

	if err := hold("the deck", snap.Deck); err != nil {
		return err
	}
	for _, ps := range slices.Concat(snap.Players, snap.Waiting) {
		if len(ps.Cards) > HandSize {
			return fmt.Errorf("%w: player %s holds %d cards", ErrCorruptSnapshot, ps.ID, len(ps.Cards))
		}
		if err := hold("player "+ps.ID, ps.Cards); err != nil {
			return err
		}
	}
	return nil
}

func restorePlayer(ps PlayerSnapshot) (*Player, error) {
	p := NewPlayer(ps.ID, ps.Name)
	p.Points = ps.Points
	p.Cards = append([]poker.Card(nil), ps.Cards...)

	lists := map[Slot][]string{Top: ps.Hand.Top, Middle: ps.Hand.Middle, Bottom: ps.Hand.Bottom}
	for _, s := range Slots {
		keys := lists[s]
		if len(keys) > s.Capacity() {
			return nil, fmt.Errorf("%w: player %s has %d %s positions", ErrCorruptSnapshot, ps.ID, len(keys), s)
		}
		copy(p.hand.slot(s), keys)
	}

	if err := p.rebuildIndex(); err != nil {
		return nil, fmt.Errorf("player %s: %w", ps.ID, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: player %s: %w", ErrCorruptSnapshot, ps.ID, err)
	}
	return p, nil
}

// UnmarshalRound decodes a round from its JSON snapshot.
func UnmarshalRound(data []byte, rng *rand.Rand, opts ...Option) (*Round, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return Restore(snap, rng, opts...)
}
