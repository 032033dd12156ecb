package chinese

import (
	"fmt"
	"slices"

	"github.com/lox/chinesepoker/poker"
)

// Player is a seated participant. Cards holds the dealt cards, placed or not;
// Hand holds the arrangement by card key. The index maps each placed key to its
// position and always agrees with Hand.
type Player struct {
	ID     string
	Name   string
	Points int
	Cards  []poker.Card

	hand  Arrangement
	index map[string]Placement
}

// NewPlayer creates a player with no cards
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		index: make(map[string]Placement),
	}
}

// Hand returns a copy of the player's arrangement.
func (p *Player) Hand() Arrangement {
	return p.hand
}

// PlacementOf returns where the card with key sits, if placed.
func (p *Player) PlacementOf(key string) (Placement, bool) {
	pl, ok := p.index[key]
	return pl, ok
}

// Card returns the dealt card with the given key.
func (p *Player) Card(key string) (poker.Card, bool) {
	for _, c := range p.Cards {
		if c.ID() == key {
			return c, true
		}
	}
	return poker.Card{}, false
}

// FindCard resolves a card reference that is either a key or a display string
// ("As") among the player's dealt cards.
func (p *Player) FindCard(ref string) (poker.Card, bool) {
	if c, ok := p.Card(ref); ok {
		return c, true
	}
	parsed, err := poker.ParseCard(ref)
	if err != nil {
		return poker.Card{}, false
	}
	for _, c := range p.Cards {
		if c.Equal(parsed) {
			return c, true
		}
	}
	return poker.Card{}, false
}

// Unplaced returns the dealt cards not yet assigned to a slot, in deal order.
func (p *Player) Unplaced() []poker.Card {
	var out []poker.Card
	for _, c := range p.Cards {
		if _, placed := p.index[c.ID()]; !placed {
			out = append(out, c)
		}
	}
	return out
}

// Complete reports whether every position in every slot is filled.
func (p *Player) Complete() bool {
	return len(p.index) == HandSize
}

// AddToHand puts card into the first empty position of slot. It refuses, and
// returns false, when the slot is full or the card was not dealt to the player.
// A card already placed elsewhere is moved.
func (p *Player) AddToHand(slot Slot, card poker.Card) bool {
	key := card.ID()
	if _, held := p.Card(key); !held {
		return false
	}
	if pl, placed := p.index[key]; placed && pl.Slot == slot {
		return true
	}
	positions := p.hand.slot(slot)
	target := slices.Index(positions, "")
	if target < 0 {
		return false
	}

	p.unplace(key)
	p.set(Placement{Slot: slot, Position: target}, key)
	return true
}

// place assigns key to target, applying swap and eviction rules. The caller has
// checked that key is held and target is in range.
func (p *Player) place(target Placement, key string) {
	occupant := p.hand.slot(target.Slot)[target.Position]
	if occupant == key {
		return
	}

	source, placed := p.index[key]
	if placed {
		p.clear(source)
		if occupant != "" {
			p.set(source, occupant)
		}
	} else if occupant != "" {
		p.clear(target)
	}
	p.set(target, key)
}

// unplace removes key from its slot; a no-op when unassigned.
func (p *Player) unplace(key string) {
	if pl, ok := p.index[key]; ok {
		p.clear(pl)
	}
}

// set and clear are the only writers of hand and index.
func (p *Player) set(pl Placement, key string) {
	p.hand.slot(pl.Slot)[pl.Position] = key
	p.index[key] = pl
}

func (p *Player) clear(pl Placement) {
	positions := p.hand.slot(pl.Slot)
	if key := positions[pl.Position]; key != "" {
		delete(p.index, key)
	}
	positions[pl.Position] = ""
}

// reset drops dealt cards and the arrangement.
func (p *Player) reset() {
	p.Cards = nil
	p.hand = Arrangement{}
	p.index = make(map[string]Placement)
}

// rebuildIndex derives the index from the arrangement.
func (p *Player) rebuildIndex() error {
	p.index = make(map[string]Placement)
	for _, s := range Slots {
		for pos, key := range p.hand.slot(s) {
			if key == "" {
				continue
			}
			if prev, dup := p.index[key]; dup {
				return fmt.Errorf("%w: card %s at %s and %s", ErrCorruptSnapshot, key, prev, Placement{s, pos})
			}
			p.index[key] = Placement{Slot: s, Position: pos}
		}
	}
	return nil
}

// Validate checks that the index and the arrangement agree and that every placed
// card was dealt to the player.
func (p *Player) Validate() error {
	filled := 0
	for _, s := range Slots {
		for pos, key := range p.hand.slot(s) {
			if key == "" {
				continue
			}
			filled++
			want := Placement{Slot: s, Position: pos}
			if got, ok := p.index[key]; !ok || got != want {
				return fmt.Errorf("%w: %s holds %s but index has %v", ErrIndexMismatch, want, key, got)
			}
			if _, held := p.Card(key); !held {
				return fmt.Errorf("%w: %s holds %s which was not dealt", ErrIndexMismatch, want, key)
			}
		}
	}
	if filled != len(p.index) {
		return fmt.Errorf("%w: %d placed cards, %d index entries", ErrIndexMismatch, filled, len(p.index))
	}
	return nil
}

// SlotCards returns the cards placed in slot s in position order, skipping empty
// positions.
func (p *Player) SlotCards(s Slot) []poker.Card {
	var out []poker.Card
	for _, key := range p.hand.slot(s) {
		if key == "" {
			continue
		}
		if c, ok := p.Card(key); ok {
			out = append(out, c)
		}
	}
	return out
}

// Evaluation is the classified hand of each slot.
type Evaluation struct {
	Top    poker.Hand `json:"top"`
	Middle poker.Hand `json:"middle"`
	Bottom poker.Hand `json:"bottom"`
}

// Evaluate classifies the cards currently placed in each slot. Slots with fewer
// than two cards are incomplete.
func (p *Player) Evaluate() (Evaluation, error) {
	var ev Evaluation
	for _, s := range Slots {
		h, err := poker.Classify(p.SlotCards(s))
		if err != nil {
			return Evaluation{}, fmt.Errorf("%s: %w", s, err)
		}
		switch s {
		case Top:
			ev.Top = h
		case Middle:
			ev.Middle = h
		case Bottom:
			ev.Bottom = h
		}
	}
	return ev, nil
}
