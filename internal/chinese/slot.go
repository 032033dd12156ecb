package chinese

import "fmt"

// Slot names one of the three sub-hands a player arranges.
type Slot uint8

const (
	Top Slot = iota
	Middle
	Bottom
)

// Slots lists the sub-hands from top to bottom.
var Slots = [...]Slot{Top, Middle, Bottom}

// HandSize is the number of cards each player arranges.
const HandSize = 13

// Capacity returns how many cards fit in the slot
func (s Slot) Capacity() int {
	switch s {
	case Top:
		return 3
	case Middle, Bottom:
		return 5
	default:
		return 0
	}
}

// Valid reports whether s is one of the three slots.
func (s Slot) Valid() bool {
	return s <= Bottom
}

func (s Slot) String() string {
	switch s {
	case Top:
		return "top"
	case Middle:
		return "middle"
	case Bottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// ParseSlot converts "top", "middle" or "bottom" to a Slot.
func ParseSlot(name string) (Slot, error) {
	for _, s := range Slots {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, name)
}

// Placement is a position within a slot.
type Placement struct {
	Slot     Slot
	Position int
}

func (p Placement) String() string {
	return fmt.Sprintf("%s[%d]", p.Slot, p.Position)
}

// Arrangement holds the card keys placed in each slot; "" marks an empty position.
type Arrangement struct {
	Top    [3]string
	Middle [5]string
	Bottom [5]string
}

// slot returns a view of the slot's positions. Writes through the view update
// the arrangement.
func (a *Arrangement) slot(s Slot) []string {
	switch s {
	case Top:
		return a.Top[:]
	case Middle:
		return a.Middle[:]
	case Bottom:
		return a.Bottom[:]
	default:
		return nil
	}
}

// Keys returns a copy of the keys in slot s, "" for empty positions.
func (a Arrangement) Keys(s Slot) []string {
	return append([]string(nil), a.slot(s)...)
}

// Count returns the number of filled positions across all slots.
func (a Arrangement) Count() int {
	n := 0
	for _, s := range Slots {
		for _, key := range a.slot(s) {
			if key != "" {
				n++
			}
		}
	}
	return n
}
