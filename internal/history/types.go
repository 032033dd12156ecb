package history

import "time"

// Variant is the game recorded in every history file.
const Variant = "chinese"

// Record is one completed round in TOML form.
type Record struct {
	Variant  string   `toml:"variant"`
	Room     string   `toml:"room"`
	Round    int      `toml:"round"`
	Button   int      `toml:"button"`
	Time     string   `toml:"time"`
	TimeZone string   `toml:"time_zone,omitempty"`
	Players  []string `toml:"players"`
	Seats    []Seat   `toml:"seats"`

	Timestamp time.Time `toml:"-"`
}

// Seat is one player's dealt cards and final arrangement. Card lists use
// display notation ("As", "Td").
type Seat struct {
	Player     string   `toml:"player"`
	Name       string   `toml:"name,omitempty"`
	Dealt      []string `toml:"dealt"`
	Top        []string `toml:"top"`
	Middle     []string `toml:"middle"`
	Bottom     []string `toml:"bottom"`
	TopHand    string   `toml:"top_hand"`
	MiddleHand string   `toml:"middle_hand"`
	BottomHand string   `toml:"bottom_hand"`
}
