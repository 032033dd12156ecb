package poker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCardDisplay is returned when a card display string cannot be parsed.
var ErrInvalidCardDisplay = errors.New("invalid card")

// Suit represents a card suit
type Suit uint8

const (
	Spades Suit = iota
	Clubs
	Hearts
	Diamonds
)

// Suits lists every suit in canonical deck order.
var Suits = [...]Suit{Spades, Clubs, Hearts, Diamonds}

// Letter returns the single-letter notation used in card displays (s, c, h, d).
func (s Suit) Letter() string {
	switch s {
	case Spades:
		return "s"
	case Clubs:
		return "c"
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	default:
		return "?"
	}
}

// String returns the suit glyph
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Clubs:
		return "♣"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	default:
		return "?"
	}
}

// Name returns the suit name, e.g. "Hearts".
func (s Suit) Name() string {
	switch s {
	case Spades:
		return "Spades"
	case Clubs:
		return "Clubs"
	case Hearts:
		return "Hearts"
	case Diamonds:
		return "Diamonds"
	default:
		return "Unknown"
	}
}

// IsRed returns true for Hearts and Diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// ParseSuit converts a suit letter (case-insensitive) to a Suit.
func ParseSuit(letter string) (Suit, error) {
	switch strings.ToLower(letter) {
	case "s":
		return Spades, nil
	case "c":
		return Clubs, nil
	case "h":
		return Hearts, nil
	case "d":
		return Diamonds, nil
	default:
		return 0, fmt.Errorf("%w: unknown suit %q", ErrInvalidCardDisplay, letter)
	}
}

// Face is a card face value from 1 (Ace) to 13 (King).
type Face uint8

const (
	Ace Face = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// FaceCount is the number of faces per suit.
const FaceCount = 13

// Valid reports whether the face is within 1..13.
func (f Face) Valid() bool {
	return f >= Ace && f <= King
}

// AceHigh returns the face value with Ace counted above King (14).
func (f Face) AceHigh() int {
	if f == Ace {
		return 14
	}
	return int(f)
}

// String returns the display token for the face (A, 2..9, T, J, Q, K)
func (f Face) String() string {
	switch f {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	if f.Valid() {
		return fmt.Sprintf("%d", f)
	}
	return "?"
}

var faceNames = [...]struct{ one, many string }{
	Ace:   {"Ace", "Aces"},
	Two:   {"Deuce", "Deuces"},
	Three: {"Three", "Threes"},
	Four:  {"Four", "Fours"},
	Five:  {"Five", "Fives"},
	Six:   {"Six", "Sixes"},
	Seven: {"Seven", "Sevens"},
	Eight: {"Eight", "Eights"},
	Nine:  {"Nine", "Nines"},
	Ten:   {"Ten", "Tens"},
	Jack:  {"Jack", "Jacks"},
	Queen: {"Queen", "Queens"},
	King:  {"King", "Kings"},
}

// Name returns the singular face name, e.g. "Queen".
func (f Face) Name() string {
	if !f.Valid() {
		return "Unknown"
	}
	return faceNames[f].one
}

// Plural returns the plural face name, e.g. "Queens".
func (f Face) Plural() string {
	if !f.Valid() {
		return "Unknown"
	}
	return faceNames[f].many
}

// ParseFace converts a face token (A, K, Q, J, T, 10, 2-9) to a Face.
func ParseFace(token string) (Face, error) {
	switch strings.ToUpper(token) {
	case "A", "1":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "T", "10":
		return Ten, nil
	}
	if len(token) == 1 && token[0] >= '2' && token[0] <= '9' {
		return Face(token[0] - '0'), nil
	}
	return 0, fmt.Errorf("%w: unknown face %q", ErrInvalidCardDisplay, token)
}

// Card is a playing card. Key is an opaque identity assigned by the deck that
// produced the card; two cards are Equal when suit and face match regardless of key.
type Card struct {
	Suit Suit
	Face Face
	Key  string
}

// NewCard creates a card without a key
func NewCard(face Face, suit Suit) Card {
	return Card{Suit: suit, Face: face}
}

// ID returns the card key, or its display string when it has none.
func (c Card) ID() string {
	if c.Key != "" {
		return c.Key
	}
	return c.Display()
}

// Equal reports whether two cards have the same suit and face.
func (c Card) Equal(o Card) bool {
	return c.Suit == o.Suit && c.Face == o.Face
}

// Display returns the compact notation, e.g. "As" or "Td".
func (c Card) Display() string {
	return c.Face.String() + c.Suit.Letter()
}

// String renders the card with its suit glyph, e.g. "A♠".
func (c Card) String() string {
	return c.Face.String() + c.Suit.String()
}

// IsRed returns true if the card is a heart or a diamond
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// ParseCard parses a display string such as "As", "Td" or "10h".
func ParseCard(display string) (Card, error) {
	display = strings.TrimSpace(display)
	if len(display) < 2 || len(display) > 3 {
		return Card{}, fmt.Errorf("%w: %q", ErrInvalidCardDisplay, display)
	}
	face, err := ParseFace(display[:len(display)-1])
	if err != nil {
		return Card{}, err
	}
	suit, err := ParseSuit(display[len(display)-1:])
	if err != nil {
		return Card{}, err
	}
	return NewCard(face, suit), nil
}

// ParseCards parses a list of cards separated by spaces or commas. A token longer
// than three characters is read as a run of two-character cards ("AsKsQs").
func ParseCards(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})

	cards := []Card{}
	for _, field := range fields {
		if len(field) <= 3 {
			card, err := ParseCard(field)
			if err != nil {
				return nil, err
			}
			cards = append(cards, card)
			continue
		}
		if len(field)%2 != 0 {
			return nil, fmt.Errorf("%w: odd length run %q", ErrInvalidCardDisplay, field)
		}
		for i := 0; i < len(field); i += 2 {
			card, err := ParseCard(field[i : i+2])
			if err != nil {
				return nil, err
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// MustParseCards is like ParseCards but panics on error. Intended for tests.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// Side selects which face of a card is serialized.
type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

// CardJSON is the wire shape of a card. Back-side cards carry only their key.
type CardJSON struct {
	Side        Side   `json:"side"`
	Key         string `json:"key"`
	Suit        string `json:"suit,omitempty"`
	SuitDisplay string `json:"suitDisplay,omitempty"`
	SuitName    string `json:"suitName,omitempty"`
	Face        int    `json:"face,omitempty"`
	FaceDisplay string `json:"faceDisplay,omitempty"`
	FaceName    string `json:"faceName,omitempty"`
}

// JSON returns the front-side wire shape of the card.
func (c Card) JSON() CardJSON {
	return CardJSON{
		Side:        Front,
		Key:         c.ID(),
		Suit:        c.Suit.Letter(),
		SuitDisplay: c.Suit.String(),
		SuitName:    c.Suit.Name(),
		Face:        int(c.Face),
		FaceDisplay: c.Face.String(),
		FaceName:    c.Face.Plural(),
	}
}

// BackJSON returns the hidden wire shape of the card.
func (c Card) BackJSON() CardJSON {
	return CardJSON{Side: Back, Key: c.ID()}
}

// MarshalJSON implements json.Marshaler
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.JSON())
}

// UnmarshalJSON implements json.Unmarshaler. Only front-side cards can be decoded.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw CardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Side == Back {
		return fmt.Errorf("%w: cannot decode a hidden card", ErrInvalidCardDisplay)
	}
	suit, err := ParseSuit(raw.Suit)
	if err != nil {
		return err
	}
	if raw.Face < int(Ace) || raw.Face > int(King) {
		return fmt.Errorf("%w: face %d out of range", ErrInvalidCardDisplay, raw.Face)
	}

	*c = Card{Suit: suit, Face: Face(raw.Face), Key: raw.Key}
	if c.Key == c.Display() {
		c.Key = ""
	}
	return nil
}
