package poker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    Card
		wantErr bool
	}{
		{name: "ace of spades", input: "As", want: NewCard(Ace, Spades)},
		{name: "ten with T", input: "Td", want: NewCard(Ten, Diamonds)},
		{name: "ten with 10", input: "10h", want: NewCard(Ten, Hearts)},
		{name: "number card", input: "7c", want: NewCard(Seven, Clubs)},
		{name: "lower case", input: "kh", want: NewCard(King, Hearts)},
		{name: "invalid face", input: "Xs", wantErr: true},
		{name: "invalid suit", input: "Ax", wantErr: true},
		{name: "too short", input: "A", wantErr: true},
		{name: "zero", input: "0s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCard(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCardDisplay)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseCards(t *testing.T) {
	t.Parallel()

	cards, err := ParseCards("AsKsQsJsTs")
	require.NoError(t, err)
	assert.Equal(t, "As Ks Qs Js Ts", displays(cards))

	cards, err = ParseCards("Ah, 10d 2c")
	require.NoError(t, err)
	assert.Equal(t, "Ah Td 2c", displays(cards))

	cards, err = ParseCards("")
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = ParseCards("AsK")
	assert.ErrorIs(t, err, ErrInvalidCardDisplay)
}

func TestMustParseCardsPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { MustParseCards("nope") })
}

func TestCardDisplay(t *testing.T) {
	t.Parallel()

	for _, suit := range Suits {
		for face := Ace; face <= King; face++ {
			c := NewCard(face, suit)
			parsed, err := ParseCard(c.Display())
			require.NoError(t, err)
			assert.True(t, parsed.Equal(c), "round trip of %s", c.Display())
		}
	}

	c := NewCard(Queen, Hearts)
	assert.Equal(t, "Qh", c.Display())
	assert.Equal(t, "Q♥", c.String())
	assert.Equal(t, "Qh", c.ID())
	assert.True(t, c.IsRed())
	assert.Equal(t, "Queens", c.Face.Plural())
	assert.Equal(t, "Deuce", Two.Name())
	assert.Equal(t, "Sevens", Seven.Plural())
	assert.Equal(t, 14, Ace.AceHigh())
	assert.Equal(t, 13, King.AceHigh())
}

func TestCardEqualIgnoresKey(t *testing.T) {
	t.Parallel()

	a := Card{Suit: Clubs, Face: Nine, Key: "one"}
	b := Card{Suit: Clubs, Face: Nine, Key: "two"}
	assert.True(t, a.Equal(b))
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestCardJSON(t *testing.T) {
	t.Parallel()

	c := Card{Suit: Spades, Face: Ace, Key: "k1"}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"side": "front",
		"key": "k1",
		"suit": "s",
		"suitDisplay": "♠",
		"suitName": "Spades",
		"face": 1,
		"faceDisplay": "A",
		"faceName": "Aces"
	}`, string(data))

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, c, decoded)

	back, err := json.Marshal(c.BackJSON())
	require.NoError(t, err)
	assert.JSONEq(t, `{"side":"back","key":"k1"}`, string(back))
	assert.Error(t, json.Unmarshal(back, &decoded))
}

func TestCardJSONRejectsBadFace(t *testing.T) {
	t.Parallel()

	tests := []string{
		`{"suit":"s","face":0}`,
		`{"suit":"s","face":14}`,
		`{"suit":"s","face":257}`,
		`{"suit":"s","face":-243}`,
	}
	for _, data := range tests {
		t.Run(data, func(t *testing.T) {
			var decoded Card
			assert.ErrorIs(t, json.Unmarshal([]byte(data), &decoded), ErrInvalidCardDisplay)
		})
	}
}

func TestCardJSONWithoutKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewCard(Ten, Diamonds))
	require.NoError(t, err)

	var decoded Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Key, "display-derived key is not kept")
	assert.Equal(t, "Td", decoded.ID())
}

func displays(cards []Card) string {
	s := ""
	for i, c := range cards {
		if i > 0 {
			s += " "
		}
		s += c.Display()
	}
	return s
}
