package server

import (
	"encoding/json"
	"time"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/poker"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	return newMessageAt(messageType, data, time.Now())
}

func newMessageAt(messageType MessageType, data any, at time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: at,
	}, nil
}

// Client → Server Messages

type SeatData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlaceCardData struct {
	Slot     string `json:"slot"`
	Position int    `json:"position"`
	Card     string `json:"card"`
}

type RemoveCardData struct {
	Card string `json:"card"`
}

type ClassifyData struct {
	Cards []string `json:"cards"`
}

// Server → Client Messages

type SeatedData struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HandData struct {
	Hand poker.Hand `json:"hand"`
}

// StateData is a room as seen by one connection.
type StateData struct {
	Room          string        `json:"room"`
	Round         int           `json:"round"`
	Button        int           `json:"button"`
	Players       []PlayerState `json:"players"`
	Waiting       []WaitingInfo `json:"waiting"`
	DeckRemaining int           `json:"deckRemaining"`
	Complete      bool          `json:"complete"`
}

// PlayerState is an active player. Cards lists the dealt cards in deal order;
// another player's unplaced cards are sent face down.
type PlayerState struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Points     int                 `json:"points"`
	Seat       int                 `json:"seat"`
	Cards      []poker.CardJSON    `json:"cards"`
	Hand       HandState           `json:"hand"`
	Complete   bool                `json:"complete"`
	Evaluation *chinese.Evaluation `json:"evaluation,omitempty"`
}

// HandState holds the placed cards per slot; nil marks an empty position.
type HandState struct {
	Top    []*poker.CardJSON `json:"top"`
	Middle []*poker.CardJSON `json:"middle"`
	Bottom []*poker.CardJSON `json:"bottom"`
}

type WaitingInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomInfo is a row of the /rooms listing.
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Waiting int    `json:"waiting"`
	Button  int    `json:"button"`
	Round   int    `json:"round"`
}

// PlayerStateFromRound builds the view of p for viewerID. The viewer's own
// cards, and placed cards of everyone, are face up.
func PlayerStateFromRound(p *chinese.Player, seat int, viewerID string) PlayerState {
	own := p.ID == viewerID
	ps := PlayerState{
		ID:       p.ID,
		Name:     p.Name,
		Points:   p.Points,
		Seat:     seat,
		Cards:    make([]poker.CardJSON, 0, len(p.Cards)),
		Complete: p.Complete(),
	}

	for _, c := range p.Cards {
		_, placed := p.PlacementOf(c.ID())
		if own || placed {
			ps.Cards = append(ps.Cards, c.JSON())
		} else {
			ps.Cards = append(ps.Cards, c.BackJSON())
		}
	}

	hand := p.Hand()
	slotView := func(s chinese.Slot) []*poker.CardJSON {
		keys := hand.Keys(s)
		out := make([]*poker.CardJSON, len(keys))
		for i, key := range keys {
			if c, ok := p.Card(key); ok {
				j := c.JSON()
				out[i] = &j
			}
		}
		return out
	}
	ps.Hand = HandState{
		Top:    slotView(chinese.Top),
		Middle: slotView(chinese.Middle),
		Bottom: slotView(chinese.Bottom),
	}

	if own || p.Complete() {
		if ev, err := p.Evaluate(); err == nil {
			ps.Evaluation = &ev
		}
	}
	return ps
}
