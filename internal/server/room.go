package server

import (
	"sync"

	"github.com/lox/chinesepoker/internal/chinese"
)

// Room owns one Round. Every access to the round goes through the room's mutex.
type Room struct {
	ID string

	mu       sync.Mutex
	round    *chinese.Round
	dirty    bool
	recorded int
}

// NewRoom wraps round
func NewRoom(id string, round *chinese.Round) *Room {
	return &Room{ID: id, round: round, recorded: round.Number()}
}

// Do runs fn with exclusive access to the round. The room is marked for saving
// when fn reports a change.
func (r *Room) Do(fn func(*chinese.Round) (changed bool, err error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed, err := fn(r.round)
	if changed {
		r.dirty = true
	}
	return err
}

// takeCompleted runs fn under the room lock once every player finished
// arranging. A round is taken once; it is offered again when fn fails.
func (r *Room) takeCompleted(fn func(*chinese.Round) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recorded >= r.round.Number() || !r.round.Complete() {
		return false, nil
	}
	if err := fn(r.round); err != nil {
		return false, err
	}
	r.recorded = r.round.Number()
	return true, nil
}

// save runs fn under the room lock when the room changed since the last save.
// The room stays dirty when fn fails.
func (r *Room) save(fn func(*chinese.Round) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return false, nil
	}
	if err := fn(r.round); err != nil {
		return false, err
	}
	r.dirty = false
	return true, nil
}

// Info summarises the room for listings.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RoomInfo{
		ID:      r.ID,
		Players: len(r.round.Players()),
		Waiting: len(r.round.Waiting()),
		Button:  r.round.Button(),
		Round:   r.round.Number(),
	}
}

// State builds the room as seen by viewerID.
func (r *Room) State(viewerID string) StateData {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := StateData{
		Room:          r.ID,
		Round:         r.round.Number(),
		Button:        r.round.Button(),
		Players:       []PlayerState{},
		Waiting:       []WaitingInfo{},
		DeckRemaining: r.round.Deck().Len(),
		Complete:      r.round.Complete(),
	}
	for seat, p := range r.round.Players() {
		state.Players = append(state.Players, PlayerStateFromRound(p, seat, viewerID))
	}
	for _, p := range r.round.Waiting() {
		state.Waiting = append(state.Waiting, WaitingInfo{ID: p.ID, Name: p.Name})
	}
	return state
}
