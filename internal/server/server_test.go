package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/history"
	"github.com/lox/chinesepoker/internal/store"
	"github.com/lox/chinesepoker/poker"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func startTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer("", testLogger(), append([]Option{WithSeed(42)}, opts...)...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		ts.Close()
	})
	return s, ts
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	seq  atomic.Int64
}

func dial(t *testing.T, ts *httptest.Server, room string) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=" + room
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(messageType MessageType, data any) string {
	c.t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(c.t, err)
	msg.RequestID = fmt.Sprintf("%s-%d", messageType, c.seq.Add(1))
	require.NoError(c.t, c.conn.WriteJSON(msg))
	return msg.RequestID
}

// next reads until a message of the given type arrives.
func (c *testClient) next(messageType MessageType) *Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(c.t, c.conn.ReadJSON(&msg))
		if msg.Type == messageType {
			return &msg
		}
	}
}

// state reads state messages until match accepts one.
func (c *testClient) state(match func(StateData) bool) StateData {
	c.t.Helper()
	for {
		msg := c.next(MessageTypeState)
		var st StateData
		require.NoError(c.t, json.Unmarshal(msg.Data, &st))
		if match(st) {
			return st
		}
	}
}

func (c *testClient) errorData() ErrorData {
	c.t.Helper()
	msg := c.next(MessageTypeError)
	var data ErrorData
	require.NoError(c.t, json.Unmarshal(msg.Data, &data))
	return data
}

func dealt(st StateData) bool {
	return len(st.Players) == 2 && st.DeckRemaining == poker.DeckSize-2*chinese.HandSize
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestRoomsListing(t *testing.T) {
	t.Parallel()

	s, ts := startTestServer(t)
	require.NoError(t, s.Preload("beta", "alpha"))

	resp, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()

	var rooms []RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, "alpha", rooms[0].ID)
	assert.Equal(t, -1, rooms[0].Button)
}

func TestRejectsInvalidRoom(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?room=..%2Fetc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTwoPlayersDealAndPlace(t *testing.T) {
	t.Parallel()

	s, ts := startTestServer(t)
	alice := dial(t, ts, "table")
	bob := dial(t, ts, "table")

	id := alice.send(MessageTypeSeat, SeatData{ID: "alice", Name: "Alice"})
	seated := alice.next(MessageTypeSeated)
	assert.Equal(t, id, seated.RequestID)
	var sd SeatedData
	require.NoError(t, json.Unmarshal(seated.Data, &sd))
	assert.Equal(t, SeatedData{ID: "alice", Active: true}, sd)

	bob.send(MessageTypeSeat, SeatData{ID: "bob", Name: "Bob"})
	bob.next(MessageTypeSeated)
	assert.Equal(t, []string{"alice", "bob"}, s.GetRoomPlayers("table"))
	assert.Empty(t, s.GetRoomPlayers(DefaultRoom))

	alice.send(MessageTypeStartRound, nil)
	alice.send(MessageTypeDeal, nil)

	st := alice.state(dealt)
	assert.Equal(t, "table", st.Room)
	assert.Equal(t, 1, st.Round)
	assert.Equal(t, 0, st.Button)

	own, other := st.Players[0], st.Players[1]
	require.Equal(t, "alice", own.ID)
	require.Len(t, own.Cards, chinese.HandSize)
	require.Len(t, other.Cards, chinese.HandSize)
	for _, c := range own.Cards {
		assert.Equal(t, poker.Front, c.Side)
	}
	for _, c := range other.Cards {
		assert.Equal(t, poker.Back, c.Side)
		assert.Empty(t, c.Suit)
	}
	require.NotNil(t, own.Evaluation)
	assert.Nil(t, other.Evaluation)

	// Place by display string, then by key.
	first := own.Cards[0]
	display := first.FaceDisplay + first.Suit
	alice.send(MessageTypePlaceCard, PlaceCardData{Slot: "top", Position: 0, Card: display})
	second := own.Cards[1]
	alice.send(MessageTypePlaceCard, PlaceCardData{Slot: "bottom", Position: 4, Card: second.Key})

	placed := func(st StateData) bool {
		return dealt(st) && st.Players[0].Hand.Top[0] != nil && st.Players[0].Hand.Bottom[4] != nil
	}

	bobView := bob.state(placed)
	top := bobView.Players[0].Hand.Top[0]
	assert.Equal(t, first.Key, top.Key)
	assert.Equal(t, poker.Front, top.Side)
	assert.Equal(t, poker.Front, bobView.Players[0].Cards[0].Side, "placed cards are visible")
	assert.Equal(t, poker.Back, bobView.Players[0].Cards[2].Side)
	assert.Equal(t, poker.Front, bobView.Players[1].Cards[2].Side, "own cards are visible")

	alice.send(MessageTypeRemoveCard, RemoveCardData{Card: first.Key})
	alice.state(func(st StateData) bool {
		return dealt(st) && st.Players[0].Hand.Top[0] == nil
	})
}

func TestWaitingPlayersAndReconnect(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	clients := []*testClient{dial(t, ts, "q"), dial(t, ts, "q"), dial(t, ts, "q")}
	for i, id := range []string{"a", "b", "c"} {
		clients[i].send(MessageTypeSeat, SeatData{ID: id})
		clients[i].next(MessageTypeSeated)
	}

	st := clients[0].state(func(st StateData) bool { return len(st.Waiting) == 1 })
	assert.Equal(t, "c", st.Waiting[0].ID)
	assert.Equal(t, "c", st.Waiting[0].Name, "name defaults to id")

	again := dial(t, ts, "q")
	again.send(MessageTypeSeat, SeatData{ID: "a"})
	msg := again.next(MessageTypeSeated)
	var sd SeatedData
	require.NoError(t, json.Unmarshal(msg.Data, &sd))
	assert.True(t, sd.Active, "rejoining player keeps the seat")

	clients[1].send(MessageTypeUnseat, nil)
	clients[1].send(MessageTypeGetState, nil)
	st = clients[1].state(func(st StateData) bool { return len(st.Players) == 1 })
	assert.Len(t, st.Waiting, 1)

	clients[0].send(MessageTypeStartRound, nil)
	st = clients[0].state(func(st StateData) bool { return st.Round == 1 })
	require.Len(t, st.Players, 2)
	assert.Equal(t, "c", st.Players[1].ID, "waiting player is promoted")
	assert.Empty(t, st.Waiting)
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	c := dial(t, ts, "errors")

	tests := []struct {
		name        string
		messageType MessageType
		data        any
		code        string
	}{
		{"place before seat", MessageTypePlaceCard, PlaceCardData{Slot: "top", Card: "As"}, ErrCodeNotSeated},
		{"deal before seat", MessageTypeDeal, nil, ErrCodeNotSeated},
		{"unknown type", MessageType("fold"), nil, ErrCodeUnknownType},
		{"bad payload", MessageTypeSeat, "not an object", ErrCodeInvalidMessage},
		{"seat without id", MessageTypeSeat, SeatData{}, ErrCodeInvalidMessage},
		{"bad card", MessageTypeClassify, ClassifyData{Cards: []string{"Xx"}}, ErrCodeInvalidCard},
		{"duplicate cards", MessageTypeClassify, ClassifyData{Cards: []string{"As", "As"}}, ErrCodeInvalidHand},
		{"bad slot", MessageTypePlaceCard, PlaceCardData{Slot: "side", Card: "As"}, ErrCodePlacementFailed},
	}

	for _, tt := range tests {
		id := c.send(tt.messageType, tt.data)
		msg := c.next(MessageTypeError)
		var data ErrorData
		require.NoError(t, json.Unmarshal(msg.Data, &data), tt.name)
		assert.Equal(t, tt.code, data.Code, tt.name)
		assert.Equal(t, id, msg.RequestID, tt.name)
	}
}

func TestPlaceUnheldCard(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	alice := dial(t, ts, "held")
	bob := dial(t, ts, "held")
	alice.send(MessageTypeSeat, SeatData{ID: "alice"})
	alice.next(MessageTypeSeated)
	bob.send(MessageTypeSeat, SeatData{ID: "bob"})
	bob.next(MessageTypeSeated)
	alice.send(MessageTypeStartRound, nil)
	alice.send(MessageTypeDeal, nil)

	st := bob.state(dealt)
	aliceCard := st.Players[0].Cards[0].Key

	bob.send(MessageTypePlaceCard, PlaceCardData{Slot: "top", Position: 0, Card: aliceCard})
	assert.Equal(t, ErrCodeInvalidCard, bob.errorData().Code)
}

func TestDealFailsWithoutReset(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	c := dial(t, ts, "short")
	c.send(MessageTypeSeat, SeatData{ID: "a"})
	c.next(MessageTypeSeated)
	second := dial(t, ts, "short")
	second.send(MessageTypeSeat, SeatData{ID: "b"})
	second.next(MessageTypeSeated)
	c.send(MessageTypeStartRound, nil)
	c.send(MessageTypeDeal, nil)
	c.send(MessageTypeDeal, nil)
	c.send(MessageTypeDeal, nil)

	assert.Equal(t, ErrCodeDealFailed, c.errorData().Code)
}

func TestQueuedPlayerCannotDriveRound(t *testing.T) {
	t.Parallel()

	s, ts := startTestServer(t)
	for _, id := range []string{"a", "b"} {
		c := dial(t, ts, "queued")
		c.send(MessageTypeSeat, SeatData{ID: id})
		c.next(MessageTypeSeated)
	}
	queued := dial(t, ts, "queued")
	queued.send(MessageTypeSeat, SeatData{ID: "c"})
	queued.next(MessageTypeSeated)

	queued.send(MessageTypeStartRound, nil)
	assert.Equal(t, ErrCodeNotSeated, queued.errorData().Code)
	queued.send(MessageTypeDeal, nil)
	assert.Equal(t, ErrCodeNotSeated, queued.errorData().Code)

	room, err := s.Room("queued")
	require.NoError(t, err)
	assert.Equal(t, 0, room.Info().Round)
}

func TestClassifyMessage(t *testing.T) {
	t.Parallel()

	_, ts := startTestServer(t)
	c := dial(t, ts, "classify")
	c.send(MessageTypeClassify, ClassifyData{Cards: []string{"3s", "Ah", "3d", "Ac", "3h"}})

	msg := c.next(MessageTypeHand)
	var data HandData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, poker.FullHouse, data.Hand.Type)
	assert.Equal(t, "3s 3d 3h Ah Ac", displays(data.Hand.Cards))
}

func displays(cards []poker.Card) string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Display()
	}
	return strings.Join(out, " ")
}

func completeRound(t *testing.T, room *Room) {
	t.Helper()
	require.NoError(t, room.Do(func(r *chinese.Round) (bool, error) {
		r.SeatPlayer("alice", "Alice")
		r.SeatPlayer("bob", "Bob")
		r.StartRound()
		if err := r.Deal(); err != nil {
			return false, err
		}
		for _, p := range r.Players() {
			i := 0
			for _, s := range chinese.Slots {
				for pos := range s.Capacity() {
					if err := r.PlaceCard(p.ID, s, pos, p.Cards[i].ID()); err != nil {
						return false, err
					}
					i++
				}
			}
		}
		return true, nil
	}))
}

func TestHistoryRecordedOncePerRound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := quartz.NewMock(t)
	s := NewServer("", testLogger(), WithClock(clock), WithHistory(history.NewWriter(dir)))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	room, err := s.Room("hist")
	require.NoError(t, err)
	completeRound(t, room)

	s.recordIfComplete(room)
	path := filepath.Join(dir, "hist-1.toml")
	require.FileExists(t, path)

	require.NoError(t, os.Remove(path))
	s.recordIfComplete(room)
	assert.NoFileExists(t, path, "a round is recorded once")
}

func TestHistoryRetriedAfterFailedWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, nil, 0o644))

	w := history.NewWriter(blocked)
	s := NewServer("", testLogger(), WithHistory(w))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	room, err := s.Room("retry")
	require.NoError(t, err)
	completeRound(t, room)

	s.recordIfComplete(room)
	assert.NoFileExists(t, filepath.Join(blocked, "retry-1.toml"))

	w.Dir = filepath.Join(dir, "history")
	s.recordIfComplete(room)
	assert.FileExists(t, filepath.Join(dir, "history", "retry-1.toml"))
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	st := store.New(t.TempDir())
	s := NewServer("", testLogger(), WithStore(st))

	room, err := s.Room("persist")
	require.NoError(t, err)
	completeRound(t, room)
	require.NoError(t, s.Stop(context.Background()))

	ids, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"persist"}, ids)

	reloaded := NewServer("", testLogger(), WithStore(st))
	t.Cleanup(func() { _ = reloaded.Stop(context.Background()) })
	require.NoError(t, reloaded.Preload())

	rooms := reloaded.Rooms()
	require.Len(t, rooms, 1)
	info := rooms[0].Info()
	assert.Equal(t, 2, info.Players)
	assert.Equal(t, 1, info.Round)
	assert.True(t, rooms[0].State("alice").Complete)
}

func TestAutosave(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := quartz.NewMock(t)
	s := NewServer("", testLogger(), WithClock(clock), WithStore(store.New(dir)), WithAutosave(time.Second))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	room, err := s.Room("auto")
	require.NoError(t, err)
	require.NoError(t, room.Do(func(r *chinese.Round) (bool, error) {
		return r.SeatPlayer("a", "A"), nil
	}))

	path := filepath.Join(dir, "auto.json")
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		_, err := os.Stat(path)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMessageTimestampsUseClock(t *testing.T) {
	t.Parallel()

	clock := quartz.NewMock(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock.Set(at)

	_, ts := startTestServer(t, WithClock(clock))
	c := dial(t, ts, "clock")
	c.send(MessageTypeGetState, nil)
	msg := c.next(MessageTypeState)
	assert.True(t, at.Equal(msg.Timestamp))
}

func TestWaitForRooms(t *testing.T) {
	t.Parallel()

	s, ts := startTestServer(t)
	require.NoError(t, s.Preload("main"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rooms, err := WaitForRooms(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?room=main")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "main", rooms[0].ID)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = WaitForRooms(cancelled, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, context.Canceled)
}
