package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/poker"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	room      *Room
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper bound to room
func NewConnection(conn *websocket.Conn, server *Server, room *Room) *Connection {
	ctx, cancel := context.WithCancel(server.ctx)

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		room:   room,
		server: server,
		logger: server.logger.WithPrefix("conn").With("room", room.ID),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			// send was closed while shutting down
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
			err = ErrConnectionClosed
		}
	}()

	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// Room returns the room the connection joined
func (c *Connection) Room() *Room {
	return c.room
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)

		select {
		case <-c.ctx.Done():
			return
		default:
		}
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeSeat:
		var data SeatData
		if !c.decode(msg, &data) {
			return
		}
		c.handleSeat(msg, data)

	case MessageTypeUnseat:
		c.handleUnseat(msg)

	case MessageTypeStartRound:
		c.handleStartRound(msg)

	case MessageTypeDeal:
		c.handleDeal(msg)

	case MessageTypePlaceCard:
		var data PlaceCardData
		if !c.decode(msg, &data) {
			return
		}
		c.handlePlaceCard(msg, data)

	case MessageTypeRemoveCard:
		var data RemoveCardData
		if !c.decode(msg, &data) {
			return
		}
		c.handleRemoveCard(msg, data)

	case MessageTypeGetState:
		c.reply(msg, MessageTypeState, c.room.State(c.GetPlayer()))

	case MessageTypeClassify:
		var data ClassifyData
		if !c.decode(msg, &data) {
			return
		}
		c.handleClassify(msg, data)

	default:
		c.sendError(msg, ErrCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) decode(msg *Message, v any) bool {
	if len(msg.Data) == 0 {
		msg.Data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg, ErrCodeInvalidMessage, fmt.Sprintf("Failed to parse %s data", msg.Type))
		return false
	}
	return true
}

// reply sends a response carrying the request's id
func (c *Connection) reply(req *Message, messageType MessageType, data any) {
	msg, err := c.server.newMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(req *Message, code, message string) {
	c.logger.Debug("Request failed", "type", req.Type, "code", code, "message", message)
	c.reply(req, MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
}

func (c *Connection) handleSeat(msg *Message, data SeatData) {
	if data.ID == "" {
		c.sendError(msg, ErrCodeInvalidMessage, "Player id required")
		return
	}
	if data.Name == "" {
		data.Name = data.ID
	}

	var active bool
	_ = c.room.Do(func(r *chinese.Round) (bool, error) {
		// A returning player takes over their existing seat or queue entry.
		if _, ok := r.Player(data.ID); ok {
			active = true
			return false, nil
		}
		for _, p := range r.Waiting() {
			if p.ID == data.ID {
				return false, nil
			}
		}
		active = r.SeatPlayer(data.ID, data.Name)
		return true, nil
	})

	c.SetPlayer(data.ID)
	c.logger.Info("Player seated", "player", data.ID, "active", active)
	c.reply(msg, MessageTypeSeated, SeatedData{ID: data.ID, Active: active})
	c.server.BroadcastState(c.room)
}

func (c *Connection) handleUnseat(msg *Message) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError(msg, ErrCodeNotSeated, "Must seat first")
		return
	}

	_ = c.room.Do(func(r *chinese.Round) (bool, error) {
		return r.UnseatPlayer(playerID) || r.Unqueue(playerID), nil
	})
	c.SetPlayer("")
	c.logger.Info("Player left", "player", playerID)
	c.server.BroadcastState(c.room)
}

func (c *Connection) handleStartRound(msg *Message) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError(msg, ErrCodeNotSeated, "Must seat first")
		return
	}

	var number int
	err := c.room.Do(func(r *chinese.Round) (bool, error) {
		if err := requireSeated(r, playerID); err != nil {
			return false, err
		}
		r.StartRound()
		number = r.Number()
		return true, nil
	})
	if err != nil {
		c.sendError(msg, errorCode(err, ErrCodeInvalidMessage), err.Error())
		return
	}
	c.logger.Info("Round started", "round", number, "player", playerID)
	c.server.BroadcastState(c.room)
}

func (c *Connection) handleDeal(msg *Message) {
	playerID := c.GetPlayer()
	if playerID == "" {
		c.sendError(msg, ErrCodeNotSeated, "Must seat first")
		return
	}

	err := c.room.Do(func(r *chinese.Round) (bool, error) {
		if err := requireSeated(r, playerID); err != nil {
			return false, err
		}
		if err := r.Deal(); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		c.sendError(msg, errorCode(err, ErrCodeDealFailed), err.Error())
		return
	}
	c.server.BroadcastState(c.room)
}

func (c *Connection) handlePlaceCard(msg *Message, data PlaceCardData) {
	playerID := c.GetPlayer()
	slot, err := chinese.ParseSlot(data.Slot)
	if err != nil {
		c.sendError(msg, ErrCodePlacementFailed, err.Error())
		return
	}

	err = c.room.Do(func(r *chinese.Round) (bool, error) {
		card, err := resolveCard(r, playerID, data.Card)
		if err != nil {
			return false, err
		}
		if err := r.PlaceCard(playerID, slot, data.Position, card.ID()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		c.sendError(msg, errorCode(err, ErrCodePlacementFailed), err.Error())
		return
	}

	c.server.BroadcastState(c.room)
	c.server.recordIfComplete(c.room)
}

func (c *Connection) handleRemoveCard(msg *Message, data RemoveCardData) {
	playerID := c.GetPlayer()
	err := c.room.Do(func(r *chinese.Round) (bool, error) {
		card, err := resolveCard(r, playerID, data.Card)
		if err != nil {
			return false, err
		}
		if err := r.RemoveCard(playerID, card.ID()); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		c.sendError(msg, errorCode(err, ErrCodePlacementFailed), err.Error())
		return
	}
	c.server.BroadcastState(c.room)
}

func (c *Connection) handleClassify(msg *Message, data ClassifyData) {
	cards := make([]poker.Card, 0, len(data.Cards))
	for _, s := range data.Cards {
		card, err := poker.ParseCard(s)
		if err != nil {
			c.sendError(msg, ErrCodeInvalidCard, err.Error())
			return
		}
		cards = append(cards, card)
	}

	hand, err := poker.Classify(cards)
	if err != nil {
		c.sendError(msg, ErrCodeInvalidHand, err.Error())
		return
	}
	c.reply(msg, MessageTypeHand, HandData{Hand: hand})
}

// requireSeated fails for queued players, who may not drive the round.
func requireSeated(r *chinese.Round, playerID string) error {
	if _, ok := r.Player(playerID); !ok {
		return fmt.Errorf("%w: %q is not in an active seat", chinese.ErrPlayerNotFound, playerID)
	}
	return nil
}

// resolveCard finds ref, a card key or display string, among the player's cards.
func resolveCard(r *chinese.Round, playerID, ref string) (poker.Card, error) {
	p, ok := r.Player(playerID)
	if !ok {
		return poker.Card{}, fmt.Errorf("%w: %q", chinese.ErrPlayerNotFound, playerID)
	}
	card, ok := p.FindCard(ref)
	if !ok {
		return poker.Card{}, fmt.Errorf("%w: %q", chinese.ErrCardNotHeld, ref)
	}
	return card, nil
}

func errorCode(err error, fallback string) string {
	switch {
	case errors.Is(err, chinese.ErrPlayerNotFound):
		return ErrCodeNotSeated
	case errors.Is(err, chinese.ErrCardNotHeld):
		return ErrCodeInvalidCard
	default:
		return fallback
	}
}
