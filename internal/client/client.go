package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/chinesepoker/internal/server"
)

// Client represents a WebSocket client for a Chinese Poker room
type Client struct {
	serverURL string
	room      string
	conn      *websocket.Conn
	send      chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	playerID  string
	closeOnce sync.Once
	requests  atomic.Int64

	handlers      map[server.MessageType]map[int64]EventHandler
	nextHandlerID int64
}

// EventHandler is a function that handles incoming events
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client for room
func NewClient(serverURL, room string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		room:      room,
		send:      make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
		handlers:  make(map[server.MessageType]map[int64]EventHandler),
	}
}

// Endpoint returns the websocket URL for the client's room.
func Endpoint(serverURL, room string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"
	if room != "" {
		u.RawQuery = url.Values{"room": {room}}.Encode()
	}
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := Endpoint(c.serverURL, c.room)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", endpoint)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server", "room", c.room)
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the client disconnects
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.cancel()
	}()

	for {
		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type, "requestId", msg.RequestID)
		c.dispatch(&msg)
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// dispatch runs the handlers for a message in registration order, on the read
// goroutine, so handlers observe messages in arrival order.
func (c *Client) dispatch(msg *server.Message) {
	c.mu.RLock()
	registered := c.handlers[msg.Type]
	ids := make([]int64, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	handlers := make([]EventHandler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, registered[id])
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// AddEventHandler adds an event handler for a specific message type. The
// returned function removes it.
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextHandlerID++
	id := c.nextHandlerID
	if c.handlers[messageType] == nil {
		c.handlers[messageType] = make(map[int64]EventHandler)
	}
	c.handlers[messageType][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[messageType], id)
	}
}

// request sends a message and returns its request id.
func (c *Client) request(messageType server.MessageType, data any) (string, error) {
	if data == nil {
		data = struct{}{}
	}
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return "", err
	}
	msg.RequestID = strconv.FormatInt(c.requests.Add(1), 10)
	return msg.RequestID, c.SendMessage(msg)
}

// Seat takes a seat, or joins the waiting queue, as id.
func (c *Client) Seat(id, name string) error {
	c.mu.Lock()
	c.playerID = id
	c.mu.Unlock()

	_, err := c.request(server.MessageTypeSeat, server.SeatData{ID: id, Name: name})
	return err
}

// Unseat leaves the room's seats or queue.
func (c *Client) Unseat() error {
	_, err := c.request(server.MessageTypeUnseat, nil)
	return err
}

// StartRound asks the server to start the next round.
func (c *Client) StartRound() error {
	_, err := c.request(server.MessageTypeStartRound, nil)
	return err
}

// Deal asks the server to deal thirteen cards to each active player.
func (c *Client) Deal() error {
	_, err := c.request(server.MessageTypeDeal, nil)
	return err
}

// PlaceCard puts card, a key or display string, at position in slot.
func (c *Client) PlaceCard(slot string, position int, card string) error {
	_, err := c.request(server.MessageTypePlaceCard, server.PlaceCardData{Slot: slot, Position: position, Card: card})
	return err
}

// RemoveCard takes card back out of the arrangement.
func (c *Client) RemoveCard(card string) error {
	_, err := c.request(server.MessageTypeRemoveCard, server.RemoveCardData{Card: card})
	return err
}

// GetState requests the room state.
func (c *Client) GetState() error {
	_, err := c.request(server.MessageTypeGetState, nil)
	return err
}

// Classify asks the server to classify up to five cards.
func (c *Client) Classify(cards []string) error {
	_, err := c.request(server.MessageTypeClassify, server.ClassifyData{Cards: cards})
	return err
}

// GetPlayerID returns the id the client last seated as
func (c *Client) GetPlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// GetRoom returns the room the client connects to
func (c *Client) GetRoom() string {
	return c.room
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	remove := c.AddEventHandler(messageType, func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	})
	defer remove()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-responseChan:
		return msg, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// Decode unmarshals a message's data into v.
func Decode[T any](msg *server.Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return v, nil
}
