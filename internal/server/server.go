package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/history"
	"github.com/lox/chinesepoker/internal/randutil"
	"github.com/lox/chinesepoker/internal/store"
)

// DefaultRoom is used when a client does not name a room.
const DefaultRoom = "default"

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock used for timestamps and autosave.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithStore enables loading and saving rooms.
func WithStore(st *store.FileStore) Option {
	return func(s *Server) { s.store = st }
}

// WithHistory enables writing a record of every completed round.
func WithHistory(w *history.Writer) Option {
	return func(s *Server) { s.history = w }
}

// WithPolicy sets the placement policy of every room.
func WithPolicy(p chinese.Policy) Option {
	return func(s *Server) { s.policy = p }
}

// WithSeed sets the base seed rooms derive their shuffle seed from.
func WithSeed(seed int64) Option {
	return func(s *Server) { s.seed = seed }
}

// WithRoomSeed fixes the shuffle seed of one room.
func WithRoomSeed(room string, seed int64) Option {
	return func(s *Server) { s.roomSeeds[room] = seed }
}

// WithAutosave sets how often dirty rooms are saved. Zero disables autosave.
func WithAutosave(d time.Duration) Option {
	return func(s *Server) { s.autosave = d }
}

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server

	clock     quartz.Clock
	store     *store.FileStore
	history   *history.Writer
	policy    chinese.Policy
	seed      int64
	roomSeeds map[string]int64
	autosave  time.Duration

	roomsMu sync.Mutex
	rooms   map[string]*Room

	wg sync.WaitGroup
}

// NewServer creates a new WebSocket server and starts its background loops.
func NewServer(addr string, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		clock:       quartz.NewReal(),
		roomSeeds:   make(map[string]int64),
		rooms:       make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()
	if s.store != nil && s.autosave > 0 {
		s.wg.Add(1)
		go s.autosaveLoop()
	}
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/rooms", s.handleRooms)
	return mux
}

// Start listens on the server address and blocks until Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes all connections, saves dirty rooms and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.wg.Wait()
	s.saveAll()

	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	defer s.wg.Done()
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "room", conn.Room().ID, "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "room", conn.Room().ID, "player", conn.GetPlayer(), "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) autosaveLoop() {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(s.autosave, "autosave")
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.saveAll()
		case <-s.ctx.Done():
			return
		}
	}
}

// saveAll writes every room changed since its last save.
func (s *Server) saveAll() {
	if s.store == nil {
		return
	}
	for _, room := range s.Rooms() {
		saved, err := room.save(func(r *chinese.Round) error {
			return s.store.Save(room.ID, r)
		})
		if err != nil {
			s.logger.Error("Failed to save room", "room", room.ID, "error", err)
			continue
		}
		if saved {
			s.logger.Debug("Saved room", "room", room.ID)
		}
	}
}

// Preload opens the named rooms and every room in the store.
func (s *Server) Preload(ids ...string) error {
	if s.store != nil {
		saved, err := s.store.List()
		if err != nil {
			return err
		}
		ids = append(ids, saved...)
	}
	for _, id := range ids {
		if _, err := s.Room(id); err != nil {
			return err
		}
	}
	return nil
}

// Room returns the room with id, loading it from the store or creating it.
func (s *Server) Room(id string) (*Room, error) {
	if !store.ValidRoomID(id) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidRoomID, id)
	}

	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	if room, ok := s.rooms[id]; ok {
		return room, nil
	}

	seed, ok := s.roomSeeds[id]
	if !ok {
		seed = randutil.Derive(s.seed, id)
	}
	rng := randutil.New(seed)

	var round *chinese.Round
	if s.store != nil {
		loaded, err := s.store.Load(id, rng, chinese.WithPolicy(s.policy))
		switch {
		case err == nil:
			round = loaded
			s.logger.Info("Loaded room", "room", id, "round", round.Number())
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}
	if round == nil {
		round = chinese.NewRound(rng, chinese.WithPolicy(s.policy))
		s.logger.Info("Created room", "room", id, "seed", seed)
	}

	room := NewRoom(id, round)
	s.rooms[id] = room
	return room, nil
}

// Rooms returns the open rooms sorted by id.
func (s *Server) Rooms() []*Room {
	s.roomsMu.Lock()
	defer s.roomsMu.Unlock()

	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	slices.SortFunc(rooms, func(a, b *Room) int { return strings.Compare(a.ID, b.ID) })
	return rooms
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = DefaultRoom
	}
	room, err := s.Room(roomID)
	if err != nil {
		s.logger.Warn("Rejected connection", "room", roomID, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, room)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.Rooms()
	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Error("Failed to encode room list", "error", err)
	}
}

func (s *Server) newMessage(messageType MessageType, data any) (*Message, error) {
	return newMessageAt(messageType, data, s.clock.Now())
}

// BroadcastState sends every connection in the room its own view of the room.
func (s *Server) BroadcastState(room *Room) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.Room() != room {
			continue
		}
		msg, err := s.newMessage(MessageTypeState, room.State(conn.GetPlayer()))
		if err != nil {
			s.logger.Error("Failed to create state message", "error", err)
			return
		}
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send message to client", "error", err, "player", conn.GetPlayer())
		} else {
			count++
		}
	}

	s.logger.Debug("Broadcasted state", "room", room.ID, "recipients", count)
}

// recordIfComplete writes the history record once all players have arranged
// their cards.
func (s *Server) recordIfComplete(room *Room) {
	if s.history == nil {
		return
	}
	_, err := room.takeCompleted(func(r *chinese.Round) error {
		path, err := s.history.Write(room.ID, r.Number(), r, s.clock.Now())
		if err != nil {
			return err
		}
		s.logger.Info("Recorded round", "room", room.ID, "round", r.Number(), "path", path)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to write round history", "room", room.ID, "error", err)
	}
}

// GetRoomPlayers returns the player ids bound to connections in a room.
func (s *Server) GetRoomPlayers(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		if conn.Room().ID == roomID && conn.GetPlayer() != "" {
			players = append(players, conn.GetPlayer())
		}
	}
	slices.Sort(players)
	return players
}
