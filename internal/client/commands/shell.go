package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chzyer/readline"

	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/client"
	"github.com/lox/chinesepoker/internal/display"
	"github.com/lox/chinesepoker/internal/server"
)

var (
	// ErrQuit is returned by Execute when the user asks to leave.
	ErrQuit = errors.New("quit")
	// ErrUsage wraps every parse failure.
	ErrUsage = errors.New("usage")
)

// Command is one parsed shell line. Position is 1-based as typed.
type Command struct {
	Name     string
	Args     []string
	Slot     chinese.Slot
	Position int
}

type commandSpec struct {
	usage    string
	help     string
	min, max int
}

var commandOrder = []string{"seat", "unseat", "start", "deal", "place", "remove", "state", "classify", "help", "quit"}

var commandSpecs = map[string]commandSpec{
	"seat":     {"seat", "Take a seat, or join the waiting queue", 0, 0},
	"unseat":   {"unseat", "Leave your seat or the queue", 0, 0},
	"start":    {"start", "Start the next round", 0, 0},
	"deal":     {"deal", "Deal thirteen cards to each seated player", 0, 0},
	"place":    {"place <slot> <pos> <card>", "Place a card; positions start at 1", 3, 3},
	"remove":   {"remove <card>", "Take a card back out of your hand", 1, 1},
	"state":    {"state", "Show the room", 0, 0},
	"classify": {"classify <cards...>", "Classify up to five cards, e.g. classify As Ks Qs", 1, -1},
	"help":     {"help", "Show this help", 0, 0},
	"quit":     {"quit", "Leave the shell", 0, 0},
}

var commandAliases = map[string]string{
	"q":    "quit",
	"exit": "quit",
	"?":    "help",
	"p":    "place",
	"rm":   "remove",
	"s":    "state",
}

// Parse turns a shell line into a Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty command", ErrUsage)
	}

	name := strings.ToLower(fields[0])
	if alias, ok := commandAliases[name]; ok {
		name = alias
	}
	spec, ok := commandSpecs[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown command %q (type help)", ErrUsage, fields[0])
	}

	args := fields[1:]
	if len(args) < spec.min || (spec.max >= 0 && len(args) > spec.max) {
		return Command{}, fmt.Errorf("%w: %s", ErrUsage, spec.usage)
	}

	cmd := Command{Name: name, Args: args}
	if name == "place" {
		slot, err := chinese.ParseSlot(strings.ToLower(args[0]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		pos, err := strconv.Atoi(args[1])
		if err != nil || pos < 1 || pos > slot.Capacity() {
			return Command{}, fmt.Errorf("%w: %s position must be 1-%d", ErrUsage, slot, slot.Capacity())
		}
		cmd.Slot, cmd.Position, cmd.Args = slot, pos, args[2:]
	}
	return cmd, nil
}

// HelpText lists the shell commands.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range commandOrder {
		spec := commandSpecs[name]
		fmt.Fprintf(&b, "  %-28s %s\n", spec.usage, spec.help)
	}
	b.WriteString("Slots are top, middle and bottom. Cards are written As, Td, 9c.\n")
	return b.String()
}

func completer() *readline.PrefixCompleter {
	slots := []readline.PrefixCompleterInterface{
		readline.PcItem("top"), readline.PcItem("middle"), readline.PcItem("bottom"),
	}
	items := make([]readline.PrefixCompleterInterface, 0, len(commandOrder))
	for _, name := range commandOrder {
		if name == "place" {
			items = append(items, readline.PcItem(name, slots...))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Shell is an interactive prompt bound to a connected client.
type Shell struct {
	client   *client.Client
	cfg      *client.ClientConfig
	logger   *log.Logger
	renderer *display.Renderer

	mu  sync.Mutex
	out io.Writer
}

// NewShell creates a shell writing to stdout until Run attaches a terminal.
func NewShell(c *client.Client, cfg *client.ClientConfig, logger *log.Logger) *Shell {
	return &Shell{
		client:   c,
		cfg:      cfg,
		logger:   logger.WithPrefix("shell"),
		renderer: display.New(cfg.ColorEnabled()),
		out:      os.Stdout,
	}
}

// SetOutput redirects everything the shell prints.
func (s *Shell) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

func (s *Shell) println(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, strings.TrimRight(text, "\n")+"\n")
}

// Listen prints server pushes as they arrive. The returned function stops it.
func (s *Shell) Listen() func() {
	removers := []func(){
		s.client.AddEventHandler(server.MessageTypeState, func(msg *server.Message) {
			st, err := client.Decode[server.StateData](msg)
			if err != nil {
				s.logger.Error("Bad state message", "error", err)
				return
			}
			s.println(s.renderer.State(st, s.client.GetPlayerID()))
		}),
		s.client.AddEventHandler(server.MessageTypeHand, func(msg *server.Message) {
			hd, err := client.Decode[server.HandData](msg)
			if err != nil {
				s.logger.Error("Bad hand message", "error", err)
				return
			}
			s.println(s.renderer.Hand(hd.Hand))
		}),
		s.client.AddEventHandler(server.MessageTypeError, func(msg *server.Message) {
			ed, err := client.Decode[server.ErrorData](msg)
			if err != nil {
				s.logger.Error("Bad error message", "error", err)
				return
			}
			s.println(s.renderer.Error(ed))
		}),
		s.client.AddEventHandler(server.MessageTypeSeated, func(msg *server.Message) {
			sd, err := client.Decode[server.SeatedData](msg)
			if err != nil {
				s.logger.Error("Bad seated message", "error", err)
				return
			}
			if sd.Active {
				s.println(fmt.Sprintf("Seated as %s", sd.ID))
			} else {
				s.println(fmt.Sprintf("Table is full, %s is waiting for a seat", sd.ID))
			}
		}),
	}

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// Execute sends the request for cmd. Replies arrive through Listen.
func (s *Shell) Execute(cmd Command) error {
	s.logger.Debug("Executing command", "command", cmd.Name, "args", cmd.Args)

	switch cmd.Name {
	case "seat":
		return s.client.Seat(s.cfg.Player.ID, s.cfg.PlayerName())
	case "unseat":
		return s.client.Unseat()
	case "start":
		return s.client.StartRound()
	case "deal":
		return s.client.Deal()
	case "place":
		return s.client.PlaceCard(cmd.Slot.String(), cmd.Position-1, cmd.Args[0])
	case "remove":
		return s.client.RemoveCard(cmd.Args[0])
	case "state":
		return s.client.GetState()
	case "classify":
		return s.client.Classify(cmd.Args)
	case "help":
		s.println(HelpText())
		return nil
	case "quit":
		return ErrQuit
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd.Name)
	}
}

// Run seats the player and reads commands until quit, EOF or disconnect.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s@%s> ", s.cfg.Player.ID, s.client.GetRoom()),
		HistoryFile:     s.cfg.UI.HistoryFile,
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}

	var closeOnce sync.Once
	closeTerminal := func() { closeOnce.Do(func() { _ = rl.Close() }) }
	defer closeTerminal()

	s.SetOutput(rl.Stdout())
	stop := s.Listen()
	defer stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.client.Done():
			s.println("Disconnected from server")
		case <-done:
			return
		}
		closeTerminal()
	}()

	s.println(s.renderer.Title("Chinese Poker") + "  type help for commands")
	if err := s.Execute(Command{Name: "seat"}); err != nil {
		return fmt.Errorf("failed to take a seat: %w", err)
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			// io.EOF, or the terminal was closed underneath us
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, err := Parse(line)
		if err != nil {
			s.println(s.renderer.Failure(err.Error()))
			continue
		}
		if err := s.Execute(cmd); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			s.println(s.renderer.Failure(err.Error()))
		}
	}
}
