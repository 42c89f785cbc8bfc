package widgets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/devdeck/internal/bus"
	"github.com/zjrosen/devdeck/internal/log"
	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/payload"
	"github.com/zjrosen/devdeck/internal/pubsub"
	"github.com/zjrosen/devdeck/internal/tasks"
)

// DefaultConnectLatency is how long simulated kafka and grpc connections take.
const DefaultConnectLatency = time.Second

var shellBanner = []string{
	"Welcome to the AI Development Environment Terminal",
	`Type "help" for available commands`,
	"",
}

const shellHelp = `Available commands:
  help            - Show this help message
  clear           - Clear the terminal
  echo [text]     - Echo text back to the terminal
  date            - Show current date and time
  ls              - List files (simulated)
  python          - Run Python code (simulated)
  run             - Run the current program (simulated)
  build [target]  - Build a target (simulated)
  kafka           - Interact with Kafka (simulated)
  grpc            - Interact with gRPC services (simulated)`

const shellListing = `app/
├── components/
│   ├── chat/
│   ├── code-editor/
│   ├── shell/
│   └── visualization/
├── services/
│   ├── ai.service.ts
│   └── communication.service.ts
├── models/
│   └── message.model.ts
└── app.component.ts`

// Shell is the simulated terminal adapter. Command lines arrive on the
// shell channel or from Execute; everything published on the execution
// result channel is appended to the output.
type Shell struct {
	bus        *bus.Bus
	tasks      *tasks.Group
	latency    time.Duration
	echoToChat bool
	now        func() time.Time

	gate    *gate[payload.Shell]
	subs    []*pubsub.Subscription
	changes *pubsub.Broker[Change]

	mu    sync.Mutex
	lines []string
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithConnectLatency sets the simulated kafka/grpc connection time.
func WithConnectLatency(d time.Duration) ShellOption {
	return func(s *Shell) {
		s.latency = d
	}
}

// WithEchoToChat posts "Command executed: <cmd>" to chat for each command.
func WithEchoToChat(enabled bool) ShellOption {
	return func(s *Shell) {
		s.echoToChat = enabled
	}
}

// WithClock overrides the time source used by the date command.
func WithClock(now func() time.Time) ShellOption {
	return func(s *Shell) {
		s.now = now
	}
}

// NewShell subscribes a new shell to the shell and execution result
// channels. Delayed output runs on group, so closing the group cancels any
// connection still in progress.
func NewShell(ctx context.Context, b *bus.Bus, group *tasks.Group, opts ...ShellOption) *Shell {
	s := &Shell{
		bus:     b,
		tasks:   group,
		latency: DefaultConnectLatency,
		now:     time.Now,
		changes: pubsub.NewBroker[Change](),
		lines:   append([]string(nil), shellBanner...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = newGate(func(p payload.Shell) { s.Execute(p.Command) })

	s.subs = append(s.subs,
		b.Shell().Subscribe(ctx, func(ev pubsub.Event[payload.Shell]) {
			s.gate.offer(ev.Payload)
		}),
		b.ExecutionResult().Subscribe(ctx, func(ev pubsub.Event[string]) {
			s.write(ev.Payload)
		}),
	)
	return s
}

// MarkReady opens the shell, running the last command received while closed.
func (s *Shell) MarkReady() {
	s.gate.open()
}

// Ready reports whether MarkReady has been called.
func (s *Shell) Ready() bool {
	return s.gate.isReady()
}

// Execute echoes the prompt line and runs the simulated command.
func (s *Shell) Execute(command string) {
	if strings.TrimSpace(command) == "" {
		return
	}
	s.write("$ " + command)
	s.simulate(command)

	if s.echoToChat {
		s.bus.Post(message.System("Command executed: " + command))
	}
}

func (s *Shell) simulate(command string) {
	cmd := strings.ToLower(strings.TrimSpace(command))
	fields := strings.Fields(command)

	switch {
	case cmd == "help":
		s.write(shellHelp)
	case cmd == "clear":
		s.Clear()
	case strings.HasPrefix(cmd, "echo "):
		s.write(strings.TrimSpace(command)[len("echo "):])
	case cmd == "date":
		s.write(s.now().Format(time.RFC1123))
	case cmd == "ls":
		s.write(shellListing)
	case strings.HasPrefix(cmd, "python"):
		s.write(
			"Python 3.9.0 (default, Oct 5 2020, 17:52:02)",
			"[GCC 9.3.0] on linux",
			`Type "help", "copyright", "credits" or "license" for more information.`,
			`>>> print("Hello from Python!")`,
			"Hello from Python!",
			">>>",
		)
	case cmd == "run":
		s.write("Running main program...", "Program exited with code 0")
	case strings.HasPrefix(cmd, "build"):
		target := "all"
		if len(fields) > 1 {
			target = strings.Join(fields[1:], " ")
		}
		s.write(fmt.Sprintf("Building %s...", target), fmt.Sprintf("Build succeeded: %s", target))
	case strings.HasPrefix(cmd, "running ") && strings.HasSuffix(cmd, " code..."):
		// Status line from the editor; the code itself follows on the
		// execution result channel.
	case strings.HasPrefix(cmd, "kafka"):
		s.write("Connecting to Kafka broker...")
		s.later("kafka",
			"Connected to Kafka broker at localhost:9092",
			"Available topics: ai-events, code-updates, visualization-data",
		)
	case strings.HasPrefix(cmd, "grpc"):
		s.write("Initializing gRPC client...")
		s.later("grpc",
			"Connected to gRPC server at localhost:50051",
			"Available services: AIService, CodeService, DataService",
		)
	default:
		s.write("Command not found: " + command)
	}
}

// later writes lines after the connection latency. Once started, the
// output is always delivered unless the task group shuts down first.
func (s *Shell) later(name string, lines ...string) {
	if s.tasks == nil {
		s.write(lines...)
		return
	}
	err := s.tasks.Go("shell-"+name, func(ctx context.Context) error {
		if err := tasks.Sleep(ctx, s.latency); err != nil {
			return nil
		}
		s.write(lines...)
		return nil
	})
	if err != nil {
		log.ErrorErr(log.CatWidget, "shell connection not started", err, "command", name)
		s.write(fmt.Sprintf("%s: connection aborted", name))
	}
}

// Output returns the terminal text.
func (s *Shell) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

// Lines returns a copy of the terminal lines.
func (s *Shell) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Clear empties the terminal.
func (s *Shell) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
	s.notify()
}

// Changes publishes after every output change. Delayed output publishes
// from a task goroutine.
func (s *Shell) Changes() *pubsub.Broker[Change] {
	return s.changes
}

// Close releases the shell's subscriptions.
func (s *Shell) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.changes.Close()
}

func (s *Shell) write(texts ...string) {
	s.mu.Lock()
	for _, t := range texts {
		s.lines = append(s.lines, strings.Split(t, "\n")...)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Shell) notify() {
	s.changes.Publish(Changed, Change{Widget: payload.TargetShell})
}
