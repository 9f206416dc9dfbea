package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/slok/aico/internal/log"
)

// InputKind tells what kind of event the input loop produced.
type InputKind int

const (
	// InputLine is a full line entered by the user.
	InputLine InputKind = iota
	// InputInterrupt is Ctrl+C on an empty prompt.
	InputInterrupt
	// InputEOF is Ctrl+D or the input stream closing.
	InputEOF
)

// InputEvent is one user input event.
type InputEvent struct {
	Kind InputKind
	Line string
}

// InputSource produces user input events.
type InputSource interface {
	// Events returns the event channel. It is closed when the source stops.
	Events() <-chan InputEvent
	Close() error
}

// ReadlineConfig is the configuration for the readline input source.
type ReadlineConfig struct {
	// Prompt is the line prompt, defaults to "> ".
	Prompt string
	// HistoryFile is where line history is persisted. Defaults to
	// ~/.aico/history. Set NoHistory to disable persistence.
	HistoryFile string
	NoHistory   bool
	Logger      log.Logger
}

func (c *ReadlineConfig) defaults() error {
	if c.Prompt == "" {
		c.Prompt = "> "
	}
	if c.HistoryFile == "" && !c.NoHistory {
		home, err := os.UserHomeDir()
		if err == nil {
			c.HistoryFile = filepath.Join(home, ".aico", "history")
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ui.Readline"})

	return nil
}

// ReadlineSource reads user input with line editing and history support. It
// runs its own read goroutine so the session can select over input and task
// notifications at the same time.
type ReadlineSource struct {
	rl     *readline.Instance
	events chan InputEvent
	logger log.Logger
}

// NewReadlineSource creates a readline input source and starts its read loop.
func NewReadlineSource(cfg ReadlineConfig) (*ReadlineSource, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.HistoryFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryFile), 0o755); err != nil {
			cfg.Logger.Warningf("Could not create history directory: %s", err)
			cfg.HistoryFile = ""
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cfg.Prompt,
		HistoryFile:       cfg.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize readline: %w", err)
	}

	s := &ReadlineSource{
		rl:     rl,
		events: make(chan InputEvent),
		logger: cfg.Logger,
	}
	go s.loop()

	return s, nil
}

func (s *ReadlineSource) loop() {
	defer close(s.events)

	for {
		line, err := s.rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			// Ctrl+C with a half-typed line just clears it.
			if len(line) != 0 {
				continue
			}
			s.events <- InputEvent{Kind: InputInterrupt}

		case err == io.EOF:
			s.events <- InputEvent{Kind: InputEOF}
			return

		case err != nil:
			s.logger.Debugf("Input loop stopped: %s", err)
			s.events <- InputEvent{Kind: InputEOF}
			return

		default:
			s.events <- InputEvent{Kind: InputLine, Line: strings.TrimSpace(line)}
		}
	}
}

// Events returns the event channel.
func (s *ReadlineSource) Events() <-chan InputEvent {
	return s.events
}

// Close stops the read loop.
func (s *ReadlineSource) Close() error {
	return s.rl.Close()
}
