package repl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"ctfplatform/internal/cli/command"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

// Prompt is shown before every REPL line.
const Prompt = "admin> "

// ErrExit is returned by HandleLine for exit and quit.
var ErrExit = errors.New("exit")

// Session dispatches command lines to the registry.
type Session struct {
	commands map[string]command.Command
	env      *command.Env
}

func New(commands map[string]command.Command, env *command.Env) *Session {
	return &Session{commands: commands, env: env}
}

// Execute runs a single command given as argv.
func (s *Session) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command")
	}
	cmd, ok := s.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	run, err := cmd.Parse(args[1:], s.env.Out)
	if err != nil {
		return err
	}
	return run(ctx, s.env)
}

// HandleLine tokenizes line like a shell and executes it. Blank lines are
// ignored.
func (s *Session) HandleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return nil
	case "exit", "quit":
		return ErrExit
	case "help":
		s.printHelp()
		return nil
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	return s.Execute(ctx, tokens)
}

// Run reads lines until exit, EOF or interrupt on an empty line.
func (s *Session) Run(ctx context.Context, rl *readline.Instance) error {
	for {
		rl.SetPrompt(Prompt)
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}

		err = s.HandleLine(ctx, line)
		if errors.Is(err, ErrExit) {
			s.printLine("bye")
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil && !errors.Is(err, flag.ErrHelp) {
			s.printLine("error: %s", command.FormatError(err))
		}
	}
}

func (s *Session) printHelp() {
	s.printLine("usage: <command> [options]")
	s.printLine("system: help | exit")
	s.printLine("commands:")
	for _, name := range command.Names(s.commands) {
		s.printLine("  %-28s %s", name, s.commands[name].Description)
	}
	s.printLine("examples:")
	s.printLine("  create_supervisor -u root -r admin")
	s.printLine("  create_task --title \"Warm up\" --description \"Find the flag\" --answers flag{1} --value 100")
	s.printLine("  disqualify_team -t 3")
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.env.Out, format+"\n", args...)
}
