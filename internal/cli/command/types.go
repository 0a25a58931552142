package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ctfplatform/internal/auth"
	statService "ctfplatform/internal/stat/service"
	supervisorService "ctfplatform/internal/supervisor/service"
	taskService "ctfplatform/internal/task/service"
	teamService "ctfplatform/internal/team/service"
)

// Prompter reads interactive input. Hidden input is not echoed.
type Prompter interface {
	Line(prompt string) (string, error)
	Hidden(prompt string) (string, error)
}

// Services are the backends commands operate on.
type Services struct {
	Supervisors *supervisorService.SupervisorService
	Teams       *teamService.TeamService
	Stats       *statService.StatService
	Tasks       *taskService.TaskService
	Tokens      *auth.TokenService
}

// Env is passed to every command.
type Env struct {
	Services
	Out    io.Writer
	Prompt Prompter
}

func (e *Env) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.Out, format+"\n", args...)
}

// Command is one admin action.
type Command struct {
	Name        string
	Description string
	// Flags registers options on fs and returns the runner bound to them.
	Flags func(fs *flag.FlagSet) Runner
}

// Runner executes a command after its flags were parsed.
type Runner func(ctx context.Context, env *Env) error

// Parse binds args to the command flags. Parse errors and -h are returned
// as errors; usage output goes to out.
func (c Command) Parse(args []string, out io.Writer) (Runner, error) {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(out)
	run := c.Flags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return run, nil
}

// stringFlag registers a value under a short and a long name.
func stringFlag(fs *flag.FlagSet, p *string, short, long, usage string) {
	if short != "" {
		fs.StringVar(p, short, "", usage)
	}
	fs.StringVar(p, long, "", usage)
}

func isSet(fs *flag.FlagSet, names ...string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				set = true
			}
		}
	})
	return set
}

func ParseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

// stringList is a repeatable flag. Values are kept verbatim.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

// answerFlags registers --answers (comma separated) and the repeatable
// --answer, which takes a single answer as is.
func answerFlags(fs *flag.FlagSet, usage string) func() []string {
	var list string
	var single stringList
	fs.StringVar(&list, "answers", "", "comma separated "+usage)
	fs.Var(&single, "answer", "single answer, repeatable, taken verbatim; "+usage)
	return func() []string {
		return append(ParseStringList(list), single...)
	}
}

// ParseStringList splits a comma separated list, dropping blanks.
func ParseStringList(value string) []string {
	raw := strings.Split(value, ",")
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func ParseInt64List(value string) ([]int64, error) {
	items := ParseStringList(value)
	result := make([]int64, 0, len(items))
	for _, item := range items {
		n, err := ParseInt64(item)
		if err != nil {
			return nil, fmt.Errorf("invalid int list value: %w", err)
		}
		result = append(result, n)
	}
	return result, nil
}
