package repl

import (
	"strings"

	"github.com/chzyer/readline"
)

// ReadlinePrompter reads prompts through a readline instance. Hidden input
// is masked by the terminal.
type ReadlinePrompter struct {
	rl *readline.Instance
}

func NewPrompter(rl *readline.Instance) *ReadlinePrompter {
	return &ReadlinePrompter{rl: rl}
}

func (p *ReadlinePrompter) Line(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ReadlinePrompter) Hidden(prompt string) (string, error) {
	raw, err := p.rl.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
