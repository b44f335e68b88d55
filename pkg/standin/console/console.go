// Package console implements the interactive terminal prompts used during
// login and onboarding: line prompts for phone and one-time code, a hidden
// prompt for the account password, and a multi-select list for choosing
// which contacts to allow-list.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/chzyer/readline"
)

// pageSize caps how many choices the multi-select shows at once. Selection
// itself is not capped.
const pageSize = 15

// Choice is one selectable item in a multi-select prompt.
type Choice struct {
	Label string
	Value string
}

// Console wraps a readline instance for the lifetime of the process.
type Console struct {
	rl *readline.Instance
}

// New opens the terminal for prompting.
func New() (*Console, error) {
	rl, err := readline.New("> ")
	if err != nil {
		return nil, fmt.Errorf("opening terminal: %w", err)
	}
	return &Console{rl: rl}, nil
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Line prompts for one line of input and returns it trimmed.
func (c *Console) Line(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret prompts for one line of input without echoing it.
func (c *Console) Secret(prompt string) (string, error) {
	pw, err := c.rl.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}

// MultiSelect presents the choices and returns the values of those the
// operator picked. An empty selection is returned as-is; the caller decides
// whether that is fatal.
func (c *Console) MultiSelect(title string, choices []Choice) ([]string, error) {
	opts := make([]huh.Option[string], 0, len(choices))
	for _, ch := range choices {
		opts = append(opts, huh.NewOption(ch.Label, ch.Value))
	}

	var selected []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title(title).
			Options(opts...).
			Height(pageSize).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("selection prompt: %w", err)
	}
	return selected, nil
}
