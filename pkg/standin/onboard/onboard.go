// Package onboard builds the first-run contact allow-list.
package onboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/standinhq/standin/pkg/standin/console"
	"github.com/standinhq/standin/pkg/standin/store"
	"github.com/standinhq/standin/pkg/standin/transport"
)

var (
	// ErrNoCandidates means the account has no private dialogs to offer.
	ErrNoCandidates = errors.New("no private conversations found")
	// ErrNoneSelected means the operator confirmed an empty selection.
	ErrNoneSelected = errors.New("no contacts selected")
)

// DialogSource is the slice of the transport onboarding needs.
type DialogSource interface {
	Dialogs(ctx context.Context, limit int) ([]transport.Dialog, error)
}

// Selector presents a multi-select prompt and returns the chosen values.
type Selector interface {
	MultiSelect(title string, choices []console.Choice) ([]string, error)
}

// Run fetches recent private dialogs, lets the operator pick which contacts
// the bot may answer, and persists the result as the allow-list. Both an
// empty dialog list and an empty selection are fatal: a bot with nobody to
// answer has nothing to do.
func Run(ctx context.Context, src DialogSource, sel Selector, st *store.Store, limit int, logger *slog.Logger) (map[string]store.AllowListEntry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "onboard")

	dialogs, err := src.Dialogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching dialogs: %w", err)
	}
	if len(dialogs) == 0 {
		return nil, ErrNoCandidates
	}

	byKey := make(map[string]transport.Dialog, len(dialogs))
	choices := make([]console.Choice, 0, len(dialogs))
	for _, d := range dialogs {
		byKey[d.Key] = d
		choices = append(choices, console.Choice{Label: d.DisplayName(), Value: d.Key})
	}

	selected, err := sel.MultiSelect("Who should the bot answer?", choices)
	if err != nil {
		return nil, fmt.Errorf("contact selection: %w", err)
	}
	if len(selected) == 0 {
		return nil, ErrNoneSelected
	}

	entries := make(map[string]store.AllowListEntry, len(selected))
	for _, key := range selected {
		d, ok := byKey[key]
		if !ok {
			continue
		}
		entries[key] = store.AllowListEntry{
			Key:         key,
			DisplayName: d.DisplayName(),
			UserID:      d.UserID,
			AccessHash:  d.AccessHash,
		}
	}

	if err := st.SaveAllowList(entries); err != nil {
		return nil, fmt.Errorf("saving allow-list: %w", err)
	}
	logger.Info("allow-list saved", "contacts", len(entries))
	return entries, nil
}
