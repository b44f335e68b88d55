package convo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/standinhq/standin/pkg/standin/store"
	"github.com/standinhq/standin/pkg/standin/transport"
)

// HistorySource is the slice of the transport hydration needs.
type HistorySource interface {
	History(ctx context.Context, peer transport.Peer, limit int) ([]transport.Message, error)
}

// Hydrate seeds the conversation store from each allow-listed contact's
// recent message history. The transport delivers messages newest first; the
// seeded history is reversed into chronological order. Hydration is best
// effort: a contact whose history cannot be fetched starts empty.
func Hydrate(ctx context.Context, src HistorySource, st *Store, entries map[string]store.AllowListEntry, limit int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for key, entry := range entries {
		peer := transport.Peer{UserID: entry.UserID, AccessHash: entry.AccessHash}
		fetched, err := src.History(ctx, peer, limit)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("hydrating %s: %w", key, err)
			}
			logger.Warn("history fetch failed, starting empty", "contact", key, "error", err)
			st.Seed(key, nil)
			continue
		}
		records := BuildHistory(key, fetched)
		st.Seed(key, records)
		logger.Info("conversation hydrated", "contact", key, "messages", len(records))
	}
	return nil
}

// BuildHistory converts a newest-first fetch into a chronological history.
// Messages whose sender resolves to the contact are tagged "user"; everything
// else (the operator's own side) is tagged "assistant". Blank messages are
// skipped; the fetch cap bounds the request, not the retained count.
func BuildHistory(contactKey string, fetched []transport.Message) []Record {
	records := make([]Record, 0, len(fetched))
	// Walk newest-to-oldest input backwards so the output ends oldest first.
	for i := len(fetched) - 1; i >= 0; i-- {
		msg := fetched[i]
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		role := RoleAssistant
		if msg.SenderKey == contactKey {
			role = RoleUser
		}
		records = append(records, Record{Role: role, Content: msg.Text})
	}
	return records
}
