// Package identity normalizes the identifier shapes the Telegram transport
// produces (peers, users, raw numeric IDs) into one canonical string key.
// Everything else in the bot (the allow-list, the conversation store, the
// reply engine) is keyed by this string.
package identity

import (
	"fmt"
	"strconv"

	"github.com/gotd/td/tg"
)

// Key resolves an identifier of any supported shape to its canonical
// decimal-string form. The supported shapes are a closed set: nil, integer
// scalars, tg peer variants, user objects (resolved through their nested
// numeric ID), plain strings (returned unchanged), and anything implementing
// fmt.Stringer. Unknown values fall through to fmt.Sprint.
//
// Key is total: it never panics and returns "" only for nil-ish input.
// Resolving an already-resolved key is a no-op (strings pass through).
func Key(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case *tg.PeerUser:
		if id == nil {
			return ""
		}
		return strconv.FormatInt(id.UserID, 10)
	case tg.PeerUser:
		return strconv.FormatInt(id.UserID, 10)
	case *tg.PeerChat:
		if id == nil {
			return ""
		}
		return strconv.FormatInt(id.ChatID, 10)
	case *tg.PeerChannel:
		if id == nil {
			return ""
		}
		return strconv.FormatInt(id.ChannelID, 10)
	case *tg.User:
		if id == nil {
			return ""
		}
		return strconv.FormatInt(id.ID, 10)
	case tg.UserClass:
		if id == nil {
			return ""
		}
		return strconv.FormatInt(id.GetID(), 10)
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
