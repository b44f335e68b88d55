// Package transport defines the contract between the bot and the messaging
// platform. The concrete Telegram implementation lives in the telegram
// subpackage; everything above it (onboarding, hydration, the reply engine)
// depends only on these types.
package transport

import (
	"context"
	"errors"
	"strings"
)

// Peer addresses one contact on the platform.
type Peer struct {
	UserID     int64
	AccessHash int64
}

// Dialog is one candidate contact discovered during onboarding: a recent
// one-on-one, non-bot conversation partner.
type Dialog struct {
	Key        string
	UserID     int64
	AccessHash int64
	FirstName  string
	LastName   string
	Username   string
}

// DisplayName derives the name shown to the operator: first+last name,
// falling back to the username, falling back to the key.
func (d Dialog) DisplayName() string {
	if name := strings.TrimSpace(d.FirstName + " " + d.LastName); name != "" {
		return name
	}
	if d.Username != "" {
		return d.Username
	}
	return d.Key
}

// Message is one fetched history message.
type Message struct {
	// SenderKey is the resolved identity of whoever sent the message.
	SenderKey string
	Text      string
}

// Inbound is one live incoming message event.
type Inbound struct {
	SenderKey string
	Peer      Peer
	Text      string
	// Private is true for one-on-one messages. Group and channel traffic
	// never qualifies for a reply.
	Private bool
}

// Handler consumes inbound message events.
type Handler func(ctx context.Context, in Inbound)

// Transport is the platform surface the bot consumes once connected.
type Transport interface {
	// Dialogs enumerates up to limit recent one-on-one non-bot contacts.
	Dialogs(ctx context.Context, limit int) ([]Dialog, error)

	// History fetches up to limit of the peer's most recent messages,
	// newest first.
	History(ctx context.Context, peer Peer, limit int) ([]Message, error)

	// Send delivers a text message to the peer.
	Send(ctx context.Context, peer Peer, text string) error

	// Typing emits a "typing..." action to the peer. Best effort.
	Typing(ctx context.Context, peer Peer) error
}

// ErrNotConnected is returned by transport operations invoked outside an
// active session.
var ErrNotConnected = errors.New("transport is not connected")
