// Package telegram implements the transport over MTProto with a personal
// account session.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"

	"github.com/standinhq/standin/pkg/standin/identity"
	"github.com/standinhq/standin/pkg/standin/transport"
)

// Config carries the Telegram application credentials.
type Config struct {
	APIID   int
	APIHash string
}

// Prompter collects login input from the operator.
type Prompter interface {
	Line(prompt string) (string, error)
	Secret(prompt string) (string, error)
}

// Transport is a gotd-backed Telegram connection. It satisfies
// transport.Transport once Run has brought the client online.
type Transport struct {
	cfg      Config
	creds    session.Storage
	prompter Prompter
	logger   *slog.Logger

	mu      sync.RWMutex
	api     *tg.Client
	sender  *message.Sender
	selfKey string
	handler transport.Handler
}

// New creates a transport that stores its session through creds and asks the
// operator for login input through prompter.
func New(cfg Config, creds session.Storage, prompter Prompter, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		cfg:      cfg,
		creds:    creds,
		prompter: prompter,
		logger:   logger.With("component", "telegram"),
	}
}

// OnMessage installs the inbound message handler. It may be set or replaced
// at any time; a nil handler drops messages.
func (t *Transport) OnMessage(h transport.Handler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Run connects, authenticates if the stored session is absent or expired,
// then invokes ready with the live transport and blocks until ctx is
// cancelled. Updates are dispatched from the moment the connection is up.
func (t *Transport) Run(ctx context.Context, ready func(ctx context.Context, tr transport.Transport) error) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(t.onNewMessage)

	client := telegram.NewClient(t.cfg.APIID, t.cfg.APIHash, telegram.Options{
		SessionStorage: t.creds,
		UpdateHandler:  dispatcher,
		MaxRetries:     5,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		flow := auth.NewFlow(authenticator{prompter: t.prompter}, auth.SendCodeOptions{})
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("telegram auth: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetching self: %w", err)
		}

		t.mu.Lock()
		t.api = client.API()
		t.sender = message.NewSender(t.api)
		t.selfKey = identity.Key(self)
		t.mu.Unlock()

		t.logger.Info("connected", "user", self.Username, "id", self.ID)

		if err := ready(ctx, t); err != nil {
			return err
		}

		<-ctx.Done()
		return ctx.Err()
	})
}

func (t *Transport) onNewMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}

	peerUser, private := msg.PeerID.(*tg.PeerUser)

	senderKey := identity.Key(msg.FromID)
	if senderKey == "" {
		senderKey = identity.Key(msg.PeerID)
	}

	var peer transport.Peer
	if private {
		peer = transport.Peer{UserID: peerUser.UserID}
		if user, ok := e.Users[peerUser.UserID]; ok {
			peer.AccessHash = user.AccessHash
		}
	}

	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h == nil {
		return nil
	}

	in := transport.Inbound{
		SenderKey: senderKey,
		Peer:      peer,
		Text:      msg.Message,
		Private:   private,
	}
	// Handlers serialize per contact themselves; a slow model reply must
	// not stall the update loop.
	go h(ctx, in)
	return nil
}

// Dialogs returns the account's recent one-to-one conversations, newest
// first. Bots, deleted accounts, and the account itself are excluded.
func (t *Transport) Dialogs(ctx context.Context, limit int) ([]transport.Dialog, error) {
	api, _, _, err := t.conn()
	if err != nil {
		return nil, err
	}

	raw, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching dialogs: %w", err)
	}

	var dialogs []tg.DialogClass
	var users []tg.UserClass
	switch d := raw.(type) {
	case *tg.MessagesDialogs:
		dialogs, users = d.Dialogs, d.Users
	case *tg.MessagesDialogsSlice:
		dialogs, users = d.Dialogs, d.Users
	default:
		return nil, fmt.Errorf("unexpected dialogs response %T", raw)
	}

	byID := make(map[int64]*tg.User, len(users))
	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			byID[user.ID] = user
		}
	}

	out := make([]transport.Dialog, 0, len(dialogs))
	for _, d := range dialogs {
		dlg, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}
		peerUser, ok := dlg.Peer.(*tg.PeerUser)
		if !ok {
			continue
		}
		user, ok := byID[peerUser.UserID]
		if !ok || user.Bot || user.Deleted || user.Self {
			continue
		}
		out = append(out, transport.Dialog{
			Key:        strconv.FormatInt(user.ID, 10),
			UserID:     user.ID,
			AccessHash: user.AccessHash,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Username:   user.Username,
		})
	}

	return out, nil
}

// History returns up to limit recent messages with peer, newest first.
func (t *Transport) History(ctx context.Context, peer transport.Peer, limit int) ([]transport.Message, error) {
	api, _, selfKey, err := t.conn()
	if err != nil {
		return nil, err
	}

	raw, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  inputPeer(peer),
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}

	var messages []tg.MessageClass
	switch h := raw.(type) {
	case *tg.MessagesMessages:
		messages = h.Messages
	case *tg.MessagesMessagesSlice:
		messages = h.Messages
	default:
		return nil, fmt.Errorf("unexpected history response %T", raw)
	}

	contactKey := strconv.FormatInt(peer.UserID, 10)
	out := make([]transport.Message, 0, len(messages))
	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}
		senderKey := contactKey
		if msg.Out {
			senderKey = selfKey
		} else if key := identity.Key(msg.FromID); key != "" {
			senderKey = key
		}
		out = append(out, transport.Message{
			SenderKey: senderKey,
			Text:      msg.Message,
		})
	}
	return out, nil
}

// Send delivers text to peer.
func (t *Transport) Send(ctx context.Context, peer transport.Peer, text string) error {
	_, sender, _, err := t.conn()
	if err != nil {
		return err
	}
	if _, err := sender.To(inputPeer(peer)).Text(ctx, text); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Typing shows the typing indicator to peer. Telegram expires it on its own
// after a few seconds.
func (t *Transport) Typing(ctx context.Context, peer transport.Peer) error {
	_, sender, _, err := t.conn()
	if err != nil {
		return err
	}
	if err := sender.To(inputPeer(peer)).TypingAction().Typing(ctx); err != nil {
		return fmt.Errorf("typing action: %w", err)
	}
	return nil
}

func (t *Transport) conn() (*tg.Client, *message.Sender, string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.api == nil {
		return nil, nil, "", transport.ErrNotConnected
	}
	return t.api, t.sender, t.selfKey, nil
}

func inputPeer(p transport.Peer) tg.InputPeerClass {
	return &tg.InputPeerUser{UserID: p.UserID, AccessHash: p.AccessHash}
}

// authenticator drives the interactive login through the operator prompts.
type authenticator struct {
	prompter Prompter
}

func (a authenticator) Phone(_ context.Context) (string, error) {
	return a.prompter.Line("Phone number (international format): ")
}

func (a authenticator) Password(_ context.Context) (string, error) {
	return a.prompter.Secret("Two-factor password: ")
}

func (a authenticator) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	return a.prompter.Line("Login code: ")
}

func (a authenticator) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return nil
}

func (a authenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign-up is not supported, use an existing account")
}
