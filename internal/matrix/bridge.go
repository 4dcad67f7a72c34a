// ABOUTME: Matrix bridge: syncs with the homeserver and feeds messages to the conversation engine
// ABOUTME: Drops our own, stale and redelivered events and auto-joins rooms it is invited to

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/raketa/internal/config"
	"github.com/2389/raketa/internal/conversation"
	"github.com/2389/raketa/internal/dedupe"
	"github.com/2389/raketa/internal/store"
)

// networkTimeout is the timeout for Matrix API calls made outside a send.
const networkTimeout = 10 * time.Second

// Handler processes one engine turn.
type Handler interface {
	Handle(ctx context.Context, identity int64, in conversation.Inbound) (conversation.Result, error)
}

// Bridge connects a Matrix account to the conversation engine.
type Bridge struct {
	client  *mautrix.Client
	cfg     config.MatrixConfig
	store   store.Store
	handler Handler
	seen    *dedupe.Cache[id.EventID]
	started time.Time
	logger  *slog.Logger

	// ctx is the parent context for turn goroutines
	ctx context.Context
}

// NewClient creates the Matrix client for cfg. Password accounts still need
// Bridge.Login before use.
func NewClient(cfg config.MatrixConfig) (*mautrix.Client, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return client, nil
}

// NewBridge creates a bridge. The handler is set later with SetHandler
// because the engine needs the notifier, which needs the client.
func NewBridge(client *mautrix.Client, cfg config.MatrixConfig, s store.Store, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:  client,
		cfg:     cfg,
		store:   s,
		seen:    dedupe.New[id.EventID](dedupe.DefaultTTL, dedupe.DefaultMaxSize),
		started: time.Now(),
		logger:  logger.With("component", "matrix-bridge"),
		ctx:     context.Background(),
	}
}

// SetHandler sets the engine that receives inputs.
func (b *Bridge) SetHandler(h Handler) {
	b.handler = h
}

// Client returns the underlying Matrix client.
func (b *Bridge) Client() *mautrix.Client {
	return b.client
}

// UserID returns the bot's Matrix user ID.
func (b *Bridge) UserID() id.UserID {
	return b.client.UserID
}

// Login authenticates with username and password when no access token is
// configured. It is a no-op for token accounts.
func (b *Bridge) Login(ctx context.Context) error {
	if b.cfg.AccessToken != "" {
		return nil
	}

	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: b.cfg.Username,
		},
		Password:                 b.cfg.Password,
		InitialDeviceDisplayName: "raketa",
		StoreCredentials:         true,
	})
	if err != nil {
		return err
	}
	b.logger.Info("logged in", "user_id", resp.UserID, "device_id", resp.DeviceID)
	return nil
}

// Run syncs until ctx is cancelled or the sync fails.
func (b *Bridge) Run(ctx context.Context) error {
	if b.handler == nil {
		return errors.New("bridge has no handler")
	}
	defer b.seen.Close()

	var cancel context.CancelFunc
	b.ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessage)
	syncer.OnEventType(event.StateMember, b.handleMembership)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(b.ctx)
	}()
	b.logger.Info("matrix bridge running", "user_id", b.client.UserID)

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		cancel()
		return nil
	case err := <-syncErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bridge) handleMessage(ctx context.Context, evt *event.Event) {
	identity, in, ok := b.accept(ctx, evt)
	if !ok {
		return
	}
	// Turns for one identity are serialized by the engine; different
	// identities proceed in parallel and never block the sync loop.
	go b.process(b.ctx, identity, in)
}

// accept filters an event and resolves the sender's identity.
func (b *Bridge) accept(ctx context.Context, evt *event.Event) (int64, conversation.Inbound, bool) {
	if evt.Sender == b.client.UserID {
		return 0, conversation.Inbound{}, false
	}
	if time.UnixMilli(evt.Timestamp).Before(b.started) {
		b.logger.Debug("dropping event from before start", "event_id", evt.ID)
		return 0, conversation.Inbound{}, false
	}
	if b.seen.Seen(evt.ID) {
		b.logger.Debug("dropping duplicate event", "event_id", evt.ID)
		return 0, conversation.Inbound{}, false
	}

	in, ok := ToInbound(evt.Content.AsMessage())
	if !ok {
		return 0, conversation.Inbound{}, false
	}
	in.Handle = evt.Sender.String()

	identity, err := b.store.EnsureAccount(ctx, evt.Sender.String())
	if err != nil {
		b.logger.Error("resolving account failed", "sender", evt.Sender, "error", err)
		return 0, conversation.Inbound{}, false
	}
	b.rememberRoom(ctx, identity, evt.RoomID)

	b.logger.Info("received message", "identity", identity, "room", evt.RoomID, "kind", in.Kind)
	return identity, in, true
}

// rememberRoom makes the room the person last wrote from their reply room.
func (b *Bridge) rememberRoom(ctx context.Context, identity int64, room id.RoomID) {
	acct, err := b.store.GetAccount(ctx, identity)
	if err != nil {
		b.logger.Warn("loading account failed", "identity", identity, "error", err)
		return
	}
	if acct.RoomID != nil && *acct.RoomID == room.String() {
		return
	}
	if err := b.store.SetAccountRoom(ctx, identity, room.String()); err != nil {
		b.logger.Warn("remembering room failed", "identity", identity, "error", err)
	}
}

func (b *Bridge) process(ctx context.Context, identity int64, in conversation.Inbound) {
	res, err := b.handler.Handle(ctx, identity, in)
	if err != nil {
		b.logger.Error("turn failed", "identity", identity, "error", err)
		return
	}
	b.logger.Debug("turn done", "identity", identity, "state", res.State, "handled", res.Handled)
}

// handleMembership joins rooms the bot is invited to.
func (b *Bridge) handleMembership(ctx context.Context, evt *event.Event) {
	member := evt.Content.AsMember()
	if member.Membership != event.MembershipInvite || evt.GetStateKey() != b.client.UserID.String() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := b.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		b.logger.Warn("joining room failed", "room", evt.RoomID, "inviter", evt.Sender, "error", err)
		return
	}
	b.logger.Info("joined room", "room", evt.RoomID, "inviter", evt.Sender)
}
