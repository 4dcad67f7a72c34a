// ABOUTME: Matrix implementation of notify.Gateway
// ABOUTME: Resolves each identity's direct room, bounds every send with a timeout and uploads documents

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

	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/store"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSendTimeout bounds one send when none is configured.
const DefaultSendTimeout = 15 * time.Second

// api is the subset of *mautrix.Client the notifier uses.
type api interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON any, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	CreateRoom(ctx context.Context, req *mautrix.ReqCreateRoom) (*mautrix.RespCreateRoom, error)
	UploadBytes(ctx context.Context, data []byte, contentType string) (*mautrix.RespMediaUpload, error)
}

var _ api = (*mautrix.Client)(nil)

// Notifier delivers messages to identities over Matrix.
type Notifier struct {
	client  api
	store   store.Store
	timeout time.Duration
	logger  *slog.Logger
}

var _ notify.Gateway = (*Notifier)(nil)

// NewNotifier creates a notifier. timeout <= 0 selects DefaultSendTimeout.
func NewNotifier(client api, s store.Store, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client:  client,
		store:   s,
		timeout: timeout,
		logger:  logger.With("component", "matrix-notifier"),
	}
}

// SendText sends a text message, with buttons rendered as command hints.
func (n *Notifier) SendText(ctx context.Context, to int64, text string, buttons ...notify.Button) error {
	content := textContent(event.MsgText, withButtons(text, buttons...))
	return n.send(ctx, to, content)
}

// SendPhoto sends an image by reference. The caption and button travel in
// the body, which clients show as the image caption.
func (n *Notifier) SendPhoto(ctx context.Context, to int64, photoRef, caption string, button *notify.Button) error {
	if button != nil {
		caption = withButtons(caption, *button)
	}

	content := &event.MessageEventContent{
		MsgType:  event.MsgImage,
		Body:     "photo",
		FileName: "photo",
		URL:      id.ContentURIString(photoRef),
	}
	if caption != "" {
		content.Body = caption
		if html, ok := toHTML(caption); ok {
			content.Format = event.FormatHTML
			content.FormattedBody = html
		}
	}
	return n.send(ctx, to, content)
}

// SendDocument uploads data and sends it as a file.
func (n *Notifier) SendDocument(ctx context.Context, to int64, data []byte, filename, caption string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	room, err := n.room(ctx, to)
	if err != nil {
		return &notify.DeliveryError{Recipient: to, Err: err}
	}

	upload, err := n.client.UploadBytes(ctx, data, xlsxMime)
	if err != nil {
		return &notify.DeliveryError{Recipient: to, Err: fmt.Errorf("uploading %s: %w", filename, err)}
	}

	body := caption
	if body == "" {
		body = filename
	}
	content := &event.MessageEventContent{
		MsgType:  event.MsgFile,
		Body:     body,
		FileName: filename,
		URL:      upload.ContentURI.CUString(),
		Info:     &event.FileInfo{MimeType: xlsxMime, Size: len(data)},
	}
	if _, err := n.client.SendMessageEvent(ctx, room, event.EventMessage, content); err != nil {
		return &notify.DeliveryError{Recipient: to, Err: err}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, to int64, content *event.MessageEventContent) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	room, err := n.room(ctx, to)
	if err != nil {
		return &notify.DeliveryError{Recipient: to, Err: err}
	}
	if _, err := n.client.SendMessageEvent(ctx, room, event.EventMessage, content); err != nil {
		return &notify.DeliveryError{Recipient: to, Err: err}
	}
	return nil
}

// room returns the identity's direct room, creating and remembering one the
// first time the bot writes to someone who never wrote to it.
func (n *Notifier) room(ctx context.Context, to int64) (id.RoomID, error) {
	acct, err := n.store.GetAccount(ctx, to)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no matrix account for identity %d", to)
	}
	if err != nil {
		return "", fmt.Errorf("loading account: %w", err)
	}
	if acct.RoomID != nil {
		return id.RoomID(*acct.RoomID), nil
	}

	resp, err := n.client.CreateRoom(ctx, &mautrix.ReqCreateRoom{
		Invite:   []id.UserID{id.UserID(acct.MatrixUserID)},
		IsDirect: true,
		Preset:   "trusted_private_chat",
	})
	if err != nil {
		return "", fmt.Errorf("creating direct room: %w", err)
	}
	if err := n.store.SetAccountRoom(ctx, to, resp.RoomID.String()); err != nil {
		// The room exists; it is recreated next time, which is harmless.
		n.logger.Warn("remembering direct room failed", "identity", to, "error", err)
	}
	n.logger.Info("direct room created", "identity", to, "room", resp.RoomID)
	return resp.RoomID, nil
}

func textContent(msgType event.MessageType, text string) *event.MessageEventContent {
	content := &event.MessageEventContent{MsgType: msgType, Body: text}
	if html, ok := toHTML(text); ok {
		content.Format = event.FormatHTML
		content.FormattedBody = html
	}
	return content
}
