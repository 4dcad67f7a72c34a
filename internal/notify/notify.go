// ABOUTME: Outbound notification contract shared by the engine and the dispatcher
// ABOUTME: Defines buttons, payloads, typed delivery failures and the caption split rule

package notify

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// CaptionLimit is the longest text sent as a photo caption. Longer text is
// sent as its own message ahead of the photo.
const CaptionLimit = 1024

// Button is an action the recipient can trigger. Payload is routed back to
// the engine verbatim.
type Button struct {
	Label   string
	Payload string
}

// Gateway delivers messages to one identity. Implementations return a
// *DeliveryError when the platform rejects or fails a send.
type Gateway interface {
	SendText(ctx context.Context, to int64, text string, buttons ...Button) error
	SendPhoto(ctx context.Context, to int64, photoRef, caption string, button *Button) error
	SendDocument(ctx context.Context, to int64, data []byte, filename, caption string) error
}

// Payload is one logical message: text, an optional photo and an optional button.
type Payload struct {
	Text     string
	PhotoRef *string
	Button   *Button
}

// DeliveryError reports a failed send to a single recipient.
type DeliveryError struct {
	Recipient int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Deliver sends p to one recipient using the caption rule: a photo with
// text of at most CaptionLimit runes goes out as one captioned photo;
// longer text goes first as plain text, followed by the photo with an empty
// caption. The button is attached to the last message sent.
func Deliver(ctx context.Context, gw Gateway, to int64, p Payload) error {
	if p.PhotoRef == nil {
		if p.Button != nil {
			return gw.SendText(ctx, to, p.Text, *p.Button)
		}
		return gw.SendText(ctx, to, p.Text)
	}

	if utf8.RuneCountInString(p.Text) > CaptionLimit {
		if err := gw.SendText(ctx, to, p.Text); err != nil {
			return err
		}
		return gw.SendPhoto(ctx, to, *p.PhotoRef, "", p.Button)
	}
	return gw.SendPhoto(ctx, to, *p.PhotoRef, p.Text, p.Button)
}
