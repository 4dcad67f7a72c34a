// ABOUTME: Recording Gateway used by tests of packages that send messages
// ABOUTME: Captures every send and can fail chosen recipients

package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrRecipientUnreachable is the failure Recorder returns for failing recipients.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Kind of a recorded send.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
)

// Sent is one recorded send.
type Sent struct {
	Kind     Kind
	To       int64
	Text     string // text or caption
	PhotoRef string
	Filename string
	Data     []byte
	Buttons  []Button
}

// Recorder is an in-memory Gateway that records every message.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	fail map[int64]bool
}

// NewRecorder creates a Recorder. Sends to any of failing return a DeliveryError.
func NewRecorder(failing ...int64) *Recorder {
	r := &Recorder{fail: make(map[int64]bool)}
	for _, id := range failing {
		r.fail[id] = true
	}
	return r
}

// SendText records a text message.
func (r *Recorder) SendText(ctx context.Context, to int64, text string, buttons ...Button) error {
	return r.record(ctx, Sent{Kind: KindText, To: to, Text: text, Buttons: buttons})
}

// SendPhoto records a photo message.
func (r *Recorder) SendPhoto(ctx context.Context, to int64, photoRef, caption string, button *Button) error {
	s := Sent{Kind: KindPhoto, To: to, Text: caption, PhotoRef: photoRef}
	if button != nil {
		s.Buttons = []Button{*button}
	}
	return r.record(ctx, s)
}

// SendDocument records a document message.
func (r *Recorder) SendDocument(ctx context.Context, to int64, data []byte, filename, caption string) error {
	return r.record(ctx, Sent{Kind: KindDocument, To: to, Text: caption, Filename: filename, Data: data})
}

func (r *Recorder) record(ctx context.Context, s Sent) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Recipient: s.To, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[s.To] {
		return &DeliveryError{Recipient: s.To, Err: ErrRecipientUnreachable}
	}
	r.sent = append(r.sent, s)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns the messages recorded for one recipient, in order.
func (r *Recorder) To(id int64) []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Sent
	for _, s := range r.sent {
		if s.To == id {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the last message sent to id, or false if there is none.
func (r *Recorder) Last(id int64) (Sent, bool) {
	msgs := r.To(id)
	if len(msgs) == 0 {
		return Sent{}, false
	}
	return msgs[len(msgs)-1], true
}

// Reset discards recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// Ensure Recorder implements Gateway
var _ Gateway = (*Recorder)(nil)
