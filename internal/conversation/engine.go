// ABOUTME: Conversation engine: routes one inbound input per identity through the dialog state machine
// ABOUTME: Commands and global buttons first, then the (state, kind) transition table

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/2389/raketa/internal/broadcast"
	"github.com/2389/raketa/internal/ledger"
	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
	"github.com/2389/raketa/internal/texts"
)

// Kind tags an inbound input.
type Kind int

const (
	KindText Kind = iota
	KindAttachment
	KindButton
	KindContact
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAttachment:
		return "attachment"
	case KindButton:
		return "button"
	case KindContact:
		return "contact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Inbound is one input from a person.
type Inbound struct {
	Kind     Kind
	Text     string // message text, button payload or shared phone number
	PhotoRef string // opaque reference for attachments
	Handle   string // sender's transport handle, stored on registration
}

// Text builds a text input.
func Text(s string) Inbound { return Inbound{Kind: KindText, Text: s} }

// Button builds a button press.
func Button(payload string) Inbound { return Inbound{Kind: KindButton, Text: payload} }

// Contact builds a shared phone number.
func Contact(phone string) Inbound { return Inbound{Kind: KindContact, Text: phone} }

// Attachment builds a photo input.
func Attachment(ref string) Inbound { return Inbound{Kind: KindAttachment, PhotoRef: ref} }

// Result describes the outcome of one turn.
type Result struct {
	State   session.State // state after the turn
	Handled bool          // false when the input had no route and was acknowledged as inactive
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Store      store.Store
	Sessions   *session.Store
	Locks      *session.Locks
	Ledger     *ledger.Ledger
	Dispatcher *broadcast.Dispatcher
	Gateway    notify.Gateway
	Texts      *texts.Catalog
	Admins     []int64 // identities allowed into admin flows
	Phone      PhoneRules
}

type turn struct {
	id      int64
	in      Inbound
	sess    session.Session
	handled bool
}

type handler func(ctx context.Context, t *turn) error

// Engine drives every conversation.
type Engine struct {
	store      store.Store
	sessions   *session.Store
	locks      *session.Locks
	ledger     *ledger.Ledger
	dispatcher *broadcast.Dispatcher
	gateway    notify.Gateway
	texts      *texts.Catalog
	admins     []int64
	phone      PhoneRules
	logger     *slog.Logger

	table map[session.State]map[Kind]handler
}

// New creates an Engine. Missing sessions, locks and texts get defaults.
func New(deps Deps, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore()
	}
	if deps.Locks == nil {
		deps.Locks = session.NewLocks()
	}
	if deps.Texts == nil {
		deps.Texts = texts.Default()
	}
	if deps.Phone.CountryCode == "" {
		deps.Phone = DefaultPhoneRules
	}

	admins := slices.Clone(deps.Admins)
	slices.Sort(admins)
	admins = slices.Compact(admins)

	e := &Engine{
		store:      deps.Store,
		sessions:   deps.Sessions,
		locks:      deps.Locks,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		gateway:    deps.Gateway,
		texts:      deps.Texts,
		admins:     admins,
		phone:      deps.Phone,
		logger:     logger.With("component", "conversation"),
	}
	e.table = e.transitions()
	return e
}

// Handle processes one input for identity. Turns for the same identity run
// one at a time. The returned error is a storage failure that has already
// been reported to the person; the session has been cleared.
func (e *Engine) Handle(ctx context.Context, identity int64, in Inbound) (Result, error) {
	unlock := e.locks.Lock(identity)
	defer unlock()

	t := &turn{id: identity, in: in, sess: e.sessions.Get(identity), handled: true}
	e.logger.Debug("turn", "identity", identity, "state", t.sess.State, "kind", in.Kind)

	var route handler
	if in.Kind == KindButton {
		route = e.globalRoute(in.Text)
	}

	var err error
	switch {
	case e.isCommand(t):
		err = e.command(ctx, t)
	case route != nil:
		err = route(ctx, t)
	default:
		h, ok := e.table[t.sess.State][in.Kind]
		if !ok {
			e.unhandled(ctx, t)
			break
		}
		err = h(ctx, t)
	}

	if err != nil {
		return e.fail(ctx, identity, err)
	}
	return Result{State: e.sessions.Get(identity).State, Handled: t.handled}, nil
}

// IsAdmin reports whether identity may use admin flows.
func (e *Engine) IsAdmin(identity int64) bool {
	_, ok := slices.BinarySearch(e.admins, identity)
	return ok
}

// fail reports a storage failure and resets the session so nobody is stuck.
func (e *Engine) fail(ctx context.Context, id int64, err error) (Result, error) {
	e.logger.Error("turn failed", "identity", id, "error", err)
	e.sessions.Clear(id)
	e.say(ctx, id, e.texts.StorageFailure)
	return Result{State: session.Idle, Handled: true}, err
}

// unhandled acknowledges input that has no route in the current state.
func (e *Engine) unhandled(ctx context.Context, t *turn) {
	t.handled = false
	if t.in.Kind == KindText && t.sess.State == session.Idle {
		e.say(ctx, t.id, e.texts.NavigationHint)
		return
	}
	e.say(ctx, t.id, e.texts.NotActive)
}

// say sends a reply. Reply failures are logged; the person cannot be told.
func (e *Engine) say(ctx context.Context, to int64, text string, buttons ...notify.Button) {
	if err := e.gateway.SendText(ctx, to, text, buttons...); err != nil {
		e.logger.Warn("reply failed", "identity", to, "error", err)
	}
}

// deliver sends a full payload (photo, caption rule, button) as a reply.
func (e *Engine) deliver(ctx context.Context, to int64, p notify.Payload) {
	if err := notify.Deliver(ctx, e.gateway, to, p); err != nil {
		e.logger.Warn("reply failed", "identity", to, "error", err)
	}
}

func (e *Engine) setState(id int64, state session.State) {
	e.sessions.Set(id, state)
}

func (e *Engine) update(id int64, fn func(*session.Session)) {
	e.sessions.Update(id, fn)
}

func (e *Engine) clear(id int64) {
	e.sessions.Clear(id)
}
