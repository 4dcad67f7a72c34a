// ABOUTME: Registration dialog: consent, phone, name and the events offer
// ABOUTME: The member row is written once the name is accepted

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
)

func (e *Engine) cmdStart(ctx context.Context, t *turn) error {
	e.clear(t.id)

	registered, err := e.isRegistered(ctx, t.id)
	if err != nil {
		return err
	}
	if registered {
		e.say(ctx, t.id, e.texts.AlreadyRegistered)
		if e.IsAdmin(t.id) {
			e.say(ctx, t.id, e.texts.AdminPanel)
		}
		return nil
	}

	e.say(ctx, t.id, e.texts.Welcome)
	e.say(ctx, t.id, e.texts.ConsentPrompt, notify.Button{Label: e.texts.ButtonConsent, Payload: payloadConsent})
	e.setState(t.id, session.AwaitingConsent)
	return nil
}

func (e *Engine) onConsent(ctx context.Context, t *turn) error {
	if t.in.Text != payloadConsent {
		e.unhandled(ctx, t)
		return nil
	}
	e.setState(t.id, session.AwaitingPhone)
	e.say(ctx, t.id, e.texts.PhonePrompt)
	return nil
}

func (e *Engine) onPhone(ctx context.Context, t *turn) error {
	if strings.TrimSpace(t.in.Text) == "" {
		e.say(ctx, t.id, e.texts.TextRequired)
		return nil
	}

	phone := e.phone.Normalize(t.in.Text)
	if !e.phone.Valid(phone) {
		e.say(ctx, t.id, e.texts.PhoneInvalid)
		return nil
	}

	// Early duplicate check for a friendlier dialog. The unique constraint
	// at upsert time is what actually guarantees uniqueness.
	owner, err := e.store.PhoneOwner(ctx, phone)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return fmt.Errorf("checking phone: %w", err)
	case owner != t.id:
		e.say(ctx, t.id, e.texts.PhoneTaken)
		return nil
	}

	e.update(t.id, func(s *session.Session) {
		s.State = session.AwaitingName
		s.Scratch.Phone = phone
	})
	e.say(ctx, t.id, e.texts.NamePrompt)
	return nil
}

func (e *Engine) onName(ctx context.Context, t *turn) error {
	name, ok, empty := NormalizeName(t.in.Text)
	if empty {
		e.say(ctx, t.id, e.texts.NameEmpty)
		return nil
	}
	if !ok {
		e.say(ctx, t.id, e.texts.NameInvalid)
		return nil
	}

	m := &store.Member{
		ID:       t.id,
		FullName: name,
		Phone:    t.sess.Scratch.Phone,
	}
	if t.in.Handle != "" {
		handle := t.in.Handle
		m.Handle = &handle
	}

	err := e.store.UpsertMember(ctx, m)
	if errors.Is(err, store.ErrDuplicatePhone) {
		// Lost a race for the phone: ask for another one.
		e.update(t.id, func(s *session.Session) {
			s.State = session.AwaitingPhone
			s.Scratch.Phone = ""
		})
		e.say(ctx, t.id, e.texts.PhoneTaken)
		return nil
	}
	if err != nil {
		return fmt.Errorf("saving member: %w", err)
	}

	e.logger.Info("member registered", "identity", t.id)
	e.update(t.id, func(s *session.Session) {
		s.State = session.AwaitingEventInterest
		s.Scratch = session.Scratch{}
	})
	e.say(ctx, t.id, fmt.Sprintf(e.texts.Registered, name))
	e.say(ctx, t.id, fmt.Sprintf(e.texts.EventsOffer, name),
		notify.Button{Label: e.texts.ButtonYes, Payload: payloadEventsYes},
		notify.Button{Label: e.texts.ButtonNo, Payload: payloadEventsNo},
	)
	return nil
}

func (e *Engine) onEventInterest(ctx context.Context, t *turn) error {
	switch t.in.Text {
	case payloadEventsYes:
		e.clear(t.id)
		return e.showMenu(ctx, t)
	case payloadEventsNo:
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.NavigationHint)
		if e.IsAdmin(t.id) {
			e.say(ctx, t.id, e.texts.AdminPanel)
		}
		return nil
	default:
		e.unhandled(ctx, t)
		return nil
	}
}
