// ABOUTME: Member-facing views: event menu, event cards, the announcement and applications
// ABOUTME: Every application is announced to the admins through the dispatcher

package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/store"
)

func (e *Engine) showMenu(ctx context.Context, t *turn) error {
	events, err := e.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		e.say(ctx, t.id, e.texts.NoEvents)
		return nil
	}

	buttons := make([]notify.Button, len(events))
	for i, ev := range events {
		buttons[i] = notify.Button{Label: ev.Title, Payload: withID(prefixViewEvent, ev.ID)}
	}
	e.say(ctx, t.id, e.texts.ChooseEvent, buttons...)
	return nil
}

func (e *Engine) viewEvent(ctx context.Context, t *turn, eventID int64) error {
	ok, err := e.isRegistered(ctx, t.id)
	if err != nil {
		return err
	}
	if !ok {
		e.say(ctx, t.id, e.texts.RegisterFirst)
		return nil
	}

	ev, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}

	e.deliver(ctx, t.id, e.eventPayload(e.texts.EventCard, ev, ev.Description, ev.PhotoRef))
	return nil
}

// eventPayload renders an event card in the given format with an apply button.
func (e *Engine) eventPayload(format string, ev *store.Event, body string, photo *string) notify.Payload {
	return notify.Payload{
		Text:     fmt.Sprintf(format, ev.Title, body),
		PhotoRef: photo,
		Button:   &notify.Button{Label: e.texts.ButtonApply, Payload: withID(prefixApply, ev.ID)},
	}
}

func (e *Engine) applyEvent(ctx context.Context, t *turn, eventID int64) error {
	member, err := e.store.GetMember(ctx, t.id)
	if errors.Is(err, store.ErrNotFound) {
		e.say(ctx, t.id, e.texts.RegisterFirst)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading member: %w", err)
	}

	ev, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading event: %w", err)
	}

	res, err := e.ledger.Register(ctx, t.id, store.EventTarget(eventID))
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the lookup and the insert.
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil
	}
	if err != nil {
		return err
	}
	if res.AlreadyApplied {
		e.say(ctx, t.id, e.texts.AlreadyAppliedEvent)
		return nil
	}

	e.say(ctx, t.id, e.texts.Applied)
	e.notifyAdmins(ctx, fmt.Sprintf(e.texts.AdminEventApplication, member.FullName, member.ID, member.Phone, ev.Title))
	return nil
}

func (e *Engine) showAnnouncement(ctx context.Context, t *turn) error {
	a, err := e.readyAnnouncement(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		e.say(ctx, t.id, e.texts.AnnouncementNotReady)
		return nil
	}

	e.deliver(ctx, t.id, notify.Payload{
		Text:     fmt.Sprintf(e.texts.AnnouncementCard, deref(a.Title), deref(a.Description)),
		PhotoRef: a.PhotoRef,
		Button:   e.announcementButton(),
	})
	return nil
}

// readyAnnouncement returns the announcement, or nil if it has no title yet.
func (e *Engine) readyAnnouncement(ctx context.Context) (*store.Announcement, error) {
	a, err := e.store.GetAnnouncement(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading announcement: %w", err)
	}
	if !a.Ready() {
		return nil, nil
	}
	return a, nil
}

func (e *Engine) announcementButton() *notify.Button {
	return &notify.Button{Label: e.texts.ButtonAnnouncementApply, Payload: payloadAnnouncementApply}
}

func (e *Engine) applyAnnouncement(ctx context.Context, t *turn) error {
	member, err := e.store.GetMember(ctx, t.id)
	if errors.Is(err, store.ErrNotFound) {
		e.say(ctx, t.id, e.texts.RegisterFirst)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading member: %w", err)
	}

	a, err := e.readyAnnouncement(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		e.say(ctx, t.id, e.texts.AnnouncementNotReady)
		return nil
	}

	res, err := e.ledger.Register(ctx, t.id, store.AnnouncementTarget())
	if err != nil {
		return err
	}
	if res.AlreadyApplied {
		e.say(ctx, t.id, e.texts.AlreadyAppliedAnnouncement)
		return nil
	}

	e.say(ctx, t.id, e.texts.Applied)
	e.notifyAdmins(ctx, fmt.Sprintf(e.texts.AdminAnnouncementApplication, member.FullName, member.ID, member.Phone))
	return nil
}

// notifyAdmins fans a notice out to every admin. Failures are logged by the
// dispatcher and never affect the member's application.
func (e *Engine) notifyAdmins(ctx context.Context, text string) {
	if len(e.admins) == 0 {
		return
	}
	report := e.dispatcher.Broadcast(ctx, e.admins, notify.Payload{Text: text})
	if report.Failed > 0 {
		e.logger.Warn("admin notification incomplete", "failed", report.Failed, "broadcast_id", report.ID)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
