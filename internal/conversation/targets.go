// ABOUTME: Target selection: picks an audience for a finished draft and dispatches it
// ABOUTME: The session is cleared once the broadcast has run, whatever the outcome

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/raketa/internal/broadcast"
	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
)

// toTargetSelection moves the identity to TargetSelection and offers the
// audience buttons for the draft described by fill.
func (e *Engine) toTargetSelection(ctx context.Context, id int64, fill func(*session.Scratch)) {
	var content session.Content
	e.update(id, func(s *session.Session) {
		s.State = session.TargetSelection
		fill(&s.Scratch)
		content = s.Scratch.Content
	})

	buttons := []notify.Button{
		{Label: e.texts.ButtonTargetAll, Payload: payloadTargetAll},
		{Label: e.texts.ButtonTargetAnnouncement, Payload: payloadTargetAnnouncement},
	}
	if content == session.ContentEventBroadcast {
		buttons = append(buttons, notify.Button{Label: e.texts.ButtonTargetEvent, Payload: payloadTargetEvent})
	}
	buttons = append(buttons, notify.Button{Label: e.texts.ButtonTargetCancel, Payload: payloadTargetCancel})
	e.say(ctx, id, e.texts.TargetPrompt, buttons...)
}

func (e *Engine) onTarget(ctx context.Context, t *turn) error {
	scratch := t.sess.Scratch

	var audience broadcast.Audience
	switch t.in.Text {
	case payloadTargetCancel:
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.BroadcastCancelled)
		return nil
	case payloadTargetAll:
		audience.Segment = broadcast.SegmentAll
	case payloadTargetAnnouncement:
		audience.Segment = broadcast.SegmentAnnouncementApplicants
	case payloadTargetEvent:
		if scratch.Content != session.ContentEventBroadcast {
			e.unhandled(ctx, t)
			return nil
		}
		audience = broadcast.Audience{Segment: broadcast.SegmentEventApplicants, EventID: scratch.EventID}
	default:
		e.unhandled(ctx, t)
		return nil
	}

	payload, ok, err := e.draftPayload(ctx, scratch)
	if err != nil {
		return err
	}
	if !ok {
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil
	}

	recipients, err := broadcast.Resolve(ctx, e.store, audience)
	if err != nil {
		return fmt.Errorf("resolving audience: %w", err)
	}
	e.clear(t.id)
	e.send(ctx, t.id, recipients, payload)
	return nil
}

// send broadcasts payload and reports the outcome to the admin.
func (e *Engine) send(ctx context.Context, admin int64, recipients []int64, payload notify.Payload) {
	if len(recipients) == 0 {
		e.say(ctx, admin, e.texts.NoRecipients)
		return
	}
	report := e.dispatcher.Broadcast(ctx, recipients, payload)
	e.logger.Info("broadcast sent",
		"identity", admin,
		"broadcast_id", report.ID,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	e.say(ctx, admin, fmt.Sprintf(e.texts.BroadcastReport, report.Sent, report.Attempted, report.Failed))
}

// draftPayload renders the draft waiting in TargetSelection. ok is false
// when the event it refers to has been deleted meanwhile.
func (e *Engine) draftPayload(ctx context.Context, s session.Scratch) (notify.Payload, bool, error) {
	switch s.Content {
	case session.ContentEvent:
		ev, err := e.store.GetEvent(ctx, s.EventID)
		if errors.Is(err, store.ErrNotFound) {
			return notify.Payload{}, false, nil
		}
		if err != nil {
			return notify.Payload{}, false, fmt.Errorf("loading event: %w", err)
		}
		return e.eventPayload(e.texts.EventCard, ev, ev.Description, ev.PhotoRef), true, nil

	case session.ContentEventBroadcast:
		ev, err := e.store.GetEvent(ctx, s.EventID)
		if errors.Is(err, store.ErrNotFound) {
			return notify.Payload{}, false, nil
		}
		if err != nil {
			return notify.Payload{}, false, fmt.Errorf("loading event: %w", err)
		}
		return e.eventPayload(e.texts.EventBroadcastCard, ev, s.Text, s.PhotoRef), true, nil

	case session.ContentAnnouncement:
		a, err := e.store.GetAnnouncement(ctx)
		if err != nil {
			return notify.Payload{}, false, fmt.Errorf("loading announcement: %w", err)
		}
		body := strings.TrimSpace(deref(a.Title) + "\n\n" + deref(a.Description))
		p := notify.Payload{
			Text:     fmt.Sprintf(e.texts.AnnouncementBroadcastCard, body),
			PhotoRef: a.PhotoRef,
		}
		if a.Ready() {
			p.Button = e.announcementButton()
		}
		return p, true, nil

	default:
		return notify.Payload{
			Text:     fmt.Sprintf(e.texts.BroadcastCard, s.Text),
			PhotoRef: s.PhotoRef,
		}, true, nil
	}
}
