// ABOUTME: Admin authoring dialogs: new event, announcement create/edit, broadcasts, event edit
// ABOUTME: Each dialog collects fields step by step and ends in target selection or idle

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

func (e *Engine) skipButton() notify.Button {
	return notify.Button{Label: e.texts.ButtonSkip, Payload: payloadSkip}
}

// textInput returns trimmed text, re-prompting when it is empty.
func (e *Engine) textInput(ctx context.Context, t *turn) (string, bool) {
	text := strings.TrimSpace(t.in.Text)
	if text == "" {
		e.say(ctx, t.id, e.texts.TextRequired)
		return "", false
	}
	return text, true
}

// photoInput resolves a photo step: an attachment sets the photo, skip
// leaves it empty. ok is false when the input was neither; the caller
// has already re-prompted.
func (e *Engine) photoInput(ctx context.Context, t *turn) (photo *string, ok bool) {
	if t.in.Kind == KindAttachment && t.in.PhotoRef != "" {
		ref := t.in.PhotoRef
		return &ref, true
	}
	if e.isSkip(t.in) {
		return nil, true
	}
	e.say(ctx, t.id, e.texts.PhotoOrSkip, e.skipButton())
	return nil, false
}

// New event

func (e *Engine) onEventTitle(ctx context.Context, t *turn) error {
	title, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventDescription
		s.Scratch.Title = title
	})
	e.say(ctx, t.id, e.texts.EventDescriptionPrompt)
	return nil
}

func (e *Engine) onEventDescription(ctx context.Context, t *turn) error {
	desc, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventPhoto
		s.Scratch.Description = desc
	})
	e.say(ctx, t.id, e.texts.EventPhotoPrompt, e.skipButton())
	return nil
}

func (e *Engine) onEventPhoto(ctx context.Context, t *turn) error {
	photo, ok := e.photoInput(ctx, t)
	if !ok {
		return nil
	}

	ev := &store.Event{
		Title:       t.sess.Scratch.Title,
		Description: t.sess.Scratch.Description,
		PhotoRef:    photo,
	}
	if err := e.store.CreateEvent(ctx, ev); err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	e.logger.Info("event created", "event_id", ev.ID, "identity", t.id)

	e.say(ctx, t.id, fmt.Sprintf(e.texts.EventCreated, ev.Title))
	e.toTargetSelection(ctx, t.id, func(s *session.Scratch) {
		s.Content = session.ContentEvent
		s.EventID = ev.ID
	})
	return nil
}

// Announcement, first time

func (e *Engine) onAnnouncementTitle(ctx context.Context, t *turn) error {
	title, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.AnnouncementDescription
		s.Scratch.Title = title
	})
	e.say(ctx, t.id, e.texts.AnnouncementDescriptionPrompt)
	return nil
}

func (e *Engine) onAnnouncementDescription(ctx context.Context, t *turn) error {
	desc, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.AnnouncementPhoto
		s.Scratch.Description = desc
	})
	e.say(ctx, t.id, e.texts.AnnouncementPhotoPrompt, e.skipButton())
	return nil
}

func (e *Engine) onAnnouncementPhoto(ctx context.Context, t *turn) error {
	photo, ok := e.photoInput(ctx, t)
	if !ok {
		return nil
	}

	patch := store.AnnouncementPatch{
		Title:       store.Set(t.sess.Scratch.Title),
		Description: store.Set(t.sess.Scratch.Description),
		PhotoRef:    store.Clear[string](),
	}
	if photo != nil {
		patch.PhotoRef = store.Set(*photo)
	}
	return e.saveAnnouncement(ctx, t, patch)
}

// Announcement, editing an existing one

func (e *Engine) onAnnouncementEditTitle(ctx context.Context, t *turn) error {
	if !e.editTextAccepted(ctx, t) {
		return nil
	}
	v := e.editValue(t.in)
	e.update(t.id, func(s *session.Session) {
		s.State = session.AnnouncementEditDescription
		s.Scratch.AnnouncementPatch.Title = v
	})
	e.say(ctx, t.id, e.texts.AnnouncementEditDescriptionPrompt, e.skipButton())
	return nil
}

func (e *Engine) onAnnouncementEditDescription(ctx context.Context, t *turn) error {
	if !e.editTextAccepted(ctx, t) {
		return nil
	}
	v := e.editValue(t.in)
	e.update(t.id, func(s *session.Session) {
		s.State = session.AnnouncementEditPhoto
		s.Scratch.AnnouncementPatch.Description = v
	})
	e.say(ctx, t.id, e.texts.AnnouncementEditPhotoPrompt, e.skipButton())
	return nil
}

func (e *Engine) onAnnouncementEditPhoto(ctx context.Context, t *turn) error {
	v, ok := e.editPhoto(ctx, t, e.texts.AnnouncementEditPhotoPrompt)
	if !ok {
		return nil
	}
	patch := t.sess.Scratch.AnnouncementPatch
	patch.PhotoRef = v
	return e.saveAnnouncement(ctx, t, patch)
}

func (e *Engine) saveAnnouncement(ctx context.Context, t *turn, patch store.AnnouncementPatch) error {
	if _, err := e.store.UpsertAnnouncement(ctx, patch); err != nil {
		return fmt.Errorf("saving announcement: %w", err)
	}
	e.logger.Info("announcement saved", "identity", t.id)

	e.say(ctx, t.id, e.texts.AnnouncementSaved)
	e.toTargetSelection(ctx, t.id, func(s *session.Scratch) {
		s.Content = session.ContentAnnouncement
	})
	return nil
}

// editTextAccepted rejects buttons other than skip on edit text steps.
func (e *Engine) editTextAccepted(ctx context.Context, t *turn) bool {
	if t.in.Kind == KindButton && !e.isSkip(t.in) {
		e.unhandled(ctx, t)
		return false
	}
	if t.in.Kind == KindText && strings.TrimSpace(t.in.Text) == "" {
		e.say(ctx, t.id, e.texts.TextRequired)
		return false
	}
	return true
}

// editPhoto resolves an edit photo step: attachment sets, skip keeps, the
// clear keyword clears. Any other input re-prompts with prompt.
func (e *Engine) editPhoto(ctx context.Context, t *turn, prompt string) (store.Optional[string], bool) {
	switch {
	case t.in.Kind == KindAttachment && t.in.PhotoRef != "":
		return store.Set(t.in.PhotoRef), true
	case e.isSkip(t.in):
		return store.Keep[string](), true
	case e.isClearKeyword(t.in):
		return store.Clear[string](), true
	default:
		e.say(ctx, t.id, prompt, e.skipButton())
		return store.Optional[string]{}, false
	}
}

// Free-form broadcast

func (e *Engine) onBroadcastText(ctx context.Context, t *turn) error {
	text, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.BroadcastPhoto
		s.Scratch.Text = text
	})
	e.say(ctx, t.id, e.texts.BroadcastPhotoPrompt, e.skipButton())
	return nil
}

func (e *Engine) onBroadcastPhoto(ctx context.Context, t *turn) error {
	photo, ok := e.photoInput(ctx, t)
	if !ok {
		return nil
	}
	e.toTargetSelection(ctx, t.id, func(s *session.Scratch) {
		s.Content = session.ContentBroadcast
		s.PhotoRef = photo
	})
	return nil
}

// Re-broadcast of an existing event

func (e *Engine) startEventBroadcast(ctx context.Context, t *turn, eventID int64) error {
	if _, ok, err := e.findEvent(ctx, t, eventID); err != nil || !ok {
		return err
	}
	e.clear(t.id)
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventBroadcastText
		s.Scratch.EventID = eventID
	})
	e.say(ctx, t.id, e.texts.EventBroadcastTextPrompt)
	return nil
}

func (e *Engine) onEventBroadcastText(ctx context.Context, t *turn) error {
	text, ok := e.textInput(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventBroadcastPhoto
		s.Scratch.Text = text
	})
	e.say(ctx, t.id, e.texts.PhotoOrSkip, e.skipButton())
	return nil
}

func (e *Engine) onEventBroadcastPhoto(ctx context.Context, t *turn) error {
	photo, ok := e.photoInput(ctx, t)
	if !ok {
		return nil
	}
	e.toTargetSelection(ctx, t.id, func(s *session.Scratch) {
		s.Content = session.ContentEventBroadcast
		s.PhotoRef = photo
	})
	return nil
}

// Event editing

func (e *Engine) startEventEdit(ctx context.Context, t *turn, eventID int64) error {
	ev, ok, err := e.findEvent(ctx, t, eventID)
	if err != nil || !ok {
		return err
	}
	e.clear(t.id)
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventEditTitle
		s.Scratch.EventID = eventID
	})
	e.say(ctx, t.id, fmt.Sprintf(e.texts.EventEditTitlePrompt, ev.Title), e.skipButton())
	return nil
}

func (e *Engine) onEventEditTitle(ctx context.Context, t *turn) error {
	v, ok := e.requiredEditValue(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventEditDescription
		s.Scratch.EventPatch.Title = v
	})
	e.say(ctx, t.id, e.texts.EventEditDescriptionPrompt, e.skipButton())
	return nil
}

func (e *Engine) onEventEditDescription(ctx context.Context, t *turn) error {
	v, ok := e.requiredEditValue(ctx, t)
	if !ok {
		return nil
	}
	e.update(t.id, func(s *session.Session) {
		s.State = session.EventEditPhoto
		s.Scratch.EventPatch.Description = v
	})
	e.say(ctx, t.id, e.texts.EventEditPhotoPrompt, e.skipButton())
	return nil
}

// requiredEditValue is editValue for NOT NULL fields: the clear keyword
// re-prompts instead of clearing.
func (e *Engine) requiredEditValue(ctx context.Context, t *turn) (store.Optional[string], bool) {
	if !e.editTextAccepted(ctx, t) {
		return store.Optional[string]{}, false
	}
	if e.isClearKeyword(t.in) {
		e.say(ctx, t.id, e.texts.FieldRequired, e.skipButton())
		return store.Optional[string]{}, false
	}
	return e.editValue(t.in), true
}

func (e *Engine) onEventEditPhoto(ctx context.Context, t *turn) error {
	v, ok := e.editPhoto(ctx, t, e.texts.EventEditPhotoPrompt)
	if !ok {
		return nil
	}
	patch := t.sess.Scratch.EventPatch
	patch.PhotoRef = v

	ev, err := e.store.UpdateEvent(ctx, t.sess.Scratch.EventID, patch)
	if errors.Is(err, store.ErrNotFound) {
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}

	e.logger.Info("event updated", "event_id", ev.ID, "identity", t.id)
	e.clear(t.id)
	e.say(ctx, t.id, fmt.Sprintf(e.texts.EventUpdated, ev.Title))
	e.say(ctx, t.id, e.texts.AdminPanel)
	return nil
}

// findEvent loads an event for an admin action, telling the admin when it
// no longer exists.
func (e *Engine) findEvent(ctx context.Context, t *turn, eventID int64) (*store.Event, bool, error) {
	ev, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		e.say(ctx, t.id, e.texts.EventNotFound)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading event: %w", err)
	}
	return ev, true, nil
}
