// ABOUTME: Slash commands: global entry points available from any state
// ABOUTME: Admin flow commands are silent no-ops for everyone else

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
)

var knownCommands = map[string]bool{
	"/start": true, "/menu": true, "/join": true, "/cancel": true, "/admin": true,
	"/newevent": true, "/announcement": true, "/broadcast": true, "/stats": true,
}

// commandName returns the lowercased command of a "/..." text, or "".
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	// Accept "/start@botname" style suffixes.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return name
}

// isCommand reports whether a text input is handled as a command. Unknown
// commands are plain text wherever the current state accepts text, so a
// broadcast body may start with "/".
func (e *Engine) isCommand(t *turn) bool {
	if t.in.Kind != KindText {
		return false
	}
	name := commandName(t.in.Text)
	if name == "" {
		return false
	}
	if knownCommands[name] {
		return true
	}
	_, accepts := e.table[t.sess.State][KindText]
	return !accepts
}

func (e *Engine) command(ctx context.Context, t *turn) error {
	switch commandName(t.in.Text) {
	case "/start":
		return e.cmdStart(ctx, t)
	case "/menu":
		return e.registeredOnly(e.showMenu)(ctx, t)
	case "/join":
		return e.registeredOnly(e.showAnnouncement)(ctx, t)
	case "/cancel":
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.Cancelled)
		return nil
	case "/admin":
		if !e.IsAdmin(t.id) {
			e.say(ctx, t.id, e.texts.AdminDenied)
			return nil
		}
		e.say(ctx, t.id, e.texts.AdminPanel)
		return nil
	case "/newevent":
		return e.adminOnly(e.cmdNewEvent)(ctx, t)
	case "/announcement":
		return e.adminOnly(e.cmdAnnouncement)(ctx, t)
	case "/broadcast":
		return e.adminOnly(e.cmdBroadcast)(ctx, t)
	case "/stats":
		return e.adminOnly(e.showStats)(ctx, t)
	default:
		t.handled = false
		e.say(ctx, t.id, e.texts.UnknownCommand)
		return nil
	}
}

// registeredOnly prompts unregistered people to /start and leaves their
// session untouched.
func (e *Engine) registeredOnly(h handler) handler {
	return func(ctx context.Context, t *turn) error {
		ok, err := e.isRegistered(ctx, t.id)
		if err != nil {
			return err
		}
		if !ok {
			e.say(ctx, t.id, e.texts.RegisterFirst)
			return nil
		}
		return h(ctx, t)
	}
}

func (e *Engine) isRegistered(ctx context.Context, id int64) (bool, error) {
	_, err := e.store.GetMember(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading member: %w", err)
	}
	return true, nil
}

func (e *Engine) cmdNewEvent(ctx context.Context, t *turn) error {
	e.clear(t.id)
	e.setState(t.id, session.EventTitle)
	e.say(ctx, t.id, e.texts.EventTitlePrompt)
	return nil
}

func (e *Engine) cmdAnnouncement(ctx context.Context, t *turn) error {
	e.clear(t.id)

	_, err := e.store.GetAnnouncement(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.setState(t.id, session.AnnouncementTitle)
		e.say(ctx, t.id, e.texts.AnnouncementTitlePrompt)
		return nil
	case err != nil:
		return fmt.Errorf("loading announcement: %w", err)
	}

	e.setState(t.id, session.AnnouncementEditTitle)
	e.say(ctx, t.id, e.texts.AnnouncementEditTitlePrompt, e.skipButton())
	return nil
}

func (e *Engine) cmdBroadcast(ctx context.Context, t *turn) error {
	e.clear(t.id)
	e.setState(t.id, session.BroadcastText)
	e.say(ctx, t.id, e.texts.BroadcastTextPrompt)
	return nil
}
