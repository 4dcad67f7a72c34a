// ABOUTME: Admin screens: stats, xlsx exports and the per-event management menu
// ABOUTME: Covers event deletion with confirmation and the immediate resend to everyone

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/raketa/internal/broadcast"
	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/report"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
)

func (e *Engine) showStats(ctx context.Context, t *turn) error {
	st, err := e.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	e.say(ctx, t.id,
		fmt.Sprintf(e.texts.Stats, st.Members, st.Events, st.Applications, st.AnnouncementApplications),
		notify.Button{Label: e.texts.ButtonExportMembers, Payload: payloadExportMembers},
		notify.Button{Label: e.texts.ButtonExportApplications, Payload: payloadExportApplications},
		notify.Button{Label: e.texts.ButtonShowEvents, Payload: payloadStatsEvents},
	)
	return nil
}

func (e *Engine) listAdminEvents(ctx context.Context, t *turn) error {
	events, err := e.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		e.say(ctx, t.id, e.texts.AdminNoEvents)
		return nil
	}

	buttons := make([]notify.Button, len(events))
	for i, ev := range events {
		buttons[i] = notify.Button{Label: ev.Title, Payload: withID(prefixAdminEvent, ev.ID)}
	}
	e.say(ctx, t.id, e.texts.AdminChooseEvent, buttons...)
	return nil
}

func (e *Engine) adminEventMenu(ctx context.Context, t *turn, eventID int64) error {
	ev, ok, err := e.findEvent(ctx, t, eventID)
	if err != nil || !ok {
		return err
	}
	e.say(ctx, t.id, fmt.Sprintf(e.texts.AdminEventMenu, ev.Title),
		notify.Button{Label: e.texts.ButtonEventExport, Payload: withID(prefixEventExport, ev.ID)},
		notify.Button{Label: e.texts.ButtonEventEdit, Payload: withID(prefixEventEdit, ev.ID)},
		notify.Button{Label: e.texts.ButtonEventBroadcast, Payload: withID(prefixEventBroadcast, ev.ID)},
		notify.Button{Label: e.texts.ButtonEventResend, Payload: withID(prefixEventResend, ev.ID)},
		notify.Button{Label: e.texts.ButtonEventDelete, Payload: withID(prefixEventDelete, ev.ID)},
	)
	return nil
}

// Exports

func (e *Engine) exportMembers(ctx context.Context, t *turn) error {
	members, err := e.store.ListMembers(ctx, store.MemberFilter{})
	if err != nil {
		return fmt.Errorf("listing members: %w", err)
	}
	e.sendWorkbook(ctx, t.id, "Пользователи", report.MembersTable(members), "users.xlsx", e.texts.ExportMembersCaption)
	return nil
}

func (e *Engine) exportApplications(ctx context.Context, t *turn) error {
	apps, err := e.store.ListApplications(ctx, store.ApplicationFilter{})
	if err != nil {
		return fmt.Errorf("listing applications: %w", err)
	}
	e.sendWorkbook(ctx, t.id, "Заявки", report.ApplicationsTable(apps, true), "applications.xlsx", e.texts.ExportApplicationsCaption)
	return nil
}

func (e *Engine) exportEvent(ctx context.Context, t *turn, eventID int64) error {
	ev, ok, err := e.findEvent(ctx, t, eventID)
	if err != nil || !ok {
		return err
	}
	apps, err := e.store.ListApplications(ctx, store.ApplicationFilter{EventID: &eventID})
	if err != nil {
		return fmt.Errorf("listing applications: %w", err)
	}
	filename := strings.ReplaceAll(ev.Title, " ", "_") + "_applications.xlsx"
	e.sendWorkbook(ctx, t.id, ev.Title, report.ApplicationsTable(apps, false), filename,
		fmt.Sprintf(e.texts.ExportEventCaption, ev.Title))
	return nil
}

// sendWorkbook renders a table and sends it as a document. Rendering
// problems are reported to the admin; they are not storage failures.
func (e *Engine) sendWorkbook(ctx context.Context, to int64, sheet string, tbl report.Table, filename, caption string) {
	data, err := report.Generate(sheet, tbl)
	if errors.Is(err, report.ErrNoData) {
		e.say(ctx, to, e.texts.ExportEmpty)
		return
	}
	if err != nil {
		e.logger.Error("export failed", "identity", to, "file", filename, "error", err)
		e.say(ctx, to, e.texts.ExportFailed)
		return
	}
	if err := e.gateway.SendDocument(ctx, to, data, filename, caption); err != nil {
		e.logger.Warn("reply failed", "identity", to, "error", err)
	}
}

// Deletion

func (e *Engine) askDeleteEvent(ctx context.Context, t *turn, eventID int64) error {
	ev, ok, err := e.findEvent(ctx, t, eventID)
	if err != nil || !ok {
		return err
	}
	e.clear(t.id)
	e.update(t.id, func(s *session.Session) {
		s.State = session.DeleteConfirmation
		s.Scratch.EventID = eventID
	})
	e.say(ctx, t.id, fmt.Sprintf(e.texts.DeletePrompt, ev.Title),
		notify.Button{Label: e.texts.ButtonDeleteConfirm, Payload: payloadDeleteConfirm},
		notify.Button{Label: e.texts.ButtonDeleteCancel, Payload: payloadDeleteCancel},
	)
	return nil
}

func (e *Engine) onDeleteConfirmation(ctx context.Context, t *turn) error {
	switch t.in.Text {
	case payloadDeleteCancel:
		e.clear(t.id)
		e.say(ctx, t.id, e.texts.DeleteCancelled)
		return e.showStats(ctx, t)
	case payloadDeleteConfirm:
	default:
		e.unhandled(ctx, t)
		return nil
	}

	eventID := t.sess.Scratch.EventID
	found, err := e.store.DeleteEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	e.clear(t.id)
	if found {
		e.logger.Info("event deleted", "event_id", eventID, "identity", t.id)
		e.say(ctx, t.id, e.texts.EventDeleted)
	} else {
		e.say(ctx, t.id, e.texts.EventDeleteMissing)
	}
	return e.showStats(ctx, t)
}

// resendEvent sends the event card to every member straight away.
func (e *Engine) resendEvent(ctx context.Context, t *turn, eventID int64) error {
	ev, ok, err := e.findEvent(ctx, t, eventID)
	if err != nil || !ok {
		return err
	}
	recipients, err := broadcast.Resolve(ctx, e.store, broadcast.Audience{Segment: broadcast.SegmentAll})
	if err != nil {
		return fmt.Errorf("resolving audience: %w", err)
	}
	e.send(ctx, t.id, recipients, e.eventPayload(e.texts.ResendCard, ev, ev.Description, ev.PhotoRef))
	return nil
}
