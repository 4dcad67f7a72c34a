// ABOUTME: Button payloads, global button routes and the state transition table
// ABOUTME: Everything that maps an input to a handler lives here

package conversation

import (
	"context"
	"strconv"
	"strings"

	"github.com/2389/raketa/internal/session"
)

// Button payloads.
const (
	payloadConsent           = "consent_yes"
	payloadEventsYes         = "events_yes"
	payloadEventsNo          = "events_no"
	payloadSkip              = "skip"
	payloadAnnouncementApply = "announcement_apply"

	payloadTargetAll          = "target_all"
	payloadTargetAnnouncement = "target_announcement_applicants"
	payloadTargetEvent        = "target_event_applicants"
	payloadTargetCancel       = "target_cancel"

	payloadDeleteConfirm = "delete_confirm"
	payloadDeleteCancel  = "delete_cancel"

	payloadExportMembers      = "stats_export_members"
	payloadExportApplications = "stats_export_applications"
	payloadStatsEvents        = "stats_events"

	prefixViewEvent      = "view_event_"
	prefixApply          = "apply_"
	prefixAdminEvent     = "admin_event_"
	prefixEventExport    = "event_export_"
	prefixEventDelete    = "event_delete_"
	prefixEventEdit      = "event_edit_"
	prefixEventBroadcast = "event_broadcast_"
	prefixEventResend    = "event_resend_"
)

func withID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

type idRoute struct {
	prefix string
	admin  bool
	fn     func(e *Engine, ctx context.Context, t *turn, id int64) error
}

var idRoutes = []idRoute{
	{prefixViewEvent, false, (*Engine).viewEvent},
	{prefixApply, false, (*Engine).applyEvent},
	{prefixAdminEvent, true, (*Engine).adminEventMenu},
	{prefixEventExport, true, (*Engine).exportEvent},
	{prefixEventDelete, true, (*Engine).askDeleteEvent},
	{prefixEventEdit, true, (*Engine).startEventEdit},
	{prefixEventBroadcast, true, (*Engine).startEventBroadcast},
	{prefixEventResend, true, (*Engine).resendEvent},
}

// globalRoute returns the handler for a button that works in any state, or
// nil when the payload is state-scoped or unknown.
func (e *Engine) globalRoute(payload string) handler {
	switch payload {
	case payloadAnnouncementApply:
		return e.applyAnnouncement
	case payloadExportMembers:
		return e.adminOnly(e.exportMembers)
	case payloadExportApplications:
		return e.adminOnly(e.exportApplications)
	case payloadStatsEvents:
		return e.adminOnly(e.listAdminEvents)
	}

	for _, r := range idRoutes {
		rest, ok := strings.CutPrefix(payload, r.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return nil
		}
		h := func(ctx context.Context, t *turn) error { return r.fn(e, ctx, t, id) }
		if r.admin {
			return e.adminOnly(h)
		}
		return h
	}
	return nil
}

// adminOnly turns h into a silent no-op for non-admins.
func (e *Engine) adminOnly(h handler) handler {
	return func(ctx context.Context, t *turn) error {
		if !e.IsAdmin(t.id) {
			e.logger.Warn("admin action denied", "identity", t.id)
			t.handled = false
			return nil
		}
		return h(ctx, t)
	}
}

// transitions is the (state, kind) -> handler table for state-scoped input.
func (e *Engine) transitions() map[session.State]map[Kind]handler {
	textStep := func(h handler) map[Kind]handler {
		return map[Kind]handler{
			KindText:       h,
			KindAttachment: e.requireText,
		}
	}
	photoStep := func(h handler) map[Kind]handler {
		return map[Kind]handler{
			KindText:       h,
			KindButton:     h,
			KindAttachment: h,
		}
	}
	skippableText := func(h handler) map[Kind]handler {
		return map[Kind]handler{
			KindText:       h,
			KindButton:     h,
			KindAttachment: e.requireText,
		}
	}

	return map[session.State]map[Kind]handler{
		session.AwaitingConsent: {KindButton: e.onConsent},
		session.AwaitingPhone: {
			KindText:    e.onPhone,
			KindContact: e.onPhone,
		},
		session.AwaitingName:          textStep(e.onName),
		session.AwaitingEventInterest: {KindButton: e.onEventInterest},

		session.EventTitle:       textStep(e.onEventTitle),
		session.EventDescription: textStep(e.onEventDescription),
		session.EventPhoto:       photoStep(e.onEventPhoto),

		session.AnnouncementTitle:       textStep(e.onAnnouncementTitle),
		session.AnnouncementDescription: textStep(e.onAnnouncementDescription),
		session.AnnouncementPhoto:       photoStep(e.onAnnouncementPhoto),

		session.AnnouncementEditTitle:       skippableText(e.onAnnouncementEditTitle),
		session.AnnouncementEditDescription: skippableText(e.onAnnouncementEditDescription),
		session.AnnouncementEditPhoto:       photoStep(e.onAnnouncementEditPhoto),

		session.BroadcastText:  textStep(e.onBroadcastText),
		session.BroadcastPhoto: photoStep(e.onBroadcastPhoto),

		session.EventBroadcastText:  textStep(e.onEventBroadcastText),
		session.EventBroadcastPhoto: photoStep(e.onEventBroadcastPhoto),

		session.EventEditTitle:       skippableText(e.onEventEditTitle),
		session.EventEditDescription: skippableText(e.onEventEditDescription),
		session.EventEditPhoto:       photoStep(e.onEventEditPhoto),

		session.TargetSelection:    {KindButton: e.onTarget},
		session.DeleteConfirmation: {KindButton: e.onDeleteConfirmation},
	}
}

// requireText re-prompts when a text step receives something else.
func (e *Engine) requireText(ctx context.Context, t *turn) error {
	e.say(ctx, t.id, e.texts.TextRequired)
	return nil
}
