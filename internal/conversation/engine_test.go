// ABOUTME: Tests for the conversation engine driven through Handle
// ABOUTME: Uses the in-memory store and a recording gateway

package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/raketa/internal/broadcast"
	"github.com/2389/raketa/internal/ledger"
	"github.com/2389/raketa/internal/notify"
	"github.com/2389/raketa/internal/session"
	"github.com/2389/raketa/internal/store"
	"github.com/2389/raketa/internal/texts"
)

const adminID int64 = 100

type harness struct {
	eng   *Engine
	store *store.MockStore
	gw    *notify.Recorder
	texts *texts.Catalog
}

func newHarness(t *testing.T, failing ...int64) *harness {
	t.Helper()

	s := store.NewMockStore()
	gw := notify.NewRecorder(failing...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := texts.Default()

	eng := New(Deps{
		Store:      s,
		Ledger:     ledger.New(s, logger),
		Dispatcher: broadcast.NewDispatcher(gw, 4, logger),
		Gateway:    gw,
		Texts:      cat,
		Admins:     []int64{adminID},
	}, logger)

	return &harness{eng: eng, store: s, gw: gw, texts: cat}
}

func (h *harness) send(t *testing.T, id int64, in Inbound) Result {
	t.Helper()
	res, err := h.eng.Handle(context.Background(), id, in)
	require.NoError(t, err)
	return res
}

func (h *harness) last(t *testing.T, id int64) notify.Sent {
	t.Helper()
	msg, ok := h.gw.Last(id)
	require.True(t, ok, "no message sent to %d", id)
	return msg
}

// tail returns the last n messages sent to id, oldest first.
func (h *harness) tail(t *testing.T, id int64, n int) []notify.Sent {
	t.Helper()
	msgs := h.gw.To(id)
	require.GreaterOrEqual(t, len(msgs), n)
	return msgs[len(msgs)-n:]
}

func (h *harness) member(t *testing.T, id int64, phone string) {
	t.Helper()
	require.NoError(t, h.store.UpsertMember(context.Background(), &store.Member{ID: id, FullName: "Иван Петров", Phone: phone}))
}

func (h *harness) event(t *testing.T, title string, photo *string) *store.Event {
	t.Helper()
	ev := &store.Event{Title: title, Description: "Описание " + title, PhotoRef: photo}
	require.NoError(t, h.store.CreateEvent(context.Background(), ev))
	return ev
}

func payloads(buttons []notify.Button) []string {
	out := make([]string, len(buttons))
	for i, b := range buttons {
		out[i] = b.Payload
	}
	return out
}

func TestRegistration_FullFlow(t *testing.T) {
	h := newHarness(t)
	const id int64 = 1

	res := h.send(t, id, Text("/start"))
	assert.Equal(t, session.AwaitingConsent, res.State)
	assert.Equal(t, []string{payloadConsent}, payloads(h.last(t, id).Buttons))

	res = h.send(t, id, Button(payloadConsent))
	assert.Equal(t, session.AwaitingPhone, res.State)

	res = h.send(t, id, Text("8 (900) 123-45-67"))
	assert.Equal(t, session.AwaitingName, res.State)

	in := Text("Иван Петров Сидорович Лишнее")
	in.Handle = "@ivan:example.org"
	res = h.send(t, id, in)
	assert.Equal(t, session.AwaitingEventInterest, res.State)
	assert.Equal(t, []string{payloadEventsYes, payloadEventsNo}, payloads(h.last(t, id).Buttons))

	m, err := h.store.GetMember(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров Сидорович", m.FullName)
	assert.Equal(t, "+79001234567", m.Phone)
	require.NotNil(t, m.Handle)
	assert.Equal(t, "@ivan:example.org", *m.Handle)

	res = h.send(t, id, Button(payloadEventsYes))
	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.NoEvents, h.last(t, id).Text)
	assert.Zero(t, h.eng.sessions.Len())
}

func TestRegistration_ContactShare(t *testing.T) {
	h := newHarness(t)
	const id int64 = 1

	h.send(t, id, Text("/start"))
	h.send(t, id, Button(payloadConsent))
	res := h.send(t, id, Contact("79001234567"))
	assert.Equal(t, session.AwaitingName, res.State)
	assert.Equal(t, "+79001234567", h.eng.sessions.Get(id).Scratch.Phone)
}

func TestRegistration_AlreadyRegistered(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")

	res := h.send(t, 1, Text("/start"))
	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.AlreadyRegistered, h.last(t, 1).Text)
}

func TestRegistration_InvalidInputKeepsState(t *testing.T) {
	h := newHarness(t)
	const id int64 = 1

	h.send(t, id, Text("/start"))
	h.send(t, id, Button(payloadConsent))

	res := h.send(t, id, Text("12345"))
	assert.Equal(t, session.AwaitingPhone, res.State)
	assert.Equal(t, h.texts.PhoneInvalid, h.last(t, id).Text)

	h.send(t, id, Text("+79001234567"))

	res = h.send(t, id, Text("John"))
	assert.Equal(t, session.AwaitingName, res.State)
	assert.Equal(t, h.texts.NameInvalid, h.last(t, id).Text)

	res = h.send(t, id, Attachment("mxc://example.org/photo"))
	assert.Equal(t, session.AwaitingName, res.State)
	assert.Equal(t, h.texts.TextRequired, h.last(t, id).Text)
}

func TestRegistration_PhoneTaken(t *testing.T) {
	h := newHarness(t)
	h.member(t, 2, "+79001234567")

	h.send(t, 1, Text("/start"))
	h.send(t, 1, Button(payloadConsent))
	res := h.send(t, 1, Text("89001234567"))

	assert.Equal(t, session.AwaitingPhone, res.State)
	assert.Equal(t, h.texts.PhoneTaken, h.last(t, 1).Text)
}

func TestRegistration_OwnPhoneAllowed(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")

	h.send(t, 1, Text("/start"))
	// Registered people skip the dialog; force the phone step directly.
	h.eng.sessions.Set(1, session.AwaitingPhone)

	res := h.send(t, 1, Text("+79001234567"))
	assert.Equal(t, session.AwaitingName, res.State)
}

func TestPhoneRules_Normalize(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"+7 900 123-45-67", "+79001234567", true},
		{"8 (900) 123-45-67", "+79001234567", true},
		{"79001234567", "+79001234567", true},
		{"9001234567", "+79001234567", true},
		{"+7 (900) 123", "+7900123", false},
		{"abc", "+7", false},
		{"+1 202 555 0100", "+12025550100", false},
	}

	r := DefaultPhoneRules
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := r.Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, r.Normalize(got), "normalization must be idempotent")
			assert.Equal(t, tt.valid, r.Valid(got))
		})
	}
}

func TestPhoneRules_OtherCountry(t *testing.T) {
	r := NewPhoneRules("1", "")
	assert.Equal(t, "+12025550100", r.Normalize("(202) 555-0100"))
	assert.Equal(t, "+12025550100", r.Normalize("1 202 555 0100"))
	assert.True(t, r.Valid("+12025550100"))
	assert.False(t, r.Valid("+79001234567"))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		ok    bool
		empty bool
	}{
		{"single word", "Иван", "Иван", true, false},
		{"collapses spaces", "  иван   петров ", "иван петров", true, false},
		{"hyphen", "Анна-Мария", "Анна-Мария", true, false},
		{"keeps three words", "Иван Петров Сидорович Лишнее", "Иван Петров Сидорович", true, false},
		{"too short", "Ян", "Ян", false, false},
		{"latin", "John", "John", false, false},
		{"digits", "Иван2", "Иван2", false, false},
		{"decomposed yo", "\u0415\u0308жик", "Ёжик", true, false},
		{"blank", "   ", "", false, true},
		{"empty", "", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok, empty := NormalizeName(tt.in)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.empty, empty)
		})
	}
}

func TestUnregisteredGuard(t *testing.T) {
	h := newHarness(t)
	ev := h.event(t, "Лекция", nil)

	for _, in := range []Inbound{
		Text("/menu"),
		Text("/join"),
		Button(withID(prefixViewEvent, ev.ID)),
		Button(withID(prefixApply, ev.ID)),
		Button(payloadAnnouncementApply),
	} {
		res := h.send(t, 1, in)
		assert.Equal(t, session.Idle, res.State)
		assert.Equal(t, h.texts.RegisterFirst, h.last(t, 1).Text, "input %q", in.Text)
	}

	apps, err := h.store.ListApplications(context.Background(), store.ApplicationFilter{})
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestUnregisteredGuard_KeepsSession(t *testing.T) {
	h := newHarness(t)

	h.send(t, 1, Text("/start"))
	h.send(t, 1, Button(payloadConsent))

	h.send(t, 1, Text("/menu"))
	assert.Equal(t, session.AwaitingPhone, h.eng.sessions.Get(1).State)
}

func TestAdminGuard(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	ev := h.event(t, "Лекция", nil)

	for _, in := range []Inbound{
		Text("/newevent"),
		Text("/announcement"),
		Text("/broadcast"),
		Text("/stats"),
		Button(payloadExportMembers),
		Button(payloadExportApplications),
		Button(payloadStatsEvents),
		Button(withID(prefixAdminEvent, ev.ID)),
		Button(withID(prefixEventDelete, ev.ID)),
		Button(withID(prefixEventResend, ev.ID)),
	} {
		res := h.send(t, 1, in)
		assert.False(t, res.Handled, "input %q", in.Text)
		assert.Equal(t, session.Idle, res.State)
	}
	assert.Empty(t, h.gw.Sent(), "admin actions are silent for members")

	h.send(t, 1, Text("/admin"))
	assert.Equal(t, h.texts.AdminDenied, h.last(t, 1).Text)

	_, err := h.store.GetEvent(context.Background(), ev.ID)
	assert.NoError(t, err)
}

func TestAdminPanel(t *testing.T) {
	h := newHarness(t)
	h.send(t, adminID, Text("/admin"))
	assert.Equal(t, h.texts.AdminPanel, h.last(t, adminID).Text)
}

func TestStorageFailure_ClearsSession(t *testing.T) {
	h := newHarness(t)
	const id int64 = 1

	h.send(t, id, Text("/start"))
	h.send(t, id, Button(payloadConsent))
	h.send(t, id, Text("+79001234567"))

	h.store.SetErr(errors.New("disk gone"))
	res, err := h.eng.Handle(context.Background(), id, Text("Иван"))
	require.Error(t, err)

	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, session.Idle, h.eng.sessions.Get(id).State)
	assert.Equal(t, h.texts.StorageFailure, h.last(t, id).Text)
}

func TestUnhandledInput(t *testing.T) {
	h := newHarness(t)

	res := h.send(t, 1, Text("привет"))
	assert.False(t, res.Handled)
	assert.Equal(t, h.texts.NavigationHint, h.last(t, 1).Text)

	res = h.send(t, 1, Button(payloadDeleteConfirm))
	assert.False(t, res.Handled)
	assert.Equal(t, h.texts.NotActive, h.last(t, 1).Text)

	res = h.send(t, 1, Button("view_event_abc"))
	assert.False(t, res.Handled)
	assert.Equal(t, h.texts.NotActive, h.last(t, 1).Text)

	res = h.send(t, 1, Text("/nope"))
	assert.False(t, res.Handled)
	assert.Equal(t, h.texts.UnknownCommand, h.last(t, 1).Text)
}

func TestUnknownSlashTextInTextStep(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	body := "/ссылка на чат сообщества: example.org"

	h.send(t, adminID, Text("/broadcast"))
	res := h.send(t, adminID, Text(body))
	assert.True(t, res.Handled)
	assert.Equal(t, session.BroadcastPhoto, res.State)
	assert.Equal(t, body, h.eng.sessions.Get(adminID).Scratch.Text)

	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Button(payloadTargetAll))
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastCard, body), h.last(t, 1).Text)
}

func TestKnownCommandInTextStep(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Text("/broadcast"))
	res := h.send(t, adminID, Text("/stats"))
	assert.Equal(t, session.BroadcastText, res.State, "/stats does not reset the draft")
	assert.Equal(t, fmt.Sprintf(h.texts.Stats, 0, 0, 0, 0), h.last(t, adminID).Text)

	res = h.send(t, adminID, Text("/CANCEL@raketa"))
	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.Cancelled, h.last(t, adminID).Text)
}

func TestUnknownCommandWithoutTextStep(t *testing.T) {
	h := newHarness(t)

	h.send(t, 1, Text("/start"))
	res := h.send(t, 1, Text("/nope"))
	assert.False(t, res.Handled)
	assert.Equal(t, session.AwaitingConsent, res.State)
	assert.Equal(t, h.texts.UnknownCommand, h.last(t, 1).Text)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/start", commandName("  /Start@raketa extra"))
	assert.Equal(t, "/x", commandName("/x"))
	assert.Empty(t, commandName("привет /start"))
	assert.Empty(t, commandName("   "))
}

func TestCancel(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Text("/newevent"))
	h.send(t, adminID, Text("Лекция"))
	res := h.send(t, adminID, Text("/cancel"))

	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.Cancelled, h.last(t, adminID).Text)
	assert.Zero(t, h.eng.sessions.Len())
}

func TestMenu_ListsEvents(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	first := h.event(t, "Лекция", nil)
	second := h.event(t, "Поход", nil)

	h.send(t, 1, Text("/menu"))
	msg := h.last(t, 1)
	assert.Equal(t, h.texts.ChooseEvent, msg.Text)
	assert.ElementsMatch(t,
		[]string{withID(prefixViewEvent, first.ID), withID(prefixViewEvent, second.ID)},
		payloads(msg.Buttons))
}

func TestViewEvent_PhotoCard(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	photo := "mxc://example.org/photo"
	ev := h.event(t, "Лекция", &photo)

	h.send(t, 1, Button(withID(prefixViewEvent, ev.ID)))
	msg := h.last(t, 1)
	assert.Equal(t, notify.KindPhoto, msg.Kind)
	assert.Equal(t, photo, msg.PhotoRef)
	assert.Equal(t, fmt.Sprintf(h.texts.EventCard, ev.Title, ev.Description), msg.Text)
	assert.Equal(t, []string{withID(prefixApply, ev.ID)}, payloads(msg.Buttons))
}

func TestApplyEvent_Twice(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	ev := h.event(t, "Лекция", nil)

	h.send(t, 1, Button(withID(prefixApply, ev.ID)))
	assert.Equal(t, h.texts.Applied, h.last(t, 1).Text)

	h.send(t, 1, Button(withID(prefixApply, ev.ID)))
	assert.Equal(t, h.texts.AlreadyAppliedEvent, h.last(t, 1).Text)

	notices := h.gw.To(adminID)
	require.Len(t, notices, 1, "admins hear about the first application only")
	assert.Contains(t, notices[0].Text, "Лекция")
	assert.Contains(t, notices[0].Text, "+79001234567")
}

func TestApplyEvent_Deleted(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")

	h.send(t, 1, Button(withID(prefixApply, 999)))
	assert.Equal(t, h.texts.EventNotFound, h.last(t, 1).Text)
}

func TestApplyAnnouncement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.member(t, 1, "+79001234567")

	h.send(t, 1, Button(payloadAnnouncementApply))
	assert.Equal(t, h.texts.AnnouncementNotReady, h.last(t, 1).Text)

	_, err := h.store.UpsertAnnouncement(ctx, store.AnnouncementPatch{Title: store.Set("Ракета")})
	require.NoError(t, err)

	h.send(t, 1, Text("/join"))
	assert.Equal(t, []string{payloadAnnouncementApply}, payloads(h.last(t, 1).Buttons))

	h.send(t, 1, Button(payloadAnnouncementApply))
	assert.Equal(t, h.texts.Applied, h.last(t, 1).Text)

	h.send(t, 1, Button(payloadAnnouncementApply))
	assert.Equal(t, h.texts.AlreadyAppliedAnnouncement, h.last(t, 1).Text)
}

func TestNewEvent_BroadcastToAll(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	h.member(t, 2, "+79001234568")

	h.send(t, adminID, Text("/newevent"))
	h.send(t, adminID, Text("Лекция"))
	h.send(t, adminID, Text("Про ракеты"))
	res := h.send(t, adminID, Attachment("mxc://example.org/photo"))
	require.Equal(t, session.TargetSelection, res.State)

	prompt := h.last(t, adminID)
	assert.Equal(t, h.texts.TargetPrompt, prompt.Text)
	assert.Equal(t, []string{payloadTargetAll, payloadTargetAnnouncement, payloadTargetCancel}, payloads(prompt.Buttons))

	res = h.send(t, adminID, Button(payloadTargetAll))
	assert.Equal(t, session.Idle, res.State)

	events, err := h.store.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	for _, id := range []int64{1, 2} {
		msg := h.last(t, id)
		assert.Equal(t, notify.KindPhoto, msg.Kind)
		assert.Equal(t, fmt.Sprintf(h.texts.EventCard, "Лекция", "Про ракеты"), msg.Text)
		assert.Equal(t, []string{withID(prefixApply, events[0].ID)}, payloads(msg.Buttons))
	}
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastReport, 2, 2, 0), h.last(t, adminID).Text)
}

func TestNewEvent_SkipKeywordFolding(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Text("/newevent"))
	h.send(t, adminID, Text("Лекция"))
	h.send(t, adminID, Text("Про ракеты"))

	res := h.send(t, adminID, Text("маленький текст"))
	assert.Equal(t, session.EventPhoto, res.State, "free text is not a skip")

	res = h.send(t, adminID, Text("  ПРОПУСТИТЬ "))
	assert.Equal(t, session.TargetSelection, res.State)

	events, err := h.store.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].PhotoRef)
}

func TestBroadcast_FailureIsolated(t *testing.T) {
	h := newHarness(t, 2)
	h.member(t, 1, "+79001234567")
	h.member(t, 2, "+79001234568")
	h.member(t, 3, "+79001234569")

	h.send(t, adminID, Text("/broadcast"))
	h.send(t, adminID, Text("Завтра встреча"))
	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Button(payloadTargetAll))

	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastCard, "Завтра встреча"), h.last(t, 1).Text)
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastCard, "Завтра встреча"), h.last(t, 3).Text)
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastReport, 2, 3, 1), h.last(t, adminID).Text)
}

func TestBroadcast_NoRecipients(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Text("/broadcast"))
	h.send(t, adminID, Text("Завтра встреча"))
	h.send(t, adminID, Button(payloadSkip))
	res := h.send(t, adminID, Button(payloadTargetAnnouncement))

	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.NoRecipients, h.last(t, adminID).Text)
}

func TestTargetCancel(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")

	h.send(t, adminID, Text("/broadcast"))
	h.send(t, adminID, Text("Завтра встреча"))
	h.send(t, adminID, Button(payloadSkip))
	res := h.send(t, adminID, Button(payloadTargetCancel))

	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, h.texts.BroadcastCancelled, h.last(t, adminID).Text)
	assert.Empty(t, h.gw.To(1))
}

func TestAnnouncement_CreateThenEditDescriptionOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.send(t, adminID, Text("/announcement"))
	require.Equal(t, session.AnnouncementTitle, res.State)
	h.send(t, adminID, Text("Ракета"))
	h.send(t, adminID, Text("Клуб предпринимателей"))
	res = h.send(t, adminID, Attachment("mxc://example.org/rocket"))
	require.Equal(t, session.TargetSelection, res.State)
	h.send(t, adminID, Button(payloadTargetCancel))

	res = h.send(t, adminID, Text("/announcement"))
	require.Equal(t, session.AnnouncementEditTitle, res.State)
	h.send(t, adminID, Text("Пропустить"))
	h.send(t, adminID, Text("Новое описание"))
	res = h.send(t, adminID, Button(payloadSkip))
	require.Equal(t, session.TargetSelection, res.State)

	a, err := h.store.GetAnnouncement(ctx)
	require.NoError(t, err)
	require.NotNil(t, a.Title)
	require.NotNil(t, a.Description)
	require.NotNil(t, a.PhotoRef)
	assert.Equal(t, "Ракета", *a.Title)
	assert.Equal(t, "Новое описание", *a.Description)
	assert.Equal(t, "mxc://example.org/rocket", *a.PhotoRef)
}

func TestAnnouncement_ClearPhoto(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	photo := "mxc://example.org/rocket"
	_, err := h.store.UpsertAnnouncement(ctx, store.AnnouncementPatch{
		Title:    store.Set("Ракета"),
		PhotoRef: store.Set(photo),
	})
	require.NoError(t, err)

	h.send(t, adminID, Text("/announcement"))
	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Text("удалить"))

	a, err := h.store.GetAnnouncement(ctx)
	require.NoError(t, err)
	assert.Nil(t, a.PhotoRef)
	assert.Equal(t, "Ракета", *a.Title)
}

func TestAnnouncement_BroadcastToApplicants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.member(t, 1, "+79001234567")
	h.member(t, 2, "+79001234568")

	_, err := h.store.UpsertAnnouncement(ctx, store.AnnouncementPatch{Title: store.Set("Ракета")})
	require.NoError(t, err)
	_, _, err = h.store.InsertApplication(ctx, 1, store.AnnouncementTarget())
	require.NoError(t, err)

	h.send(t, adminID, Text("/announcement"))
	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Text("Старт сезона"))
	h.send(t, adminID, Button(payloadSkip))
	h.send(t, adminID, Button(payloadTargetAnnouncement))

	msg := h.last(t, 1)
	assert.Contains(t, msg.Text, "Старт сезона")
	assert.Equal(t, []string{payloadAnnouncementApply}, payloads(msg.Buttons))
	assert.Empty(t, h.gw.To(2))
}

func TestEventBroadcast_ToEventApplicants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.member(t, 1, "+79001234567")
	h.member(t, 2, "+79001234568")
	ev := h.event(t, "Лекция", nil)
	_, _, err := h.store.InsertApplication(ctx, 1, store.EventTarget(ev.ID))
	require.NoError(t, err)

	res := h.send(t, adminID, Button(withID(prefixEventBroadcast, ev.ID)))
	require.Equal(t, session.EventBroadcastText, res.State)
	h.send(t, adminID, Text("Встречаемся в 19:00"))
	res = h.send(t, adminID, Button(payloadSkip))
	require.Equal(t, session.TargetSelection, res.State)
	assert.Contains(t, payloads(h.last(t, adminID).Buttons), payloadTargetEvent)

	h.send(t, adminID, Button(payloadTargetEvent))

	assert.Equal(t, fmt.Sprintf(h.texts.EventBroadcastCard, "Лекция", "Встречаемся в 19:00"), h.last(t, 1).Text)
	assert.Empty(t, h.gw.To(2))
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastReport, 1, 1, 0), h.last(t, adminID).Text)
}

func TestEventTarget_RejectedForOtherDrafts(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Text("/broadcast"))
	h.send(t, adminID, Text("Завтра встреча"))
	h.send(t, adminID, Button(payloadSkip))

	res := h.send(t, adminID, Button(payloadTargetEvent))
	assert.False(t, res.Handled)
	assert.Equal(t, session.TargetSelection, res.State)
}

func TestResendEvent(t *testing.T) {
	h := newHarness(t)
	h.member(t, 1, "+79001234567")
	ev := h.event(t, "Лекция", nil)

	res := h.send(t, adminID, Button(withID(prefixEventResend, ev.ID)))
	assert.Equal(t, session.Idle, res.State)
	assert.Equal(t, fmt.Sprintf(h.texts.ResendCard, ev.Title, ev.Description), h.last(t, 1).Text)
	assert.Equal(t, fmt.Sprintf(h.texts.BroadcastReport, 1, 1, 0), h.last(t, adminID).Text)
}

func TestEventEdit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	photo := "mxc://example.org/photo"
	ev := h.event(t, "Лекция", &photo)

	res := h.send(t, adminID, Button(withID(prefixEventEdit, ev.ID)))
	require.Equal(t, session.EventEditTitle, res.State)

	res = h.send(t, adminID, Text("Удалить"))
	assert.Equal(t, session.EventEditTitle, res.State, "title cannot be cleared")
	assert.Equal(t, h.texts.FieldRequired, h.last(t, adminID).Text)

	h.send(t, adminID, Text("Большая лекция"))
	h.send(t, adminID, Button(payloadSkip))
	res = h.send(t, adminID, Text("удалить"))
	assert.Equal(t, session.Idle, res.State)
	done := h.tail(t, adminID, 2)
	assert.Equal(t, fmt.Sprintf(h.texts.EventUpdated, "Большая лекция"), done[0].Text)
	assert.Equal(t, h.texts.AdminPanel, done[1].Text)

	got, err := h.store.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Большая лекция", got.Title)
	assert.Equal(t, ev.Description, got.Description)
	assert.Nil(t, got.PhotoRef)
}

func TestDeleteEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.member(t, 1, "+79001234567")
	ev := h.event(t, "Лекция", nil)
	_, _, err := h.store.InsertApplication(ctx, 1, store.EventTarget(ev.ID))
	require.NoError(t, err)

	t.Run("cancel keeps the event", func(t *testing.T) {
		res := h.send(t, adminID, Button(withID(prefixEventDelete, ev.ID)))
		require.Equal(t, session.DeleteConfirmation, res.State)

		res = h.send(t, adminID, Button(payloadDeleteCancel))
		assert.Equal(t, session.Idle, res.State)
		done := h.tail(t, adminID, 2)
		assert.Equal(t, h.texts.DeleteCancelled, done[0].Text)
		assert.Equal(t, fmt.Sprintf(h.texts.Stats, 1, 1, 1, 0), done[1].Text)
		assert.Equal(t, []string{payloadExportMembers, payloadExportApplications, payloadStatsEvents}, payloads(done[1].Buttons))

		_, err := h.store.GetEvent(ctx, ev.ID)
		assert.NoError(t, err)
	})

	t.Run("confirm removes event and applications", func(t *testing.T) {
		h.send(t, adminID, Button(withID(prefixEventDelete, ev.ID)))
		res := h.send(t, adminID, Button(payloadDeleteConfirm))
		assert.Equal(t, session.Idle, res.State)
		done := h.tail(t, adminID, 2)
		assert.Equal(t, h.texts.EventDeleted, done[0].Text)
		assert.Equal(t, fmt.Sprintf(h.texts.Stats, 1, 0, 0, 0), done[1].Text)

		_, err := h.store.GetEvent(ctx, ev.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		apps, err := h.store.ListApplications(ctx, store.ApplicationFilter{})
		require.NoError(t, err)
		assert.Empty(t, apps)
	})

	t.Run("already gone", func(t *testing.T) {
		h.send(t, adminID, Button(withID(prefixEventDelete, ev.ID)))
		assert.Equal(t, h.texts.EventNotFound, h.last(t, adminID).Text)
		assert.Equal(t, session.Idle, h.eng.sessions.Get(adminID).State)
	})
}

func TestStatsAndExports(t *testing.T) {
	h := newHarness(t)

	h.send(t, adminID, Button(payloadExportMembers))
	assert.Equal(t, h.texts.ExportEmpty, h.last(t, adminID).Text)

	h.member(t, 1, "+79001234567")
	ev := h.event(t, "Большая лекция", nil)
	_, _, err := h.store.InsertApplication(context.Background(), 1, store.EventTarget(ev.ID))
	require.NoError(t, err)

	h.send(t, adminID, Text("/stats"))
	stats := h.last(t, adminID)
	assert.Equal(t, fmt.Sprintf(h.texts.Stats, 1, 1, 1, 0), stats.Text)
	assert.Equal(t, []string{payloadExportMembers, payloadExportApplications, payloadStatsEvents}, payloads(stats.Buttons))

	h.send(t, adminID, Button(payloadExportMembers))
	doc := h.last(t, adminID)
	assert.Equal(t, notify.KindDocument, doc.Kind)
	assert.Equal(t, "users.xlsx", doc.Filename)
	assert.NotEmpty(t, doc.Data)

	h.send(t, adminID, Button(withID(prefixEventExport, ev.ID)))
	doc = h.last(t, adminID)
	assert.Equal(t, notify.KindDocument, doc.Kind)
	assert.Equal(t, "Большая_лекция_applications.xlsx", doc.Filename)
	assert.Equal(t, fmt.Sprintf(h.texts.ExportEventCaption, ev.Title), doc.Text)

	h.send(t, adminID, Button(payloadStatsEvents))
	assert.Equal(t, []string{withID(prefixAdminEvent, ev.ID)}, payloads(h.last(t, adminID).Buttons))

	h.send(t, adminID, Button(withID(prefixAdminEvent, ev.ID)))
	assert.Len(t, h.last(t, adminID).Buttons, 5)
}

func TestIsAdmin(t *testing.T) {
	eng := New(Deps{Admins: []int64{5, 3, 5, 1}}, nil)
	assert.True(t, eng.IsAdmin(1))
	assert.True(t, eng.IsAdmin(5))
	assert.False(t, eng.IsAdmin(2))
	assert.Equal(t, []int64{1, 3, 5}, eng.admins)
}
