// ABOUTME: In-memory conversation sessions keyed by identity
// ABOUTME: Holds the current dialog state and the typed scratch data collected so far

package session

import (
	"sync"

	"github.com/2389/raketa/internal/store"
)

// State is the dialog step an identity is currently in.
type State string

const (
	Idle State = "idle"

	// Registration
	AwaitingConsent       State = "awaiting_consent"
	AwaitingPhone         State = "awaiting_phone"
	AwaitingName          State = "awaiting_name"
	AwaitingEventInterest State = "awaiting_event_interest"

	// New event
	EventTitle       State = "event_title"
	EventDescription State = "event_description"
	EventPhoto       State = "event_photo"

	// Announcement authoring
	AnnouncementTitle       State = "announcement_title"
	AnnouncementDescription State = "announcement_description"
	AnnouncementPhoto       State = "announcement_photo"

	AnnouncementEditTitle       State = "announcement_edit_title"
	AnnouncementEditDescription State = "announcement_edit_description"
	AnnouncementEditPhoto       State = "announcement_edit_photo"

	// Free-form broadcast
	BroadcastText  State = "broadcast_text"
	BroadcastPhoto State = "broadcast_photo"

	// Re-broadcast of an existing event
	EventBroadcastText  State = "event_broadcast_text"
	EventBroadcastPhoto State = "event_broadcast_photo"

	// Event editing
	EventEditTitle       State = "event_edit_title"
	EventEditDescription State = "event_edit_description"
	EventEditPhoto       State = "event_edit_photo"

	TargetSelection    State = "target_selection"
	DeleteConfirmation State = "delete_confirmation"
)

// Content identifies what a draft waiting in TargetSelection will send.
type Content string

const (
	ContentNone           Content = ""
	ContentEvent          Content = "event"
	ContentAnnouncement   Content = "announcement"
	ContentBroadcast      Content = "broadcast"
	ContentEventBroadcast Content = "event_broadcast"
)

// Scratch is the data collected mid-flow. Only the fields relevant to the
// current flow are populated.
type Scratch struct {
	Phone string // normalized phone awaiting the name step

	Title       string
	Description string
	Text        string
	PhotoRef    *string

	EventID int64   // event being edited, deleted or re-broadcast
	Content Content // what TargetSelection dispatches

	EventPatch        store.EventPatch
	AnnouncementPatch store.AnnouncementPatch
}

// Session is one identity's conversation state.
type Session struct {
	State   State
	Scratch Scratch
}

// Store keeps sessions for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the identity's session. Absent sessions are Idle.
func (s *Store) Get(identity int64) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	if !ok {
		return Session{State: Idle}
	}
	return *sess
}

// Update mutates the identity's session in place, creating it if needed.
// A session left Idle with empty scratch is dropped.
func (s *Store) Update(identity int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		sess = &Session{State: Idle}
	}
	fn(sess)

	if sess.State == Idle && sess.Scratch == (Scratch{}) {
		delete(s.sessions, identity)
		return
	}
	s.sessions[identity] = sess
}

// Set moves the identity to state, keeping the scratch data.
func (s *Store) Set(identity int64, state State) {
	s.Update(identity, func(sess *Session) { sess.State = state })
}

// Clear resets the identity to Idle and discards scratch data.
func (s *Store) Clear(identity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, identity)
}

// Len reports how many non-idle sessions are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
