// ABOUTME: Store interface and data types for raketa persistence
// ABOUTME: Defines members, events, the announcement singleton, applications and accounts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicatePhone is returned when a phone number already belongs to another member
var ErrDuplicatePhone = errors.New("phone already registered")

// ErrRequiredField is returned when a patch tries to clear a NOT NULL column
var ErrRequiredField = errors.New("field cannot be cleared")

// Member is a registered community member. ID is the conversation identity.
type Member struct {
	ID          int64
	FullName    string
	Phone       string  // normalized, unique
	Handle      *string // transport handle, e.g. Matrix user ID
	Gender      *string // "male" or "female"
	BirthDate   *string
	HasChildren bool
	CreatedAt   time.Time
}

// Event is an admin-published community event
type Event struct {
	ID          int64
	Title       string
	Description string
	PhotoRef    *string
	CreatedAt   time.Time
}

// Announcement is the single "join the rocket" record. Every field is nullable.
type Announcement struct {
	Title       *string
	Description *string
	PhotoRef    *string
	UpdatedAt   time.Time
}

// Ready reports whether the announcement has enough content to show to members.
func (a *Announcement) Ready() bool {
	return a != nil && a.Title != nil && *a.Title != ""
}

// ApplicationTarget is either an event or the announcement singleton, never both.
type ApplicationTarget struct {
	EventID      int64
	Announcement bool
}

// EventTarget targets a specific event.
func EventTarget(eventID int64) ApplicationTarget {
	return ApplicationTarget{EventID: eventID}
}

// AnnouncementTarget targets the announcement singleton.
func AnnouncementTarget() ApplicationTarget {
	return ApplicationTarget{Announcement: true}
}

// Application is one recorded sign-up.
type Application struct {
	ID           int64
	MemberID     int64
	EventID      *int64
	Announcement bool
	AppliedAt    time.Time
}

// ApplicationRow is an application joined with its member and event, for exports.
type ApplicationRow struct {
	ID           int64
	MemberID     int64
	FullName     string
	Phone        string
	Handle       *string
	Gender       *string
	BirthDate    *string
	EventTitle   *string
	Announcement bool
	AppliedAt    time.Time
}

// Account maps a transport user to a numeric identity.
type Account struct {
	Identity     int64
	MatrixUserID string
	RoomID       *string
}

// MemberFilter narrows ListMembers. The zero value selects every member.
type MemberFilter struct {
	EventApplicants        *int64 // members who applied to this event
	AnnouncementApplicants bool   // members who applied to the announcement
}

// ApplicationFilter narrows ListApplications. The zero value selects everything.
type ApplicationFilter struct {
	EventID *int64
}

// Stats holds the counters shown on the admin stats screen.
type Stats struct {
	Members                  int
	Events                   int
	Applications             int
	AnnouncementApplications int
}

// EventPatch describes a partial event update.
type EventPatch struct {
	Title       Optional[string]
	Description Optional[string]
	PhotoRef    Optional[string]
}

// AnnouncementPatch describes a partial announcement update.
type AnnouncementPatch struct {
	Title       Optional[string]
	Description Optional[string]
	PhotoRef    Optional[string]
}

// Store defines the persistence operations used by the bot.
type Store interface {
	// Members
	UpsertMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (*Member, error)
	PhoneOwner(ctx context.Context, phone string) (int64, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error)

	// Events
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id int64) (*Event, error)
	ListEvents(ctx context.Context) ([]*Event, error)
	UpdateEvent(ctx context.Context, id int64, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, id int64) (bool, error)

	// Announcement singleton
	GetAnnouncement(ctx context.Context) (*Announcement, error)
	UpsertAnnouncement(ctx context.Context, patch AnnouncementPatch) (*Announcement, error)

	// Applications
	InsertApplication(ctx context.Context, memberID int64, target ApplicationTarget) (int64, bool, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*ApplicationRow, error)
	Stats(ctx context.Context) (*Stats, error)

	// Transport accounts
	EnsureAccount(ctx context.Context, matrixUserID string) (int64, error)
	GetAccount(ctx context.Context, identity int64) (*Account, error)
	SetAccountRoom(ctx context.Context, identity int64, roomID string) error

	// Close releases any resources held by the store
	Close() error
}
