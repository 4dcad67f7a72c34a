// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu           sync.RWMutex
	members      map[int64]*Member
	events       map[int64]*Event
	announcement *Announcement
	applications []*Application
	accounts     map[int64]*Account
	accountIndex map[string]int64 // matrix user ID -> identity
	nextID       int64

	// Err, when set, is returned by every operation. Tests use it to
	// simulate a broken database.
	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		members:      make(map[int64]*Member),
		events:       make(map[int64]*Event),
		accounts:     make(map[int64]*Account),
		accountIndex: make(map[string]int64),
	}
}

// SetErr makes every subsequent call fail with err (nil restores normal behaviour).
func (m *MockStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockStore) id() int64 {
	m.nextID++
	return m.nextID
}

// UpsertMember stores or updates a member.
func (m *MockStore) UpsertMember(ctx context.Context, member *Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	for id, other := range m.members {
		if id != member.ID && other.Phone == member.Phone {
			return ErrDuplicatePhone
		}
	}

	cp := *member
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cur, ok := m.members[member.ID]; ok {
		cp.CreatedAt = cur.CreatedAt
		if cp.Handle == nil {
			cp.Handle = cur.Handle
		}
		if cp.Gender == nil {
			cp.Gender = cur.Gender
		}
		if cp.BirthDate == nil {
			cp.BirthDate = cur.BirthDate
		}
		cp.HasChildren = cp.HasChildren || cur.HasChildren
	}
	m.members[member.ID] = &cp
	return nil
}

// GetMember retrieves a member by identity.
func (m *MockStore) GetMember(ctx context.Context, id int64) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	member, ok := m.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *member
	return &cp, nil
}

// PhoneOwner returns the identity owning the phone.
func (m *MockStore) PhoneOwner(ctx context.Context, phone string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}

	for id, member := range m.members {
		if member.Phone == phone {
			return id, nil
		}
	}
	return 0, ErrNotFound
}

// ListMembers returns members matching the filter, ordered by identity.
func (m *MockStore) ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*Member
	for _, member := range m.members {
		if filter.AnnouncementApplicants && !m.hasApplication(member.ID, AnnouncementTarget()) {
			continue
		}
		if filter.EventApplicants != nil && !m.hasApplication(member.ID, EventTarget(*filter.EventApplicants)) {
			continue
		}
		cp := *member
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockStore) hasApplication(memberID int64, target ApplicationTarget) bool {
	for _, a := range m.applications {
		if a.MemberID != memberID {
			continue
		}
		if target.Announcement && a.Announcement {
			return true
		}
		if !target.Announcement && a.EventID != nil && *a.EventID == target.EventID {
			return true
		}
	}
	return false
}

// CreateEvent stores a new event.
func (m *MockStore) CreateEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	e.ID = m.id()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

// GetEvent retrieves an event by ID.
func (m *MockStore) GetEvent(ctx context.Context, id int64) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListEvents returns events newest first.
func (m *MockStore) ListEvents(ctx context.Context) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	result := make([]*Event, 0, len(m.events))
	for _, e := range m.events {
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// UpdateEvent applies a partial update.
func (m *MockStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if patch.Title.IsClear() || patch.Description.IsClear() {
		return nil, ErrRequiredField
	}

	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if v, ok := patch.Title.Value(); ok {
		e.Title = v
	}
	if v, ok := patch.Description.Value(); ok {
		e.Description = v
	}
	e.PhotoRef = patch.PhotoRef.Apply(e.PhotoRef)
	cp := *e
	return &cp, nil
}

// DeleteEvent removes an event and its applications.
func (m *MockStore) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}

	if _, ok := m.events[id]; !ok {
		return false, nil
	}
	delete(m.events, id)

	kept := m.applications[:0]
	for _, a := range m.applications {
		if a.EventID != nil && *a.EventID == id {
			continue
		}
		kept = append(kept, a)
	}
	m.applications = kept
	return true, nil
}

// GetAnnouncement returns the announcement singleton.
func (m *MockStore) GetAnnouncement(ctx context.Context) (*Announcement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	if m.announcement == nil {
		return nil, ErrNotFound
	}
	cp := *m.announcement
	return &cp, nil
}

// UpsertAnnouncement applies a partial update to the singleton.
func (m *MockStore) UpsertAnnouncement(ctx context.Context, patch AnnouncementPatch) (*Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	cur := m.announcement
	if cur == nil {
		cur = &Announcement{}
	}
	next := &Announcement{
		Title:       patch.Title.Apply(cur.Title),
		Description: patch.Description.Apply(cur.Description),
		PhotoRef:    patch.PhotoRef.Apply(cur.PhotoRef),
		UpdatedAt:   time.Now(),
	}
	m.announcement = next
	cp := *next
	return &cp, nil
}

// InsertApplication records an application unless one already exists.
func (m *MockStore) InsertApplication(ctx context.Context, memberID int64, target ApplicationTarget) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}

	if _, ok := m.members[memberID]; !ok {
		return 0, false, ErrNotFound
	}
	if !target.Announcement {
		if _, ok := m.events[target.EventID]; !ok {
			return 0, false, ErrNotFound
		}
	}
	if m.hasApplication(memberID, target) {
		return 0, false, nil
	}

	a := &Application{
		ID:           m.id(),
		MemberID:     memberID,
		Announcement: target.Announcement,
		AppliedAt:    time.Now(),
	}
	if !target.Announcement {
		eventID := target.EventID
		a.EventID = &eventID
	}
	m.applications = append(m.applications, a)
	return a.ID, true, nil
}

// ListApplications returns joined application rows in insertion order.
func (m *MockStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*ApplicationRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*ApplicationRow
	for _, a := range m.applications {
		if filter.EventID != nil && (a.EventID == nil || *a.EventID != *filter.EventID) {
			continue
		}
		member := m.members[a.MemberID]
		if member == nil {
			continue
		}
		row := &ApplicationRow{
			ID:           a.ID,
			MemberID:     a.MemberID,
			FullName:     member.FullName,
			Phone:        member.Phone,
			Handle:       member.Handle,
			Gender:       member.Gender,
			BirthDate:    member.BirthDate,
			Announcement: a.Announcement,
			AppliedAt:    a.AppliedAt,
		}
		if a.EventID != nil {
			if e, ok := m.events[*a.EventID]; ok {
				title := e.Title
				row.EventTitle = &title
			}
		}
		result = append(result, row)
	}
	return result, nil
}

// Stats returns aggregate counters.
func (m *MockStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	st := &Stats{
		Members:      len(m.members),
		Events:       len(m.events),
		Applications: len(m.applications),
	}
	for _, a := range m.applications {
		if a.Announcement {
			st.AnnouncementApplications++
		}
	}
	return st, nil
}

// EnsureAccount returns or allocates the identity for a Matrix user.
func (m *MockStore) EnsureAccount(ctx context.Context, matrixUserID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}

	if id, ok := m.accountIndex[matrixUserID]; ok {
		return id, nil
	}
	id := m.id()
	m.accounts[id] = &Account{Identity: id, MatrixUserID: matrixUserID}
	m.accountIndex[matrixUserID] = id
	return id, nil
}

// GetAccount retrieves an account by identity.
func (m *MockStore) GetAccount(ctx context.Context, identity int64) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	a, ok := m.accounts[identity]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// SetAccountRoom records the direct room for an account.
func (m *MockStore) SetAccountRoom(ctx context.Context, identity int64, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	a, ok := m.accounts[identity]
	if !ok {
		return ErrNotFound
	}
	a.RoomID = &roomID
	return nil
}

// Close is a no-op for the mock.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements Store
var _ Store = (*MockStore)(nil)
