// ABOUTME: Audience segments for broadcasts and their resolution to member identities
// ABOUTME: Recipients are resolved once, before any message is sent

package broadcast

import (
	"context"
	"fmt"

	"github.com/2389/raketa/internal/store"
)

// Segment names a group of members.
type Segment string

const (
	SegmentAll                    Segment = "all"
	SegmentAnnouncementApplicants Segment = "announcement_applicants"
	SegmentEventApplicants        Segment = "event_applicants"
)

// Audience is a segment plus the event it refers to, when relevant.
type Audience struct {
	Segment Segment
	EventID int64 // only for SegmentEventApplicants
}

// Filter translates the audience into a store query.
func (a Audience) Filter() (store.MemberFilter, error) {
	switch a.Segment {
	case SegmentAll:
		return store.MemberFilter{}, nil
	case SegmentAnnouncementApplicants:
		return store.MemberFilter{AnnouncementApplicants: true}, nil
	case SegmentEventApplicants:
		if a.EventID == 0 {
			return store.MemberFilter{}, fmt.Errorf("segment %s requires an event", a.Segment)
		}
		id := a.EventID
		return store.MemberFilter{EventApplicants: &id}, nil
	default:
		return store.MemberFilter{}, fmt.Errorf("unknown segment %q", a.Segment)
	}
}

// Resolve returns the identities in the audience.
func Resolve(ctx context.Context, s store.Store, a Audience) ([]int64, error) {
	filter, err := a.Filter()
	if err != nil {
		return nil, err
	}
	members, err := s.ListMembers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}
