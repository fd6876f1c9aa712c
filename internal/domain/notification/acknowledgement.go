// internal/domain/notification/acknowledgement.go
package notification

import (
	"sort"
	"time"
)

// AcknowledgementSet records which alert ids the user has marked as viewed.
// It never refers back to the records themselves, so an id whose record was
// deleted simply stays inert.
type AcknowledgementSet struct {
	LoanIDs       map[int64]struct{}
	CampaignIDs   map[int64]struct{}
	LastChangedAt time.Time
}

func NewAcknowledgementSet() *AcknowledgementSet {
	return &AcknowledgementSet{
		LoanIDs:     make(map[int64]struct{}),
		CampaignIDs: make(map[int64]struct{}),
	}
}

func (s *AcknowledgementSet) ids(source Source) map[int64]struct{} {
	if source == SourceCampaign {
		return s.CampaignIDs
	}
	return s.LoanIDs
}

// IsAcknowledged lets a set be used directly as an AcknowledgementChecker.
func (s *AcknowledgementSet) IsAcknowledged(source Source, id int64) bool {
	_, ok := s.ids(source)[id]
	return ok
}

// Add reports whether the id was not already present.
func (s *AcknowledgementSet) Add(source Source, id int64) bool {
	set := s.ids(source)
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *AcknowledgementSet) Clone() *AcknowledgementSet {
	c := &AcknowledgementSet{
		LoanIDs:       make(map[int64]struct{}, len(s.LoanIDs)),
		CampaignIDs:   make(map[int64]struct{}, len(s.CampaignIDs)),
		LastChangedAt: s.LastChangedAt,
	}
	for id := range s.LoanIDs {
		c.LoanIDs[id] = struct{}{}
	}
	for id := range s.CampaignIDs {
		c.CampaignIDs[id] = struct{}{}
	}
	return c
}

// AcknowledgementRecord is the persisted shape stored under a single key.
type AcknowledgementRecord struct {
	LoanIDs       []int64   `json:"loanIds"`
	CampaignIDs   []int64   `json:"campaignIds"`
	LastChangedAt time.Time `json:"lastChangedAt"`
}

// Record flattens the set into its persisted shape with sorted ids.
func (s *AcknowledgementSet) Record() AcknowledgementRecord {
	return AcknowledgementRecord{
		LoanIDs:       sortedIDs(s.LoanIDs),
		CampaignIDs:   sortedIDs(s.CampaignIDs),
		LastChangedAt: s.LastChangedAt.UTC(),
	}
}

// Set rebuilds an AcknowledgementSet from the persisted shape.
func (r AcknowledgementRecord) Set() *AcknowledgementSet {
	s := NewAcknowledgementSet()
	for _, id := range r.LoanIDs {
		s.LoanIDs[id] = struct{}{}
	}
	for _, id := range r.CampaignIDs {
		s.CampaignIDs[id] = struct{}{}
	}
	s.LastChangedAt = r.LastChangedAt
	return s
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
