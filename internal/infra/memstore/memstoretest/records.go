package memstoretest

import (
	"context"
	"sync"

	"assistance_alerts/internal/domain/assistance"
	"assistance_alerts/internal/domain/campaign"
)

// RecordSource serves fixed assistance and campaign snapshots.
type RecordSource struct {
	mu          sync.Mutex
	records     []assistance.Record
	campaigns   []campaign.Campaign
	recordsErr  error
	campaignErr error
	calls       int
}

func NewRecordSource(records []assistance.Record, campaigns []campaign.Campaign) *RecordSource {
	return &RecordSource{records: records, campaigns: campaigns}
}

func (s *RecordSource) ListAssistanceRecords(_ context.Context) ([]assistance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.recordsErr != nil {
		return nil, s.recordsErr
	}
	out := make([]assistance.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *RecordSource) ListCampaigns(_ context.Context) ([]campaign.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.campaignErr != nil {
		return nil, s.campaignErr
	}
	out := make([]campaign.Campaign, len(s.campaigns))
	copy(out, s.campaigns)
	return out, nil
}

func (s *RecordSource) SetRecords(records []assistance.Record) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

func (s *RecordSource) SetCampaigns(campaigns []campaign.Campaign) {
	s.mu.Lock()
	s.campaigns = campaigns
	s.mu.Unlock()
}

// FailRecords makes ListAssistanceRecords fail with err until reset with nil.
func (s *RecordSource) FailRecords(err error) {
	s.mu.Lock()
	s.recordsErr = err
	s.mu.Unlock()
}

func (s *RecordSource) FailCampaigns(err error) {
	s.mu.Lock()
	s.campaignErr = err
	s.mu.Unlock()
}

// RecordCalls counts ListAssistanceRecords calls.
func (s *RecordSource) RecordCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
