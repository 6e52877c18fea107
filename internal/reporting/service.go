package reporting

import (
	"context"
	"errors"
	"time"

	"voice-concierge/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Service derives dashboard metrics from the call record store. Records are
// small and bounded by call volume, so aggregation happens in process rather
// than in SQL.
type Service struct {
	records calls.Store

	Now func() time.Time
}

func NewService(records calls.Store) *Service {
	return &Service{records: records, Now: time.Now}
}

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if s.records == nil {
		return Summary{}, errors.New("reporting: record store not configured")
	}
	if !req.Range.From.IsZero() && !req.Range.To.IsZero() && !req.Range.To.After(req.Range.From) {
		return Summary{}, ErrInvalidRequest
	}

	rows, err := s.records.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		ByImportance: map[string]int{},
		GeneratedAt:  s.Now().UTC(),
	}
	withDuration := 0
	for _, rec := range rows {
		if !req.Range.From.IsZero() && rec.StartedAt.Before(req.Range.From) {
			continue
		}
		if !req.Range.To.IsZero() && !rec.StartedAt.Before(req.Range.To) {
			continue
		}

		out.TotalCalls++
		if rec.Terminated() {
			out.TerminatedCalls++
		} else {
			out.ActiveCalls++
		}
		if !rec.NotifiedChannels.Empty() {
			out.EscalatedCalls++
		}
		if rec.Importance != "" {
			out.ByImportance[string(rec.Importance)]++
		}
		if rec.DurationSeconds != nil {
			out.TotalDurationSeconds += *rec.DurationSeconds
			withDuration++
		}
	}
	if withDuration > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / withDuration
	}
	return out, nil
}
