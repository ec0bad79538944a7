// Package application periodically snapshots current member statuses so the
// event log always holds a recent baseline for reconstruction.
package application

import (
	"context"
	"errors"
	"log"
	"time"

	"presence-ledger/internal/observability/metrics"
	presence "presence-ledger/internal/presence/domain"
)

// ErrNilLister is returned when the sampler is built without a member lister.
var ErrNilLister = errors.New("sampler: nil member lister")

// ErrNilSink is returned when the sampler is built without a batch sink.
var ErrNilSink = errors.New("sampler: nil batch sink")

// Member is a scope member with its current status.
type Member struct {
	SubjectID   string
	DisplayName string
	Status      presence.Status
}

// MemberLister enumerates scopes and their members from the upstream gateway.
type MemberLister interface {
	Scopes(ctx context.Context) ([]string, error)
	ListMembers(ctx context.Context, scopeID string) ([]Member, error)
}

// BatchSink appends sampled events in one batch.
type BatchSink interface {
	AppendBatch(ctx context.Context, events []presence.StatusEvent) error
}

// Sampler records one status row per member on a fixed interval.
type Sampler struct {
	lister   MemberLister
	sink     BatchSink
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewSampler constructs a sampler. A non-positive interval defaults to one
// minute.
func NewSampler(lister MemberLister, sink BatchSink, interval time.Duration, logger *log.Logger) (*Sampler, error) {
	if lister == nil {
		return nil, ErrNilLister
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sampler{
		lister:   lister,
		sink:     sink,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run samples on the configured interval until ctx cancellation.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Printf("sampler: started (interval=%s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("sampler: stopped")
			return
		case <-ticker.C:
			count, err := s.SnapshotOnce(ctx)
			if err != nil {
				s.logger.Printf("sampler: sweep error: %v", err)
				continue
			}
			metrics.RecordSamplerSweep(count)
		}
	}
}

// SnapshotOnce samples every member of every scope immediately and reports how
// many rows were appended. Scopes that fail to list are skipped so one bad
// scope does not starve the rest.
func (s *Sampler) SnapshotOnce(ctx context.Context) (int, error) {
	scopes, err := s.lister.Scopes(ctx)
	if err != nil {
		return 0, err
	}

	at := s.now()
	total := 0
	for _, scopeID := range scopes {
		members, err := s.lister.ListMembers(ctx, scopeID)
		if err != nil {
			s.logger.Printf("sampler: list members (scope=%s): %v", scopeID, err)
			continue
		}
		if len(members) == 0 {
			continue
		}

		events := make([]presence.StatusEvent, 0, len(members))
		for _, member := range members {
			status := member.Status
			if !status.Valid() {
				status = presence.DefaultStatus
			}
			events = append(events, presence.StatusEvent{
				ScopeID:     scopeID,
				SubjectID:   member.SubjectID,
				DisplayName: member.DisplayName,
				Status:      status,
				At:          at,
			})
		}
		if err := s.sink.AppendBatch(ctx, events); err != nil {
			s.logger.Printf("sampler: append batch (scope=%s): %v", scopeID, err)
			continue
		}
		total += len(events)
	}
	return total, nil
}
