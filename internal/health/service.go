package health

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultResetHour is the hour-of-day boundary at which deduction clicks
// become available again.
const DefaultResetHour = 4

// Service owns the in-memory health record map and coordinates every write
// to it.
type Service struct {
	mu        sync.Mutex
	store     AggregateStore
	clock     func() time.Time
	resetHour int
	records   map[string]Record
	watchers  []func()
}

// NewService creates a health service with default dependencies. Call Load
// before handing the service out.
func NewService(store AggregateStore) *Service {
	return &Service{
		store:     store,
		clock:     time.Now,
		resetHour: DefaultResetHour,
		records:   map[string]Record{},
	}
}

// SetResetHour overrides the click reset boundary. Values outside 0..23 are
// ignored.
func (s *Service) SetResetHour(hour int) {
	if hour < 0 || hour > 23 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetHour = hour
}

// Load populates the in-memory record map from storage.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.store.Load(ctx)
}

// Watch registers an observer invoked after every persisted mutation.
func (s *Service) Watch(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// RecordFor returns the record stored for the given day, if any.
func (s *Service) RecordFor(day time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[DateKey(day)]
	if !ok {
		return Record{}, false
	}
	return cloneRecord(rec), true
}

// Days reports how many days carry a record.
func (s *Service) Days() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetBaseScore sets the day's own base score, overriding inheritance.
func (s *Service) SetBaseScore(ctx context.Context, day time.Time, score int) error {
	if score < 0 || score > maxBaseScore {
		return ErrInvalidScore
	}

	s.mu.Lock()
	key := DateKey(day)
	rec := s.records[key]
	rec.BaseScore = &score
	s.records[key] = rec
	if err := s.store.Save(ctx, s.records); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return nil
}

// Deduct records one deduction click for today. A counter accepts at most
// one click per reset window; the window rolls over at the configured hour
// of day, not at midnight.
func (s *Service) Deduct(ctx context.Context, kind DeductionKind) error {
	if !validKind(kind) {
		return ErrInvalidKind
	}

	s.mu.Lock()
	now := s.clock()
	windowStart := s.windowStart(now)
	// Clicks before the reset hour belong to the previous day's record.
	key := DateKey(windowStart)
	rec := s.records[key]

	if last, ok := rec.LastClicks[kind]; ok && !last.Before(windowStart) {
		s.mu.Unlock()
		return ErrAlreadyClicked
	}

	if rec.Deductions == nil {
		rec.Deductions = map[DeductionKind]int{}
	}
	if rec.LastClicks == nil {
		rec.LastClicks = map[DeductionKind]time.Time{}
	}
	rec.Deductions[kind]++
	rec.LastClicks[kind] = now.UTC()
	s.records[key] = rec

	if err := s.store.Save(ctx, s.records); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return nil
}

// Score computes the day's health score: the day's base score (inherited
// from the most recent prior scored day within the lookback when absent)
// minus the deduction penalties, floored at zero.
func (s *Service) Score(day time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := defaultBaseScore
	for back := 0; back <= lookbackDays; back++ {
		rec, ok := s.records[DateKey(day.AddDate(0, 0, -back))]
		if ok && rec.BaseScore != nil {
			base = *rec.BaseScore
			break
		}
	}

	score := base
	if rec, ok := s.records[DateKey(day)]; ok {
		for _, count := range rec.Deductions {
			score -= count * deductionPenalty
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// windowStart returns the beginning of the reset window containing now.
func (s *Service) windowStart(now time.Time) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), s.resetHour, 0, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}
