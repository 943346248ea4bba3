package wisdom

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kops88/NowGame/internal/id"
)

// Service owns the in-memory wisdom aggregate and coordinates every write
// to it. All three collections live behind one mutex, and every persisted
// mutation writes the full aggregate snapshot before observers are told.
type Service struct {
	mu          sync.Mutex
	store       AggregateStore
	clock       func() time.Time
	idGenerator func() (string, error)
	agg         Aggregate
	watchers    []func()
}

// NewService creates a wisdom service with default dependencies. Call Load
// before handing the service out; the migration barrier must have completed
// first.
func NewService(store AggregateStore) *Service {
	return &Service{
		store:       store,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// Load populates the in-memory aggregate from storage.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg = s.store.Load(ctx)
}

// Watch registers an observer invoked after every mutation. Observers run
// after the mutation has been persisted (or, for memory-only task nudges,
// after the in-memory change), never before.
func (s *Service) Watch(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Counts reports the size of each collection.
func (s *Service) Counts() (skills, points, tasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agg.Skills), len(s.agg.SkillPoints), len(s.agg.Tasks)
}

// save writes the full aggregate while the caller holds the mutex, which
// also serializes in-flight saves against later mutations.
func (s *Service) save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("wisdom store is not configured")
	}
	return s.store.Save(ctx, s.agg)
}

// watcherList snapshots the observer list; callers notify after unlocking
// so an observer may call back into the service.
func (s *Service) watcherList() []func() {
	return slices.Clone(s.watchers)
}

func notifyAll(watchers []func()) {
	for _, fn := range watchers {
		fn()
	}
}
