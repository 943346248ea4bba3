package shop

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kops88/NowGame/internal/id"
	"github.com/kops88/NowGame/internal/random"
)

const (
	// DefaultItemTTL is the lifetime of a freshly drawn item.
	DefaultItemTTL = 24 * time.Hour
	// DrawCost is the price charged through the cost gate per gacha draw.
	DrawCost = 10
)

// CostGate is the pluggable cost-check-and-debit hook that runs before a
// draw or purchase mutates state. The default gate allows everything;
// prices stay display-only until a wallet exists.
type CostGate interface {
	Charge(ctx context.Context, price int) error
}

type allowAllGate struct{}

func (allowAllGate) Charge(context.Context, int) error { return nil }

// PurchaseEffect applies the outcome of buying an item. Effects are
// dispatched by item type.
type PurchaseEffect func(ctx context.Context, item Item) error

// Service owns the in-memory shop state: the drawn item list and the gacha
// pool.
type Service struct {
	mu          sync.Mutex
	store       AggregateStore
	clock       func() time.Time
	idGenerator func() (string, error)
	rng         *rand.Rand
	gate        CostGate
	itemTTL     time.Duration
	effects     map[ItemType]PurchaseEffect
	items       []Item
	pool        []PoolEntry
	watchers    []func()
}

// NewService creates a shop service with default dependencies. Call Load
// before handing the service out.
func NewService(store AggregateStore) *Service {
	seed, err := random.NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return &Service{
		store:       store,
		clock:       time.Now,
		idGenerator: id.NewID,
		rng:         rand.New(rand.NewSource(seed)),
		gate:        allowAllGate{},
		itemTTL:     DefaultItemTTL,
		effects:     map[ItemType]PurchaseEffect{},
	}
}

// SetItemTTL overrides the lifetime applied to freshly drawn items.
func (s *Service) SetItemTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemTTL = ttl
}

// SetCostGate replaces the cost gate.
func (s *Service) SetCostGate(gate CostGate) {
	if gate == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = gate
}

// RegisterEffect installs the purchase effect for an item type.
func (s *Service) RegisterEffect(itemType ItemType, effect PurchaseEffect) {
	if effect == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects[itemType] = effect
}

// Load populates the in-memory state from storage.
func (s *Service) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := s.store.Load(ctx)
	s.items = agg.Items
	s.pool = agg.Pool
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

// Items returns the live item list. Expired items are evicted on read; when
// the read shrinks the list the filtered snapshot is persisted in the
// background so the read itself never blocks on the write.
func (s *Service) Items(ctx context.Context) []Item {
	if err := ctx.Err(); err != nil {
		return nil
	}

	s.mu.Lock()
	now := s.clock()
	live := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if !item.Expired(now) {
			live = append(live, item)
		}
	}
	evicted := len(live) != len(s.items)
	if evicted {
		s.items = live
	}
	out := slices.Clone(live)
	s.mu.Unlock()

	if evicted {
		go s.persistEviction()
	}
	return out
}

// persistEviction writes the filtered snapshot after a lazy eviction. A
// failure here only delays the cleanup until the next mutation, so it is
// logged rather than surfaced.
func (s *Service) persistEviction() {
	s.mu.Lock()
	err := s.save(context.Background())
	s.mu.Unlock()
	if err != nil {
		log.Printf("shop: persist eviction: %v", err)
	}
}

// PerformGacha draws one item from the pool. An exhausted pool yields a nil
// item and no error: no-result is a normal outcome, not a failure. The cost
// gate runs before any state changes.
func (s *Service) PerformGacha(ctx context.Context) (*Item, error) {
	s.mu.Lock()

	// Eligibility changes between draws, so the index list is rebuilt
	// fresh every time.
	eligible := make([]int, 0, len(s.pool))
	for i, entry := range s.pool {
		if entry.RemainingCount > 0 {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		s.mu.Unlock()
		return nil, nil
	}

	if err := s.gate.Charge(ctx, DrawCost); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("charge draw: %w", err)
	}

	entry := &s.pool[eligible[s.rng.Intn(len(eligible))]]

	itemID, err := s.idGenerator()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("generate item id: %w", err)
	}

	now := s.clock().UTC()
	item := Item{
		ID:            itemID,
		Name:          entry.Name,
		Type:          ItemTypeVoucher,
		Price:         entry.Price,
		CreatedAt:     now,
		ExpireAt:      now.Add(s.itemTTL),
		TotalDuration: s.itemTTL,
		SkillID:       entry.SkillID,
		SkillName:     entry.SkillName,
	}

	entry.RemainingCount--
	s.items = append(s.items, item)

	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return &item, err
	}
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return &item, nil
}

// Purchase buys an item by id: the cost gate runs, the purchase effect for
// the item's type dispatches, and the item is removed and the removal
// persisted. Purchasing an already expired item removes it and reports
// ErrItemExpired.
func (s *Service) Purchase(ctx context.Context, itemID string) error {
	s.mu.Lock()

	idx := -1
	for i, item := range s.items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}

	item := s.items[idx]
	if item.Expired(s.clock()) {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		if err := s.save(ctx); err != nil {
			s.mu.Unlock()
			return err
		}
		watchers := slices.Clone(s.watchers)
		s.mu.Unlock()

		for _, fn := range watchers {
			fn()
		}
		return ErrItemExpired
	}

	if err := s.gate.Charge(ctx, item.Price); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("charge purchase: %w", err)
	}

	effect, ok := s.effects[item.Type]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoPurchaseEffect, item.Type)
	}
	if err := effect(ctx, item); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("apply purchase effect: %w", err)
	}

	s.items = append(s.items[:idx], s.items[idx+1:]...)
	if err := s.save(ctx); err != nil {
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

// PoolEntries returns a copy of the gacha pool.
func (s *Service) PoolEntries() []PoolEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pool)
}

// AddPoolEntryInput describes the input for adding a pool entry.
type AddPoolEntryInput struct {
	Name      string
	Price     int
	Count     int
	SkillID   string
	SkillName string
}

// AddPoolEntry adds a gacha template to the pool.
func (s *Service) AddPoolEntry(ctx context.Context, input AddPoolEntryInput) (PoolEntry, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return PoolEntry{}, fmt.Errorf("name is required")
	}
	if input.Count <= 0 {
		return PoolEntry{}, fmt.Errorf("count must be greater than zero")
	}
	if input.Price < 0 {
		return PoolEntry{}, fmt.Errorf("price must not be negative")
	}

	s.mu.Lock()
	entryID, err := s.idGenerator()
	if err != nil {
		s.mu.Unlock()
		return PoolEntry{}, fmt.Errorf("generate pool entry id: %w", err)
	}
	entry := PoolEntry{
		ID:             entryID,
		Name:           name,
		Price:          input.Price,
		RemainingCount: input.Count,
		TotalCount:     input.Count,
		SkillID:        strings.TrimSpace(input.SkillID),
		SkillName:      strings.TrimSpace(input.SkillName),
	}
	s.pool = append(s.pool, entry)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return entry, err
	}
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
	return entry, nil
}

// RemovePoolEntry removes a gacha template from the pool.
func (s *Service) RemovePoolEntry(ctx context.Context, entryID string) error {
	s.mu.Lock()
	idx := -1
	for i, entry := range s.pool {
		if entry.ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrPoolEntryNotFound
	}
	s.pool = append(s.pool[:idx], s.pool[idx+1:]...)
	if err := s.save(ctx); err != nil {
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

// Counts reports the size of the item list and pool.
func (s *Service) Counts() (items, pool int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), len(s.pool)
}

// save writes the full aggregate while the caller holds the mutex.
func (s *Service) save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("shop store is not configured")
	}
	return s.store.Save(ctx, Aggregate{Items: s.items, Pool: s.pool})
}
