package shop

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"
)

type fakeStore struct {
	agg      Aggregate
	saves    int
	saved    chan struct{}
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(chan struct{}, 16)}
}

func (f *fakeStore) Load(context.Context) Aggregate { return f.agg }

func (f *fakeStore) Save(_ context.Context, agg Aggregate) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.agg = agg
	f.saves++
	select {
	case f.saved <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeStore) waitForSave(t *testing.T) {
	t.Helper()
	select {
	case <-f.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background save")
	}
}

func newTestService(store AggregateStore, now time.Time) *Service {
	svc := NewService(store)
	svc.clock = func() time.Time { return now }
	svc.rng = rand.New(rand.NewSource(1))
	next := 0
	svc.idGenerator = func() (string, error) {
		next++
		return fmt.Sprintf("item-%d", next), nil
	}
	svc.Load(context.Background())
	return svc
}

func TestPerformGachaDrawsFromPool(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	entry, err := svc.AddPoolEntry(context.Background(), AddPoolEntryInput{
		Name: "Cinema ticket", Price: 30, Count: 2, SkillID: "s1", SkillName: "Rest",
	})
	if err != nil {
		t.Fatalf("add pool entry: %v", err)
	}

	item, err := svc.PerformGacha(context.Background())
	if err != nil {
		t.Fatalf("gacha: %v", err)
	}
	if item == nil {
		t.Fatal("expected a drawn item")
	}
	if item.Name != "Cinema ticket" || item.Type != ItemTypeVoucher || item.Price != 30 {
		t.Fatalf("drawn item mismatch: %+v", item)
	}
	if item.SkillID != "s1" || item.SkillName != "Rest" {
		t.Fatalf("expected skill reference copied from template, got %+v", item)
	}
	if !item.CreatedAt.Equal(now) || !item.ExpireAt.Equal(now.Add(DefaultItemTTL)) {
		t.Fatalf("item lifetime mismatch: %+v", item)
	}
	if item.TotalDuration != DefaultItemTTL {
		t.Fatalf("expected total duration %v, got %v", DefaultItemTTL, item.TotalDuration)
	}

	pool := svc.PoolEntries()
	if pool[0].RemainingCount != 1 {
		t.Fatalf("expected remaining count 1 after draw, got %d", pool[0].RemainingCount)
	}
	if pool[0].TotalCount != 2 {
		t.Fatalf("total count is display-only and must not change, got %d", pool[0].TotalCount)
	}
	if pool[0].ID != entry.ID {
		t.Fatalf("unexpected pool entry: %+v", pool[0])
	}
	if len(store.agg.Items) != 1 {
		t.Fatalf("expected draw persisted, store holds %d items", len(store.agg.Items))
	}
}

func TestPerformGachaExhaustedPoolYieldsNoResult(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	if _, err := svc.AddPoolEntry(context.Background(), AddPoolEntryInput{Name: "Ticket", Count: 1}); err != nil {
		t.Fatalf("add pool entry: %v", err)
	}
	if _, err := svc.PerformGacha(context.Background()); err != nil {
		t.Fatalf("drain pool: %v", err)
	}

	savesBefore := store.saves
	itemsBefore, poolBefore := svc.Counts()
	for i := 0; i < 3; i++ {
		item, err := svc.PerformGacha(context.Background())
		if err != nil {
			t.Fatalf("gacha on empty pool: %v", err)
		}
		if item != nil {
			t.Fatalf("expected no-result sentinel, got %+v", item)
		}
	}
	items, pool := svc.Counts()
	if items != itemsBefore || pool != poolBefore {
		t.Fatal("exhausted draws must leave state unchanged")
	}
	if store.saves != savesBefore {
		t.Fatalf("exhausted draws must not persist, saves went %d -> %d", savesBefore, store.saves)
	}
}

func TestPerformGachaCostGateBlocksMutation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	if _, err := svc.AddPoolEntry(context.Background(), AddPoolEntryInput{Name: "Ticket", Count: 1}); err != nil {
		t.Fatalf("add pool entry: %v", err)
	}

	broke := errors.New("insufficient funds")
	svc.SetCostGate(costGateFunc(func(context.Context, int) error { return broke }))

	if _, err := svc.PerformGacha(context.Background()); !errors.Is(err, broke) {
		t.Fatalf("expected gate error, got %v", err)
	}
	if pool := svc.PoolEntries(); pool[0].RemainingCount != 1 {
		t.Fatalf("gate refusal must not decrement the pool, got %d", pool[0].RemainingCount)
	}
}

type costGateFunc func(ctx context.Context, price int) error

func (f costGateFunc) Charge(ctx context.Context, price int) error { return f(ctx, price) }

func TestItemsEvictsExpiredLazily(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store.agg = Aggregate{Items: []Item{
		{ID: "dead", Name: "Expired", Type: ItemTypeVoucher, ExpireAt: now.Add(-time.Hour)},
		{ID: "live", Name: "Fresh", Type: ItemTypeVoucher, ExpireAt: now.Add(time.Hour)},
	}}
	svc := newTestService(store, now)
	savesBefore := store.saves

	items := svc.Items(context.Background())
	if len(items) != 1 || items[0].ID != "live" {
		t.Fatalf("expected only the live item, got %+v", items)
	}

	// The eviction write happens off the read path.
	store.waitForSave(t)
	if store.saves != savesBefore+1 {
		t.Fatalf("expected exactly one eviction write, got %d", store.saves-savesBefore)
	}
	if len(store.agg.Items) != 1 {
		t.Fatalf("expected filtered list persisted, store holds %d items", len(store.agg.Items))
	}

	// A second read finds nothing to evict and writes nothing.
	if items := svc.Items(context.Background()); len(items) != 1 {
		t.Fatalf("second read mismatch: %+v", items)
	}
	if store.saves != savesBefore+1 {
		t.Fatalf("second read must not write, saves at %d", store.saves)
	}
}

func TestPurchaseDispatchesEffectAndRemovesItem(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store.agg = Aggregate{Items: []Item{{
		ID: "i1", Name: "Free lesson", Type: ItemTypeVoucher, Price: 30,
		ExpireAt: now.Add(time.Hour), SkillID: "s1", SkillName: "Piano",
	}}}
	svc := newTestService(store, now)

	var applied []Item
	svc.RegisterEffect(ItemTypeVoucher, func(_ context.Context, item Item) error {
		applied = append(applied, item)
		return nil
	})

	if err := svc.Purchase(context.Background(), "i1"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(applied) != 1 || applied[0].SkillID != "s1" {
		t.Fatalf("expected one effect dispatch with the skill reference, got %+v", applied)
	}
	if items, _ := svc.Counts(); items != 0 {
		t.Fatalf("expected item removed, %d left", items)
	}
	if len(store.agg.Items) != 0 {
		t.Fatal("expected removal persisted")
	}
}

func TestPurchaseMissingItem(t *testing.T) {
	svc := newTestService(newFakeStore(), time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	if err := svc.Purchase(context.Background(), "ghost"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestPurchaseExpiredItemRemovesAndFails(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store.agg = Aggregate{Items: []Item{{
		ID: "i1", Name: "Stale", Type: ItemTypeVoucher, ExpireAt: now.Add(-time.Minute),
	}}}
	svc := newTestService(store, now)

	effectRan := false
	svc.RegisterEffect(ItemTypeVoucher, func(context.Context, Item) error {
		effectRan = true
		return nil
	})

	if err := svc.Purchase(context.Background(), "i1"); !errors.Is(err, ErrItemExpired) {
		t.Fatalf("expected ErrItemExpired, got %v", err)
	}
	if effectRan {
		t.Fatal("effect must not run for an expired item")
	}
	if len(store.agg.Items) != 0 {
		t.Fatal("expected expired item removal persisted")
	}
}

func TestPurchaseWithoutEffectFails(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store.agg = Aggregate{Items: []Item{{
		ID: "i1", Name: "Mystery", Type: ItemType("mystery"), ExpireAt: now.Add(time.Hour),
	}}}
	svc := newTestService(store, now)

	if err := svc.Purchase(context.Background(), "i1"); !errors.Is(err, ErrNoPurchaseEffect) {
		t.Fatalf("expected ErrNoPurchaseEffect, got %v", err)
	}
	if items, _ := svc.Counts(); items != 1 {
		t.Fatal("item must survive a failed dispatch")
	}
}

func TestPurchaseEffectFailureKeepsItem(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	store.agg = Aggregate{Items: []Item{{
		ID: "i1", Name: "Free lesson", Type: ItemTypeVoucher, ExpireAt: now.Add(time.Hour),
	}}}
	svc := newTestService(store, now)

	boom := errors.New("task creation failed")
	svc.RegisterEffect(ItemTypeVoucher, func(context.Context, Item) error { return boom })

	if err := svc.Purchase(context.Background(), "i1"); !errors.Is(err, boom) {
		t.Fatalf("expected effect error to surface, got %v", err)
	}
	if items, _ := svc.Counts(); items != 1 {
		t.Fatal("item must survive a failed effect")
	}
}

func TestRemovePoolEntry(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	entry, err := svc.AddPoolEntry(context.Background(), AddPoolEntryInput{Name: "Ticket", Count: 3})
	if err != nil {
		t.Fatalf("add pool entry: %v", err)
	}

	if err := svc.RemovePoolEntry(context.Background(), entry.ID); err != nil {
		t.Fatalf("remove pool entry: %v", err)
	}
	if err := svc.RemovePoolEntry(context.Background(), entry.ID); !errors.Is(err, ErrPoolEntryNotFound) {
		t.Fatalf("expected ErrPoolEntryNotFound, got %v", err)
	}
	if _, pool := svc.Counts(); pool != 0 {
		t.Fatalf("expected empty pool, got %d", pool)
	}
}

func TestGachaDrawSaveFailurePropagates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC))
	if _, err := svc.AddPoolEntry(context.Background(), AddPoolEntryInput{Name: "Ticket", Count: 1}); err != nil {
		t.Fatalf("add pool entry: %v", err)
	}

	boom := errors.New("disk full")
	store.failWith = boom
	if _, err := svc.PerformGacha(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected write failure to surface, got %v", err)
	}
	// Memory keeps the draw; disk catches up on the next save.
	if items, _ := svc.Counts(); items != 1 {
		t.Fatalf("expected drawn item retained in memory, got %d", items)
	}
}

func TestDecodeAggregateAppliesDefaults(t *testing.T) {
	raw := `{
		"items": [{"id": "i1", "name": "Ticket", "createdAt": "2026-08-24T10:00:00Z", "expireAt": "2026-08-24T22:00:00Z"}],
		"pool": [{"id": "p1", "name": "Ticket", "remainingCount": 2}]
	}`

	agg, err := DecodeAggregate(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	item := agg.Items[0]
	if item.Type != ItemTypeVoucher {
		t.Fatalf("expected voucher type default, got %q", item.Type)
	}
	if item.TotalDuration != 12*time.Hour {
		t.Fatalf("expected duration derived from lifetime, got %v", item.TotalDuration)
	}
	entry := agg.Pool[0]
	if entry.TotalCount != 2 {
		t.Fatalf("expected total count defaulted to remaining, got %d", entry.TotalCount)
	}
}
