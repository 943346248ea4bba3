package app

import (
	"context"
	"testing"
	"time"

	"github.com/kops88/NowGame/internal/shop"
	"github.com/kops88/NowGame/internal/storage"
	"github.com/kops88/NowGame/internal/storage/migrate"
	"github.com/kops88/NowGame/internal/storage/storagetest"
	"github.com/kops88/NowGame/internal/wisdom"
)

func TestOpenFreshStoreStampsSchemaWithoutRunningSteps(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	version, found, err := migrate.Version(context.Background(), drv)
	if err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if !found {
		t.Fatal("expected schema version marker after open")
	}
	if version != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, version)
	}
	// A pristine store skips the chain entirely: no step may have touched
	// the aggregate keys.
	if _, err := drv.GetString(context.Background(), storage.KeyWisdom); err != storage.ErrNotFound {
		t.Fatalf("expected no wisdom payload on a fresh store, got %v", err)
	}

	skills, points, tasks := a.Wisdom.Counts()
	if skills != 0 || points != 0 || tasks != 0 {
		t.Fatalf("expected empty aggregate, got %d/%d/%d", skills, points, tasks)
	}
}

func TestOpenMigratesLegacyWisdomCollections(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	drv.Seed(storage.KeySchemaVersion, "0")
	drv.Seed(storage.LegacyKeyWisdomSkills, `[{"id": "s1", "name": "Piano", "level": 2, "currentXp": 30, "maxXp": 100}]`)
	drv.Seed(storage.LegacyKeyWisdomSkillPoints, `[{"id": "p1", "name": "Scales", "skillId": "s1"}]`)
	drv.Seed(storage.LegacyKeyWisdomTasks, `[{"id": "t1", "name": "Practice", "skillId": "p1", "maxCount": 5, "currentCount": 2}]`)

	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	skill, err := a.Wisdom.SkillByID("s1")
	if err != nil {
		t.Fatalf("migrated skill: %v", err)
	}
	if skill.Level != 2 || skill.CurrentXP != 30 {
		t.Fatalf("skill carried wrong state: %+v", skill)
	}
	if _, err := a.Wisdom.SkillPointByID("p1"); err != nil {
		t.Fatalf("migrated point: %v", err)
	}
	task, err := a.Wisdom.TaskByID("t1")
	if err != nil {
		t.Fatalf("migrated task: %v", err)
	}
	if task.SavedCount != 2 {
		t.Fatalf("expected legacy count treated as committed, got %d", task.SavedCount)
	}

	// Forward-only chain: the legacy keys stay behind as recovery material.
	for _, key := range []string{
		storage.LegacyKeyWisdomSkills,
		storage.LegacyKeyWisdomSkillPoints,
		storage.LegacyKeyWisdomTasks,
	} {
		if _, err := drv.GetString(context.Background(), key); err != nil {
			t.Fatalf("legacy key %s must survive migration: %v", key, err)
		}
	}
}

func TestOpenMigratesHealthRecords(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	drv.Seed(storage.KeySchemaVersion, "1")
	drv.Seed(storage.LegacyKeyHealthMap, `{"2026-08-24": {"baseScore": 80}}`)

	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	day := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	if got := a.Health.Score(day); got != 80 {
		t.Fatalf("expected migrated base score 80, got %d", got)
	}
}

func TestOpenFoldsMainQuestsIntoTasks(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	drv.Seed(storage.KeySchemaVersion, "0")
	drv.Seed(storage.LegacyKeyWisdomTasks, `[{"id": "t1", "name": "Practice", "maxCount": 5, "currentCount": 2}]`)
	drv.Seed(storage.LegacyKeyMainQuest, `[{"id": "q1", "name": "Finish album", "maxCount": 12, "currentCount": 4}]`)

	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := a.Wisdom.TaskByID("t1"); err != nil {
		t.Fatalf("original task: %v", err)
	}
	quest, err := a.Wisdom.TaskByID("q1")
	if err != nil {
		t.Fatalf("folded quest: %v", err)
	}
	if quest.MaxCount != 12 || quest.CurrentCount != 4 || quest.SavedCount != 4 {
		t.Fatalf("quest carried wrong state: %+v", quest)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	drv.Seed(storage.KeySchemaVersion, "0")
	drv.Seed(storage.LegacyKeyWisdomSkills, `[{"id": "s1", "name": "Piano"}]`)

	if _, err := Open(context.Background(), drv, Options{}); err != nil {
		t.Fatalf("first open: %v", err)
	}
	writes := drv.SetCount(storage.KeyWisdom)

	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if drv.SetCount(storage.KeyWisdom) != writes {
		t.Fatal("a second open must not re-run migration steps")
	}
	if _, err := a.Wisdom.SkillByID("s1"); err != nil {
		t.Fatalf("skill after reopen: %v", err)
	}
}

func TestVoucherPurchaseCreatesTask(t *testing.T) {
	drv := storagetest.NewMemoryDriver()
	a, err := Open(context.Background(), drv, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	skill, err := a.Wisdom.CreateSkill(context.Background(), wisdom.CreateSkillInput{Name: "Piano"})
	if err != nil {
		t.Fatalf("create skill: %v", err)
	}
	if _, err := a.Shop.AddPoolEntry(context.Background(), shop.AddPoolEntryInput{
		Name: "Free lesson", Price: 30, Count: 1, SkillID: skill.ID, SkillName: skill.Name,
	}); err != nil {
		t.Fatalf("add pool entry: %v", err)
	}

	item, err := a.Shop.PerformGacha(context.Background())
	if err != nil {
		t.Fatalf("gacha: %v", err)
	}
	if item == nil {
		t.Fatal("expected a drawn item")
	}
	if err := a.Shop.Purchase(context.Background(), item.ID); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	_, _, tasks := a.Wisdom.Counts()
	if tasks != 1 {
		t.Fatalf("expected voucher purchase to create one task, got %d", tasks)
	}
	for _, task := range a.Wisdom.Tasks() {
		if task.Name != "Free lesson" || task.SkillID != skill.ID || task.MaxCount != 1 {
			t.Fatalf("voucher task mismatch: %+v", task)
		}
	}
}
