package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kops88/NowGame/internal/storage"
	"github.com/kops88/NowGame/internal/storage/migrate"
	"github.com/kops88/NowGame/internal/wisdom"
)

// SchemaVersion is the schema version this build writes and expects.
const SchemaVersion = 4

// Steps returns the full migration chain. Steps are forward-only and never
// delete the legacy keys they read, so an interrupted chain keeps its
// recovery material.
func Steps() []migrate.Step {
	return []migrate.Step{
		{To: 1, Name: "aggregate wisdom collections", Run: migrateWisdomAggregate},
		{To: 2, Name: "carry health records", Run: migrateHealthRecords},
		{To: 3, Name: "fold main quests into tasks", Run: migrateMainQuests},
		{To: 4, Name: "introduce shop", Run: migrateShopIntro},
	}
}

// migrateWisdomAggregate composes the three legacy per-collection keys into
// the single wisdom aggregate. Stores that never wrote the legacy keys are
// left untouched.
func migrateWisdomAggregate(ctx context.Context, drv storage.Driver) error {
	rawSkills, foundSkills, err := readLegacy(ctx, drv, storage.LegacyKeyWisdomSkills)
	if err != nil {
		return err
	}
	rawPoints, foundPoints, err := readLegacy(ctx, drv, storage.LegacyKeyWisdomSkillPoints)
	if err != nil {
		return err
	}
	rawTasks, foundTasks, err := readLegacy(ctx, drv, storage.LegacyKeyWisdomTasks)
	if err != nil {
		return err
	}
	if !foundSkills && !foundPoints && !foundTasks {
		return nil
	}

	agg := wisdom.Aggregate{}
	if foundSkills {
		agg.Skills, err = wisdom.DecodeSkillList(rawSkills)
		if err != nil {
			return err
		}
	}
	if foundPoints {
		agg.SkillPoints, err = wisdom.DecodeSkillPointList(rawPoints)
		if err != nil {
			return err
		}
	}
	if foundTasks {
		agg.Tasks, err = wisdom.DecodeTaskList(rawTasks)
		if err != nil {
			return err
		}
	}

	payload, err := wisdom.EncodeAggregate(agg)
	if err != nil {
		return err
	}
	return drv.SetString(ctx, storage.KeyWisdom, payload)
}

// migrateHealthRecords copies the legacy health map under its aggregate key
// unchanged. The record shape did not change, only the key.
func migrateHealthRecords(ctx context.Context, drv storage.Driver) error {
	raw, found, err := readLegacy(ctx, drv, storage.LegacyKeyHealthMap)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return drv.SetString(ctx, storage.KeyHealth, raw)
}

// migrateMainQuests appends the retired main-quest module's entries to the
// wisdom task list. Quest records carry the task wire shape; a quest with
// no saved baseline commits at its current count.
func migrateMainQuests(ctx context.Context, drv storage.Driver) error {
	raw, found, err := readLegacy(ctx, drv, storage.LegacyKeyMainQuest)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	quests, err := wisdom.DecodeTaskList(raw)
	if err != nil {
		return err
	}
	if len(quests) == 0 {
		return nil
	}

	agg := wisdom.Aggregate{}
	current, foundAgg, err := readLegacy(ctx, drv, storage.KeyWisdom)
	if err != nil {
		return err
	}
	if foundAgg {
		agg, err = wisdom.DecodeAggregate(current)
		if err != nil {
			return err
		}
	}

	agg.Tasks = append(agg.Tasks, quests...)
	payload, err := wisdom.EncodeAggregate(agg)
	if err != nil {
		return err
	}
	return drv.SetString(ctx, storage.KeyWisdom, payload)
}

// migrateShopIntro marks the shop module's introduction. The shop has no
// legacy data, so there is nothing to migrate.
func migrateShopIntro(context.Context, storage.Driver) error {
	return nil
}

func readLegacy(ctx context.Context, drv storage.Driver, key string) (raw string, found bool, err error) {
	raw, err = drv.GetString(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, true, nil
}
