package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested key is missing from the store.
var ErrNotFound = errors.New("key not found")

// Reserved storage keys. These form a stable on-disk contract and must not
// change between releases.
const (
	// KeySchemaVersion holds the integer schema version marker as a
	// decimal string. Absent on a fresh install.
	KeySchemaVersion = "schema_version"
	// KeyWisdom holds the wisdom aggregate (skills, skill points, tasks).
	KeyWisdom = "wisdom_data"
	// KeyHealth holds the health aggregate (date string -> daily record).
	KeyHealth = "health_data"
	// KeyShop holds the shop aggregate (items and pool entries).
	KeyShop = "shop_data"
)

// Legacy keys written by pre-aggregation releases. Migrations read them as
// source material; nothing writes them after schema version 1.
const (
	LegacyKeyWisdomSkills      = "wisdom_skills"
	LegacyKeyWisdomSkillPoints = "wisdom_skill_points"
	LegacyKeyWisdomTasks       = "wisdom_tasks"
	LegacyKeyHealthMap         = "health_data_map"
	LegacyKeyMainQuest         = "main_quest_data"
)

// Driver is the atomic string-keyed persistence contract. Init must complete
// before any other call. All operations may fail with a driver-level error.
type Driver interface {
	Init(ctx context.Context) error
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
