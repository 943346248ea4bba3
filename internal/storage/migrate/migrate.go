// Package migrate runs ordered schema migrations over a storage driver.
//
// The engine tracks progress through an integer version marker persisted
// under storage.KeySchemaVersion. Migrations are forward-only: steps copy or
// aggregate legacy data into new keys and never delete their sources, so a
// failed chain can always be retried from the last completed version.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/kops88/NowGame/internal/storage"
)

// Step is a single forward transformation to schema version To.
//
// Run must be a correct no-op when it finds no legacy data for its concern,
// so that fresh modules can register steps without special-casing empty
// stores.
type Step struct {
	To   int
	Name string
	Run  func(ctx context.Context, drv storage.Driver) error
}

// Run migrates the store to target.
//
// An absent version marker means a pristine store: the marker is written as
// target directly and no step runs. When the current version already
// satisfies the target, Run is a no-op. Otherwise every step with
// current < step.To <= target executes in ascending order, and the marker is
// persisted after each successful step so a crash mid-chain resumes from the
// last completed version. A failing step aborts the chain and the error
// propagates; callers must treat that as fatal and not touch the store.
func Run(ctx context.Context, drv storage.Driver, target int, steps []Step) error {
	if drv == nil {
		return fmt.Errorf("storage driver is required")
	}
	if target < 0 {
		return fmt.Errorf("target version must not be negative")
	}

	current, found, err := readVersion(ctx, drv)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if !found {
		// Pristine store: nothing to migrate from.
		if err := writeVersion(ctx, drv, target); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		return nil
	}
	if current >= target {
		return nil
	}

	pending := make([]Step, 0, len(steps))
	for _, step := range steps {
		if step.To > current && step.To <= target {
			pending = append(pending, step)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].To < pending[j].To })

	for _, step := range pending {
		if step.Run == nil {
			return fmt.Errorf("migration step %d (%s) has no run function", step.To, step.Name)
		}
		if err := step.Run(ctx, drv); err != nil {
			return fmt.Errorf("migration step %d (%s): %w", step.To, step.Name, err)
		}
		if err := writeVersion(ctx, drv, step.To); err != nil {
			return fmt.Errorf("record schema version %d: %w", step.To, err)
		}
	}

	return nil
}

// Version reports the persisted schema version. A pristine store reports
// found=false.
func Version(ctx context.Context, drv storage.Driver) (version int, found bool, err error) {
	if drv == nil {
		return 0, false, fmt.Errorf("storage driver is required")
	}
	return readVersion(ctx, drv)
}

func readVersion(ctx context.Context, drv storage.Driver) (int, bool, error) {
	raw, err := drv.GetString(ctx, storage.KeySchemaVersion)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse schema version %q: %w", raw, err)
	}
	return version, true, nil
}

func writeVersion(ctx context.Context, drv storage.Driver, version int) error {
	return drv.SetString(ctx, storage.KeySchemaVersion, strconv.Itoa(version))
}
