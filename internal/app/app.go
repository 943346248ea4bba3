// Package app wires the storage driver, migration chain, repositories, and
// domain services into one application context.
//
// Construction order is a hard contract: the driver initializes first, the
// migration chain runs to completion second, and only then do services load
// their aggregates. No service is reachable before migration has returned
// successfully.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kops88/NowGame/internal/health"
	"github.com/kops88/NowGame/internal/shop"
	"github.com/kops88/NowGame/internal/storage"
	"github.com/kops88/NowGame/internal/storage/migrate"
	"github.com/kops88/NowGame/internal/wisdom"
)

// App is the assembled application context. Services are dependency-injected
// at construction; there are no package-level singletons.
type App struct {
	Wisdom *wisdom.Service
	Health *health.Service
	Shop   *shop.Service
}

// Options tunes service construction.
type Options struct {
	// HealthResetHour overrides the deduction click reset boundary.
	// Zero means keep the default.
	HealthResetHour int
	// ShopItemTTL overrides drawn item lifetime. Zero means keep the
	// default.
	ShopItemTTL time.Duration
}

// Open initializes the driver, runs the migration chain, and builds the
// service graph. A migration failure is fatal: the app must not run against
// a partially migrated store.
func Open(ctx context.Context, drv storage.Driver, opts Options) (*App, error) {
	if drv == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if err := drv.Init(ctx); err != nil {
		return nil, fmt.Errorf("init storage driver: %w", err)
	}
	if err := migrate.Run(ctx, drv, SchemaVersion, Steps()); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	wisdomSvc := wisdom.NewService(wisdom.NewStore(drv))
	healthSvc := health.NewService(health.NewStore(drv))
	shopSvc := shop.NewService(shop.NewStore(drv))

	if opts.HealthResetHour > 0 {
		healthSvc.SetResetHour(opts.HealthResetHour)
	}
	if opts.ShopItemTTL > 0 {
		shopSvc.SetItemTTL(opts.ShopItemTTL)
	}

	// A purchased voucher turns into a one-shot task linked to the
	// item's recorded skill.
	shopSvc.RegisterEffect(shop.ItemTypeVoucher, func(ctx context.Context, item shop.Item) error {
		_, err := wisdomSvc.CreateVoucherTask(ctx, item.Name, item.SkillID, item.SkillName)
		return err
	})

	wisdomSvc.Load(ctx)
	healthSvc.Load(ctx)
	shopSvc.Load(ctx)

	return &App{
		Wisdom: wisdomSvc,
		Health: healthSvc,
		Shop:   shopSvc,
	}, nil
}

// CommitProgress flushes the task commit protocol. Call it when the user
// navigates away from the task view, when the app backgrounds, and on
// termination.
func (a *App) CommitProgress(ctx context.Context) error {
	if a == nil || a.Wisdom == nil {
		return nil
	}
	return a.Wisdom.CommitProgress(ctx)
}
