// Package nowgame parses command flags and runs the progression core.
package nowgame

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kops88/NowGame/internal/app"
	"github.com/kops88/NowGame/internal/platform/config"
	"github.com/kops88/NowGame/internal/storage"
	bboltstore "github.com/kops88/NowGame/internal/storage/bbolt"
	sqlitestore "github.com/kops88/NowGame/internal/storage/sqlite"
)

// Storage driver names accepted by -driver.
const (
	DriverBBolt  = "bbolt"
	DriverSQLite = "sqlite"
)

// Config holds nowgame command configuration.
type Config struct {
	DataPath        string `env:"NOWGAME_DATA_PATH"`
	Driver          string `env:"NOWGAME_STORAGE_DRIVER" envDefault:"bbolt"`
	HealthResetHour int    `env:"NOWGAME_HEALTH_RESET_HOUR" envDefault:"4"`
	ShopItemHours   int    `env:"NOWGAME_SHOP_ITEM_HOURS" envDefault:"24"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Path to the data file (defaults to ~/.nowgame.db)")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "Storage driver: bbolt or sqlite")
	fs.IntVar(&cfg.HealthResetHour, "reset-hour", cfg.HealthResetHour, "Hour of day at which health deduction clicks reset")
	fs.IntVar(&cfg.ShopItemHours, "item-hours", cfg.ShopItemHours, "Lifetime in hours of drawn shop items")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultDataPath returns the default data file location.
func DefaultDataPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".nowgame.db"), nil
}

// Run opens storage, migrates, builds the application context, and blocks
// until ctx is done. Task progress commits on the way out, so in-memory
// nudges survive a termination.
func Run(ctx context.Context, cfg Config) error {
	path := cfg.DataPath
	if path == "" {
		defaultPath, err := DefaultDataPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	drv, closeDriver, err := openDriver(cfg.Driver, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDriver(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	application, err := app.Open(ctx, drv, app.Options{
		HealthResetHour: cfg.HealthResetHour,
		ShopItemTTL:     time.Duration(cfg.ShopItemHours) * time.Hour,
	})
	if err != nil {
		return err
	}

	skills, points, tasks := application.Wisdom.Counts()
	items, pool := application.Shop.Counts()
	log.Printf("loaded %d skills, %d skill points, %d tasks", skills, points, tasks)
	log.Printf("loaded %d shop items, %d pool entries, %d health days", items, pool, application.Health.Days())
	log.Printf("health score today: %d", application.Health.Score(time.Now()))

	<-ctx.Done()

	// The parent context is already done; give the final commit its own
	// deadline.
	commitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.CommitProgress(commitCtx); err != nil {
		return fmt.Errorf("commit task progress: %w", err)
	}
	return nil
}

func openDriver(name, path string) (storage.Driver, func() error, error) {
	switch name {
	case DriverBBolt:
		store, err := bboltstore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case DriverSQLite:
		store, err := sqlitestore.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, errors.New("unknown storage driver: " + name)
	}
}
