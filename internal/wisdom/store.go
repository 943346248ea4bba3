package wisdom

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kops88/NowGame/internal/storage"
)

// AggregateStore persists the wisdom aggregate as one complete snapshot.
type AggregateStore interface {
	Load(ctx context.Context) Aggregate
	Save(ctx context.Context, agg Aggregate) error
}

// Store is the driver-backed wisdom repository bound to the wisdom storage
// key.
type Store struct {
	drv storage.Driver
}

var _ AggregateStore = (*Store)(nil)

// NewStore creates a wisdom repository over the provided driver.
func NewStore(drv storage.Driver) *Store {
	return &Store{drv: drv}
}

// Load reads the stored aggregate. A missing key or unreadable record never
// fails: corruption is logged and the empty aggregate is returned so startup
// always succeeds.
func (s *Store) Load(ctx context.Context) Aggregate {
	if s == nil || s.drv == nil {
		return Aggregate{}
	}
	raw, err := s.drv.GetString(ctx, storage.KeyWisdom)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("wisdom: read %s: %v; starting from empty aggregate", storage.KeyWisdom, err)
		}
		return Aggregate{}
	}
	agg, err := DecodeAggregate(raw)
	if err != nil {
		log.Printf("wisdom: decode %s: %v; starting from empty aggregate", storage.KeyWisdom, err)
		return Aggregate{}
	}
	return agg
}

// Save writes a complete aggregate snapshot. Write failures propagate to the
// caller.
func (s *Store) Save(ctx context.Context, agg Aggregate) error {
	if s == nil || s.drv == nil {
		return fmt.Errorf("storage is not configured")
	}
	payload, err := EncodeAggregate(agg)
	if err != nil {
		return err
	}
	if err := s.drv.SetString(ctx, storage.KeyWisdom, payload); err != nil {
		return fmt.Errorf("write %s: %w", storage.KeyWisdom, err)
	}
	return nil
}
