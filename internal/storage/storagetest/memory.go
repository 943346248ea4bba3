// Package storagetest provides an in-memory storage driver for tests.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"github.com/kops88/NowGame/internal/storage"
)

// MemoryDriver is a map-backed storage driver with per-key write failure
// injection.
type MemoryDriver struct {
	mu     sync.Mutex
	data   map[string]string
	sets   map[string]int
	setErr map[string]error
}

var _ storage.Driver = (*MemoryDriver)(nil)

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		data:   map[string]string{},
		sets:   map[string]int{},
		setErr: map[string]error{},
	}
}

// FailSetString makes every SetString for key fail with err until cleared
// with a nil err.
func (d *MemoryDriver) FailSetString(key string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.setErr, key)
		return
	}
	d.setErr[key] = err
}

// SetCount reports how many successful writes key has received.
func (d *MemoryDriver) SetCount(key string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sets[key]
}

// Seed stores value under key without counting it as a write.
func (d *MemoryDriver) Seed(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = value
}

// Init implements storage.Driver.
func (d *MemoryDriver) Init(ctx context.Context) error {
	return ctx.Err()
}

// GetString implements storage.Driver.
func (d *MemoryDriver) GetString(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	value, ok := d.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

// SetString implements storage.Driver.
func (d *MemoryDriver) SetString(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.setErr[key]; err != nil {
		return err
	}
	d.data[key] = value
	d.sets[key]++
	return nil
}

// Remove implements storage.Driver.
func (d *MemoryDriver) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, key)
	return nil
}

// Keys implements storage.Driver.
func (d *MemoryDriver) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.data))
	for key := range d.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear implements storage.Driver.
func (d *MemoryDriver) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = map[string]string{}
	return nil
}
