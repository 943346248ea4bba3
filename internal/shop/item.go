// Package shop implements the randomized reward shop: a gacha draw over a
// template pool, time-boxed items with lazy expiry, and purchase effects
// dispatched by item type.
package shop

import (
	"errors"
	"time"
)

// ItemType keys the purchase effect dispatched when an item is bought.
type ItemType string

// ItemTypeVoucher is a redeemable voucher; purchasing one creates a task
// linked to the item's recorded skill reference.
const ItemTypeVoucher ItemType = "voucher"

var (
	// ErrItemNotFound indicates an item id with no matching record.
	ErrItemNotFound = errors.New("shop item not found")
	// ErrItemExpired indicates a purchase attempt on an expired item.
	ErrItemExpired = errors.New("shop item has expired")
	// ErrPoolEntryNotFound indicates a pool entry id with no matching
	// record.
	ErrPoolEntryNotFound = errors.New("pool entry not found")
	// ErrNoPurchaseEffect indicates an item type with no registered
	// purchase effect.
	ErrNoPurchaseEffect = errors.New("no purchase effect for item type")
)

// Item is an ephemeral shop item won from a gacha draw. It is destroyed
// either by expiry (lazily, on the next read) or by purchase.
type Item struct {
	ID        string
	Name      string
	Type      ItemType
	Price     int
	CreatedAt time.Time
	ExpireAt  time.Time
	// TotalDuration is the item's full lifetime, kept for countdown
	// display.
	TotalDuration time.Duration
	// SkillID and SkillName are the optional linked-skill reference used
	// when the purchase effect creates a task.
	SkillID   string
	SkillName string
}

// Expired reports whether the item's lifetime has passed.
func (i Item) Expired(now time.Time) bool {
	return !now.Before(i.ExpireAt)
}

// PoolEntry is a gacha source template. An entry with no remaining count is
// exhausted and excluded from draws.
type PoolEntry struct {
	ID             string
	Name           string
	Price          int
	RemainingCount int
	// TotalCount is kept for display only.
	TotalCount int
	// SkillID and SkillName are copied onto drawn items.
	SkillID   string
	SkillName string
}
