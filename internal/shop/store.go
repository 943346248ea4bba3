package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kops88/NowGame/internal/storage"
)

// Aggregate is the complete shop snapshot persisted under one storage key.
type Aggregate struct {
	Items []Item
	Pool  []PoolEntry
}

// AggregateStore persists the shop aggregate as one complete snapshot.
type AggregateStore interface {
	Load(ctx context.Context) Aggregate
	Save(ctx context.Context, agg Aggregate) error
}

// Store is the driver-backed shop repository bound to the shop storage key.
type Store struct {
	drv storage.Driver
}

var _ AggregateStore = (*Store)(nil)

// NewStore creates a shop repository over the provided driver.
func NewStore(drv storage.Driver) *Store {
	return &Store{drv: drv}
}

type itemDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      *string `json:"type,omitempty"`
	Price     *int    `json:"price,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
	ExpireAt  *string `json:"expireAt,omitempty"`
	// TotalDuration is stored as an integer count of seconds.
	TotalDuration *int64  `json:"totalDuration,omitempty"`
	SkillID       *string `json:"skillId,omitempty"`
	SkillName     *string `json:"skillName,omitempty"`
}

type poolEntryDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          *int    `json:"price,omitempty"`
	RemainingCount *int    `json:"remainingCount,omitempty"`
	TotalCount     *int    `json:"totalCount,omitempty"`
	SkillID        *string `json:"skillId,omitempty"`
	SkillName      *string `json:"skillName,omitempty"`
}

type aggregateDTO struct {
	Items []itemDTO      `json:"items"`
	Pool  []poolEntryDTO `json:"pool"`
}

// Load reads the stored aggregate. A missing key or unreadable record never
// fails: corruption is logged and the empty aggregate is returned.
func (s *Store) Load(ctx context.Context) Aggregate {
	if s == nil || s.drv == nil {
		return Aggregate{}
	}
	raw, err := s.drv.GetString(ctx, storage.KeyShop)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("shop: read %s: %v; starting from empty aggregate", storage.KeyShop, err)
		}
		return Aggregate{}
	}
	agg, err := DecodeAggregate(raw)
	if err != nil {
		log.Printf("shop: decode %s: %v; starting from empty aggregate", storage.KeyShop, err)
		return Aggregate{}
	}
	return agg
}

// Save writes a complete aggregate snapshot. Write failures propagate to
// the caller.
func (s *Store) Save(ctx context.Context, agg Aggregate) error {
	if s == nil || s.drv == nil {
		return fmt.Errorf("storage is not configured")
	}
	payload, err := EncodeAggregate(agg)
	if err != nil {
		return err
	}
	if err := s.drv.SetString(ctx, storage.KeyShop, payload); err != nil {
		return fmt.Errorf("write %s: %w", storage.KeyShop, err)
	}
	return nil
}

// EncodeAggregate serializes a complete shop snapshot.
func EncodeAggregate(agg Aggregate) (string, error) {
	dto := aggregateDTO{
		Items: make([]itemDTO, 0, len(agg.Items)),
		Pool:  make([]poolEntryDTO, 0, len(agg.Pool)),
	}
	for _, item := range agg.Items {
		dto.Items = append(dto.Items, encodeItem(item))
	}
	for _, entry := range agg.Pool {
		dto.Pool = append(dto.Pool, encodePoolEntry(entry))
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		return "", fmt.Errorf("marshal shop aggregate: %w", err)
	}
	return string(payload), nil
}

// DecodeAggregate parses a complete shop snapshot. Missing optional fields
// take their documented defaults; only an unparseable document fails.
func DecodeAggregate(raw string) (Aggregate, error) {
	var dto aggregateDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return Aggregate{}, fmt.Errorf("unmarshal shop aggregate: %w", err)
	}

	agg := Aggregate{}
	for _, i := range dto.Items {
		agg.Items = append(agg.Items, decodeItem(i))
	}
	for _, p := range dto.Pool {
		agg.Pool = append(agg.Pool, decodePoolEntry(p))
	}
	return agg, nil
}

func encodeItem(item Item) itemDTO {
	itemType := string(item.Type)
	price := item.Price
	seconds := int64(item.TotalDuration / time.Second)
	dto := itemDTO{
		ID:            item.ID,
		Name:          item.Name,
		Type:          &itemType,
		Price:         &price,
		CreatedAt:     encodeTime(item.CreatedAt),
		ExpireAt:      encodeTime(item.ExpireAt),
		TotalDuration: &seconds,
	}
	if item.SkillID != "" {
		dto.SkillID = &item.SkillID
	}
	if item.SkillName != "" {
		dto.SkillName = &item.SkillName
	}
	return dto
}

func decodeItem(dto itemDTO) Item {
	item := Item{
		ID:        dto.ID,
		Name:      dto.Name,
		Type:      ItemTypeVoucher,
		CreatedAt: decodeTime(dto.CreatedAt),
		ExpireAt:  decodeTime(dto.ExpireAt),
	}
	if dto.Type != nil && *dto.Type != "" {
		item.Type = ItemType(*dto.Type)
	}
	if dto.Price != nil && *dto.Price > 0 {
		item.Price = *dto.Price
	}
	if dto.TotalDuration != nil && *dto.TotalDuration > 0 {
		item.TotalDuration = time.Duration(*dto.TotalDuration) * time.Second
	} else if item.ExpireAt.After(item.CreatedAt) {
		item.TotalDuration = item.ExpireAt.Sub(item.CreatedAt)
	}
	if dto.SkillID != nil {
		item.SkillID = *dto.SkillID
	}
	if dto.SkillName != nil {
		item.SkillName = *dto.SkillName
	}
	return item
}

func encodePoolEntry(entry PoolEntry) poolEntryDTO {
	price := entry.Price
	remaining := entry.RemainingCount
	total := entry.TotalCount
	dto := poolEntryDTO{
		ID:             entry.ID,
		Name:           entry.Name,
		Price:          &price,
		RemainingCount: &remaining,
		TotalCount:     &total,
	}
	if entry.SkillID != "" {
		dto.SkillID = &entry.SkillID
	}
	if entry.SkillName != "" {
		dto.SkillName = &entry.SkillName
	}
	return dto
}

func decodePoolEntry(dto poolEntryDTO) PoolEntry {
	entry := PoolEntry{
		ID:   dto.ID,
		Name: dto.Name,
	}
	if dto.Price != nil && *dto.Price > 0 {
		entry.Price = *dto.Price
	}
	if dto.RemainingCount != nil && *dto.RemainingCount > 0 {
		entry.RemainingCount = *dto.RemainingCount
	}
	entry.TotalCount = entry.RemainingCount
	if dto.TotalCount != nil && *dto.TotalCount > entry.RemainingCount {
		entry.TotalCount = *dto.TotalCount
	}
	if dto.SkillID != nil {
		entry.SkillID = *dto.SkillID
	}
	if dto.SkillName != nil {
		entry.SkillName = *dto.SkillName
	}
	return entry
}

func encodeTime(value time.Time) *string {
	if value.IsZero() {
		return nil
	}
	encoded := value.UTC().Format(time.RFC3339)
	return &encoded
}

func decodeTime(value *string) time.Time {
	if value == nil {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
