package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kops88/NowGame/internal/storage"
)

// AggregateStore persists the health record map as one complete snapshot.
type AggregateStore interface {
	Load(ctx context.Context) map[string]Record
	Save(ctx context.Context, records map[string]Record) error
}

// Store is the driver-backed health repository bound to the health storage
// key.
type Store struct {
	drv storage.Driver
}

var _ AggregateStore = (*Store)(nil)

// NewStore creates a health repository over the provided driver.
func NewStore(drv storage.Driver) *Store {
	return &Store{drv: drv}
}

type recordDTO struct {
	BaseScore  *int              `json:"baseScore,omitempty"`
	Deductions map[string]int    `json:"deductions,omitempty"`
	LastClicks map[string]string `json:"lastClicks,omitempty"`
}

// Load reads the stored record map. A missing key or unreadable record never
// fails: corruption is logged and an empty map is returned.
func (s *Store) Load(ctx context.Context) map[string]Record {
	if s == nil || s.drv == nil {
		return map[string]Record{}
	}
	raw, err := s.drv.GetString(ctx, storage.KeyHealth)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("health: read %s: %v; starting from empty records", storage.KeyHealth, err)
		}
		return map[string]Record{}
	}
	records, err := DecodeRecords(raw)
	if err != nil {
		log.Printf("health: decode %s: %v; starting from empty records", storage.KeyHealth, err)
		return map[string]Record{}
	}
	return records
}

// Save writes the complete record map. Write failures propagate to the
// caller.
func (s *Store) Save(ctx context.Context, records map[string]Record) error {
	if s == nil || s.drv == nil {
		return fmt.Errorf("storage is not configured")
	}
	payload, err := EncodeRecords(records)
	if err != nil {
		return err
	}
	if err := s.drv.SetString(ctx, storage.KeyHealth, payload); err != nil {
		return fmt.Errorf("write %s: %w", storage.KeyHealth, err)
	}
	return nil
}

// EncodeRecords serializes a date-keyed record map.
func EncodeRecords(records map[string]Record) (string, error) {
	dtos := make(map[string]recordDTO, len(records))
	for date, rec := range records {
		dto := recordDTO{BaseScore: rec.BaseScore}
		if len(rec.Deductions) > 0 {
			dto.Deductions = make(map[string]int, len(rec.Deductions))
			for kind, count := range rec.Deductions {
				dto.Deductions[string(kind)] = count
			}
		}
		if len(rec.LastClicks) > 0 {
			dto.LastClicks = make(map[string]string, len(rec.LastClicks))
			for kind, clicked := range rec.LastClicks {
				if clicked.IsZero() {
					continue
				}
				dto.LastClicks[string(kind)] = clicked.UTC().Format(time.RFC3339)
			}
		}
		dtos[date] = dto
	}

	payload, err := json.Marshal(dtos)
	if err != nil {
		return "", fmt.Errorf("marshal health records: %w", err)
	}
	return string(payload), nil
}

// DecodeRecords parses a date-keyed record map. Missing optional fields take
// their documented defaults; only an unparseable document fails.
func DecodeRecords(raw string) (map[string]Record, error) {
	var dtos map[string]recordDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal health records: %w", err)
	}

	records := make(map[string]Record, len(dtos))
	for date, dto := range dtos {
		rec := Record{}
		if dto.BaseScore != nil && *dto.BaseScore >= 0 && *dto.BaseScore <= maxBaseScore {
			rec.BaseScore = dto.BaseScore
		}
		if len(dto.Deductions) > 0 {
			rec.Deductions = make(map[DeductionKind]int, len(dto.Deductions))
			for kind, count := range dto.Deductions {
				if count < 0 {
					count = 0
				}
				rec.Deductions[DeductionKind(kind)] = count
			}
		}
		if len(dto.LastClicks) > 0 {
			rec.LastClicks = make(map[DeductionKind]time.Time, len(dto.LastClicks))
			for kind, clicked := range dto.LastClicks {
				parsed, err := time.Parse(time.RFC3339, clicked)
				if err != nil {
					continue
				}
				rec.LastClicks[DeductionKind(kind)] = parsed.UTC()
			}
		}
		records[date] = rec
	}
	return records, nil
}
