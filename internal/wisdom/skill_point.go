package wisdom

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSkillPointNotFound indicates a skill point id with no matching record.
var ErrSkillPointNotFound = errors.New("skill point not found")

// SkillPoint is the mid-level progression entity, linked to a parent skill
// through SkillID. Unlike a skill, a point never levels up on overflow: each
// overflow resets its experience and forwards the full capacity amount to
// the parent skill. A SkillID that no longer resolves is tolerated and makes
// the forwarding a no-op.
type SkillPoint struct {
	ID        string
	Name      string
	SkillID   string
	Level     int
	CurrentXP int
	MaxXP     int
	CreatedAt time.Time
}

// CreateSkillPointInput describes the input for creating a skill point.
type CreateSkillPointInput struct {
	Name    string
	SkillID string
	// MaxXP defaults to the standard capacity when zero.
	MaxXP int
}

// CreateSkillPoint creates a new skill point with validation.
func CreateSkillPoint(input CreateSkillPointInput, clock func() time.Time, idGenerator func() (string, error)) (SkillPoint, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return SkillPoint{}, ErrEmptyName
	}
	maxXP := input.MaxXP
	if maxXP == 0 {
		maxXP = defaultMaxXP
	}
	if maxXP < 0 {
		return SkillPoint{}, ErrInvalidMaxXP
	}

	pointID, err := idGenerator()
	if err != nil {
		return SkillPoint{}, fmt.Errorf("generate skill point id: %w", err)
	}

	return SkillPoint{
		ID:        pointID,
		Name:      name,
		SkillID:   strings.TrimSpace(input.SkillID),
		Level:     1,
		CurrentXP: 0,
		MaxXP:     maxXP,
		CreatedAt: clock().UTC(),
	}, nil
}

// gainExperience adds amount and drains overflows, returning the cumulative
// experience to forward to the parent skill: the full capacity amount once
// per overflow. The point's own level never changes here.
func (p *SkillPoint) gainExperience(amount int) (forward int) {
	p.CurrentXP += amount
	for p.CurrentXP >= p.MaxXP {
		p.CurrentXP -= p.MaxXP
		forward += p.MaxXP
	}
	return forward
}
