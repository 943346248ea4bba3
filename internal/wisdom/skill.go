package wisdom

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyName indicates a blank entity name.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrInvalidMaxXP indicates a non-positive experience capacity.
	ErrInvalidMaxXP = errors.New("max xp must be greater than zero")
	// ErrInvalidAmount indicates a non-positive experience amount.
	ErrInvalidAmount = errors.New("experience amount must be greater than zero")
	// ErrSkillNotFound indicates a skill id with no matching record.
	ErrSkillNotFound = errors.New("skill not found")
)

// defaultMaxXP is the experience capacity applied when a stored record or a
// creation input does not specify one.
const defaultMaxXP = 100

// Skill is the top-level progression entity. A skill levels up whenever its
// experience reaches capacity; after any mutation 0 <= CurrentXP < MaxXP
// holds.
type Skill struct {
	ID        string
	Name      string
	Level     int
	CurrentXP int
	MaxXP     int
	// Deadline is absent for permanent skills.
	Deadline  *time.Time
	CreatedAt time.Time
}

// CreateSkillInput describes the input for creating a skill.
type CreateSkillInput struct {
	Name string
	// MaxXP defaults to the standard capacity when zero.
	MaxXP    int
	Deadline *time.Time
}

// CreateSkill creates a new skill with validation.
func CreateSkill(input CreateSkillInput, clock func() time.Time, idGenerator func() (string, error)) (Skill, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Skill{}, ErrEmptyName
	}
	maxXP := input.MaxXP
	if maxXP == 0 {
		maxXP = defaultMaxXP
	}
	if maxXP < 0 {
		return Skill{}, ErrInvalidMaxXP
	}

	skillID, err := idGenerator()
	if err != nil {
		return Skill{}, fmt.Errorf("generate skill id: %w", err)
	}

	return Skill{
		ID:        skillID,
		Name:      name,
		Level:     1,
		CurrentXP: 0,
		MaxXP:     maxXP,
		Deadline:  input.Deadline,
		CreatedAt: clock().UTC(),
	}, nil
}

// gainExperience adds amount and applies level-ups until the experience is
// back under capacity. A single injection can carry enough experience to
// level up more than once.
func (s *Skill) gainExperience(amount int) {
	s.CurrentXP += amount
	for s.CurrentXP >= s.MaxXP {
		s.CurrentXP -= s.MaxXP
		s.Level++
	}
}

// Expired reports whether the skill's deadline has passed. Skills without a
// deadline never expire.
func (s Skill) Expired(now time.Time) bool {
	if s.Deadline == nil {
		return false
	}
	return !now.Before(*s.Deadline)
}
