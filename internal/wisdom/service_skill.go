package wisdom

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Skills returns a copy of the skill collection.
func (s *Service) Skills() []Skill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.agg.Skills)
}

// SkillByID looks up one skill.
func (s *Service) SkillByID(skillID string) (Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.skillIndex(skillID); idx >= 0 {
		return s.agg.Skills[idx], nil
	}
	return Skill{}, ErrSkillNotFound
}

// CreateSkill validates, appends, and persists a new skill.
func (s *Service) CreateSkill(ctx context.Context, input CreateSkillInput) (Skill, error) {
	s.mu.Lock()
	skill, err := CreateSkill(input, s.clock, s.idGenerator)
	if err != nil {
		s.mu.Unlock()
		return Skill{}, err
	}
	s.agg.Skills = append(s.agg.Skills, skill)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return skill, err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return skill, nil
}

// RenameSkill changes a skill's display name.
func (s *Service) RenameSkill(ctx context.Context, skillID, name string) (Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Skill{}, ErrEmptyName
	}

	s.mu.Lock()
	idx := s.skillIndex(skillID)
	if idx < 0 {
		s.mu.Unlock()
		return Skill{}, ErrSkillNotFound
	}
	s.agg.Skills[idx].Name = name
	skill := s.agg.Skills[idx]
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return skill, err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return skill, nil
}

// SetSkillDeadline sets or clears a skill's deadline. A nil deadline makes
// the skill permanent.
func (s *Service) SetSkillDeadline(ctx context.Context, skillID string, deadline *time.Time) (Skill, error) {
	s.mu.Lock()
	idx := s.skillIndex(skillID)
	if idx < 0 {
		s.mu.Unlock()
		return Skill{}, ErrSkillNotFound
	}
	s.agg.Skills[idx].Deadline = deadline
	skill := s.agg.Skills[idx]
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return skill, err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return skill, nil
}

// DeleteSkill removes a skill. Dependent skill points and tasks are kept;
// their references dangle, which makes future cascades into this id a no-op.
func (s *Service) DeleteSkill(ctx context.Context, skillID string) error {
	s.mu.Lock()
	idx := s.skillIndex(skillID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrSkillNotFound
	}
	s.agg.Skills = append(s.agg.Skills[:idx], s.agg.Skills[idx+1:]...)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// AddSkillExperience injects experience into a skill, levelling it up once
// per overflow. A missing skill id is a no-op, not an error.
func (s *Service) AddSkillExperience(ctx context.Context, skillID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	idx := s.skillIndex(skillID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.agg.Skills[idx].gainExperience(amount)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// ExpiredSkills returns the skills whose deadline has passed.
func (s *Service) ExpiredSkills(now time.Time) []Skill {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Skill
	for _, skill := range s.agg.Skills {
		if skill.Expired(now) {
			expired = append(expired, skill)
		}
	}
	return expired
}

// skillIndex resolves a skill id to its slice index, or -1. Callers must
// hold the mutex.
func (s *Service) skillIndex(skillID string) int {
	for i, skill := range s.agg.Skills {
		if skill.ID == skillID {
			return i
		}
	}
	return -1
}
