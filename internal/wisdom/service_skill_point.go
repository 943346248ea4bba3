package wisdom

import (
	"context"
	"slices"
)

// SkillPoints returns a copy of the skill point collection.
func (s *Service) SkillPoints() []SkillPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.agg.SkillPoints)
}

// SkillPointByID looks up one skill point.
func (s *Service) SkillPointByID(pointID string) (SkillPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.skillPointIndex(pointID); idx >= 0 {
		return s.agg.SkillPoints[idx], nil
	}
	return SkillPoint{}, ErrSkillPointNotFound
}

// CreateSkillPoint validates, appends, and persists a new skill point.
func (s *Service) CreateSkillPoint(ctx context.Context, input CreateSkillPointInput) (SkillPoint, error) {
	s.mu.Lock()
	point, err := CreateSkillPoint(input, s.clock, s.idGenerator)
	if err != nil {
		s.mu.Unlock()
		return SkillPoint{}, err
	}
	s.agg.SkillPoints = append(s.agg.SkillPoints, point)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return point, err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return point, nil
}

// DeleteSkillPoint removes a skill point. Dependent tasks are kept with
// dangling references.
func (s *Service) DeleteSkillPoint(ctx context.Context, pointID string) error {
	s.mu.Lock()
	idx := s.skillPointIndex(pointID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrSkillPointNotFound
	}
	s.agg.SkillPoints = append(s.agg.SkillPoints[:idx], s.agg.SkillPoints[idx+1:]...)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// AddSkillPointExperience injects experience into a skill point. Each time
// the point overflows its capacity it resets and forwards the full capacity
// amount upward; the parent skill absorbs the forwarded total through its
// own level-up loop. A missing point id is a no-op, and a dangling parent
// reference drops the forwarded experience silently.
func (s *Service) AddSkillPointExperience(ctx context.Context, pointID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	idx := s.skillPointIndex(pointID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.injectPointExperienceLocked(idx, amount)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// injectPointExperienceLocked applies experience to the point at idx and
// cascades any overflow into the parent skill. Callers must hold the mutex
// and persist afterwards.
func (s *Service) injectPointExperienceLocked(idx, amount int) {
	forward := s.agg.SkillPoints[idx].gainExperience(amount)
	if forward == 0 {
		return
	}
	if parent := s.skillIndex(s.agg.SkillPoints[idx].SkillID); parent >= 0 {
		s.agg.Skills[parent].gainExperience(forward)
	}
}

// skillPointIndex resolves a skill point id to its slice index, or -1.
// Callers must hold the mutex.
func (s *Service) skillPointIndex(pointID string) int {
	for i, point := range s.agg.SkillPoints {
		if point.ID == pointID {
			return i
		}
	}
	return -1
}
