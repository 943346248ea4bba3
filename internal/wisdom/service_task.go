package wisdom

import (
	"context"
	"slices"
)

// voucherTaskMaxCount is the completion target for tasks created by shop
// voucher purchases.
const voucherTaskMaxCount = 1

// Tasks returns a copy of the task collection.
func (s *Service) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.agg.Tasks)
}

// TaskByID looks up one task.
func (s *Service) TaskByID(taskID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.taskIndex(taskID); idx >= 0 {
		return s.agg.Tasks[idx], nil
	}
	return Task{}, ErrTaskNotFound
}

// CreateTask validates, appends, and persists a new task.
func (s *Service) CreateTask(ctx context.Context, input CreateTaskInput) (Task, error) {
	s.mu.Lock()
	task, err := CreateTask(input, s.clock, s.idGenerator)
	if err != nil {
		s.mu.Unlock()
		return Task{}, err
	}
	s.agg.Tasks = append(s.agg.Tasks, task)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return task, err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return task, nil
}

// CreateVoucherTask creates the task dispatched by a shop voucher purchase.
func (s *Service) CreateVoucherTask(ctx context.Context, name, skillID, skillName string) (Task, error) {
	return s.CreateTask(ctx, CreateTaskInput{
		Name:      name,
		SkillID:   skillID,
		SkillName: skillName,
		MaxCount:  voucherTaskMaxCount,
	})
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	idx := s.taskIndex(taskID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	s.agg.Tasks = append(s.agg.Tasks[:idx], s.agg.Tasks[idx+1:]...)
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// IncrementTask nudges a task's progress up in memory, clamped at the
// completion target. Nothing is persisted until CommitProgress runs.
func (s *Service) IncrementTask(taskID string) (Task, error) {
	s.mu.Lock()
	idx := s.taskIndex(taskID)
	if idx < 0 {
		s.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	if s.agg.Tasks[idx].CurrentCount < s.agg.Tasks[idx].MaxCount {
		s.agg.Tasks[idx].CurrentCount++
	}
	task := s.agg.Tasks[idx]
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return task, nil
}

// DecrementTask nudges a task's progress down in memory. Progress can never
// drop below the committed baseline.
func (s *Service) DecrementTask(taskID string) (Task, error) {
	s.mu.Lock()
	idx := s.taskIndex(taskID)
	if idx < 0 {
		s.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	if s.agg.Tasks[idx].CurrentCount <= s.agg.Tasks[idx].SavedCount {
		task := s.agg.Tasks[idx]
		s.mu.Unlock()
		return task, ErrAtCommittedFloor
	}
	s.agg.Tasks[idx].CurrentCount--
	task := s.agg.Tasks[idx]
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return task, nil
}

// CommitProgress commits every task's in-memory progress to its persisted
// baseline: committed = max(currentCount, savedCount), so the stored record
// never regresses. A task whose baseline crosses its completion target for
// the first time fires exactly one experience injection into its linked
// skill point. The whole batch persists as one aggregate write and
// observers are notified once.
func (s *Service) CommitProgress(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.agg.Tasks {
		task := &s.agg.Tasks[i]
		committed := max(task.CurrentCount, task.SavedCount)
		completing := task.SavedCount < task.MaxCount && committed >= task.MaxCount
		task.CurrentCount = committed
		task.SavedCount = committed
		if completing {
			s.injectTaskCompletionLocked(task.SkillID)
		}
	}
	if err := s.save(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watcherList()
	s.mu.Unlock()

	notifyAll(watchers)
	return nil
}

// injectTaskCompletionLocked routes one completion injection. The target id
// normally names a skill point; voucher tasks link straight to a skill, so
// a skill with that id is the fallback. A dangling id is a no-op. Callers
// must hold the mutex and persist afterwards.
func (s *Service) injectTaskCompletionLocked(targetID string) {
	if idx := s.skillPointIndex(targetID); idx >= 0 {
		s.injectPointExperienceLocked(idx, TaskCompletionXP)
		return
	}
	if idx := s.skillIndex(targetID); idx >= 0 {
		s.agg.Skills[idx].gainExperience(TaskCompletionXP)
	}
}

// taskIndex resolves a task id to its slice index, or -1. Callers must hold
// the mutex.
func (s *Service) taskIndex(taskID string) int {
	for i, task := range s.agg.Tasks {
		if task.ID == taskID {
			return i
		}
	}
	return -1
}
