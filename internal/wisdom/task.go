package wisdom

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTaskNotFound indicates a task id with no matching record.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidMaxCount indicates a non-positive completion target.
	ErrInvalidMaxCount = errors.New("max count must be greater than zero")
	// ErrAtCommittedFloor indicates a decrement below the persisted
	// baseline, which the commit protocol forbids.
	ErrAtCommittedFloor = errors.New("progress is at the committed baseline")
)

// TaskCompletionXP is the fixed experience injected into a task's linked
// skill point once per committed completion transition.
const TaskCompletionXP = 50

// defaultMaxCount is the completion target applied when a stored record
// does not specify one.
const defaultMaxCount = 1

// Task is the leaf progression entity: a bounded counter linked to a skill
// point through SkillID. CurrentCount moves freely in memory between
// SavedCount and MaxCount; SavedCount is the persisted baseline and never
// regresses.
type Task struct {
	ID      string
	Name    string
	SkillID string
	// SkillName is denormalized for display.
	SkillName    string
	MaxCount     int
	CurrentCount int
	SavedCount   int
	CreatedAt    time.Time
}

// CreateTaskInput describes the input for creating a task.
type CreateTaskInput struct {
	Name      string
	SkillID   string
	SkillName string
	// MaxCount defaults to one when zero.
	MaxCount int
}

// CreateTask creates a new task with validation.
func CreateTask(input CreateTaskInput, clock func() time.Time, idGenerator func() (string, error)) (Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Task{}, ErrEmptyName
	}
	maxCount := input.MaxCount
	if maxCount == 0 {
		maxCount = defaultMaxCount
	}
	if maxCount < 0 {
		return Task{}, ErrInvalidMaxCount
	}

	taskID, err := idGenerator()
	if err != nil {
		return Task{}, fmt.Errorf("generate task id: %w", err)
	}

	return Task{
		ID:           taskID,
		Name:         name,
		SkillID:      strings.TrimSpace(input.SkillID),
		SkillName:    strings.TrimSpace(input.SkillName),
		MaxCount:     maxCount,
		CurrentCount: 0,
		SavedCount:   0,
		CreatedAt:    clock().UTC(),
	}, nil
}

// Completed reports whether the task's progress has reached its target.
func (t Task) Completed() bool {
	return t.CurrentCount >= t.MaxCount
}
