package wisdom

import (
	"encoding/json"
	"fmt"
	"time"
)

// Aggregate is the complete wisdom snapshot persisted under one storage key.
// Any write must contain all three collections; the storage layer has no
// concept of sub-keys.
type Aggregate struct {
	Skills      []Skill
	SkillPoints []SkillPoint
	Tasks       []Task
}

// Wire DTOs. Optional fields are pointers so that records written by older
// releases deserialize with documented defaults instead of failing the
// whole parse. Timestamps are ISO-8601 strings.

type skillDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Level     *int    `json:"level,omitempty"`
	CurrentXP *int    `json:"currentXp,omitempty"`
	MaxXP     *int    `json:"maxXp,omitempty"`
	Deadline  *string `json:"deadline,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
}

type skillPointDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	SkillID   string  `json:"skillId"`
	Level     *int    `json:"level,omitempty"`
	CurrentXP *int    `json:"currentXp,omitempty"`
	MaxXP     *int    `json:"maxXp,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
}

type taskDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	SkillID      string  `json:"skillId"`
	SkillName    string  `json:"skillName"`
	MaxCount     *int    `json:"maxCount,omitempty"`
	CurrentCount *int    `json:"currentCount,omitempty"`
	SavedCount   *int    `json:"savedCount,omitempty"`
	CreatedAt    *string `json:"createdAt,omitempty"`
}

type aggregateDTO struct {
	Skills      []skillDTO      `json:"skills"`
	SkillPoints []skillPointDTO `json:"skillPoints"`
	Tasks       []taskDTO       `json:"tasks"`
}

// EncodeAggregate serializes a complete wisdom snapshot.
func EncodeAggregate(agg Aggregate) (string, error) {
	dto := aggregateDTO{
		Skills:      make([]skillDTO, 0, len(agg.Skills)),
		SkillPoints: make([]skillPointDTO, 0, len(agg.SkillPoints)),
		Tasks:       make([]taskDTO, 0, len(agg.Tasks)),
	}
	for _, skill := range agg.Skills {
		dto.Skills = append(dto.Skills, encodeSkill(skill))
	}
	for _, point := range agg.SkillPoints {
		dto.SkillPoints = append(dto.SkillPoints, encodeSkillPoint(point))
	}
	for _, task := range agg.Tasks {
		dto.Tasks = append(dto.Tasks, encodeTask(task))
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		return "", fmt.Errorf("marshal wisdom aggregate: %w", err)
	}
	return string(payload), nil
}

// DecodeAggregate parses a complete wisdom snapshot. Missing optional fields
// take their documented defaults; only an unparseable document fails.
func DecodeAggregate(raw string) (Aggregate, error) {
	var dto aggregateDTO
	if err := json.Unmarshal([]byte(raw), &dto); err != nil {
		return Aggregate{}, fmt.Errorf("unmarshal wisdom aggregate: %w", err)
	}

	agg := Aggregate{}
	for _, s := range dto.Skills {
		agg.Skills = append(agg.Skills, decodeSkill(s))
	}
	for _, p := range dto.SkillPoints {
		agg.SkillPoints = append(agg.SkillPoints, decodeSkillPoint(p))
	}
	for _, t := range dto.Tasks {
		agg.Tasks = append(agg.Tasks, decodeTask(t))
	}
	return agg, nil
}

// DecodeSkillList parses a bare JSON array of skills, the shape of the
// legacy wisdom_skills key.
func DecodeSkillList(raw string) ([]Skill, error) {
	var dtos []skillDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal skill list: %w", err)
	}
	skills := make([]Skill, 0, len(dtos))
	for _, s := range dtos {
		skills = append(skills, decodeSkill(s))
	}
	return skills, nil
}

// DecodeSkillPointList parses a bare JSON array of skill points, the shape
// of the legacy wisdom_skill_points key.
func DecodeSkillPointList(raw string) ([]SkillPoint, error) {
	var dtos []skillPointDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal skill point list: %w", err)
	}
	points := make([]SkillPoint, 0, len(dtos))
	for _, p := range dtos {
		points = append(points, decodeSkillPoint(p))
	}
	return points, nil
}

// DecodeTaskList parses a bare JSON array of tasks, the shape of the legacy
// wisdom_tasks key.
func DecodeTaskList(raw string) ([]Task, error) {
	var dtos []taskDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal task list: %w", err)
	}
	tasks := make([]Task, 0, len(dtos))
	for _, t := range dtos {
		tasks = append(tasks, decodeTask(t))
	}
	return tasks, nil
}

func encodeSkill(skill Skill) skillDTO {
	dto := skillDTO{
		ID:        skill.ID,
		Name:      skill.Name,
		Level:     intPtr(skill.Level),
		CurrentXP: intPtr(skill.CurrentXP),
		MaxXP:     intPtr(skill.MaxXP),
		CreatedAt: encodeTime(skill.CreatedAt),
	}
	if skill.Deadline != nil {
		dto.Deadline = encodeTime(*skill.Deadline)
	}
	return dto
}

func decodeSkill(dto skillDTO) Skill {
	skill := Skill{
		ID:        dto.ID,
		Name:      dto.Name,
		Level:     intOr(dto.Level, 1),
		CurrentXP: intOr(dto.CurrentXP, 0),
		MaxXP:     intOr(dto.MaxXP, defaultMaxXP),
		CreatedAt: decodeTime(dto.CreatedAt),
	}
	if skill.Level < 1 {
		skill.Level = 1
	}
	if skill.MaxXP <= 0 {
		skill.MaxXP = defaultMaxXP
	}
	if skill.CurrentXP < 0 {
		skill.CurrentXP = 0
	}
	// Re-normalize records written before the overflow invariant existed.
	for skill.CurrentXP >= skill.MaxXP {
		skill.CurrentXP -= skill.MaxXP
		skill.Level++
	}
	if dto.Deadline != nil {
		deadline := decodeTime(dto.Deadline)
		if !deadline.IsZero() {
			skill.Deadline = &deadline
		}
	}
	return skill
}

func encodeSkillPoint(point SkillPoint) skillPointDTO {
	return skillPointDTO{
		ID:        point.ID,
		Name:      point.Name,
		SkillID:   point.SkillID,
		Level:     intPtr(point.Level),
		CurrentXP: intPtr(point.CurrentXP),
		MaxXP:     intPtr(point.MaxXP),
		CreatedAt: encodeTime(point.CreatedAt),
	}
}

func decodeSkillPoint(dto skillPointDTO) SkillPoint {
	point := SkillPoint{
		ID:        dto.ID,
		Name:      dto.Name,
		SkillID:   dto.SkillID,
		Level:     intOr(dto.Level, 1),
		CurrentXP: intOr(dto.CurrentXP, 0),
		MaxXP:     intOr(dto.MaxXP, defaultMaxXP),
		CreatedAt: decodeTime(dto.CreatedAt),
	}
	if point.Level < 1 {
		point.Level = 1
	}
	if point.MaxXP <= 0 {
		point.MaxXP = defaultMaxXP
	}
	if point.CurrentXP < 0 {
		point.CurrentXP = 0
	}
	// Drop overflow without forwarding: the cascade only runs on live
	// mutations, never while decoding stored state.
	for point.CurrentXP >= point.MaxXP {
		point.CurrentXP -= point.MaxXP
	}
	return point
}

func encodeTask(task Task) taskDTO {
	return taskDTO{
		ID:           task.ID,
		Name:         task.Name,
		SkillID:      task.SkillID,
		SkillName:    task.SkillName,
		MaxCount:     intPtr(task.MaxCount),
		CurrentCount: intPtr(task.CurrentCount),
		SavedCount:   intPtr(task.SavedCount),
		CreatedAt:    encodeTime(task.CreatedAt),
	}
}

func decodeTask(dto taskDTO) Task {
	task := Task{
		ID:           dto.ID,
		Name:         dto.Name,
		SkillID:      dto.SkillID,
		SkillName:    dto.SkillName,
		MaxCount:     intOr(dto.MaxCount, defaultMaxCount),
		CurrentCount: intOr(dto.CurrentCount, 0),
		CreatedAt:    decodeTime(dto.CreatedAt),
	}
	if task.MaxCount <= 0 {
		task.MaxCount = defaultMaxCount
	}
	if task.CurrentCount < 0 {
		task.CurrentCount = 0
	}
	if task.CurrentCount > task.MaxCount {
		task.CurrentCount = task.MaxCount
	}
	// Records written before the commit protocol carry no baseline; treat
	// their persisted count as committed.
	task.SavedCount = intOr(dto.SavedCount, task.CurrentCount)
	if task.SavedCount < 0 {
		task.SavedCount = 0
	}
	if task.SavedCount > task.MaxCount {
		task.SavedCount = task.MaxCount
	}
	// CurrentCount may sit below SavedCount in records written while a
	// decrement was in flight; the commit protocol restores the baseline.
	return task
}

func intPtr(v int) *int {
	return &v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
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
