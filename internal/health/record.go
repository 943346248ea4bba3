// Package health tracks daily wellbeing scores keyed by calendar date.
//
// Each day carries an optional base score and three deduction counters, one
// per tracked habit slip. A day without its own base score inherits the most
// recent prior base score within a bounded lookback. Deduction clicks are
// rate-limited to once per reset window, with the window boundary at a fixed
// hour of day rather than midnight.
package health

import (
	"errors"
	"time"
)

// DeductionKind names one of the tracked deduction counters.
type DeductionKind string

// The three tracked deduction counters.
const (
	KindDiet     DeductionKind = "diet"
	KindSleep    DeductionKind = "sleep"
	KindExercise DeductionKind = "exercise"
)

var (
	// ErrInvalidScore indicates a base score outside 0..100.
	ErrInvalidScore = errors.New("base score must be in range 0..100")
	// ErrInvalidKind indicates an unknown deduction counter.
	ErrInvalidKind = errors.New("unknown deduction kind")
	// ErrAlreadyClicked indicates a second deduction click inside the
	// same reset window.
	ErrAlreadyClicked = errors.New("deduction already recorded in this window")
)

const (
	// maxBaseScore bounds a day's base score.
	maxBaseScore = 100
	// defaultBaseScore applies when no prior day within the lookback
	// carries a score.
	defaultBaseScore = 100
	// lookbackDays bounds how far base-score inheritance reaches.
	lookbackDays = 30
	// deductionPenalty is the score cost of one deduction click.
	deductionPenalty = 5
)

// dateLayout is the calendar-date storage key format.
const dateLayout = "2006-01-02"

// Record is one day's health entry.
type Record struct {
	// BaseScore is absent when the day inherits a prior score.
	BaseScore  *int
	Deductions map[DeductionKind]int
	LastClicks map[DeductionKind]time.Time
}

// validKind reports whether kind names a tracked counter.
func validKind(kind DeductionKind) bool {
	switch kind {
	case KindDiet, KindSleep, KindExercise:
		return true
	}
	return false
}

// DateKey formats a timestamp as its calendar-date storage key.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

func cloneRecord(rec Record) Record {
	out := Record{BaseScore: rec.BaseScore}
	if rec.Deductions != nil {
		out.Deductions = make(map[DeductionKind]int, len(rec.Deductions))
		for k, v := range rec.Deductions {
			out.Deductions[k] = v
		}
	}
	if rec.LastClicks != nil {
		out.LastClicks = make(map[DeductionKind]time.Time, len(rec.LastClicks))
		for k, v := range rec.LastClicks {
			out.LastClicks[k] = v
		}
	}
	return out
}
