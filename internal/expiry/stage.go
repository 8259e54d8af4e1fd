// internal/expiry/stage.go
//
// Expiry stages for pending applications.
//
// Context
// -------
// A pending application moves through fixed checkpoints before it is
// deleted:
//
//	fresh → month-warning → week-warning → day-warning → expired
//
// The stage is a pure function of expires_at and the current time.  The
// stage marker stored on the record is the last reminder that was confirmed
// sent.  A reminder is due when the current stage is a warning stage later
// than the marker, so re-running classification never re-fires a stage.
//
// Notes
// -----
//   - Boundaries are inclusive: exactly 30 days before expiry is already a
//     month warning, and exactly at expiry the record is expired.
//   - When a run is missed and the record jumps two stages, only the latest
//     stage is sent.
package expiry

import (
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/application"
)

// Stage is one expiry checkpoint.
type Stage string

const (
	Fresh        Stage = "fresh"
	MonthWarning Stage = "month-warning"
	WeekWarning  Stage = "week-warning"
	DayWarning   Stage = "day-warning"
	Expired      Stage = "expired"
)

const day = 24 * time.Hour

// Offsets before expiry at which each warning stage begins.
var checkpoints = []struct {
	stage  Stage
	before time.Duration
}{
	{Expired, 0},
	{DayWarning, 2 * day},
	{WeekWarning, 14 * day},
	{MonthWarning, 30 * day},
}

// Window is how many days ahead of expiry the runner looks.
const Window = 30

func (s Stage) rank() int {
	switch s {
	case MonthWarning:
		return 1
	case WeekWarning:
		return 2
	case DayWarning:
		return 3
	case Expired:
		return 4
	default:
		return 0
	}
}

// Warning reports whether s sends a reminder.
func (s Stage) Warning() bool {
	return s == MonthWarning || s == WeekWarning || s == DayWarning
}

// StageAt returns the stage of an application expiring at expiresAt.
func StageAt(expiresAt, now time.Time) Stage {
	remaining := expiresAt.Sub(now)
	for _, cp := range checkpoints {
		if remaining <= cp.before {
			return cp.stage
		}
	}
	return Fresh
}

// Classification is the verdict for one application at one instant.
type Classification struct {
	Stage       Stage `json:"stage"`
	DueReminder bool  `json:"dueReminder"`
	DueDeletion bool  `json:"dueDeletion"`
}

// Classify decides what, if anything, is owed to rec at now.
func Classify(rec application.Pending, now time.Time) Classification {
	stage := StageAt(rec.ExpiresAt, now)
	return Classification{
		Stage:       stage,
		DueReminder: stage.Warning() && stage.rank() > Stage(rec.ReminderStage).rank(),
		DueDeletion: stage == Expired,
	}
}
