// Package lifecycle derives an application's decommissioning state from the
// status and timestamps stored on its record. Nothing here performs I/O.
//
//	active --(grace period set)--> decommissioning --(time passes)--> grace_period_expired
//	decommissioning --(cancel)--> active
//	any state except deleted --(force delete)--> deleted
package lifecycle

import "time"

// Status is the derived lifecycle status.
type Status string

const (
	StatusActive             Status = "active"
	StatusDecommissioning    Status = "decommissioning"
	StatusGracePeriodExpired Status = "grace_period_expired"
	StatusDeleted            Status = "deleted"
)

const day = 24 * time.Hour

var defaultGracePeriods = map[string]int{
	"dev":   7,
	"stage": 14,
	"prod":  30,
}

// fallbackGracePeriodDays applies to unknown environments and to an unknown
// environment scope.
const fallbackGracePeriodDays = 30

// GracePeriod describes the retention window of a decommissioning application.
type GracePeriod struct {
	StartedAt     time.Time `json:"started_at"`
	EndsAt        time.Time `json:"ends_at"`
	RemainingDays int       `json:"remaining_days"`
	IsExpired     bool      `json:"is_expired"`
}

// State is what callers may show and do for an application right now.
type State struct {
	Status            Status       `json:"status"`
	IsDecommissioning bool         `json:"is_decommissioning"`
	IsDeleted         bool         `json:"is_deleted"`
	CanCancel         bool         `json:"can_cancel"`
	CanForceDelete    bool         `json:"can_force_delete"`
	GracePeriod       *GracePeriod `json:"grace_period,omitempty"`
}

// Calculator evaluates time-dependent rules against Now.
type Calculator struct {
	Now func() time.Time
}

var wallClock = Calculator{Now: time.Now}

func (c Calculator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// DefaultGracePeriodDays returns the grace period for one environment.
func DefaultGracePeriodDays(environment string) int {
	if days, ok := defaultGracePeriods[environment]; ok {
		return days
	}
	return fallbackGracePeriodDays
}

// CalculateGracePeriodEnd returns start plus the grace period. A positive
// overrideDays wins; otherwise the longest default among environments applies,
// and an empty environment list falls back to the prod default.
func CalculateGracePeriodEnd(start time.Time, environments []string, overrideDays int) time.Time {
	return start.AddDate(0, 0, gracePeriodDays(environments, overrideDays))
}

func gracePeriodDays(environments []string, overrideDays int) int {
	if overrideDays > 0 {
		return overrideDays
	}
	if len(environments) == 0 {
		return DefaultGracePeriodDays("prod")
	}
	longest := 0
	for _, env := range environments {
		if d := DefaultGracePeriodDays(env); d > longest {
			longest = d
		}
	}
	return longest
}

// IsGracePeriodExpired reports whether endsAt has been reached.
func (c Calculator) IsGracePeriodExpired(endsAt time.Time) bool {
	return !c.now().Before(endsAt)
}

// RemainingGracePeriodDays returns whole days left, rounding partial days up,
// never below zero.
func (c Calculator) RemainingGracePeriodDays(endsAt time.Time) int {
	left := endsAt.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return int((left + day - 1) / day)
}

// CalculateState derives the lifecycle state. Rules are evaluated in order:
// deleted is terminal; decommissioning needs a grace period end to count;
// everything else is active.
func (c Calculator) CalculateState(status Status, decommissioningStartedAt, gracePeriodEndsAt *time.Time) State {
	if status == StatusDeleted {
		return State{Status: StatusDeleted, IsDeleted: true}
	}

	if status == StatusDecommissioning && gracePeriodEndsAt != nil {
		now := c.now()
		startedAt := now
		if decommissioningStartedAt != nil {
			startedAt = *decommissioningStartedAt
		}
		expired := c.IsGracePeriodExpired(*gracePeriodEndsAt)
		derived := StatusDecommissioning
		if expired {
			derived = StatusGracePeriodExpired
		}
		return State{
			Status:            derived,
			IsDecommissioning: true,
			CanCancel:         !expired,
			CanForceDelete:    true,
			GracePeriod: &GracePeriod{
				StartedAt:     startedAt,
				EndsAt:        *gracePeriodEndsAt,
				RemainingDays: c.RemainingGracePeriodDays(*gracePeriodEndsAt),
				IsExpired:     expired,
			},
		}
	}

	// decommissioning without an end date lands here too
	return State{Status: StatusActive, CanForceDelete: true}
}

// IsGracePeriodExpired reports whether endsAt has been reached on the wall clock.
func IsGracePeriodExpired(endsAt time.Time) bool {
	return wallClock.IsGracePeriodExpired(endsAt)
}

// RemainingGracePeriodDays is the wall-clock variant of Calculator.RemainingGracePeriodDays.
func RemainingGracePeriodDays(endsAt time.Time) int {
	return wallClock.RemainingGracePeriodDays(endsAt)
}

// CalculateState is the wall-clock variant of Calculator.CalculateState.
func CalculateState(status Status, decommissioningStartedAt, gracePeriodEndsAt *time.Time) State {
	return wallClock.CalculateState(status, decommissioningStartedAt, gracePeriodEndsAt)
}
