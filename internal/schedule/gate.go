package schedule

import (
	"time"

	"go.uber.org/zap"
)

// Action is what the gate needs to know about a workday action.
type Action interface {
	String() string
	ScheduleKey() string
}

// Reason explains a gate decision.
type Reason string

const (
	ReasonWeekend      Reason = "weekend"
	ReasonHoliday      Reason = "holiday"
	ReasonNotScheduled Reason = "not_scheduled"
	ReasonScheduled    Reason = "scheduled"
	ReasonForced       Reason = "forced"
)

// Decision is the outcome of the gate.
type Decision struct {
	Permitted bool
	Reason    Reason
	Bucket    string
	At        string
}

// Permitted decides whether action may run on today. Weekends and holidays
// deny regardless of force; force only skips the schedule lookup.
func Permitted(action Action, today time.Time, holidays HolidaySet, sched Config, force bool) Decision {
	if IsWeekend(today) {
		return Decision{Reason: ReasonWeekend}
	}
	if holidays.Contains(today) {
		return Decision{Reason: ReasonHoliday}
	}

	bucket := Bucket(today)
	if force {
		return Decision{Permitted: true, Reason: ReasonForced, Bucket: bucket}
	}

	at, ok := sched.Lookup(bucket, action.ScheduleKey())
	if !ok {
		return Decision{Reason: ReasonNotScheduled, Bucket: bucket}
	}
	return Decision{Permitted: true, Reason: ReasonScheduled, Bucket: bucket, At: at}
}

// Gate bundles the calendar inputs loaded for one invocation.
type Gate struct {
	Holidays HolidaySet
	Schedule Config
	log      *zap.Logger
}

// NewGate returns a gate over the given calendar inputs.
func NewGate(holidays HolidaySet, sched Config, log *zap.Logger) *Gate {
	return &Gate{Holidays: holidays, Schedule: sched, log: log}
}

// Check runs Permitted and logs the decision.
func (g *Gate) Check(action Action, today time.Time, force bool) Decision {
	d := Permitted(action, today, g.Holidays, g.Schedule, force)
	fields := []zap.Field{
		zap.String("action", action.String()),
		zap.String("date", today.Format(dateLayout)),
		zap.String("weekday", today.Weekday().String()),
		zap.String("reason", string(d.Reason)),
		zap.Bool("force", force),
	}
	if d.Bucket != "" {
		fields = append(fields, zap.String("bucket", d.Bucket))
	}
	if d.At != "" {
		fields = append(fields, zap.String("scheduled", d.At))
	}
	if d.Permitted {
		g.log.Info("Action permitted today.", fields...)
	} else {
		g.log.Info("Action skipped today.", fields...)
	}
	return d
}
