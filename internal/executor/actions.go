package executor

import (
	"fmt"
	"strings"
)

// Action is one workday state transition.
type Action int

const (
	Start Action = iota
	Pause
	Resume
	End
)

var actionNames = [...]string{"START", "PAUSE", "RESUME", "END"}

// scheduleKeys are the keys an action is looked up under in schedule.json.
var scheduleKeys = [...]string{"start", "break_start", "break_end", "end"}

// Actions returns every action in workday order.
func Actions() []Action {
	return []Action{Start, Pause, Resume, End}
}

func (a Action) String() string {
	if a < Start || a > End {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// ScheduleKey is the schedule file key for the action.
func (a Action) ScheduleKey() string {
	if a < Start || a > End {
		return ""
	}
	return scheduleKeys[a]
}

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q (want one of %s)", s, strings.Join(actionNames[:], ", "))
}

// RunMode decides how a confirmation dialog is resolved.
type RunMode int

const (
	// Commit accepts the confirmation and persists the transition.
	Commit RunMode = iota
	// Simulate walks the same path but cancels the confirmation.
	Simulate
)

func (m RunMode) String() string {
	if m == Simulate {
		return "simulate"
	}
	return "commit"
}
