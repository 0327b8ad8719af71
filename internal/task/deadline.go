package task

import "fmt"

// DeadlineState classifies a deadline relative to a reference day.
type DeadlineState string

const (
	DeadlineNone     DeadlineState = "none"
	DeadlineOverdue  DeadlineState = "overdue"
	DeadlineToday    DeadlineState = "today"
	DeadlineTomorrow DeadlineState = "tomorrow"
	DeadlineUpcoming DeadlineState = "upcoming"
)

// DeadlineInfo describes when a task is due.
type DeadlineInfo struct {
	State DeadlineState
	Days  int // days left; negative when overdue
}

// Overdue reports whether the deadline has passed.
func (d DeadlineInfo) Overdue() bool {
	return d.State == DeadlineOverdue
}

// String renders the info the way task lists print it.
func (d DeadlineInfo) String() string {
	switch d.State {
	case DeadlineOverdue:
		if d.Days == -1 {
			return "1 day overdue"
		}
		return fmt.Sprintf("%d days overdue", -d.Days)
	case DeadlineToday:
		return "today"
	case DeadlineTomorrow:
		return "tomorrow"
	case DeadlineUpcoming:
		return fmt.Sprintf("in %d days", d.Days)
	default:
		return ""
	}
}

// DeadlineOn classifies the task's deadline as seen on day.
func (t Task) DeadlineOn(day Date) DeadlineInfo {
	if t.Deadline == nil {
		return DeadlineInfo{State: DeadlineNone}
	}
	days := day.DaysUntil(*t.Deadline)
	switch {
	case days < 0:
		return DeadlineInfo{State: DeadlineOverdue, Days: days}
	case days == 0:
		return DeadlineInfo{State: DeadlineToday}
	case days == 1:
		return DeadlineInfo{State: DeadlineTomorrow, Days: 1}
	default:
		return DeadlineInfo{State: DeadlineUpcoming, Days: days}
	}
}
