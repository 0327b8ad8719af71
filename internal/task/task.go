package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// DefaultPriority is used when a task is added without a priority.
const DefaultPriority = PriorityMedium

// Priorities returns the known priorities in display order.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

var priorityAliases = map[string]Priority{
	"high":   PriorityHigh,
	"h":      PriorityHigh,
	"alta":   PriorityHigh,
	"medium": PriorityMedium,
	"med":    PriorityMedium,
	"m":      PriorityMedium,
	"media":  PriorityMedium,
	"média":  PriorityMedium,
	"low":    PriorityLow,
	"l":      PriorityLow,
	"baixa":  PriorityLow,
}

// ParsePriority parses a priority name, accepting short forms and the
// legacy Portuguese values.
func ParsePriority(s string) (Priority, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if p, ok := priorityAliases[key]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q, must be one of: %s", s, joinNames(Priorities()))
}

// rank orders priorities for display: high sorts first.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Next returns the priority after p, wrapping from low to high.
func (p Priority) Next() Priority {
	switch p {
	case PriorityHigh:
		return PriorityMedium
	case PriorityMedium:
		return PriorityLow
	default:
		return PriorityHigh
	}
}

// Category groups tasks by area of life.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryStudies  Category = "studies"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// DefaultCategory is used when a task is added without a category.
const DefaultCategory = CategoryPersonal

// BuiltinCategories returns the categories every store knows about.
func BuiltinCategories() []Category {
	return []Category{CategoryPersonal, CategoryWork, CategoryStudies, CategoryHealth, CategoryOther}
}

var categoryAliases = map[string]Category{
	"pessoal":  CategoryPersonal,
	"trabalho": CategoryWork,
	"estudos":  CategoryStudies,
	"saude":    CategoryHealth,
	"saúde":    CategoryHealth,
	"outros":   CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryPersonal: "Personal",
	CategoryWork:     "Work",
	CategoryStudies:  "Studies",
	CategoryHealth:   "Health",
	CategoryOther:    "Other",
}

// NormalizeCategory lowercases a category name and maps legacy names to
// their current form. It does not check that the category is known.
func NormalizeCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return Category(key)
}

// Label returns the display label of the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// DateLayout is the wire and display layout of calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day, stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the date for the given day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// DaysUntil returns the number of days from d to other; negative when
// other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is a single to-do record.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Priority  Priority  `json:"priority"`
	Category  Category  `json:"category"`
	Deadline  *Date     `json:"deadline"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts both string ids and the numeric ids written by the
// older browser version, which also wrote "" for a cleared deadline.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		ID       json.RawMessage `json:"id"`
		Deadline json.RawMessage `json:"deadline"`
		*plain
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Deadline = nil
	if d := bytes.TrimSpace(aux.Deadline); len(d) > 0 && !bytes.Equal(d, []byte("null")) && !bytes.Equal(d, []byte(`""`)) {
		var date Date
		if err := json.Unmarshal(d, &date); err != nil {
			return fmt.Errorf("decode deadline: %w", err)
		}
		t.Deadline = &date
	}
	id := bytes.TrimSpace(aux.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		t.ID = ""
	case id[0] == '"':
		if err := json.Unmarshal(id, &t.ID); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		t.ID = n.String()
	}
	return nil
}

func (t Task) clone() Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}
