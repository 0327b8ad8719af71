package task

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Filter names a predicate applied before display.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterPending      Filter = "pending"
	FilterCompleted    Filter = "completed"
	FilterHighPriority Filter = "high"
)

// Filters returns the known filters in display order.
func Filters() []Filter {
	return []Filter{FilterAll, FilterPending, FilterCompleted, FilterHighPriority}
}

var filterAliases = map[string]Filter{
	"":             FilterAll,
	"all":          FilterAll,
	"todas":        FilterAll,
	"pending":      FilterPending,
	"pendentes":    FilterPending,
	"open":         FilterPending,
	"completed":    FilterCompleted,
	"done":         FilterCompleted,
	"concluidas":   FilterCompleted,
	"high":         FilterHighPriority,
	"highpriority": FilterHighPriority,
	"alta":         FilterHighPriority,
}

// ParseFilter parses a filter name. An empty name means FilterAll.
func ParseFilter(s string) (Filter, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "")
	if f, ok := filterAliases[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q, must be one of: %s", s, joinNames(Filters()))
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterPending:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	case FilterHighPriority:
		return t.Priority == PriorityHigh
	default:
		return true
	}
}

// matchSearch reports whether the title or category contains term, which
// must already be lowercased.
func matchSearch(t Task, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), term) ||
		strings.Contains(strings.ToLower(string(t.Category)), term)
}

// compareDisplay orders incomplete tasks before completed ones, then by
// priority from high to low.
func compareDisplay(a, b Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}
	return a.Priority.rank() - b.Priority.rank()
}

// SortForDisplay sorts tasks in display order, keeping insertion order
// among equal tasks.
func SortForDisplay(tasks []Task) {
	slices.SortStableFunc(tasks, compareDisplay)
}

// Query returns the tasks passing filter and containing searchTerm in their
// title or category, in display order. The sequence is computed each time it
// is iterated, so it reflects the collection at that moment.
func (s *Store) Query(filter Filter, searchTerm string) iter.Seq[Task] {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	return func(yield func(Task) bool) {
		for _, t := range s.selectTasks(filter, term) {
			if !yield(t) {
				return
			}
		}
	}
}

// List collects Query results into a slice.
func (s *Store) List(filter Filter, searchTerm string) []Task {
	return slices.Collect(s.Query(filter, searchTerm))
}

func (s *Store) selectTasks(filter Filter, term string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Task
	for _, t := range s.tasks {
		if filter.Match(t) && matchSearch(t, term) {
			out = append(out, t.clone())
		}
	}
	SortForDisplay(out)
	return out
}
