package task

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Persister is the key-value capability a Store persists through.
// Load returns nil data and a nil error when nothing has been stored yet.
type Persister interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load and save problems.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how ids are assigned to new tasks.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithCategories registers categories beyond the built-in ones.
func WithCategories(extra ...Category) Option {
	return func(s *Store) {
		for _, c := range extra {
			s.addCategory(NormalizeCategory(string(c)))
		}
	}
}

// Store owns the task collection. Every mutation is written through to the
// Persister; when that write fails the in-memory collection stays
// authoritative until the next successful save.
type Store struct {
	mu         sync.Mutex
	backend    Persister
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
	categories []Category
	tasks      []Task
	loadErr    error
}

// Open loads the collection from backend and returns a ready Store.
// Missing data starts an empty collection. Unreadable or corrupt data also
// starts empty; the problem is logged and kept for LoadError.
func Open(backend Persister, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		logger:     log.New(io.Discard),
		now:        time.Now,
		newID:      uuid.NewString,
		categories: BuiltinCategories(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := s.backend.Load()
	if err != nil {
		s.loadErr = &PersistenceError{Op: "load", Err: err}
		s.logger.Error("Could not read stored tasks, starting empty", "err", err)
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		s.logger.Debug("No stored tasks")
		return
	}

	tasks, err := Decode(data)
	if err != nil {
		s.loadErr = &PersistenceError{Op: "load", Err: err}
		s.logger.Warn("Stored tasks are corrupt, starting empty", "err", err)
		return
	}

	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			s.logger.Warn("Dropping task with duplicate id", "id", t.ID, "title", t.Title)
			continue
		}
		seen[t.ID] = true
		s.addCategory(t.Category)
		s.tasks = append(s.tasks, t)
	}
	s.logger.Debug("Loaded tasks", "count", len(s.tasks))
}

// LoadError returns the problem met while loading, or nil.
func (s *Store) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Categories returns the categories tasks may use.
func (s *Store) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.categories)
}

func (s *Store) addCategory(c Category) {
	s.categories = appendCategory(s.categories, c)
}

func appendCategory(cats []Category, c Category) []Category {
	if c == "" || slices.Contains(cats, c) {
		return cats
	}
	return append(cats, c)
}

// Add creates a task. Empty priority and category take their defaults.
// When the write-through fails the created task is still returned, together
// with a *PersistenceError.
func (s *Store) Add(title string, priority Priority, category Category, deadline *Date) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if priority == "" {
		priority = DefaultPriority
	}
	if category == "" {
		category = DefaultCategory
	}
	t := Task{
		Title:    strings.TrimSpace(title),
		Priority: priority,
		Category: NormalizeCategory(string(category)),
	}
	if deadline != nil {
		d := *deadline
		t.Deadline = &d
	}
	if err := s.validate(&t); err != nil {
		return Task{}, err
	}

	now := s.now().UTC()
	t.ID = s.newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks = append(s.tasks, t)

	return t.clone(), s.persist()
}

func (s *Store) validate(t *Task) error {
	return validateTask(t, s.categories)
}

func validateTask(t *Task, categories []Category) error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Err: ErrEmptyTitle}
	}
	if t.Priority.rank() > PriorityLow.rank() {
		return &ValidationError{
			Field: "priority",
			Err:   fmt.Errorf("unknown priority %q, must be one of: %s", t.Priority, joinNames(Priorities())),
		}
	}
	if !slices.Contains(categories, t.Category) {
		return &ValidationError{
			Field: "category",
			Err:   fmt.Errorf("unknown category %q, must be one of: %s", t.Category, joinNames(categories)),
		}
	}
	return nil
}

func joinNames[T ~string](vals []T) string {
	names := make([]string, len(vals))
	for i, v := range vals {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// Patch lists the fields an update changes; nil fields are left alone.
type Patch struct {
	Title         *string
	Priority      *Priority
	Category      *Category
	Deadline      *Date
	ClearDeadline bool
	Completed     *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Priority == nil && p.Category == nil &&
		p.Deadline == nil && !p.ClearDeadline && p.Completed == nil
}

func (p Patch) apply(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = NormalizeCategory(string(*p.Category))
	}
	if p.ClearDeadline {
		t.Deadline = nil
	}
	if p.Deadline != nil {
		d := *p.Deadline
		t.Deadline = &d
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Update merges patch onto the task with id. The id and creation time
// never change.
func (s *Store) Update(id string, patch Patch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, &NotFoundError{ID: id}
	}
	updated := s.tasks[i].clone()
	patch.apply(&updated)
	if err := s.validate(&updated); err != nil {
		return Task{}, err
	}
	s.touch(&updated)
	s.tasks[i] = updated

	return updated.clone(), s.persist()
}

// Toggle flips the completion state of the task with id.
func (s *Store) Toggle(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, &NotFoundError{ID: id}
	}
	t := &s.tasks[i]
	t.Completed = !t.Completed
	s.touch(t)

	return t.clone(), s.persist()
}

// Remove deletes the task with id unconditionally.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return s.persist()
}

// RemoveCompleted deletes every completed task and returns how many were
// removed.
func (s *Store) RemoveCompleted() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.tasks)
	s.tasks = slices.DeleteFunc(s.tasks, func(t Task) bool { return t.Completed })
	removed := before - len(s.tasks)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.persist()
}

// Import merges tasks whose ids are not already present and returns how
// many were added. Tasks without an id get a fresh one. Categories used by
// the incoming tasks are registered. Nothing is added or registered when any
// incoming task is invalid.
func (s *Store) Import(tasks []Task) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.tasks))
	for _, t := range s.tasks {
		existing[t.ID] = true
	}

	cats := slices.Clone(s.categories)
	var added []Task
	for i, in := range tasks {
		t := in.clone()
		t.Title = strings.TrimSpace(t.Title)
		t.Category = NormalizeCategory(string(t.Category))
		if t.Priority == "" {
			t.Priority = DefaultPriority
		}
		if t.Category == "" {
			t.Category = DefaultCategory
		}
		cats = appendCategory(cats, t.Category)
		if err := validateTask(&t, cats); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("tasks[%d].%s", i, ve.Field)
			}
			return 0, err
		}
		if t.ID == "" {
			t.ID = s.newID()
		}
		if existing[t.ID] {
			continue
		}
		existing[t.ID] = true
		now := s.now().UTC()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.Before(t.CreatedAt) {
			t.UpdatedAt = t.CreatedAt
		}
		added = append(added, t)
	}
	s.categories = cats
	if len(added) == 0 {
		return 0, nil
	}
	s.tasks = append(s.tasks, added...)
	return len(added), s.persist()
}

// Get returns the task with id.
func (s *Store) Get(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, &NotFoundError{ID: id}
	}
	return s.tasks[i].clone(), nil
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Task {
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.clone()
	}
	return out
}

// Stats summarizes the whole collection.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Pending returns the number of tasks not yet completed.
func (st Stats) Pending() int {
	return st.Total - st.Completed
}

// Stats counts all tasks and completed tasks, ignoring any filter.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Completed {
			st.Completed++
		}
	}
	return st
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}

// touch refreshes updatedAt, never setting it before createdAt.
func (s *Store) touch(t *Task) {
	now := s.now().UTC()
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

// persist writes the collection through to the backend. Callers hold mu.
func (s *Store) persist() error {
	data, err := Encode(s.tasks)
	if err == nil {
		err = s.backend.Save(data)
	}
	if err != nil {
		s.logger.Error("Could not save tasks, keeping changes in memory", "err", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}
