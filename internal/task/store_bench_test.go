package task

import (
	"fmt"
	"testing"
	"time"
)

type benchBackend struct{ data []byte }

func (b *benchBackend) Load() ([]byte, error) { return b.data, nil }
func (b *benchBackend) Save(data []byte) error {
	b.data = data
	return nil
}

func benchTasks(n int) []Task {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	priorities := []Priority{PriorityHigh, PriorityMedium, PriorityLow}
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{
			ID:        fmt.Sprintf("T%04d", i),
			Title:     fmt.Sprintf("Task %d", i),
			Priority:  priorities[i%3],
			Category:  CategoryWork,
			Completed: i%4 == 0,
			CreatedAt: created,
			UpdatedAt: created,
		}
	}
	return tasks
}

// BenchmarkDecode benchmarks schema validation and decoding of 100 tasks.
func BenchmarkDecode(b *testing.B) {
	data, err := Encode(benchTasks(100))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(data); err != nil {
			b.Fatalf("Decode failed: %v", err)
		}
	}
}

// BenchmarkList benchmarks filtered, searched and sorted listing.
func BenchmarkList(b *testing.B) {
	data, err := Encode(benchTasks(500))
	if err != nil {
		b.Fatal(err)
	}
	s := Open(&benchBackend{data: data})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.List(FilterPending, "task 1")
	}
}

// BenchmarkToggle benchmarks a mutation including the write-through.
func BenchmarkToggle(b *testing.B) {
	data, err := Encode(benchTasks(100))
	if err != nil {
		b.Fatal(err)
	}
	s := Open(&benchBackend{data: data})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Toggle("T0050"); err != nil {
			b.Fatal(err)
		}
	}
}
