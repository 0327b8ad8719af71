// Package export writes task collections as a JSON backup bundle, CSV or a
// PDF report, and reads bundles back for import.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nibzard/taskflow/internal/task"
	"github.com/nibzard/taskflow/internal/taskdir"
)

// Version is written into every bundle.
const Version = "1.0.0"

// Format selects the export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatPDF}
}

// ParseFormat parses a format name. Empty means json.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatJSON, nil
	}
	formats := Formats()
	if slices.Contains(formats, f) {
		return f, nil
	}
	names := make([]string, len(formats))
	for i, format := range formats {
		names[i] = string(format)
	}
	return "", fmt.Errorf("unknown export format %q (want one of %s)", s, strings.Join(names, ", "))
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Bundle is the JSON backup document.
type Bundle struct {
	Tasks      []task.Task `json:"tasks"`
	ExportDate time.Time   `json:"exportDate"`
	Version    string      `json:"version"`
}

// NewBundle wraps tasks in a bundle dated now.
func NewBundle(tasks []task.Task, now time.Time) Bundle {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return Bundle{Tasks: tasks, ExportDate: now.UTC(), Version: Version}
}

// Source is what the exporter reads from. *task.Store satisfies it.
type Source interface {
	All() []task.Task
	Stats() task.Stats
}

// Exporter renders a Source in any supported format.
type Exporter struct {
	src Source
	now func() time.Time
}

// NewExporter returns an exporter over src. A nil now uses time.Now.
func NewExporter(src Source, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{src: src, now: now}
}

// Export renders the whole collection in format.
func (e *Exporter) Export(format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the whole collection in format to w.
func (e *Exporter) Write(w io.Writer, format Format) error {
	now := e.now()
	switch format {
	case FormatJSON:
		return WriteJSON(w, NewBundle(e.src.All(), now))
	case FormatCSV:
		return WriteCSV(w, e.src.All())
	case FormatPDF:
		tasks := e.src.All()
		task.SortForDisplay(tasks)
		return WritePDF(w, tasks, e.src.Stats(), now)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}


// Filename returns the default file name for an export made now.
func (e *Exporter) Filename(format Format) string {
	return taskdir.ExportName(e.now(), string(format))
}

// WriteFile writes an export into dir using the default file name and
// returns the path written.
func (e *Exporter) WriteFile(dir string, format Format) (string, error) {
	data, err := e.Export(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := taskdir.ExportPath(dir, e.now(), string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// WriteJSON writes b with 2-space indentation and a trailing newline.
func WriteJSON(w io.Writer, b Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

var csvHeader = []string{"id", "title", "priority", "category", "deadline", "completed", "createdAt", "updatedAt"}

// WriteCSV writes one row per task in collection order.
func WriteCSV(w io.Writer, tasks []task.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		deadline := ""
		if t.Deadline != nil {
			deadline = t.Deadline.String()
		}
		row := []string{
			t.ID,
			t.Title,
			string(t.Priority),
			string(t.Category),
			deadline,
			strconv.FormatBool(t.Completed),
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF writes a one-line-per-task report headed by the stats.
func WritePDF(w io.Writer, tasks []task.Task, stats task.Stats, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(now)
	pdf.SetTitle("TaskFlow report", true)
	// Core fonts are cp1252; translate titles such as "Reunião" from UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "TaskFlow report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	summary := fmt.Sprintf("%s  -  %d tasks, %d completed, %d pending",
		now.Format(task.DateLayout), stats.Total, stats.Completed, stats.Pending())
	pdf.MultiCell(0, 6, summary, "0", "L", false)
	pdf.Ln(4)

	today := task.DateOf(now)
	for _, t := range tasks {
		pdf.MultiCell(0, 6, tr(reportLine(t, today)), "0", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func reportLine(t task.Task, today task.Date) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	line := fmt.Sprintf("%s %s  (%s, %s)", mark, t.Title, t.Priority, t.Category.Label())
	if t.Deadline != nil {
		line += "  due " + t.Deadline.String()
		if info := t.DeadlineOn(today); !t.Completed && info.State != task.DeadlineNone {
			line += ", " + info.String()
		}
	}
	return line
}

// ReadBundle parses an import document: either a bundle or a bare task
// array. Both forms are validated against the embedded schema.
func ReadBundle(data []byte) ([]task.Task, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &task.ValidationError{Err: fmt.Errorf("empty import document")}
	}
	if trimmed[0] == '[' {
		return task.Decode(trimmed)
	}

	if err := task.Validate(trimmed, task.SchemaBundle); err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return nil, &task.ValidationError{Err: fmt.Errorf("decode bundle: %w", err)}
	}
	if b.Version != "" && !strings.HasPrefix(b.Version, "1.") {
		return nil, &task.ValidationError{Field: "version", Err: fmt.Errorf("unsupported bundle version %q", b.Version)}
	}
	tasks, err := task.Normalize(b.Tasks)
	if err != nil {
		var ve *task.ValidationError
		if errors.As(err, &ve) {
			return nil, &task.ValidationError{Field: "tasks" + ve.Field, Err: ve.Err}
		}
		return nil, err
	}
	return tasks, nil
}

// ReadFile reads an import document from path.
func ReadFile(path string) ([]task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return ReadBundle(data)
}
