package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nibzard/taskflow/internal/export"
	"github.com/nibzard/taskflow/internal/task"
)

const maxBodyBytes = 1 << 20

// createRequest is the body of POST /tasks.
type createRequest struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Category string `json:"category"`
	Deadline string `json:"deadline"`
}

// updateRequest is the body of PATCH /tasks/{id}. Absent fields are left
// alone; a null deadline clears it.
type updateRequest struct {
	Title     *string         `json:"title"`
	Priority  *string         `json:"priority"`
	Category  *string         `json:"category"`
	Deadline  json.RawMessage `json:"deadline"`
	Completed *bool           `json:"completed"`
}

type statsResponse struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type clearResponse struct {
	Removed int `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// listTasks handles GET /tasks.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := task.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, &task.ValidationError{Field: "filter", Err: err})
		return
	}
	tasks := s.store.List(filter, r.URL.Query().Get("q"))
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// createTask handles POST /tasks.
func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var priority task.Priority
	if req.Priority != "" {
		p, err := task.ParsePriority(req.Priority)
		if err != nil {
			writeError(w, http.StatusBadRequest, &task.ValidationError{Field: "priority", Err: err})
			return
		}
		priority = p
	}
	var deadline *task.Date
	if req.Deadline != "" {
		d, err := task.ParseDate(req.Deadline)
		if err != nil {
			writeError(w, http.StatusBadRequest, &task.ValidationError{Field: "deadline", Err: err})
			return
		}
		deadline = &d
	}

	created, err := s.store.Add(req.Title, priority, task.Category(req.Category), deadline)
	if !s.mutationOK(w, err) {
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// getTask handles GET /tasks/{taskID}.
func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.Get(mux.Vars(r)["taskID"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updateTask handles PATCH /tasks/{taskID}.
func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := s.store.Update(mux.Vars(r)["taskID"], patch)
	if !s.mutationOK(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (req updateRequest) patch() (task.Patch, error) {
	var p task.Patch
	p.Title = req.Title
	p.Completed = req.Completed
	if req.Priority != nil {
		pr, err := task.ParsePriority(*req.Priority)
		if err != nil {
			return p, &task.ValidationError{Field: "priority", Err: err}
		}
		p.Priority = &pr
	}
	if req.Category != nil {
		c := task.Category(*req.Category)
		p.Category = &c
	}
	switch {
	case len(req.Deadline) == 0:
	case bytes.Equal(req.Deadline, []byte("null")):
		p.ClearDeadline = true
	default:
		var s string
		if err := json.Unmarshal(req.Deadline, &s); err != nil {
			return p, &task.ValidationError{Field: "deadline", Err: errors.New("deadline must be a YYYY-MM-DD string or null")}
		}
		if s == "" {
			p.ClearDeadline = true
			break
		}
		d, err := task.ParseDate(s)
		if err != nil {
			return p, &task.ValidationError{Field: "deadline", Err: err}
		}
		p.Deadline = &d
	}
	return p, nil
}

// toggleTask handles POST /tasks/{taskID}/toggle.
func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	toggled, err := s.store.Toggle(mux.Vars(r)["taskID"])
	if !s.mutationOK(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, toggled)
}

// deleteTask handles DELETE /tasks/{taskID}.
func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.store.Remove(mux.Vars(r)["taskID"])
	if !s.mutationOK(w, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearCompleted handles DELETE /tasks?completed=true.
func (s *Server) clearCompleted(w http.ResponseWriter, r *http.Request) {
	completed, _ := strconv.ParseBool(r.URL.Query().Get("completed"))
	if !completed {
		writeError(w, http.StatusBadRequest, &task.ValidationError{
			Field: "completed",
			Err:   errors.New("DELETE /tasks requires completed=true"),
		})
		return
	}
	n, err := s.store.RemoveCompleted()
	if !s.mutationOK(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Removed: n})
}

// stats handles GET /stats.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	writeJSON(w, http.StatusOK, statsResponse{Total: st.Total, Completed: st.Completed, Pending: st.Pending()})
}

// exportTasks handles GET /export?format=json|csv|pdf.
func (s *Server) exportTasks(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, &task.ValidationError{Field: "format", Err: err})
		return
	}
	data, err := s.exporter.Export(format)
	if err != nil {
		s.logger.Error("Export failed", "format", format, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exporter.Filename(format)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// mutationOK writes an error response and returns false unless err is nil
// or only a persistence failure, which is reported in WarningHeader.
func (s *Server) mutationOK(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	if task.IsPersistence(err) {
		w.Header().Set(WarningHeader, err.Error())
		return true
	}
	writeError(w, statusFor(err), err)
	return false
}

func statusFor(err error) int {
	switch {
	case task.IsValidation(err):
		return http.StatusBadRequest
	case task.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &task.ValidationError{Err: fmt.Errorf("invalid request payload: %w", err)}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var ve *task.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}
