package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rankflow/rankflow/internal/app/ranking"
	"github.com/rankflow/rankflow/internal/domain"
)

// ─── Request / Response Types ───────────────────────────────────────────────

// TaskListResponse mirrors the original collection endpoint payload.
type TaskListResponse struct {
	Documents []domain.Task    `json:"documents"`
	Criterion domain.Criterion `json:"criterion"`
	Version   uint64           `json:"version"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// RankRequest is the body of POST /api/tasks/{id}/rank.
type RankRequest struct {
	Criterion string `json:"criterion"`
	Rank      int    `json:"rank"`
}

// MoveRequest is the body of POST /api/tasks/{id}/move.
type MoveRequest struct {
	Criterion string `json:"criterion"`
	Direction string `json:"direction"`
}

type replaceRequest struct {
	Documents *[]domain.Task `json:"documents"`
}

// ─── Handlers ───────────────────────────────────────────────────────────────

// GET /api/tasks?criterion=urgency&active=true
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	c := domain.CriterionPriority
	if q := r.URL.Query().Get("criterion"); q != "" {
		parsed, err := domain.ParseCriterion(q)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		c = parsed
	}
	active := false
	if q := r.URL.Query().Get("active"); q != "" {
		b, err := strconv.ParseBool(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid active flag %q", q))
			return
		}
		active = b
	}

	snap := s.engine.Snapshot()
	docs := snap.Project(c)
	if active {
		docs = snap.ProjectActive(c)
	}
	if docs == nil {
		docs = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Documents: docs, Criterion: c, Version: snap.Version})
}

// POST /api/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t := domain.NewTask(req.Title, req.Description, req.DueDate, s.now())
	snap, err := s.engine.Append(t)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	created, _ := snap.Get(t.ID)
	writeJSON(w, http.StatusCreated, created)
}

// PUT /api/tasks replaces the whole collection. The body is either a bare
// array of tasks or {"documents": [...]}.
func (s *Server) handleReplaceTasks(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tasks, err := decodeReplace(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	snap, err := s.engine.Replace(tasks)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   snap.Len(),
		"version": snap.Version,
	})
}

// GET /api/tasks/{id}
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// PATCH /api/tasks/{id}
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var p ranking.Patch
	if err := decodeJSON(w, r, &p, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.writeTask(w, r, chi.URLParam(r, "id"), func(id string) (ranking.Snapshot, error) {
		return s.engine.Update(id, p)
	})
}

// DELETE /api/tasks/{id}
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.Remove(chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/tasks/{id}/rank
func (s *Server) handleSetRank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := domain.ParseCriterion(req.Criterion)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeTask(w, r, chi.URLParam(r, "id"), func(id string) (ranking.Snapshot, error) {
		return s.engine.SetRank(id, c, req.Rank)
	})
}

// POST /api/tasks/{id}/move
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	c, err := domain.ParseCriterion(req.Criterion)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeTask(w, r, chi.URLParam(r, "id"), func(id string) (ranking.Snapshot, error) {
		return s.engine.MoveAdjacent(id, c, dir)
	})
}

// POST /api/tasks/{id}/toggle
func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	s.writeTask(w, r, chi.URLParam(r, "id"), s.engine.ToggleStatus)
}

// writeTask runs one engine mutation and responds with the task as committed.
func (s *Server) writeTask(w http.ResponseWriter, r *http.Request, id string, op func(string) (ranking.Snapshot, error)) {
	snap, err := op(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	t, ok := snap.Get(id)
	if !ok {
		s.writeDomainError(w, r, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// decodeReplace accepts a bare array or an object holding "documents".
// An object without that key is rejected so a mistyped body cannot clear
// the collection.
func decodeReplace(body []byte) ([]domain.Task, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tasks []domain.Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var req replaceRequest
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if req.Documents == nil {
		return nil, errors.New(`missing "documents"`)
	}
	return *req.Documents, nil
}
