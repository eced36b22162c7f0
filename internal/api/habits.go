package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rankflow/rankflow/internal/app/dashboard"
	"github.com/rankflow/rankflow/internal/app/persist"
	"github.com/rankflow/rankflow/internal/domain"
)

// HabitView is a habit with its streak as of today.
type HabitView struct {
	domain.Habit
	Streak domain.Streak `json:"streak"`
}

// CreateHabitRequest is the body of POST /api/habits.
type CreateHabitRequest struct {
	Title     string `json:"title"`
	Frequency string `json:"frequency,omitempty"`
}

// ToggleHabitRequest is the optional body of POST /api/habits/{id}/toggle.
// An empty date means today.
type ToggleHabitRequest struct {
	Date string `json:"date,omitempty"`
}

// CreateNoteRequest is the body of POST /api/notes.
type CreateNoteRequest struct {
	Content string `json:"content"`
}

// DashboardResponse is the dashboard payload plus background save state.
type DashboardResponse struct {
	dashboard.Stats
	Persist *persist.Stats `json:"persist,omitempty"`
}

// ─── Habits ─────────────────────────────────────────────────────────────────

func (s *Server) habitView(h domain.Habit) HabitView {
	st, _ := s.habits.Streak(h.ID)
	return HabitView{Habit: h, Streak: st}
}

// GET /api/habits
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits := s.habits.List()
	views := make([]HabitView, 0, len(habits))
	for _, h := range habits {
		views = append(views, s.habitView(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

// POST /api/habits
func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h, err := s.habits.Add(r.Context(), req.Title, req.Frequency)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.habitView(h))
}

// DELETE /api/habits/{id}
func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.habits.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/habits/{id}/toggle
func (s *Server) handleToggleHabit(w http.ResponseWriter, r *http.Request) {
	var req ToggleHabitRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h, err := s.habits.Toggle(r.Context(), chi.URLParam(r, "id"), req.Date)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.habitView(h))
}

// ─── Notes ──────────────────────────────────────────────────────────────────

// GET /api/notes
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.notes.List()})
}

// POST /api/notes
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	n, err := s.notes.Add(r.Context(), req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// DELETE /api/notes/{id}
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Dashboard ──────────────────────────────────────────────────────────────

// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resp := DashboardResponse{
		Stats: dashboard.Compute(s.engine.Snapshot().Tasks, s.habits.List(), s.now()),
	}
	if s.writer != nil {
		st := s.writer.Stats()
		resp.Persist = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/calendar/{date}
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	date, err := domain.NormalizeDate(chi.URLParam(r, "date"))
	if err != nil || date == "" {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidDate.Error())
		return
	}
	tasks := s.engine.Snapshot().Project(domain.CriterionUrgency)
	writeJSON(w, http.StatusOK, dashboard.Calendar(date, tasks, s.habits.List()))
}
