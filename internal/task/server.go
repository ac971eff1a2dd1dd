package task

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/pkg/cerr"
)

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		eventBus: eventBus,
	}
}

// Routes mounts the task endpoints on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/tasks", s.handleList)
	r.Post("/tasks", s.handleCreate)
	r.Get("/tasks/{id}", s.handleGet)
	r.Patch("/tasks/{id}", s.handleUpdate)
}

type TaskJSON struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Priority        Priority          `json:"priority"`
	Status          Status            `json:"status"`
	AssignedAgentID string            `json:"assignedAgentId,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func ToJSON(t *Task) *TaskJSON {
	return &TaskJSON{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Priority:        t.Priority,
		Status:          t.Status,
		AssignedAgentID: t.AssignedAgentID,
		Metadata:        t.Metadata,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type listResponse struct {
	Tasks []*TaskJSON `json:"tasks"`
	Total int         `json:"total"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid status %q", status), nil)
		return
	}
	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	tasks, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	out := make([]*TaskJSON, len(tasks))
	for i, t := range tasks {
		out[i] = ToJSON(t)
	}
	cerr.SetJSONResponse(ctx, listResponse{Tasks: out, Total: total})
}

type createRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Priority        Priority          `json:"priority"`
	AssignedAgentID string            `json:"assignedAgentId"`
	Metadata        map[string]string `json:"metadata"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Title == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "title must not be empty", nil)
		return
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}
	if !req.Priority.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid priority %q", req.Priority), nil)
		return
	}

	now := time.Now().UTC()
	t := &Task{
		ID:              ulid.Make().String(),
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		Status:          StatusInbox,
		AssignedAgentID: req.AssignedAgentID,
		Metadata:        req.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, nil)
	cerr.SetJSONResponse(ctx, ToJSON(t))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, ToJSON(t))
}

type updateRequest struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Priority        *Priority `json:"priority"`
	Status          *Status   `json:"status"`
	AssignedAgentID *string   `json:"assignedAgentId"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "title must not be empty", nil)
			return
		}
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid priority %q", *req.Priority), nil)
			return
		}
		t.Priority = *req.Priority
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid status %q", *req.Status), nil)
			return
		}
		t.Status = *req.Status
	}
	if req.AssignedAgentID != nil {
		t.AssignedAgentID = *req.AssignedAgentID
	}
	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.EventTypeTaskUpdated, t.ID, nil)
	cerr.SetJSONResponse(ctx, ToJSON(t))
}
