package agent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/crewdeck/crewdeck/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/agents", s.handleList)
	r.Post("/agents", s.handleCreate)
	r.Delete("/agents/{id}", s.handleDelete)
}

type agentJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toJSON(a *Agent) *agentJSON {
	return &agentJSON{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Role:        a.Role,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type listResponse struct {
	Agents []*agentJSON `json:"agents"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agents, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	out := make([]*agentJSON, len(agents))
	for i, a := range agents {
		out[i] = toJSON(a)
	}
	cerr.SetJSONResponse(ctx, listResponse{Agents: out})
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        Role   `json:"role"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name must not be empty", nil)
		return
	}
	if req.Role == "" {
		req.Role = RoleWorker
	}
	if !req.Role.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid role %q", req.Role), nil)
		return
	}

	now := time.Now().UTC()
	a := &Agent{
		ID:          ulid.Make().String(),
		Name:        req.Name,
		Description: req.Description,
		Role:        req.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, toJSON(a))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, struct{}{})
}
