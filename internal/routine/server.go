package routine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/crewdeck/crewdeck/internal/eventbus"
	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

type Server struct {
	repo     Repository
	service  *Service
	eventBus *eventbus.Bus
}

func NewServer(repo Repository, service *Service, eventBus *eventbus.Bus) *Server {
	return &Server{
		repo:     repo,
		service:  service,
		eventBus: eventBus,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/routines", s.handleList)
	r.Post("/routines", s.handleCreate)
	// Must be registered before /routines/{id} wildcards in spirit; chi
	// routes static segments with priority over params either way.
	r.Get("/routines/due", s.handleDue)
	r.Get("/routines/{id}", s.handleGet)
	r.Patch("/routines/{id}", s.handleUpdate)
	r.Delete("/routines/{id}", s.handleDelete)
	r.Post("/routines/{id}/trigger", s.handleTrigger)
}

type ScheduleJSON struct {
	Type       string `json:"type"`
	DaysOfWeek []int  `json:"daysOfWeek"`
	Hour       int    `json:"hour"`
	Minute     int    `json:"minute"`
}

type RoutineJSON struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Priority        task.Priority `json:"priority,omitempty"`
	Schedule        ScheduleJSON  `json:"schedule"`
	Color           string        `json:"color,omitempty"`
	Enabled         bool          `json:"enabled"`
	LastTriggeredAt *time.Time    `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func ToJSON(rt *Routine) *RoutineJSON {
	return &RoutineJSON{
		ID:          rt.ID,
		Title:       rt.Title,
		Description: rt.Description,
		Priority:    rt.Priority,
		Schedule: ScheduleJSON{
			Type:       rt.Schedule.Type,
			DaysOfWeek: rt.Schedule.DaysOfWeek,
			Hour:       rt.Schedule.Hour,
			Minute:     rt.Schedule.Minute,
		},
		Color:           rt.Color,
		Enabled:         rt.Enabled,
		LastTriggeredAt: rt.LastTriggeredAt,
		CreatedAt:       rt.CreatedAt,
		UpdatedAt:       rt.UpdatedAt,
	}
}

type listResponse struct {
	Routines []*RoutineJSON `json:"routines"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	enabledOnly := r.URL.Query().Get("enabled") == "true"
	routines, err := s.repo.List(ctx, enabledOnly)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	out := make([]*RoutineJSON, len(routines))
	for i, rt := range routines {
		out[i] = ToJSON(rt)
	}
	cerr.SetJSONResponse(ctx, listResponse{Routines: out})
}

type createRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    task.Priority `json:"priority"`
	Schedule    ScheduleJSON  `json:"schedule"`
	Color       string        `json:"color"`
	Enabled     *bool         `json:"enabled"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Schedule.Type == "" {
		req.Schedule.Type = ScheduleTypeWeekly
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	now := time.Now().UTC()
	rt := &Routine{
		ID:          ulid.Make().String(),
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Schedule: WeeklySchedule{
			Type:       req.Schedule.Type,
			DaysOfWeek: req.Schedule.DaysOfWeek,
			Hour:       req.Schedule.Hour,
			Minute:     req.Schedule.Minute,
		},
		Color:     req.Color,
		Enabled:   enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rt.Validate(); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Create(ctx, rt); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.EventTypeRoutineCreated, rt.ID, nil)
	cerr.SetJSONResponse(ctx, ToJSON(rt))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rt, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, ToJSON(rt))
}

type updateRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Priority    *task.Priority `json:"priority"`
	Schedule    *ScheduleJSON  `json:"schedule"`
	Color       *string        `json:"color"`
	Enabled     *bool          `json:"enabled"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	rt, err := s.repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Title != nil {
		rt.Title = *req.Title
	}
	if req.Description != nil {
		rt.Description = *req.Description
	}
	if req.Priority != nil {
		rt.Priority = *req.Priority
	}
	if req.Schedule != nil {
		typ := req.Schedule.Type
		if typ == "" {
			typ = ScheduleTypeWeekly
		}
		rt.Schedule = WeeklySchedule{
			Type:       typ,
			DaysOfWeek: req.Schedule.DaysOfWeek,
			Hour:       req.Schedule.Hour,
			Minute:     req.Schedule.Minute,
		}
	}
	if req.Color != nil {
		rt.Color = *req.Color
	}
	if req.Enabled != nil {
		rt.Enabled = *req.Enabled
	}
	if err := rt.Validate(); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	rt.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, rt); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.eventBus.PublishNew(eventbus.EventTypeRoutineUpdated, rt.ID, nil)
	cerr.SetJSONResponse(ctx, ToJSON(rt))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.eventBus.PublishNew(eventbus.EventTypeRoutineDeleted, id, nil)
	cerr.SetJSONResponse(ctx, struct{}{})
}

type dueResponse struct {
	Due []Due `json:"due"`
}

// handleDue is the due-routine query: the caller passes the current UTC
// instant in unix milliseconds plus the zone-local weekday/hour/minute it
// derived for its configured zone.
func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	nowMS, err := strconv.ParseInt(q.Get("now"), 10, 64)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid now %q", q.Get("now")), err)
		return
	}
	local := timezone.LocalTime{}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"day_of_week", &local.DayOfWeek},
		{"hour", &local.Hour},
		{"minute", &local.Minute},
	} {
		v, err := strconv.Atoi(q.Get(f.name))
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, fmt.Sprintf("invalid %s %q", f.name, q.Get(f.name)), err)
			return
		}
		*f.dst = v
	}

	due, err := s.service.DueRoutines(ctx, time.UnixMilli(nowMS).UTC(), local)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, dueResponse{Due: due})
}

type triggerResponse struct {
	TaskID string `json:"taskId"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID, err := s.service.Trigger(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, triggerResponse{TaskID: taskID})
}
