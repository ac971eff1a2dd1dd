package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crewdeck/crewdeck/internal/routine"
	"github.com/crewdeck/crewdeck/internal/task"
	"github.com/crewdeck/crewdeck/pkg/cerr"
	"github.com/crewdeck/crewdeck/pkg/timezone"
)

// Client talks to the crewdeck server's JSON API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return cerr.NewError(cerr.Internal, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to build request", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, fmt.Sprintf("request to %s failed", path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Internal, fmt.Sprintf("failed to decode response from %s", path), err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	code := cerr.NewCodeFromHTTPStatus(resp.StatusCode)
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return cerr.NewError(code, body.Message, nil)
	}
	return cerr.NewError(code, fmt.Sprintf("server returned status %d", resp.StatusCode), nil)
}

type dueResponse struct {
	Due []routine.Due `json:"due"`
}

// DueRoutines asks the server which routines are due at the given instant.
// The local weekday, hour and minute must describe now in the caller's
// configured timezone.
func (c *Client) DueRoutines(ctx context.Context, now time.Time, local timezone.LocalTime) ([]routine.Due, error) {
	q := url.Values{}
	q.Set("now", strconv.FormatInt(now.UnixMilli(), 10))
	q.Set("day_of_week", strconv.Itoa(local.DayOfWeek))
	q.Set("hour", strconv.Itoa(local.Hour))
	q.Set("minute", strconv.Itoa(local.Minute))

	var resp dueResponse
	if err := c.do(ctx, http.MethodGet, "/api/routines/due", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Due, nil
}

type triggerResponse struct {
	TaskID string `json:"taskId"`
}

// TriggerRoutine fires a due routine, returning the id of the created task.
func (c *Client) TriggerRoutine(ctx context.Context, id string) (string, error) {
	var resp triggerResponse
	if err := c.do(ctx, http.MethodPost, "/api/routines/"+id+"/trigger", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

type routineListResponse struct {
	Routines []*routine.RoutineJSON `json:"routines"`
}

func (c *Client) ListRoutines(ctx context.Context, enabledOnly bool) ([]*routine.RoutineJSON, error) {
	q := url.Values{}
	if enabledOnly {
		q.Set("enabled", "true")
	}
	var resp routineListResponse
	if err := c.do(ctx, http.MethodGet, "/api/routines", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Routines, nil
}

type CreateRoutineRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Priority    task.Priority        `json:"priority,omitempty"`
	Schedule    routine.ScheduleJSON `json:"schedule"`
	Color       string               `json:"color,omitempty"`
	Enabled     *bool                `json:"enabled,omitempty"`
}

func (c *Client) CreateRoutine(ctx context.Context, req *CreateRoutineRequest) (*routine.RoutineJSON, error) {
	var resp routine.RoutineJSON
	if err := c.do(ctx, http.MethodPost, "/api/routines", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetRoutine(ctx context.Context, id string) (*routine.RoutineJSON, error) {
	var resp routine.RoutineJSON
	if err := c.do(ctx, http.MethodGet, "/api/routines/"+id, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type UpdateRoutineRequest struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Priority    *task.Priority        `json:"priority,omitempty"`
	Schedule    *routine.ScheduleJSON `json:"schedule,omitempty"`
	Color       *string               `json:"color,omitempty"`
	Enabled     *bool                 `json:"enabled,omitempty"`
}

func (c *Client) UpdateRoutine(ctx context.Context, id string, req *UpdateRoutineRequest) (*routine.RoutineJSON, error) {
	var resp routine.RoutineJSON
	if err := c.do(ctx, http.MethodPatch, "/api/routines/"+id, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteRoutine(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/routines/"+id, nil, nil, nil)
}

type taskListResponse struct {
	Tasks []*task.TaskJSON `json:"tasks"`
	Total int              `json:"total"`
}

func (c *Client) ListTasks(ctx context.Context, status string, limit, offset int) ([]*task.TaskJSON, int, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var resp taskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Tasks, resp.Total, nil
}

type AuditEntry struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type auditListResponse struct {
	Entries []*AuditEntry `json:"entries"`
	Total   int           `json:"total"`
}

func (c *Client) ListAuditLog(ctx context.Context, limit, offset int) ([]*AuditEntry, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var resp auditListResponse
	if err := c.do(ctx, http.MethodGet, "/api/auditlog", q, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Entries, resp.Total, nil
}

type timezoneListResponse struct {
	Timezones []timezone.ZoneOption `json:"timezones"`
}

func (c *Client) ListTimezones(ctx context.Context) ([]timezone.ZoneOption, error) {
	var resp timezoneListResponse
	if err := c.do(ctx, http.MethodGet, "/api/timezones", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Timezones, nil
}
