package stridesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Stride HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Driver represents the API driver model.
type Driver struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Archived    bool   `json:"archived"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Milestone represents the API milestone model.
type Milestone struct {
	ID          string  `json:"id"`
	DriverID    string  `json:"driver_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Recurrence is a habit schedule.
type Recurrence struct {
	Frequency  string  `json:"frequency"`
	DaysOfWeek []int   `json:"days_of_week,omitempty"`
	DayOfMonth *int    `json:"day_of_month,omitempty"`
	EndDate    *string `json:"end_date,omitempty"`
}

// Action represents the API action model.
type Action struct {
	ID               string      `json:"id"`
	MilestoneID      string      `json:"milestone_id"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	Status           string      `json:"status"`
	EstimatedMinutes *int        `json:"estimated_minutes,omitempty"`
	Trigger          string      `json:"trigger,omitempty"`
	Recurrence       *Recurrence `json:"recurrence,omitempty"`
	LastOccurrence   *string     `json:"last_occurrence,omitempty"`
	CreatedAt        string      `json:"created_at"`
	UpdatedAt        string      `json:"updated_at"`
	CompletedAt      *string     `json:"completed_at,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Payload    string `json:"payload_json"`
}

// OrphanReport lists broken links in the hierarchy.
type OrphanReport struct {
	OrphanedDrivers    []Driver    `json:"orphaned_drivers"`
	OrphanedMilestones []Milestone `json:"orphaned_milestones"`
	OrphanedActions    []Action    `json:"orphaned_actions"`
}

// DriverImpact previews a cascading delete.
type DriverImpact struct {
	DriverID   string `json:"driver_id"`
	Milestones int    `json:"milestones"`
	Actions    int    `json:"actions"`
}

// Onboarding is the status plus the generated batch, if any.
type Onboarding struct {
	Onboarded   bool        `json:"onboarded"`
	Version     string      `json:"version,omitempty"`
	CompletedAt string      `json:"completed_at,omitempty"`
	Drivers     []Driver    `json:"drivers,omitempty"`
	Milestones  []Milestone `json:"milestones,omitempty"`
	Actions     []Action    `json:"actions,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateDriver creates a driver.
func (c *Client) CreateDriver(ctx context.Context, title, description string) (Driver, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
	}
	var resp Driver
	err := c.do(ctx, http.MethodPost, "v0/drivers", body, &resp)
	return resp, err
}

// ListDrivers returns all drivers for the authenticated user.
func (c *Client) ListDrivers(ctx context.Context) ([]Driver, error) {
	var resp []Driver
	err := c.do(ctx, http.MethodGet, "v0/drivers", nil, &resp)
	return resp, err
}

// DeleteDriver cascades the delete and returns what was removed.
func (c *Client) DeleteDriver(ctx context.Context, id string) (DriverImpact, error) {
	var resp DriverImpact
	err := c.do(ctx, http.MethodDelete, "v0/drivers/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CreateMilestone creates a milestone under a driver.
func (c *Client) CreateMilestone(ctx context.Context, driverID, title string) (Milestone, error) {
	body := map[string]any{
		"driver_id": driverID,
		"title":     title,
	}
	var resp Milestone
	err := c.do(ctx, http.MethodPost, "v0/milestones", body, &resp)
	return resp, err
}

// CreateAction creates an action under a milestone.
func (c *Client) CreateAction(ctx context.Context, milestoneID, title string, recurrence *Recurrence) (Action, error) {
	body := map[string]any{
		"milestone_id": milestoneID,
		"title":        title,
	}
	if recurrence != nil {
		body["recurrence"] = recurrence
	}
	var resp Action
	err := c.do(ctx, http.MethodPost, "v0/actions", body, &resp)
	return resp, err
}

// MoveAction applies one lifecycle transition.
func (c *Client) MoveAction(ctx context.Context, id, status string) (Action, error) {
	body := map[string]any{"status": status}
	var resp Action
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/actions/%s/move", url.PathEscape(id)), body, &resp)
	return resp, err
}

// RunHabits materializes due habit instances and returns them.
func (c *Client) RunHabits(ctx context.Context, date string) ([]Action, error) {
	body := map[string]any{}
	if date != "" {
		body["date"] = date
	}
	var resp []Action
	err := c.do(ctx, http.MethodPost, "v0/habits/run", body, &resp)
	return resp, err
}

// Orphans scans the hierarchy for broken links.
func (c *Client) Orphans(ctx context.Context) (OrphanReport, error) {
	var resp OrphanReport
	err := c.do(ctx, http.MethodGet, "v0/orphans", nil, &resp)
	return resp, err
}

// Onboard generates the starter hierarchy for the authenticated user.
func (c *Client) Onboard(ctx context.Context) (Onboarding, error) {
	var resp Onboarding
	err := c.do(ctx, http.MethodPost, "v0/onboarding", map[string]any{}, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// DevLogin mints a JWT via the dev endpoint and stores it on the client.
func (c *Client) DevLogin(ctx context.Context, userID string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "v0/auth/dev/login", map[string]any{"user_id": userID}, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
