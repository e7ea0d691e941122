// Package client is a Go client for the task service. It plays the role the
// browser session layer plays in the web app: it owns the bearer token and the
// resolved identity, attaches credentials to every protected request, and
// guarantees that responses arriving after a logout never repopulate the
// session.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/taskhive/backend/domain"
)

// APIError carries the status code and the server's message body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithDial overrides the transport dial function (used to point the client at
// an in-memory listener in tests).
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) {
		c.http.Dial = dial
	}
}

// WithTimeout sets the per-request deadline used when the context has none.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client is safe for concurrent use. Login, logout, and resume are serialized
// against each other; task requests snapshot the session and discard their
// results if the session changed while they were in flight.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration

	session sessionState
}

// New creates a client for the service at baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &fasthttp.Client{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	var user domain.User
	err := c.doJSON(ctx, http.MethodPost, "/auth/register", "",
		registerRequest{Username: username, Email: email, Password: password}, http.StatusCreated, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and installs the returned session. It is serialized
// with Logout and Resume.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	c.session.beginAuth()
	defer c.session.endAuth()

	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "",
		loginRequest{Email: email, Password: password}, http.StatusOK, &resp)
	if err != nil {
		return nil, err
	}

	c.session.install(resp.Token, resp.User)
	return resp.User, nil
}

// Resume installs a previously issued token after validating it against the
// profile endpoint. Until Resume returns, CurrentUser reports no identity;
// callers should treat it as the blocking gate before rendering anything
// protected.
func (c *Client) Resume(ctx context.Context, token string) (*domain.User, error) {
	c.session.beginAuth()
	defer c.session.endAuth()

	var user domain.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/profile", token, nil, http.StatusOK, &user); err != nil {
		return nil, err
	}

	c.session.install(token, &user)
	return &user, nil
}

// Logout drops the cached identity immediately and revokes the server-side
// session best-effort. Any in-flight request observes the bump and discards
// its result.
func (c *Client) Logout(ctx context.Context) error {
	c.session.beginAuth()
	defer c.session.endAuth()

	token, _, ok := c.session.snapshot()
	c.session.clear()
	if !ok {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", token, nil, http.StatusOK, nil)
}

// CurrentUser returns the cached identity, if any.
func (c *Client) CurrentUser() (*domain.User, bool) {
	_, user, ok := c.session.snapshot()
	return user, ok
}

// Token returns the current bearer token for persistence across restarts.
func (c *Client) Token() (string, bool) {
	token, _, ok := c.session.snapshot()
	return token, ok
}

// ListOptions narrows and orders a task listing.
type ListOptions struct {
	Status string
	Sort   string
	Limit  int
	Offset int
}

func (o ListOptions) query() string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	if o.Status != "" {
		args.Set("status", o.Status)
	}
	if o.Sort != "" {
		args.Set("sort", o.Sort)
	}
	if o.Limit > 0 {
		args.Set("limit", fmt.Sprintf("%d", o.Limit))
	}
	if o.Offset > 0 {
		args.Set("offset", fmt.Sprintf("%d", o.Offset))
	}
	if args.Len() == 0 {
		return ""
	}
	return "?" + args.String()
}

// ListTasks fetches the authenticated user's tasks.
func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]domain.Task, error) {
	var tasks []domain.Task
	err := c.doSession(ctx, http.MethodGet, func(userID string) string {
		return "/api/tasks/user/" + userID + opts.query()
	}, nil, http.StatusOK, &tasks)
	return tasks, err
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	err := c.doSession(ctx, http.MethodGet, func(userID string) string {
		return "/api/tasks/" + userID + "/" + taskID
	}, nil, http.StatusOK, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskDraft is the create payload. Owner and timestamps are server-assigned.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

// CreateTask creates a task owned by the authenticated user.
func (c *Client) CreateTask(ctx context.Context, draft TaskDraft) (*domain.Task, error) {
	var task domain.Task
	err := c.doSession(ctx, http.MethodPost, func(string) string {
		return "/api/tasks"
	}, draft, http.StatusCreated, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskChanges is a partial update: nil means "leave unchanged", a pointer to
// an empty string clears the field.
type TaskChanges struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// UpdateTask applies a partial update to one of the user's tasks.
func (c *Client) UpdateTask(ctx context.Context, taskID string, changes TaskChanges) (*domain.Task, error) {
	var task domain.Task
	err := c.doSession(ctx, http.MethodPut, func(userID string) string {
		return "/api/tasks/" + userID + "/" + taskID
	}, changes, http.StatusOK, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes one of the user's tasks.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.doSession(ctx, http.MethodDelete, func(userID string) string {
		return "/api/tasks/" + userID + "/" + taskID
	}, nil, http.StatusOK, nil)
}

// doSession runs an authenticated request against the session captured at
// call time. If the session generation moved while the request was in flight
// (logout, re-login), the response is discarded.
func (c *Client) doSession(ctx context.Context, method string, path func(userID string) string, body interface{}, wantStatus int, out interface{}) error {
	token, user, gen, ok := c.session.snapshotGen()
	if !ok {
		return ErrNotAuthenticated
	}

	var scratch json.RawMessage
	if err := c.doJSON(ctx, method, path(user.ID), token, body, wantStatus, &scratch); err != nil {
		return err
	}

	if !c.session.stillCurrent(gen) {
		return ErrSessionEnded
	}
	if out == nil || len(scratch) == 0 {
		return nil
	}
	return json.Unmarshal(scratch, out)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body interface{}, wantStatus int, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if resp.StatusCode() != wantStatus {
		return decodeAPIError(resp)
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

func decodeAPIError(resp *fasthttp.Response) error {
	apiErr := &APIError{Status: resp.StatusCode(), Message: "request failed"}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	}
	return apiErr
}
