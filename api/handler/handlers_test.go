package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
	authUC "github.com/taskhive/backend/usecase/auth"
	taskUC "github.com/taskhive/backend/usecase/task"
)

// ---- in-memory repositories ----

type memUsers struct {
	users map[string]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: make(map[string]*domain.User)} }

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.NewError(domain.ErrCodeDuplicate, "username already exists")
		}
		if u.Email == user.Email {
			return domain.NewError(domain.ErrCodeDuplicate, "email already exists")
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

type memSessions struct {
	sessions map[string]*domain.Session
}

func newMemSessions() *memSessions { return &memSessions{sessions: make(map[string]*domain.Session)} }

func (m *memSessions) Get(ctx context.Context, id string) (*domain.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *memSessions) Save(ctx context.Context, session *domain.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type memTasks struct {
	tasks map[string]*domain.Task
	seq   int
}

func newMemTasks() *memTasks { return &memTasks{tasks: make(map[string]*domain.Task)} }

func (m *memTasks) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memTasks) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, task := range m.tasks {
		if task.UserID == filter.UserID {
			out = append(out, *task)
		}
	}
	return out, nil
}

func (m *memTasks) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	m.seq++
	task.CreatedAt = time.Now().Add(time.Duration(m.seq) * time.Millisecond)
	task.UpdatedAt = task.CreatedAt
	copied := *task
	m.tasks[task.ID] = &copied
	return task, nil
}

func (m *memTasks) Update(ctx context.Context, task *domain.Task) error {
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTasks) Delete(ctx context.Context, userID, id string) error {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

type memEvents struct{ events []domain.TaskEvent }

func (m *memEvents) Append(ctx context.Context, event domain.TaskEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) ListByTask(ctx context.Context, userID, taskID string, limit int) ([]domain.TaskEvent, error) {
	var out []domain.TaskEvent
	for _, e := range m.events {
		if e.TaskID == taskID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- fixtures ----

func newAuthHandler() (*AuthHandler, *memUsers) {
	users := newMemUsers()
	uc := authUC.New(users, newMemSessions(), authUC.Config{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	return NewAuthHandler(uc, nil, nil), users
}

func newTaskHandler() *TaskHandler {
	uc := taskUC.New(newMemTasks(), &memEvents{}, nil, nil)
	return NewTaskHandler(uc, nil, nil)
}

func postCtx(body string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(http.MethodPost)
	ctx.Request.SetBodyString(body)
	return ctx
}

func authedCtx(userID string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set(HeaderUserID, userID)
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), out))
}

// ---- auth handler ----

func TestRegisterLoginRoundTrip(t *testing.T) {
	h, users := newAuthHandler()

	ctx := postCtx(`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	h.Register(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())

	var created domain.User
	decodeBody(t, ctx, &created)
	require.Equal(t, "alice", created.Username)
	require.NotEmpty(t, created.ID)

	// The hash never leaves the service.
	require.NotContains(t, string(ctx.Response.Body()), "secret1")
	require.NotContains(t, string(ctx.Response.Body()), users.users[created.ID].PasswordHash)

	ctx = postCtx(`{"email":"alice@x.com","password":"secret1"}`)
	h.Login(ctx)
	require.Equal(t, http.StatusOK, ctx.Response.StatusCode())

	var login struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	decodeBody(t, ctx, &login)
	require.NotEmpty(t, login.Token)
	require.Equal(t, created.ID, login.User.ID)
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	h, _ := newAuthHandler()

	for _, body := range []string{
		`{"username":"al","email":"alice@x.com","password":"secret1"}`,
		`{"username":"alice","email":"nope","password":"secret1"}`,
		`{"username":"alice","email":"alice@x.com","password":"short"}`,
		`not json`,
	} {
		ctx := postCtx(body)
		h.Register(ctx)
		require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode(), body)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := newAuthHandler()

	ctx := postCtx(`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	h.Register(ctx)
	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())

	ctx = postCtx(`{"username":"bob","email":"alice@x.com","password":"secret1"}`)
	h.Register(ctx)
	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())

	var resp struct {
		Message string `json:"message"`
	}
	decodeBody(t, ctx, &resp)
	require.Equal(t, "email already exists", resp.Message)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	h, _ := newAuthHandler()

	ctx := postCtx(`{"username":"alice","email":"alice@x.com","password":"secret1"}`)
	h.Register(ctx)

	wrongPass := postCtx(`{"email":"alice@x.com","password":"wrong"}`)
	h.Login(wrongPass)
	unknownEmail := postCtx(`{"email":"ghost@x.com","password":"secret1"}`)
	h.Login(unknownEmail)

	require.Equal(t, http.StatusUnauthorized, wrongPass.Response.StatusCode())
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Response.StatusCode())
	require.Equal(t, string(wrongPass.Response.Body()), string(unknownEmail.Response.Body()))
}

// ---- task handler ----

func TestCreateTaskIgnoresCallerSuppliedOwner(t *testing.T) {
	h := newTaskHandler()

	ctx := authedCtx("user-a")
	ctx.Request.Header.SetMethod(http.MethodPost)
	// id/userId in the body must not grant ownership elsewhere.
	ctx.Request.SetBodyString(`{"id":"other-user","userId":"other-user","title":"T"}`)
	h.CreateTask(ctx)

	require.Equal(t, http.StatusCreated, ctx.Response.StatusCode())
	var task domain.Task
	decodeBody(t, ctx, &task)
	require.Equal(t, "user-a", task.UserID)
	require.Equal(t, domain.StatusPending, task.Status)
}

func TestCreateTaskWithoutTitle(t *testing.T) {
	h := newTaskHandler()

	ctx := authedCtx("user-a")
	ctx.Request.SetBodyString(`{"description":"no title"}`)
	h.CreateTask(ctx)
	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestCreateTaskRejectsBadDueDate(t *testing.T) {
	h := newTaskHandler()

	ctx := authedCtx("user-a")
	ctx.Request.SetBodyString(`{"title":"T","dueDate":"tomorrow"}`)
	h.CreateTask(ctx)
	require.Equal(t, http.StatusBadRequest, ctx.Response.StatusCode())
}

func TestTaskLifecycleThroughHandlers(t *testing.T) {
	h := newTaskHandler()

	create := authedCtx("user-a")
	create.Request.SetBodyString(`{"title":"Buy milk"}`)
	h.CreateTask(create)
	require.Equal(t, http.StatusCreated, create.Response.StatusCode())

	var task domain.Task
	decodeBody(t, create, &task)
	require.Equal(t, domain.StatusPending, task.Status)

	update := authedCtx("user-a")
	update.SetUserValue("userId", "user-a")
	update.SetUserValue("taskId", task.ID)
	update.Request.SetBodyString(`{"status":"completed"}`)
	h.UpdateTask(update)
	require.Equal(t, http.StatusOK, update.Response.StatusCode())

	var updated domain.Task
	decodeBody(t, update, &updated)
	require.Equal(t, "Buy milk", updated.Title)
	require.Equal(t, domain.StatusCompleted, updated.Status)

	del := authedCtx("user-a")
	del.SetUserValue("userId", "user-a")
	del.SetUserValue("taskId", task.ID)
	h.DeleteTask(del)
	require.Equal(t, http.StatusOK, del.Response.StatusCode())

	get := authedCtx("user-a")
	get.SetUserValue("userId", "user-a")
	get.SetUserValue("taskId", task.ID)
	h.GetTask(get)
	require.Equal(t, http.StatusNotFound, get.Response.StatusCode())
}

func TestForeignUserIDPathRespondsNotFound(t *testing.T) {
	h := newTaskHandler()

	create := authedCtx("user-a")
	create.Request.SetBodyString(`{"title":"secret"}`)
	h.CreateTask(create)
	var task domain.Task
	decodeBody(t, create, &task)

	get := authedCtx("user-b")
	get.SetUserValue("userId", "user-a")
	get.SetUserValue("taskId", task.ID)
	h.GetTask(get)
	require.Equal(t, http.StatusNotFound, get.Response.StatusCode())

	list := authedCtx("user-b")
	list.SetUserValue("userId", "user-a")
	h.ListTasks(list)
	require.Equal(t, http.StatusNotFound, list.Response.StatusCode())
}

func TestProtectedHandlersRequireIdentity(t *testing.T) {
	h := newTaskHandler()

	ctx := &fasthttp.RequestCtx{}
	h.ListTasks(ctx)
	require.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
}
