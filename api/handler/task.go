package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhive/backend/api/transport"
	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/pkg/httpcontext"
	"github.com/taskhive/backend/repository"
	taskUC "github.com/taskhive/backend/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List the authenticated user's tasks
// @Tags tasks
// @Router /api/tasks/user/{userId} [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	userID, ok := h.ownedUserID(ctx)
	if !ok {
		return
	}

	filter := repository.TaskFilter{
		UserID: userID,
		Status: statusArg(ctx),
		Sort:   string(ctx.QueryArgs().Peek("sort")),
		Limit:  parseInt(string(ctx.QueryArgs().Peek("limit")), 0),
		Offset: parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, tasks)
}

// @Summary Get one task
// @Tags tasks
// @Router /api/tasks/{userId}/{taskId} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	userID, ok := h.ownedUserID(ctx)
	if !ok {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, userID, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, task)
}

// @Summary Create a task
// @Tags tasks
// @Router /api/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError("invalid payload"))
		return
	}
	task, err := req.ToTask()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, userID, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusCreated, created)
}

// @Summary Partially update a task
// @Tags tasks
// @Router /api/tasks/{userId}/{taskId} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	userID, ok := h.ownedUserID(ctx)
	if !ok {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.TaskUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError("invalid payload"))
		return
	}
	patch, err := req.ToPatch()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, userID, taskID, patch)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, updated)
}

// @Summary Delete a task
// @Tags tasks
// @Router /api/tasks/{userId}/{taskId} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	userID, ok := h.ownedUserID(ctx)
	if !ok {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, userID, taskID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.MessageResponse{Message: "task deleted"})
}

// @Summary Get the audit trail for a task
// @Tags tasks
// @Router /api/tasks/{userId}/{taskId}/history [get]
func (h *TaskHandler) TaskHistory(ctx *fasthttp.RequestCtx) {
	userID, ok := h.ownedUserID(ctx)
	if !ok {
		return
	}
	taskID, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.TaskHistory(stdCtx, userID, taskID, parseInt(string(ctx.QueryArgs().Peek("limit")), 0))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, events)
}

// ownedUserID returns the authenticated identity after checking it against the
// userId path segment. A mismatch responds as not found: foreign resources
// must be indistinguishable from missing ones.
func (h *TaskHandler) ownedUserID(ctx *fasthttp.RequestCtx) (string, bool) {
	userID := h.userID(ctx)
	if userID == "" {
		return "", false
	}
	if pathID, ok := ctx.UserValue("userId").(string); ok && pathID != userID {
		h.respondJSON(ctx, http.StatusNotFound, transport.NewError("task not found"))
		return "", false
	}
	return userID, true
}

func (h *TaskHandler) taskID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("taskId").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError("missing task id"))
		return "", false
	}
	return id, true
}

func statusArg(ctx *fasthttp.RequestCtx) domain.Status {
	return domain.Status(ctx.QueryArgs().Peek("status"))
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
