package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/utils"
)

type TaskStore interface {
	List(ctx context.Context, ownerID string, filter task.ListTasksFilter) ([]task.Task, int, error)
	Create(ctx context.Context, ownerID string, req task.CreateTaskRequest) (task.Task, error)
	GetByID(ctx context.Context, ownerID, taskID string) (task.Task, error)
	Update(ctx context.Context, ownerID, taskID string, req task.UpdateTaskRequest) (task.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) error
}

type TasksHandler struct {
	repo TaskStore
}

func NewTasksHandler(repo TaskStore) *TasksHandler {
	return &TasksHandler{repo: repo}
}

type TaskListResponse struct {
	Tasks  []task.Task `json:"tasks"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// requireOwner reads the identity RequireAuth stashed. The router never
// exposes these handlers without that middleware; the check is the backstop
// that keeps ownership from ever defaulting.
func requireOwner(ctx *gin.Context) (string, bool) {
	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "missing_token", "Authentication required")
		return "", false
	}
	return ownerID, true
}

func (h *TasksHandler) List(ctx *gin.Context) {
	ownerID, ok := requireOwner(ctx)
	if !ok {
		return
	}

	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	tasks, total, err := h.repo.List(cctx, ownerID, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list tasks")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, TaskListResponse{
		Tasks:  tasks,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	ownerID, ok := requireOwner(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	title, err := task.NormalizeTitle(req.Title)
	if err != nil {
		respondTitleError(ctx, err)
		return
	}
	req.Title = title

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	created, err := h.repo.Create(cctx, ownerID, req)

	if err != nil {
		RespondInternal(ctx, "Could not create task")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *TasksHandler) GetByID(ctx *gin.Context) {
	ownerID, ok := requireOwner(ctx)
	if !ok {
		return
	}

	taskID := ctx.Param("id")
	if !utils.IsUUID(taskID) {
		RespondNotFound(ctx, "Task not found")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)

	defer cancel()

	t, err := h.repo.GetByID(cctx, ownerID, taskID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not load task")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, t)
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	ownerID, ok := requireOwner(ctx)
	if !ok {
		return
	}

	taskID := ctx.Param("id")
	if !utils.IsUUID(taskID) {
		RespondNotFound(ctx, "Task not found")
		return
	}

	var req task.UpdateTaskRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Title != nil {
		title, err := task.NormalizeTitle(*req.Title)
		if err != nil {
			respondTitleError(ctx, err)
			return
		}
		req.Title = &title
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	// nothing to apply reads as a plain fetch
	if req.Empty() {
		t, err := h.repo.GetByID(cctx, ownerID, taskID)

		if err != nil {
			if errors.Is(err, task.ErrNotFound) {
				RespondNotFound(ctx, "Task not found")
				return
			}

			RespondInternal(ctx, "Could not update task")
			return
		}

		ctx.JSON(http.StatusOK, t)
		return
	}

	t, err := h.repo.Update(cctx, ownerID, taskID, req)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not update task")
		return
	}

	ctx.JSON(http.StatusOK, t)
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	ownerID, ok := requireOwner(ctx)
	if !ok {
		return
	}

	taskID := ctx.Param("id")
	if !utils.IsUUID(taskID) {
		RespondNotFound(ctx, "Task not found")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	err := h.repo.Delete(cctx, ownerID, taskID)

	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(ctx, "Task not found")
			return
		}

		RespondInternal(ctx, "Could not delete task")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func parseListFilter(ctx *gin.Context) (task.ListTasksFilter, bool) {
	filter := task.ListTasksFilter{Limit: task.DefaultLimit}

	if raw, ok := ctx.GetQuery("completed"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid query parameters", queryFieldError("completed", "bool", "must be true or false"))
			return task.ListTasksFilter{}, false
		}
		filter.Completed = &v
	}

	if raw, ok := ctx.GetQuery("limit"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > task.MaxLimit {
			RespondBadRequest(ctx, "Invalid query parameters", queryFieldError("limit", "range", fmt.Sprintf("must be an integer between 1 and %d", task.MaxLimit)))
			return task.ListTasksFilter{}, false
		}
		filter.Limit = v
	}

	if raw, ok := ctx.GetQuery("offset"); ok {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			RespondBadRequest(ctx, "Invalid query parameters", queryFieldError("offset", "range", "must be a non-negative integer"))
			return task.ListTasksFilter{}, false
		}
		filter.Offset = v
	}

	return filter, true
}

func queryFieldError(field, rule, message string) interface{} {
	return gin.H{"fields": []FieldError{{Field: field, Rule: rule, Message: message}}}
}

func respondTitleError(ctx *gin.Context, err error) {
	message := "is invalid"
	switch {
	case errors.Is(err, task.ErrTitleBlank):
		message = "must not be blank"
	case errors.Is(err, task.ErrTitleTooLong):
		message = fmt.Sprintf("must be at most %d characters", task.MaxTitleLen)
	}

	RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
		Field:   "title",
		Rule:    "title",
		Message: message,
	}}})
}
