package controller

import (
	"context"
	"strconv"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/task/model"
	"ctfplatform/internal/task/repository"
	"ctfplatform/internal/task/service"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// TaskController handles task HTTP endpoints. Supervisors see every task in
// full; teams and guests see published tasks as previews.
type TaskController struct {
	taskService *service.TaskService
}

// NewTaskController creates a new TaskController.
func NewTaskController(taskService *service.TaskService) *TaskController {
	return &TaskController{taskService: taskService}
}

// List handles GET /tasks.
func (h *TaskController) List(c *gin.Context) {
	ctx := c.Request.Context()
	if auth.ScopeFromContext(c) == realtime.AudienceSupervisors {
		tasks, err := h.taskService.List(ctx)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, model.FullList(tasks))
		return
	}

	tasks, err := h.taskService.ListEligible(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.PreviewList(tasks))
}

// Get handles GET /tasks/:id. Unpublished tasks do not exist for
// non-supervisors.
func (h *TaskController) Get(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	if auth.ScopeFromContext(c) == realtime.AudienceSupervisors {
		response.Success(c, model.Full(task))
		return
	}
	if !task.IsEligible() {
		response.Error(c, pkgerrors.New(pkgerrors.TaskNotFound))
		return
	}
	response.Success(c, model.Preview(task))
}

// ListByCategory handles GET /categories/:id/tasks.
func (h *TaskController) ListByCategory(c *gin.Context) {
	categoryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || categoryID <= 0 {
		response.BadRequest(c, "Invalid category id")
		return
	}
	tasks, err := h.taskService.GetByCategory(c.Request.Context(), categoryID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if auth.ScopeFromContext(c) == realtime.AudienceSupervisors {
		response.Success(c, model.FullList(tasks))
		return
	}
	eligible := make([]*repository.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsEligible() {
			eligible = append(eligible, t)
		}
	}
	response.Success(c, model.PreviewList(eligible))
}

// Create handles POST /tasks.
func (h *TaskController) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), service.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Hints:         req.Hints,
		Categories:    req.Categories,
		Answers:       req.Answers,
		Value:         req.Value,
		CaseSensitive: req.CaseSensitive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, model.Full(task))
}

// Update handles PUT /tasks/:id.
func (h *TaskController) Update(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	updated, err := h.taskService.Update(c.Request.Context(), task, service.UpdateInput{
		Description: req.Description,
		Hints:       req.Hints,
		Categories:  req.Categories,
		Answers:     req.Answers,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.Full(updated))
}

// Open handles POST /tasks/:id/open.
func (h *TaskController) Open(c *gin.Context) {
	h.transition(c, h.taskService.Open)
}

// Close handles POST /tasks/:id/close.
func (h *TaskController) Close(c *gin.Context) {
	h.transition(c, h.taskService.Close)
}

func (h *TaskController) transition(c *gin.Context, apply func(ctx context.Context, task *repository.Task) error) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := apply(ctx, task); err != nil {
		response.Error(c, err)
		return
	}

	current, err := h.taskService.Get(ctx, task.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.Full(current))
}

func (h *TaskController) loadTask(c *gin.Context) (*repository.Task, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid task id")
		return nil, false
	}
	task, err := h.taskService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return task, true
}
