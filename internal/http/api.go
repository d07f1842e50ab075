package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quillpad/internal/auth"
	"quillpad/internal/domain"
)

// Empty credentials are left to the authenticator, which rejects them like
// any other bad login.
type apiLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type taskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type TaskResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (h *Handler) apiLogin(c *gin.Context) {
	var req apiLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, _, err := h.tokens.Issue(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.Login("api", false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WithField("email", req.Email).Warn("api login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.WithError(err).Error("api login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.metrics.Login("api", true)
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokens.TTL().Seconds()),
	})
}

func (h *Handler) apiListTasks(c *gin.Context) {
	p, _ := currentPrincipal(c)
	tasks, err := h.tasks.ListTasks(c.Request.Context(), p.UserID)
	if err != nil {
		h.apiTaskError(c, p, 0, err)
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) apiCreateTask(c *gin.Context) {
	p, _ := currentPrincipal(c)
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), p.UserID, req.Title, req.Description, req.Completed)
	if err != nil {
		h.apiTaskError(c, p, 0, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(*task))
}

func (h *Handler) apiGetTask(c *gin.Context) {
	p, _ := currentPrincipal(c)
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), p.UserID, id)
	if err != nil {
		h.apiTaskError(c, p, id, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) apiUpdateTask(c *gin.Context) {
	p, _ := currentPrincipal(c)
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), p.UserID, id, domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		h.apiTaskError(c, p, id, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) apiDeleteTask(c *gin.Context) {
	p, _ := currentPrincipal(c)
	id, ok := idParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), p.UserID, id); err != nil {
		h.apiTaskError(c, p, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted", "deleted": id})
}

// apiTaskError answers 404 both for missing tasks and for tasks owned by
// someone else.
func (h *Handler) apiTaskError(c *gin.Context, p auth.Principal, id int64, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		h.denied(p, "task", id)
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("task api")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func taskToResponse(task domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
}
