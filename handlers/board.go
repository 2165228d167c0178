package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/taskboard/authz"
)

// BoardHandler handles column and task HTTP requests
type BoardHandler struct {
	boardService *authz.BoardService
}

// NewBoardHandler creates a new BoardHandler
func NewBoardHandler(boardService *authz.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// CreateColumn handles POST /projects/:id/columns
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	var input authz.CreateColumnInput
	if !bindJSON(c, &input) {
		return
	}

	column, err := h.boardService.CreateColumn(c.Request.Context(), userID, projectID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, column)
}

// ListColumns handles GET /projects/:id/columns
func (h *BoardHandler) ListColumns(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	columns, err := h.boardService.ListColumns(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// GetColumn handles GET /columns/:id
func (h *BoardHandler) GetColumn(c *gin.Context) {
	userID := c.GetString("user_id")

	column, err := h.boardService.GetColumn(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, column)
}

// UpdateColumn handles PATCH /columns/:id
func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	userID := c.GetString("user_id")

	var input authz.UpdateColumnInput
	if !bindJSON(c, &input) {
		return
	}

	column, err := h.boardService.UpdateColumn(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, column)
}

// DeleteColumn handles DELETE /columns/:id
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.boardService.DeleteColumn(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateTask handles POST /projects/:id/tasks
func (h *BoardHandler) CreateTask(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	var input authz.CreateTaskInput
	if !bindJSON(c, &input) {
		return
	}

	task, err := h.boardService.CreateTask(c.Request.Context(), userID, projectID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListTasks handles GET /projects/:id/tasks?column_id=&assignee_id=
func (h *BoardHandler) ListTasks(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	filter := authz.TaskFilter{
		ColumnID:       c.Query("column_id"),
		AssigneeUserID: c.Query("assignee_id"),
	}

	tasks, err := h.boardService.ListTasks(c.Request.Context(), userID, projectID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetTask handles GET /tasks/:id
func (h *BoardHandler) GetTask(c *gin.Context) {
	userID := c.GetString("user_id")

	task, err := h.boardService.GetTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask handles PATCH /tasks/:id
func (h *BoardHandler) UpdateTask(c *gin.Context) {
	userID := c.GetString("user_id")

	var input authz.UpdateTaskInput
	if !bindJSON(c, &input) {
		return
	}

	task, err := h.boardService.UpdateTask(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/:id
func (h *BoardHandler) DeleteTask(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.boardService.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
