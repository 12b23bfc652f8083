package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/middleware"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/service"
)

type TaskHandler struct {
	tasks   *service.TaskService
	queries *service.QueryService
}

func NewTaskHandler(tasks *service.TaskService, queries *service.QueryService) *TaskHandler {
	return &TaskHandler{tasks: tasks, queries: queries}
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	SectionID   string     `json:"sectionId" binding:"required"`
	ProjectID   string     `json:"projectId" binding:"required"`
	LeadIDs     []string   `json:"leadIds" binding:"required,min=1"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	Attachments []string   `json:"attachments"`
}

type editTaskRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	SectionID     *string    `json:"sectionId"`
	Status        *string    `json:"status"`
	DueDate       *time.Time `json:"dueDate"`
	ClearDueDate  bool       `json:"clearDueDate"`
	Priority      *string    `json:"priority"`
	AssignedTo    *string    `json:"assignedTo"`
	LeadIDs       []string   `json:"leadIds"`
	Attachments   []string   `json:"attachments"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type commentRequest struct {
	Comment       string   `json:"comment" binding:"required"`
	TaggedUserIDs []string `json:"taggedUsers"`
}

type rateRequest struct {
	Rating        int      `json:"rating" binding:"required"`
	Comment       string   `json:"comment"`
	TaggedUserIDs []string `json:"taggedUsers"`
}

// Create godoc
// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        request body createTaskRequest true "Task data"
// @Success      201 {object} map[string]interface{}
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sectionID, err := uuid.Parse(req.SectionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section ID format"})
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID format"})
		return
	}
	leadIDs, err := parseUUIDs(req.LeadIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID format"})
		return
	}
	var assignedTo *uuid.UUID
	if req.AssignedTo != nil {
		id, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		assignedTo = &id
	}

	res, err := h.tasks.Create(c.Request.Context(), actor, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		SectionID:   sectionID,
		ProjectID:   projectID,
		LeadIDs:     leadIDs,
		AssignedTo:  assignedTo,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Attachments: req.Attachments,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusCreated, gin.H{"task": res.Task, "action": res.Action}, res.AuditErr)
}

// Update godoc
// @Summary      Edit a task
// @Description  Partial update; only supplied fields change.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body editTaskRequest true "Fields to change"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req editTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := service.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Priority:     req.Priority,
		Attachments:  req.Attachments,
	}
	if req.SectionID != nil {
		id, err := uuid.Parse(*req.SectionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section ID format"})
			return
		}
		patch.SectionID = &id
	}
	if req.Status != nil {
		st := model.TaskStatus(*req.Status)
		patch.Status = &st
	}
	if req.AssignedTo != nil {
		id, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		patch.AssignedTo = &id
	}
	if req.LeadIDs != nil {
		leadIDs, err := parseUUIDs(req.LeadIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID format"})
			return
		}
		patch.LeadIDs = leadIDs
	}

	res, err := h.tasks.Edit(c.Request.Context(), actor, taskID, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusOK, gin.H{"task": res.Task, "action": res.Action}, res.AuditErr)
}

// UpdateStatus godoc
// @Summary      Change a task's status
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body statusRequest true "New status"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id}/status [post]
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.tasks.UpdateStatus(c.Request.Context(), actor, taskID, model.TaskStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusOK, gin.H{"task": res.Task, "action": res.Action}, res.AuditErr)
}

// Delete godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	res, err := h.tasks.Delete(c.Request.Context(), actor, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusOK, gin.H{"message": "Task deleted", "action": res.Action}, res.AuditErr)
}

// Comment godoc
// @Summary      Add a comment to a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body commentRequest true "Comment"
// @Success      201 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/{id}/comments [post]
func (h *TaskHandler) Comment(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tagged, err := parseUUIDs(req.TaggedUserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tagged user ID format"})
		return
	}

	res, err := h.tasks.Comment(c.Request.Context(), actor, taskID, service.CommentInput{
		Text:          req.Comment,
		TaggedUserIDs: tagged,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusCreated, gin.H{"comment": res.Comment}, res.AuditErr)
}

// GetComments godoc
// @Summary      List a task's comments
// @Tags         Tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        type query string false "Comment type (TASK or RATING)"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/{id}/comments [get]
func (h *TaskHandler) GetComments(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var commentType *model.CommentType
	if raw := c.Query("type"); raw != "" {
		ct := model.CommentType(raw)
		commentType = &ct
	}

	comments, err := h.queries.TaskComments(c.Request.Context(), actor, taskID, commentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// GetLogs godoc
// @Summary      List a task's audit trail
// @Tags         Tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/{id}/logs [get]
func (h *TaskHandler) GetLogs(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	logs, err := h.queries.TaskLogs(c.Request.Context(), actor, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Rate godoc
// @Summary      Rate a completed task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body rateRequest true "Rating"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]string
// @Failure      403 {object} map[string]string
// @Failure      409 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id}/rate [post]
func (h *TaskHandler) Rate(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	tagged, err := parseUUIDs(req.TaggedUserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tagged user ID format"})
		return
	}

	res, err := h.tasks.Rate(c.Request.Context(), actor, taskID, service.RateInput{
		Rating:        req.Rating,
		Comment:       req.Comment,
		TaggedUserIDs: tagged,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondResult(c, http.StatusOK, gin.H{
		"task":      res.Task,
		"aggregate": res.Aggregate,
	}, res.AuditErr)
}

// GetByID godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.queries.GetTask(c.Request.Context(), actor, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// List godoc
// @Summary      List tasks grouped by a dimension
// @Tags         Tasks
// @Produce      json
// @Param        groupBy query string false "Grouping key (default, projectId, createdBy, assignedTo, status, section)"
// @Param        sortBy query string false "Sort key (default, due-date, due-date-desc)"
// @Param        projectId query []string false "Project filter"
// @Param        assignedTo query []string false "Assignee filter"
// @Param        status query []string false "Status filter"
// @Param        archived query bool false "Archived-project filter"
// @Param        rated query bool false "Rated filter"
// @Param        onlyMine query bool false "Restrict to own tasks"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} map[string]string
// @Security     BearerAuth
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	projectIDs, err := parseUUIDs(c.QueryArray("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID format"})
		return
	}
	sectionIDs, err := parseUUIDs(c.QueryArray("sectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid section ID format"})
		return
	}
	assigneeIDs, err := parseUUIDs(c.QueryArray("assignedTo"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
		return
	}
	creatorIDs, err := parseUUIDs(c.QueryArray("createdBy"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid creator ID format"})
		return
	}
	leadIDs, err := parseUUIDs(c.QueryArray("lead"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID format"})
		return
	}

	var statuses []model.TaskStatus
	for _, raw := range c.QueryArray("status") {
		statuses = append(statuses, model.TaskStatus(raw))
	}

	archived, err := parseBoolFlag(c.Query("archived"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid archived flag"})
		return
	}
	rated, err := parseBoolFlag(c.Query("rated"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rated flag"})
		return
	}

	groups, err := h.queries.GroupedTasks(c.Request.Context(), actor, service.ListInput{
		GroupBy:     c.Query("groupBy"),
		SortBy:      c.Query("sortBy"),
		ProjectIDs:  projectIDs,
		SectionIDs:  sectionIDs,
		AssigneeIDs: assigneeIDs,
		CreatorIDs:  creatorIDs,
		LeadIDs:     leadIDs,
		Statuses:    statuses,
		Priorities:  c.QueryArray("priority"),
		Archived:    archived,
		Rated:       rated,
		OnlyMine:    c.Query("onlyMine") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Analytics godoc
// @Summary      Per-project task status percentages
// @Tags         Tasks
// @Produce      json
// @Param        projectId query []string false "Project filter"
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/analytics [get]
func (h *TaskHandler) Analytics(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	projectIDs, err := parseUUIDs(c.QueryArray("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID format"})
		return
	}

	breakdown, err := h.queries.StatusAnalytics(c.Request.Context(), actor, projectIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analytics": breakdown})
}

// Today godoc
// @Summary      Tasks due today involving the caller
// @Tags         Tasks
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/reports/today [get]
func (h *TaskHandler) Today(c *gin.Context) {
	h.report(c, h.queries.TodayTasks)
}

// Overdue godoc
// @Summary      Unfinished tasks past their due date
// @Tags         Tasks
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/reports/overdue [get]
func (h *TaskHandler) Overdue(c *gin.Context) {
	h.report(c, h.queries.OverdueTasks)
}

// PendingRating godoc
// @Summary      Completed tasks awaiting a rating
// @Tags         Tasks
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/reports/pending-rating [get]
func (h *TaskHandler) PendingRating(c *gin.Context) {
	h.report(c, h.queries.PendingRatingTasks)
}

// LateRated godoc
// @Summary      Tasks rated after the grace window
// @Tags         Tasks
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Security     BearerAuth
// @Router       /tasks/reports/late-rated [get]
func (h *TaskHandler) LateRated(c *gin.Context) {
	h.report(c, h.queries.LateRatedTasks)
}

// UserRatings godoc
// @Summary      Monthly rating aggregates for a user
// @Tags         Ratings
// @Produce      json
// @Param        id path string true "User ID"
// @Param        year query int true "Year"
// @Param        month query int true "Month (1-12)"
// @Success      200 {object} map[string]interface{}
// @Failure      403 {object} map[string]string
// @Security     BearerAuth
// @Router       /users/{id}/ratings [get]
func (h *TaskHandler) UserRatings(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	aggs, err := h.queries.UserRatings(c.Request.Context(), actor, userID, year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": aggs})
}

func (h *TaskHandler) report(c *gin.Context, fn func(ctx context.Context, actor authz.Actor) ([]model.Task, error)) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	tasks, err := fn(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseBoolFlag(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
