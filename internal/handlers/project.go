package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bluecarbon/registry/internal/middleware"
	"github.com/bluecarbon/registry/internal/services"
	"github.com/bluecarbon/registry/internal/storage"
	"github.com/bluecarbon/registry/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProjectHandler handles project submission requests
type ProjectHandler struct {
	projectService  *services.ProjectService
	maxRequestBytes int64
	logger          *zap.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *services.ProjectService, maxRequestBytes int64, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		maxRequestBytes: maxRequestBytes,
		logger:          logger,
	}
}

// Create handles a multipart project submission
func (h *ProjectHandler) Create(c *gin.Context) {
	if h.maxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return
	}

	// Body field wins over the query string
	projectType := c.PostForm("type")
	if projectType == "" {
		projectType = c.Query("type")
	}

	// Anonymous unless a session is present
	var submittedBy uuid.NullUUID
	if id, ok := middleware.GetUserID(c); ok {
		submittedBy = uuid.NullUUID{UUID: id, Valid: true}
	}

	res, err := h.projectService.Submit(c.Request.Context(), projectType, form, submittedBy)
	if err != nil {
		var verrs *validation.Errors
		switch {
		case errors.Is(err, services.ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project type"})
		case errors.As(err, &verrs):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        "Validation failed",
				"fields":       verrs,
				"firstInvalid": verrs.First(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save project"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"id":      res.ID,
		"type":    res.Type,
	})
}

// List handles listing the most recent submissions
func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	projects, err := h.projectService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get handles fetching one submission with its files
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	detail, err := h.projectService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		h.logger.Error("failed to get project", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":    detail.Type,
		"project": detail.Project(),
		"files":   detail.Files,
	})
}
