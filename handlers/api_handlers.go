package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"attendance-tracker-go/models"
	"attendance-tracker-go/store"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIHandler exposes the attendance store over HTTP
type APIHandler struct {
	Store *store.Store
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(s *store.Store) *APIHandler {
	return &APIHandler{
		Store: s,
	}
}

type markRequest struct {
	Status string `json:"status"`
}

type goalRequest struct {
	Goal *int `json:"goal"`
}

// RegisterRoutes mounts every endpoint under /api
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/state", h.GetState)

		api.GET("/classes", h.GetAllClasses)
		api.POST("/classes", h.AddClass)
		api.DELETE("/classes/:classId", h.DeleteClass)
		api.PUT("/classes/:classId/attendance", h.MarkAttendance)

		api.GET("/goal", h.GetGoal)
		api.PUT("/goal", h.SetGoal)

		api.GET("/summary", h.GetSummary)

		api.POST("/import/classes", h.ImportClasses)
		api.GET("/export/report", h.ExportReport)

		api.GET("/ping", PingHandler)
	}
}

// respondError maps store errors to status codes. Persistence failures are not
// handled here because the mutation already took effect.
func respondError(c *gin.Context, err error) {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verrs.ToMap()})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Class not found"})
	default:
		log.Printf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// respondMutation writes body with status, attaching a warning when the change
// was applied but not persisted.
func respondMutation(c *gin.Context, status int, body gin.H, err error) {
	if err != nil && !errors.Is(err, models.ErrPersistenceFailure) {
		respondError(c, err)
		return
	}
	if err != nil {
		log.Printf("Mutation applied without durability: %v", err)
		body["warning"] = "Change applied but could not be saved"
	}
	c.JSON(status, body)
}

// GetState handles GET /api/state
func (h *APIHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

// GetAllClasses handles GET /api/classes
func (h *APIHandler) GetAllClasses(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Classes())
}

// AddClass handles POST /api/classes
func (h *APIHandler) AddClass(c *gin.Context) {
	var in models.NewClassInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	record, err := h.Store.AddClass(c.Request.Context(), in.Name, in.Time)
	respondMutation(c, http.StatusCreated, gin.H{"class": record}, err)
}

// DeleteClass handles DELETE /api/classes/:classId
func (h *APIHandler) DeleteClass(c *gin.Context) {
	classID := c.Param("classId")
	err := h.Store.DeleteClass(c.Request.Context(), classID)
	respondMutation(c, http.StatusOK, gin.H{"deleted": classID}, err)
}

// MarkAttendance handles PUT /api/classes/:classId/attendance
func (h *APIHandler) MarkAttendance(c *gin.Context) {
	classID := c.Param("classId")
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.Store.MarkAttendance(c.Request.Context(), classID, status)
	respondMutation(c, http.StatusOK, gin.H{"classId": classID, "status": status}, err)
}

// GetGoal handles GET /api/goal
func (h *APIHandler) GetGoal(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"goal": h.Store.Goal()})
}

// SetGoal handles PUT /api/goal
func (h *APIHandler) SetGoal(c *gin.Context) {
	var req goalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Goal == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must be {\"goal\": <integer 0-100>}"})
		return
	}
	if err := h.Store.SetGoal(*req.Goal); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": *req.Goal})
}

// GetSummary handles GET /api/summary
func (h *APIHandler) GetSummary(c *gin.Context) {
	summary := h.Store.Summary()
	c.JSON(http.StatusOK, gin.H{
		"attendanceRate": summary.AttendanceRate,
		"rateText":       summary.RateText(),
		"classesNeeded":  summary.ClassesNeeded,
		"classesMissed":  summary.ClassesMissed,
		"goal":           h.Store.Goal(),
	})
}

// ImportClasses handles POST /api/import/classes
func (h *APIHandler) ImportClasses(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		log.Printf("Error getting form file: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	log.Printf("Received class import: %s", header.Filename)

	imported, err := h.Store.ImportClassesFromExcel(c.Request.Context(), file)
	respondMutation(c, http.StatusOK, gin.H{
		"message":       "Import finished",
		"importedCount": imported,
	}, err)
}

// ExportReport handles GET /api/export/report
func (h *APIHandler) ExportReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Store.ExportReport(&buf); err != nil {
		log.Printf("Error exporting report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PingHandler handles GET /api/ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
