package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
)

const (
	serviceName    = "threat-intel-api"
	serviceVersion = "1.0.0"
)

// ThreatCatalog is the threat CRUD surface the API serves
type ThreatCatalog interface {
	Create(ctx context.Context, candidate any) (*models.ThreatRecord, error)
	Update(ctx context.Context, id string, candidate any) (*models.ThreatRecord, error)
	Get(ctx context.Context, id string) (*models.ThreatRecord, error)
	List(ctx context.Context, filter models.ThreatFilter) ([]models.ThreatRecord, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ThreatStats, error)
}

// response is the envelope every endpoint answers with
type response struct {
	Success bool     `json:"success"`
	Count   *int     `json:"count,omitempty"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Handler handles HTTP requests
type Handler struct {
	threats   ThreatCatalog
	runner    service.BatchRunner
	jwtSecret []byte
	schema    *jsonschema.Schema
	logger    *zap.Logger
}

// NewHandler creates a new API handler. An empty jwtSecret leaves the write
// routes unauthenticated.
func NewHandler(threats ThreatCatalog, runner service.BatchRunner, jwtSecret string, logger *zap.Logger) *Handler {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}

	return &Handler{
		threats:   threats,
		runner:    runner,
		jwtSecret: []byte(jwtSecret),
		schema:    reflector.Reflect(&models.ThreatRecord{}),
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Info)
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api/threats")
	{
		api.GET("", h.ListThreats)
		api.GET("/stats", h.GetStats)
		api.GET("/schema", h.GetSchema)
		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
		api.GET("/filter/severity/:severity", h.FilterBySeverity)
		api.GET("/filter/attack-type/:attackType", h.FilterByAttackType)
		api.GET("/:id", h.GetThreat)
	}

	write := api.Group("")
	if len(h.jwtSecret) > 0 {
		write.Use(BearerAuth(h.jwtSecret, h.logger))
	}
	{
		write.POST("", h.CreateThreat)
		write.PUT("/:id", h.UpdateThreat)
		write.DELETE("/:id", h.DeleteThreat)
		write.POST("/process", h.ProcessBatch)
	}
}

// Info describes the service
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": []string{
			"GET /api/threats",
			"GET /api/threats/:id",
			"GET /api/threats/stats",
			"GET /api/threats/schema",
			"GET /api/threats/export/csv",
			"GET /api/threats/export/json",
			"GET /api/threats/filter/severity/:severity",
			"GET /api/threats/filter/attack-type/:attackType",
			"POST /api/threats",
			"PUT /api/threats/:id",
			"DELETE /api/threats/:id",
			"POST /api/threats/process",
		},
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC(),
	})
}

// ListThreats returns threats, optionally filtered by query parameters
func (h *Handler) ListThreats(c *gin.Context) {
	var filter models.ThreatFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response{Error: "Invalid query parameters", Details: []string{err.Error()}})
		return
	}

	h.list(c, filter)
}

// FilterBySeverity returns threats of one severity
func (h *Handler) FilterBySeverity(c *gin.Context) {
	severity := models.Severity(c.Param("severity"))
	if !severity.Valid() {
		c.JSON(http.StatusBadRequest, response{Error: "Invalid severity level"})
		return
	}

	h.list(c, models.ThreatFilter{Severity: severity})
}

// FilterByAttackType returns threats of one attack type
func (h *Handler) FilterByAttackType(c *gin.Context) {
	attackType := models.AttackType(c.Param("attackType"))
	if !attackType.Valid() {
		c.JSON(http.StatusBadRequest, response{Error: "Invalid attack type"})
		return
	}

	h.list(c, models.ThreatFilter{AttackType: attackType})
}

func (h *Handler) list(c *gin.Context, filter models.ThreatFilter) {
	threats, err := h.threats.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err, "fetch threats")
		return
	}

	count := len(threats)
	c.JSON(http.StatusOK, response{Success: true, Count: &count, Data: threats})
}

// GetThreat returns one threat by id
func (h *Handler) GetThreat(c *gin.Context) {
	threat, err := h.threats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "fetch threat")
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: threat})
}

// CreateThreat validates and stores a threat from the request body
func (h *Handler) CreateThreat(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Error: "Failed to read request body"})
		return
	}

	threat, err := h.threats.Create(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err, "create threat")
		return
	}

	c.JSON(http.StatusCreated, response{Success: true, Data: threat})
}

// UpdateThreat replaces a threat from the request body
func (h *Handler) UpdateThreat(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Error: "Failed to read request body"})
		return
	}

	threat, err := h.threats.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.fail(c, err, "update threat")
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: threat})
}

// DeleteThreat removes a threat
func (h *Handler) DeleteThreat(c *gin.Context) {
	id := c.Param("id")
	if err := h.threats.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "delete threat")
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Message: "Threat deleted successfully", Data: gin.H{"id": id}})
}

// GetStats returns threat statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.threats.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "fetch statistics")
		return
	}

	c.JSON(http.StatusOK, response{Success: true, Data: stats})
}

// GetSchema returns the JSON schema of a threat record
func (h *Handler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, h.schema)
}

// ProcessBatch runs one extraction batch. The batch outlives the request if
// the client disconnects.
func (h *Handler) ProcessBatch(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := h.runner.RunExtractionBatch(ctx)
	if err != nil {
		if errors.Is(err, models.ErrBatchInProgress) {
			c.JSON(http.StatusConflict, response{Error: err.Error()})
			return
		}

		h.logger.Error("Extraction batch failed",
			zap.String("kind", models.ErrorKind(err)),
			zap.Error(err))
		resp := response{Error: "Extraction batch failed: " + err.Error()}
		if result != nil {
			resp.Data = result
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	c.JSON(http.StatusOK, response{
		Success: true,
		Message: "Extraction batch completed",
		Data:    result,
	})
}

// ExportCSV exports threats to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	threats, err := h.threats.List(c.Request.Context(), models.ThreatFilter{})
	if err != nil {
		h.fail(c, err, "export threats")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=threats.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{
		"id", "title", "description", "severity", "attack_type",
		"country", "city", "lat", "lng", "timestamp", "affected_systems", "source",
	})

	for _, t := range threats {
		writer.Write([]string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Severity),
			string(t.AttackType),
			t.Location.Country,
			t.Location.City,
			strconv.FormatFloat(t.Location.Lat, 'f', -1, 64),
			strconv.FormatFloat(t.Location.Lng, 'f', -1, 64),
			t.Timestamp.Format(time.RFC3339),
			strings.Join(t.AffectedSystems, ";"),
			t.Source,
		})
	}
}

// ExportJSON exports threats to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	threats, err := h.threats.List(c.Request.Context(), models.ThreatFilter{})
	if err != nil {
		h.fail(c, err, "export threats")
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=threats.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(threats); err != nil {
		h.logger.Error("Failed to encode export", zap.Error(err))
	}
}

// fail maps a service error onto a status code and envelope
func (h *Handler) fail(c *gin.Context, err error, action string) {
	var (
		validationErr *models.ValidationError
		duplicateErr  *models.DuplicateError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, response{Error: "Validation failed", Details: validationErr.Violations})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, response{Error: duplicateErr.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, response{Error: "Threat not found"})
	case errors.Is(err, models.ErrBatchInProgress):
		c.JSON(http.StatusConflict, response{Error: err.Error()})
	default:
		h.logger.Error("Failed to "+action, zap.Error(err))
		c.JSON(http.StatusInternalServerError, response{Error: "Failed to " + action})
	}
}
