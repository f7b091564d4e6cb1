package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	"github.com/noah-isme/sma-professor-gateway/internal/service"
	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
	"github.com/noah-isme/sma-professor-gateway/pkg/response"
)

type professorGateway interface {
	Create(ctx context.Context, professor models.Professor) (json.RawMessage, error)
	List(ctx context.Context) ([]models.Professor, error)
	Update(ctx context.Context, id string, professor models.Professor) (json.RawMessage, error)
	Delete(ctx context.Context, enrollmentID string) (json.RawMessage, error)
	DeleteMany(ctx context.Context, enrollmentIDs []string) error
	FindByIdentifier(ctx context.Context, name string) (json.RawMessage, error)
	ResolveByName(ctx context.Context, name string) (*models.Professor, error)
	Synchronize(ctx context.Context, target *models.ProfessorCollection) error
	Filter(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error)
}

type professorExporter interface {
	Export(ctx context.Context, format string, filter models.ProfessorFilter) (*service.ExportResult, error)
}

// BulkDeleteRequest lists enrollment ids to remove.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// maxSnapshots bounds how many callers keep a synchronized collection.
const maxSnapshots = 256

// ProfessorHandler exposes the professor gateway to a browser UI.
type ProfessorHandler struct {
	gateway   professorGateway
	exporter  professorExporter
	tokens    tokenstore.Store
	snapshots *snapshotSet
	routes    service.FlowRoutes
	metrics   *service.MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorHandler constructs a ProfessorHandler. tokens must be the same
// store the gateway reads, so each snapshot belongs to the bearer token that
// synchronized it.
func NewProfessorHandler(gateway professorGateway, exporter professorExporter, tokens tokenstore.Store, routes service.FlowRoutes, metrics *service.MetricsService, validate *validator.Validate, logger *zap.Logger) *ProfessorHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorHandler{
		gateway:   gateway,
		exporter:  exporter,
		tokens:    tokens,
		snapshots: newSnapshotSet(maxSnapshots),
		routes:    routes,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Register mounts professor routes on rg.
func (h *ProfessorHandler) Register(rg *gin.RouterGroup) {
	professors := rg.Group("/professors")
	professors.POST("", h.Create)
	professors.GET("", h.List)
	professors.GET("/filter", h.Filter)
	professors.GET("/export", h.Export)
	professors.GET("/snapshot", h.Snapshot)
	professors.POST("/sync", h.Sync)
	professors.POST("/bulk-delete", h.BulkDelete)
	professors.GET("/lookup/:name", h.Lookup)
	professors.GET("/by-name/:name", h.ResolveByName)
	professors.PUT("/:id", h.Update)
	professors.DELETE("/:id", h.Delete)
}

// Create registers a professor and reports the notification and next route.
func (h *ProfessorHandler) Create(c *gin.Context) {
	professor, ok := h.bindProfessor(c)
	if !ok {
		return
	}
	rec, flow := h.flow()
	result, err := flow.Register(c.Request.Context(), nil, professor)
	if err != nil {
		response.Error(c, err, rec.Meta())
		return
	}
	response.Created(c, result, rec.Meta())
}

// List returns every professor.
func (h *ProfessorHandler) List(c *gin.Context) {
	professors, err := h.gateway.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nonNil(professors))
}

// Update saves a professor under the :id path parameter.
func (h *ProfessorHandler) Update(c *gin.Context) {
	professor, ok := h.bindProfessor(c)
	if !ok {
		return
	}
	rec, flow := h.flow()
	result, err := flow.Update(c.Request.Context(), c.Param("id"), professor)
	if err != nil {
		response.Error(c, err, rec.Meta())
		return
	}
	response.JSON(c, http.StatusOK, result, rec.Meta())
}

// Delete removes the professor with the :id enrollment id.
func (h *ProfessorHandler) Delete(c *gin.Context) {
	rec, flow := h.flow()
	result, err := flow.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err, rec.Meta())
		return
	}
	response.JSON(c, http.StatusOK, result, rec.Meta())
}

// BulkDelete removes several professors concurrently.
func (h *ProfessorHandler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk delete payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk delete payload"))
		return
	}
	if err := h.gateway.DeleteMany(c.Request.Context(), req.IDs); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Lookup returns the raw backend payload for :name.
func (h *ProfessorHandler) Lookup(c *gin.Context) {
	payload, err := h.gateway.FindByIdentifier(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload)
}

// ResolveByName returns the professor whose name equals :name exactly.
func (h *ProfessorHandler) ResolveByName(c *gin.Context) {
	professor, err := h.gateway.ResolveByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor)
}

// Filter proxies the backend filter with nome, cursos and titulacoes.
func (h *ProfessorHandler) Filter(c *gin.Context) {
	professors, err := h.gateway.Filter(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nonNil(professors))
}

// Snapshot returns the caller's last synchronized collection without
// contacting the backend. Callers without a resolvable token get 401.
func (h *ProfessorHandler) Snapshot(c *gin.Context) {
	key, err := h.snapshotKey(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	collection := h.snapshots.get(key)
	if collection == nil {
		response.JSON(c, http.StatusOK, []models.Professor{}, map[string]interface{}{"count": 0})
		return
	}
	response.JSON(c, http.StatusOK, collection.Items(), map[string]interface{}{"count": collection.Len()})
}

// Sync refreshes the caller's collection from the backend.
func (h *ProfessorHandler) Sync(c *gin.Context) {
	key, err := h.snapshotKey(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	collection := h.snapshots.getOrCreate(key)
	rec, flow := h.flow()
	if err := flow.Synchronize(c.Request.Context(), collection); err != nil {
		response.Error(c, err, rec.Meta())
		return
	}
	response.JSON(c, http.StatusOK, collection.Items(), map[string]interface{}{"count": collection.Len()})
}

// Export renders the professor report as CSV, PDF or XLSX.
func (h *ProfessorHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	result, err := h.exporter.Export(c.Request.Context(), format, filterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *ProfessorHandler) snapshotKey(ctx context.Context) (string, error) {
	if h.tokens == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "token store not configured")
	}
	token, err := h.tokens.Read(ctx)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:]), nil
}

func (h *ProfessorHandler) flow() (*service.CompletionRecorder, *service.ProfessorFlow) {
	rec := service.NewCompletionRecorder()
	return rec, service.NewProfessorFlow(h.gateway, rec, rec, h.routes, h.metrics, h.logger)
}

func (h *ProfessorHandler) bindProfessor(c *gin.Context) (models.Professor, bool) {
	var professor models.Professor
	if err := c.ShouldBindJSON(&professor); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid professor payload"))
		return professor, false
	}
	if err := h.validator.Struct(professor); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid professor payload"))
		return professor, false
	}
	return professor, true
}

func filterFromQuery(c *gin.Context) models.ProfessorFilter {
	return models.ProfessorFilter{
		Name:           strings.TrimSpace(c.Query("nome")),
		CourseIDs:      splitList(c.QueryArray("cursos")),
		Qualifications: splitList(c.QueryArray("titulacoes")),
	}
}

// splitList accepts both repeated and comma-joined query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func nonNil(professors []models.Professor) []models.Professor {
	if professors == nil {
		return []models.Professor{}
	}
	return professors
}

// snapshotSet holds one collection per token digest, evicting the oldest
// entry once limit is reached.
type snapshotSet struct {
	mu    sync.Mutex
	limit int
	order []string
	items map[string]*models.ProfessorCollection
}

func newSnapshotSet(limit int) *snapshotSet {
	return &snapshotSet{limit: limit, items: make(map[string]*models.ProfessorCollection)}
}

func (s *snapshotSet) get(key string) *models.ProfessorCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[key]
}

func (s *snapshotSet) getOrCreate(key string) *models.ProfessorCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if collection, ok := s.items[key]; ok {
		return collection
	}
	if s.limit > 0 && len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	collection := models.NewProfessorCollection()
	s.items[key] = collection
	s.order = append(s.order, key)
	return collection
}
