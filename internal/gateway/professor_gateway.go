package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	"github.com/noah-isme/sma-professor-gateway/internal/transport"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

const (
	collectionPath = "/professors/"
	filterPath     = "/professors/filter"

	routeCollection = "/professors/"
	routeItem       = "/professors/{id}"
	routeFilter     = "/professors/filter"
)

// Config tunes the gateway.
type Config struct {
	BaseURL           string
	DeleteConcurrency int
}

// ProfessorGateway maps professor operations onto the backend's HTTP API.
type ProfessorGateway struct {
	transport   transport.Transport
	tokens      tokenstore.Store
	baseURL     string
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewProfessorGateway constructs a ProfessorGateway.
func NewProfessorGateway(t transport.Transport, tokens tokenstore.Store, cfg Config, logger *zap.Logger) *ProfessorGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = 4
	}
	return &ProfessorGateway{
		transport:   t,
		tokens:      tokens,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		concurrency: cfg.DeleteConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Create posts a new professor record. The record is sent as-is.
func (g *ProfessorGateway) Create(ctx context.Context, professor models.Professor) (json.RawMessage, error) {
	resp, err := g.do(ctx, http.MethodPost, collectionPath, routeCollection, professor, nil)
	if err != nil {
		g.logger.Warn("create professor failed", zap.String("matricula_id", professor.EnrollmentID), zap.Error(err))
		return nil, err
	}
	return raw(resp), nil
}

// List returns every professor held by the backend.
func (g *ProfessorGateway) List(ctx context.Context) ([]models.Professor, error) {
	resp, err := g.do(ctx, http.MethodGet, collectionPath, routeCollection, nil, nil)
	if err != nil {
		return nil, err
	}
	var professors []models.Professor
	if err := decode(resp, &professors); err != nil {
		return nil, err
	}
	return professors, nil
}

// Update replaces the professor stored under id.
func (g *ProfessorGateway) Update(ctx context.Context, id string, professor models.Professor) (json.RawMessage, error) {
	resp, err := g.do(ctx, http.MethodPut, itemPath(id), routeItem, professor, nil)
	if err != nil {
		g.logger.Warn("update professor failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return raw(resp), nil
}

// Delete removes the professor with the given enrollment id.
func (g *ProfessorGateway) Delete(ctx context.Context, enrollmentID string) (json.RawMessage, error) {
	resp, err := g.do(ctx, http.MethodDelete, itemPath(enrollmentID), routeItem, nil, nil)
	if err != nil {
		return nil, err
	}
	return raw(resp), nil
}

// DeleteMany issues independent deletes concurrently and reports the first failure.
func (g *ProfessorGateway) DeleteMany(ctx context.Context, enrollmentIDs []string) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for _, id := range enrollmentIDs {
		id := id
		eg.Go(func() error {
			if _, err := g.Delete(egCtx, id); err != nil {
				g.logger.Warn("bulk delete failed", zap.String("matricula_id", id), zap.Error(err))
				return err
			}
			return nil
		})
	}

	return eg.Wait()
}

// FindByIdentifier performs the backend lookup for name and returns the raw payload.
func (g *ProfessorGateway) FindByIdentifier(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := g.do(ctx, http.MethodGet, itemPath(name), routeItem, nil, nil)
	if err != nil {
		return nil, err
	}
	return raw(resp), nil
}

// Synchronize replaces the contents of target with the backend list. On
// failure target is left untouched.
func (g *ProfessorGateway) Synchronize(ctx context.Context, target *models.ProfessorCollection) error {
	if target == nil {
		return appErrors.Clone(appErrors.ErrInternal, "nil professor collection")
	}
	professors, err := g.List(ctx)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrSynchronization)
	}
	target.Replace(professors)
	g.logger.Debug("professors synchronized", zap.Int("count", len(professors)))
	return nil
}

// Filter queries the backend filter endpoint. Empty criteria are omitted.
func (g *ProfessorGateway) Filter(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error) {
	query := FilterQuery(filter)
	g.logger.Debug("filter professors", zap.String("query", query.Encode()))

	resp, err := g.do(ctx, http.MethodGet, filterPath, routeFilter, nil, query)
	if err != nil {
		return nil, err
	}
	var professors []models.Professor
	if err := decode(resp, &professors); err != nil {
		return nil, err
	}
	return professors, nil
}

// FilterQuery builds the query parameters understood by the filter endpoint.
func FilterQuery(filter models.ProfessorFilter) url.Values {
	params := url.Values{}
	if filter.Name != "" {
		params.Set("nome", filter.Name)
	}
	if len(filter.CourseIDs) > 0 {
		params.Set("cursos", strings.Join(filter.CourseIDs, ","))
	}
	if len(filter.Qualifications) > 0 {
		params.Set("titulacoes", strings.Join(filter.Qualifications, ","))
	}
	return params
}

func (g *ProfessorGateway) do(ctx context.Context, method, path, route string, body interface{}, query url.Values) (*transport.Response, error) {
	headers, err := g.authHeaders(ctx)
	if err != nil {
		return nil, err
	}
	return g.transport.Do(ctx, transport.Request{
		Method:  method,
		URL:     g.baseURL + path,
		Route:   route,
		Body:    body,
		Headers: headers,
		Query:   query,
	})
}

// authHeaders reads the token fresh for every call.
func (g *ProfessorGateway) authHeaders(ctx context.Context) (http.Header, error) {
	token, err := g.tokens.Read(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "read bearer token")
	}
	if tokenstore.Expired(token, g.now()) {
		g.logger.Warn("bearer token expired, sending anyway")
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	return headers, nil
}

func itemPath(id string) string {
	return collectionPath + url.PathEscape(id)
}

func raw(resp *transport.Response) json.RawMessage {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if !json.Valid(resp.Body) {
		quoted, _ := json.Marshal(string(resp.Body))
		return quoted
	}
	return json.RawMessage(resp.Body)
}

func decode(resp *transport.Response, dest interface{}) error {
	if resp == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidData.Code, appErrors.ErrInvalidData.Status, "decode professor payload")
	}
	return nil
}
