package gateway

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

// ResolveByName narrows the backend lookup for name to the single record
// whose name matches exactly. The lookup endpoint returns loose matches.
func (g *ProfessorGateway) ResolveByName(ctx context.Context, name string) (*models.Professor, error) {
	payload, err := g.FindByIdentifier(ctx, name)
	if err != nil {
		g.logger.Warn("professor lookup failed", zap.String("name", name), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrRetrieval)
	}

	professors, ok := decodeList(payload)
	if !ok || len(professors) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidData, "")
	}

	for i := range professors {
		if professors[i].Name == name {
			found := professors[i]
			return &found, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "")
}

// decodeList accepts only a JSON array of professors.
func decodeList(payload json.RawMessage) ([]models.Professor, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var professors []models.Professor
	if err := json.Unmarshal(trimmed, &professors); err != nil {
		return nil, false
	}
	return professors, true
}
