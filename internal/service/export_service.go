package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
	"github.com/noah-isme/sma-professor-gateway/pkg/export"
)

var reportHeaders = []string{"Nome", "Matrícula", "Unidade", "Titulação", "Referência", "Lattes", "Cursos", "Status", "Email", "Observações"}

type professorSource interface {
	List(ctx context.Context) ([]models.Professor, error)
	Filter(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error)
}

// ExportResult is a rendered professor report.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the professor report in the requested format.
type ExportService struct {
	source    professorSource
	renderers []export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source professorSource, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter()}
	}
	return &ExportService{source: source, renderers: renderers, logger: logger, now: time.Now}
}

// Export fetches professors (filtered when criteria are set) and renders them.
func (s *ExportService) Export(ctx context.Context, format string, filter models.ProfessorFilter) (*ExportResult, error) {
	renderer, ok := export.Lookup(format, s.renderers...)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	var (
		professors []models.Professor
		err        error
	)
	if isEmptyFilter(filter) {
		professors, err = s.source.List(ctx)
	} else {
		professors, err = s.source.Filter(ctx, filter)
	}
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(ProfessorDataset(professors))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render professor report")
	}

	filename := fmt.Sprintf("professores-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension())
	s.logger.Info("professor report exported", zap.String("format", renderer.Extension()), zap.Int("rows", len(professors)))
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Data: data, Rows: len(professors)}, nil
}

// ProfessorDataset converts professors into report rows.
func ProfessorDataset(professors []models.Professor) export.Dataset {
	rows := make([][]string, 0, len(professors))
	for _, p := range professors {
		rows = append(rows, []string{
			p.Name,
			p.EnrollmentID,
			p.UnitID,
			p.Qualification,
			p.Reference,
			p.AcademicProfile,
			strings.Join(p.CourseIDs, ", "),
			p.ActivityStatus,
			p.Email,
			p.Notes,
		})
	}
	return export.Dataset{Title: "Relatório de Professores", Headers: reportHeaders, Rows: rows}
}

func isEmptyFilter(f models.ProfessorFilter) bool {
	return f.Name == "" && len(f.CourseIDs) == 0 && len(f.Qualifications) == 0
}
