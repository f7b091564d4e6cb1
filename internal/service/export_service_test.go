package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

type professorSourceStub struct {
	listed     int
	filtered   []models.ProfessorFilter
	professors []models.Professor
	err        error
}

func (s *professorSourceStub) List(ctx context.Context) ([]models.Professor, error) {
	s.listed++
	return s.professors, s.err
}

func (s *professorSourceStub) Filter(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, error) {
	s.filtered = append(s.filtered, filter)
	return s.professors, s.err
}

func newExportForTest(source *professorSourceStub) *ExportService {
	svc := NewExportService(source, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC) }
	return svc
}

func TestExportServiceCSV(t *testing.T) {
	source := &professorSourceStub{professors: []models.Professor{
		{Name: "Ana", EnrollmentID: "M1", CourseIDs: []string{"101", "202"}, Qualification: "Doutora"},
		{Name: "Bruno", EnrollmentID: "M2"},
	}}
	svc := newExportForTest(source)

	result, err := svc.Export(context.Background(), "CSV", models.ProfessorFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, source.listed)
	assert.Empty(t, source.filtered)
	assert.Equal(t, "professores-20260304-150607.csv", result.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.Equal(t, 2, result.Rows)

	records, err := csv.NewReader(strings.NewReader(string(result.Data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, reportHeaders, records[0])
	assert.Equal(t, "Ana", records[1][0])
	assert.Equal(t, "101, 202", records[1][6])
	assert.Equal(t, "Doutora", records[1][3])
}

func TestExportServicePDFUsesFilter(t *testing.T) {
	source := &professorSourceStub{professors: []models.Professor{{Name: "Ana", EnrollmentID: "M1"}}}
	svc := newExportForTest(source)

	filter := models.ProfessorFilter{Name: "Ana"}
	result, err := svc.Export(context.Background(), "pdf", filter)
	require.NoError(t, err)
	assert.Zero(t, source.listed)
	assert.Equal(t, []models.ProfessorFilter{filter}, source.filtered)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	source := &professorSourceStub{}
	svc := newExportForTest(source)

	_, err := svc.Export(context.Background(), "docx", models.ProfessorFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), `"docx"`)
	assert.Zero(t, source.listed)
}

func TestExportServicePropagatesSourceError(t *testing.T) {
	source := &professorSourceStub{err: appErrors.Clone(appErrors.ErrTransport, "")}
	svc := newExportForTest(source)

	_, err := svc.Export(context.Background(), "csv", models.ProfessorFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
}

func TestProfessorDataset(t *testing.T) {
	ds := ProfessorDataset([]models.Professor{{
		Name: "Ana", EnrollmentID: "M1", UnitID: "U1", Qualification: "Mestre", Reference: "R",
		AcademicProfile: "lattes", CourseIDs: []string{"1"}, ActivityStatus: "ativo", Email: "a@b.c", Notes: "n",
	}})
	assert.Equal(t, "Relatório de Professores", ds.Title)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, []string{"Ana", "M1", "U1", "Mestre", "R", "lattes", "1", "ativo", "a@b.c", "n"}, ds.Rows[0])
	assert.Len(t, ds.Headers, len(ds.Rows[0]))
}

func TestExportServiceXLSX(t *testing.T) {
	source := &professorSourceStub{professors: []models.Professor{{Name: "Ana", EnrollmentID: "M1"}}}
	svc := newExportForTest(source)

	result, err := svc.Export(context.Background(), "xlsx", models.ProfessorFilter{})
	require.NoError(t, err)
	assert.Equal(t, "professores-20260304-150607.xlsx", result.Filename)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "PK"))
}
