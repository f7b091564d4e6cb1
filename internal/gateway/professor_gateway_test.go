package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
	"github.com/noah-isme/sma-professor-gateway/internal/tokenstore"
	"github.com/noah-isme/sma-professor-gateway/internal/transport"
	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Auth   string
	Body   []byte
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	status, payload := b.status, b.body
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (b *fakeBackend) respond(status int, body string) {
	b.mu.Lock()
	b.status, b.body = status, body
	b.mu.Unlock()
}

func (b *fakeBackend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

func newGatewayForTest(t *testing.T, tokens tokenstore.Store) (*ProfessorGateway, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	tr := transport.NewHTTPTransport(server.Client(), 0, nil)
	gw := NewProfessorGateway(tr, tokens, Config{BaseURL: server.URL + "/", DeleteConcurrency: 2}, zap.NewNop())
	return gw, backend
}

func sampleProfessor() models.Professor {
	return models.Professor{
		Name:            "Ana",
		EnrollmentID:    "M123",
		UnitID:          "U1",
		Qualification:   "Doutora",
		Reference:       "R-9",
		AcademicProfile: "http://lattes.cnpq.br/123",
		CourseIDs:       []string{"101", "202"},
		ActivityStatus:  "ativo",
		Email:           "ana@example.com",
		Notes:           "coordenadora",
	}
}

func TestProfessorGatewayCreateSendsRecordVerbatim(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok-1"))
	backend.respond(http.StatusCreated, `{"ok":true}`)

	result, err := gw.Create(context.Background(), sampleProfessor())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/professors/", reqs[0].Path)
	assert.Equal(t, "Bearer tok-1", reqs[0].Auth)
	assert.JSONEq(t, `{
		"nome": "Ana",
		"matriculaId": "M123",
		"unidadeId": "U1",
		"titulacao": "Doutora",
		"referencia": "R-9",
		"lattes": "http://lattes.cnpq.br/123",
		"coursesId": ["101", "202"],
		"statusAtividade": "ativo",
		"email": "ana@example.com",
		"notes": "coordenadora"
	}`, string(reqs[0].Body))
}

func TestProfessorGatewayReadsTokenPerCall(t *testing.T) {
	tokens := tokenstore.NewStatic("first")
	gw, backend := newGatewayForTest(t, tokens)
	backend.respond(http.StatusOK, `[]`)

	_, err := gw.List(context.Background())
	require.NoError(t, err)
	tokens.Set("second")
	_, err = gw.List(context.Background())
	require.NoError(t, err)

	reqs := backend.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer first", reqs[0].Auth)
	assert.Equal(t, "Bearer second", reqs[1].Auth)
}

func TestProfessorGatewayAbsentTokenSkipsRequest(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic(""))

	_, err := gw.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Empty(t, backend.recorded())
}

func TestProfessorGatewayList(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `[{"nome":"Ana","matriculaId":"M1"},{"nome":"Bruno","matriculaId":"M2"}]`)

	professors, err := gw.List(context.Background())
	require.NoError(t, err)
	require.Len(t, professors, 2)
	assert.Equal(t, "Bruno", professors[1].Name)
	assert.Equal(t, http.MethodGet, backend.recorded()[0].Method)
}

func TestProfessorGatewayListPropagatesTransportFailure(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusInternalServerError, `{"message":"boom"}`)

	_, err := gw.List(context.Background())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransport.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.UpstreamStatus)
}

func TestProfessorGatewayUpdate(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))

	_, err := gw.Update(context.Background(), "abc", sampleProfessor())
	require.NoError(t, err)

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/professors/abc", reqs[0].Path)
}

func TestProfessorGatewayDeleteIssuesSingleRequest(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))

	_, err := gw.Delete(context.Background(), "M123")
	require.NoError(t, err)

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodDelete, reqs[0].Method)
	assert.Equal(t, "/professors/M123", reqs[0].Path)
	assert.Equal(t, "Bearer tok", reqs[0].Auth)
}

func TestProfessorGatewayDeleteMany(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))

	err := gw.DeleteMany(context.Background(), []string{"M1", "M2", "M3"})
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, r := range backend.recorded() {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths[r.Path] = true
	}
	assert.Equal(t, map[string]bool{"/professors/M1": true, "/professors/M2": true, "/professors/M3": true}, paths)
}

func TestProfessorGatewayDeleteManyReportsFailure(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusNotFound, `{}`)

	err := gw.DeleteMany(context.Background(), []string{"M1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
}

func TestProfessorGatewayFindByIdentifierReturnsRawPayload(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `{"anything":1}`)

	payload, err := gw.FindByIdentifier(context.Background(), "Ana Maria")
	require.NoError(t, err)
	assert.JSONEq(t, `{"anything":1}`, string(payload))
	assert.Equal(t, "/professors/Ana Maria", backend.recorded()[0].Path)
}

func TestProfessorGatewayResolveByName(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		payload  string
		wantName string
		wantErr  *appErrors.Error
	}{
		{name: "exact match", payload: `[{"nome":"Ana","matriculaId":"M1"},{"nome":"Bruno","matriculaId":"M2"}]`, wantName: "Ana"},
		{name: "loose match only", payload: `[{"nome":"Ana Maria"},{"nome":"Bruno"}]`, wantErr: appErrors.ErrNotFound},
		{name: "no match", payload: `[{"nome":"Bruno"}]`, wantErr: appErrors.ErrNotFound},
		{name: "empty list", payload: `[]`, wantErr: appErrors.ErrInvalidData},
		{name: "object payload", payload: `{}`, wantErr: appErrors.ErrInvalidData},
		{name: "malformed payload", payload: `[{"nome":`, wantErr: appErrors.ErrInvalidData},
		{name: "upstream failure", status: http.StatusInternalServerError, payload: `oops`, wantErr: appErrors.ErrRetrieval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
			backend.respond(tt.status, tt.payload)

			professor, err := gw.ResolveByName(context.Background(), "Ana")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, professor)
				assert.Equal(t, tt.wantErr.Code, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, professor.Name)
			assert.Equal(t, "M1", professor.EnrollmentID)
		})
	}
}

func TestProfessorGatewayResolveByNameKeepsCause(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusBadGateway, `down`)

	_, err := gw.ResolveByName(context.Background(), "Ana")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRetrieval))
	assert.True(t, errors.Is(err, appErrors.ErrTransport))
	assert.Equal(t, http.StatusBadGateway, appErrors.FromError(err).UpstreamStatus)
}

func TestProfessorGatewayFilterOmitsEmptyCriteria(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `[]`)

	_, err := gw.Filter(context.Background(), models.ProfessorFilter{})
	require.NoError(t, err)

	reqs := backend.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/professors/filter", reqs[0].Path)
	assert.Empty(t, reqs[0].Query)
}

func TestProfessorGatewayFilterBuildsQuery(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `[{"nome":"Ana"}]`)

	professors, err := gw.Filter(context.Background(), models.ProfessorFilter{Name: "Ana", CourseIDs: []string{"101"}})
	require.NoError(t, err)
	require.Len(t, professors, 1)

	query := backend.recorded()[0].Query
	assert.Equal(t, []string{"Ana"}, query["nome"])
	assert.Equal(t, []string{"101"}, query["cursos"])
	_, hasTitles := query["titulacoes"]
	assert.False(t, hasTitles)
}

func TestFilterQueryJoinsLists(t *testing.T) {
	q := FilterQuery(models.ProfessorFilter{CourseIDs: []string{"1", "2"}, Qualifications: []string{"Mestre", "Doutor"}})
	assert.Equal(t, "cursos=1%2C2&titulacoes=Mestre%2CDoutor", q.Encode())
}

func TestProfessorGatewaySynchronizeReplacesInPlace(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `[{"nome":"Z"}]`)

	target := models.NewProfessorCollection(models.Professor{Name: "X"}, models.Professor{Name: "Y"})
	alias := target

	err := gw.Synchronize(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, 1, alias.Len())
	assert.Equal(t, "Z", alias.Items()[0].Name)
}

func TestProfessorGatewaySynchronizeFailureLeavesTarget(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusServiceUnavailable, `{}`)

	target := models.NewProfessorCollection(models.Professor{Name: "X"}, models.Professor{Name: "Y"})
	err := gw.Synchronize(context.Background(), target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSynchronization))
	assert.Equal(t, 2, target.Len())
}

func TestProfessorGatewaySynchronizeNilTarget(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))

	err := gw.Synchronize(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, backend.recorded())
}

func TestProfessorGatewayExpiredTokenStillSent(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	core, logs := observer.New(zap.WarnLevel)
	tr := transport.NewHTTPTransport(server.Client(), 0, nil)
	gw := NewProfessorGateway(tr, tokenstore.NewStatic(expired), Config{BaseURL: server.URL}, zap.New(core))

	_, err = gw.Delete(context.Background(), "M1")
	require.NoError(t, err)
	require.Len(t, backend.recorded(), 1)
	assert.Equal(t, "Bearer "+expired, backend.recorded()[0].Auth)
	assert.Equal(t, 1, logs.FilterMessage("bearer token expired, sending anyway").Len())
}

func TestProfessorGatewayDecodeFailureIsInvalidData(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusOK, `{"not":"a list"}`)

	_, err := gw.List(context.Background())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidData.Code, appErr.Code)

	var typeErr *json.UnmarshalTypeError
	assert.True(t, errors.As(err, &typeErr))
}

func TestProfessorGatewayCreateQuotesNonJSONResult(t *testing.T) {
	gw, backend := newGatewayForTest(t, tokenstore.NewStatic("tok"))
	backend.respond(http.StatusCreated, `created`)

	result, err := gw.Create(context.Background(), sampleProfessor())
	require.NoError(t, err)
	assert.JSONEq(t, `"created"`, string(result))
}
