package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lherron/guildq/internal/domain"
	"github.com/lherron/guildq/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImporter struct {
	result *importer.Result
	err    error
	got    importer.Input
	opts   importer.Options
}

func (s *stubImporter) Import(_ context.Context, in importer.Input, opts importer.Options) (*importer.Result, error) {
	s.got = in
	s.opts = opts
	return s.result, s.err
}

type stubProjects map[string]*domain.Project

func (s stubProjects) Get(_ context.Context, identifier string) (*domain.Project, error) {
	return s[identifier], nil
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestImportStatusCodes(t *testing.T) {
	project := &domain.Project{ID: "p-1", Name: "brave-otter"}

	tests := []struct {
		name   string
		result *importer.Result
		err    error
		want   int
		kind   string
	}{
		{"created", &importer.Result{Project: project, Created: true}, nil, http.StatusCreated, ""},
		{"updated", &importer.Result{Project: project}, nil, http.StatusOK, ""},
		{"not found", nil, domain.NotFoundError([]string{"ghost"}, "Users not found for identifiers: ghost"), http.StatusNotFound, "not_found"},
		{"conflict", nil, domain.ConflictError([]string{"cy2"}, "mismatch"), http.StatusConflict, "conflict"},
		{"validation", nil, domain.ValidationError("New project imports must specify a goal"), http.StatusUnprocessableEntity, "validation"},
		{"infrastructure", nil, errors.New("database is locked"), http.StatusInternalServerError, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &stubImporter{result: tt.result, err: tt.err}
			h := New(imp, stubProjects{}, Options{}).Handler()

			rec := do(t, h, http.MethodPost, "/v1/projects/import",
				`{"chapter_identifier":"c1","player_identifiers":["alice"],"initialize_channel":true}`, nil)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())

			assert.Equal(t, "c1", imp.got.ChapterIdentifier)
			assert.Equal(t, []string{"alice"}, imp.got.PlayerIdentifiers)
			assert.True(t, imp.opts.InitializeChannel)

			body := decode(t, rec)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, body["kind"])
				assert.Equal(t, tt.err.Error(), body["message"])
			}
		})
	}
}

func TestImportNotFoundIncludesIdentifiers(t *testing.T) {
	imp := &stubImporter{err: domain.NotFoundError([]string{"ghost", "phantom"}, "Users not found for identifiers: ghost, phantom")}
	h := New(imp, stubProjects{}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/v1/projects/import", `{"chapter_identifier":"c1"}`, nil)
	body := decode(t, rec)
	assert.Equal(t, []interface{}{"ghost", "phantom"}, body["identifiers"])
}

func TestImportReportsChannelError(t *testing.T) {
	imp := &stubImporter{result: &importer.Result{
		Project:    &domain.Project{ID: "p-1"},
		Created:    true,
		ChannelErr: errors.New("webhook returned 502"),
	}}
	h := New(imp, stubProjects{}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/v1/projects/import", `{"chapter_identifier":"c1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "webhook returned 502", body["channel_error"])
	assert.Equal(t, true, body["created"])
}

func TestImportRejectsMalformedBody(t *testing.T) {
	h := New(&stubImporter{}, stubProjects{}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/v1/projects/import", `{"chapter_identifier":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/projects/import", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestImportRejectsOversizedBody(t *testing.T) {
	imp := &stubImporter{}
	h := New(imp, stubProjects{}, Options{}).Handler()

	body := `{"chapter_identifier":"` + strings.Repeat("a", maxBodyBytes+1) + `"}`
	rec := do(t, h, http.MethodPost, "/v1/projects/import", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, imp.got.ChapterIdentifier)
}

func TestProjectsGet(t *testing.T) {
	projects := stubProjects{"brave-otter": {ID: "p-1", Name: "brave-otter"}}
	h := New(&stubImporter{}, projects, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/v1/projects/get", `{"identifier":"brave-otter"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p-1", decode(t, rec)["id"])

	rec = do(t, h, http.MethodPost, "/v1/projects/get", `{"identifier":"nope"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/projects/get", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth(t *testing.T) {
	h := New(&stubImporter{}, stubProjects{}, Options{Token: "secret"}).Handler()

	rec := do(t, h, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/health", "", map[string]string{"Authorization": "Bearer secreT"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/health", "", map[string]string{"X-Guildqd-Token": "secret-extra"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/health", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/health", "", map[string]string{"X-Guildqd-Token": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
}

func TestStatusForDeadline(t *testing.T) {
	imp := &stubImporter{err: context.DeadlineExceeded}
	h := New(imp, stubProjects{}, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/v1/projects/import", `{"chapter_identifier":"c1"}`, nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}
