package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkwsnb/notepress/internal/site"
	"github.com/tkwsnb/notepress/internal/storage"
)

func newServer(t *testing.T, token string, rebuild RebuildFunc) *Server {
	t.Helper()
	store, err := storage.New(afero.NewMemMapFs(), "/out")
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("index.html", []byte("<h1>home</h1>")))
	require.NoError(t, store.WriteFile("posts/hello/index.html", []byte("<h1>hello</h1>")))
	if rebuild == nil {
		rebuild = func(context.Context) (site.Report, error) {
			return site.Report{Pages: 3, Embeds: 2, Unresolved: 1}, nil
		}
	}
	return New(store, rebuild, token, nil)
}

func do(s *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(newServer(t, "secret", nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRebuildAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		sent   string
		status int
	}{
		{name: "no token configured", status: http.StatusOK},
		{name: "valid token", token: "secret", sent: "secret", status: http.StatusOK},
		{name: "missing token", token: "secret", status: http.StatusUnauthorized},
		{name: "wrong token", token: "secret", sent: "nope", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(newServer(t, tt.token, nil), http.MethodPost, "/api/rebuild", tt.sent)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRebuildReport(t *testing.T) {
	t.Parallel()

	rec := do(newServer(t, "", nil), http.MethodPost, "/api/rebuild", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pages":3,"embeds":2,"unresolved":1}`, rec.Body.String())
}

func TestRebuildError(t *testing.T) {
	t.Parallel()

	s := newServer(t, "", func(context.Context) (site.Report, error) {
		return site.Report{}, errors.New("boom")
	})
	rec := do(s, http.MethodPost, "/api/rebuild", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	rec := do(newServer(t, "secret", nil), http.MethodGet, "/api/files", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var files []storage.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, "index.html", files[0].Path)
	assert.Equal(t, "posts/hello/index.html", files[1].Path)
}

func TestServesSite(t *testing.T) {
	t.Parallel()

	s := newServer(t, "secret", nil)

	rec := do(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>home</h1>")

	rec = do(s, http.MethodGet, "/posts/hello/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>hello</h1>")

	rec = do(s, http.MethodGet, "/missing/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
