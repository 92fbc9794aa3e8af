package cellservice

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurae-runtime/auraed/internal/runtimectx"
)

func TestServer_Discover(t *testing.T) {
	srv := NewServer(NewRouter(t.TempDir(), runtimectx.Runtime{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/discover", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"healthy":true`)
}

func TestServer_PosixSignals_UnavailableWithoutFanout(t *testing.T) {
	srv := NewServer(NewRouter(t.TempDir(), runtimectx.Runtime{}))

	req := httptest.NewRequest(http.MethodGet, "/v1/observe/posix-signals", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestServer_Allocate_InvalidCellName(t *testing.T) {
	srv := NewServer(NewRouter(t.TempDir(), runtimectx.Runtime{}))

	req := httptest.NewRequest(http.MethodPost, "/v1/cell/allocate", strings.NewReader(`{"cell_name":"Bad_Name"}`))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
