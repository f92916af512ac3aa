package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/ca"
	"github.com/uap-core/uap/contextstore"
	"github.com/uap-core/uap/registry"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)
	return NewChecker(registry.NewDirectory(), contextstore.NewStore(), authority)
}

func TestCheckAllHealthyWithBootstrappedCA(t *testing.T) {
	report := newTestChecker(t).CheckAll()
	assert.Equal(t, StatusHealthy, report.Status)
	assert.True(t, report.CAReady)
	assert.Empty(t, report.Errors)
}

func TestCheckAllUnhealthyWithoutCA(t *testing.T) {
	report := NewChecker(registry.NewDirectory(), contextstore.NewStore(), nil).CheckAll()
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.NotEmpty(t, report.Errors)
}

func TestServerEndpoints(t *testing.T) {
	checker := newTestChecker(t)
	srv := NewServer(checker, ":0")
	require.NoError(t, srv.Start())
	defer srv.Stop(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/health/live", srv.handleLiveness)
	mux.HandleFunc("/health/ready", srv.handleReadiness)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var live map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&live))
	assert.Equal(t, "alive", live["status"])

	readyResp, err := http.Get(ts.URL + "/health/ready")
	require.NoError(t, err)
	defer readyResp.Body.Close()
	assert.Equal(t, http.StatusOK, readyResp.StatusCode)
}
