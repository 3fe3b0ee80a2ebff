package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reedfrost/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func setupRouter(t *testing.T, defaultP *float64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	kit := testkit.NewTestKit()
	router := gin.New()
	NewEpidemicHandler(kit.Service, defaultP, 5*time.Second).RegisterRoutes(router)
	return router
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "pcg", gjson.Get(w.Body.String(), "algorithm").String())
}

func TestGetPMF(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodGet, "/api/v1/pmf?s_inf=5&s=10&i=1&p=0.05", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 0.0152347, gjson.Get(w.Body.String(), "probability").Float(), 1e-6)

	tests := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{"missing p", "s_inf=5&s=10&i=1", http.StatusBadRequest, "INVALID_INPUT"},
		{"p out of range", "s_inf=5&s=10&i=1&p=1.5", http.StatusBadRequest, "INVALID_INPUT"},
		{"p not a number", "s_inf=5&s=10&i=1&p=abc", http.StatusBadRequest, "INVALID_INPUT"},
		{"target above population", "s_inf=11&s=10&i=1&p=0.05", http.StatusBadRequest, "INVALID_INPUT"},
		{"negative count", "s_inf=5&s=-10&i=1&p=0.05", http.StatusBadRequest, "INVALID_INPUT"},
		{"population too large", "s_inf=5&s=100000&i=1&p=0.05", http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodGet, "/api/v1/pmf?"+tt.query, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, gjson.Get(w.Body.String(), "code").String())
		})
	}
}

func TestGetPMF_DefaultP(t *testing.T) {
	p := 0.05
	router := setupRouter(t, &p)

	w := perform(router, http.MethodGet, "/api/v1/pmf?s_inf=5&s=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0.05, gjson.Get(w.Body.String(), "p").Float())
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "i").Int())
	assert.InDelta(t, 0.0152347, gjson.Get(w.Body.String(), "probability").Float(), 1e-6)
}

func TestGetDistribution(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodGet, "/api/v1/distribution?s=12&i=2&p=0.1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.InDelta(t, 1.0, gjson.Get(body, "total").Float(), 1e-9)
	assert.Equal(t, int64(13), gjson.Get(body, "outcomes.#").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "outcomes.0.total_infected").Int())
	assert.InDelta(t, 0.1059780, gjson.Get(body, "outcomes.#(s_inf==3).probability").Float(), 1e-6)
	assert.True(t, gjson.Get(body, "shape.bimodal").Exists())
}

func TestGetTrajectory(t *testing.T) {
	router := setupRouter(t, nil)

	path := "/api/v1/trajectory?s0=30&i0=2&p=0.08&seed=45"
	first := perform(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := perform(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, second.Code)

	body := first.Body.String()
	assert.Equal(t, int64(31), gjson.Get(body, "trajectory.#").Int())
	assert.Equal(t, int64(2), gjson.Get(body, "trajectory.0").Int())
	assert.Equal(t, body, second.Body.String())

	w := perform(router, http.MethodGet, "/api/v1/trajectory?s0=30&i0=2&p=0.08&seed=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnsembleLifecycle(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodPost, "/api/v1/ensembles", `{"s0":10,"i0":1,"p":0.05,"runs":100,"base_seed":44}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := w.Body.String()
	id := gjson.Get(created, "id").String()
	require.NotEmpty(t, id)
	assert.Equal(t, "/api/v1/ensembles/"+id, w.Header().Get("Location"))
	assert.Equal(t, int64(100), gjson.Get(created, "runs").Int())
	assert.Equal(t, int64(45), gjson.Get(created, "seeds.0").Int())
	assert.Equal(t, int64(144), gjson.Get(created, "seeds.99").Int())

	w = perform(router, http.MethodGet, "/api/v1/ensembles/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, gjson.Get(w.Body.String(), "id").String())

	w = perform(router, http.MethodGet, "/api/v1/ensembles", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "count").Int())
	assert.False(t, gjson.Get(w.Body.String(), "ensembles.0.trajectories").Exists())

	w = perform(router, http.MethodGet, "/api/v1/ensembles/"+id+"/compare", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tv := gjson.Get(w.Body.String(), "total_variation_distance").Float()
	assert.GreaterOrEqual(t, tv, 0.0)
	assert.LessOrEqual(t, tv, 1.0)

	w = perform(router, http.MethodGet, "/api/v1/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Positive(t, gjson.Get(w.Body.String(), "pmf_entries").Int())
}

func TestEnsembleErrors(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodPost, "/api/v1/ensembles", `{"s0":10,"i0":1,"p":0.05}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPost, "/api/v1/ensembles", `{"s0":10,"i0":1,"runs":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPost, "/api/v1/ensembles", `{"s0":10,"i0":1,"p":0.05,"runs":1000000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/api/v1/ensembles/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/api/v1/ensembles/0190a4e2-3c1e-7b6a-9d1f-1a2b3c4d5e6f", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", gjson.Get(w.Body.String(), "code").String())

	w = perform(router, http.MethodGet, "/api/v1/ensembles?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	kit := testkit.NewTestKit()
	router := gin.New()
	NewEpidemicHandler(kit.Service, nil, time.Nanosecond).RegisterRoutes(router)

	for _, path := range []string{
		"/api/v1/distribution?s=200&i=1&p=0.02",
		"/api/v1/pmf?s_inf=0&s=200&i=1&p=0.02",
	} {
		start := time.Now()
		w := perform(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Less(t, time.Since(start), 2*time.Second, path)
		assert.NotEmpty(t, gjson.Get(w.Body.String(), "error").String())
	}

	// Abandoned computations leave nothing behind
	assert.Zero(t, kit.Service.CacheStats().PMFEntries)
}

func TestResetCache(t *testing.T) {
	router := setupRouter(t, nil)

	w := perform(router, http.MethodGet, "/api/v1/pmf?s_inf=5&s=10&i=1&p=0.05", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/api/v1/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Positive(t, gjson.Get(w.Body.String(), "pmf_entries").Int())
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "probabilities").Int())

	w = perform(router, http.MethodDelete, "/api/v1/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, gjson.Get(w.Body.String(), "pmf_entries").Int())
	assert.Zero(t, gjson.Get(w.Body.String(), "transition_entries").Int())
	assert.Positive(t, gjson.Get(w.Body.String(), "max_entries").Int())
}
