package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorlens/adapters/excel"
	"factorlens/adapters/memory"
	"factorlens/app"
	"factorlens/domain/core"
	"factorlens/internal"
	"factorlens/internal/batch"
	"factorlens/internal/config"
	"factorlens/internal/discovery"
	"factorlens/internal/insights"
	"factorlens/internal/learning"
	"factorlens/internal/prediction"
	"factorlens/internal/testkit"
	"factorlens/internal/validation"
	"factorlens/ports"
)

// newTestServer wires the full pipeline over in-memory adapters with a 95
// day hot-day fixture ending yesterday, so discovery, forecast and report
// endpoints all have real data behind them.
func newTestServer(t *testing.T) (*Server, core.EntityID) {
	t.Helper()
	entityID := core.EntityID("shop-1")
	logger := internal.NewDefaultLogger()
	cfg := config.AnalysisConfig{
		MinCorrelation:         0.15,
		SignificanceLevel:      0.05,
		DiscoveryWindowDays:    90,
		TrialSaturation:        100,
		BacktestMinMatches:     5,
		BacktestMaxErrorPct:    25,
		ValidationWindowDays:   30,
		RollupMinAccuracyPct:   70,
		RollupMinDataPoints:    20,
		ResolveMinConfidence:   60,
		VersionConflictRetries: 3,
		BaselineWindowDays:     90,
		PredictTimeout:         5 * time.Second,
	}

	genCfg := testkit.DefaultGeneratorConfig(entityID)
	genCfg.StartDate = core.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -95)
	genCfg.Days = 95
	genCfg.FactorsFor = testkit.HotDays(5, 95, 70)
	genCfg.Effects = []testkit.Effect{testkit.HotDayEffect(20)}
	txs, dayFactors := testkit.NewGenerator(genCfg).Generate()

	transactions := memory.NewTransactionSource()
	transactions.Add(entityID, txs...)
	factors := memory.NewFactorSource()
	for key, df := range dayFactors {
		date, err := core.ParseDateKey(key)
		require.NoError(t, err)
		factors.Set(entityID, date, df)
	}
	locations := memory.NewLocationResolver()
	locations.Set(entityID, ports.Location{Region: "austin-tx", Category: "coffee_shop"})

	repo := memory.NewCorrelationRepository()
	agg := memory.NewAggregationStore(transactions)
	cache := memory.NewForecastCache()

	learningStore := learning.NewStore(repo, cfg, logger)
	analysis := app.NewAnalysisService(
		transactions,
		factors,
		locations,
		repo,
		agg,
		cache,
		discovery.NewEngine(repo, cfg, logger),
		learningStore,
		validation.NewValidator(repo, cfg, logger),
		insights.NewEngine(agg, logger),
		prediction.NewEngine(agg, learningStore, repo, factors, cache, cfg, logger),
		batch.NewRunner(4, time.Minute, logger),
		cfg,
		logger,
	)
	return NewServer(analysis, excel.NewReportWriter(), gin.TestMode, logger), entityID
}

func do(srv *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDiscoverThenForecastFlow(t *testing.T) {
	srv, id := newTestServer(t)

	w := do(srv, http.MethodPost, "/api/entities/"+string(id)+"/discover")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var discoverResp struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &discoverResp))
	assert.GreaterOrEqual(t, discoverResp.Created, 1, "the injected hot-day pattern should be discovered")

	w = do(srv, http.MethodGet, "/api/entities/"+string(id)+"/forecast")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var forecast struct {
		Mid  float64 `json:"mid"`
		Low  float64 `json:"low"`
		High float64 `json:"high"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &forecast))
	assert.Greater(t, forecast.Mid, 0.0)
	assert.LessOrEqual(t, forecast.Low, forecast.Mid)
	assert.GreaterOrEqual(t, forecast.High, forecast.Mid)
}

func TestForecastRejectsMalformedDate(t *testing.T) {
	srv, id := newTestServer(t)
	w := do(srv, http.MethodGet, "/api/entities/"+string(id)+"/forecast?date=13-45-2020")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_INPUT")
}

func TestForecastUnknownEntityIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(srv, http.MethodGet, "/api/entities/nowhere/forecast")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestReportFormats(t *testing.T) {
	srv, id := newTestServer(t)
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/entities/"+string(id)+"/discover").Code)

	w := do(srv, http.MethodGet, "/api/entities/"+string(id)+"/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), string(id))

	w = do(srv, http.MethodGet, "/api/entities/"+string(id)+"/report?format=html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = do(srv, http.MethodGet, "/api/entities/"+string(id)+"/report.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestInsightsEndpoint(t *testing.T) {
	srv, id := newTestServer(t)
	w := do(srv, http.MethodGet, "/api/entities/"+string(id)+"/insights")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var set struct {
		EntityID string `json:"entity_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, string(id), set.EntityID)
}

func TestValidateEndpoint(t *testing.T) {
	srv, id := newTestServer(t)
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/api/entities/"+string(id)+"/discover").Code)

	w := do(srv, http.MethodPost, "/api/entities/"+string(id)+"/validate")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Confirmed int `json:"confirmed"`
		Refuted   int `json:"refuted"`
		Skipped   int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Confirmed+resp.Refuted+resp.Skipped, 1)
}
