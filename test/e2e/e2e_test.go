// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opt-eligibility/internal/api"
	"opt-eligibility/internal/common/camunda"
	"opt-eligibility/internal/common/config"
	"opt-eligibility/internal/common/database"
	"opt-eligibility/internal/common/logger"
	"opt-eligibility/internal/common/observability"
	"opt-eligibility/internal/common/ratelimit"
	"opt-eligibility/internal/eligibility"

	coe "opt-eligibility/internal/workers/eligibility/check-opt-eligibility"
)

// ==========================
// 1. Service wiring
// ==========================

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromFile(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config) *eligibility.Engine {
	t.Helper()
	policy, err := cfg.Rules.Policy()
	require.NoError(t, err)
	engine, err := eligibility.NewEngine(policy)
	require.NoError(t, err)
	return engine
}

func newObservability(t *testing.T) *observability.Observability {
	t.Helper()
	obs, err := observability.New(observability.Options{
		ServiceName: "opt-eligibility-e2e",
		Registerer:  prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })
	return obs
}

// startService boots the HTTP API the way the service binary does, with the
// rate limiter backed by an in-process Redis.
func startService(t *testing.T, requestsPerWindow int) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	cfg := loadConfig(t)
	cfg.Database.Redis.Address = mr.Addr()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Requests = requestsPerWindow

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()))

	log := logger.NewTestLogger(t)
	router := api.NewRouter(api.Dependencies{
		Engine:        newEngine(t, cfg),
		Logger:        log,
		Observability: newObservability(t),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Limiter:       ratelimit.New(rdb.GetClient(), cfg.RateLimit, log),
		ReadinessChecks: map[string]api.ReadinessCheck{
			"redis": rdb.Ping,
		},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(eligibility.DateLayout)
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url+"/validate", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func errorCodes(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	detail, ok := body["detail"].(map[string]interface{})
	require.True(t, ok, "expected an invalid response, got %v", body)
	assert.Equal(t, "invalid", detail["status"])

	var codes []string
	for _, e := range detail["errors"].([]interface{}) {
		codes = append(codes, e.(map[string]interface{})["code"].(string))
	}
	return codes
}

// ==========================
// 2. HTTP end to end
// ==========================

func TestHTTPEndToEnd(t *testing.T) {
	srv := startService(t, 100)

	t.Run("scenario A is eligible", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL, map[string]interface{}{
			"degree_level":           "Master",
			"is_stem_degree":         true,
			"program_end_date":       day(30),
			"opt_stage":              "Post",
			"unemployment_days_used": 10,
		})

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "valid", body["status"])
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
		require.Contains(t, body, "timeline")
	})

	t.Run("scenario B lists every violation", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL, map[string]interface{}{
			"degree_level":           "Master",
			"is_stem_degree":         false,
			"program_end_date":       day(400),
			"opt_stage":              "STEM",
			"unemployment_days_used": 200,
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, []string{"STEM_DEGREE_REQUIRED", "DATE_OUT_OF_RANGE", "UNEMPLOYMENT_CAP_EXCEEDED"}, errorCodes(t, body))
	})

	t.Run("scenario C stops at the parser", func(t *testing.T) {
		resp, body := postJSON(t, srv.URL, map[string]interface{}{
			"degree_level":           "Master",
			"is_stem_degree":         false,
			"program_end_date":       day(400),
			"opt_stage":              "STEM",
			"unemployment_days_used": -5,
		})

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, []string{"OUT_OF_DOMAIN"}, errorCodes(t, body))
	})

	t.Run("readiness reports redis", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("rules echo the configured table", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/rules")
		require.NoError(t, err)
		defer resp.Body.Close()

		var rules api.RulesResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
		assert.Equal(t, 365, rules.DateWindow.FutureDays)
		assert.Len(t, rules.Stages, 3)
	})
}

func TestHTTPEndToEnd_RateLimit(t *testing.T) {
	srv := startService(t, 3)
	app := map[string]interface{}{
		"degree_level":     "PhD",
		"is_stem_degree":   true,
		"program_end_date": day(10),
		"opt_stage":        "STEM",
	}

	limited := 0
	for i := 0; i < 5; i++ {
		resp, body := postJSON(t, srv.URL, app)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
			assert.NotEmpty(t, resp.Header.Get("Retry-After"))
			assert.Equal(t, "RATE_LIMITED", body["error"].(map[string]interface{})["code"])
		}
	}
	// A window boundary between requests can reset the counter once.
	assert.GreaterOrEqual(t, limited, 1)
}

// ==========================
// 3. Zeebe end to end
// ==========================

const processID = "opt-eligibility-check"

func TestZeebeEndToEnd(t *testing.T) {
	address := os.Getenv("ZEEBE_ADDRESS")
	if address == "" {
		t.Skip("ZEEBE_ADDRESS not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := camunda.NewClientWithConfig(&camunda.ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         30 * time.Second,
	})
	require.NoError(t, err, "Zeebe connection failed")
	defer client.Close()
	require.NoError(t, client.HealthCheck(ctx))

	// The process routes OPT_INELIGIBLE to its own end event.
	definition, err := os.ReadFile(filepath.Join("..", "..", "configs", "bpmn", "opt-eligibility-check.bpmn"))
	require.NoError(t, err)
	_, err = client.DeployResource(ctx, "opt-eligibility-check.bpmn", definition)
	require.NoError(t, err, "deploy failed")

	cfg := loadConfig(t)
	log := logger.NewTestLogger(t)
	handler := coe.NewHandler(coe.LoadConfig(config.GetWorkerConfig(cfg, coe.TaskType)), newEngine(t, cfg), newObservability(t), log)
	w := camunda.NewWorker(client.GetClient(), camunda.WorkerOptions{
		TaskType:      coe.TaskType,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}, handler, log)
	defer w.Stop()

	run := func(t *testing.T, application map[string]interface{}) map[string]interface{} {
		t.Helper()
		cmd, err := client.GetClient().NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromMap(map[string]interface{}{
				"application": application,
				"requestId":   "e2e-" + t.Name(),
			})
		require.NoError(t, err)

		result, err := cmd.WithResult().Send(ctx)
		require.NoError(t, err)

		var vars map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &vars))
		return vars
	}

	t.Run("eligible application completes the task", func(t *testing.T) {
		vars := run(t, map[string]interface{}{
			"degree_level":           "Master",
			"is_stem_degree":         true,
			"program_end_date":       day(30),
			"opt_stage":              "Post",
			"unemployment_days_used": 10,
		})
		assert.Equal(t, true, vars["isEligible"])
		assert.Contains(t, vars, "normalizedData")
	})

	t.Run("ineligible application takes the error path", func(t *testing.T) {
		vars := run(t, map[string]interface{}{
			"degree_level":     "Master",
			"is_stem_degree":   false,
			"program_end_date": day(400),
			"opt_stage":        "STEM",
		})
		assert.NotContains(t, vars, "isEligible")
	})
}

// ==========================
// 4. Benchmarks
// ==========================

func BenchmarkEngine_Validate(b *testing.B) {
	engine, err := eligibility.NewEngine(eligibility.DefaultPolicy())
	require.NoError(b, err)
	app := map[string]interface{}{
		"degree_level":           "Master",
		"is_stem_degree":         true,
		"program_end_date":       day(30),
		"opt_stage":              "Post",
		"unemployment_days_used": 10.0,
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Validate(app)
	}
}

func BenchmarkHandler_CheckOptEligibility(b *testing.B) {
	engine, err := eligibility.NewEngine(eligibility.DefaultPolicy())
	require.NoError(b, err)
	obs, err := observability.New(observability.Options{
		ServiceName: "bench",
		Registerer:  prometheus.NewRegistry(),
	})
	require.NoError(b, err)
	defer obs.Shutdown(context.Background())

	handler := coe.NewHandler(coe.LoadConfig(config.WorkerConfig{}), engine, obs, logger.NewNoOpLogger())
	input := &coe.Input{Application: map[string]interface{}{
		"degree_level":     "PhD",
		"is_stem_degree":   true,
		"program_end_date": day(-10),
		"opt_stage":        "STEM",
	}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
