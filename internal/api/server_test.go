package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/actprep/internal/app"
	"github.com/abhisek/actprep/internal/llm"
	"github.com/abhisek/actprep/internal/questiongen"
	"github.com/abhisek/actprep/internal/store"
	"github.com/abhisek/actprep/internal/telemetry"
)

const questionJSON = `[{
	"context": "A rectangle has length 8 and width 3.",
	"question": "What is its area?",
	"options": {"A": "11", "B": "22", "C": "24", "D": "32"},
	"correct_option": "C",
	"explanation": "8 * 3 = 24",
	"category": "Math",
	"difficulty": "Easy"
}]`

type testEnv struct {
	srv     *httptest.Server
	mock    *llm.MockProvider
	store   *store.Store
	timings *telemetry.Timings
}

func newTestEnv(t *testing.T, cooldown time.Duration, responses ...llm.MockResponse) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(responses...)
	timings := telemetry.NewTimings()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(prometheus.NewRegistry()))
	rec := telemetry.Multi(timings, metrics)

	settings := app.DefaultSettings()
	settings.Cooldown = cooldown
	a := app.New(app.Deps{
		Source:    st.ResponseRepo(),
		Sink:      st.ResponseRepo(),
		Generator: questiongen.New(mock, questiongen.DefaultConfig(), questiongen.WithRecorder(rec), questiongen.WithCounter(metrics)),
		Recorder:  rec,
		Counter:   metrics,
	}, settings)

	s := NewServer(a, WithMetrics(metrics), WithTimings(timings))
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, mock: mock, store: st, timings: timings}
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

const scoresBody = `{"user_results":{"Math":18,"Reading":24,"Science":20,"English":22},"regional_results":{"Math":20,"Reading":21,"Science":21,"English":20}}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 0)
	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","generation":"ready"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealth_ReportsCooldown(t *testing.T) {
	env := newTestEnv(t, 30*time.Second, llm.MockResponse{Text: questionJSON})

	resp, _ := env.post(t, "/generate-questions", scoresBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := env.get(t, "/health")
	var out healthResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "cooling_down", out.Generation)
	assert.Greater(t, out.RetryAfter, 0)
	assert.LessOrEqual(t, out.RetryAfter, 30)
}

func TestGenerateQuestions_Success(t *testing.T) {
	env := newTestEnv(t, 0, llm.MockResponse{Text: questionJSON})

	resp, out := env.post(t, "/generate-questions", scoresBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "strict", out["source"])

	qs := out["questions"].([]any)
	require.Len(t, qs, 1)
	q := qs[0].(map[string]any)
	assert.Equal(t, "Mathematics", q["category"])
	assert.Equal(t, "C", q["correct_option"])
	assert.NotContains(t, q, "error")

	assert.Contains(t, env.mock.Calls[0].Messages[0].Content, "User ACT Results: Mathematics 18")
}

func TestGenerateQuestions_MissingFields(t *testing.T) {
	env := newTestEnv(t, 0)

	for _, body := range []string{`{}`, `{"user_results":{"Math":18}}`} {
		resp, out := env.post(t, "/generate-questions", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, missingFieldsMessage, out["error"])
	}
	assert.Zero(t, env.mock.CallCount())
}

func TestGenerateQuestions_InvalidScores(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, out := env.post(t, "/generate-questions", `{"user_results":{"Math":40},"regional_results":{"Art":20}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	msg := out["error"].(string)
	assert.Contains(t, msg, "at most 36")
	assert.Contains(t, msg, `unknown subject "Art"`)
}

func TestGenerateQuestions_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, 0, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})

	resp, out := env.post(t, "/generate-questions", scoresBody)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", out["status"])
	assert.NotEmpty(t, out["message"])

	qs := out["questions"].([]any)
	require.Len(t, qs, 1)
	assert.Equal(t, questiongen.CategoryError, qs[0].(map[string]any)["category"])
}

func TestGenerateQuestions_Cooldown(t *testing.T) {
	env := newTestEnv(t, time.Hour,
		llm.MockResponse{Text: questionJSON},
		llm.MockResponse{Text: questionJSON},
	)

	resp, _ := env.post(t, "/generate-questions", scoresBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := env.post(t, "/generate-questions", scoresBody)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, 1, env.mock.CallCount())
}

func TestResponsesAndProgression(t *testing.T) {
	env := newTestEnv(t, 0)

	bodies := []string{
		`{"subject":"Math","difficulty":"Hard","correct":true,"set_number":1}`,
		`{"subject":"Science","difficulty":"easy","correct":false,"set_number":1}`,
	}
	for _, b := range bodies {
		resp, out := env.post(t, "/responses", b)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, out["id"])
	}

	resp, out := env.post(t, "/responses", `{"subject":"Art","correct":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "unknown subject")

	resp, _ = env.post(t, "/responses", `{"subject":"Math"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.get(t, "/progression")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var prog ProgressionResponse
	require.NoError(t, json.Unmarshal(body, &prog))
	assert.False(t, prog.Degraded)
	assert.Equal(t, 2, prog.Accepted)
	assert.Equal(t, 2, prog.Answered)
	assert.Equal(t, "Mathematics", prog.Strongest)
	require.Len(t, prog.Subjects, 4)
	assert.Equal(t, []float64{13, 17.01}, prog.Subjects[0].Trajectory)
	assert.Len(t, prog.Chart, 2)
}

func TestMetricsAndTimings(t *testing.T) {
	env := newTestEnv(t, 0)
	_, _ = env.get(t, "/progression")

	resp, body := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "operations_total")

	resp, body = env.get(t, "/debug/timings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats []telemetry.TimingStat
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.NotEmpty(t, stats)

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodDelete, env.srv.URL+"/debug/timings", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, env.timings.Stats())
}
