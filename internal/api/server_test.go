package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowforge/internal/config"
	"github.com/flowforge/internal/generator"
	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (s *stubClient) Complete(_ context.Context, _ llm.Request) (string, error) {
	s.calls++
	return s.response, s.err
}

var testModels = []string{"openai/gpt-3.5-turbo", "openai/gpt-4"}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8888, CORSOrigins: []string{"*"}, BodyLimit: "2M"},
		LLM:     config.LLMConfig{Models: testModels, ValidationModel: "openai/gpt-3.5-turbo"},
		Admin:   config.AdminConfig{Password: "letmein", JWTSecret: "test-secret", TokenTTL: time.Hour},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	handler http.Handler
	store   *prompts.Store
}

func newTestEnv(t *testing.T, cfg *config.Config, client llm.Client) *testEnv {
	t.Helper()
	store, err := prompts.NewStore(t.TempDir())
	require.NoError(t, err)
	gen := generator.New(store, client, generator.Options{
		Models:          cfg.LLM.Models,
		ValidationModel: cfg.LLM.ValidationModel,
	})
	srv, err := NewServer(cfg, store, gen)
	require.NoError(t, err)
	return &testEnv{handler: srv.Handler(), store: store}
}

func (e *testEnv) seed(t *testing.T, pt prompts.PromptType, content string) {
	t.Helper()
	_, err := e.store.AddVersion(pt, content, "seed")
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/admin/login", `{"password":"letmein"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthAndOptions(t *testing.T) {
	env := newTestEnv(t, testConfig(), &stubClient{})

	rec := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/options", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["triggerTools"], 5)
	assert.Len(t, body["processLogicTools"], 6)
	assert.Len(t, body["actionTools"], 6)
	assert.Equal(t, []interface{}{"openai/gpt-3.5-turbo", "openai/gpt-4"}, body["llmModels"])

	rec = env.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = env.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestValidatePrompt(t *testing.T) {
	client := &stubClient{response: `{"valid":true,"trigger":"every day at 9","process":"if urgent","action":"send a slack alert","feedback":null,"suggestions":[]}`}
	env := newTestEnv(t, testConfig(), client)
	env.seed(t, prompts.Validation, "Validate: {{USER_PROMPT}}")

	rec := env.do(t, http.MethodPost, "/api/validate-prompt", `{"userPrompt":"Every day check tickets and alert Slack"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Cron Trigger", body["matchedTriggerTool"])
	assert.Equal(t, "IF Node", body["matchedProcessTool"])
	assert.Equal(t, "Slack (Send Message)", body["matchedActionTool"])
	assert.Equal(t, "every day at 9", body["extractedTriggerText"])
	assert.Nil(t, body["feedback"])
}

func TestValidatePromptErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  llm.Client
		seed    bool
		body    string
		status  int
		message string
		extra   string
	}{
		{"malformed body", &stubClient{}, true, `{"userPrompt":`, 400, "Invalid request: Malformed JSON body.", ""},
		{"empty prompt", &stubClient{}, true, `{"userPrompt":"  "}`, 400, "User prompt is required, must be a non-empty string.", ""},
		{"non-string prompt", &stubClient{}, true, `{"userPrompt":42}`, 400, "User prompt is required, must be a non-empty string.", ""},
		{"no api key", nil, true, `{"userPrompt":"x"}`, 500, "API key not configured. Please contact support.", ""},
		{"no prompt", &stubClient{}, false, `{"userPrompt":"x"}`, 500, "Could not load validation instructions. Please contact support.", ""},
		{"upstream", &stubClient{err: &llm.UpstreamError{StatusCode: 429, Message: "rate limited"}}, true, `{"userPrompt":"x"}`, 429, "Failed to fetch from LLM for validation: Too Many Requests", "details"},
		{"not json", &stubClient{response: "I think it is fine"}, true, `{"userPrompt":"x"}`, 500, "LLM response for validation was not valid JSON.", "rawOutput"},
		{"bad shape", &stubClient{response: `{"valid":"maybe"}`}, true, `{"userPrompt":"x"}`, 500, "LLM response for validation was not in the expected format.", "details"},
		{"empty", &stubClient{err: llm.ErrEmptyResponse}, true, `{"userPrompt":"x"}`, 500, "Unexpected response structure from LLM during validation.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), tt.client)
			if tt.seed {
				env.seed(t, prompts.Validation, "{{USER_PROMPT}}")
			}
			rec := env.do(t, http.MethodPost, "/api/validate-prompt", tt.body, "")
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.message, body["error"])
			if tt.extra != "" {
				assert.Contains(t, body, tt.extra)
			}
		})
	}
}

func TestGenerateRaw(t *testing.T) {
	client := &stubClient{response: "```json\n{\"nodes\":[]}\n```\n---JSON-GUIDE-SEPARATOR---\n# Steps"}
	env := newTestEnv(t, testConfig(), client)
	env.seed(t, prompts.GenerationMain, "{{USER_NATURAL_LANGUAGE_PROMPT}}")

	req := `{
		"userNaturalLanguagePrompt": "Post new form answers to Slack",
		"selectedTriggerTool": "Google Forms Trigger",
		"selectedProcessLogicTool": "Set Node",
		"selectedActionTool": "Slack (Send Message)",
		"selectedLlmModel": "openai/gpt-4"
	}`
	rec := env.do(t, http.MethodPost, "/api/generate-raw", req, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, client.response, body["output"])
	assert.Equal(t, `{"nodes":[]}`, body["workflowJson"])
	assert.Equal(t, "# Steps", body["guideMarkdown"])

	rec = env.do(t, http.MethodPost, "/api/generate-raw", `{"userNaturalLanguagePrompt":"x","selectedLlmModel":"evil/model"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Invalid request body for raw generation.", body["error"])
	assert.NotEmpty(t, body["details"])
	assert.Equal(t, 1, client.calls)
}

func TestGenerateGuide(t *testing.T) {
	client := &stubClient{response: "  ## Setup\nConnect Slack.  "}
	env := newTestEnv(t, testConfig(), client)

	req := `{"n8nWorkflowJson":"{}","selectedLlmModelForGuide":"openai/gpt-4"}`
	rec := env.do(t, http.MethodPost, "/api/generate-guide", req, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Guide generation instructions not configured. Please contact support.", decode(t, rec)["error"])

	env.seed(t, prompts.GenerationGuide, "Guide for {{N8N_WORKFLOW_JSON}}")
	rec = env.do(t, http.MethodPost, "/api/generate-guide", req, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"instructionalGuideMarkdown":"## Setup\nConnect Slack."}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/generate-guide", `not json`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body for guide generation.", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/generate-guide", `{"n8nWorkflowJson":"{}"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body for guide generation.", decode(t, rec)["error"])
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t, testConfig(), &stubClient{})

	rec := env.do(t, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid password"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/admin/login", `{"password":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/admin/login", `{"password":"letmein"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])

	cfg := testConfig()
	cfg.Admin.Password = ""
	env = newTestEnv(t, cfg, &stubClient{})
	rec = env.do(t, http.MethodPost, "/api/admin/login", `{"password":""}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Admin authentication not configured.", decode(t, rec)["error"])
}

func TestAdminPrompts(t *testing.T) {
	env := newTestEnv(t, testConfig(), &stubClient{})

	rec := env.do(t, http.MethodGet, "/api/admin/prompts", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := env.login(t)

	rec = env.do(t, http.MethodPost, "/api/admin/add-prompt-version",
		`{"promptType":"validation","content":"Check {{USER_PROMPT}} {{EXTRA}}","changeDescription":"first"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	newVersion := body["newVersion"].(map[string]interface{})
	assert.Equal(t, float64(1), newVersion["version"])
	assert.Equal(t, true, newVersion["isActive"])
	assert.Equal(t, []interface{}{"{{EXTRA}} is not a known variable and will be sent to the model unchanged."}, body["warnings"])
	assert.Equal(t, "Check x {{EXTRA}}", prompts.FillPrompt(prompts.Validation, newVersion["content"].(string), map[string]string{prompts.VarUserPrompt: "x"}))

	rec = env.do(t, http.MethodPost, "/api/admin/add-prompt-version",
		`{"promptType":"validation","content":"Check {{USER_PROMPT}}","changeDescription":"second"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/prompts", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog map[string]adminPromptEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Len(t, catalog, 4)
	validation := catalog["validation"]
	assert.Equal(t, "Validation", validation.DisplayName)
	assert.Equal(t, "validation.json", validation.Filename)
	assert.Equal(t, []string{"{{USER_PROMPT}}"}, validation.AvailableVariables)
	assert.Equal(t, 2, validation.ActiveVersion)
	assert.Len(t, validation.Versions, 2)
	assert.Equal(t, 6, validation.EstimatedTokens)
	assert.Empty(t, validation.Warnings)
	assert.Empty(t, catalog["generation_main_training_data"].Versions)
	assert.NotNil(t, catalog["generation_main_training_data"].Versions)

	rec = env.do(t, http.MethodPost, "/api/admin/activate-prompt-version", `{"promptType":"validation","version":1}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	active, err := env.store.Active(prompts.Validation)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)

	rec = env.do(t, http.MethodPost, "/api/admin/activate-prompt-version", `{"promptType":"validation","version":9}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddPromptVersionValidation(t *testing.T) {
	env := newTestEnv(t, testConfig(), &stubClient{})
	token := env.login(t)

	tests := []struct {
		body    string
		message string
	}{
		{`{"promptType":"bogus","content":"x","changeDescription":"y"}`, "Invalid prompt type specified."},
		{`{"promptType":"validation","content":"  ","changeDescription":"y"}`, "Prompt content cannot be empty."},
		{`{"promptType":"validation","content":"x","changeDescription":""}`, "Change description cannot be empty."},
	}
	for _, tt := range tests {
		rec := env.do(t, http.MethodPost, "/api/admin/add-prompt-version", tt.body, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, tt.message, decode(t, rec)["error"])
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	env := newTestEnv(t, cfg, &stubClient{})

	rec := env.do(t, http.MethodPost, "/api/validate-prompt", `{"userPrompt":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/validate-prompt", `{"userPrompt":""}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/options", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
