package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatServer struct {
	mu      sync.Mutex
	models  []string
	headers []http.Header
	bodies  []map[string]any
	reply   func(model string) (int, string)
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	model, _ := body["model"].(string)

	s.mu.Lock()
	s.models = append(s.models, model)
	s.headers = append(s.headers, r.Header.Clone())
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	status, content := s.reply(model)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		fmt.Fprintf(w, `{"error":{"message":%q,"type":"invalid_request_error"}}`, content)
		return
	}
	payload, _ := json.Marshal(content)
	fmt.Fprintf(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":%q,"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%s}}]}`, model, payload)
}

func newTestOpenAIClient(t *testing.T, config *Config, srv *chatServer) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(config, "test-key", option.WithBaseURL(server.URL+"/v1/"))
	require.NoError(t, err)
	return client
}

func TestOpenAIClient_GenerateContent(t *testing.T) {
	srv := &chatServer{reply: func(string) (int, string) { return http.StatusOK, "hello there" }}
	client := newTestOpenAIClient(t, DefaultOpenAIConfig(), srv)

	out, err := client.GenerateContent(t.Context(), "say hi", TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, []string{"gpt-4o"}, srv.models)
	assert.Equal(t, "Bearer test-key", srv.headers[0].Get("Authorization"))
	assert.NotContains(t, srv.bodies[0], "response_format")
}

func TestOpenAIClient_GenerateJSONCleansReply(t *testing.T) {
	srv := &chatServer{reply: func(string) (int, string) {
		return http.StatusOK, "Here you go:\n```json\n{\"score\": 71}\n```"
	}}
	client := newTestOpenAIClient(t, DefaultOpenAIConfig(), srv)

	out, err := client.GenerateJSON(t.Context(), "score it", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, `{"score": 71}`, out)
	assert.Contains(t, srv.bodies[0], "response_format")
}

func TestOpenAIClient_OpenRouterHeadersAndFallback(t *testing.T) {
	srv := &chatServer{reply: func(model string) (int, string) {
		if model == "openrouter/free" {
			return http.StatusOK, "from fallback"
		}
		return http.StatusNotFound, "model not found"
	}}
	client := newTestOpenAIClient(t, DefaultOpenRouterConfig(), srv)

	out, err := client.GenerateContent(t.Context(), "hi", TierLite)
	require.NoError(t, err)
	assert.Equal(t, "from fallback", out)
	assert.Equal(t, []string{"openai/gpt-oss-120b:free", "openrouter/free"}, srv.models)
	assert.Equal(t, "ATS Resume Optimizer", srv.headers[0].Get("X-Title"))
	assert.Equal(t, "http://localhost:3000", srv.headers[0].Get("HTTP-Referer"))
	assert.NotContains(t, srv.bodies[0], "response_format")
}

func TestOpenAIClient_NoFallbackOnAuthError(t *testing.T) {
	srv := &chatServer{reply: func(string) (int, string) { return http.StatusUnauthorized, "bad key" }}
	client := newTestOpenAIClient(t, DefaultOpenRouterConfig(), srv)

	_, err := client.GenerateContent(t.Context(), "hi", TierLite)
	require.Error(t, err)
	assert.Len(t, srv.models, 1)
}

func TestOpenAIClient_EmptyContent(t *testing.T) {
	srv := &chatServer{reply: func(string) (int, string) { return http.StatusOK, "" }}
	client := newTestOpenAIClient(t, DefaultOpenAIConfig(), srv)

	_, err := client.GenerateContent(t.Context(), "hi", TierLite)
	assert.ErrorContains(t, err, "no content")
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(DefaultOpenAIConfig(), "")
	assert.Error(t, err)
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(t.Context(), &Config{Provider: "mystery"}, "key")
	assert.Error(t, err)

	client, err := NewClient(t.Context(), DefaultOpenRouterConfig(), "key")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)
}
