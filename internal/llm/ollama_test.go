package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) LLMConfig {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = endpoint
	cfg.RetryBackoffMs = 1
	return cfg
}

func withTaskTimeout(cfg LLMConfig, task TaskType, ms int) LLMConfig {
	cfg.Tasks = map[TaskType]TaskConfig{task: {Temperature: 0.1, MaxTokens: 512, TimeoutMs: ms}}
	return cfg
}

func writeChat(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ollamaChatResponse{
		Model:   "llama3.2",
		Message: ollamaMessage{Role: "assistant", Content: content},
	})
}

func TestOllamaClient_Generate_SendsChatMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, []ollamaMessage{
			{Role: "system", Content: "You analyse bakery websites."},
			{Role: "user", Content: "Summarise https://rival.example.com"},
		}, req.Messages)
		assert.Equal(t, 1024, req.Options.NumPredict)

		writeChat(w, "The competitor focuses on sourdough recipes.")
	}))
	defer srv.Close()

	client := NewOllamaClient(testConfig(srv.URL+"/"), NoopObserver{})
	resp, err := client.Generate(context.Background(), GenerateRequest{
		Task:         TaskCompetitor,
		SystemPrompt: "You analyse bakery websites.",
		UserPrompt:   "Summarise https://rival.example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "The competitor focuses on sourdough recipes.", resp.Text)
	assert.Equal(t, "llama3.2", resp.Model)
}

func TestOllamaClient_Generate_OmitsEmptySystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		writeChat(w, "ok")
	}))
	defer srv.Close()

	_, err := NewOllamaClient(testConfig(srv.URL), nil).Generate(context.Background(), GenerateRequest{
		Task:       TaskTextStyle,
		UserPrompt: "Describe the tone",
	})
	require.NoError(t, err)
}

func TestOllamaClient_Generate_EachAttemptGetsFullTimeout(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(120 * time.Millisecond)
		}
		writeChat(w, "ok")
	}))
	defer srv.Close()

	cfg := withTaskTimeout(testConfig(srv.URL), TaskCompetitor, 50)
	cfg.MaxRetries = 1

	resp, err := NewOllamaClient(cfg, NoopObserver{}).Generate(context.Background(), GenerateRequest{
		Task:       TaskCompetitor,
		UserPrompt: "test",
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Generate_TimeoutReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeChat(w, "too late")
	}))
	defer srv.Close()

	cfg := withTaskTimeout(testConfig(srv.URL), TaskCompetitor, 50)
	cfg.MaxRetries = 0

	var captured LLMCallEvent
	client := NewOllamaClient(cfg, &captureObserver{fn: func(e LLMCallEvent) { captured = e }})
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskCompetitor, UserPrompt: "test"})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, captured.Success)
	assert.Equal(t, "TIMEOUT", captured.ErrorCode)
	assert.Equal(t, TaskCompetitor, captured.Task)
}

func TestOllamaClient_Generate_Unavailable(t *testing.T) {
	cfg := withTaskTimeout(testConfig("http://127.0.0.1:1"), TaskCompetitor, 1000)
	cfg.MaxRetries = 0

	_, err := NewOllamaClient(cfg, NoopObserver{}).Generate(context.Background(), GenerateRequest{
		Task:       TaskCompetitor,
		UserPrompt: "test",
	})

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOllamaClient_Generate_RetriesServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"runner crashed"}`))
			return
		}
		writeChat(w, "ok")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 1

	resp, err := NewOllamaClient(cfg, NoopObserver{}).Generate(context.Background(), GenerateRequest{
		Task:       TaskArticle,
		UserPrompt: "Write about rye",
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestOllamaClient_Generate_MissingModelIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3.2\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 3

	_, err := NewOllamaClient(cfg, NoopObserver{}).Generate(context.Background(), GenerateRequest{
		Task:       TaskArticle,
		UserPrompt: "x",
	})

	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "try pulling it first")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOllamaClient_Generate_EmptyMessageIsInvalidOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChat(w, "  \n")
	}))
	defer srv.Close()

	var captured LLMCallEvent
	client := NewOllamaClient(testConfig(srv.URL), &captureObserver{fn: func(e LLMCallEvent) { captured = e }})
	_, err := client.Generate(context.Background(), GenerateRequest{Task: TaskContentPlan, UserPrompt: "x"})

	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Equal(t, "INVALID_OUTPUT", captured.ErrorCode)
}

func TestOllamaClient_Available(t *testing.T) {
	tags := `{"models":[{"name":"mistral:7b"},{"name":"llama3.2:latest"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(tags))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	assert.True(t, NewOllamaClient(cfg, nil).Available(context.Background()))

	cfg.Model = "qwen2.5"
	assert.False(t, NewOllamaClient(cfg, nil).Available(context.Background()))

	assert.False(t, NewOllamaClient(testConfig("http://127.0.0.1:1"), nil).Available(context.Background()))
}
