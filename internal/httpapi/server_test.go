package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/metrics"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	mu      sync.Mutex
	outbox  *Outbox
	updates []wizard.Update
	err     error
}

func (h *echoHandler) HandleUpdate(ctx context.Context, upd wizard.Update) error {
	h.mu.Lock()
	h.updates = append(h.updates, upd)
	h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	_ = h.outbox.ShowAnimation(ctx, upd.ChatID, wizard.AnimationThinking, "Thinking…")
	return h.outbox.Prompt(ctx, upd.ChatID, "echo: "+upd.Text, []wizard.Choice{
		{Label: "▶️ Continue", Command: wizard.ContinueStep("p1")},
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *echoHandler) {
	t.Helper()
	outbox := NewOutbox(0)
	h := &echoHandler{outbox: outbox}
	srv := httptest.NewServer(NewHandler(&Server{
		Updates: h,
		Outbox:  outbox,
		Metrics: metrics.New().Handler(),
	}))
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPostUpdate_TextThenPollOutbox(t *testing.T) {
	srv, h := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/updates", UpdateRequest{UserID: "u1", ChatID: "c1", Text: "hello"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, h.updates, 1)
	assert.Equal(t, "hello", h.updates[0].Text)

	get, err := http.Get(srv.URL + "/v1/chats/c1/outbox")
	require.NoError(t, err)
	defer get.Body.Close()
	var out struct {
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(get.Body).Decode(&out))
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "animation", out.Messages[0].Kind)
	assert.Equal(t, wizard.AnimationThinking, out.Messages[0].Asset)
	assert.Equal(t, "echo: hello", out.Messages[1].Text)
	assert.Equal(t, []ChoiceDTO{{Label: "▶️ Continue", Command: "continue:p1"}}, out.Messages[1].Choices)

	// Drained.
	again, err := http.Get(srv.URL + "/v1/chats/c1/outbox")
	require.NoError(t, err)
	defer again.Body.Close()
	body, _ := io.ReadAll(again.Body)
	assert.JSONEq(t, `{"messages":[]}`, string(body))
}

func TestPostUpdate_ImagesAreBase64(t *testing.T) {
	srv, h := newTestServer(t)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	raw := `{"user_id":"u1","chat_id":"c1","images":[{"data":"` + base64.StdEncoding.EncodeToString(png) + `"}]}`
	resp, err := http.Post(srv.URL+"/v1/updates", "application/json", strings.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, h.updates[0].Images, 1)
	assert.Equal(t, png, h.updates[0].Images[0].Data)
	assert.Equal(t, "image/png", h.updates[0].Images[0].MimeType)
}

func TestPostUpdate_Validation(t *testing.T) {
	srv, h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing user", `{"chat_id":"c1","text":"x"}`},
		{"missing chat", `{"user_id":"u1","text":"x"}`},
		{"empty update", `{"user_id":"u1","chat_id":"c1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/updates", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Empty(t, h.updates)
}

func TestPostUpdate_HandlerError(t *testing.T) {
	srv, h := newTestServer(t)
	h.err = errors.New("pool closed")

	resp := postJSON(t, srv.URL+"/v1/updates", UpdateRequest{UserID: "u1", ChatID: "c1", Command: "menu"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestOutbox_DropsOldestBeyondLimit(t *testing.T) {
	o := NewOutbox(2)
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, o.Show(ctx, "c1", s))
	}
	msgs := o.Drain("c1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].Text)
	assert.Equal(t, "c", msgs[1].Text)
	assert.Empty(t, o.Drain("c1"))
}
