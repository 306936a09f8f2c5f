package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexanderramin/sitepilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeWordPress(t *testing.T, posts *[]map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "abcdefgh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"invalid_username","message":"Unknown username."}`))
			return
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/wp-json/wp/v2/users/me":
			_, _ = w.Write([]byte(`{"id":1,"name":"admin"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/wp-json/wp/v2/posts":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*posts = append(*posts, body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":42,"link":"https://site.example.com/rye"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerify(t *testing.T) {
	var posts []map[string]any
	srv := fakeWordPress(t, &posts)
	wp := NewWordPress(nil)

	// Application passwords are shown with spaces; they are stripped.
	ok := domain.CMSCredentials{Endpoint: srv.URL + "/wp-admin/", Login: "admin", Password: "abcd efgh"}
	assert.NoError(t, wp.Verify(context.Background(), ok))

	bad := domain.CMSCredentials{Endpoint: srv.URL, Login: "admin", Password: "wrong"}
	err := wp.Verify(context.Background(), bad)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Unknown username.")
}

func TestVerify_NotWordPress(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := NewWordPress(nil).Verify(context.Background(), domain.CMSCredentials{Endpoint: srv.URL})
	assert.ErrorIs(t, err, ErrNoAPI)
}

func TestPublish_RendersMarkdown(t *testing.T) {
	var posts []map[string]any
	srv := fakeWordPress(t, &posts)
	creds := domain.CMSCredentials{Endpoint: srv.URL, Login: "admin", Password: "abcdefgh"}

	res, err := NewWordPress(nil).Publish(context.Background(), creds, Post{
		Title:    "Rye bread",
		Markdown: "## Ingredients\n\n- flour\n- water",
		Slug:     "rye-bread",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.ID)
	assert.Equal(t, "https://site.example.com/rye", res.Link)

	require.Len(t, posts, 1)
	assert.Equal(t, "publish", posts[0]["status"])
	assert.Equal(t, "rye-bread", posts[0]["slug"])
	assert.Contains(t, posts[0]["content"], "<h2>Ingredients</h2>")
	assert.Contains(t, posts[0]["content"], "<li>flour</li>")
}

func TestPublish_FutureDateSchedules(t *testing.T) {
	var posts []map[string]any
	srv := fakeWordPress(t, &posts)
	creds := domain.CMSCredentials{Endpoint: srv.URL, Login: "admin", Password: "abcdefgh"}
	when := time.Date(2099, 1, 2, 9, 30, 0, 0, time.UTC)

	_, err := NewWordPress(nil).Publish(context.Background(), creds, Post{Title: "Later", Markdown: "x", ScheduledAt: &when})
	require.NoError(t, err)
	assert.Equal(t, "future", posts[0]["status"])
	assert.Equal(t, "2099-01-02T09:30:00", posts[0]["date_gmt"])
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"example.com":                           "https://example.com",
		"https://example.com/wp-json/wp/v2":     "https://example.com",
		"http://example.com/blog/wp-admin/":     "http://example.com/blog",
		"https://example.com/wp-login.php":      "https://example.com",
	}
	for in, want := range cases {
		got, err := NormalizeEndpoint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeEndpoint(" ")
	assert.Error(t, err)
	_, err = NormalizeEndpoint("ftp://example.com")
	assert.Error(t, err)
}
