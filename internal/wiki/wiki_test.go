package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikifinder/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.WikiConfig{
		BaseURL:  srv.URL,
		Username: "svc-account",
		APIToken: "token",
	})
	require.NoError(t, err)
	return c, srv
}

func TestSpaces(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/space", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "svc-account", user)
		assert.Equal(t, "token", pass)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]string{
				{"key": "ENG", "name": "Engineering"},
				{"key": "HR", "name": "People"},
			},
		})
	})

	spaces, err := c.Spaces(context.Background())
	require.NoError(t, err)
	require.Len(t, spaces, 2)
	assert.Equal(t, "ENG", spaces[0].Key)
	assert.Equal(t, "People", spaces[1].Name)
}

func TestPagesInSpace(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content", r.URL.Path)
		assert.Equal(t, "ENG", r.URL.Query().Get("spaceKey"))
		assert.Equal(t, "body.view,version", r.URL.Query().Get("expand"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"id":    "12345",
					"title": "Runbook",
					"body":  map[string]interface{}{"view": map[string]string{"value": "<p>hello</p>"}},
				},
			},
		})
	})

	pages, err := c.PagesInSpace(context.Background(), "ENG")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Runbook", pages[0].Title)
	assert.Equal(t, "<p>hello</p>", pages[0].Body.View.Value)
}

func TestPageContent(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/987", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "987",
			"title":   "Deploy Guide",
			"version": map[string]int{"number": 7},
		})
	})

	page, err := c.PageContent(context.Background(), "987")
	require.NoError(t, err)
	assert.Equal(t, "Deploy Guide", page.Title)
	assert.Equal(t, 7, page.Version.Number)
}

func TestClientErrorStatus(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Spaces(context.Background())
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	c, err := NewClient(config.WikiConfig{BaseURL: "https://example.atlassian.net/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.atlassian.net/wiki/pages/viewpage.action?pageId=42", c.PageURL("42"))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.WikiConfig{})
	assert.Error(t, err)
}

func TestCleanHTML(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{"tags stripped", "<p>Hello <b>world</b></p>", "Hello world"},
		{"script removed", "<p>keep</p><script>alert(1)</script>", "keep"},
		{"style removed", "<style>p{color:red}</style><p>text</p>", "text"},
		{"whitespace collapsed", "<div>  a\n\n  b\t c </div>", "a b c"},
		{"plain text passthrough", "already plain", "already plain"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanHTML(tc.html))
		})
	}
}
