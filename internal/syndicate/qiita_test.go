package syndicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQiitaCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body qiitaItemBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Go Generics", body.Title)
		require.Len(t, body.Tags, 1)
		assert.Equal(t, "go", body.Tags[0].Name)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": "q-1", "title": "Go Generics", "url": "https://qiita.example/items/q-1"}`)
	}))
	defer srv.Close()

	c, err := NewQiitaClient(srv.URL, "tok", nil)
	require.NoError(t, err)

	out, err := c.Create(context.Background(), &Article{
		PageID:   "p1",
		Title:    "Go Generics",
		Topics:   []string{"go"},
		Markdown: "Body.\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "q-1", out.ID)
	assert.Equal(t, "https://qiita.example/items/q-1", out.URL)
}

func TestQiitaUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/items/q-1", r.URL.Path)
		fmt.Fprint(w, `{"id": "q-1", "url": "https://qiita.example/items/q-1"}`)
	}))
	defer srv.Close()

	c, err := NewQiitaClient(srv.URL, "tok", nil)
	require.NoError(t, err)

	out, err := c.Update(context.Background(), "q-1", &Article{Title: "Updated", Markdown: "New body.\n"})
	require.NoError(t, err)
	assert.Equal(t, "q-1", out.ID)
}

func TestQiitaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewQiitaClient(srv.URL, "bad", nil)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), &Article{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
