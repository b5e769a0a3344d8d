package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PostsFormPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())

		got = map[string]string{}
		for k := range r.PostForm {
			got[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.Notify(context.Background(), map[string]string{
		"form_id": "funnel-main",
		"summary": `{"P1":"Yes"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "funnel-main", got["form_id"])
	assert.Equal(t, `{"P1":"Yes"}`, got["summary"])
}

func TestNotifier_EmptyEndpointIsNoOp(t *testing.T) {
	n := New("")
	assert.NoError(t, n.Notify(context.Background(), map[string]string{"k": "v"}))
}

func TestNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).Notify(context.Background(), map[string]string{"k": "v"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifier_UnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // shut down before use

	err := New(srv.URL).Notify(context.Background(), map[string]string{"k": "v"})
	assert.Error(t, err)
}
