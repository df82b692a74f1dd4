package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"cvbuilder/internal/autosave"
	"cvbuilder/internal/resume"
)

func TestAutosaveMapsStatuses(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/resumes/ok/autosave":
			_, _ = w.Write([]byte(`{"id":"ok","title":"t","version":3}`))
		case "/v1/resumes/stale/autosave":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"version conflict","current_version":7}`))
		case "/v1/resumes/gone/autosave":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"resume not found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	ctx := context.Background()
	v := int64(2)
	content := resume.Empty()

	doc, err := c.Autosave(ctx, "ok", autosave.SaveRequest{Content: &content, Version: &v})
	require.NoError(t, err)
	require.Equal(t, int64(3), doc.Version)
	require.Equal(t, "Bearer tok", gotAuth)
	require.EqualValues(t, 2, gotBody["version"])
	require.NotContains(t, gotBody, "title")

	_, err = c.Autosave(ctx, "stale", autosave.SaveRequest{Version: &v})
	var conflict *autosave.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, int64(7), conflict.CurrentVersion)

	_, err = c.Autosave(ctx, "gone", autosave.SaveRequest{Version: &v})
	require.True(t, IsNotFound(err))

	_, err = c.Autosave(ctx, "broken", autosave.SaveRequest{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestLoginKeepsAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/login":
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":900}`))
		case "/v1/resumes":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[{"id":"a","version":1},{"id":"b","version":4}]`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	tok, err := c.Login(context.Background(), "ada@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "abc", tok.AccessToken)

	docs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, int64(4), docs[1].Version)
}
