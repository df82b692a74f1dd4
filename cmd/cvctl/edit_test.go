package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cvbuilder/internal/client"
	"cvbuilder/internal/resume"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeAPI 模拟 GET 与 autosave 两个端点。
type fakeAPI struct {
	mu       sync.Mutex
	doc      resume.Document
	requests []map[string]json.RawMessage
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/resumes/"+f.doc.ID:
		_ = json.NewEncoder(w).Encode(f.doc)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/resumes/"+f.doc.ID+"/autosave":
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.requests = append(f.requests, body)

		var version int64
		_ = json.Unmarshal(body["version"], &version)
		if version != f.doc.Version {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "version conflict", "current_version": f.doc.Version})
			return
		}
		if raw, ok := body["content"]; ok {
			_ = json.Unmarshal(raw, &f.doc.Content)
		}
		f.doc.Version++
		f.doc.UpdatedAt = time.Now().UTC()
		_ = json.NewEncoder(w).Encode(f.doc)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) snapshot() (resume.Document, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc, len(f.requests)
}

func TestEditSessionAutosavesFileChanges(t *testing.T) {
	api := &fakeAPI{doc: resume.Document{ID: "r1", Title: "CV", Content: resume.Empty(), Version: 3}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "cv.json")
	out := &syncBuffer{}
	s := &editSession{
		api:        client.New(srv.URL, "token"),
		id:         "r1",
		path:       path,
		onConflict: conflictStop,
		debounce:   50 * time.Millisecond,
		out:        out,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil && strings.Contains(out.String(), "editing")
	}, 2*time.Second, 10*time.Millisecond)

	edited := resume.Empty()
	edited.Summary.Text = "Edited from my editor"
	data, err := json.Marshal(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	require.Eventually(t, func() bool {
		doc, _ := api.snapshot()
		return doc.Version == 4
	}, 5*time.Second, 20*time.Millisecond)

	doc, n := api.snapshot()
	require.Equal(t, 1, n)
	require.Equal(t, "Edited from my editor", doc.Content.Summary.Text)

	cancel()
	require.NoError(t, <-done)
	require.Contains(t, out.String(), "saved version 4")
}

func TestEditSessionStopsOnConflict(t *testing.T) {
	api := &fakeAPI{doc: resume.Document{ID: "r1", Title: "CV", Content: resume.Empty(), Version: 1}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "cv.json")
	out := &syncBuffer{}
	s := &editSession{
		api:        client.New(srv.URL, "token"),
		id:         "r1",
		path:       path,
		onConflict: conflictStop,
		debounce:   50 * time.Millisecond,
		out:        out,
	}

	done := make(chan error, 1)
	go func() { done <- s.run(context.Background()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "editing")
	}, 2*time.Second, 10*time.Millisecond)

	// 另一端先保存了一次。
	api.mu.Lock()
	api.doc.Version = 2
	api.mu.Unlock()

	edited := resume.Empty()
	edited.Summary.Text = "mine"
	data, err := json.Marshal(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	select {
	case err := <-done:
		require.Error(t, err)
		require.Contains(t, err.Error(), "--on-conflict")
	case <-time.After(5 * time.Second):
		t.Fatal("edit session did not stop on conflict")
	}

	doc, _ := api.snapshot()
	require.Equal(t, int64(2), doc.Version)
	require.Equal(t, "", doc.Content.Summary.Text)
	require.Contains(t, out.String(), "conflict: server is at version 2")
}

func TestDecodeContentRejectsUnknownFields(t *testing.T) {
	_, err := decodeContent([]byte(`{"summary":{"text":"x"},"hobbies":[]}`))
	require.Error(t, err)

	c, err := decodeContent([]byte(`{"summary":{"text":"x"}}`))
	require.NoError(t, err)
	require.Equal(t, "x", c.Summary.Text)
}
