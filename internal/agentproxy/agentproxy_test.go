package agentproxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/store"
)

func newTestClient(t *testing.T) (*Client, *metadata.Store) {
	t.Helper()
	logger := zerolog.Nop()
	ds, err := store.New(filepath.Join(t.TempDir(), "cp.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	meta := metadata.NewStore(ds, logger)
	return NewClient(meta, DefaultConfig(), logger), meta
}

// activeProject seeds a user and an active project pointed at the test
// server's address.
func activeProject(t *testing.T, meta *metadata.Store, ts *httptest.Server) *metadata.Project {
	t.Helper()
	_, err := meta.UpsertUser("u1", "User One")
	require.NoError(t, err)
	p, err := meta.CreateProject("u1", "proj", "")
	require.NoError(t, err)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	require.NoError(t, meta.UpdateProjectFields(p.ID, map[string]interface{}{
		"status":   string(metadata.StatusActive),
		"endpoint": u.Host,
	}))
	fresh, err := meta.GetProject(p.ID)
	require.NoError(t, err)
	return fresh
}

func TestCreateSession_PersistsSummary(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"session_id":"S1","name":"s","created_at":"2026-01-01T00:00:00Z"}`)
	}))
	defer ts.Close()

	client, meta := newTestClient(t)
	project := activeProject(t, meta, ts)

	sess, err := client.CreateSession(context.Background(), project.ID, "s")
	require.NoError(t, err)
	assert.Equal(t, "S1", sess.SessionID)

	stored, err := client.ListSessions(project.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "S1", stored[0].SessionID)
}

func TestDeleteSession_TreatsNotFoundAsSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client, meta := newTestClient(t)
	project := activeProject(t, meta, ts)
	require.NoError(t, meta.AddSession(&metadata.Session{SessionID: "S1", ProjectID: project.ID, Name: "s"}))

	err := client.DeleteSession(context.Background(), project.ID, "S1")
	require.NoError(t, err)

	stored, err := client.ListSessions(project.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSendMessage_NotActiveRejected(t *testing.T) {
	client, meta := newTestClient(t)
	_, err := meta.UpsertUser("u1", "User One")
	require.NoError(t, err)
	p, err := meta.CreateProject("u1", "proj", "")
	require.NoError(t, err)

	_, err = client.SendMessage(context.Background(), p.ID, "S1", "hi")
	require.Error(t, err)
	assert.Equal(t, cperrors.KindProjectNotActive, cperrors.KindOf(err))
}

func TestSendMessage_BumpsMessageCount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/send", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":{"ok":true}}`)
	}))
	defer ts.Close()

	client, meta := newTestClient(t)
	project := activeProject(t, meta, ts)
	require.NoError(t, meta.AddSession(&metadata.Session{SessionID: "S1", ProjectID: project.ID, Name: "s"}))

	_, err := client.SendMessage(context.Background(), project.ID, "S1", "ping")
	require.NoError(t, err)

	stored, err := client.ListSessions(project.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].MessageCount)
}

func TestStreamMessage_RelaysFramedEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: message\ndata: {\"text\":\"hi\"}\n\n")
		io.WriteString(w, "event: done\ndata: {}\n\n")
	}))
	defer ts.Close()

	client, meta := newTestClient(t)
	project := activeProject(t, meta, ts)

	var buf strings.Builder
	err := client.StreamMessage(context.Background(), project.ID, "S1", "hi", &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "event: message")
	assert.Contains(t, out, "event: done")
	assert.True(t, strings.HasSuffix(out, "\n\n"))
}

func TestStreamMessage_SynthesizesErrorOnAbruptClose(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: thinking\ndata: {}\n\n")
		// no terminal event written before the handler returns and the
		// connection closes.
	}))
	defer ts.Close()

	client, meta := newTestClient(t)
	project := activeProject(t, meta, ts)

	var buf strings.Builder
	err := client.StreamMessage(context.Background(), project.ID, "S1", "hi", &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "event: error")
}
