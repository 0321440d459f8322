package webui

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacker-peti/peti/internal/event"
	"github.com/lacker-peti/peti/internal/hitmap"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	eventRoot := t.TempDir()
	imageRoot := t.TempDir()
	sessionDir := filepath.Join(eventRoot, "session1")
	require.NoError(t, os.MkdirAll(sessionDir, 0o755))

	events := []event.Event{
		{
			Filenames: []string{"f0.0000.h5"}, SourceName: "HIP1", Score: 5,
			Nchans: 1024, CoarseChannels: 8, CoarseChannel: 3,
			Hits: []*hitmap.Hit{{FirstCol: 5}},
		},
		{
			Filenames: []string{"f0.0000.h5"}, SourceName: "HIP1", Score: 1,
			Nchans: 1024, CoarseChannels: 8, CoarseChannel: 4,
			Hits: []*hitmap.Hit{{FirstCol: 10}},
		},
	}
	require.NoError(t, event.WriteFile(filepath.Join(sessionDir, "gpu1.events"), events))

	return New(eventRoot, imageRoot, log.New(os.Stderr)), eventRoot
}

func TestHandleIndexListsSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session1")
}

func TestHandleSessionListsMachines(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/session/session1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gpu1")
}

func TestHandleSessionMissingDirectoryReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/session/nosuch", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEventsFiltersByMinScoreAndPaginates(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events/session1/gpu1/1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "showing events 0-0 of 1")
	assert.Contains(t, body, "/images/session1/f0.0000.389.png")
	assert.NotContains(t, body, "f0.0000.522.png")
}

func TestHandleEventsRejectsBadPage(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events/session1/gpu1/0", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEventsMissingFileReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/events/session1/gpu9/1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
