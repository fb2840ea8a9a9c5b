package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-agent/steward/pkg/agent"
	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/memory"
	"github.com/steward-agent/steward/pkg/model"
	"github.com/steward-agent/steward/pkg/router"
	"github.com/steward-agent/steward/pkg/session"
	"github.com/steward-agent/steward/pkg/store/sqlite"
	"github.com/steward-agent/steward/pkg/tools"
)

type staticProvider struct{ reply string }

func (staticProvider) Name() string { return "static" }

func (p staticProvider) Generate(_ context.Context, _, _ string, _ []model.Message, _ []domain.ToolSpec) (model.Message, error) {
	return model.Message{
		Role:    domain.RoleAssistant,
		Content: []model.Content{{Type: domain.ContentTypeText, Text: p.reply}},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	factory := func(id string) *agent.Agent {
		mem := memory.New(memory.Config{RetainWindow: 10}, nil)
		return agent.New(id, staticProvider{reply: "ack"}, mem, tools.NewRegistry(), agent.Config{Model: "test"})
	}
	reg := session.NewRegistry(db, factory, session.Config{})
	return New(router.New(reg), reg, nil)
}

func postMessage(t *testing.T, h http.Handler, text string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleMessage(t *testing.T) {
	h := newTestServer(t).Handler()

	w := postMessage(t, h, "hello [[session:web-1]]")
	require.Equal(t, http.StatusOK, w.Code)

	var res router.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "web-1", res.SessionID)
	assert.Equal(t, "ack", res.Text)
}

func TestHandleMessageMintsSession(t *testing.T) {
	h := newTestServer(t).Handler()

	w := postMessage(t, h, "anonymous hello")
	require.Equal(t, http.StatusOK, w.Code)

	var res router.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SessionID)
}

func TestHandleMessageRejectsEmptyText(t *testing.T) {
	h := newTestServer(t).Handler()

	w := postMessage(t, h, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHistoryAndDelete(t *testing.T) {
	h := newTestServer(t).Handler()

	require.Equal(t, http.StatusOK, postMessage(t, h, "hi [[session:web-2]]").Code)

	req := httptest.NewRequest("GET", "/api/sessions/web-2/history", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var turns []domain.Turn
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turns))
	assert.Len(t, turns, 2)

	req = httptest.NewRequest("DELETE", "/api/sessions/web-2", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSessionHistoryUnknownSession(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest("GET", "/api/sessions/no-such-session/history", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatus(t *testing.T) {
	h := newTestServer(t).Handler()

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Contains(t, status, "live_sessions")
	assert.Contains(t, status, "uptime_seconds")
	// Poller disabled in this setup, so no tick counters.
	assert.NotContains(t, status, "poll_ticks")
}
