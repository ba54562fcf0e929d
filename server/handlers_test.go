package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Luismorlan/socialmux/feed"
	"github.com/Luismorlan/socialmux/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// stubStore panics on any use. The anonymous-viewer tests must reject before
// a session, and therefore any store access, ever exists.
type stubStore struct {
	store.Store
}

func newTestRouter() (*gin.Engine, *Sessions) {
	gin.SetMode(gin.TestMode)
	sessions := NewSessions(stubStore{}, feed.DefaultEngineConfig(), nil)
	router := gin.New()
	RegisterRoutes(router, sessions)
	return router, sessions
}

func activeSessions(s *Sessions) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

// Without the auth middleware (local debugging bypass) the sub header can be
// absent. An anonymous request must be rejected, never keyed on "".
func TestAnonymousViewerRejectedOnLoad(t *testing.T) {
	router, sessions := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/feed/load", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, activeSessions(sessions))
}

func TestAnonymousViewerRejectedOnMutation(t *testing.T) {
	router, sessions := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost, "/feed/like", strings.NewReader(`{"row_id":"item_1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, activeSessions(sessions))
}

func TestAnonymousViewerRejectedOnRelease(t *testing.T) {
	router, sessions := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/feed/release", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, activeSessions(sessions))
}
