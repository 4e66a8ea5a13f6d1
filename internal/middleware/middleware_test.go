package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backpro/internal/encoder"
	"backpro/internal/session"
	"backpro/internal/storage"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(handlers...)
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRecovery(t *testing.T) {
	engine := newEngine(RequestID(), Recovery(zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-Id", "req-7")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_server_error","request_id":"req-7"}`, rec.Body.String())
}

func TestRecoveryLogsSession(t *testing.T) {
	var buf bytes.Buffer
	store := storage.NewMemoryStore()
	registry := session.NewRegistry(store, encoder.New(store), nil, nil, zerolog.Nop())
	engine := newEngine(RequestID(), Recovery(zerolog.New(&buf)), Session(registry, "backpro_session", false))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "backpro_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panic recovered", entry["message"])
	assert.Equal(t, cookie.Value, entry["session"])
	assert.Equal(t, "/panic", entry["path"])
}

func TestCORS(t *testing.T) {
	engine := newEngine(CORS([]string{"https://app.example"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionIssuesAndReusesCookie(t *testing.T) {
	store := storage.NewMemoryStore()
	registry := session.NewRegistry(store, encoder.New(store), nil, nil, zerolog.Nop())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Session(registry, "sid", false))
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, CurrentWorkspace(c).ID) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "known session is not reissued")
	assert.Equal(t, cookies[0].Value, rec.Body.String())
	assert.Equal(t, 1, registry.Len())
}
