package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/middleware"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		CORS:     config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
	}
}

func newRouter(t *testing.T, cfg *config.Config, rdb *redis.Client) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := database.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	h := handler.NewHandler(
		service.NewPostService(repository.NewPostRepository(db), nil),
		service.NewCategoryService(repository.NewCategoryRepository(db)),
	)
	r, err := SetupRouter(cfg, h, db, rdb)
	require.NoError(t, err)
	return r, db
}

func get(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, db := newRouter(t, testConfig(), nil)

	w := get(r, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"status": "ok", "database": "ok"}, body.Data)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	require.NoError(t, database.Close(db))
	w = get(r, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r, _ := newRouter(t, testConfig(), rdb)
	w := get(r, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
}

func TestRoutesMounted(t *testing.T) {
	r, _ := newRouter(t, testConfig(), nil)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/posts", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/categories", nil).Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/posts/slug/none", nil).Code)

	w := get(r, "/swagger/doc.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/posts/slug/{slug}/html")
}

func TestCORSAndGzip(t *testing.T) {
	r, _ := newRouter(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/posts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/api/v1/posts", map[string]string{"Accept-Encoding": "gzip"})
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRateLimit_Local(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	r, _ := newRouter(t, cfg, nil)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/posts", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/api/v1/posts", nil).Code)
	// 健康检查不受限流影响
	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2, Window: time.Minute}
	r, _ := newRouter(t, cfg, rdb)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(r, "/api/v1/categories", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSConfig(t *testing.T) {
	_, ok := corsConfig(config.CORSConfig{})
	assert.False(t, ok)

	c, ok := corsConfig(config.CORSConfig{AllowOrigins: []string{"*"}})
	require.True(t, ok)
	assert.True(t, c.AllowAllOrigins)
	assert.Empty(t, c.AllowOrigins)
}
