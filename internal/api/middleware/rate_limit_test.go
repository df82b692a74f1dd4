package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(l *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine, ip string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRedisRateLimitPerIP(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Unix(1_700_000_000, 0)
	l := NewRateLimiter(client, "auth", 5, time.Minute)
	l.now = func() time.Time { return now }
	r := newLimitedRouter(l)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	}
	require.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.2"))

	now = now.Add(time.Minute)
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
}

func TestLocalFallbackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	now := time.Unix(1_700_000_000, 0)
	l := NewRateLimiter(client, "auth", 5, time.Minute)
	l.now = func() time.Time { return now }
	r := newLimitedRouter(l)

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
	}
	require.Equal(t, http.StatusTooManyRequests, hit(r, "10.0.0.1"))

	now = now.Add(12 * time.Second)
	require.Equal(t, http.StatusOK, hit(r, "10.0.0.1"))
}
