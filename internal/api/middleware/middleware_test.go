package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func protectedRouter(mgr *jwt.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{JWTAuth(mgr)}
	if len(roles) > 0 {
		chain = append(chain, RoleAuth(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})
	r.GET("/p", chain...)
	return r
}

func doGet(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_Valid(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("u-1", "Ms. Rivera", jwt.RoleViewer, 0)

	w := doGet(protectedRouter(mgr), "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if w.Body.String() != "u-1" {
		t.Errorf("期望 user_id=u-1，实际=%s", w.Body.String())
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	mgr := newTestJWT()
	badRole, _ := mgr.GenerateAccessToken("u-1", "", "superuser", 0)

	tests := []struct {
		name   string
		header string
	}{
		{"缺少认证头", ""},
		{"格式错误", "Token abc"},
		{"无效 token", "Bearer not-a-token"},
		{"未知角色", "Bearer " + badRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(protectedRouter(mgr), tt.header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("期望 401，实际=%d", w.Code)
			}
		})
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	mgr := newTestJWT()
	viewer, _ := mgr.GenerateAccessToken("u-1", "", jwt.RoleViewer, 0)
	planner, _ := mgr.GenerateAccessToken("u-2", "", jwt.RolePlanner, 0)
	r := protectedRouter(mgr, jwt.RolePlanner, jwt.RoleAdmin)

	if w := doGet(r, "Bearer "+viewer); w.Code != http.StatusForbidden {
		t.Errorf("viewer 期望 403，实际=%d", w.Code)
	}
	if w := doGet(r, "Bearer "+planner); w.Code != http.StatusOK {
		t.Errorf("planner 期望 200，实际=%d", w.Code)
	}
}

// ── RateLimit ──

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

func rateLimitedRouter(l RateLimiter, limit int) *gin.Engine {
	r := gin.New()
	r.GET("/p", RateLimit(l, limit, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limiter RateLimiter
		limit   int
		want    int
	}{
		{"未配置限流器放行", nil, 10, http.StatusOK},
		{"limit=0 放行", &fakeLimiter{allowed: false}, 0, http.StatusOK},
		{"超限拒绝", &fakeLimiter{allowed: false}, 10, http.StatusTooManyRequests},
		{"Redis 出错降级放行", &fakeLimiter{err: errors.New("down")}, 10, http.StatusOK},
		{"未超限放行", &fakeLimiter{allowed: true}, 10, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			rateLimitedRouter(tt.limiter, tt.limit).ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
			if w.Code != tt.want {
				t.Errorf("期望 %d，实际=%d", tt.want, w.Code)
			}
		})
	}
}

func TestRateLimit_KeyIncludesRoute(t *testing.T) {
	l := &fakeLimiter{allowed: true}
	w := httptest.NewRecorder()
	rateLimitedRouter(l, 10).ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if len(l.keys) != 1 || !strings.HasPrefix(l.keys[0], "rate_limit:") || !strings.HasSuffix(l.keys[0], ":/p") {
		t.Errorf("限流 key 不符合预期: %v", l.keys)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequestID(), func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	r.ServeHTTP(w, req)
	if w.Body.String() != "trace-1" || w.Header().Get("X-Request-ID") != "trace-1" {
		t.Errorf("期望沿用传入的 trace-1，实际=%s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if len(w.Body.String()) != 36 {
		t.Errorf("超长 ID 应被替换为 UUID，实际=%s", w.Body.String())
	}
}

// ── BodyLimit ──

func TestBodyLimit_ContentLength(t *testing.T) {
	r := gin.New()
	r.POST("/p", BodyLimit(8), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader("0123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际=%d", w.Code)
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173/"}))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("允许的来源应回写 Allow-Origin")
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("OPTIONS", "/p", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检期望 204，实际=%d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("未允许的来源不应回写 Allow-Origin")
	}
}
