package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cvbuilder/internal/auth"
	"cvbuilder/internal/database"
)

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshTokenCookieName {
			return c
		}
	}
	t.Fatalf("refresh cookie not set")
	return nil
}

func (ts *testServer) doWithCookie(t *testing.T, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "Grace@Example.com",
		"name":     "Grace",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[tokenResponse](t, w)
	require.NotEmpty(t, reg.AccessToken)
	require.Equal(t, "Bearer", reg.TokenType)
	require.Equal(t, "grace@example.com", reg.User.Email)
	require.Equal(t, database.PlanFree, reg.User.Plan)

	w = ts.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":    "grace@example.com",
		"password": "another-pass",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "grace@example.com", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": " GRACE@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[tokenResponse](t, w)
	cookie := refreshCookie(t, w)
	require.True(t, cookie.HttpOnly)

	claims, err := ts.auth.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, auth.TokenTypeAccess, claims.TokenType)
	require.Equal(t, database.PlanFree, claims.Plan)

	w = ts.do(t, http.MethodGet, "/v1/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":1,"email":"grace@example.com","name":"Grace","plan":"free"}`, w.Body.String())
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []map[string]any{
		{"email": "not-an-email", "password": "longenough"},
		{"email": "a@b.co", "password": "short"},
		{"password": "longenough"},
	} {
		w := ts.do(t, http.MethodPost, "/v1/auth/register", "", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "rot@example.com", database.PlanFree)

	w := ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "rot@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	first := refreshCookie(t, w)

	w = ts.doWithCookie(t, http.MethodPost, "/v1/auth/refresh", first)
	require.Equal(t, http.StatusOK, w.Code)
	second := refreshCookie(t, w)

	// 旧令牌已作废。
	w = ts.doWithCookie(t, http.MethodPost, "/v1/auth/refresh", first)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// 请求体中的刷新令牌同样可用。
	w = ts.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+second.Value+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	third := refreshCookie(t, w)
	access := decode[tokenResponse](t, w).AccessToken

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(third)
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, -1, refreshCookie(t, w).MaxAge)

	w = ts.doWithCookie(t, http.MethodPost, "/v1/auth/refresh", third)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginLockout(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "lock@example.com", database.PlanFree)

	for i := 0; i < loginLockThreshold; i++ {
		w := ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "lock@example.com", "password": "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "lock@example.com", "password": "password123"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.True(t, ts.mr.Exists("lock:login:lock@example.com"))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) { d.AuthRatePerMinute = 5 })

	body := map[string]any{"email": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/v1/auth/login", "", body).Code)
	}
	w := ts.do(t, http.MethodPost, "/v1/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	// 其他路由不受影响。
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/templates", "", nil).Code)
}

func TestMustChangePasswordGate(t *testing.T) {
	ts := newTestServer(t)
	userID, _ := ts.createUser(t, "admin-made@example.com", database.PlanFree)
	require.NoError(t, ts.db.Model(&database.User{}).Where("id = ?", userID).Update("must_change_password", true).Error)

	w := ts.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "admin-made@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[tokenResponse](t, w)
	require.True(t, login.MustChangePassword)

	require.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/v1/resumes", login.AccessToken, nil).Code)

	w = ts.do(t, http.MethodPost, "/v1/auth/change-password", login.AccessToken, map[string]any{
		"current_password": "password123",
		"new_password":     "brand-new-pass",
		"confirm_password": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	changed := decode[tokenResponse](t, w)
	require.False(t, changed.MustChangePassword)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/resumes", changed.AccessToken, nil).Code)
	require.False(t, strings.Contains(w.Body.String(), "password_hash"))
}
