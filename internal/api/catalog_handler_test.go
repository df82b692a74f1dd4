package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"cvbuilder/internal/database"
	"cvbuilder/internal/resume"
)

func TestTemplatesCatalog(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]resume.Template](t, w)
	require.Len(t, list, 11)
	require.Equal(t, resume.DefaultTemplateID, list[0].ID)

	w = ts.do(t, http.MethodGet, "/v1/templates/finance", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Finance", decode[resume.Template](t, w).Industry)

	require.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/v1/templates/nope", "", nil).Code)
}

func TestSuggestions(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/suggestions?industry=tech&section=experience", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string][]string](t, w)["suggestions"]
	require.Len(t, got, 10)
	require.Equal(t, "Spearheaded", got[0])

	w = ts.do(t, http.MethodGet, "/v1/suggestions?industry=&section=experience", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"suggestions":[]}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/v1/suggestions?industry=tech&section=skills&category=buzzwords", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBetaSignupIsIdempotent(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/v1/beta", "", map[string]any{"email": "Early@Example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	var count int64
	require.NoError(t, ts.db.Model(&database.BetaInvite{}).Where("email = ?", "early@example.com").Count(&count).Error)
	require.EqualValues(t, 1, count)

	w := ts.do(t, http.MethodPost, "/v1/beta", "", map[string]any{"email": "nope"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"a valid email is required"}`, w.Body.String())
}
