package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jose-valero/clan-ops-bot/internal/infra/config"
)

func testServer(token string) *httptest.Server {
	cfg := config.Config{
		APIToken: token,
		Clans:    map[string]string{"rol-sun": "Requiem Sun"},
	}
	return httptest.NewServer(New(cfg, nil, nil).Router())
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	assert.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	return res
}

func TestHealthzIsOpen(t *testing.T) {
	srv := testServer("secreto")
	defer srv.Close()

	res := get(t, srv.URL+"/healthz", "")
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv := testServer("secreto")
	defer srv.Close()

	res := get(t, srv.URL+"/api/afk", "")
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = get(t, srv.URL+"/api/afk", "otro-token")
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAPIDisabledWithoutToken(t *testing.T) {
	srv := testServer("")
	defer srv.Close()

	res := get(t, srv.URL+"/api/afk", "lo-que-sea")
	res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestUnknownClanIs404(t *testing.T) {
	srv := testServer("secreto")
	defer srv.Close()

	res := get(t, srv.URL+"/api/clan/rol-fantasma/members", "secreto")
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestActiveAtRejectsBadTimestamp(t *testing.T) {
	srv := testServer("secreto")
	defer srv.Close()

	res := get(t, srv.URL+"/api/afk/111/active?at=ayer", "secreto")
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
