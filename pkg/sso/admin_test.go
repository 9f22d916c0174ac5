package sso

import (
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/idgate/pkg/observability"
)

func setupAdmin(t *testing.T) (*mux.Router, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	storage, mock, db := setupMockStorage(t)
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)

	r := mux.NewRouter()
	NewAdminHandlers(storage, log).Register(r)
	return r, mock, db
}

func TestAdminCreateProvider(t *testing.T) {
	router, mock, db := setupAdmin(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO sso_providers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))

	body := `{"name":"acme","enabled":true,"issuer_url":"https://idp.example.org","client_id":"client"}`
	r := httptest.NewRequest(http.MethodPost, "/admin/providers", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"acme"`)
}

func TestAdminCreateProvider_MissingFields(t *testing.T) {
	router, _, db := setupAdmin(t)
	defer db.Close()

	r := httptest.NewRequest(http.MethodPost, "/admin/providers", strings.NewReader(`{"name":"acme"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminCreateProvider_InvalidJSON(t *testing.T) {
	router, _, db := setupAdmin(t)
	defer db.Close()

	r := httptest.NewRequest(http.MethodPost, "/admin/providers", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminGetProvider_NotFound(t *testing.T) {
	router, mock, db := setupAdmin(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM sso_providers WHERE name").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	r := httptest.NewRequest(http.MethodGet, "/admin/providers/ghost", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListProviders(t *testing.T) {
	router, mock, db := setupAdmin(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM sso_providers WHERE enabled").
		WillReturnRows(providerRows().AddRow(
			int64(1), "acme", true, "https://idp.example.org", "client", "secret",
			"https://cb", pq.Array([]string{"openid"}), nil, []byte(`{}`), now, now))

	r := httptest.NewRequest(http.MethodGet, "/admin/providers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"acme"`)
	assert.NotContains(t, w.Body.String(), "secret", "client secret never leaves the API")
}

func TestAdminDeleteProvider(t *testing.T) {
	router, mock, db := setupAdmin(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM sso_providers").
		WithArgs("acme").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := httptest.NewRequest(http.MethodDelete, "/admin/providers/acme", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
