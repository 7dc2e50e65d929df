package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/internal/rates/application"
	"github.com/youngberry1/coindarks-sub001/internal/rates/domain"
	"github.com/youngberry1/coindarks-sub001/internal/rates/infrastructure/persistence/mysql"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate(&domain.TradingPair{}))

	repo := mysql.NewTradingPairRepository(database.DB)
	h := NewRateHandler(application.NewRateResolver(repo, nil), application.NewRateCommandService(repo))

	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateAdminLifecycle(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPut, "/api/v1/admin/rates/USDT-NGN",
		`{"rate":1400,"manual_rate":"1500","margin_percent":2,"sell_margin_percent":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/rates", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rates []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rates))
	require.Len(t, rates, 1)
	assert.Equal(t, "USDT-NGN", rates[0]["pair"])
	assert.Equal(t, 1400.0, rates[0]["rate"])
	assert.Equal(t, 1500.0, rates[0]["manual_rate"])
	assert.Equal(t, 2.0, rates[0]["margin_percent"])
	assert.Equal(t, 2.0, rates[0]["buy_margin_percent"])
	assert.Equal(t, 1.0, rates[0]["sell_margin_percent"])
	assert.Equal(t, false, rates[0]["is_automated"])
	assert.Equal(t, 1500.0, rates[0]["display_rate"])

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/v1/admin/rates/USDT-NGN", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/admin/rates/USDT-NGN", "").Code)
}

func TestUpsertRateRejectsBadPair(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPut, "/api/v1/admin/rates/BTCGHS", `{"rate":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
