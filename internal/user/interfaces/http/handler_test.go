package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youngberry1/coindarks-sub001/internal/user/application"
	"github.com/youngberry1/coindarks-sub001/internal/user/domain"
	"github.com/youngberry1/coindarks-sub001/internal/user/infrastructure/persistence/mysql"
	"github.com/youngberry1/coindarks-sub001/pkg/db"
	"github.com/youngberry1/coindarks-sub001/pkg/middleware"
)

const secret = "user-handler-secret"

func setup(t *testing.T) (*gin.Engine, domain.UserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Init(db.Config{Driver: "sqlite", DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, database.AutoMigrate(&domain.User{}))

	repo := mysql.NewUserRepository(database.DB)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin, KycStatus: domain.KycPending}))
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "user-1", Email: "user@example.com", Role: domain.RoleUser, KycStatus: domain.KycPending}))

	svc := application.NewUserService(repo)
	r := gin.New()
	api := r.Group("/api/v1", middleware.JWTAuthMiddleware(secret), CallerMiddleware(svc))
	NewUserHandler(svc).RegisterAdminRoutes(api.Group("/admin", RequireAdmin()))
	return r, repo
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.GenerateToken(userID, secret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return "Bearer " + token
}

func doKyc(r *gin.Engine, auth, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/users/"+target+"/kyc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminApprovesKyc(t *testing.T) {
	r, repo := setup(t)

	w := doKyc(r, bearer(t, "admin-1"), "user-1", `{"status":"APPROVED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	u, err := repo.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.KycApproved, u.KycStatus)
}

func TestKycReviewRejections(t *testing.T) {
	r, _ := setup(t)

	assert.Equal(t, http.StatusForbidden, doKyc(r, bearer(t, "user-1"), "user-1", `{"status":"APPROVED"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, doKyc(r, bearer(t, "ghost"), "user-1", `{"status":"APPROVED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, doKyc(r, bearer(t, "admin-1"), "user-1", `{"status":"MAYBE"}`).Code)
	assert.Equal(t, http.StatusNotFound, doKyc(r, bearer(t, "admin-1"), "nobody", `{"status":"REJECTED"}`).Code)
}

func TestCallerCanTrade(t *testing.T) {
	assert.True(t, domain.Caller{Role: domain.RoleAdmin, KycStatus: domain.KycPending}.CanTrade())
	assert.True(t, domain.Caller{Role: domain.RoleUser, KycStatus: domain.KycApproved}.CanTrade())
	assert.False(t, domain.Caller{Role: domain.RoleUser, KycStatus: domain.KycRejected}.CanTrade())
}
