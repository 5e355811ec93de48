package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"company_backend/internal/feature/company/adapters"
	companyhandler "company_backend/internal/feature/company/transport/handler"
	"company_backend/internal/feature/company/usecase"
	"company_backend/internal/platform/db"
	platformhandler "company_backend/internal/platform/http/handler"
	jwtmw "company_backend/internal/platform/jwt"
	"company_backend/internal/shared/ratelimiter"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testJWT = jwtmw.Config{Secret: "router-test-secret"}

// setupRouter はインメモリSQLiteを使った実際の依存関係でルーターを構築します。
func setupRouter(t *testing.T, authDisabled bool) *gin.Engine {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to initialize test database")
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	repo := adapters.NewCompanyRepository(gdb)
	h := companyhandler.NewCompanyHandler(usecase.NewCompanyUsecase(repo))
	health := platformhandler.NewHealthHandler(map[string]platformhandler.Pinger{"database": sqlDB})

	return NewRouter(Options{
		AuthDisabled:   authDisabled,
		JWT:            testJWT,
		AllowedOrigins: []string{"http://localhost:4200"},
	}, health, h)
}

func bearer(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := jwtmw.NewGenerator(testJWT, time.Hour).GenerateToken("tester", scopes)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const appleJSON = `{"name":"Apple Inc.","stockTicker":"AAPL","exchange":"NASDAQ","isin":"US0378331005","website":"http://www.apple.com"}`

// TestRouter_Healthz はヘルスチェックが認証なしで利用できることを検証します。
func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	r := setupRouter(t, false)
	w := do(r, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())
}

// TestRouter_Authorization はトークンとスコープによるアクセス制御を検証します。
func TestRouter_Authorization(t *testing.T) {
	t.Parallel()

	r := setupRouter(t, false)

	tests := []struct {
		name           string
		method         string
		path           string
		auth           string
		body           string
		expectedStatus int
	}{
		{"list without token", http.MethodGet, "/api/v1/companies", "", "", http.StatusUnauthorized},
		{"list with read scope", http.MethodGet, "/api/v1/companies", bearer(t, jwtmw.ScopeRead), "", http.StatusOK},
		{"list with write scope only", http.MethodGet, "/api/v1/companies", bearer(t, jwtmw.ScopeWrite), "", http.StatusForbidden},
		{"create with read scope", http.MethodPost, "/api/v1/companies", bearer(t, jwtmw.ScopeRead), appleJSON, http.StatusForbidden},
		{"delete without token", http.MethodDelete, "/api/v1/companies/6f1c1a34-2c5e-4a4e-9a53-0b5a3c1f0e11", "", "", http.StatusUnauthorized},
		{"invalid token", http.MethodGet, "/api/v1/companies", "Bearer nope", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.auth, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

// TestRouter_CompanyLifecycle は作成から削除までの一連の操作を検証します。
func TestRouter_CompanyLifecycle(t *testing.T) {
	t.Parallel()

	r := setupRouter(t, false)
	rw := bearer(t, jwtmw.ScopeRead, jwtmw.ScopeWrite)

	// 作成
	w := do(r, http.MethodPost, "/api/v1/companies", rw, appleJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, "/api/v1/companies/"+id, w.Header().Get("Location"))

	// 同じISINでの作成は409
	w = do(r, http.MethodPost, "/api/v1/companies", rw,
		`{"name":"Other","stockTicker":"OTH","exchange":"NYSE","isin":"US0378331005"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"company with this isin already exists","isin":"US0378331005"}`, w.Body.String())

	// 部分更新: websiteのみクリア
	w = do(r, http.MethodPatch, "/api/v1/companies/"+id, rw, `{"website":null}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var patched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patched))
	assert.Nil(t, patched["website"])
	assert.Equal(t, "Apple Inc.", patched["name"])
	assert.Equal(t, "AAPL", patched["stockTicker"])

	// 不正なISINは400で何も変更しない
	w = do(r, http.MethodPatch, "/api/v1/companies/"+id, rw, `{"name":"Changed","isin":"BAD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodGet, "/api/v1/companies/"+id, rw, "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "Apple Inc.", fetched["name"])

	// ISINで取得
	w = do(r, http.MethodGet, "/api/v1/companies/isin/US0378331005", rw, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// 削除後は404
	w = do(r, http.MethodDelete, "/api/v1/companies/"+id, rw, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodGet, "/api/v1/companies/"+id, rw, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRouter_AuthDisabled は認証無効時にトークンなしでアクセスできることを検証します。
func TestRouter_AuthDisabled(t *testing.T) {
	t.Parallel()

	r := setupRouter(t, true)

	w := do(r, http.MethodGet, "/api/v1/companies", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/companies", "", appleJSON)
	assert.Equal(t, http.StatusCreated, w.Code)
}

// TestRouter_WriteRateLimit は更新系のみがレート制限の対象になることを検証します。
func TestRouter_WriteRateLimit(t *testing.T) {
	t.Parallel()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	h := companyhandler.NewCompanyHandler(usecase.NewCompanyUsecase(adapters.NewCompanyRepository(gdb)))
	r := NewRouter(Options{
		AuthDisabled: true,
		WriteLimiter: ratelimiter.NewRateLimiter(1, time.Minute),
	}, platformhandler.NewHealthHandler(nil), h)

	w := do(r, http.MethodPost, "/api/v1/companies", "", appleJSON)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodDelete, "/api/v1/companies/6f1c1a34-2c5e-4a4e-9a53-0b5a3c1f0e11", "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 参照系は制限されない
	for i := 0; i < 3; i++ {
		w = do(r, http.MethodGet, "/api/v1/companies", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

// TestRouter_SecurityHeaders はAPIレスポンスにセキュリティヘッダーが付与されることを検証します。
func TestRouter_SecurityHeaders(t *testing.T) {
	t.Parallel()

	r := setupRouter(t, true)
	w := do(r, http.MethodGet, "/api/v1/companies", "", "")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
