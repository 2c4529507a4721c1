package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"ledger-admin-go/internal/api"
	"ledger-admin-go/internal/auth"
	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/ledger"
	"ledger-admin-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret"

var (
	adminActor   = models.Actor{Id: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin}
	serviceActor = models.Actor{Id: "settlement", Role: models.RoleService}
	userActor    = models.Actor{Id: "alice", Email: "alice@example.com", Role: models.RoleUser}
)

type testServer struct {
	router *gin.Engine
	admin  *api.AdminService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "server.db"),
		MaxOpenConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	admin := api.NewAdminService(ledger.NewService(db, nil, models.LedgerConfig{}), nil)
	verifier, err := auth.NewVerifier(models.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)

	return &testServer{
		router: NewRouter(models.ServerConfig{}, admin, verifier),
		admin:  admin,
	}
}

func token(t *testing.T, actor models.Actor) string {
	t.Helper()
	s, err := auth.Sign(testSecret, actor, time.Hour)
	require.NoError(t, err)
	return s
}

func (ts *testServer) do(t *testing.T, method, path string, actor *models.Actor, body interface{}) (int, Response) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return ts.doRaw(t, method, path, actor, raw)
}

func (ts *testServer) doRaw(t *testing.T, method, path string, actor *models.Actor, raw []byte) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *actor))
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (ts *testServer) provision(t *testing.T, actor models.Actor) {
	t.Helper()
	code, resp := ts.do(t, http.MethodPost, "/api/v1/me/account", &actor, map[string]string{"display_name": actor.Id})
	require.Equal(t, http.StatusOK, code, resp.Message)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	code, resp := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Message)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer invalid.token.signature", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"user on admin route", "Bearer " + token(t, userActor), http.StatusForbidden},
		{"service on admin route", "Bearer " + token(t, serviceActor), http.StatusForbidden},
		{"admin", "Bearer " + token(t, adminActor), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ts.router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				var resp Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, models.KindUnauthorized, resp.Kind)
			}
		})
	}
}

func TestBalanceAdjustmentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, userActor)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/admin/accounts/alice/credit", &adminActor,
		map[string]string{"asset": "USDT", "amount": "100"})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = ts.do(t, http.MethodPost, "/api/v1/admin/accounts/alice/debit", &adminActor,
		map[string]string{"asset": "USDT", "amount": "10"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, models.KindInvalidInput, resp.Kind)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/admin/accounts/alice/debit", &adminActor,
		map[string]string{"asset": "USDT", "amount": "30", "reason": "fee"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPost, "/api/v1/admin/accounts/bob/credit", &adminActor,
		map[string]string{"asset": "USDT", "amount": "1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, models.KindUserNotFound, resp.Kind)

	code, resp = ts.do(t, http.MethodGet, "/api/v1/me/balances", &userActor, nil)
	require.Equal(t, http.StatusOK, code)
	balances := resp.Data.([]interface{})
	require.Len(t, balances, 1)
	assert.Equal(t, "70", balances[0].(map[string]interface{})["balance"])

	code, resp = ts.do(t, http.MethodGet, "/api/v1/admin/accounts/alice/adjustments?limit=10", &adminActor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data.([]interface{}), 2)

	code, resp = ts.do(t, http.MethodGet, "/api/v1/admin/accounts/alice/reconcile/USDT", &adminActor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["consistent"])

	code, _ = ts.do(t, http.MethodGet, "/api/v1/admin/accounts/alice/adjustments?limit=-1", &adminActor, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWithdrawalEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, userActor)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/me/withdrawals", &userActor,
		map[string]string{"asset": "USDT", "amount": "5", "destination_address": "0xdest"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, models.KindInsufficientFunds, resp.Kind)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/admin/accounts/alice/credit", &adminActor,
		map[string]string{"asset": "USDT", "amount": "50"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPost, "/api/v1/me/withdrawals", &userActor,
		map[string]string{"asset": "USDT", "amount": "20", "destination_address": "0xdest"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	requestId := resp.Data.(map[string]interface{})["request"].(map[string]interface{})["id"].(string)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+requestId+"/reject", &adminActor,
		map[string]string{"reason": "flagged"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, http.MethodPost, "/api/v1/admin/withdrawals/"+requestId+"/reject", &adminActor,
		map[string]string{"reason": "flagged"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, models.KindAlreadyProcessed, resp.Kind)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/admin/withdrawals/missing/approve", &adminActor,
		map[string]string{"tx_hash": "0xabc"})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = ts.do(t, http.MethodGet, "/api/v1/admin/requests?status=rejected", &adminActor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data.([]interface{}), 1)
}

func TestDecisionRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, userActor)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/me/deposits", &userActor,
		map[string]string{"asset": "USDT", "amount": "5"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	requestId := resp.Data.(map[string]interface{})["request"].(map[string]interface{})["id"].(string)

	code, resp = ts.doRaw(t, http.MethodPost, "/api/v1/admin/deposits/"+requestId+"/approve", &adminActor,
		[]byte(`{"notes": "verified on cha`))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, models.KindInvalidInput, resp.Kind)

	code, resp = ts.do(t, http.MethodGet, "/api/v1/admin/requests/"+requestId, &adminActor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", resp.Data.(map[string]interface{})["status"])

	code, resp = ts.do(t, http.MethodGet, "/api/v1/admin/accounts/alice/balances", &adminActor, nil)
	require.Equal(t, http.StatusOK, code)
	balances, _ := resp.Data.([]interface{})
	for _, b := range balances {
		assert.Equal(t, "0", b.(map[string]interface{})["balance"])
	}

	// an empty body is still accepted
	code, resp = ts.doRaw(t, http.MethodPost, "/api/v1/admin/deposits/"+requestId+"/approve", &adminActor, nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "approved", resp.Data.(map[string]interface{})["request"].(map[string]interface{})["status"])
}

func TestProvisionRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.doRaw(t, http.MethodPost, "/api/v1/me/account", &userActor, []byte(`{"display_name": `))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, models.KindInvalidInput, resp.Kind)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/me", &userActor, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSettlementEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.provision(t, userActor)

	code, _ := ts.do(t, http.MethodPut, "/api/v1/admin/accounts/alice/trade-outcome", &adminActor,
		map[string]string{"mode": "force_loss", "scope": "all_trades", "reason": "risk review"})
	require.Equal(t, http.StatusOK, code)

	code, resp := ts.do(t, http.MethodGet, "/api/v1/settlement/trade-outcome/alice", &serviceActor, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "force_loss", resp.Data.(map[string]interface{})["mode"])

	code, resp = ts.do(t, http.MethodPost, "/api/v1/settlement/adjustments", &serviceActor,
		map[string]string{"user_id": "alice", "asset": "USDT", "amount": "-15", "reason": "trade lost", "trade_id": "t-1"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, "0", resp.Data.(map[string]interface{})["new_balance"])

	code, _ = ts.do(t, http.MethodPost, "/api/v1/settlement/adjustments", &userActor,
		map[string]string{"user_id": "alice", "asset": "USDT", "amount": "1000", "reason": "free money"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestStatusForKind(t *testing.T) {
	tests := map[models.ErrorKind]int{
		models.KindNone:              http.StatusOK,
		models.KindInvalidInput:      http.StatusBadRequest,
		models.KindUnauthorized:      http.StatusForbidden,
		models.KindUserNotFound:      http.StatusNotFound,
		models.KindRequestNotFound:   http.StatusNotFound,
		models.KindAlreadyProcessed:  http.StatusConflict,
		models.KindDuplicateAccount:  http.StatusConflict,
		models.KindInsufficientFunds: http.StatusUnprocessableEntity,
		models.KindPartialFailure:    http.StatusServiceUnavailable,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusForKind(kind), string(kind))
	}
}
