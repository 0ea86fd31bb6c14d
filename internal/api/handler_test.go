package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/pool"
)

var (
	alice  = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob    = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	assetX = common.HexToAddress("0x1000000000000000000000000000000000000001")
	assetY = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

type testServer struct {
	*httptest.Server
	engine  *pool.Engine
	commits atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	engine, err := pool.NewEngine(ledger.New(), pool.Options{Metrics: pool.NewMetrics(reg)})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	ts := &testServer{engine: engine}
	h := NewHandler(engine, Options{
		Gatherer: reg,
		OnCommit: func(context.Context) error {
			ts.commits.Add(1)
			return nil
		},
	})
	ts.Server = httptest.NewServer(NewRouter(h))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, signer *common.Address, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if signer != nil {
		req.Header.Set(SignerHeader, signer.Hex())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func expectError(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status = %d want %d: %s", status, wantStatus, body)
	}
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != wantCode {
		t.Fatalf("code = %s want %s (%s)", resp.Code, wantCode, resp.Error)
	}
}

func createPool(t *testing.T, ts *testServer) string {
	t.Helper()
	status, body := ts.do(t, http.MethodPost, "/api/v1/pools", &alice, InitializeRequest{
		AssetX: assetX.Hex(), AssetY: assetY.Hex(), PoolID: 1, FeeBps: 30, Authority: alice.Hex(),
	})
	if status != http.StatusCreated {
		t.Fatalf("create pool: %d %s", status, body)
	}
	var resp PoolResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode pool: %v", err)
	}
	return resp.Key
}

func TestInitializeRoutes(t *testing.T) {
	ts := newTestServer(t)
	req := InitializeRequest{AssetX: assetX.Hex(), AssetY: assetY.Hex(), PoolID: 1, FeeBps: 30}

	status, body := ts.do(t, http.MethodPost, "/api/v1/pools", nil, req)
	expectError(t, status, body, http.StatusUnauthorized, "unauthorized")

	key := createPool(t, ts)
	want := model.PoolKey{AssetX: assetX, AssetY: assetY, PoolID: 1}
	if key != want.String() {
		t.Fatalf("key = %s want %s", key, want)
	}

	status, body = ts.do(t, http.MethodPost, "/api/v1/pools", &alice, req)
	expectError(t, status, body, http.StatusConflict, "duplicate_pool")

	bad := req
	bad.PoolID, bad.FeeBps = 2, 10_000
	status, body = ts.do(t, http.MethodPost, "/api/v1/pools", &alice, bad)
	expectError(t, status, body, http.StatusBadRequest, "invalid_fee")

	status, body = ts.do(t, http.MethodGet, "/api/v1/pools", nil, nil)
	var list []PoolResponse
	if status != http.StatusOK || json.Unmarshal(body, &list) != nil || len(list) != 1 {
		t.Fatalf("list pools: %d %s", status, body)
	}
	if n := ts.commits.Load(); n != 1 {
		t.Fatalf("commits = %d want 1", n)
	}
}

func TestLiquidityAndSwapRoutes(t *testing.T) {
	ts := newTestServer(t)
	key := createPool(t, ts)
	l := ts.engine.Ledger()
	if err := l.Fund(alice, assetX, 100_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := l.Fund(alice, assetY, 100_000); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := l.Fund(bob, assetX, 1_000); err != nil {
		t.Fatalf("fund: %v", err)
	}

	status, body := ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/deposit", &alice, DepositRequest{Shares: 100_000, MaxX: 100_000, MaxY: 100_000})
	var liq LiquidityResponse
	if status != http.StatusOK || json.Unmarshal(body, &liq) != nil {
		t.Fatalf("deposit: %d %s", status, body)
	}
	if liq.State.ReserveX != 100_000 || liq.State.ShareSupply != 100_000 {
		t.Fatalf("deposit state mismatch: %+v", liq.State)
	}

	swapPath := "/api/v1/pools/" + key + "/swap"
	status, body = ts.do(t, http.MethodPost, swapPath, &bob, SwapRequest{Direction: "x_to_y", AmountIn: 1_000, MinOut: 988})
	expectError(t, status, body, http.StatusConflict, "slippage_exceeded")

	status, body = ts.do(t, http.MethodPost, swapPath, &bob, SwapRequest{Direction: "x_to_y", AmountIn: 1_000, MinOut: 987})
	var swap SwapResponse
	if status != http.StatusOK || json.Unmarshal(body, &swap) != nil {
		t.Fatalf("swap: %d %s", status, body)
	}
	if swap.AmountOut != 987 || swap.Fee != 3 || swap.State.ReserveX != 101_000 {
		t.Fatalf("swap mismatch: %+v", swap)
	}

	status, body = ts.do(t, http.MethodPost, swapPath, &bob, SwapRequest{Direction: "x_to_y", AmountIn: 1_000})
	expectError(t, status, body, http.StatusUnprocessableEntity, "insufficient_balance")

	status, body = ts.do(t, http.MethodPost, swapPath, &bob, SwapRequest{Direction: "sideways", AmountIn: 1})
	expectError(t, status, body, http.StatusBadRequest, "invalid_request")

	status, body = ts.do(t, http.MethodGet, "/api/v1/balances/"+bob.Hex()+"/"+assetY.Hex(), nil, nil)
	var bal BalanceResponse
	if status != http.StatusOK || json.Unmarshal(body, &bal) != nil || bal.Balance != 987 {
		t.Fatalf("balance: %d %s", status, body)
	}

	status, body = ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/withdraw", &alice, WithdrawRequest{Shares: 100_000})
	if status != http.StatusOK || json.Unmarshal(body, &liq) != nil {
		t.Fatalf("withdraw: %d %s", status, body)
	}
	if liq.State.ShareSupply != 0 || liq.State.ReserveX != 0 || liq.State.ReserveY != 0 {
		t.Fatalf("pool should be empty: %+v", liq.State)
	}
}

func TestLockRoutes(t *testing.T) {
	ts := newTestServer(t)
	key := createPool(t, ts)

	status, body := ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/lock", &bob, nil)
	expectError(t, status, body, http.StatusForbidden, "unauthorized")

	status, body = ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/lock", &alice, nil)
	var resp PoolResponse
	if status != http.StatusOK || json.Unmarshal(body, &resp) != nil || !resp.State.Pool.Locked {
		t.Fatalf("lock: %d %s", status, body)
	}

	status, body = ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/deposit", &alice, DepositRequest{Shares: 1, MaxX: 1, MaxY: 1})
	expectError(t, status, body, http.StatusLocked, "pool_locked")

	status, body = ts.do(t, http.MethodPost, "/api/v1/pools/"+key+"/unlock", &alice, nil)
	if status != http.StatusOK || json.Unmarshal(body, &resp) != nil || resp.State.Pool.Locked {
		t.Fatalf("unlock: %d %s", status, body)
	}
}

func TestQueryRoutes(t *testing.T) {
	ts := newTestServer(t)
	key := createPool(t, ts)

	status, body := ts.do(t, http.MethodGet, "/api/v1/pools/"+key, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("get pool: %d %s", status, body)
	}

	missing := model.PoolKey{AssetX: assetX, AssetY: assetY, PoolID: 99}
	status, body = ts.do(t, http.MethodGet, "/api/v1/pools/"+missing.String(), nil, nil)
	expectError(t, status, body, http.StatusNotFound, "pool_not_found")

	status, body = ts.do(t, http.MethodGet, "/api/v1/pools/not-a-key", nil, nil)
	expectError(t, status, body, http.StatusBadRequest, "invalid_request")

	status, body = ts.do(t, http.MethodGet, "/metrics", nil, nil)
	if status != http.StatusOK || !strings.Contains(string(body), "amm_operations_total") {
		t.Fatalf("metrics: %d", status)
	}
}
