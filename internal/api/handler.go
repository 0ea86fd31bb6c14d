// Package api exposes the pool engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"liquidityPool/internal/config"
	"liquidityPool/internal/ledger"
	"liquidityPool/internal/model"
	"liquidityPool/internal/pool"
)

// SignerHeader carries the caller's address. The server trusts it; an
// authenticating proxy in front of the API is expected to set it.
const SignerHeader = "X-Signer-Address"

// Options configures a Handler. All fields are optional.
type Options struct {
	Logger *zap.Logger
	// Gatherer backs GET /metrics; the route is omitted when nil.
	Gatherer prometheus.Gatherer
	// OnCommit runs after every successful mutation, e.g. to persist a
	// snapshot. Its failure is logged; the operation stays committed.
	OnCommit func(ctx context.Context) error
}

// Handler provides HTTP handlers for pool operations.
type Handler struct {
	engine   *pool.Engine
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	onCommit func(ctx context.Context) error
}

func NewHandler(engine *pool.Engine, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:   engine,
		logger:   logger,
		gatherer: opts.Gatherer,
		onCommit: opts.OnCommit,
	}
}

// RegisterRoutes registers all pool routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/pools", h.handleInitialize).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/pools", h.handleListPools).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/pools/{key}", h.handleGetPool).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/pools/{key}/deposit", h.handleDeposit).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/pools/{key}/withdraw", h.handleWithdraw).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/pools/{key}/swap", h.handleSwap).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/pools/{key}/lock", h.handleSetLocked(true)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/pools/{key}/unlock", h.handleSetLocked(false)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/balances/{owner}/{asset}", h.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

// Request/Response types

type InitializeRequest struct {
	AssetX    string `json:"asset_x"`
	AssetY    string `json:"asset_y"`
	PoolID    uint64 `json:"pool_id"`
	FeeBps    uint16 `json:"fee_bps"`
	Authority string `json:"authority,omitempty"`
}

type DepositRequest struct {
	Shares uint64 `json:"shares"`
	MaxX   uint64 `json:"max_x"`
	MaxY   uint64 `json:"max_y"`
}

type WithdrawRequest struct {
	Shares uint64 `json:"shares"`
	MinX   uint64 `json:"min_x"`
	MinY   uint64 `json:"min_y"`
}

type SwapRequest struct {
	Direction string `json:"direction"`
	AmountIn  uint64 `json:"amount_in"`
	MinOut    uint64 `json:"min_out"`
}

type PoolResponse struct {
	Key   string          `json:"key"`
	State model.PoolState `json:"state"`
}

type LiquidityResponse struct {
	Shares  uint64          `json:"shares"`
	AmountX uint64          `json:"amount_x"`
	AmountY uint64          `json:"amount_y"`
	State   model.PoolState `json:"state"`
}

type SwapResponse struct {
	AmountIn  uint64          `json:"amount_in"`
	AmountOut uint64          `json:"amount_out"`
	Fee       uint64          `json:"fee"`
	State     model.PoolState `json:"state"`
}

type BalanceResponse struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance uint64 `json:"balance"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req InitializeRequest
	if !h.decode(w, r, &req) {
		return
	}
	assetX, err := config.ParseAddress(req.AssetX)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	assetY, err := config.ParseAddress(req.AssetY)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	authority, err := config.ParseOptionalAddress(req.Authority)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p, err := h.engine.Initialize(r.Context(), signer, pool.InitializeParams{
		AssetX:    assetX,
		AssetY:    assetY,
		PoolID:    req.PoolID,
		FeeBps:    req.FeeBps,
		Authority: authority,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.committed(r.Context())
	h.writeJSON(w, http.StatusCreated, PoolResponse{
		Key:   p.Key().String(),
		State: model.PoolState{Pool: p},
	})
}

func (h *Handler) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools := h.engine.Pools()
	out := make([]PoolResponse, 0, len(pools))
	for _, p := range pools {
		st, err := h.engine.State(p.Key())
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		out = append(out, PoolResponse{Key: p.Key().String(), State: st})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPool(w http.ResponseWriter, r *http.Request) {
	key, ok := h.poolKey(w, r)
	if !ok {
		return
	}
	st, err := h.engine.State(key)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, PoolResponse{Key: key.String(), State: st})
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	key, ok := h.poolKey(w, r)
	if !ok {
		return
	}
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req DepositRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.engine.Deposit(r.Context(), signer, key, pool.DepositParams{
		Shares: req.Shares,
		MaxX:   req.MaxX,
		MaxY:   req.MaxY,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.committed(r.Context())
	h.writeJSON(w, http.StatusOK, liquidityResponse(res))
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	key, ok := h.poolKey(w, r)
	if !ok {
		return
	}
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req WithdrawRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.engine.Withdraw(r.Context(), signer, key, pool.WithdrawParams{
		Shares: req.Shares,
		MinX:   req.MinX,
		MinY:   req.MinY,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.committed(r.Context())
	h.writeJSON(w, http.StatusOK, liquidityResponse(res))
}

func (h *Handler) handleSwap(w http.ResponseWriter, r *http.Request) {
	key, ok := h.poolKey(w, r)
	if !ok {
		return
	}
	signer, ok := h.signer(w, r)
	if !ok {
		return
	}
	var req SwapRequest
	if !h.decode(w, r, &req) {
		return
	}
	direction, err := pool.ParseDirection(req.Direction)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.engine.Swap(r.Context(), signer, key, pool.SwapParams{
		Direction: direction,
		AmountIn:  req.AmountIn,
		MinOut:    req.MinOut,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.committed(r.Context())
	h.writeJSON(w, http.StatusOK, SwapResponse{
		AmountIn:  res.AmountIn,
		AmountOut: res.AmountOut,
		Fee:       res.Fee,
		State:     res.State,
	})
}

func (h *Handler) handleSetLocked(locked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := h.poolKey(w, r)
		if !ok {
			return
		}
		signer, ok := h.signer(w, r)
		if !ok {
			return
		}
		if err := h.engine.SetLocked(r.Context(), signer, key, locked); err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.committed(r.Context())
		st, err := h.engine.State(key)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, PoolResponse{Key: key.String(), State: st})
	}
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, err := config.ParseAddress(vars["owner"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	asset, err := config.ParseAddress(vars["asset"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, BalanceResponse{
		Owner:   owner.Hex(),
		Asset:   asset.Hex(),
		Balance: h.engine.Ledger().Balance(owner, asset),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"pools":  len(h.engine.Pools()),
	})
}

// Helper methods

func liquidityResponse(res pool.LiquidityResult) LiquidityResponse {
	return LiquidityResponse{
		Shares:  res.Shares,
		AmountX: res.AmountX,
		AmountY: res.AmountY,
		State:   res.State,
	}
}

func (h *Handler) committed(ctx context.Context) {
	if h.onCommit == nil {
		return
	}
	if err := h.onCommit(ctx); err != nil {
		h.logger.Error("persist after commit", zap.Error(err))
	}
}

func (h *Handler) signer(w http.ResponseWriter, r *http.Request) (ledger.Signer, bool) {
	value := r.Header.Get(SignerHeader)
	if value == "" {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", SignerHeader+" header is required")
		return ledger.Signer{}, false
	}
	addr, err := config.ParseAddress(value)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return ledger.Signer{}, false
	}
	return ledger.NewSigner(addr), true
}

func (h *Handler) poolKey(w http.ResponseWriter, r *http.Request) (model.PoolKey, bool) {
	key, err := model.ParsePoolKey(mux.Vars(r)["key"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return model.PoolKey{}, false
	}
	return key, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps an engine error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pool.ErrPoolNotFound):
		return http.StatusNotFound, "pool_not_found"
	case errors.Is(err, pool.ErrDuplicatePool):
		return http.StatusConflict, "duplicate_pool"
	case errors.Is(err, pool.ErrPoolLocked):
		return http.StatusLocked, "pool_locked"
	case errors.Is(err, pool.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, pool.ErrSlippageExceeded):
		return http.StatusConflict, "slippage_exceeded"
	case errors.Is(err, pool.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, pool.ErrCurveComputationFailed):
		return http.StatusUnprocessableEntity, "curve_computation_failed"
	case errors.Is(err, pool.ErrInvalidFee):
		return http.StatusBadRequest, "invalid_fee"
	case errors.Is(err, pool.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, pool.ErrIdenticalAssets):
		return http.StatusBadRequest, "identical_assets"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("pool operation", zap.Error(err))
	}
	h.writeError(w, status, code, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Debug("write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Success: false, Code: code, Error: message})
}

