package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"ewill/core"
	"ewill/core/errs"
	"ewill/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020

	codeNotFound          = -32001
	codeUnauthorized      = -32002
	codeInvalidState      = -32003
	codeInsufficientFunds = -32004
	codeOutOfWindow       = -32005
	codeInvalidConfig     = -32006
)

// Server exposes every settlement engine over JSON-RPC 2.0 plus a Prometheus
// metrics endpoint. Mutating methods run under the node's write lock so each
// request commits and persists atomically.
type Server struct {
	node    *core.Node
	logger  *slog.Logger
	limiter *rate.Limiter
	metrics *metrics.RPCMetrics
}

// NewServer wires an RPC server over the node. limit and burst bound the
// accepted request rate across all clients.
func NewServer(node *core.Node, logger *slog.Logger, limit float64, burst int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &Server{
		node:    node,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		metrics: metrics.RPC(),
	}
}

// Start serves JSON-RPC on addr until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	s.logger.Info("rpc listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// writeEngineError maps an engine failure onto a stable error code by its
// category and reports it to metrics.
func (s *Server) writeEngineError(w http.ResponseWriter, req *RPCRequest, err error) {
	kind := errs.Kind(err)
	code := codeServerError
	status := http.StatusBadRequest
	switch kind {
	case "not_found":
		code = codeNotFound
		status = http.StatusNotFound
	case "unauthorized":
		code = codeUnauthorized
		status = http.StatusForbidden
	case "invalid_state":
		code = codeInvalidState
	case "insufficient_funds":
		code = codeInsufficientFunds
	case "out_of_window":
		code = codeOutOfWindow
	case "invalid_configuration":
		code = codeInvalidConfig
	default:
		status = http.StatusInternalServerError
	}
	s.metrics.ObserveFailure(req.Method, kind)
	writeError(w, status, req.ID, code, kind, err.Error())
}

// handle is the main request handler that parses the envelope and routes to
// the per-module handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.limiter.Allow() {
		s.metrics.ObserveThrottled()
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	requestID := uuid.NewString()
	started := time.Now()
	s.logger.Debug("rpc request", "method", req.Method, "requestId", requestID)
	defer func() {
		s.metrics.ObserveRequest(req.Method, time.Since(started))
	}()

	switch req.Method {
	case "token_getBalance":
		s.handleTokenGetBalance(w, req)
	case "token_totalSupply":
		s.handleTokenTotalSupply(w, req)
	case "token_transfer":
		s.handleTokenTransfer(w, req)
	case "token_merchantCollect":
		s.handleTokenMerchantCollect(w, req)
	case "token_addMerchant":
		s.handleTokenAddMerchant(w, req)
	case "token_removeMerchant":
		s.handleTokenRemoveMerchant(w, req)
	case "escrow_register":
		s.handleEscrowRegister(w, req)
	case "escrow_activateProvider":
		s.handleEscrowActivateProvider(w, req)
	case "escrow_topup":
		s.handleEscrowTopup(w, req)
	case "escrow_withdraw":
		s.handleEscrowWithdraw(w, req)
	case "escrow_banProvider":
		s.handleEscrowBanProvider(w, req)
	case "escrow_unbanProvider":
		s.handleEscrowUnbanProvider(w, req)
	case "escrow_changeDelegate":
		s.handleEscrowChangeDelegate(w, req)
	case "escrow_updateInfo":
		s.handleEscrowUpdateInfo(w, req)
	case "escrow_getProvider":
		s.handleEscrowGetProvider(w, req)
	case "treasury_payOperationalExpenses":
		s.handleTreasuryPay(w, req)
	case "treasury_status":
		s.handleTreasuryStatus(w, req)
	case "marketing_addDiscount":
		s.handleMarketingAddDiscount(w, req)
	case "marketing_setDefaultDiscount":
		s.handleMarketingSetDefaultDiscount(w, req)
	case "marketing_getDiscount":
		s.handleMarketingGetDiscount(w, req)
	case "finance_totalFee":
		s.handleFinanceTotalFee(w, req)
	case "finance_exchangeTokens":
		s.handleFinanceExchangeTokens(w, req)
	case "finance_depositEther":
		s.handleFinanceDepositEther(w, req)
	case "finance_etherBalance":
		s.handleFinanceEtherBalance(w, req)
	case "will_create":
		s.handleWillCreate(w, req)
	case "will_activate":
		s.handleWillActivate(w, req)
	case "will_apply":
		s.handleWillApply(w, req)
	case "will_claim":
		s.handleWillClaim(w, req)
	case "will_refresh":
		s.handleWillRefresh(w, req)
	case "will_prolong":
		s.handleWillProlong(w, req)
	case "will_delete":
		s.handleWillDelete(w, req)
	case "will_reject":
		s.handleWillReject(w, req)
	case "will_get":
		s.handleWillGet(w, req)
	case "will_listByOwner":
		s.handleWillListByOwner(w, req)
	case "events_list":
		s.handleEventsList(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

// decodeParams unmarshals the single parameter object every method expects.
func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}
