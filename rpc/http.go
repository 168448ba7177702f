package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"halochain/core"
	coreerrors "halochain/core/errors"
	"halochain/native/compliance"
	"halochain/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	// Per-source budget for mutating methods.
	mutationRatePerSec = 5
	mutationBurst      = 10
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeRateLimited    = -32020
	codeCompliance     = -32030
	codeInsufficient   = -32040
	codeStateConflict  = -32050
)

// Server exposes the ledger over JSON-RPC 2.0.
type Server struct {
	ledger   *core.Ledger
	registry *compliance.StateRegistry
	netting  *compliance.NettingLedger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	authToken string
	metrics   *metrics.LedgerMetrics
	logger    *slog.Logger
}

// NewServer wires the RPC surface over the ledger and its compliance
// collaborators. The auth token for mutating methods comes from
// HALO_RPC_TOKEN; when unset, mutations are open (local development).
func NewServer(ledger *core.Ledger, registry *compliance.StateRegistry, netting *compliance.NettingLedger) *Server {
	return &Server{
		ledger:    ledger,
		registry:  registry,
		netting:   netting,
		limiters:  make(map[string]*rate.Limiter),
		authToken: strings.TrimSpace(os.Getenv("HALO_RPC_TOKEN")),
		metrics:   metrics.Ledger(),
		logger:    slog.Default().With("component", "rpc"),
	}
}

// Start serves JSON-RPC on addr. It blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

// Handler returns the request handler for callers that manage their own
// http.Server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
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
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeLedgerError maps ledger error categories onto RPC codes and HTTP
// statuses.
func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, coreerrors.ErrValidation), errors.Is(err, coreerrors.ErrBounds):
		status, code = http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, coreerrors.ErrCompliance):
		status, code = http.StatusForbidden, codeCompliance
	case errors.Is(err, coreerrors.ErrBalance):
		status, code = http.StatusPaymentRequired, codeInsufficient
	case errors.Is(err, coreerrors.ErrState):
		status, code = http.StatusConflict, codeStateConflict
	}
	writeError(w, status, id, code, err.Error(), nil)
}

// handle routes a single JSON-RPC envelope to its method handler.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

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

	handler, mutating := s.route(req.Method)
	if handler == nil {
		s.metrics.RPCRequest(req.Method, "not_found")
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	if mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			s.metrics.RPCRequest(req.Method, "unauthorized")
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		if !s.allow(r) {
			s.metrics.RPCRequest(req.Method, "rate_limited")
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
	}
	s.metrics.RPCRequest(req.Method, "handled")
	handler(w, r, req)
}

type handlerFunc func(http.ResponseWriter, *http.Request, *RPCRequest)

// route resolves a method name to its handler and whether it mutates state.
func (s *Server) route(method string) (handlerFunc, bool) {
	switch method {
	case "halo_transfer":
		return s.handleTransfer, true
	case "halo_transferFrom":
		return s.handleTransferFrom, true
	case "halo_approve":
		return s.handleApprove, true
	case "halo_mint":
		return s.handleMint, true
	case "halo_burn":
		return s.handleBurn, true
	case "halo_burnFrom":
		return s.handleBurnFrom, true
	case "halo_prefundFees":
		return s.handlePrefundFees, true
	case "halo_withdrawPrefundedFees":
		return s.handleWithdrawPrefundedFees, true
	case "halo_reverseRecipientTransfer":
		return s.handleReverseRecipient, true
	case "halo_finalizeRecipientTransfer":
		return s.handleFinalizeRecipient, true
	case "halo_reverseSenderTransfer":
		return s.handleReverseSender, true
	case "halo_checkSenderHalfLifeExpiry":
		return s.handleCheckExpiry, true
	case "halo_setTreasury":
		return s.handleSetTreasury, true
	case "halo_setHalfLifeBounds":
		return s.handleSetHalfLifeBounds, true
	case "halo_setHalfLifeDuration":
		return s.handleSetHalfLifeDuration, true
	case "halo_setInactivityPeriod":
		return s.handleSetInactivityPeriod, true
	case "halo_flagAbnormalTransaction":
		return s.handleFlagAbnormal, true
	case "halo_grantRole":
		return s.handleGrantRole, true
	case "halo_revokeRole":
		return s.handleRevokeRole, true
	case "halo_setPaused":
		return s.handleSetPaused, true
	case "compliance_attest":
		return s.handleComplianceAttest, true
	case "compliance_registerCustodian":
		return s.handleRegisterCustodian, true
	case "halo_getBalance":
		return s.handleGetBalance, false
	case "halo_getTotalSupply":
		return s.handleGetTotalSupply, false
	case "halo_getRiskScore":
		return s.handleGetRiskScore, false
	case "halo_getPendingReceipt":
		return s.handleGetPendingReceipt, false
	case "halo_getSettlementWindow":
		return s.handleGetSettlementWindow, false
	case "halo_estimateTransferFee":
		return s.handleEstimateTransferFee, false
	case "compliance_getNetLiability":
		return s.handleGetNetLiability, false
	}
	return nil, false
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	return nil
}

// allow enforces the per-source mutation budget.
func (s *Server) allow(r *http.Request) bool {
	source := clientIP(r)
	s.mu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(mutationRatePerSec), mutationBurst)
		s.limiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- param helpers ---

func parseParams(req *RPCRequest, dst interface{}) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("params required")
	}
	if err := json.Unmarshal(req.Params[0], dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func parseAddress(s string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q", s)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("invalid address length %d", len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
