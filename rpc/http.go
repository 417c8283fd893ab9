package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loyaltyledger/native/loyalty"
	"loyaltyledger/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 60
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Server exposes the ledger engine over JSON-RPC 2.0. Mutating methods
// require a bearer token; reads are open.
type Server struct {
	engine *loyalty.Engine
	logger *slog.Logger

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
	now          func() time.Time
}

// NewServer creates an RPC server for the provided engine. An empty token
// disables all mutating methods.
func NewServer(engine *loyalty.Engine, authToken string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:       engine,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    strings.TrimSpace(authToken),
		now:          time.Now,
	}
}

// Handler returns the HTTP handler serving RPC, health and metrics routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

// Start serves the handler on the provided address and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

type handlerFunc func(params []json.RawMessage) (interface{}, *RPCError)

func (s *Server) methods() map[string]struct {
	fn       handlerFunc
	mutating bool
} {
	return map[string]struct {
		fn       handlerFunc
		mutating bool
	}{
		"loyalty_initialize":            {s.handleInitialize, true},
		"loyalty_earnPoints":            {s.handleEarnPoints, true},
		"loyalty_redeemPoints":          {s.handleRedeemPoints, true},
		"loyalty_transfer":              {s.handleTransfer, true},
		"loyalty_mint":                  {s.handleMint, true},
		"loyalty_burn":                  {s.handleBurn, true},
		"loyalty_updateRewardRates":     {s.handleUpdateRewardRates, true},
		"loyalty_getBalance":            {s.handleGetBalance, false},
		"loyalty_getUserStats":          {s.handleGetUserStats, false},
		"loyalty_getTransactionHistory": {s.handleGetTransactionHistory, false},
		"loyalty_getTokenInfo":          {s.handleGetTokenInfo, false},
		"loyalty_getRewardRates":        {s.handleGetRewardRates, false},
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := s.now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, nil, &RPCError{Code: codeInvalidRequest, Message: "unable to read request body"})
		return
	}
	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload"})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported JSON-RPC version"})
		return
	}

	method, ok := s.methods()[req.Method]
	if !ok {
		observability.RPCMetrics().RecordError(req.Method, "method_not_found")
		writeError(w, req.ID, &RPCError{Code: codeMethodNotFound, Message: "method not found"})
		return
	}

	if method.mutating {
		if rpcErr := s.authorize(r); rpcErr != nil {
			observability.RPCMetrics().RecordError(req.Method, "unauthorized")
			writeError(w, req.ID, rpcErr)
			return
		}
		if rpcErr := s.throttle(clientIP(r)); rpcErr != nil {
			observability.RPCMetrics().RecordError(req.Method, "rate_limited")
			writeError(w, req.ID, rpcErr)
			return
		}
	}

	result, rpcErr := method.fn(req.Params)
	duration := s.now().Sub(started)
	if rpcErr != nil {
		outcome := "error"
		if kind, ok := rpcErr.Data.(string); ok {
			observability.RPCMetrics().RecordError(req.Method, kind)
		}
		observability.RPCMetrics().ObserveRequest(req.Method, outcome, duration)
		s.logger.Warn("rpc request failed",
			"method", req.Method,
			"code", rpcErr.Code,
			"message", rpcErr.Message,
		)
		writeError(w, req.ID, rpcErr)
		return
	}
	observability.RPCMetrics().ObserveRequest(req.Method, "ok", duration)
	writeResult(w, req.ID, result)
}

// authorize validates the bearer token on mutating methods using a
// constant-time comparison.
func (s *Server) authorize(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "server has no RPC token configured; mutating methods disabled"}
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

func (s *Server) throttle(source string) *RPCError {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	limiter, ok := s.rateLimiters[source]
	if !ok || now.Sub(limiter.windowStart) > rateLimitWindow {
		s.rateLimiters[source] = &rateLimiter{count: 1, windowStart: now}
		return nil
	}
	limiter.count++
	if limiter.count > maxTxPerWindow {
		return &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"}
	}
	return nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeResult(w http.ResponseWriter, id, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(&JSONRPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}
