package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vaultScope/internal/registry"
	"vaultScope/internal/service"
)

// Server exposes the read API over HTTP. It is the only layer that decides
// status codes; core components never format HTTP responses.
type Server struct {
	svc    *service.Service
	logger *zap.Logger
}

// New builds a Server. A nil logger falls back to a no-op logger.
func New(svc *service.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger}
}

// Router assembles the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v2", func(r chi.Router) {
		r.Get("/chains", s.handleChains)
		r.Get("/balances/{provider}/{chain}/{block}", s.handleProviderBalances)
		r.Get("/breakdown/{chain}/provider-token-balance/{provider}/{block}", s.handleUserTokenBalances)
		r.Get("/partner/{partner}/{chain}/{block}", s.handlePartner)
		r.Get("/config/{chain}", s.handleConfig)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chainsResponse())
}

func (s *Server) handleProviderBalances(w http.ResponseWriter, r *http.Request) {
	provider := registry.ProviderID(chi.URLParam(r, "provider"))
	chainID := chi.URLParam(r, "chain")
	block, err := parseBlock(chi.URLParam(r, "block"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	result, err := s.svc.ProviderBalances(r.Context(), provider, chainID, block)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, providerBalancesResponse(provider, result))
}

func (s *Server) handleUserTokenBalances(w http.ResponseWriter, r *http.Request) {
	provider := registry.ProviderID(chi.URLParam(r, "provider"))
	chainID := chi.URLParam(r, "chain")
	block, err := parseBlock(chi.URLParam(r, "block"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var holders []string
	if raw := r.URL.Query().Get("holders"); raw != "" {
		for _, h := range strings.Split(raw, ",") {
			holders = append(holders, strings.ToLower(strings.TrimSpace(h)))
		}
	}

	rows, err := s.svc.UserTokenBalances(r.Context(), provider, chainID, block, holders)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userBalancesResponse(chainID, block, rows))
}

func (s *Server) handlePartner(w http.ResponseWriter, r *http.Request) {
	policy, err := service.PolicyFor(chi.URLParam(r, "partner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	chainID := chi.URLParam(r, "chain")
	block, err := parseBlock(chi.URLParam(r, "block"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	switch policy.Flow {
	case service.FlowRankedUSD:
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "pageSize", 0)
		result, err := s.svc.RankedPositions(r.Context(), policy, chainID, block, page, pageSize)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rankedResponse(result))
	case service.FlowShareWeights:
		weights, err := s.svc.ShareWeights(r.Context(), policy, chainID, block)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, weightsResponse(weights))
	case service.FlowHolderList:
		holders, err := s.svc.HolderList(r.Context(), policy, chainID, block)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, holdersResponse(holders))
	case service.FlowVaultShares:
		shares, err := s.svc.VaultShareBreakdown(r.Context(), policy, chainID, block)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, vaultSharesResponse(shares))
	case service.FlowUnrolledBreakdown:
		positions, err := s.svc.UnrolledBreakdown(r.Context(), policy, chainID, block)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, positionsResponse(positions))
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown partner flow"))
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	chainID := chi.URLParam(r, "chain")
	configs, err := s.svc.VaultConfigs(r.Context(), chainID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"result": configs})
}

// parseBlock parses the block path segment. Blocks are always explicit
// historical numbers, never "latest".
func parseBlock(raw string) (uint64, error) {
	block, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errInvalidBlock
	}
	return block, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// requestID tags every request for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", w.Header().Get("X-Request-Id")),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
