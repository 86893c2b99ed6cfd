package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dexroute/internal/graph"
	"dexroute/internal/infra/log"
	"dexroute/internal/router"
)

// Server is the query surface over the routing core. Authentication and
// execution planning belong to the layer in front of it; this surface only
// answers route and quote questions.
type Server struct {
	mux    *http.ServeMux
	router *router.PathRouter
	logger log.Logger
}

func New(r *router.PathRouter, logger log.Logger) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		router: r,
		logger: logger.With().Str("component", "rest").Logger(),
	}
	s.mux.HandleFunc("GET /route", s.handleRoute)
	s.mux.HandleFunc("GET /quote", s.handleQuote)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type hopJSON struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Venue string  `json:"venue"`
	Rate  float64 `json:"rate"`
	Fee   float64 `json:"fee"`
}

type routeJSON struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Hops        []hopJSON `json:"hops"`
	Multiplier  float64   `json:"multiplier"`
}

type quoteJSON struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	AmountIn    float64 `json:"amount_in"`
	AmountOut   float64 `json:"amount_out"`
}

type errJSON struct {
	Error string `json:"error"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := s.pair(w, r)
	if !ok {
		return
	}
	maxHops := 0
	if v := r.URL.Query().Get("max_hops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errJSON{"max_hops must be a positive integer"})
			return
		}
		maxHops = n
	}
	route, err := s.router.FindRoute(src, dst, maxHops)
	if err != nil {
		s.writeRoutingError(w, err)
		return
	}
	out := routeJSON{Source: src, Destination: dst, Hops: []hopJSON{}, Multiplier: route.Multiplier()}
	for _, e := range route.Edges {
		out.Hops = append(out.Hops, hopJSON{From: e.From, To: e.To, Venue: e.Venue, Rate: e.Rate, Fee: e.Fee})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := s.pair(w, r)
	if !ok {
		return
	}
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount < 0 {
		writeJSON(w, http.StatusBadRequest, errJSON{"amount must be a non-negative number"})
		return
	}
	out, err := s.router.Quote(src, dst, amount)
	if err != nil {
		s.writeRoutingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteJSON{Source: src, Destination: dst, AmountIn: amount, AmountOut: out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Stats())
}

func (s *Server) pair(w http.ResponseWriter, r *http.Request) (src, dst graph.Asset, ok bool) {
	q := r.URL.Query()
	src, dst = q.Get("from"), q.Get("to")
	if src == "" || dst == "" || len(src) > graph.MaxAssetLen || len(dst) > graph.MaxAssetLen {
		writeJSON(w, http.StatusBadRequest, errJSON{"from and to are required assets"})
		return "", "", false
	}
	return src, dst, true
}

func (s *Server) writeRoutingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, router.ErrRouteNotFound):
		writeJSON(w, http.StatusNotFound, errJSON{err.Error()})
	case errors.Is(err, router.ErrArbitrageLoop):
		// surfaced, not resolved: whether to exploit or discard the loop is
		// a policy decision for the caller
		writeJSON(w, http.StatusConflict, errJSON{err.Error()})
	case errors.Is(err, router.ErrSelfQuote):
		writeJSON(w, http.StatusBadRequest, errJSON{err.Error()})
	default:
		s.logger.Error().Err(err).Msg("unexpected routing error")
		writeJSON(w, http.StatusInternalServerError, errJSON{"internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
