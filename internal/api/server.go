package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentloop/internal/config"
	"rentloop/internal/domain"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the marketplace over HTTP. Caller identity is an
// id carried in the identity header; the core stays transport-agnostic
// behind the service interfaces.
type HTTPServer struct {
	cfg      *config.APIConfig
	bookings domain.BookingService
	items    domain.ItemService
	users    domain.UserService
	requests domain.RequestService
	exports  domain.ExportQueue
	limiter  *callerLimiter
	logger   *zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(
	cfg *config.APIConfig,
	bookings domain.BookingService,
	items domain.ItemService,
	users domain.UserService,
	requests domain.RequestService,
	exports domain.ExportQueue,
	rateRepo domain.RateLimitRepository,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		items:    items,
		users:    users,
		requests: requests,
		exports:  exports,
		limiter:  newCallerLimiter(cfg, rateRepo),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bookings/owner", srv.handleBookingsOwner)
	mux.HandleFunc("/bookings/export", srv.handleBookingsExport)
	mux.HandleFunc("/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/bookings", srv.handleBookings)
	mux.HandleFunc("/items/search", srv.handleItemsSearch)
	mux.HandleFunc("/items/", srv.handleItemSubtree)
	mux.HandleFunc("/items", srv.handleItems)
	mux.HandleFunc("/users/", srv.handleUserByID)
	mux.HandleFunc("/users", srv.handleUsers)
	mux.HandleFunc("/requests/all", srv.handleRequestsAll)
	mux.HandleFunc("/requests/", srv.handleRequestByID)
	mux.HandleFunc("/requests", srv.handleRequests)

	auth := NewHTTPAuth(cfg.Auth)
	handler := loggingMiddleware(logger, srv.rateLimitMiddleware(auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// rateLimitMiddleware enforces per-caller limits when the request
// carries an identity; identity-free endpoints are not limited here.
func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(s.cfg.IdentityHeader); raw != "" {
			if callerID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				if !s.limiter.allow(r, callerID) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// callerID extracts the mandatory identity header.
func (s *HTTPServer) callerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(s.cfg.IdentityHeader))
	if raw == "" {
		return 0, fmt.Errorf("%s header is required", s.cfg.IdentityHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s header must be an integer", s.cfg.IdentityHeader)
	}
	return id, nil
}

// pageParams reads from/size with listing defaults. Range validation
// belongs to the service layer.
func (s *HTTPServer) pageParams(r *http.Request) (int, int, error) {
	from := 0
	size := s.cfg.DefaultSize

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("from must be an integer")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("size must be an integer")
		}
		size = parsed
	}
	return from, size, nil
}

// pathID parses the numeric id following the given prefix, rejecting
// deeper paths unless the remainder matches allowSuffix.
func pathID(path, prefix string) (int64, string, error) {
	rest := strings.TrimPrefix(path, prefix)
	idPart := rest
	suffix := ""
	if i := strings.Index(rest, "/"); i >= 0 {
		idPart = rest[:i]
		suffix = rest[i+1:]
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid id in path")
	}
	return id, suffix, nil
}
