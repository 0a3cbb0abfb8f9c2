// Package server exposes the query API over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brndhq/brndindexer/internal/server/handler"
	"github.com/brndhq/brndindexer/internal/server/middleware"
	"github.com/brndhq/brndindexer/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Auctions    *handler.AuctionHandler
	Users       *handler.UserHandler
	Stats       *handler.StatsHandler
	Leaderboard *handler.LeaderboardHandler
	Brands      *handler.BrandHandler
}

// Server is the headless HTTP + WebSocket API for the indexer.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auction endpoints.
	mux.HandleFunc("GET /api/auctions", handlers.Auctions.ListRecent)
	mux.HandleFunc("GET /api/auctions/{castHash}", handlers.Auctions.GetAuction)
	mux.HandleFunc("GET /api/auctions/{castHash}/bids", handlers.Auctions.ListBids)
	mux.HandleFunc("GET /api/auctions/{castHash}/extensions", handlers.Auctions.ListExtensions)

	// Per-address endpoints.
	mux.HandleFunc("GET /api/users/{address}/stats", handlers.Users.GetStats)
	mux.HandleFunc("GET /api/users/{address}/auctions", handlers.Users.ListCreated)
	mux.HandleFunc("GET /api/users/{address}/participated", handlers.Users.ListParticipated)
	mux.HandleFunc("GET /api/users/{address}/collectibles", handlers.Users.ListCollectibles)
	mux.HandleFunc("GET /api/users/{address}/score", handlers.Users.GetScore)

	// Protocol statistics.
	mux.HandleFunc("GET /api/stats/daily", handlers.Stats.ListDaily)
	mux.HandleFunc("GET /api/stats/daily/{date}", handlers.Stats.GetDaily)
	mux.HandleFunc("GET /api/collectors", handlers.Stats.ListCollectors)

	// Leaderboard.
	mux.HandleFunc("GET /api/leaderboard/{granularity}", handlers.Leaderboard.TopBrands)

	// Brand registry and vote ledger.
	mux.HandleFunc("GET /api/brands/{id}", handlers.Brands.GetBrand)
	mux.HandleFunc("GET /api/votes/{id}", handlers.Brands.GetVote)
	mux.HandleFunc("GET /api/voters/{fid}", handlers.Brands.GetVoter)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
