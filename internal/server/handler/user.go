package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/brndhq/brndindexer/internal/domain"
)

// UserHandler serves per-address queries: cumulative stats, auction history,
// collectibles and leaderboard points.
type UserHandler struct {
	stats        domain.UserStatsStore
	auctions     domain.AuctionStore
	collectibles domain.CollectibleStore
	board        domain.LeaderboardStore
	logger       *slog.Logger
}

// NewUserHandler creates a UserHandler backed by the given stores.
func NewUserHandler(stats domain.UserStatsStore, auctions domain.AuctionStore, collectibles domain.CollectibleStore, board domain.LeaderboardStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		stats:        stats,
		auctions:     auctions,
		collectibles: collectibles,
		board:        board,
		logger:       logger,
	}
}

type userStatsView struct {
	Address              string `json:"address"`
	Fid                  uint64 `json:"fid"`
	TotalAuctionsCreated int    `json:"totalAuctionsCreated"`
	TotalCreatorEarnings string `json:"totalCreatorEarnings"`
	SuccessfulAuctions   int    `json:"successfulAuctions"`
	TotalBidsPlaced      int    `json:"totalBidsPlaced"`
	TotalAmountBid       string `json:"totalAmountBid"`
	AuctionsWon          int    `json:"auctionsWon"`
	TotalAmountWon       string `json:"totalAmountWon"`
	AuctionsLost         int    `json:"auctionsLost"`
	FirstActivityAt      uint64 `json:"firstActivityAt"`
	LastActivityAt       uint64 `json:"lastActivityAt"`
}

type collectibleView struct {
	CastHash    string `json:"castHash"`
	Creator     string `json:"creator"`
	CreatorFid  uint64 `json:"creatorFid"`
	Winner      string `json:"winner"`
	WinnerFid   uint64 `json:"winnerFid"`
	FinalAmount string `json:"finalAmount"`
	IsFromBot   bool   `json:"isFromBot"`
	SettledAt   uint64 `json:"settledAt"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
}

// GetStats returns the cumulative counters for one address.
// GET /api/users/{address}/stats
func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	stats, err := h.stats.Get(r.Context(), addr)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no activity for address")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get user stats failed",
			slog.String("address", addrString(addr)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get user stats")
		return
	}

	writeJSON(w, http.StatusOK, userStatsView{
		Address:              addrString(stats.Address),
		Fid:                  stats.Fid,
		TotalAuctionsCreated: stats.TotalAuctionsCreated,
		TotalCreatorEarnings: bigString(stats.TotalCreatorEarnings),
		SuccessfulAuctions:   stats.SuccessfulAuctions,
		TotalBidsPlaced:      stats.TotalBidsPlaced,
		TotalAmountBid:       bigString(stats.TotalAmountBid),
		AuctionsWon:          stats.AuctionsWon,
		TotalAmountWon:       bigString(stats.TotalAmountWon),
		AuctionsLost:         stats.AuctionsLost,
		FirstActivityAt:      stats.FirstActivityAt,
		LastActivityAt:       stats.LastActivityAt,
	})
}

// ListCreated returns auctions created by one address.
// GET /api/users/{address}/auctions
func (h *UserHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	opts := parseListOpts(r)

	auctions, err := h.auctions.ListByCreator(r.Context(), addr, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list created auctions failed",
			slog.String("address", addrString(addr)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}

	views := make([]auctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, toAuctionView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auctions": views,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// ListParticipated returns auctions where the address has placed at least one
// bid.
// GET /api/users/{address}/participated
func (h *UserHandler) ListParticipated(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	opts := parseListOpts(r)

	auctions, err := h.auctions.ListParticipated(r.Context(), addr, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list participated auctions failed",
			slog.String("address", addrString(addr)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}

	views := make([]auctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, toAuctionView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auctions": views,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// ListCollectibles returns the collectibles won by one address.
// GET /api/users/{address}/collectibles?excludeBot=true
func (h *UserHandler) ListCollectibles(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	opts := parseListOpts(r)
	excludeBot := r.URL.Query().Get("excludeBot") == "true"

	items, err := h.collectibles.ListByWinner(r.Context(), addr, excludeBot, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list collectibles failed",
			slog.String("address", addrString(addr)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list collectibles")
		return
	}

	views := make([]collectibleView, 0, len(items))
	for _, c := range items {
		views = append(views, collectibleView{
			CastHash:    c.CastHash.Hex(),
			Creator:     addrString(c.Creator),
			CreatorFid:  c.CreatorFid,
			Winner:      addrString(c.Winner),
			WinnerFid:   c.WinnerFid,
			FinalAmount: bigString(c.FinalAmount),
			IsFromBot:   c.IsFromBot,
			SettledAt:   c.SettledAt,
			BlockNumber: c.BlockNum,
			TxHash:      c.TxHash.Hex(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collectibles": views,
		"limit":        opts.Limit,
		"offset":       opts.Offset,
	})
}

// GetScore returns the all-time voter points for one address.
// GET /api/users/{address}/score
func (h *UserHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r, "address")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	score, err := h.board.GetUserScore(r.Context(), addr)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no points for address")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get user score failed",
			slog.String("address", addrString(addr)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get user score")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addrString(score.Address),
		"points":  score.Points,
		"rank":    score.Rank,
	})
}
