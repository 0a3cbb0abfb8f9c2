package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brndhq/brndindexer/internal/domain"
)

// StatsHandler serves protocol-wide daily statistics and the bot-collector
// ranking.
type StatsHandler struct {
	daily        domain.DailyStatsStore
	collectibles domain.CollectibleStore
	logger       *slog.Logger
}

// NewStatsHandler creates a StatsHandler backed by the given stores.
func NewStatsHandler(daily domain.DailyStatsStore, collectibles domain.CollectibleStore, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		daily:        daily,
		collectibles: collectibles,
		logger:       logger,
	}
}

type dailyStatsView struct {
	Date                   string  `json:"date"`
	Timestamp              uint64  `json:"timestamp"`
	AuctionsStarted        int     `json:"auctionsStarted"`
	AuctionsSettled        int     `json:"auctionsSettled"`
	AuctionsCancelled      int     `json:"auctionsCancelled"`
	TotalBids              int     `json:"totalBids"`
	TotalVolume            string  `json:"totalVolume"`
	UniqueBidders          int     `json:"uniqueBidders"`
	UniqueCreators         int     `json:"uniqueCreators"`
	ProtocolFees           string  `json:"protocolFees"`
	AverageAuctionDuration *uint64 `json:"averageAuctionDuration"`
	MedianBidAmount        *string `json:"medianBidAmount"`
	HighestBid             *string `json:"highestBid"`
}

func toDailyView(ds *domain.DailyStats) dailyStatsView {
	return dailyStatsView{
		Date:                   ds.Date,
		Timestamp:              ds.Timestamp,
		AuctionsStarted:        ds.AuctionsStarted,
		AuctionsSettled:        ds.AuctionsSettled,
		AuctionsCancelled:      ds.AuctionsCancelled,
		TotalBids:              ds.TotalBids,
		TotalVolume:            bigString(ds.TotalVolume),
		UniqueBidders:          ds.UniqueBidders,
		UniqueCreators:         ds.UniqueCreators,
		ProtocolFees:           bigString(ds.ProtocolFees),
		AverageAuctionDuration: ds.AverageAuctionDuration,
		MedianBidAmount:        bigStringPtr(ds.MedianBidAmount),
		HighestBid:             bigStringPtr(ds.HighestBid),
	}
}

// ListDaily returns the most recent daily aggregates, newest first.
// GET /api/stats/daily?days=30
func (h *StatsHandler) ListDaily(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	stats, err := h.daily.ListRecent(r.Context(), days)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list daily stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list daily stats")
		return
	}

	views := make([]dailyStatsView, 0, len(stats))
	for _, ds := range stats {
		views = append(views, toDailyView(ds))
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": views})
}

// GetDaily returns the aggregates for one UTC date.
// GET /api/stats/daily/{date}
func (h *StatsHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	date := pathParam(r, "date")

	ds, err := h.daily.Get(r.Context(), date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no stats for date")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get daily stats failed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get daily stats")
		return
	}

	writeJSON(w, http.StatusOK, toDailyView(ds))
}

// ListCollectors returns the per-winner aggregate of bot cast collections,
// ordered by casts collected.
// GET /api/collectors
func (h *StatsHandler) ListCollectors(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	collectors, err := h.collectibles.ListCollectors(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list collectors failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list collectors")
		return
	}

	views := make([]map[string]any, 0, len(collectors))
	for _, c := range collectors {
		views = append(views, map[string]any{
			"winner":           addrString(c.Winner),
			"winnerFid":        c.WinnerFid,
			"totalCollected":   c.TotalCollected,
			"totalAmountSpent": bigString(c.TotalAmountSpent),
			"firstCollectedAt": c.FirstCollectedAt,
			"lastCollectedAt":  c.LastCollectedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collectors": views,
		"limit":      opts.Limit,
		"offset":     opts.Offset,
	})
}
