package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/period"
)

// LeaderboardHandler serves the brand point rollups. Reads go through the
// cache when one is configured; a miss falls back to the store and
// repopulates the cache best-effort.
type LeaderboardHandler struct {
	board  domain.LeaderboardStore
	cache  domain.LeaderboardCache // optional
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler. cache may be nil.
func NewLeaderboardHandler(board domain.LeaderboardStore, cache domain.LeaderboardCache, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		board:  board,
		cache:  cache,
		logger: logger,
	}
}

type brandScoreView struct {
	BrandID     int64  `json:"brandId"`
	Points      string `json:"points"`
	GoldCount   int    `json:"goldCount"`
	SilverCount int    `json:"silverCount"`
	BronzeCount int    `json:"bronzeCount"`
	Rank        *int   `json:"rank,omitempty"`
}

func parseGranularity(raw string) (domain.Granularity, bool) {
	switch domain.Granularity(raw) {
	case domain.GranularityDay, domain.GranularityWeek, domain.GranularityMonth, domain.GranularityAllTime:
		return domain.Granularity(raw), true
	}
	return "", false
}

// TopBrands returns the top brands for one bucket. Without ?bucket= the
// current period is used.
// GET /api/leaderboard/{granularity}?bucket=1757289600&limit=10
func (h *LeaderboardHandler) TopBrands(w http.ResponseWriter, r *http.Request) {
	g, ok := parseGranularity(pathParam(r, "granularity"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown granularity")
		return
	}

	bucket := period.Bucket(g, uint64(time.Now().Unix()))
	if v := r.URL.Query().Get("bucket"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid bucket")
			return
		}
		bucket = n
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	scores, err := h.topBrands(r, g, bucket, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: top brands failed",
			slog.String("granularity", string(g)),
			slog.Uint64("bucket", bucket),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read leaderboard")
		return
	}

	views := make([]brandScoreView, 0, len(scores))
	for _, sc := range scores {
		views = append(views, brandScoreView{
			BrandID:     sc.BrandID,
			Points:      bigString(sc.Points),
			GoldCount:   sc.GoldCount,
			SilverCount: sc.SilverCount,
			BronzeCount: sc.BronzeCount,
			Rank:        sc.Rank,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"granularity": string(g),
		"bucket":      bucket,
		"brands":      views,
	})
}

func (h *LeaderboardHandler) topBrands(r *http.Request, g domain.Granularity, bucket uint64, limit int) ([]domain.BrandScore, error) {
	ctx := r.Context()

	if h.cache != nil {
		cached, err := h.cache.GetTopBrands(ctx, g, bucket)
		if err == nil && len(cached) >= limit {
			return cached[:limit], nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(ctx, "handler: leaderboard cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	scores, err := h.board.TopBrands(ctx, g, bucket, limit)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetTopBrands(ctx, g, bucket, scores); err != nil {
			h.logger.WarnContext(ctx, "handler: leaderboard cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return scores, nil
}
