package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/domain"
)

// AuctionHandler serves auction lifecycle queries.
type AuctionHandler struct {
	auctions   domain.AuctionStore
	bids       domain.BidStore
	extensions domain.ExtensionStore
	logger     *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler backed by the given stores.
func NewAuctionHandler(auctions domain.AuctionStore, bids domain.BidStore, extensions domain.ExtensionStore, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions:   auctions,
		bids:       bids,
		extensions: extensions,
		logger:     logger,
	}
}

// auctionView is the JSON form of one auction. Amounts travel as decimal
// strings.
type auctionView struct {
	CastHash           string  `json:"castHash"`
	Creator            string  `json:"creator"`
	CreatorFid         uint64  `json:"creatorFid"`
	State              string  `json:"state"`
	MinBid             string  `json:"minBid"`
	MinBidIncrementBps int     `json:"minBidIncrementBps"`
	ProtocolFeeBps     int     `json:"protocolFeeBps"`
	Duration           int     `json:"duration"`
	Extension          int     `json:"extension"`
	ExtensionThreshold int     `json:"extensionThreshold"`
	StartTime          uint64  `json:"startTime"`
	EndTime            uint64  `json:"endTime"`
	LastBidAt          uint64  `json:"lastBidAt"`
	HighestBidder      string  `json:"highestBidder"`
	HighestBidderFid   uint64  `json:"highestBidderFid"`
	HighestBid         string  `json:"highestBid"`
	TotalBids          int     `json:"totalBids"`
	SettledAt          *uint64 `json:"settledAt,omitempty"`
	TreasuryAmount     *string `json:"treasuryAmount,omitempty"`
	CreatorAmount      *string `json:"creatorAmount,omitempty"`
	StartBlockNumber   uint64  `json:"startBlockNumber"`
	StartTxHash        string  `json:"startTransactionHash"`
}

func toAuctionView(a *domain.Auction) auctionView {
	v := auctionView{
		CastHash:           a.CastHash.Hex(),
		Creator:            addrString(a.Creator),
		CreatorFid:         a.CreatorFid,
		State:              a.State.String(),
		MinBid:             bigString(a.Params.MinBid),
		MinBidIncrementBps: a.Params.MinBidIncrementBps,
		ProtocolFeeBps:     a.Params.ProtocolFeeBps,
		Duration:           a.Params.Duration,
		Extension:          a.Params.Extension,
		ExtensionThreshold: a.Params.ExtensionThreshold,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		LastBidAt:          a.LastBidAt,
		HighestBidder:      addrString(a.HighestBidder),
		HighestBidderFid:   a.HighestBidderFid,
		HighestBid:         bigString(a.HighestBid),
		TotalBids:          a.TotalBids,
		TreasuryAmount:     bigStringPtr(a.TreasuryAmount),
		CreatorAmount:      bigStringPtr(a.CreatorAmount),
		StartBlockNumber:   a.StartBlockNumber,
		StartTxHash:        a.StartTxHash.Hex(),
	}
	if a.SettledAt != 0 {
		settledAt := a.SettledAt
		v.SettledAt = &settledAt
	}
	return v
}

type bidView struct {
	ID          string  `json:"id"`
	CastHash    string  `json:"castHash"`
	Bidder      string  `json:"bidder"`
	BidderFid   uint64  `json:"bidderFid"`
	Amount      string  `json:"amount"`
	BidIndex    int     `json:"bidIndex"`
	Timestamp   uint64  `json:"timestamp"`
	BlockNumber uint64  `json:"blockNumber"`
	TxHash      string  `json:"transactionHash"`
	WasRefunded bool    `json:"wasRefunded"`
	RefundedAt  *uint64 `json:"refundedAt,omitempty"`
}

func toBidView(b *domain.Bid) bidView {
	v := bidView{
		ID:          b.ID,
		CastHash:    b.CastHash.Hex(),
		Bidder:      addrString(b.Bidder),
		BidderFid:   b.BidderFid,
		Amount:      bigString(b.Amount),
		BidIndex:    b.BidIndex,
		Timestamp:   b.Timestamp,
		BlockNumber: b.BlockNum,
		TxHash:      b.TxHash.Hex(),
		WasRefunded: b.WasRefunded,
	}
	if b.RefundedAt != 0 {
		refundedAt := b.RefundedAt
		v.RefundedAt = &refundedAt
	}
	return v
}

type extensionView struct {
	ID          string `json:"id"`
	CastHash    string `json:"castHash"`
	OldEndTime  uint64 `json:"oldEndTime"`
	NewEndTime  uint64 `json:"newEndTime"`
	Index       int    `json:"index"`
	TriggeredBy string `json:"triggeredBy"`
	Timestamp   uint64 `json:"timestamp"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
}

func toExtensionView(e *domain.AuctionExtension) extensionView {
	return extensionView{
		ID:          e.ID,
		CastHash:    e.CastHash.Hex(),
		OldEndTime:  e.OldEndTime,
		NewEndTime:  e.NewEndTime,
		Index:       e.Index,
		TriggeredBy: addrString(e.TriggeredBy),
		Timestamp:   e.Timestamp,
		BlockNumber: e.BlockNum,
		TxHash:      e.TxHash.Hex(),
	}
}

// parseState maps the optional ?state= query parameter to an AuctionState.
func parseState(raw string) (*domain.AuctionState, bool) {
	if raw == "" {
		return nil, true
	}
	for _, s := range []domain.AuctionState{
		domain.AuctionStateActive,
		domain.AuctionStateEnded,
		domain.AuctionStateSettled,
		domain.AuctionStateCancelled,
		domain.AuctionStateRecovered,
	} {
		if s.String() == raw {
			state := s
			return &state, true
		}
	}
	return nil, false
}

// ListRecent returns the most recently started auctions.
// GET /api/auctions?state=active&limit=50&offset=0
func (h *AuctionHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	state, ok := parseState(r.URL.Query().Get("state"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown auction state")
		return
	}

	auctions, err := h.auctions.ListRecent(r.Context(), state, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list auctions failed",
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

// GetAuction returns one auction by cast hash.
// GET /api/auctions/{castHash}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	castHash := common.HexToHash(pathParam(r, "castHash"))

	a, err := h.auctions.Get(r.Context(), castHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get auction failed",
			slog.String("cast_hash", castHash.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get auction")
		return
	}

	writeJSON(w, http.StatusOK, toAuctionView(a))
}

// ListBids returns the bid ledger for one auction in placement order.
// GET /api/auctions/{castHash}/bids
func (h *AuctionHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	castHash := common.HexToHash(pathParam(r, "castHash"))

	bids, err := h.bids.ListByAuction(r.Context(), castHash)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list bids failed",
			slog.String("cast_hash", castHash.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list bids")
		return
	}

	views := make([]bidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, toBidView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": views})
}

// ListExtensions returns the extension ledger for one auction.
// GET /api/auctions/{castHash}/extensions
func (h *AuctionHandler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	castHash := common.HexToHash(pathParam(r, "castHash"))

	exts, err := h.extensions.ListByAuction(r.Context(), castHash)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list extensions failed",
			slog.String("cast_hash", castHash.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list extensions")
		return
	}

	views := make([]extensionView, 0, len(exts))
	for _, e := range exts {
		views = append(views, toExtensionView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"extensions": views})
}
