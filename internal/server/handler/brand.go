package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brndhq/brndindexer/internal/domain"
)

// BrandHandler serves brand registry and vote ledger lookups.
type BrandHandler struct {
	brands domain.BrandStore
	votes  domain.VoteStore
	users  domain.UserStore
	logger *slog.Logger
}

// NewBrandHandler creates a BrandHandler backed by the given stores.
func NewBrandHandler(brands domain.BrandStore, votes domain.VoteStore, users domain.UserStore, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{
		brands: brands,
		votes:  votes,
		users:  users,
		logger: logger,
	}
}

type brandView struct {
	ID           int64  `json:"id"`
	Fid          uint64 `json:"fid"`
	Wallet       string `json:"walletAddress"`
	Handle       string `json:"handle"`
	MetadataHash string `json:"metadataHash"`
	TotalAwarded string `json:"totalAwarded"`
	Available    string `json:"available"`
	CreatedAt    uint64 `json:"createdAt"`
	BlockNumber  uint64 `json:"blockNumber"`
	TxHash       string `json:"transactionHash"`
}

// GetBrand returns one brand by id.
// GET /api/brands/{id}
func (h *BrandHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid brand id")
		return
	}

	b, err := h.brands.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "brand not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get brand failed",
			slog.Int64("brand_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get brand")
		return
	}

	writeJSON(w, http.StatusOK, brandView{
		ID:           b.ID,
		Fid:          b.Fid,
		Wallet:       addrString(b.WalletAddress),
		Handle:       b.Handle,
		MetadataHash: b.MetadataHash,
		TotalAwarded: bigString(b.TotalAwarded),
		Available:    bigString(b.Available),
		CreatedAt:    b.CreatedAt,
		BlockNumber:  b.BlockNum,
		TxHash:       b.TxHash.Hex(),
	})
}

// GetVote returns one podium vote by its transaction hash id.
// GET /api/votes/{id}
func (h *BrandHandler) GetVote(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing vote id")
		return
	}

	v, err := h.votes.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "vote not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get vote failed",
			slog.String("vote_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get vote")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":              v.ID,
		"voter":           addrString(v.Voter),
		"fid":             v.Fid,
		"day":             v.Day,
		"brandIds":        v.BrandIDs,
		"cost":            bigString(v.Cost),
		"blockNumber":     v.BlockNum,
		"transactionHash": v.TxHash.Hex(),
		"timestamp":       v.Timestamp,
	})
}

// GetVoter returns one voter's profile by fid.
// GET /api/voters/{fid}
func (h *BrandHandler) GetVoter(w http.ResponseWriter, r *http.Request) {
	fid, err := strconv.ParseUint(pathParam(r, "fid"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fid")
		return
	}

	u, err := h.users.Get(r.Context(), fid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "voter not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get voter failed",
			slog.Uint64("fid", fid),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get voter")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fid":         u.Fid,
		"powerLevel":  u.PowerLevel,
		"totalVotes":  u.TotalVotes,
		"lastVoteDay": u.LastVoteDay,
	})
}
