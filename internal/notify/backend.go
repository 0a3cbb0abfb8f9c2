// Package notify delivers indexed records to external services: the
// coordination backend and the Farcaster social feed. Every sender here is
// best-effort; callers log failures and move on, indexing never blocks on an
// outbound HTTP call.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/brndhq/brndindexer/internal/domain"
)

const defaultIndexerSource = "brndindexer-v1"

// BackendClient implements domain.BackendSink and domain.SummarySink against
// the coordination backend's blockchain-service endpoints.
type BackendClient struct {
	baseURL string
	apiKey  string
	source  string
	client  *http.Client
}

// NewBackendClient creates a BackendClient. source identifies this indexer in
// the X-Indexer-Source header; pass "" for the default.
func NewBackendClient(baseURL, apiKey, source string) *BackendClient {
	if source == "" {
		source = defaultIndexerSource
	}
	return &BackendClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		source:  source,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func addrStr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func bigStr(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}

func (b *BackendClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("X-Indexer-Source", b.source)
	// A fresh delivery id per request lets the backend deduplicate retried
	// submissions from restarted indexers.
	req.Header.Set("X-Delivery-Id", uuid.NewString())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("backend: post %s: unexpected status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}

// SubmitVote forwards one podium vote.
func (b *BackendClient) SubmitVote(ctx context.Context, v *domain.Vote) error {
	payload := map[string]any{
		"id":              v.ID,
		"voter":           addrStr(v.Voter),
		"fid":             v.Fid,
		"day":             strconv.FormatUint(v.Day, 10),
		"brandIds":        v.BrandIDs,
		"cost":            bigStr(v.Cost),
		"blockNumber":     strconv.FormatUint(v.BlockNum, 10),
		"transactionHash": v.TxHash.Hex(),
		"timestamp":       strconv.FormatUint(v.Timestamp, 10),
	}
	return b.post(ctx, "/blockchain-service/submit-vote", payload)
}

// SubmitBrand forwards one newly created brand.
func (b *BackendClient) SubmitBrand(ctx context.Context, br *domain.Brand) error {
	payload := map[string]any{
		"id":              br.ID,
		"fid":             br.Fid,
		"walletAddress":   addrStr(br.WalletAddress),
		"handle":          br.Handle,
		"createdAt":       strconv.FormatUint(br.CreatedAt, 10),
		"blockNumber":     strconv.FormatUint(br.BlockNum, 10),
		"transactionHash": br.TxHash.Hex(),
	}
	return b.post(ctx, "/blockchain-service/brands", payload)
}

// SubmitRewardClaim forwards one reward claim.
func (b *BackendClient) SubmitRewardClaim(ctx context.Context, c *domain.RewardClaim) error {
	payload := map[string]any{
		"id":              c.ID,
		"recipient":       addrStr(c.Recipient),
		"fid":             c.Fid,
		"amount":          bigStr(c.Amount),
		"day":             strconv.FormatUint(c.Day, 10),
		"castHash":        c.CastRef,
		"caller":          addrStr(c.Caller),
		"blockNumber":     strconv.FormatUint(c.BlockNum, 10),
		"transactionHash": c.TxHash.Hex(),
		"timestamp":       strconv.FormatUint(c.Timestamp, 10),
	}
	return b.post(ctx, "/blockchain-service/submit-reward-claim", payload)
}

// SubmitUserLevel forwards one power level change.
func (b *BackendClient) SubmitUserLevel(ctx context.Context, p *domain.PowerLevelUp) error {
	payload := map[string]any{
		"fid":             p.Fid,
		"powerLevel":      p.NewLevel,
		"wallet":          addrStr(p.Wallet),
		"levelUpId":       p.ID,
		"blockNumber":     strconv.FormatUint(p.BlockNum, 10),
		"transactionHash": p.TxHash.Hex(),
		"timestamp":       strconv.FormatUint(p.Timestamp, 10),
	}
	return b.post(ctx, "/blockchain-service/update-user-level", payload)
}

// EmitPeriodSummary forwards the closing top brands of one finished bucket.
func (b *BackendClient) EmitPeriodSummary(ctx context.Context, s *domain.PeriodSummary) error {
	top := make([]map[string]any, 0, len(s.Top))
	for _, sc := range s.Top {
		top = append(top, map[string]any{
			"brandId":     sc.BrandID,
			"points":      bigStr(sc.Points),
			"goldCount":   sc.GoldCount,
			"silverCount": sc.SilverCount,
			"bronzeCount": sc.BronzeCount,
		})
	}
	payload := map[string]any{
		"granularity": string(s.Granularity),
		"bucket":      strconv.FormatUint(s.Bucket, 10),
		"top":         top,
	}
	return b.post(ctx, "/blockchain-service/period-summary", payload)
}

// Compile-time interface checks.
var (
	_ domain.BackendSink = (*BackendClient)(nil)
	_ domain.SummarySink = (*BackendClient)(nil)
)
