package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brndhq/brndindexer/internal/domain"
)

const (
	neynarBaseURL = "https://api.neynar.com"

	// Accounts whose casts get announcement posts. The bot signs every post,
	// the text names whichever of the two authored the cast.
	brandFid = 1108951
)

// FarcasterNotifier implements domain.SocialNotifier by publishing casts
// through the Neynar API with the bot's signer.
type FarcasterNotifier struct {
	apiKey     string
	signerUUID string
	baseURL    string
	client     *http.Client
}

// NewFarcasterNotifier creates a FarcasterNotifier.
func NewFarcasterNotifier(apiKey, signerUUID string) *FarcasterNotifier {
	return &FarcasterNotifier{
		apiKey:     apiKey,
		signerUUID: signerUUID,
		baseURL:    neynarBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// AnnounceBid posts that someone bid on a bot-authored cast.
func (n *FarcasterNotifier) AnnounceBid(ctx context.Context, a *domain.Auction, bidderFid uint64) error {
	username, err := n.lookupUsername(ctx, bidderFid)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("@%s just bid on this cast from %s", username, authorHandle(a.CreatorFid))
	return n.publishCast(ctx, text, a.CastHash.Hex())
}

// AnnounceCollected posts that a settled auction's cast was collected.
func (n *FarcasterNotifier) AnnounceCollected(ctx context.Context, a *domain.Auction, winnerFid uint64) error {
	username, err := n.lookupUsername(ctx, winnerFid)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("@%s just collected this cast from %s", username, authorHandle(a.CreatorFid))
	return n.publishCast(ctx, text, a.CastHash.Hex())
}

func authorHandle(creatorFid uint64) string {
	if creatorFid == brandFid {
		return "@brnd"
	}
	return "@brndbot"
}

func (n *FarcasterNotifier) lookupUsername(ctx context.Context, fid uint64) (string, error) {
	url := n.baseURL + "/v2/farcaster/user/bulk/?fids=" + strconv.FormatUint(fid, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("neynar: create user request: %w", err)
	}
	req.Header.Set("x-api-key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("neynar: fetch user %d: %w", fid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("neynar: fetch user %d: unexpected status %d: %s", fid, resp.StatusCode, string(respBody))
	}

	var result struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("neynar: decode user %d: %w", fid, err)
	}
	if len(result.Users) == 0 || result.Users[0].Username == "" {
		return "", fmt.Errorf("neynar: user %d has no username", fid)
	}
	return result.Users[0].Username, nil
}

func (n *FarcasterNotifier) publishCast(ctx context.Context, text, castHash string) error {
	payload := map[string]any{
		"signer_uuid": n.signerUUID,
		"text":        text,
		"embeds": []map[string]string{
			{"url": "https://warpcast.com/~/conversations/" + castHash},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("neynar: marshal cast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v2/farcaster/cast", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("neynar: create cast request: %w", err)
	}
	req.Header.Set("x-api-key", n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("neynar: publish cast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("neynar: publish cast: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Compile-time interface check.
var _ domain.SocialNotifier = (*FarcasterNotifier)(nil)
