package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/event"
	"github.com/brndhq/brndindexer/internal/period"
)

// Deps collects the aggregator's collaborators. Backend, Summaries and Cache
// are optional; a nil sink simply disables that output.
type Deps struct {
	Brands      domain.BrandStore
	Votes       domain.VoteStore
	Users       domain.UserStore
	Activity    domain.ActivityStore
	Board       domain.LeaderboardStore
	Checkpoints domain.CheckpointStore
	Backend     domain.BackendSink
	Summaries   []domain.SummarySink
	Cache       domain.LeaderboardCache
}

// Aggregator applies brand and vote events.
type Aggregator struct {
	d   Deps
	log *slog.Logger
}

func New(d Deps, log *slog.Logger) *Aggregator {
	return &Aggregator{d: d, log: log.With("component", "leaderboard")}
}

// Apply dispatches one brand-side event. Period boundaries are checked first
// so a closing summary never includes the triggering event's own points.
func (a *Aggregator) Apply(ctx context.Context, ev event.Event) error {
	if err := a.rollPeriods(ctx, ev.Ref().Timestamp); err != nil {
		return err
	}
	switch e := ev.(type) {
	case *event.PodiumCreated:
		return a.applyPodium(ctx, e)
	case *event.BrandCreated:
		return a.applyBrandCreated(ctx, e)
	case *event.BrandsCreated:
		return a.applyBrandsCreated(ctx, e)
	case *event.BrandUpdated:
		return a.applyBrandUpdated(ctx, e)
	case *event.WalletAuthorized:
		return a.applyWalletAuthorized(ctx, e)
	case *event.RewardClaimed:
		return a.applyRewardClaimed(ctx, e)
	case *event.BrandRewardWithdrawn:
		return a.applyWithdrawal(ctx, e)
	case *event.PowerLevelUp:
		return a.applyPowerLevelUp(ctx, e)
	default:
		return fmt.Errorf("leaderboard: unhandled event %s", ev.Kind())
	}
}

// rollPeriods compares each granularity's bucket for ts against the last-seen
// bucket and, on a transition, emits the closed bucket's summary before
// advancing the checkpoint. Emission-before-advance means a crash between the
// two is retried on the next event; the persisted marker keeps the retry from
// emitting twice.
func (a *Aggregator) rollPeriods(ctx context.Context, ts uint64) error {
	for _, g := range domain.BucketedGranularities {
		cur := period.Bucket(g, ts)
		last, ok, err := a.d.Checkpoints.LastSeenBucket(ctx, g)
		if err != nil {
			return fmt.Errorf("leaderboard: last seen bucket %s: %w", g, err)
		}
		if ok && last == cur {
			continue
		}
		if ok {
			if err := a.emitSummary(ctx, g, last); err != nil {
				return err
			}
		}
		if err := a.d.Checkpoints.SetLastSeenBucket(ctx, g, cur); err != nil {
			return fmt.Errorf("leaderboard: set last seen bucket %s: %w", g, err)
		}
	}
	return nil
}

// emitSummary sends the top-3 summary for a closed bucket at most once ever.
func (a *Aggregator) emitSummary(ctx context.Context, g domain.Granularity, bucket uint64) error {
	emitted, err := a.d.Checkpoints.WasEmitted(ctx, g, bucket)
	if err != nil {
		return fmt.Errorf("leaderboard: check emitted %s/%d: %w", g, bucket, err)
	}
	if emitted {
		return nil
	}

	top, err := a.d.Board.TopBrands(ctx, g, bucket, 3)
	if err != nil {
		return fmt.Errorf("leaderboard: top brands %s/%d: %w", g, bucket, err)
	}
	if len(top) < 3 {
		a.log.Info("closed bucket has too few brands, no summary",
			"granularity", string(g), "bucket", bucket, "brands", len(top))
		return nil
	}

	s := &domain.PeriodSummary{Granularity: g, Bucket: bucket, Top: top}
	for _, sink := range a.d.Summaries {
		if err := sink.EmitPeriodSummary(ctx, s); err != nil {
			a.log.Warn("period summary sink failed",
				"granularity", string(g), "bucket", bucket, "error", err)
		}
	}
	a.log.Info("period summary emitted", "granularity", string(g), "bucket", bucket)

	if err := a.d.Checkpoints.MarkEmitted(ctx, g, bucket); err != nil {
		return fmt.Errorf("leaderboard: mark emitted %s/%d: %w", g, bucket, err)
	}
	return nil
}

// addBrandTier merges one tier occurrence into all four rollups for a brand.
func (a *Aggregator) addBrandTier(ctx context.Context, brandID int64, ts uint64, points *big.Int, tier domain.Tier) error {
	for _, g := range domain.BucketedGranularities {
		bucket := period.Bucket(g, ts)
		if err := a.d.Board.AddBrandPoints(ctx, brandID, g, bucket, points, tier); err != nil {
			return fmt.Errorf("leaderboard: add %s points brand %d: %w", g, brandID, err)
		}
		a.invalidateCache(ctx, g, bucket)
	}
	err := a.d.Board.AddBrandPoints(ctx, brandID, domain.GranularityAllTime, 0, points, tier)
	if err != nil {
		return fmt.Errorf("leaderboard: add alltime points brand %d: %w", brandID, err)
	}
	a.invalidateCache(ctx, domain.GranularityAllTime, 0)
	return nil
}

func (a *Aggregator) invalidateCache(ctx context.Context, g domain.Granularity, bucket uint64) {
	if a.d.Cache == nil {
		return
	}
	if err := a.d.Cache.Invalidate(ctx, g, bucket); err != nil {
		a.log.Warn("cache invalidation failed", "granularity", string(g), "bucket", bucket, "error", err)
	}
}

func (a *Aggregator) applyPodium(ctx context.Context, ev *event.PodiumCreated) error {
	v := &domain.Vote{
		ID:        ev.TxHash.Hex(),
		Voter:     ev.Voter,
		Fid:       ev.Fid,
		Day:       ev.Day,
		BrandIDs:  ev.BrandIDs,
		Cost:      ev.Cost,
		BlockNum:  ev.BlockNumber,
		TxHash:    ev.TxHash,
		Timestamp: ev.Timestamp,
	}
	if err := a.d.Votes.Insert(ctx, v); err != nil {
		return fmt.Errorf("leaderboard: insert vote: %w", err)
	}

	gold, silver, bronze := SplitStake(ev.Cost)
	tiers := []struct {
		tier   domain.Tier
		points *big.Int
	}{
		{domain.TierGold, gold},
		{domain.TierSilver, silver},
		{domain.TierBronze, bronze},
	}
	for i, t := range tiers {
		if err := a.addBrandTier(ctx, ev.BrandIDs[i], ev.Timestamp, t.points, t.tier); err != nil {
			return err
		}
	}

	if err := a.d.Board.AddUserPoints(ctx, ev.Voter, voterPoints); err != nil {
		return fmt.Errorf("leaderboard: add voter points: %w", err)
	}
	if err := a.d.Users.RecordVote(ctx, ev.Fid, ev.Day, ev.BlockNumber, ev.TxHash); err != nil {
		return fmt.Errorf("leaderboard: record vote: %w", err)
	}

	if a.d.Backend != nil {
		if err := a.d.Backend.SubmitVote(ctx, v); err != nil {
			a.log.Warn("vote submission failed", "vote", v.ID, "error", err)
		}
	}
	return nil
}

func (a *Aggregator) applyBrandCreated(ctx context.Context, ev *event.BrandCreated) error {
	b := &domain.Brand{
		ID:            ev.BrandID,
		Fid:           ev.Fid,
		WalletAddress: ev.WalletAddress,
		Handle:        ev.Handle,
		TotalAwarded:  big.NewInt(0),
		Available:     big.NewInt(0),
		CreatedAt:     ev.CreatedAt,
		BlockNum:      ev.BlockNumber,
		TxHash:        ev.TxHash,
	}
	if err := a.d.Brands.Insert(ctx, b); err != nil {
		return fmt.Errorf("leaderboard: insert brand: %w", err)
	}

	if a.d.Backend != nil {
		if err := a.d.Backend.SubmitBrand(ctx, b); err != nil {
			a.log.Warn("brand submission failed", "brand", b.ID, "error", err)
		}
	}
	return nil
}

func (a *Aggregator) applyBrandsCreated(ctx context.Context, ev *event.BrandsCreated) error {
	brands := make([]*domain.Brand, len(ev.BrandIDs))
	for i := range ev.BrandIDs {
		brands[i] = &domain.Brand{
			ID:            ev.BrandIDs[i],
			Fid:           ev.Fids[i],
			WalletAddress: ev.WalletAddresses[i],
			Handle:        ev.Handles[i],
			TotalAwarded:  big.NewInt(0),
			Available:     big.NewInt(0),
			CreatedAt:     ev.CreatedAt,
			BlockNum:      ev.BlockNumber,
			TxHash:        ev.TxHash,
		}
	}
	// Batch-created brands are not forwarded to the backend; only single
	// creations are.
	if err := a.d.Brands.InsertBatch(ctx, brands); err != nil {
		return fmt.Errorf("leaderboard: insert brand batch: %w", err)
	}
	return nil
}

func (a *Aggregator) applyBrandUpdated(ctx context.Context, ev *event.BrandUpdated) error {
	err := a.d.Brands.UpdateMetadata(ctx, ev.BrandID, ev.NewMetadataHash, ev.NewFid, ev.NewWalletAddress, ev.BlockNumber, ev.TxHash)
	if errors.Is(err, domain.ErrNotFound) {
		a.log.Warn("update for unknown brand, skipping", "brand", ev.BrandID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("leaderboard: update brand %d: %w", ev.BrandID, err)
	}
	return nil
}

func (a *Aggregator) applyWalletAuthorized(ctx context.Context, ev *event.WalletAuthorized) error {
	auth := &domain.WalletAuthorization{
		ID:        ev.DedupKey(),
		Fid:       ev.Fid,
		Wallet:    ev.Wallet,
		BlockNum:  ev.BlockNumber,
		TxHash:    ev.TxHash,
		Timestamp: ev.Timestamp,
	}
	if err := a.d.Activity.InsertWalletAuthorization(ctx, auth); err != nil {
		return fmt.Errorf("leaderboard: insert wallet authorization: %w", err)
	}
	return nil
}

func (a *Aggregator) applyRewardClaimed(ctx context.Context, ev *event.RewardClaimed) error {
	c := &domain.RewardClaim{
		ID:        ev.DedupKey(),
		Recipient: ev.Recipient,
		Fid:       ev.Fid,
		Amount:    ev.Amount,
		Day:       ev.Day,
		CastRef:   ev.CastRef,
		Caller:    ev.Caller,
		BlockNum:  ev.BlockNumber,
		TxHash:    ev.TxHash,
		Timestamp: ev.Timestamp,
	}
	if err := a.d.Activity.InsertRewardClaim(ctx, c); err != nil {
		return fmt.Errorf("leaderboard: insert reward claim: %w", err)
	}

	// Claim bonus reads the power level as of now; level changes after the
	// claim are not applied retroactively.
	level := 0
	u, err := a.d.Users.Get(ctx, ev.Fid)
	switch {
	case err == nil:
		level = u.PowerLevel
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("leaderboard: get user %d: %w", ev.Fid, err)
	}
	if bonus := int64(level) * claimBonusPerLevel; bonus > 0 {
		if err := a.d.Board.AddUserPoints(ctx, ev.Recipient, bonus); err != nil {
			return fmt.Errorf("leaderboard: add claim bonus: %w", err)
		}
	}

	if a.d.Backend != nil {
		if err := a.d.Backend.SubmitRewardClaim(ctx, c); err != nil {
			a.log.Warn("reward claim submission failed", "claim", c.ID, "error", err)
		}
	}
	return nil
}

func (a *Aggregator) applyWithdrawal(ctx context.Context, ev *event.BrandRewardWithdrawn) error {
	w := &domain.BrandRewardWithdrawal{
		ID:        ev.DedupKey(),
		BrandID:   ev.BrandID,
		Fid:       ev.Fid,
		Amount:    ev.Amount,
		BlockNum:  ev.BlockNumber,
		TxHash:    ev.TxHash,
		Timestamp: ev.Timestamp,
	}
	if err := a.d.Activity.InsertWithdrawal(ctx, w); err != nil {
		return fmt.Errorf("leaderboard: insert withdrawal: %w", err)
	}
	return nil
}

func (a *Aggregator) applyPowerLevelUp(ctx context.Context, ev *event.PowerLevelUp) error {
	p := &domain.PowerLevelUp{
		ID:        ev.DedupKey(),
		Fid:       ev.Fid,
		NewLevel:  ev.NewLevel,
		Wallet:    ev.Wallet,
		BlockNum:  ev.BlockNumber,
		TxHash:    ev.TxHash,
		Timestamp: ev.Timestamp,
	}
	if err := a.d.Activity.InsertPowerLevelUp(ctx, p); err != nil {
		return fmt.Errorf("leaderboard: insert power level-up: %w", err)
	}
	if err := a.d.Users.SetPowerLevel(ctx, ev.Fid, ev.NewLevel, ev.BlockNumber, ev.TxHash); err != nil {
		return fmt.Errorf("leaderboard: set power level: %w", err)
	}

	if a.d.Backend != nil {
		if err := a.d.Backend.SubmitUserLevel(ctx, p); err != nil {
			a.log.Warn("level-up submission failed", "fid", ev.Fid, "error", err)
		}
	}
	return nil
}
