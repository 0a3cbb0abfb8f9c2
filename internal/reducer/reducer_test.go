package reducer

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/event"
	"github.com/brndhq/brndindexer/internal/stats"
)

var (
	cast1   = common.HexToHash("0x01")
	creator = common.HexToAddress("0xc0")
	bidder1 = common.HexToAddress("0xb1")
	bidder2 = common.HexToAddress("0xb2")
)

// --- in-memory fakes -------------------------------------------------------

type memAuctions struct {
	rows map[common.Hash]*domain.Auction
}

func newMemAuctions() *memAuctions {
	return &memAuctions{rows: make(map[common.Hash]*domain.Auction)}
}

func (m *memAuctions) Insert(_ context.Context, a *domain.Auction) error {
	cp := *a
	m.rows[a.CastHash] = &cp
	return nil
}

func (m *memAuctions) Get(_ context.Context, h common.Hash) (*domain.Auction, error) {
	a, ok := m.rows[h]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAuctions) Update(_ context.Context, a *domain.Auction) error {
	cp := *a
	m.rows[a.CastHash] = &cp
	return nil
}

func (m *memAuctions) ListRecent(context.Context, *domain.AuctionState, domain.ListOpts) ([]*domain.Auction, error) {
	return nil, nil
}
func (m *memAuctions) ListByCreator(context.Context, common.Address, domain.ListOpts) ([]*domain.Auction, error) {
	return nil, nil
}
func (m *memAuctions) ListByCreatorFid(context.Context, uint64, domain.ListOpts) ([]*domain.Auction, error) {
	return nil, nil
}
func (m *memAuctions) ListParticipated(context.Context, common.Address, domain.ListOpts) ([]*domain.Auction, error) {
	return nil, nil
}

type memBids struct {
	order []*domain.Bid
	byID  map[string]*domain.Bid
}

func newMemBids() *memBids { return &memBids{byID: make(map[string]*domain.Bid)} }

func (m *memBids) Insert(_ context.Context, b *domain.Bid) error {
	if _, ok := m.byID[b.ID]; ok {
		return nil // replay no-op
	}
	cp := *b
	m.byID[b.ID] = &cp
	m.order = append(m.order, &cp)
	return nil
}

func (m *memBids) ListByAuction(_ context.Context, h common.Hash) ([]*domain.Bid, error) {
	var out []*domain.Bid
	for _, b := range m.order {
		if b.CastHash == h {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBids) FindRefundable(_ context.Context, h common.Hash, bidder common.Address, amount *big.Int) (*domain.Bid, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		b := m.order[i]
		if b.CastHash == h && b.Bidder == bidder && !b.WasRefunded && b.Amount.Cmp(amount) == 0 {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memBids) MarkRefunded(_ context.Context, id string, at uint64) error {
	b, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.WasRefunded = true
	b.RefundedAt = at
	return nil
}

type memExtensions struct {
	rows []*domain.AuctionExtension
}

func (m *memExtensions) Insert(_ context.Context, e *domain.AuctionExtension) error {
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memExtensions) CountByAuction(_ context.Context, h common.Hash) (int, error) {
	n := 0
	for _, e := range m.rows {
		if e.CastHash == h {
			n++
		}
	}
	return n, nil
}

func (m *memExtensions) ListByAuction(_ context.Context, h common.Hash) ([]*domain.AuctionExtension, error) {
	var out []*domain.AuctionExtension
	for _, e := range m.rows {
		if e.CastHash == h {
			out = append(out, e)
		}
	}
	return out, nil
}

type memCollectibles struct {
	collectibles map[common.Hash]*domain.CastCollectible
	settled      map[common.Hash]*domain.SettledRecord
	collectors   map[common.Address]*domain.BotCollector
}

func newMemCollectibles() *memCollectibles {
	return &memCollectibles{
		collectibles: make(map[common.Hash]*domain.CastCollectible),
		settled:      make(map[common.Hash]*domain.SettledRecord),
		collectors:   make(map[common.Address]*domain.BotCollector),
	}
}

func (m *memCollectibles) InsertCollectible(_ context.Context, c *domain.CastCollectible) error {
	cp := *c
	m.collectibles[c.CastHash] = &cp
	return nil
}

func (m *memCollectibles) InsertSettled(_ context.Context, s *domain.SettledRecord) error {
	cp := *s
	m.settled[s.CastHash] = &cp
	return nil
}

func (m *memCollectibles) ListByWinner(context.Context, common.Address, bool, domain.ListOpts) ([]*domain.CastCollectible, error) {
	return nil, nil
}

func (m *memCollectibles) ApplyCollector(_ context.Context, winner common.Address, fid uint64, amount *big.Int, ts uint64) error {
	c, ok := m.collectors[winner]
	if !ok {
		c = &domain.BotCollector{
			Winner:           winner,
			WinnerFid:        fid,
			TotalAmountSpent: big.NewInt(0),
			FirstCollectedAt: ts,
		}
		m.collectors[winner] = c
	}
	c.TotalCollected++
	c.TotalAmountSpent.Add(c.TotalAmountSpent, amount)
	c.LastCollectedAt = ts
	return nil
}

func (m *memCollectibles) ListCollectors(context.Context, domain.ListOpts) ([]*domain.BotCollector, error) {
	return nil, nil
}

type memUserStats struct {
	rows map[common.Address]*domain.UserStats
}

func newMemUserStats() *memUserStats {
	return &memUserStats{rows: make(map[common.Address]*domain.UserStats)}
}

func (m *memUserStats) Apply(_ context.Context, addr common.Address, fid uint64, d domain.UserStatsDelta, ts uint64) error {
	r, ok := m.rows[addr]
	if !ok {
		r = &domain.UserStats{
			Address:              addr,
			Fid:                  fid,
			TotalCreatorEarnings: big.NewInt(0),
			TotalAmountBid:       big.NewInt(0),
			TotalAmountWon:       big.NewInt(0),
			FirstActivityAt:      ts,
		}
		m.rows[addr] = r
	}
	r.TotalAuctionsCreated += d.AuctionsCreated
	r.SuccessfulAuctions += d.SuccessfulAuctions
	r.TotalBidsPlaced += d.BidsPlaced
	r.AuctionsWon += d.AuctionsWon
	r.AuctionsLost += d.AuctionsLost
	if d.CreatorEarnings != nil {
		r.TotalCreatorEarnings.Add(r.TotalCreatorEarnings, d.CreatorEarnings)
	}
	if d.AmountBid != nil {
		r.TotalAmountBid.Add(r.TotalAmountBid, d.AmountBid)
	}
	if d.AmountWon != nil {
		r.TotalAmountWon.Add(r.TotalAmountWon, d.AmountWon)
	}
	r.LastActivityAt = ts
	return nil
}

func (m *memUserStats) Get(_ context.Context, addr common.Address) (*domain.UserStats, error) {
	r, ok := m.rows[addr]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

type memDailyStats struct {
	rows map[string]*domain.DailyStats
}

func newMemDailyStats() *memDailyStats {
	return &memDailyStats{rows: make(map[string]*domain.DailyStats)}
}

func (m *memDailyStats) Apply(_ context.Context, date string, dayStart uint64, d domain.DailyStatsDelta) error {
	r, ok := m.rows[date]
	if !ok {
		r = &domain.DailyStats{
			Date:         date,
			Timestamp:    dayStart,
			TotalVolume:  big.NewInt(0),
			ProtocolFees: big.NewInt(0),
		}
		m.rows[date] = r
	}
	r.AuctionsStarted += d.AuctionsStarted
	r.AuctionsSettled += d.AuctionsSettled
	r.AuctionsCancelled += d.AuctionsCancelled
	r.TotalBids += d.TotalBids
	r.UniqueBidders += d.UniqueBidders
	r.UniqueCreators += d.UniqueCreators
	if d.TotalVolume != nil {
		r.TotalVolume.Add(r.TotalVolume, d.TotalVolume)
	}
	if d.ProtocolFees != nil {
		r.ProtocolFees.Add(r.ProtocolFees, d.ProtocolFees)
	}
	return nil
}

func (m *memDailyStats) Get(_ context.Context, date string) (*domain.DailyStats, error) {
	r, ok := m.rows[date]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *memDailyStats) ListRecent(context.Context, int) ([]*domain.DailyStats, error) {
	return nil, nil
}

type fakeChain struct {
	read domain.OnchainAuction
}

func (f *fakeChain) ReadAuction(context.Context, common.Hash) (*domain.OnchainAuction, error) {
	cp := f.read
	return &cp, nil
}

type fakeSocial struct {
	bids     int
	collects int
}

func (f *fakeSocial) AnnounceBid(context.Context, *domain.Auction, uint64) error {
	f.bids++
	return nil
}

func (f *fakeSocial) AnnounceCollected(context.Context, *domain.Auction, uint64) error {
	f.collects++
	return nil
}

// --- harness ---------------------------------------------------------------

type fixture struct {
	r            *Reducer
	auctions     *memAuctions
	bids         *memBids
	extensions   *memExtensions
	collectibles *memCollectibles
	users        *memUserStats
	daily        *memDailyStats
	social       *fakeSocial
	now          time.Time
}

func newFixture() *fixture {
	f := &fixture{
		auctions:     newMemAuctions(),
		bids:         newMemBids(),
		extensions:   &memExtensions{},
		collectibles: newMemCollectibles(),
		users:        newMemUserStats(),
		daily:        newMemDailyStats(),
		social:       &fakeSocial{},
		now:          time.Unix(1_775_000_000, 0),
	}
	chain := &fakeChain{read: domain.OnchainAuction{
		Params: domain.AuctionParams{
			MinBid:             big.NewInt(100),
			MinBidIncrementBps: 1000,
			ProtocolFeeBps:     500,
			Duration:           86400,
			Extension:          600,
			ExtensionThreshold: 300,
		},
		HighestBidder:    creator,
		HighestBidderFid: 1,
		HighestBid:       big.NewInt(100),
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.r = New(Deps{
		Auctions:     f.auctions,
		Bids:         f.bids,
		Extensions:   f.extensions,
		Collectibles: f.collectibles,
		Stats:        stats.New(f.users, f.daily),
		Chain:        chain,
		Social:       f.social,
		Now:          func() time.Time { return f.now },
	}, log)
	return f
}

func (f *fixture) start(t *testing.T, creatorFid, ts uint64) {
	t.Helper()
	err := f.r.Apply(context.Background(), &event.AuctionStarted{
		Meta:       event.Meta{BlockNumber: 100, Timestamp: ts, TxHash: common.HexToHash("0xf0")},
		CastHash:   cast1,
		Creator:    creator,
		CreatorFid: creatorFid,
		EndTime:    ts + 86400,
	})
	if err != nil {
		t.Fatalf("apply started: %v", err)
	}
}

func (f *fixture) bid(t *testing.T, bidder common.Address, fid uint64, amount int64, ts uint64) {
	t.Helper()
	err := f.r.Apply(context.Background(), &event.BidPlaced{
		Meta:      event.Meta{BlockNumber: 101, Timestamp: ts, TxHash: common.HexToHash("0xf1")},
		CastHash:  cast1,
		Bidder:    bidder,
		BidderFid: fid,
		Amount:    big.NewInt(amount),
	})
	if err != nil {
		t.Fatalf("apply bid: %v", err)
	}
}

// --- tests -----------------------------------------------------------------

func TestStartedSeedsFromChainRead(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)

	a, err := f.auctions.Get(context.Background(), cast1)
	if err != nil {
		t.Fatalf("get auction: %v", err)
	}
	if a.State != domain.AuctionStateActive {
		t.Errorf("state = %s", a.State)
	}
	if a.TotalBids != 1 {
		t.Errorf("total bids = %d, want 1", a.TotalBids)
	}
	if a.HighestBid.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("highest bid = %s, want on-chain 100", a.HighestBid)
	}
	if a.Params.ProtocolFeeBps != 500 {
		t.Errorf("fee bps = %d", a.Params.ProtocolFeeBps)
	}

	us, err := f.users.Get(context.Background(), creator)
	if err != nil {
		t.Fatalf("creator stats: %v", err)
	}
	if us.TotalAuctionsCreated != 1 {
		t.Errorf("auctions created = %d", us.TotalAuctionsCreated)
	}
	if us.FirstActivityAt != ts || us.LastActivityAt != ts {
		t.Errorf("activity window = %d..%d", us.FirstActivityAt, us.LastActivityAt)
	}
}

func TestBidIndexesAreContiguous(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)
	f.bid(t, bidder1, 10, 150, ts+60)
	f.bid(t, bidder2, 11, 200, ts+120)

	bids, _ := f.bids.ListByAuction(context.Background(), cast1)
	if len(bids) != 2 {
		t.Fatalf("bid count = %d", len(bids))
	}
	// The opening bid (index 0) is implicit in the start event, so indexed
	// bids begin at 1.
	if bids[0].BidIndex != 1 || bids[1].BidIndex != 2 {
		t.Errorf("bid indexes = %d, %d", bids[0].BidIndex, bids[1].BidIndex)
	}
	if bids[0].ID != domain.BidID(cast1, 1) {
		t.Errorf("bid id = %s", bids[0].ID)
	}

	a, _ := f.auctions.Get(context.Background(), cast1)
	if a.TotalBids != 3 {
		t.Errorf("total bids = %d, want 3", a.TotalBids)
	}
	if a.HighestBid.Cmp(big.NewInt(200)) != 0 || a.HighestBidder != bidder2 {
		t.Errorf("highest = %s by %s", a.HighestBid, a.HighestBidder)
	}
	if a.LastBidAt != ts+120 {
		t.Errorf("last bid at = %d", a.LastBidAt)
	}
}

func TestBidOnUnknownAuctionIgnored(t *testing.T) {
	f := newFixture()
	err := f.r.Apply(context.Background(), &event.BidPlaced{
		Meta:     event.Meta{Timestamp: uint64(f.now.Unix())},
		CastHash: cast1,
		Bidder:   bidder1,
		Amount:   big.NewInt(5),
	})
	if err != nil {
		t.Fatalf("expected drop, got %v", err)
	}
	if len(f.bids.order) != 0 {
		t.Errorf("bid was recorded for unknown auction")
	}
}

func TestSettlementFeeSplit(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, botFid, ts)
	err := f.r.Apply(context.Background(), &event.AuctionSettled{
		Meta:      event.Meta{Timestamp: ts + 3600, TxHash: common.HexToHash("0xf2")},
		CastHash:  cast1,
		Winner:    bidder1,
		WinnerFid: 10,
		Amount:    big.NewInt(200),
	})
	if err != nil {
		t.Fatalf("apply settled: %v", err)
	}

	a, _ := f.auctions.Get(context.Background(), cast1)
	if a.State != domain.AuctionStateSettled {
		t.Errorf("state = %s", a.State)
	}
	// 500 bps of 200 floors to 10; the remainder goes to the creator.
	if a.TreasuryAmount.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("treasury = %s, want 10", a.TreasuryAmount)
	}
	if a.CreatorAmount.Cmp(big.NewInt(190)) != 0 {
		t.Errorf("creator amount = %s, want 190", a.CreatorAmount)
	}
	sum := new(big.Int).Add(a.TreasuryAmount, a.CreatorAmount)
	if sum.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("split sum = %s, want exactly 200", sum)
	}

	c := f.collectibles.collectibles[cast1]
	if c == nil {
		t.Fatal("collectible not written")
	}
	if !c.IsFromBot || c.Winner != bidder1 || c.FinalAmount.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("collectible = %+v", c)
	}
	if f.collectibles.settled[cast1] == nil {
		t.Error("settled record not written")
	}

	col := f.collectibles.collectors[bidder1]
	if col == nil {
		t.Fatal("collector aggregate not written for bot creator")
	}
	if col.TotalCollected != 1 || col.TotalAmountSpent.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("collector = %+v", col)
	}

	ws, _ := f.users.Get(context.Background(), bidder1)
	if ws.AuctionsWon != 1 || ws.TotalAmountWon.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("winner stats = %+v", ws)
	}
	cs, _ := f.users.Get(context.Background(), creator)
	if cs.SuccessfulAuctions != 1 || cs.TotalCreatorEarnings.Cmp(big.NewInt(190)) != 0 {
		t.Errorf("creator stats = %+v", cs)
	}
}

func TestSettlementCollectorOnlyForBotFid(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, brandFid, ts)
	err := f.r.Apply(context.Background(), &event.AuctionSettled{
		Meta:     event.Meta{Timestamp: ts + 10},
		CastHash: cast1,
		Winner:   bidder1,
		Amount:   big.NewInt(100),
	})
	if err != nil {
		t.Fatalf("apply settled: %v", err)
	}

	c := f.collectibles.collectibles[cast1]
	if c == nil || !c.IsFromBot {
		t.Error("brand-fid collectible should still be marked from bot")
	}
	if len(f.collectibles.collectors) != 0 {
		t.Error("collector aggregate should only track the bot fid")
	}
}

func TestRefundCorrelatesToOriginalBid(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)
	f.bid(t, bidder1, 10, 150, ts+60)
	f.bid(t, bidder2, 11, 200, ts+120)

	err := f.r.Apply(context.Background(), &event.BidRefunded{
		Meta:     event.Meta{Timestamp: ts + 121},
		CastHash: cast1,
		To:       bidder1,
		Amount:   big.NewInt(150),
	})
	if err != nil {
		t.Fatalf("apply refund: %v", err)
	}

	bids, _ := f.bids.ListByAuction(context.Background(), cast1)
	if len(bids) != 2 {
		t.Fatalf("refund created a new row, bid count = %d", len(bids))
	}
	if !bids[0].WasRefunded || bids[0].RefundedAt != ts+121 {
		t.Errorf("original bid not marked refunded: %+v", bids[0])
	}
	if bids[1].WasRefunded {
		t.Error("wrong bid marked refunded")
	}
}

func TestRefundWithoutMatchRecordsDetachedRow(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)

	err := f.r.Apply(context.Background(), &event.BidRefunded{
		Meta:     event.Meta{Timestamp: ts + 5},
		CastHash: cast1,
		To:       bidder1,
		Amount:   big.NewInt(999),
	})
	if err != nil {
		t.Fatalf("apply refund: %v", err)
	}

	bids, _ := f.bids.ListByAuction(context.Background(), cast1)
	if len(bids) != 1 {
		t.Fatalf("bid count = %d, want 1 detached row", len(bids))
	}
	if !bids[0].WasRefunded || bids[0].BidIndex != -1 {
		t.Errorf("detached refund row = %+v", bids[0])
	}
}

func TestExtensionIndexIsComputed(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)

	for i, newEnd := range []uint64{ts + 86400 + 600, ts + 86400 + 1200} {
		err := f.r.Apply(context.Background(), &event.AuctionExtended{
			Meta:       event.Meta{Timestamp: ts + uint64(i)},
			CastHash:   cast1,
			NewEndTime: newEnd,
		})
		if err != nil {
			t.Fatalf("apply extension %d: %v", i, err)
		}
	}

	exts, _ := f.extensions.ListByAuction(context.Background(), cast1)
	if len(exts) != 2 {
		t.Fatalf("extension count = %d", len(exts))
	}
	if exts[0].Index != 0 || exts[1].Index != 1 {
		t.Errorf("extension indexes = %d, %d", exts[0].Index, exts[1].Index)
	}
	if exts[1].ID != domain.ExtensionID(cast1, 1) {
		t.Errorf("extension id = %s", exts[1].ID)
	}
	if exts[1].OldEndTime != ts+86400+600 {
		t.Errorf("second extension old end = %d", exts[1].OldEndTime)
	}

	a, _ := f.auctions.Get(context.Background(), cast1)
	if a.EndTime != ts+86400+1200 {
		t.Errorf("end time = %d", a.EndTime)
	}
}

func TestCancelledIsTerminal(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)

	err := f.r.Apply(context.Background(), &event.AuctionCancelled{
		Meta:     event.Meta{Timestamp: ts + 100},
		CastHash: cast1,
	})
	if err != nil {
		t.Fatalf("apply cancelled: %v", err)
	}

	a, _ := f.auctions.Get(context.Background(), cast1)
	if a.State != domain.AuctionStateCancelled {
		t.Errorf("state = %s", a.State)
	}

	// A bid after cancellation is dropped.
	f.bid(t, bidder1, 10, 500, ts+200)
	if len(f.bids.order) != 0 {
		t.Error("bid accepted on cancelled auction")
	}
}

func TestSocialFreshnessGate(t *testing.T) {
	f := newFixture()
	now := uint64(f.now.Unix())
	f.start(t, botFid, now)

	// Fresh event on a bot cast fires.
	f.bid(t, bidder1, 10, 150, now-60)
	if f.social.bids != 1 {
		t.Errorf("fresh bid announcements = %d, want 1", f.social.bids)
	}

	// An event older than the window stays silent.
	f.bid(t, bidder2, 11, 200, now-601)
	if f.social.bids != 1 {
		t.Errorf("stale bid fired an announcement")
	}
}

func TestSocialSkippedForOrdinaryCreators(t *testing.T) {
	f := newFixture()
	now := uint64(f.now.Unix())
	f.start(t, 42, now)
	f.bid(t, bidder1, 10, 150, now)
	if f.social.bids != 0 {
		t.Errorf("announcement fired for non-bot creator")
	}

	err := f.r.Apply(context.Background(), &event.AuctionSettled{
		Meta:     event.Meta{Timestamp: now},
		CastHash: cast1,
		Winner:   bidder1,
		Amount:   big.NewInt(150),
	})
	if err != nil {
		t.Fatalf("apply settled: %v", err)
	}
	if f.social.collects != 0 {
		t.Errorf("collect announcement fired for non-bot creator")
	}
}

func TestDailyStatsAccumulate(t *testing.T) {
	f := newFixture()
	ts := uint64(f.now.Unix())
	f.start(t, 42, ts)
	f.bid(t, bidder1, 10, 150, ts+60)
	f.bid(t, bidder2, 11, 200, ts+120)

	day := time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
	d, err := f.daily.Get(context.Background(), day)
	if err != nil {
		t.Fatalf("daily stats: %v", err)
	}
	if d.AuctionsStarted != 1 || d.TotalBids != 2 {
		t.Errorf("daily = %+v", d)
	}
	if d.TotalVolume.Cmp(big.NewInt(350)) != 0 {
		t.Errorf("volume = %s, want 350", d.TotalVolume)
	}
}
