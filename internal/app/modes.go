package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/brndhq/brndindexer/internal/chain"
	"github.com/brndhq/brndindexer/internal/domain"
	"github.com/brndhq/brndindexer/internal/event"
	"github.com/brndhq/brndindexer/internal/leaderboard"
	"github.com/brndhq/brndindexer/internal/pipeline"
	"github.com/brndhq/brndindexer/internal/reducer"
	"github.com/brndhq/brndindexer/internal/server"
	"github.com/brndhq/brndindexer/internal/server/handler"
	"github.com/brndhq/brndindexer/internal/server/ws"
	"github.com/brndhq/brndindexer/internal/stats"
)

// IndexMode runs the indexing pipeline against the live chain with no HTTP
// surface. Useful for dedicated writer deployments behind a separate API tier.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting index mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startIndexer(ctx, g, deps, nil)
	return g.Wait()
}

// ServeMode runs only the read API and the websocket hub over already-indexed
// state. Without a pipeline feeding it, the hub still delivers status frames.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	hub := ws.NewHub(a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	a.startHTTPServer(ctx, g, deps, hub)
	return g.Wait()
}

// ReplayMode drains an NDJSON log dump through the pipeline and exits. The
// deterministic reducers and the emitted-period markers make re-running a
// replay over an already-indexed database a no-op.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode")

	f, err := os.Open(a.cfg.Replay.Path)
	if err != nil {
		return fmt.Errorf("app: open replay file: %w", err)
	}
	defer f.Close()

	src := pipeline.NewReplaySource(f, event.NewDecoder(), a.logger)
	return a.buildDispatcher(deps, nil).Run(ctx, src)
}

// FullMode runs the indexing pipeline and the HTTP/WebSocket API together, with
// applied events broadcast to connected clients.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	var hub *ws.Hub
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
		a.startHTTPServer(ctx, g, deps, hub)
	}

	var broadcast domain.EventBroadcaster
	if hub != nil {
		broadcast = hub
	}
	a.startIndexer(ctx, g, deps, broadcast)

	return g.Wait()
}

// buildDispatcher assembles the auction reducer and the leaderboard aggregator
// behind a dispatcher. broadcast may be nil.
func (a *App) buildDispatcher(deps *Dependencies, broadcast domain.EventBroadcaster) *pipeline.Dispatcher {
	statsAgg := stats.New(deps.UserStats, deps.DailyStats)

	red := reducer.New(reducer.Deps{
		Auctions:     deps.Auctions,
		Bids:         deps.Bids,
		Extensions:   deps.Extensions,
		Collectibles: deps.Collectibles,
		Stats:        statsAgg,
		Chain:        deps.Chain,
		Social:       deps.Social,
	}, a.logger)

	ld := leaderboard.Deps{
		Brands:      deps.Brands,
		Votes:       deps.Votes,
		Users:       deps.Users,
		Activity:    deps.Activity,
		Board:       deps.Board,
		Checkpoints: deps.Checkpoints,
		Cache:       deps.BoardCache,
	}
	if deps.Backend != nil {
		ld.Backend = deps.Backend
		ld.Summaries = append(ld.Summaries, deps.Backend)
	}
	if deps.Archiver != nil {
		ld.Summaries = append(ld.Summaries, deps.Archiver)
	}
	agg := leaderboard.New(ld, a.logger)

	return pipeline.NewDispatcher(red, agg, broadcast, a.logger)
}

// startIndexer adds the chain-tailing pipeline goroutine to the errgroup.
func (a *App) startIndexer(ctx context.Context, g *errgroup.Group, deps *Dependencies, broadcast domain.EventBroadcaster) {
	src := chain.NewLogSource(deps.EthClient, event.NewDecoder(), chain.LogSourceConfig{
		Contract:   common.HexToAddress(a.cfg.Chain.AuctionContract),
		StartBlock: a.cfg.Chain.StartBlock,
	}, a.logger)

	dispatcher := a.buildDispatcher(deps, broadcast)
	g.Go(func() error {
		return dispatcher.Run(ctx, src)
	})
}

// startHTTPServer adds the API server goroutine plus a graceful-shutdown
// watcher to the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(),
		Auctions:    handler.NewAuctionHandler(deps.Auctions, deps.Bids, deps.Extensions, a.logger),
		Users:       handler.NewUserHandler(deps.UserStats, deps.Auctions, deps.Collectibles, deps.Board, a.logger),
		Stats:       handler.NewStatsHandler(deps.DailyStats, deps.Collectibles, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(deps.Board, deps.BoardCache, a.logger),
		Brands:      handler.NewBrandHandler(deps.Brands, deps.Votes, deps.Users, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
