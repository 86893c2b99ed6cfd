package tests

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dexroute/internal/config"
	"dexroute/internal/feed"
	"dexroute/internal/graph"
	ilog "dexroute/internal/infra/log"
	"dexroute/internal/router"
)

// End to end: CSV snapshot -> feed ingester -> router -> quote.
func TestSnapshotFeedToQuote(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.csv")
	body := "add_edge,BTC,ETH,v1,15,0.003,100\n" +
		"add_edge,ETH,USDC,v2,2000,0.003,100\n" +
		"add_edge,BTC,USDC,v3,29000,0.001,100\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	cfg := config.Load()
	cfg.Feed.PollIntervalSeconds = 1
	logger := ilog.NewLogger(cfg)
	pr := router.New(cfg, logger)
	ing := feed.NewIngester(cfg, pr, logger, feed.NewCSVSource(path))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ing.Run(ctx)
		close(done)
	}()

	// the ingester drains the snapshot before its first tick
	deadline := time.Now().Add(3 * time.Second)
	for {
		if s := pr.Stats(); s.Edges == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot not ingested in time: %+v", pr.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	out, err := pr.Quote("BTC", "USDC", 1)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	want := 15 * 0.997 * 2000 * 0.997
	if math.Abs(out-want) > 1e-9*want {
		t.Fatalf("quote %v, want %v", out, want)
	}
}

// Mutation-coupled invalidation observed through the public surface: remove
// a venue mid-flight and the next quote reroutes without a restart.
func TestVenueWithdrawalReroutes(t *testing.T) {
	cfg := config.Load()
	logger := ilog.NewLogger(cfg)
	pr := router.New(cfg, logger)

	seed := []graph.Edge{
		{From: "BTC", To: "ETH", Venue: "v1", Rate: 15, Fee: 0.003, Liquidity: 100},
		{From: "ETH", To: "USDC", Venue: "v2", Rate: 2000, Fee: 0.003, Liquidity: 100},
		{From: "BTC", To: "USDC", Venue: "v3", Rate: 29000, Fee: 0.001, Liquidity: 100},
	}
	for _, e := range seed {
		if err := pr.AddEdge(e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if out, err := pr.Quote("BTC", "USDC", 1); err != nil || out < 29000 {
		t.Fatalf("expected two-hop quote above direct, got %v err %v", out, err)
	}
	if n := pr.RemoveVenueEdges("v2"); n != 1 {
		t.Fatalf("expected removal of 1 edge, got %d", n)
	}
	out, err := pr.Quote("BTC", "USDC", 1)
	if err != nil {
		t.Fatalf("quote after withdrawal: %v", err)
	}
	want := 29000 * 0.999
	if math.Abs(out-want) > 1e-9*want {
		t.Fatalf("expected direct quote %v, got %v", want, out)
	}
}
