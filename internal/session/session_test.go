package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/progress"
)

func sessionConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestRegistryLifecycle(t *testing.T) {
	cfg := sessionConfig(t)
	reg := NewRegistry(cfg, nil)

	w := reg.Register("run-1")
	if !reg.IsAlive("run-1") {
		t.Fatal("freshly registered worker must be alive")
	}
	if got := reg.CheckStatus(context.Background(), "run-1"); got != StatusRunning {
		t.Fatalf("status = %q, want running", got)
	}

	w.Finish()
	if reg.IsAlive("run-1") {
		t.Fatal("finished worker must not be alive")
	}

	reg.Unregister("run-1")
	if len(reg.Snapshot()) != 0 {
		t.Fatal("snapshot must be empty after unregister")
	}
}

func TestCheckStatusDisambiguatesDeadWorker(t *testing.T) {
	ctx := context.Background()
	cfg := sessionConfig(t)
	reg := NewRegistry(cfg, nil)

	// No worker, no record.
	if got := reg.CheckStatus(ctx, "ghost"); got != StatusNotFound {
		t.Fatalf("status = %q, want not_found", got)
	}

	// Terminal record without a worker stands as-is.
	tr := progress.NewTracker(ctx, cfg, "done-run", []string{consts.AnalystMarket}, nil)
	tr.MarkCompleted(ctx, "分析完成", nil)
	if got := reg.CheckStatus(ctx, "done-run"); got != StatusCompleted {
		t.Fatalf("status = %q, want completed", got)
	}

	// Record still running with a dead worker means failure.
	progress.NewTracker(ctx, cfg, "dead-run", []string{consts.AnalystMarket}, nil)
	w := reg.Register("dead-run")
	w.Finish()
	if got := reg.CheckStatus(ctx, "dead-run"); got != StatusFailed {
		t.Fatalf("status = %q, want failed", got)
	}
}

func TestStoreRoundTripRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewStore(ctx, sessionConfig(t), client)

	in := &State{AnalysisID: "run-9", Symbol: "AAPL", AnalysisDate: "2026-01-15"}
	if err := store.Save(ctx, "fp-abc_123", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "fp-abc_123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AnalysisID != "run-9" || got.Symbol != "AAPL" {
		t.Fatalf("state = %+v", got)
	}

	if mr.TTL(sessionKey("fp-abc_123")) != sessionTTL {
		t.Fatalf("ttl = %v, want %v", mr.TTL(sessionKey("fp-abc_123")), sessionTTL)
	}
}

func TestStoreFileFallback(t *testing.T) {
	ctx := context.Background()
	store := NewStore(ctx, sessionConfig(t), nil)

	in := &State{AnalysisID: "run-10", Symbol: "0700.HK", AnalysisDate: "2026-01-15"}
	if err := store.Save(ctx, "browser1", in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "browser1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Symbol != "0700.HK" {
		t.Fatalf("state = %+v", got)
	}

	if err := store.Delete(ctx, "browser1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "browser1"); err == nil {
		t.Fatal("deleted session must not load")
	}
}

func TestStoreRejectsTraversalFingerprint(t *testing.T) {
	ctx := context.Background()
	store := NewStore(ctx, sessionConfig(t), nil)

	for _, fp := range []string{"../../etc/passwd", "a/b", "fp with space", ""} {
		if err := store.Save(ctx, fp, &State{}); err == nil {
			t.Fatalf("Save accepted fingerprint %q", fp)
		}
		if _, err := store.Load(ctx, fp); err == nil {
			t.Fatalf("Load accepted fingerprint %q", fp)
		}
	}
}
