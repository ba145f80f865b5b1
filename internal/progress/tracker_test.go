package progress

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
)

func progressConfig(t *testing.T, depth int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ResearchDepth = depth
	return cfg
}

func allAnalysts() []string {
	return []string{
		consts.AnalystMarket,
		consts.AnalystSocial,
		consts.AnalystNews,
		consts.AnalystFundamentals,
	}
}

func TestStepWeightsSumToOne(t *testing.T) {
	for depth := 1; depth <= 3; depth++ {
		for n := 1; n <= 4; n++ {
			steps := buildSteps(allAnalysts()[:n], depth)
			var sum float64
			for _, s := range steps {
				sum += s.Weight
			}
			if math.Abs(sum-1.0) > 1e-9 {
				t.Fatalf("depth=%d analysts=%d: weights sum to %v", depth, n, sum)
			}
		}
	}
}

func TestStepPlanByDepth(t *testing.T) {
	shallow := buildSteps(allAnalysts(), 1)
	deep := buildSteps(allAnalysts(), 3)

	contains := func(steps []Step, name string) bool {
		for _, s := range steps {
			if s.Name == name {
				return true
			}
		}
		return false
	}

	if contains(shallow, "多头研究") {
		t.Fatal("depth 1 must not include research debate steps")
	}
	if !contains(shallow, "风险提示") {
		t.Fatal("depth 1 must use the single risk note step")
	}
	if !contains(deep, "激进风险评估") || !contains(deep, "风险控制决策") {
		t.Fatal("depth 3 must include granular risk steps")
	}
	if !contains(deep, "观点整合") {
		t.Fatal("depth 3 must include the integration step")
	}
}

func TestTrackerRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	cfg := progressConfig(t, 2)
	tr := NewTracker(ctx, cfg, "run-1", allAnalysts(), client)

	data, err := mr.Get(redisKey("run-1"))
	if err != nil {
		t.Fatalf("record not in redis: %v", err)
	}
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Status != StatusRunning || r.CurrentStep != 0 {
		t.Fatalf("initial record = %+v", r)
	}
	if mr.TTL(redisKey("run-1")) != recordTTL {
		t.Fatalf("ttl = %v, want %v", mr.TTL(redisKey("run-1")), recordTTL)
	}

	tr.UpdateMessage(ctx, "[模块开始] market_analyst 启动")
	snap := tr.Snapshot()
	if snap.StepName != "市场分析" {
		t.Fatalf("step name = %q, want 市场分析", snap.StepName)
	}
	if snap.ProgressPercentage <= 0 {
		t.Fatalf("progress = %v, want > 0", snap.ProgressPercentage)
	}

	got, err := GetProgressByID(ctx, cfg, client, "run-1")
	if err != nil {
		t.Fatalf("GetProgressByID: %v", err)
	}
	if got.StepName != "市场分析" {
		t.Fatalf("stored step name = %q", got.StepName)
	}
}

func TestTrackerFileFallback(t *testing.T) {
	ctx := context.Background()
	cfg := progressConfig(t, 1)
	tr := NewTracker(ctx, cfg, "run-2", allAnalysts()[:1], nil)

	if _, err := os.Stat(filePath(cfg, "run-2")); err != nil {
		t.Fatalf("file record missing: %v", err)
	}

	tr.MarkCompleted(ctx, "✅ 分析完成", map[string]interface{}{"action": "buy"})

	got, err := GetProgressByID(ctx, cfg, nil, "run-2")
	if err != nil {
		t.Fatalf("GetProgressByID: %v", err)
	}
	if got.Status != StatusCompleted || got.ProgressPercentage != 100 {
		t.Fatalf("record = %+v", got)
	}
	if got.RemainingTime != 0 {
		t.Fatalf("remaining = %v, want 0", got.RemainingTime)
	}
}

func TestTrackerStepMonotonic(t *testing.T) {
	ctx := context.Background()
	cfg := progressConfig(t, 1)
	tr := NewTracker(ctx, cfg, "run-3", allAnalysts(), nil)

	tr.UpdateMessage(ctx, "[模块开始] news_analyst")
	before := tr.Snapshot()
	tr.UpdateMessage(ctx, "[模块开始] market_analyst")
	after := tr.Snapshot()

	if after.CurrentStep < before.CurrentStep {
		t.Fatalf("step went backwards: %d -> %d", before.CurrentStep, after.CurrentStep)
	}
	if after.ProgressPercentage < before.ProgressPercentage {
		t.Fatal("progress percentage must be monotonic")
	}
}

func TestTrackerToolCallOnlyUpdatesDescription(t *testing.T) {
	ctx := context.Background()
	cfg := progressConfig(t, 1)
	tr := NewTracker(ctx, cfg, "run-4", allAnalysts(), nil)

	tr.UpdateMessage(ctx, "[模块开始] market_analyst")
	before := tr.Snapshot()

	tr.UpdateMessage(ctx, "工具调用: get_stock_market_data_unified")
	after := tr.Snapshot()

	if after.CurrentStep != before.CurrentStep {
		t.Fatalf("tool call moved step %d -> %d", before.CurrentStep, after.CurrentStep)
	}
	if after.StepDescription != "工具调用: get_stock_market_data_unified" {
		t.Fatalf("description = %q", after.StepDescription)
	}
}

func TestTrackerMarkFailed(t *testing.T) {
	ctx := context.Background()
	cfg := progressConfig(t, 1)
	tr := NewTracker(ctx, cfg, "run-5", allAnalysts()[:2], nil)

	tr.MarkFailed(ctx, context.DeadlineExceeded)
	got, err := GetProgressByID(ctx, cfg, nil, "run-5")
	if err != nil {
		t.Fatalf("GetProgressByID: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
}

func TestEstimateScalesWithDepth(t *testing.T) {
	shallow := progressConfig(t, 1)
	deep := progressConfig(t, 3)
	if estimateTotalSeconds(shallow, 4) >= estimateTotalSeconds(deep, 4) {
		t.Fatal("deeper research must estimate longer")
	}
}
