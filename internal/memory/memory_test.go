package memory

import (
	"context"
	"math"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/dyike/TradeMind/internal/config"
)

// fakeEmbedder maps known strings to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestAddAndRecall(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"rates rising":    {1, 0, 0},
		"tech selloff":    {0, 1, 0},
		"rates going up?": {0.9, 0.1, 0},
	}}
	mem := New("bull_memory", emb, testConfig(t))
	ctx := context.Background()

	err := mem.AddSituations(ctx, [][2]string{
		{"rates rising", "reduce duration exposure"},
		{"tech selloff", "look for quality entries"},
	})
	if err != nil {
		t.Fatalf("AddSituations: %v", err)
	}

	matches, err := mem.GetMemories(ctx, "rates going up?", 1)
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Recommendation != "reduce duration exposure" {
		t.Errorf("recalled %q", matches[0].Recommendation)
	}
	if matches[0].Score <= 0.9 {
		t.Errorf("similarity = %f, want > 0.9", matches[0].Score)
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	cfg := testConfig(t)
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"volatility spike": {0, 1, 0},
	}}
	ctx := context.Background()

	first := New("trader_memory", emb, cfg)
	if err := first.AddSituations(ctx, [][2]string{{"volatility spike", "size down"}}); err != nil {
		t.Fatalf("AddSituations: %v", err)
	}

	second := New("trader_memory", emb, cfg)
	matches, err := second.GetMemories(ctx, "volatility spike", 2)
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(matches) != 1 || matches[0].Recommendation != "size down" {
		t.Fatalf("persisted memory not recalled: %+v", matches)
	}
}

func TestEmptyMemoryReturnsNothing(t *testing.T) {
	mem := New("empty", &fakeEmbedder{}, testConfig(t))
	matches, err := mem.GetMemories(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("GetMemories: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors = %f", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal vectors = %f", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 0}); got != 0 {
		t.Errorf("zero vector = %f", got)
	}
	if got := cosineSimilarity([]float64{1}, []float64{1, 0}); got != 0 {
		t.Errorf("length mismatch = %f", got)
	}
}

func TestFormatMemories(t *testing.T) {
	if s := FormatMemories(nil); s != "" {
		t.Errorf("empty matches should format to empty string, got %q", s)
	}
}
