package memory

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/models"
)

// FinancialSituationMemory stores past market situations with the
// recommendations that followed, and recalls the closest ones by
// embedding similarity. Each agent role owns one named memory.
type FinancialSituationMemory struct {
	name     string
	embedder embedding.Embedder
	cfg      *config.Config
	log      *logging.Logger

	mu      sync.Mutex
	entries []models.MemoryEntry
	loaded  bool
}

func New(name string, embedder embedding.Embedder, cfg *config.Config) *FinancialSituationMemory {
	return &FinancialSituationMemory{
		name:     name,
		embedder: embedder,
		cfg:      cfg,
		log:      logging.ForComponent("memory").With("name", name),
	}
}

func (m *FinancialSituationMemory) filePath() string {
	return filepath.Join(m.cfg.DataDir, "memory", fmt.Sprintf("%s.json", m.name))
}

func (m *FinancialSituationMemory) ensureLoaded() {
	if m.loaded {
		return
	}
	m.loaded = true

	var entries []models.MemoryEntry
	if err := loadJSON(m.filePath(), &entries); err != nil {
		if !os.IsNotExist(err) {
			m.log.Warnw("failed to load memory file", "err", err)
		}
		return
	}
	m.entries = entries
}

// AddSituations embeds and stores situation/recommendation pairs.
func (m *FinancialSituationMemory) AddSituations(ctx context.Context, pairs [][2]string) error {
	if m.embedder == nil {
		return fmt.Errorf("memory %s has no embedder configured", m.name)
	}
	if len(pairs) == 0 {
		return nil
	}

	situations := make([]string, len(pairs))
	for i, p := range pairs {
		situations[i] = p[0]
	}

	vectors, err := m.embedder.EmbedStrings(ctx, situations)
	if err != nil {
		return fmt.Errorf("embed situations: %w", err)
	}
	if len(vectors) != len(pairs) {
		return fmt.Errorf("embedder returned %d vectors for %d situations", len(vectors), len(pairs))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()

	for i, p := range pairs {
		m.entries = append(m.entries, models.MemoryEntry{
			Situation:      p[0],
			Recommendation: p[1],
			Embedding:      vectors[i],
		})
	}
	return m.persistLocked()
}

// GetMemories returns the topK stored situations most similar to the
// current one, by cosine similarity.
func (m *FinancialSituationMemory) GetMemories(ctx context.Context, situation string, topK int) ([]models.MemoryMatch, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("memory %s has no embedder configured", m.name)
	}
	if topK <= 0 {
		topK = 2
	}

	m.mu.Lock()
	m.ensureLoaded()
	entries := make([]models.MemoryEntry, len(m.entries))
	copy(entries, m.entries)
	m.mu.Unlock()

	if len(entries) == 0 {
		return nil, nil
	}

	vectors, err := m.embedder.EmbedStrings(ctx, []string{situation})
	if err != nil {
		return nil, fmt.Errorf("embed query situation: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for query", len(vectors))
	}
	query := vectors[0]

	matches := make([]models.MemoryMatch, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, models.MemoryMatch{
			Situation:      e.Situation,
			Recommendation: e.Recommendation,
			Score:          cosineSimilarity(query, e.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// FormatMemories renders matches as a prompt section. Empty input
// yields an empty string so prompts stay clean without past lessons.
func FormatMemories(matches []models.MemoryMatch) string {
	if len(matches) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Past reflections on similar situations:\n\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Recommendation)
	}
	return b.String()
}

// persistLocked writes entries via a temp file and rename so a crash
// never leaves a truncated memory file. Caller holds m.mu.
func (m *FinancialSituationMemory) persistLocked() error {
	path := m.filePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := saveJSON(tmp, m.entries); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
