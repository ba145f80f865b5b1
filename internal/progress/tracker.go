package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
)

// Analysis status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const recordTTL = time.Hour

// Step is one unit of the analysis plan. Weights sum to 1 after
// normalization.
type Step struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Record is the durable progress state for one analysis. A separate
// process reads it to render progress for an in-flight run.
type Record struct {
	AnalysisID         string                 `json:"analysis_id"`
	Status             string                 `json:"status"`
	CurrentStep        int                    `json:"current_step"`
	TotalSteps         int                    `json:"total_steps"`
	StepName           string                 `json:"step_name"`
	StepDescription    string                 `json:"step_description"`
	ProgressPercentage float64                `json:"progress_percentage"`
	LastMessage        string                 `json:"last_message"`
	ElapsedTime        float64                `json:"elapsed_time"`
	EstimatedTotalTime float64                `json:"estimated_total_time"`
	RemainingTime      float64                `json:"remaining_time"`
	StartTime          time.Time              `json:"start_time"`
	LastUpdate         time.Time              `json:"last_update"`
	Steps              []Step                 `json:"steps"`
	RawResults         map[string]interface{} `json:"raw_results,omitempty"`
}

// Tracker maintains a Record in Redis, degrading to a file under the
// data directory when Redis is not reachable.
type Tracker struct {
	cfg    *config.Config
	client *redis.Client
	log    *logging.Logger

	mu     sync.Mutex
	record *Record
}

// NewTracker builds the step plan for (analysts, researchDepth) and
// persists the initial record. client may be nil to force the file
// store; a Redis ping failure has the same effect.
func NewTracker(ctx context.Context, cfg *config.Config, analysisID string, analysts []string, client *redis.Client) *Tracker {
	if client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			logging.Warnf("redis unavailable, tracking progress in files: %v", err)
			client = nil
		}
	}

	now := time.Now().UTC()
	steps := buildSteps(analysts, cfg.ResearchDepth)
	t := &Tracker{
		cfg:    cfg,
		client: client,
		log:    logging.ForComponent("progress").With("analysis_id", analysisID),
		record: &Record{
			AnalysisID:         analysisID,
			Status:             StatusRunning,
			CurrentStep:        0,
			TotalSteps:         len(steps),
			StepName:           steps[0].Name,
			StepDescription:    steps[0].Description,
			EstimatedTotalTime: estimateTotalSeconds(cfg, len(analysts)),
			StartTime:          now,
			LastUpdate:         now,
			Steps:              steps,
		},
	}
	t.persist(ctx)
	return t
}

func buildSteps(analysts []string, depth int) []Step {
	steps := []Step{
		{Name: "准备分析环境", Description: "初始化目录与依赖", Weight: 0.05},
		{Name: "检查环境变量", Description: "验证 API 密钥配置", Weight: 0.02},
		{Name: "预估分析成本", Description: "估算本次分析的成本", Weight: 0.01},
		{Name: "配置分析参数", Description: "设置分析师与研究深度", Weight: 0.02},
		{Name: "启动分析引擎", Description: "构建智能体执行图", Weight: 0.05},
	}

	if len(analysts) > 0 {
		per := 0.6 / float64(len(analysts))
		for _, key := range analysts {
			steps = append(steps, Step{
				Name:        analystStepName(key),
				Description: fmt.Sprintf("执行%s模块", analystStepName(key)),
				Weight:      per,
			})
		}
	}

	if depth >= 2 {
		steps = append(steps,
			Step{Name: "多头研究", Description: "多头研究员论证", Weight: 0.06},
			Step{Name: "空头研究", Description: "空头研究员论证", Weight: 0.06},
			Step{Name: "观点整合", Description: "研究经理整合多空观点", Weight: 0.05},
		)
	}

	steps = append(steps, Step{Name: "交易决策", Description: "交易员制定投资计划", Weight: 0.06})

	if depth >= 3 {
		steps = append(steps,
			Step{Name: "激进风险评估", Description: "激进派风险论证", Weight: 0.03},
			Step{Name: "保守风险评估", Description: "保守派风险论证", Weight: 0.03},
			Step{Name: "中性风险评估", Description: "中性派风险论证", Weight: 0.03},
			Step{Name: "风险控制决策", Description: "风控经理最终裁决", Weight: 0.04},
		)
	} else {
		steps = append(steps, Step{Name: "风险提示", Description: "汇总风险讨论结论", Weight: 0.05})
	}

	steps = append(steps, Step{Name: "生成报告", Description: "汇总输出分析报告", Weight: 0.04})

	var sum float64
	for _, s := range steps {
		sum += s.Weight
	}
	for i := range steps {
		steps[i].Weight /= sum
	}
	return steps
}

func analystStepName(key string) string {
	switch key {
	case consts.AnalystMarket:
		return "市场分析"
	case consts.AnalystSocial:
		return "情绪分析"
	case consts.AnalystNews:
		return "新闻分析"
	case consts.AnalystFundamentals:
		return "基本面分析"
	}
	return key
}

// estimateTotalSeconds is an ETA heuristic, not a promise. Depth
// drives both the per-analyst cost and an overall multiplier.
func estimateTotalSeconds(cfg *config.Config, analystCount int) float64 {
	perAnalyst := 120.0
	switch cfg.ResearchDepth {
	case 2:
		perAnalyst = 180
	case 3:
		perAnalyst = 240
	}

	modelMult := 1.0
	if cfg.LLMProvider == "anthropic" {
		modelMult = 1.1
	}

	depthMult := 1.0
	switch cfg.ResearchDepth {
	case 1:
		depthMult = 0.8
	case 3:
		depthMult = 1.3
	}

	return (60 + perAnalyst*float64(analystCount)) * modelMult * depthMult
}

// moduleKeywords maps log keywords to step names for inference.
var moduleKeywords = map[string]string{
	"market_analyst":       "市场分析",
	"market analyst":       "市场分析",
	"social_media_analyst": "情绪分析",
	"social analyst":       "情绪分析",
	"news_analyst":         "新闻分析",
	"news analyst":         "新闻分析",
	"fundamentals_analyst": "基本面分析",
	"fundamentals analyst": "基本面分析",
	"bull_researcher":      "多头研究",
	"bear_researcher":      "空头研究",
	"research_manager":     "观点整合",
	"trader":               "交易决策",
	"risk_manager":         "风险控制决策",
	"graph_signal":         "生成报告",
}

// UpdateProgress records a message and advances the step. Pass a
// negative step to infer it from the message. Step indexes are
// monotonic: inferred decreases are ignored.
func (t *Tracker) UpdateProgress(ctx context.Context, message string, step int) {
	t.mu.Lock()
	r := t.record

	if step < 0 {
		step = t.inferStepLocked(message)
	}
	if step > r.CurrentStep && step < len(r.Steps) {
		r.CurrentStep = step
	}

	if isToolCallMessage(message) {
		r.StepDescription = message
	} else {
		r.StepName = r.Steps[r.CurrentStep].Name
		r.StepDescription = r.Steps[r.CurrentStep].Description
	}
	r.LastMessage = message

	if isCompletionMessage(message) {
		r.CurrentStep = len(r.Steps) - 1
		r.ProgressPercentage = 100
	} else {
		r.ProgressPercentage = t.completedWeightLocked() * 100
	}

	t.refreshTimingLocked()
	t.mu.Unlock()

	t.persist(ctx)
}

// UpdateMessage is UpdateProgress with step inference.
func (t *Tracker) UpdateMessage(ctx context.Context, message string) {
	t.UpdateProgress(ctx, message, -1)
}

// inferStepLocked derives the step index from the fixed keyword table.
// Unknown messages keep the current step.
func (t *Tracker) inferStepLocked(message string) int {
	lower := strings.ToLower(message)

	if strings.Contains(message, "[模块完成]") {
		return t.record.CurrentStep + 1
	}
	if isToolCallMessage(message) {
		return t.record.CurrentStep
	}

	for keyword, stepName := range moduleKeywords {
		if !strings.Contains(lower, keyword) && !strings.Contains(message, stepName) {
			continue
		}
		for i, s := range t.record.Steps {
			if s.Name == stepName {
				return i
			}
		}
	}
	return t.record.CurrentStep
}

func isToolCallMessage(message string) bool {
	return strings.Contains(message, "工具调用") || strings.Contains(message, "[工具]")
}

func isCompletionMessage(message string) bool {
	return strings.Contains(message, "分析完成")
}

// completedWeightLocked sums the weights of finished steps. Progress
// is weighted by the plan, not by step count.
func (t *Tracker) completedWeightLocked() float64 {
	var sum float64
	for i := 0; i < t.record.CurrentStep && i < len(t.record.Steps); i++ {
		sum += t.record.Steps[i].Weight
	}
	if sum > 1 {
		sum = 1
	}
	return sum
}

func (t *Tracker) refreshTimingLocked() {
	r := t.record
	r.LastUpdate = time.Now().UTC()
	r.ElapsedTime = r.LastUpdate.Sub(r.StartTime).Seconds()

	remaining := r.EstimatedTotalTime - r.ElapsedTime
	if remaining <= 0 && r.ProgressPercentage > 0 && r.ProgressPercentage < 100 {
		// Original estimate exhausted; re-derive from observed pace.
		remaining = r.ElapsedTime/(r.ProgressPercentage/100) - r.ElapsedTime
	}
	if remaining < 0 {
		remaining = 0
	}
	r.RemainingTime = remaining
}

// MarkCompleted sets the terminal success state.
func (t *Tracker) MarkCompleted(ctx context.Context, message string, results map[string]interface{}) {
	t.mu.Lock()
	r := t.record
	r.Status = StatusCompleted
	r.CurrentStep = len(r.Steps) - 1
	r.StepName = r.Steps[r.CurrentStep].Name
	r.ProgressPercentage = 100
	r.LastMessage = message
	r.RawResults = results
	t.refreshTimingLocked()
	r.RemainingTime = 0
	t.mu.Unlock()

	t.persist(ctx)
}

// MarkFailed sets the terminal failure state.
func (t *Tracker) MarkFailed(ctx context.Context, cause error) {
	t.mu.Lock()
	r := t.record
	r.Status = StatusFailed
	r.LastMessage = fmt.Sprintf("分析失败: %v", cause)
	t.refreshTimingLocked()
	t.mu.Unlock()

	t.persist(ctx)
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := *t.record
	r.Steps = append([]Step(nil), t.record.Steps...)
	return r
}

func redisKey(analysisID string) string {
	return "progress:" + analysisID
}

func filePath(cfg *config.Config, analysisID string) string {
	return filepath.Join(cfg.DataDir, fmt.Sprintf("progress_%s.json", analysisID))
}

// persist writes the record to the primary store, falling back once to
// the other store on failure.
func (t *Tracker) persist(ctx context.Context) {
	t.mu.Lock()
	payload, err := json.Marshal(t.record)
	id := t.record.AnalysisID
	t.mu.Unlock()
	if err != nil {
		t.log.Errorf("marshal progress record: %v", err)
		return
	}

	if t.client != nil {
		if err := t.client.Set(ctx, redisKey(id), payload, recordTTL).Err(); err == nil {
			return
		} else {
			t.log.Warnf("redis write failed, falling back to file: %v", err)
		}
	}
	if err := t.writeFile(id, payload); err != nil {
		t.log.Errorf("progress file write failed: %v", err)
	}
}

func (t *Tracker) writeFile(id string, payload []byte) error {
	path := filePath(t.cfg, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// GetProgressByID reads a progress record from Redis first, then from
// the file store. client may be nil.
func GetProgressByID(ctx context.Context, cfg *config.Config, client *redis.Client, analysisID string) (*Record, error) {
	if client != nil {
		data, err := client.Get(ctx, redisKey(analysisID)).Bytes()
		if err == nil {
			var r Record
			if err := json.Unmarshal(data, &r); err == nil {
				return &r, nil
			}
		} else if err != redis.Nil {
			logging.Warnf("redis read failed, trying file store: %v", err)
		}
	}

	data, err := os.ReadFile(filePath(cfg, analysisID))
	if err != nil {
		return nil, fmt.Errorf("progress record %s not found: %w", analysisID, err)
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode progress record %s: %w", analysisID, err)
	}
	return &r, nil
}
