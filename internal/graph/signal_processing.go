package graph

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/dyike/TradeMind/internal/models"
)

const defaultReasoning = "基于综合分析的投资建议"

var actionSynonyms = map[string]string{
	"buy":      models.ActionBuy,
	"BUY":      models.ActionBuy,
	"购买":       models.ActionBuy,
	"买入":       models.ActionBuy,
	"purchase": models.ActionBuy,
	"hold":     models.ActionHold,
	"HOLD":     models.ActionHold,
	"持有":       models.ActionHold,
	"keep":     models.ActionHold,
	"sell":     models.ActionSell,
	"SELL":     models.ActionSell,
	"卖出":       models.ActionSell,
	"出售":       models.ActionSell,
}

var (
	jsonObjectRe = regexp.MustCompile(`\{[^{}]*"action"[^{}]*\}`)

	buyRe  = regexp.MustCompile(`买入|(?i:buy)`)
	sellRe = regexp.MustCompile(`卖出|(?i:sell)`)
	holdRe = regexp.MustCompile(`持有|(?i:hold)`)

	targetPriceRes = []*regexp.Regexp{
		regexp.MustCompile(`目标价[位格]?[:：]?\s*[¥$]?(\d+\.?\d*)`),
		regexp.MustCompile(`目标[:：]?\s*[¥$]?(\d+\.?\d*)`),
		regexp.MustCompile(`(?i)target\s*(?:price)?\s*[:：]?\s*[¥$]?(\d+\.?\d*)`),
		regexp.MustCompile(`[¥$](\d+\.?\d*)`),
		regexp.MustCompile(`(\d+\.?\d*)\s*美元`),
		regexp.MustCompile(`看[到至]\s*[¥$]?(\d+\.?\d*)`),
		regexp.MustCompile(`上涨[到至]\s*[¥$]?(\d+\.?\d*)`),
	}

	reasoningRe = regexp.MustCompile(`(?:理由|原因|依据|建议|摘要|结论)[:：]\s*(.{1,100})`)
)

// ProcessSignal derives a structured trading decision from the risk
// judge's free-form verdict. It never fails: unparseable input yields
// a neutral hold decision.
func ProcessSignal(text string) models.Decision {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Decision{
			Action:     models.ActionHold,
			Confidence: 0.5,
			RiskScore:  0.5,
			Reasoning:  "输入内容无效",
		}
	}

	if d, ok := decisionFromJSON(text); ok {
		return d
	}
	return decisionFromText(text)
}

type embeddedDecision struct {
	Action      string          `json:"action"`
	TargetPrice json.RawMessage `json:"target_price"`
	Confidence  json.RawMessage `json:"confidence"`
	RiskScore   json.RawMessage `json:"risk_score"`
	Reasoning   string          `json:"reasoning"`
}

// decisionFromJSON looks for a JSON object with an "action" field
// embedded anywhere in the text.
func decisionFromJSON(text string) (models.Decision, bool) {
	raw := jsonObjectRe.FindString(text)
	if raw == "" {
		return models.Decision{}, false
	}
	var ed embeddedDecision
	if err := json.Unmarshal([]byte(raw), &ed); err != nil {
		return models.Decision{}, false
	}
	action, ok := actionSynonyms[strings.TrimSpace(ed.Action)]
	if !ok {
		action, ok = actionSynonyms[strings.ToLower(strings.TrimSpace(ed.Action))]
		if !ok {
			return models.Decision{}, false
		}
	}

	d := models.Decision{
		Action:      action,
		TargetPrice: parsePrice(ed.TargetPrice),
		Confidence:  clamp01(parseScore(ed.Confidence)),
		RiskScore:   clamp01(parseScore(ed.RiskScore)),
		Reasoning:   strings.TrimSpace(ed.Reasoning),
	}
	if d.Reasoning == "" {
		d.Reasoning = defaultReasoning
	}
	return d, true
}

func decisionFromText(text string) models.Decision {
	action := models.ActionHold
	switch {
	case buyRe.MatchString(text):
		action = models.ActionBuy
	case sellRe.MatchString(text):
		action = models.ActionSell
	case holdRe.MatchString(text):
		action = models.ActionHold
	}

	var target *float64
	for _, re := range targetPriceRes {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			target = &v
			break
		}
	}

	reasoning := defaultReasoning
	if m := reasoningRe.FindStringSubmatch(text); len(m) >= 2 {
		reasoning = strings.TrimSpace(m[1])
	}

	return models.Decision{
		Action:      action,
		TargetPrice: target,
		Confidence:  0.7,
		RiskScore:   0.5,
		Reasoning:   reasoning,
	}
}

// parsePrice accepts both numeric and string-typed prices, stripping
// currency markers from the latter.
func parsePrice(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num > 0 {
			return &num
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.NewReplacer("$", "", "¥", "", "美元", "", "元", "", ",", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func parseScore(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0.5
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0.5
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.5
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
