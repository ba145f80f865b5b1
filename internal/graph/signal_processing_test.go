package graph

import (
	"testing"

	"github.com/dyike/TradeMind/internal/models"
)

func TestProcessSignalEmptyInput(t *testing.T) {
	d := ProcessSignal("   \n\t  ")
	if d.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", d.Action)
	}
	if d.TargetPrice != nil {
		t.Fatalf("target price = %v, want nil", *d.TargetPrice)
	}
	if d.Confidence != 0.5 || d.RiskScore != 0.5 {
		t.Fatalf("confidence/risk = %v/%v, want 0.5/0.5", d.Confidence, d.RiskScore)
	}
}

func TestProcessSignalEmbeddedJSON(t *testing.T) {
	text := `综合各方观点，最终决策如下：
{"action": "买入", "target_price": "¥45.80", "confidence": 0.85, "risk_score": 0.3, "reasoning": "基本面稳健且估值偏低"}
请投资者注意风险。`
	d := ProcessSignal(text)
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
	if d.TargetPrice == nil || *d.TargetPrice != 45.80 {
		t.Fatalf("target price = %v, want 45.80", d.TargetPrice)
	}
	if d.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85", d.Confidence)
	}
	if d.Reasoning != "基本面稳健且估值偏低" {
		t.Fatalf("reasoning = %q", d.Reasoning)
	}
}

func TestProcessSignalJSONClampsScores(t *testing.T) {
	d := ProcessSignal(`{"action": "SELL", "confidence": 1.7, "risk_score": -0.2}`)
	if d.Action != models.ActionSell {
		t.Fatalf("action = %q, want sell", d.Action)
	}
	if d.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", d.Confidence)
	}
	if d.RiskScore != 0.0 {
		t.Fatalf("risk score = %v, want 0.0", d.RiskScore)
	}
	if d.Reasoning != defaultReasoning {
		t.Fatalf("reasoning = %q, want fallback", d.Reasoning)
	}
}

func TestProcessSignalRegexSweep(t *testing.T) {
	text := "经过充分讨论，我们建议买入该股票。目标价位：¥52.5。理由：行业景气度回升叠加公司份额扩张。"
	d := ProcessSignal(text)
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
	if d.TargetPrice == nil || *d.TargetPrice != 52.5 {
		t.Fatalf("target price = %v, want 52.5", d.TargetPrice)
	}
	if d.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", d.Confidence)
	}
	if d.Reasoning == defaultReasoning {
		t.Fatalf("reasoning fell back, want extracted fragment")
	}
}

func TestProcessSignalBuyPrecedesHold(t *testing.T) {
	// Buy wins when both verbs appear.
	d := ProcessSignal("短期持有，中期建议买入")
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
}

func TestProcessSignalEnglishTarget(t *testing.T) {
	d := ProcessSignal("Target 200, BUY, confidence 0.8")
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
	if d.TargetPrice == nil || *d.TargetPrice != 200 {
		t.Fatalf("target price = %v, want 200", d.TargetPrice)
	}
	// Regex path ignores inline confidence figures.
	if d.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", d.Confidence)
	}
}

func TestProcessSignalShortLabeledReasoning(t *testing.T) {
	d := ProcessSignal("强烈建议买入，目标价位¥120，理由：基本面改善")
	if d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
	if d.TargetPrice == nil || *d.TargetPrice != 120 {
		t.Fatalf("target price = %v, want 120", d.TargetPrice)
	}
	if d.Reasoning != "基本面改善" {
		t.Fatalf("reasoning = %q, want 基本面改善", d.Reasoning)
	}
}

func TestProcessSignalLowercaseEnglishActions(t *testing.T) {
	if d := ProcessSignal("The verdict is clear: sell into strength."); d.Action != models.ActionSell {
		t.Fatalf("action = %q, want sell", d.Action)
	}
	if d := ProcessSignal("We think you should Buy here."); d.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", d.Action)
	}
}

func TestProcessSignalUSDTargetPrice(t *testing.T) {
	d := ProcessSignal("FINAL TRANSACTION PROPOSAL: **SELL**. Fair value around 120.5美元.")
	if d.Action != models.ActionSell {
		t.Fatalf("action = %q, want sell", d.Action)
	}
	if d.TargetPrice == nil || *d.TargetPrice != 120.5 {
		t.Fatalf("target price = %v, want 120.5", d.TargetPrice)
	}
}

func TestProcessSignalDefaultsToHold(t *testing.T) {
	d := ProcessSignal("市场情况复杂，建议谨慎观望。")
	if d.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", d.Action)
	}
	if d.TargetPrice != nil {
		t.Fatalf("target price = %v, want nil", *d.TargetPrice)
	}
}
