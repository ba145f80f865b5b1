package models

import "time"

// Trading actions produced by the signal processor.
const (
	ActionBuy  = "buy"
	ActionHold = "hold"
	ActionSell = "sell"
)

// Decision is the structured verdict extracted from the risk judge's
// free-form text.
type Decision struct {
	Action      string   `json:"action"`
	TargetPrice *float64 `json:"target_price"`
	Confidence  float64  `json:"confidence"`
	RiskScore   float64  `json:"risk_score"`
	Reasoning   string   `json:"reasoning"`
}

// ReportRecord is the durable artifact persisted per analysis.
type ReportRecord struct {
	AnalysisID      string            `bson:"analysis_id" json:"analysis_id"`
	StockSymbol     string            `bson:"stock_symbol" json:"stock_symbol"`
	AnalysisDate    string            `bson:"analysis_date" json:"analysis_date"`
	Timestamp       time.Time         `bson:"timestamp" json:"timestamp"`
	Status          string            `bson:"status" json:"status"`
	Analysts        []string          `bson:"analysts" json:"analysts"`
	ResearchDepth   int               `bson:"research_depth" json:"research_depth"`
	Reports         map[string]string `bson:"reports" json:"reports"`
	Summary         string            `bson:"summary" json:"summary"`
	FormattedResult string            `bson:"formatted_result,omitempty" json:"formatted_result,omitempty"`
}

// MemoryEntry is a stored (situation, recommendation) pair with its
// embedding.
type MemoryEntry struct {
	Situation      string    `json:"situation"`
	Recommendation string    `json:"recommendation"`
	Embedding      []float64 `json:"embedding"`
}

// MemoryMatch is a retrieval result scored by cosine similarity.
type MemoryMatch struct {
	Situation      string  `json:"situation"`
	Recommendation string  `json:"recommendation"`
	Score          float64 `json:"score"`
}
