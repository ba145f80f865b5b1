package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/models"
)

const (
	reportCollection = "analysis_reports"
	reportTTL        = 30 * 24 * time.Hour
)

// ReportStore persists analysis reports in MongoDB, keyed for both
// id lookup and (symbol, date) freshness queries.
type ReportStore struct {
	coll *mongo.Collection
	log  *logging.Logger
}

// NewReportStore connects to MongoDB and ensures the indexes. The TTL
// index bounds storage to thirty days.
func NewReportStore(ctx context.Context, cfg *config.Config) (*ReportStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI()))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	store := &ReportStore{
		coll: client.Database(cfg.Mongo.Database).Collection(reportCollection),
		log:  logging.ForComponent("report_store"),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ReportStore) ensureIndexes(ctx context.Context) error {
	ttlSeconds := int32(reportTTL / time.Second)
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "stock_symbol", Value: 1},
				{Key: "analysis_date", Value: -1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "analysis_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(ttlSeconds),
		},
	})
	if err != nil {
		return fmt.Errorf("create report indexes: %w", err)
	}
	return nil
}

// SaveReport upserts a report by analysis id.
func (s *ReportStore) SaveReport(ctx context.Context, record *models.ReportRecord) error {
	if record.AnalysisID == "" {
		return fmt.Errorf("report record has no analysis id")
	}
	// Filters are built from typed string values only, never from
	// caller-supplied documents.
	filter := bson.D{{Key: "analysis_id", Value: record.AnalysisID}}
	_, err := s.coll.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save report %s: %w", record.AnalysisID, err)
	}
	s.log.Debugf("saved report %s for %s/%s", record.AnalysisID, record.StockSymbol, record.AnalysisDate)
	return nil
}

// GetReportByID fetches one report.
func (s *ReportStore) GetReportByID(ctx context.Context, analysisID string) (*models.ReportRecord, error) {
	filter := bson.D{{Key: "analysis_id", Value: analysisID}}
	var record models.ReportRecord
	err := s.coll.FindOne(ctx, filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("report %s not found", analysisID)
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", analysisID, err)
	}
	return &record, nil
}

// GetLatestReport returns the newest completed report for the symbol
// and date if it is younger than maxAge, else nil.
func (s *ReportStore) GetLatestReport(ctx context.Context, symbol, date string, maxAge time.Duration) (*models.ReportRecord, error) {
	filter := bson.D{
		{Key: "stock_symbol", Value: symbol},
		{Key: "analysis_date", Value: date},
		{Key: "status", Value: "completed"},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var record models.ReportRecord
	err := s.coll.FindOne(ctx, filter, opts).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest report for %s/%s: %w", symbol, date, err)
	}
	if time.Since(record.Timestamp) > maxAge {
		return nil, nil
	}
	return &record, nil
}

// ListReports returns the most recent reports for a symbol, newest
// first.
func (s *ReportStore) ListReports(ctx context.Context, symbol string, limit int64) ([]*models.ReportRecord, error) {
	filter := bson.D{{Key: "stock_symbol", Value: symbol}}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", symbol, err)
	}
	defer cur.Close(ctx)

	var records []*models.ReportRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode reports for %s: %w", symbol, err)
	}
	return records, nil
}
