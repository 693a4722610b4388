package integrations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/pkg/metrics"
	"github.com/logistix-app/logistix/pkg/models"
)

// Analysis errors surfaced to the API layer.
var (
	ErrNoSoldItems      = errors.New("no sold items found for search term")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrNoRepresentative = errors.New("no representative item matched the title")
)

// defaultAnalysisPages bounds how many catalog pages one analysis fetches.
const defaultAnalysisPages = 3

// PriceStats are the aggregates computed over sold-item prices.
type PriceStats struct {
	SampleSize int
	Min        decimal.Decimal
	Max        decimal.Decimal
	Avg        decimal.Decimal
	Median     decimal.Decimal
}

// MarketAnalyzer runs Vinted sold-item analyses and persists the results.
type MarketAnalyzer struct {
	logger *zap.Logger
	db     *gorm.DB
	vinted *VintedClient
	conns  *Service
}

// NewMarketAnalyzer creates a market analyzer backed by the integrations
// service for credentials.
func NewMarketAnalyzer(logger *zap.Logger, db *gorm.DB, vinted *VintedClient, conns *Service) *MarketAnalyzer {
	return &MarketAnalyzer{
		logger: logger.Named("analyzer"),
		db:     db,
		vinted: vinted,
		conns:  conns,
	}
}

// Analyze fetches sold items for the search term, confirms a representative
// item matches the user's title, computes price statistics and persists them.
func (a *MarketAnalyzer) Analyze(ctx context.Context, userID uuid.UUID, req *models.AnalyzeMarketRequest) (*models.MarketAnalysis, error) {
	conn, err := a.conns.Status(ctx, userID, ProviderVinted)
	if err != nil {
		return nil, err
	}
	if conn.Status == models.ConnectionStatusDisconnected || conn.Credential == "" {
		return nil, ErrNotConnected
	}

	pages := req.Pages
	if pages <= 0 || pages > defaultAnalysisPages {
		pages = defaultAnalysisPages
	}

	items, err := a.vinted.SoldItems(ctx, conn.Credential, req.SearchTerm, pages)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoSoldItems
	}

	if _, ok := FindRepresentativeItem(items, req.Title); !ok {
		return nil, ErrNoRepresentative
	}

	stats := ComputePriceStats(items)
	analysis := &models.MarketAnalysis{
		ID:          uuid.New(),
		UserID:      userID,
		SearchTerm:  req.SearchTerm,
		ItemTitle:   req.Title,
		SampleSize:  stats.SampleSize,
		MinPrice:    stats.Min,
		MaxPrice:    stats.Max,
		AvgPrice:    stats.Avg,
		MedianPrice: stats.Median,
		Currency:    "EUR",
		CreatedAt:   time.Now(),
	}
	if err := a.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	metrics.MarketAnalysesTotal.Inc()
	a.logger.Info("market analysis saved",
		zap.String("user_id", userID.String()),
		zap.String("search_term", req.SearchTerm),
		zap.Int("sample_size", stats.SampleSize))
	return analysis, nil
}

// Analyses lists the user's saved analyses, newest first.
func (a *MarketAnalyzer) Analyses(ctx context.Context, userID uuid.UUID) ([]models.MarketAnalysis, error) {
	var analyses []models.MarketAnalysis
	if err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&analyses).Error; err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes one of the user's analyses.
func (a *MarketAnalyzer) DeleteAnalysis(ctx context.Context, userID, analysisID uuid.UUID) error {
	res := a.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", analysisID, userID).
		Delete(&models.MarketAnalysis{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete analysis: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

// ComputePriceStats aggregates sold-item prices with exact decimal math.
func ComputePriceStats(items []SoldItem) PriceStats {
	prices := make([]decimal.Decimal, len(items))
	for i, item := range items {
		prices[i] = item.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}

	n := len(prices)
	var median decimal.Decimal
	if n%2 == 1 {
		median = prices[n/2]
	} else {
		median = prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2))
	}

	return PriceStats{
		SampleSize: n,
		Min:        prices[0],
		Max:        prices[n-1],
		Avg:        sum.Div(decimal.NewFromInt(int64(n))).Round(2),
		Median:     median.Round(2),
	}
}
