package integrations

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/pkg/models"
)

func priceItems(amounts ...string) []SoldItem {
	items := make([]SoldItem, len(amounts))
	for i, a := range amounts {
		items[i] = SoldItem{ID: int64(i), Price: decimal.RequireFromString(a)}
	}
	return items
}

func TestComputePriceStatsOddCount(t *testing.T) {
	stats := ComputePriceStats(priceItems("30.00", "10.00", "20.00"))

	assert.Equal(t, 3, stats.SampleSize)
	assert.Equal(t, "10", stats.Min.String())
	assert.Equal(t, "30", stats.Max.String())
	assert.Equal(t, "20", stats.Avg.String())
	assert.Equal(t, "20", stats.Median.String())
}

func TestComputePriceStatsEvenCount(t *testing.T) {
	stats := ComputePriceStats(priceItems("10.00", "20.00", "30.00", "45.00"))

	assert.Equal(t, 4, stats.SampleSize)
	assert.Equal(t, "26.25", stats.Avg.String())
	assert.Equal(t, "25", stats.Median.String())
}

func TestComputePriceStatsSingleItem(t *testing.T) {
	stats := ComputePriceStats(priceItems("13.37"))

	assert.Equal(t, 1, stats.SampleSize)
	assert.Equal(t, "13.37", stats.Min.String())
	assert.Equal(t, "13.37", stats.Max.String())
	assert.Equal(t, "13.37", stats.Median.String())
}

func TestComputePriceStatsExactDecimalAvg(t *testing.T) {
	// 0.1 + 0.2 is exact under decimal math, unlike float64.
	stats := ComputePriceStats(priceItems("0.10", "0.20"))
	assert.Equal(t, "0.15", stats.Avg.String())
}

func newAnalyzerFixture(t *testing.T, vintedHandler http.HandlerFunc) (*MarketAnalyzer, *connectorFixture) {
	t.Helper()
	f := newConnectorFixture(t, nil, vintedHandler)
	analyzer := NewMarketAnalyzer(zap.NewNop(), f.db, f.svc.vinted, f.svc)
	return analyzer, f
}

func TestAnalyzePersistsStats(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/catalog/items" {
			w.Write([]byte(`{"items":[
				{"id":1,"title":"Nike Air Max 90 white","price":{"amount":"40.00"}},
				{"id":2,"title":"Nike Air Max 90 black","price":{"amount":"50.00"}},
				{"id":3,"title":"Nike Air Max 90 grey","price":{"amount":"60.00"}}
			]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderVinted, "token")
	require.NoError(t, err)

	analysis, err := analyzer.Analyze(ctx, f.userID, &models.AnalyzeMarketRequest{
		SearchTerm: "nike air max 90",
		Title:      "Nike Air Max 90 white",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, analysis.SampleSize)
	assert.Equal(t, "40", analysis.MinPrice.String())
	assert.Equal(t, "60", analysis.MaxPrice.String())
	assert.Equal(t, "50", analysis.MedianPrice.String())
	assert.Equal(t, "EUR", analysis.Currency)

	saved, err := analyzer.Analyses(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, analysis.ID, saved[0].ID)
}

func TestAnalyzeRequiresConnection(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, nil)

	_, err := analyzer.Analyze(context.Background(), f.userID, &models.AnalyzeMarketRequest{
		SearchTerm: "anything",
		Title:      "anything",
	})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAnalyzeNoSoldItems(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/catalog/items" {
			w.Write([]byte(`{"items":[]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderVinted, "token")
	require.NoError(t, err)

	_, err = analyzer.Analyze(ctx, f.userID, &models.AnalyzeMarketRequest{
		SearchTerm: "very obscure item",
		Title:      "very obscure item",
	})
	assert.ErrorIs(t, err, ErrNoSoldItems)
}

func TestAnalyzeNoRepresentativeMatch(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/catalog/items" {
			w.Write([]byte(`{"items":[
				{"id":1,"title":"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz","price":{"amount":"10.00"}}
			]}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	_, err := f.svc.Connect(ctx, f.userID, ProviderVinted, "token")
	require.NoError(t, err)

	_, err = analyzer.Analyze(ctx, f.userID, &models.AnalyzeMarketRequest{
		SearchTerm: "nike",
		Title:      "Nike Air Force 1",
	})
	assert.ErrorIs(t, err, ErrNoRepresentative)
}

func TestDeleteAnalysis(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, nil)
	ctx := context.Background()

	analysis := models.MarketAnalysis{
		ID:     uuid.New(),
		UserID: f.userID,
	}
	require.NoError(t, f.db.Create(&analysis).Error)

	require.NoError(t, analyzer.DeleteAnalysis(ctx, f.userID, analysis.ID))

	saved, err := analyzer.Analyses(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDeleteAnalysisWrongUser(t *testing.T) {
	analyzer, f := newAnalyzerFixture(t, nil)

	analysis := models.MarketAnalysis{ID: uuid.New(), UserID: f.userID}
	require.NoError(t, f.db.Create(&analysis).Error)

	err := analyzer.DeleteAnalysis(context.Background(), uuid.New(), analysis.ID)
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}
