package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// soldItemsPerPage matches the Vinted catalog API page size.
const soldItemsPerPage = 96

// SoldItem is one sold listing returned by the Vinted catalog search.
type SoldItem struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Brand string          `json:"brand"`
	Size  string          `json:"size"`
	URL   string          `json:"url"`
}

// VintedClient talks to the Vinted catalog API with a user access token.
type VintedClient struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewVintedClient creates a Vinted API client.
func NewVintedClient(logger *zap.Logger, baseURL string, timeout time.Duration) *VintedClient {
	return &VintedClient{
		logger:  logger.Named("vinted"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ValidateToken checks the access token by hitting the brands endpoint.
func (v *VintedClient) ValidateToken(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/v2/brands?per_page=1", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	v.decorate(req, accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("vinted request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrCredentialRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vinted: status %d", resp.StatusCode)
	}
	return nil
}

// SoldItems fetches sold listings matching the search text, up to the given
// number of pages.
func (v *VintedClient) SoldItems(ctx context.Context, accessToken, searchText string, pages int) ([]SoldItem, error) {
	if pages < 1 {
		pages = 1
	}

	var items []SoldItem
	for page := 1; page <= pages; page++ {
		params := url.Values{}
		params.Set("search_text", searchText)
		params.Set("order", "relevance")
		params.Set("is_for_sale", "0")
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(soldItemsPerPage))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			v.baseURL+"/api/v2/catalog/items?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		v.decorate(req, accessToken)

		resp, err := v.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("vinted request failed: %w", err)
		}

		batch, err := decodeSoldItems(resp)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
		if len(batch) < soldItemsPerPage {
			break
		}
	}
	return items, nil
}

func (v *VintedClient) decorate(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", "Logistix/1.0")
	req.Header.Set("Accept", "application/json")
}

func decodeSoldItems(resp *http.Response) ([]SoldItem, error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrCredentialRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vinted: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Items []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
			Price struct {
				Amount       string `json:"amount"`
				CurrencyCode string `json:"currency_code"`
			} `json:"price"`
			BrandTitle string `json:"brand_title"`
			SizeTitle  string `json:"size_title"`
			URL        string `json:"url"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid vinted response: %w", err)
	}

	items := make([]SoldItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		price, err := decimal.NewFromString(it.Price.Amount)
		if err != nil {
			continue
		}
		items = append(items, SoldItem{
			ID:    it.ID,
			Title: it.Title,
			Price: price,
			Brand: it.BrandTitle,
			Size:  it.SizeTitle,
			URL:   it.URL,
		})
	}
	return items, nil
}

// FindRepresentativeItem picks the sold item whose title best matches the
// target, using normalized Levenshtein similarity. Returns false when no item
// clears the similarity floor.
func FindRepresentativeItem(items []SoldItem, targetTitle string) (SoldItem, bool) {
	const similarityFloor = 0.3

	best := SoldItem{}
	bestScore := -1.0
	target := normalizeTitle(targetTitle)

	for _, item := range items {
		score := titleSimilarity(target, normalizeTitle(item.Title))
		if score > bestScore {
			best = item
			bestScore = score
		}
	}
	if bestScore < similarityFloor {
		return SoldItem{}, false
	}
	return best, true
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// titleSimilarity maps Levenshtein distance into [0,1], 1 being identical.
func titleSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
