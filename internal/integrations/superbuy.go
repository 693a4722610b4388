package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Parcel is one forwarded package tracked through Superbuy.
type Parcel struct {
	OrderNo   string `json:"order_no"`
	Status    string `json:"status"`
	Carrier   string `json:"carrier"`
	TrackingN string `json:"tracking_number"`
}

// SuperbuyClient talks to the Superbuy front API with a user session cookie.
type SuperbuyClient struct {
	logger  *zap.Logger
	baseURL string
	client  *http.Client
}

// NewSuperbuyClient creates a Superbuy API client.
func NewSuperbuyClient(logger *zap.Logger, baseURL string, timeout time.Duration) *SuperbuyClient {
	return &SuperbuyClient{
		logger:  logger.Named("superbuy"),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ValidateCookie checks the session cookie against the member endpoint.
func (s *SuperbuyClient) ValidateCookie(ctx context.Context, cookie string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/member/info", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	s.decorate(req, cookie)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("superbuy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrCredentialRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("superbuy: status %d", resp.StatusCode)
	}
	return nil
}

// FetchParcels lists the account's parcels for a sync run.
func (s *SuperbuyClient) FetchParcels(ctx context.Context, cookie string) ([]Parcel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/package/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	s.decorate(req, cookie)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("superbuy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrCredentialRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("superbuy: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload struct {
		Data struct {
			Packages []struct {
				OrderNo        string `json:"orderNo"`
				Status         string `json:"statusName"`
				Carrier        string `json:"carrierName"`
				TrackingNumber string `json:"trackingNumber"`
			} `json:"packageList"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid superbuy response: %w", err)
	}

	parcels := make([]Parcel, 0, len(payload.Data.Packages))
	for _, p := range payload.Data.Packages {
		parcels = append(parcels, Parcel{
			OrderNo:   p.OrderNo,
			Status:    p.Status,
			Carrier:   p.Carrier,
			TrackingN: p.TrackingNumber,
		})
	}
	return parcels, nil
}

func (s *SuperbuyClient) decorate(req *http.Request, cookie string) {
	req.Header.Set("Cookie", cookie)
	req.Header.Set("User-Agent", "Logistix/1.0")
	req.Header.Set("Accept", "application/json")
}
