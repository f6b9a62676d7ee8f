package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/devshelf/devshelf/internal/model"
)

// HTTPScraper calls the scraper collaborator's REST API.
type HTTPScraper struct {
	client *resty.Client
}

// NewHTTPScraper creates a scraper client against the given base URL.
func NewHTTPScraper(baseURL string) *HTTPScraper {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &HTTPScraper{client: c}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

// Scrape POSTs the URL to /scrape and decodes the page representation.
func (s *HTTPScraper) Scrape(ctx context.Context, url string) (*model.Page, error) {
	if url == "" {
		return nil, fmt.Errorf("scrape: %w", model.ErrValidation)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&scrapeRequest{URL: url}).
		Post("/scrape")
	if err != nil {
		return nil, fmt.Errorf("scraper request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("scraper status %d: %w", resp.StatusCode(), model.ErrUpstream)
	}

	var page model.Page
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("decode scraper response: %w", err)
	}
	if page.URL == "" {
		page.URL = url
	}
	return &page, nil
}

// HealthPing implements health.HealthPinger against the scraper's health
// endpoint.
func (s *HTTPScraper) HealthPing(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("scraper health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("scraper health status %d", resp.StatusCode())
	}
	return nil
}
