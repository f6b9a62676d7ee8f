// Package searchengine is the free-text search collaborator boundary.
// Ranking lives in an external service; this package only carries queries
// over and hit lists back.
package searchengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/devshelf/devshelf/internal/model"
)

// Engine answers free-text queries with ranked resource ids.
type Engine interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error)
}

// HTTPEngine calls the search collaborator's REST API.
type HTTPEngine struct {
	client *resty.Client
}

// NewHTTPEngine creates a search client against the given base URL.
func NewHTTPEngine(baseURL string) *HTTPEngine {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &HTTPEngine{client: c}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Hits []model.SearchHit `json:"hits"`
}

func (e *HTTPEngine) Search(ctx context.Context, query string, limit int) ([]model.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", model.ErrValidation)
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&searchRequest{Query: query, Limit: limit}).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("search status %d: %w", resp.StatusCode(), model.ErrUpstream)
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Hits, nil
}

// Disabled is installed when no search endpoint is configured. Every query
// reports the engine unavailable.
type Disabled struct{}

func (Disabled) Search(context.Context, string, int) ([]model.SearchHit, error) {
	return nil, fmt.Errorf("search engine not configured: %w", model.ErrUnavailable)
}
