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

// HTTPSafetyChecker calls the safety collaborator's REST API.
type HTTPSafetyChecker struct {
	client *resty.Client
}

// NewHTTPSafetyChecker creates a safety client against the given base URL.
func NewHTTPSafetyChecker(baseURL string) *HTTPSafetyChecker {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &HTTPSafetyChecker{client: c}
}

type checkRequest struct {
	URL string `json:"url"`
}

type checkResponse struct {
	Safe bool `json:"safe"`
}

// Check POSTs the URL to /check and returns the verdict.
func (s *HTTPSafetyChecker) Check(ctx context.Context, url string) (bool, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(&checkRequest{URL: url}).
		Post("/check")
	if err != nil {
		return false, fmt.Errorf("safety request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("safety status %d: %w", resp.StatusCode(), model.ErrUpstream)
	}

	var out checkResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return false, fmt.Errorf("decode safety response: %w", err)
	}
	return out.Safe, nil
}

// Permissive treats every URL as safe. Installed when no checker endpoint is
// configured; the factory logs a warning at startup.
type Permissive struct{}

func (Permissive) Check(context.Context, string) (bool, error) { return true, nil }
