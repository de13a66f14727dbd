package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/set-night/chatbot/internal/config"
	"github.com/set-night/chatbot/internal/domain"
)

const catalogKey = "models"

// PriceCatalog reads model prices from an OpenRouter-compatible /models
// endpoint and caches the list for config.PriceCacheDuration.
type PriceCatalog struct {
	apiKey     string
	url        string
	httpClient *http.Client
	cache      *expirable.LRU[string, []domain.ModelPrice]
}

func NewPriceCatalog(url, apiKey string, client *http.Client) *PriceCatalog {
	if client == nil {
		client = &http.Client{Timeout: config.FetchTimeout}
	}
	return &PriceCatalog{
		apiKey:     apiKey,
		url:        strings.TrimRight(url, "/"),
		httpClient: client,
		cache:      expirable.NewLRU[string, []domain.ModelPrice](1, nil, config.PriceCacheDuration),
	}
}

func (s *PriceCatalog) ListModels(ctx context.Context) ([]domain.ModelPrice, error) {
	if cached, ok := s.cache.Get(catalogKey); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch models: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Data []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Pricing struct {
				Prompt     string `json:"prompt"`
				Completion string `json:"completion"`
			} `json:"pricing"`
			ContextLength int `json:"context_length"`
			TopProvider   struct {
				ContextLength int `json:"context_length"`
			} `json:"top_provider"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.ModelPrice, 0, len(result.Data))
	for _, m := range result.Data {
		// Catalog prices are per token
		promptPrice, _ := strconv.ParseFloat(m.Pricing.Prompt, 64)
		completionPrice, _ := strconv.ParseFloat(m.Pricing.Completion, 64)

		ctxLen := m.ContextLength
		if m.TopProvider.ContextLength > 0 {
			ctxLen = m.TopProvider.ContextLength
		}

		models = append(models, domain.ModelPrice{
			ID:              m.ID,
			Name:            m.Name,
			PromptPrice:     promptPrice * 1_000_000,
			CompletionPrice: completionPrice * 1_000_000,
			ContextLength:   ctxLen,
		})
	}

	s.cache.Add(catalogKey, models)
	return models, nil
}

func (s *PriceCatalog) GetModel(ctx context.Context, modelID string) (*domain.ModelPrice, error) {
	models, err := s.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
}
