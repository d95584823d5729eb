package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/diabetes-risk-mcp-server/internal/domain"
)

// scoreRequest is the body sent to the model service.
type scoreRequest struct {
	FeatureNames []string  `json:"feature_names"`
	Features     []float64 `json:"features"`
}

// RemoteModel calls a model server over HTTP. Calls are rate limited and guarded
// by a circuit breaker; a failed call is reported, never retried.
type RemoteModel struct {
	logger     *logrus.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      *ResponseCache
}

// NewRemoteModel creates a new remote model client
func NewRemoteModel(cfg domain.RemoteModelConfig, cache *ResponseCache, logger *logrus.Logger) *RemoteModel {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = 30 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cache == nil {
		cache = newResponseCache(domain.CacheConfig{}, nil, logger)
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model-service",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RemoteModel{
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker:   breaker,
		cache:     cache,
	}
}

// Predict returns the label reported by the model service.
func (m *RemoteModel) Predict(ctx context.Context, features domain.FeatureVector) (int, error) {
	score, err := m.score(ctx, features)
	if err != nil {
		return 0, err
	}
	return score.Label, nil
}

// PredictProbability returns the positive-class probability reported by the model service.
func (m *RemoteModel) PredictProbability(ctx context.Context, features domain.FeatureVector) (float64, error) {
	score, err := m.score(ctx, features)
	if err != nil {
		return 0, err
	}
	return score.Probability, nil
}

// Close releases the response cache.
func (m *RemoteModel) Close() error {
	return m.cache.Close()
}

func (m *RemoteModel) score(ctx context.Context, features domain.FeatureVector) (Score, error) {
	key := Key(features)
	if score, ok := m.cache.Get(ctx, key); ok {
		return score, nil
	}

	if err := m.rateLimit.Wait(ctx); err != nil {
		return Score{}, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := m.breaker.Execute(func() (interface{}, error) {
		return m.post(ctx, features)
	})
	if err != nil {
		return Score{}, err
	}

	score := result.(Score)
	m.cache.Set(ctx, key, score)
	return score, nil
}

func (m *RemoteModel) post(ctx context.Context, features domain.FeatureVector) (Score, error) {
	names := domain.FeatureNames()
	body, err := json.Marshal(scoreRequest{
		FeatureNames: names[:],
		Features:     features[:],
	})
	if err != nil {
		return Score{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Score{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Score{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Score{}, fmt.Errorf("model service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var score Score
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		return Score{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return score, nil
}
