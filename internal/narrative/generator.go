// Package narrative turns a consolidated profile into the advisor-facing
// analysis text.
package narrative

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/vista360/internal/model"
	"github.com/sells-group/vista360/internal/resilience"
	"github.com/sells-group/vista360/pkg/anthropic"
)

// Fixed texts stored in place of a generated narrative.
const (
	NoSourcesText = "No se encontró información de este cliente en ningún CRM."
	FailureText   = "No fue posible generar el análisis de este cliente. Revise el perfil consolidado."
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = eris.New("narrative: empty response")

// Generator produces narratives through the Anthropic Messages API.
type Generator struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64
	timeout     time.Duration
	retry       resilience.RetryConfig
	limiter     *rate.Limiter
}

// Config tunes a Generator.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	// Timeout bounds each attempt, not the whole call.
	Timeout time.Duration
	Retry   resilience.RetryConfig
	// RequestsPerSecond <= 0 disables client-side rate limiting.
	RequestsPerSecond float64
}

// New returns a Generator using client.
func New(client anthropic.Client, cfg Config) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	retry := cfg.Retry
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = resilience.RetryOnStatus(anthropic.StatusCode)
	}
	g := &Generator{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		retry:       retry,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := max(int(cfg.RequestsPerSecond), 1)
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// Generate returns the narrative for p. A profile with no sources gets
// NoSourcesText without contacting the service.
func (g *Generator) Generate(ctx context.Context, p *model.ConsolidatedProfile) (string, error) {
	if !p.Found() {
		return NoSourcesText, nil
	}

	prompt, err := BuildPrompt(p)
	if err != nil {
		return "", err
	}
	req := anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      anthropic.CachedSystem(systemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
	}

	retry := g.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("anthropic", p.Identifier)
	}

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "narrative: rate limit wait")
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.client.CreateMessage(attemptCtx, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "narrative: generate %s", p.Identifier)
	}

	resp.Usage.LogCost(g.model, p.Identifier)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.Wrapf(ErrEmptyResponse, "narrative: generate %s", p.Identifier)
	}
	zap.L().Debug("narrative generated",
		zap.String("identifier", p.Identifier),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
