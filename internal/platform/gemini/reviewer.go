package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/transcheck-api/internal/config"
	"github.com/phrazzld/transcheck-api/internal/inspection"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the reviewer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Reviewer implements inspection.Reviewer using the Gemini API.
type Reviewer struct {
	logger    *slog.Logger
	models    contentGenerator
	model     string
	retries   int
	baseDelay time.Duration

	// backoff returns the wait before retry number attempt (0-based).
	backoff func(attempt int) time.Duration
}

var _ inspection.Reviewer = (*Reviewer)(nil)

// NewReviewer creates a Gemini-backed reviewer. cfg.GeminiAPIKey must be
// set; segments that name no model use cfg.DefaultModel.
func NewReviewer(ctx context.Context, logger *slog.Logger, cfg config.CheckerConfig) (*Reviewer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newReviewer(client.Models, logger, cfg)
}

func newReviewer(models contentGenerator, logger *slog.Logger, cfg config.CheckerConfig) (*Reviewer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.DefaultModel == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	logger = logger.With("component", "gemini_reviewer")

	retries := cfg.MaxRetries
	if retries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		retries = 3
	}
	delaySeconds := cfg.RetryDelaySeconds
	if delaySeconds < 1 {
		logger.Warn("invalid retry delay value, using default", "base_delay_seconds", 2)
		delaySeconds = 2
	}

	r := &Reviewer{
		logger:    logger,
		models:    models,
		model:     cfg.DefaultModel,
		retries:   retries,
		baseDelay: time.Duration(delaySeconds) * time.Second,
	}
	r.backoff = r.jitteredBackoff
	return r, nil
}

// Review asks Gemini for a verdict on seg.
func (r *Reviewer) Review(ctx context.Context, seg inspection.Segment) (inspection.Verdict, error) {
	prompt, err := renderPrompt(seg)
	if err != nil {
		return inspection.Verdict{}, err
	}

	model := seg.Model
	if model == "" {
		model = r.model
	}

	text, err := r.generateWithRetry(ctx, model, prompt)
	if err != nil {
		return inspection.Verdict{}, err
	}

	var verdict inspection.Verdict
	if err := json.Unmarshal([]byte(stripFence(text)), &verdict); err != nil {
		return inspection.Verdict{}, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	if !verdict.OK && len(verdict.Issues) == 0 && verdict.Suggestion == "" {
		return inspection.Verdict{}, fmt.Errorf("%w: negative verdict without issues", ErrInvalidResponse)
	}
	return verdict, nil
}

// generateWithRetry calls the API up to retries+1 times. Blocked or
// unusable responses and client errors are returned without retrying.
func (r *Reviewer) generateWithRetry(ctx context.Context, model, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}

	for attempt := 0; ; attempt++ {
		text, err := r.generate(ctx, model, prompt, cfg)
		if err == nil {
			r.logger.DebugContext(ctx, "gemini call succeeded", "attempt", attempt+1)
			return text, nil
		}

		r.logger.WarnContext(ctx, "gemini call failed",
			"attempt", attempt+1,
			"max_attempts", r.retries+1,
			"error", err)

		if !isTransient(err) {
			return "", err
		}
		if attempt >= r.retries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, r.retries, err)
		}

		delay := r.backoff(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

func (r *Reviewer) generate(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := r.models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	switch {
	case err != nil:
		return "", err
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "":
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty text in response", ErrInvalidResponse)
	}
	return b.String(), nil
}

// jitteredBackoff is baseDelay * 2^attempt * [0.5, 1.0).
func (r *Reviewer) jitteredBackoff(attempt int) time.Duration {
	backoff := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	return time.Duration(backoff * (0.5 + rand.Float64()*0.5))
}

func isTransient(err error) bool {
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrContentBlocked) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

// stripFence removes a Markdown code fence some models wrap JSON replies in.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
