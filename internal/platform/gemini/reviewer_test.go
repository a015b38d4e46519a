package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/phrazzld/transcheck-api/internal/config"
	"github.com/phrazzld/transcheck-api/internal/inspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeGenerator replays scripted responses.
type fakeGenerator struct {
	GenerateFn func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)
	calls      int
	lastModel  string
	lastPrompt string
}

func (f *fakeGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	_ *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.lastModel = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.lastPrompt = contents[0].Parts[0].Text
	}
	return f.GenerateFn(ctx, model, contents)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testConfig() config.CheckerConfig {
	return config.CheckerConfig{
		DefaultModel:       "gemini-test",
		MaxRetries:         2,
		RetryDelaySeconds:  1,
		HTTPTimeoutSeconds: 5,
	}
}

func newTestReviewer(t *testing.T, gen *fakeGenerator) *Reviewer {
	t.Helper()
	r, err := newReviewer(gen, slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())
	require.NoError(t, err)
	r.backoff = func(int) time.Duration { return time.Millisecond }
	return r
}

var segment = inspection.Segment{
	Sheet:      "Menu",
	Cell:       "C7",
	Source:     "Start game",
	Target:     "게임 시작",
	SourceLang: "English",
	TargetLang: "Korean",
	TargetCode: "ko_KR",
}

func TestReviewer_Review(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		want     inspection.Verdict
		wantErr  error
		segModel string
	}{
		{
			name:  "approved",
			reply: `{"ok": true}`,
			want:  inspection.Verdict{OK: true},
		},
		{
			name:     "issues in fenced reply",
			reply:    "```json\n{\"ok\": false, \"issues\": [\"Wrong tone.\"], \"suggestion\": \"게임 시작하기\"}\n```",
			want:     inspection.Verdict{Issues: []string{"Wrong tone."}, Suggestion: "게임 시작하기"},
			segModel: "gemini-pro",
		},
		{
			name:    "not json",
			reply:   "looks fine to me",
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "negative without detail",
			reply:   `{"ok": false}`,
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{GenerateFn: func(context.Context, string, []*genai.Content) (*genai.GenerateContentResponse, error) {
				return textResponse(tt.reply), nil
			}}
			r := newTestReviewer(t, gen)

			seg := segment
			seg.Model = tt.segModel
			got, err := r.Review(context.Background(), seg)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 1, gen.calls, "permanent failures are not retried")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			wantModel := tt.segModel
			if wantModel == "" {
				wantModel = "gemini-test"
			}
			assert.Equal(t, wantModel, gen.lastModel)
			assert.Contains(t, gen.lastPrompt, "Korean (ko_KR)")
			assert.Contains(t, gen.lastPrompt, "Start game")
			assert.Contains(t, gen.lastPrompt, "게임 시작")
		})
	}
}

func TestReviewer_RetriesTransientFailures(t *testing.T) {
	gen := &fakeGenerator{}
	gen.GenerateFn = func(context.Context, string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		if gen.calls < 3 {
			return nil, genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}
		}
		return textResponse(`{"ok": true}`), nil
	}

	v, err := newTestReviewer(t, gen).Review(context.Background(), segment)
	require.NoError(t, err)
	assert.True(t, v.OK)
	assert.Equal(t, 3, gen.calls)
}

func TestReviewer_GivesUpAfterMaxRetries(t *testing.T) {
	gen := &fakeGenerator{GenerateFn: func(context.Context, string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("connection reset")
	}}

	_, err := newTestReviewer(t, gen).Review(context.Background(), segment)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.Equal(t, 3, gen.calls)
}

func TestReviewer_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr error
	}{
		{
			name: "client error",
			err:  genai.APIError{Code: http.StatusBadRequest, Message: "bad model"},
		},
		{
			name:    "safety block",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			wantErr: ErrContentBlocked,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "nil response",
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{GenerateFn: func(context.Context, string, []*genai.Content) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}}

			_, err := newTestReviewer(t, gen).Review(context.Background(), segment)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NotErrorIs(t, err, ErrTransientFailure)
			assert.Equal(t, 1, gen.calls)
		})
	}
}

func TestReviewer_CancelledDuringBackoff(t *testing.T) {
	gen := &fakeGenerator{GenerateFn: func(context.Context, string, []*genai.Content) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("timeout")
	}}
	r := newTestReviewer(t, gen)
	r.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Review(ctx, segment)
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.Equal(t, 1, gen.calls)
}

func TestReviewer_EmptySegment(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := newTestReviewer(t, gen).Review(context.Background(), inspection.Segment{Target: "x"})
	assert.ErrorIs(t, err, ErrEmptySegment)
	assert.Zero(t, gen.calls)
}

func TestNewReviewer_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewReviewer(context.Background(), logger, testConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig, "api key is required")

	cfg := testConfig()
	cfg.DefaultModel = ""
	_, err = newReviewer(&fakeGenerator{}, logger, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = newReviewer(&fakeGenerator{}, nil, testConfig())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.MaxRetries = -1
	cfg.RetryDelaySeconds = 0
	r, err := newReviewer(&fakeGenerator{}, logger, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, r.retries)
	assert.Equal(t, 2*time.Second, r.baseDelay)
}

func TestJitteredBackoff(t *testing.T) {
	r, err := newReviewer(&fakeGenerator{}, slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig())
	require.NoError(t, err)

	for attempt := range 3 {
		d := r.jitteredBackoff(attempt)
		full := time.Second << attempt
		assert.GreaterOrEqual(t, d, full/2)
		assert.Less(t, d, full)
	}
}
