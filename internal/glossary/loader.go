package glossary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNoSource is returned by Load when neither a file nor a URL is given.
var ErrNoSource = errors.New("no glossary source")

// maxGlossaryBytes caps fetched glossary bodies.
const maxGlossaryBytes = 10 << 20

// DefaultCacheTTL is how long a fetched glossary is reused when NewLoader is
// given a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// Loader reads glossaries from disk or over HTTP. Fetched glossaries are
// cached for a limited time; files are always read fresh.
type Loader struct {
	client *http.Client
	cache  *expirable.LRU[string, *Glossary]
	logger *slog.Logger
}

// NewLoader creates a Loader holding up to cacheSize fetched glossaries for
// ttl each. A nil client uses http.DefaultClient.
func NewLoader(client *http.Client, cacheSize int, ttl time.Duration, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if cacheSize <= 0 {
		cacheSize = 1
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Loader{
		client: client,
		cache:  expirable.NewLRU[string, *Glossary](cacheSize, nil, ttl),
		logger: logger.With("component", "glossary_loader"),
	}, nil
}

// Load reads the glossary at path when set, otherwise fetches url.
func (l *Loader) Load(ctx context.Context, path, url, sourceLang string) (*Glossary, error) {
	switch {
	case path != "":
		return l.FromFile(path, sourceLang)
	case url != "":
		return l.FromURL(ctx, url, sourceLang)
	default:
		return nil, ErrNoSource
	}
}

// FromFile parses the glossary file at path.
func (l *Loader) FromFile(path, sourceLang string) (*Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open glossary: %w", err)
	}
	defer func() { _ = f.Close() }()

	g, err := Parse(f, sourceLang)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("glossary loaded from file", "entries", g.Len())
	return g, nil
}

// FromURL fetches and parses a glossary, serving repeated requests for the
// same URL and source language from the cache until the entry expires.
func (l *Loader) FromURL(ctx context.Context, url, sourceLang string) (*Glossary, error) {
	if g, ok := l.cache.Get(cacheKey(url, sourceLang)); ok {
		l.logger.Debug("glossary cache hit", "entries", g.Len())
		return g, nil
	}
	return l.Refresh(ctx, url, sourceLang)
}

// Refresh always fetches url, replacing the cached entry on success and
// dropping it on failure.
func (l *Loader) Refresh(ctx context.Context, url, sourceLang string) (*Glossary, error) {
	key := cacheKey(url, sourceLang)
	g, err := l.fetch(ctx, url, sourceLang)
	if err != nil {
		l.cache.Remove(key)
		return nil, err
	}

	l.cache.Add(key, g)
	l.logger.Info("glossary fetched", "entries", g.Len())
	return g, nil
}

func (l *Loader) fetch(ctx context.Context, url, sourceLang string) (*Glossary, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: unsupported glossary url", ErrInvalidGlossary)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGlossary, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch glossary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch glossary: unexpected status %d", resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, maxGlossaryBytes), sourceLang)
}

func cacheKey(url, sourceLang string) string {
	return normalize(sourceLang) + "\x00" + url
}

// Describe returns the confirmation shown to users after a glossary loads.
func Describe(g *Glossary) string {
	return fmt.Sprintf("Glossary loaded: %d entries.", g.Len())
}
