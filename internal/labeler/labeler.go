// Package labeler is the client side of the text labeling service: a model
// that returns a short label, summary or JSON verdict for a prompt. Calls are
// best-effort and bounded in time.
package labeler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rcliao/continuity/internal/model"
)

// Options tunes a single Label call.
type Options struct {
	Temperature float64 // always sent; 0 means deterministic
	MaxTokens   int
	JSON        bool // ask for a JSON object response
}

// Labeler returns text for a system and user prompt.
type Labeler interface {
	Label(ctx context.Context, system, user string, opts Options) (string, error)
}

// Func adapts a function to the Labeler interface.
type Func func(ctx context.Context, system, user string, opts Options) (string, error)

func (f Func) Label(ctx context.Context, system, user string, opts Options) (string, error) {
	return f(ctx, system, user, opts)
}

// DefaultTimeout bounds a single Label call.
const DefaultTimeout = 30 * time.Second

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai" | "gemini" | "" (disabled)
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// New builds the configured labeler wrapped with a timeout. It returns
// nil, nil when labeling is disabled.
func New(ctx context.Context, cfg Config) (Labeler, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var l Labeler
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		o, err := NewOpenAI(key, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		l = o
	case "gemini":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		g, err := NewGemini(ctx, key, cfg.Model)
		if err != nil {
			return nil, err
		}
		l = g
	default:
		return nil, fmt.Errorf("unknown labeler provider %q (valid: openai, gemini)", cfg.Provider)
	}
	return WithTimeout(l, timeout), nil
}

type timeoutLabeler struct {
	next    Labeler
	timeout time.Duration
}

// WithTimeout bounds every call to l. A call that errors or exceeds the
// timeout returns an error wrapping model.ErrUpstreamUnavailable.
func WithTimeout(l Labeler, d time.Duration) Labeler {
	return &timeoutLabeler{next: l, timeout: d}
}

type labelResult struct {
	text string
	err  error
}

func (t *timeoutLabeler) Label(ctx context.Context, system, user string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan labelResult, 1)
	go func() {
		text, err := t.next.Label(ctx, system, user, opts)
		done <- labelResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: label timed out after %s", model.ErrUpstreamUnavailable, t.timeout)
			}
			return "", fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: label timed out after %s", model.ErrUpstreamUnavailable, t.timeout)
	}
}
