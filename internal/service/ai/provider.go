package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FallbackReply replaces the assistant turn whenever the provider call fails.
const FallbackReply = "Sorry, there was an error. Please try again later."

var (
	// ErrProviderCallFailed matches every provider failure: transport errors,
	// non-success statuses, malformed payloads and provider-side exceptions.
	ErrProviderCallFailed = errors.New("provider call failed")
	// ErrNotConfigured is returned by NewProvider when credentials are missing.
	ErrNotConfigured = errors.New("ai provider not configured")
)

// Provider sends one user prompt to a text-generation backend and returns the reply.
type Provider interface {
	Name() string
	SendPrompt(ctx context.Context, text string) (string, error)
}

// CallError wraps the cause of a failed provider call.
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Provider, ErrProviderCallFailed, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *CallError) Unwrap() []error {
	return []error{ErrProviderCallFailed, e.Err}
}

// callFailed normalises err into a CallError unless it already is one.
func callFailed(provider string, err error) error {
	if err == nil {
		return nil
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return err
	}
	return &CallError{Provider: provider, Err: err}
}

// ReplyOrFallback runs one provider call. Failures are logged and replaced by
// FallbackReply; the second return value reports whether the call succeeded.
func ReplyOrFallback(ctx context.Context, p Provider, text string, logger *zap.Logger) (string, bool) {
	reply, err := p.SendPrompt(ctx, text)
	if err != nil {
		err = callFailed(p.Name(), err)
		if logger != nil {
			logger.Error("error communicating with chatbot",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		}
		return FallbackReply, false
	}
	return reply, true
}

// WithTimeout bounds every SendPrompt call. A non-positive timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: timeout}
}

type timeoutProvider struct {
	Provider
	timeout time.Duration
}

func (p *timeoutProvider) SendPrompt(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.Provider.SendPrompt(callCtx, text)
}
