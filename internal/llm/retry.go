package llm

import (
	"context"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/rs/zerolog"
)

// RetryOptions shapes the retry layer around a backend client.
type RetryOptions struct {
	Attempts    int
	InitialWait time.Duration
	MaxWait     time.Duration
	CallTimeout time.Duration
	Logger      zerolog.Logger
}

func (o *RetryOptions) fillDefaults() {
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.InitialWait <= 0 {
		o.InitialWait = time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 8 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
}

// RetryingClient wraps a Client with exponential backoff on transient errors
// and a per-attempt timeout. Non-transient errors abort immediately.
type RetryingClient struct {
	inner Client
	opts  RetryOptions
}

func NewRetryingClient(inner Client, opts RetryOptions) *RetryingClient {
	opts.fillDefaults()
	return &RetryingClient{inner: inner, opts: opts}
}

func (c *RetryingClient) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0
	timeout := c.opts.CallTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	r := retry.NewRetrier(c.opts.Attempts, c.opts.InitialWait, c.opts.MaxWait)
	err := r.RunContext(ctx, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		text, err := c.inner.Generate(callCtx, req)
		if err != nil {
			if callCtx.Err() != nil && ctx.Err() == nil {
				err = Transient(err)
			}
			if !IsTransient(err) {
				return retry.Stop(err)
			}
			c.opts.Logger.Warn().
				Int("attempt", attempt).
				Err(err).
				Msg("transient backend error, retrying")
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
