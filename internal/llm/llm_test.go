package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type scriptedClient struct {
	calls   int
	outputs []string
	errs    []error
}

func (s *scriptedClient) Generate(ctx context.Context, req Request) (string, error) {
	i := s.calls
	s.calls++
	var out string
	var err error
	if i < len(s.outputs) {
		out = s.outputs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func TestRetryingClientRetriesTransientErrors(t *testing.T) {
	inner := &scriptedClient{
		outputs: []string{"", "", "hello"},
		errs:    []error{Transient(errors.New("flaky")), Transient(errors.New("flaky")), nil},
	}
	c := NewRetryingClient(inner, RetryOptions{InitialWait: time.Millisecond, MaxWait: time.Millisecond})
	out, err := c.Generate(context.Background(), Request{User: "hi"})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if out != "hello" || inner.calls != 3 {
		t.Fatalf("got %q after %d calls", out, inner.calls)
	}
}

type deadlineClient struct {
	remaining time.Duration
}

func (d *deadlineClient) Generate(ctx context.Context, req Request) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		d.remaining = time.Until(deadline)
	}
	return "ok", nil
}

func TestRetryingClientHonorsRequestTimeout(t *testing.T) {
	inner := &deadlineClient{}
	c := NewRetryingClient(inner, RetryOptions{CallTimeout: time.Minute})
	if _, err := c.Generate(context.Background(), Request{User: "hi", Timeout: 50 * time.Millisecond}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inner.remaining <= 0 || inner.remaining > time.Second {
		t.Fatalf("per-request timeout not applied, %v left on the attempt", inner.remaining)
	}

	// without an override the wrapper default applies
	inner = &deadlineClient{}
	c = NewRetryingClient(inner, RetryOptions{CallTimeout: time.Minute})
	if _, err := c.Generate(context.Background(), Request{User: "hi"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inner.remaining < 30*time.Second {
		t.Fatalf("wrapper default timeout not applied, %v left on the attempt", inner.remaining)
	}
}

func TestRetryingClientStopsOnFatalErrors(t *testing.T) {
	inner := &scriptedClient{errs: []error{Fatal(errors.New("bad key"))}}
	c := NewRetryingClient(inner, RetryOptions{InitialWait: time.Millisecond, MaxWait: time.Millisecond})
	_, err := c.Generate(context.Background(), Request{User: "hi"})
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("fatal error should not be retried, got %d calls", inner.calls)
	}
}

func TestRetryingClientGivesUpAfterAttempts(t *testing.T) {
	inner := &scriptedClient{errs: []error{
		Transient(errors.New("flaky")),
		Transient(errors.New("flaky")),
		Transient(errors.New("flaky")),
	}}
	c := NewRetryingClient(inner, RetryOptions{Attempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond})
	if _, err := c.Generate(context.Background(), Request{User: "hi"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestOpenAIClientGenerate(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"a post"}}]}`)
	})
	out, err := c.Generate(context.Background(), Request{System: "s", User: "u", Temperature: 0.7})
	if err != nil || out != "a post" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestOpenAIClientRefusalYieldsEmpty(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"","refusal":"cannot help"}}]}`)
	})
	out, err := c.Generate(context.Background(), Request{User: "u"})
	if err != nil || out != "" {
		t.Fatalf("refusal should yield empty output, got %q, %v", out, err)
	}
}

func TestOpenAIClientStatusClassification(t *testing.T) {
	overloaded := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := overloaded.Generate(context.Background(), Request{User: "u"})
	if !IsTransient(err) {
		t.Fatalf("429 should be transient, got %v", err)
	}

	rejected := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err = rejected.Generate(context.Background(), Request{User: "u"})
	if IsTransient(err) || !errors.Is(err, ErrBackend) {
		t.Fatalf("401 should be a fatal backend error, got %v", err)
	}
}

func TestOpenAIClientEmbed(t *testing.T) {
	c := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	})
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil || len(vec) != 3 {
		t.Fatalf("got %v, %v", vec, err)
	}
}

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls++
	return []float64{float64(len(text)), 1}, nil
}

func TestMemoEmbedderCaches(t *testing.T) {
	inner := &countingEmbedder{}
	m := NewMemoEmbedder(inner)
	ctx := context.Background()
	a, _ := m.Embed(ctx, "same text")
	b, _ := m.Embed(ctx, "same text")
	if inner.calls != 1 {
		t.Fatalf("expected one backend call, got %d", inner.calls)
	}
	if a[0] != b[0] {
		t.Fatal("cache returned a different vector")
	}
	b[0] = 99
	c, _ := m.Embed(ctx, "same text")
	if c[0] == 99 {
		t.Fatal("cache storage leaked to callers")
	}
}
