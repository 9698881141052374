package providers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"distill/internal/logging"
	"distill/internal/services"
	"distill/internal/services/providers"
	"distill/internal/services/retry"
)

func singleAttemptExecutor() *retry.Executor {
	return retry.New(logging.NewNop(),
		retry.WithMaxAttempts(1),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
}

func endpoints(names ...string) []providers.Endpoint {
	eps := make([]providers.Endpoint, 0, len(names))
	for _, name := range names {
		eps = append(eps, providers.Endpoint{Name: name, BaseURL: "http://" + name})
	}
	return eps
}

func TestFallbackOrderAndDedup(t *testing.T) {
	router := providers.NewRouter(endpoints("a", "b", "a", "c"), singleAttemptExecutor(), logging.NewNop())

	var tried []string
	err := router.Do(context.Background(), "synthesize", "", func(_ context.Context, ep providers.Endpoint) error {
		tried = append(tried, ep.Name)
		if ep.Name == "a" {
			return errors.New("a is down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	want := []string{"a", "b"}
	if len(tried) != len(want) {
		t.Fatalf("expected attempts %v, got %v", want, tried)
	}
	for i := range want {
		if tried[i] != want[i] {
			t.Fatalf("attempt %d: expected %q, got %q", i, want[i], tried[i])
		}
	}
}

func TestAllFailWrapsLastError(t *testing.T) {
	router := providers.NewRouter(endpoints("a", "b"), singleAttemptExecutor(), logging.NewNop())

	errA := errors.New("a broke")
	errB := errors.New("b broke")
	err := router.Do(context.Background(), "synthesize", "", func(_ context.Context, ep providers.Endpoint) error {
		if ep.Name == "a" {
			return errA
		}
		return errB
	})
	if err == nil {
		t.Fatal("expected failure when every provider fails")
	}
	if !errors.Is(err, services.ErrAllProviders) {
		t.Fatalf("expected all_providers_failed, got %v", err)
	}
	if !errors.Is(err, errB) {
		t.Fatalf("expected last candidate's error to be wrapped, got %v", err)
	}
	if errors.Is(err, errA) {
		t.Fatal("earlier failures must not be aggregated into the raised error")
	}
}

func TestPinnedEndpointSkipsFallback(t *testing.T) {
	router := providers.NewRouter(endpoints("a", "b"), singleAttemptExecutor(), logging.NewNop())

	var tried []string
	errB := errors.New("b broke")
	err := router.Do(context.Background(), "synthesize", "b", func(_ context.Context, ep providers.Endpoint) error {
		tried = append(tried, ep.Name)
		return errB
	})
	if len(tried) != 1 || tried[0] != "b" {
		t.Fatalf("expected only pinned endpoint, got %v", tried)
	}
	if errors.Is(err, services.ErrAllProviders) {
		t.Fatal("pinned failures must propagate directly, not as all_providers_failed")
	}
	if !errors.Is(err, errB) {
		t.Fatalf("expected pinned error propagated, got %v", err)
	}
}

func TestPinnedUnknownEndpoint(t *testing.T) {
	router := providers.NewRouter(endpoints("a"), singleAttemptExecutor(), logging.NewNop())
	err := router.Do(context.Background(), "synthesize", "ghost", func(context.Context, providers.Endpoint) error {
		t.Fatal("call must not run for unknown pinned provider")
		return nil
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEmptyRouter(t *testing.T) {
	router := providers.NewRouter(nil, singleAttemptExecutor(), logging.NewNop())
	err := router.Do(context.Background(), "synthesize", "", func(context.Context, providers.Endpoint) error {
		return nil
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty provider list, got %v", err)
	}
}

func TestRetryHappensPerEndpoint(t *testing.T) {
	exec := retry.New(logging.NewNop(),
		retry.WithMaxAttempts(2),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
	router := providers.NewRouter(endpoints("a", "b"), exec, logging.NewNop())

	counts := map[string]int{}
	err := router.Do(context.Background(), "synthesize", "", func(_ context.Context, ep providers.Endpoint) error {
		counts[ep.Name]++
		if ep.Name == "a" {
			return errors.New("a always fails")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected b to succeed, got %v", err)
	}
	if counts["a"] != 2 {
		t.Fatalf("expected 2 attempts against a, got %d", counts["a"])
	}
	if counts["b"] != 1 {
		t.Fatalf("expected 1 attempt against b, got %d", counts["b"])
	}
}
