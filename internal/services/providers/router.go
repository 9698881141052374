package providers

import (
	"context"
	"fmt"
	"log/slog"

	"distill/internal/logging"
	"distill/internal/services"
	"distill/internal/services/retry"
)

// CallFunc performs one logical operation against a single endpoint. The
// router retries it through the call executor before moving to the next
// candidate.
type CallFunc func(ctx context.Context, ep Endpoint) error

// Router drives the call executor against an ordered, deduplicated endpoint
// list until one succeeds.
type Router struct {
	endpoints []Endpoint
	exec      *retry.Executor
	logger    *slog.Logger
}

// NewRouter constructs a router over the configured endpoint order. The list
// is deduplicated by name, first occurrence winning.
func NewRouter(endpoints []Endpoint, exec *retry.Executor, logger *slog.Logger) *Router {
	return &Router{
		endpoints: Dedupe(endpoints),
		exec:      exec,
		logger:    logging.NewComponentLogger(logger, "provider-router"),
	}
}

// Endpoints returns the deduplicated candidate order.
func (r *Router) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Endpoint looks up a candidate by name.
func (r *Router) Endpoint(name string) (Endpoint, bool) {
	for _, ep := range r.endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Do runs one logical operation. When pinned names a specific endpoint, only
// that endpoint is tried and its error is propagated directly. Otherwise each
// candidate is tried in order; the first success wins, and total failure
// raises all_providers_failed wrapping the last candidate's error. Earlier
// failures are logged but not aggregated.
func (r *Router) Do(ctx context.Context, op, pinned string, call CallFunc) error {
	if len(r.endpoints) == 0 {
		return services.Wrap(services.ErrConfiguration, "", op, "no providers configured", nil)
	}

	if pinned != "" {
		ep, ok := r.Endpoint(pinned)
		if !ok {
			return services.Wrap(services.ErrConfiguration, "", op,
				fmt.Sprintf("provider %q not configured", pinned), nil)
		}
		return r.tryEndpoint(ctx, op, ep, call)
	}

	var lastErr error
	for _, ep := range r.endpoints {
		err := r.tryEndpoint(ctx, op, ep, call)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		r.logger.Warn("provider failed, trying next candidate",
			logging.String("operation", op),
			logging.String(logging.FieldProvider, ep.Name),
			logging.Error(err),
		)
		lastErr = err
	}

	return services.Wrap(services.ErrAllProviders, "", op,
		fmt.Sprintf("%d providers exhausted", len(r.endpoints)), lastErr)
}

func (r *Router) tryEndpoint(ctx context.Context, op string, ep Endpoint, call CallFunc) error {
	return r.exec.Do(ctx, op+"/"+ep.Name, func(ctx context.Context) error {
		return call(ctx, ep)
	})
}
