package dispatcher

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/frankli0324/go-xhr/internal/log"
	"github.com/frankli0324/go-xhr/internal/model"
)

// Logging tags each dispatch with a request id and logs its outcome.
func Logging() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *model.Prepared) error {
			ctx = log.NewContext(ctx, "requestId", uuid.NewString())
			log.Debug(ctx, "Dispatching request", "method", p.Method, "url", p.URL, "headers", len(p.Headers), "bodyLen", len(p.Body))
			if err := next(ctx, p); err != nil {
				log.Warn(ctx, "Dispatch failed", "method", p.Method, "url", p.URL, err)
				return err
			}
			return nil
		}
	}
}

// Metrics counts dispatches by method and outcome in xhr_dispatch_total.
// Registering twice on the same registry reuses the existing counter.
func Metrics(reg prometheus.Registerer) (Middleware, error) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xhr",
		Name:      "dispatch_total",
		Help:      "Requests handed to a transport handle, by method and outcome.",
	}, []string{"method", "outcome"})
	if err := reg.Register(total); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		total = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, p *model.Prepared) error {
			err := next(ctx, p)
			outcome := "sent"
			if err != nil {
				outcome = "failed"
			}
			total.WithLabelValues(p.Method, outcome).Inc()
			return err
		}
	}, nil
}

// RateLimit waits for limiter before each dispatch. A cancelled ctx
// fails the dispatch with the limiter's error and no handle is created.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *model.Prepared) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return next(ctx, p)
		}
	}
}

// DefaultHeaders adds headers missing from the config. Names are compared
// case-insensitively and content-type is still dropped for bodiless requests.
func DefaultHeaders(headers map[string]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, p *model.Prepared) error {
			for k, v := range headers {
				p.AddDefault(k, v)
			}
			return next(ctx, p)
		}
	}
}
