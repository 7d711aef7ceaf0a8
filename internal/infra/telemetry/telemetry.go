package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/md-arif-islam/rentplan-app-sub001/internal/infra/config"
)

const namespace = "rentplan_auth"

// Provider represents a telemetry provider handle.
type Provider struct {
	requestCounter    prometheus.Counter
	throttleDenials   *prometheus.CounterVec
	auditWriteErrors  prometheus.Counter
	counterStoreFails prometheus.Counter
}

// Attach registers service metrics and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		requestCounter: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}),
		throttleDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_denials_total",
			Help:      "Requests denied by the rate limiter, by throttle type",
		}, []string{"type"}),
		auditWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_errors_total",
			Help:      "Audit log entries that failed to persist",
		}),
		counterStoreFails: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_store_errors_total",
			Help:      "Rate limit counter store failures (requests denied fail-closed)",
		}),
	}, nil
}

// RequestCounter exposes the HTTP request metric.
func (p *Provider) RequestCounter() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.requestCounter
}

// ThrottleDenials exposes the throttle denial metric.
func (p *Provider) ThrottleDenials() *prometheus.CounterVec {
	if p == nil {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "noop_throttle_denials"}, []string{"type"})
	}
	return p.throttleDenials
}

// AuditWriteErrors exposes the audit persistence failure metric.
func (p *Provider) AuditWriteErrors() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.auditWriteErrors
}

// CounterStoreFailures exposes the counter store failure metric.
func (p *Provider) CounterStoreFailures() prometheus.Counter {
	if p == nil {
		return prometheus.NewCounter(prometheus.CounterOpts{})
	}
	return p.counterStoreFails
}
