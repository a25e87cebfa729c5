// Package metrics exports account activity as Prometheus counters.
package metrics

import (
	"context"
	"fmt"

	"github.com/goliatone/go-accounts"
	"github.com/prometheus/client_golang/prometheus"
)

// ActivityCounter is an accounts.ActivitySink that counts events.
type ActivityCounter struct {
	events        *prometheus.CounterVec
	loginFailures *prometheus.CounterVec
}

var _ accounts.ActivitySink = (*ActivityCounter)(nil)

// NewActivityCounter creates the counters and registers them with reg.
func NewActivityCounter(reg prometheus.Registerer) (*ActivityCounter, error) {
	c := &ActivityCounter{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_activity_events_total",
				Help: "Total number of account activity events by type",
			},
			[]string{"event"},
		),
		loginFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_login_failures_total",
				Help: "Total number of failed logins by reason",
			},
			[]string{"reason"},
		),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.events, c.loginFailures} {
			if err := reg.Register(col); err != nil {
				return nil, fmt.Errorf("register activity metrics: %w", err)
			}
		}
	}
	return c, nil
}

// Record implements accounts.ActivitySink.
func (c *ActivityCounter) Record(_ context.Context, event accounts.ActivityEvent) error {
	c.events.WithLabelValues(string(event.EventType)).Inc()

	if event.EventType == accounts.ActivityEventLoginFailure {
		reason, _ := event.Metadata["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		c.loginFailures.WithLabelValues(reason).Inc()
	}
	return nil
}

// Events exposes the event counter, mostly for tests.
func (c *ActivityCounter) Events() *prometheus.CounterVec {
	return c.events
}

// LoginFailures exposes the failure counter.
func (c *ActivityCounter) LoginFailures() *prometheus.CounterVec {
	return c.loginFailures
}
