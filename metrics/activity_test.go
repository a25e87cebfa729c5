package metrics_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityCounterCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter, err := metrics.NewActivityCounter(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, counter.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventAccountRegistered}))
	require.NoError(t, counter.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventAccountRegistered}))
	require.NoError(t, counter.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventAccountConfirmed}))

	assert.Equal(t, 2.0, testutil.ToFloat64(counter.Events().WithLabelValues("account.registered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.Events().WithLabelValues("account.confirmed")))
}

func TestActivityCounterLoginFailureReasons(t *testing.T) {
	counter, err := metrics.NewActivityCounter(prometheus.NewRegistry())
	require.NoError(t, err)

	ctx := context.Background()
	_ = counter.Record(ctx, accounts.ActivityEvent{
		EventType: accounts.ActivityEventLoginFailure,
		Metadata:  map[string]any{"reason": "password_mismatch"},
	})
	_ = counter.Record(ctx, accounts.ActivityEvent{EventType: accounts.ActivityEventLoginFailure})

	assert.Equal(t, 1.0, testutil.ToFloat64(counter.LoginFailures().WithLabelValues("password_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(counter.LoginFailures().WithLabelValues("unknown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.Events().WithLabelValues("auth.login.failure")))
}

func TestActivityCounterDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewActivityCounter(reg)
	require.NoError(t, err)

	_, err = metrics.NewActivityCounter(reg)
	assert.Error(t, err)
}
