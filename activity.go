package accounts

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered    ActivityEventType = "account.registered"
	ActivityEventAccountConfirmed     ActivityEventType = "account.confirmed"
	ActivityEventConfirmationReissued ActivityEventType = "account.confirmation.reissued"
	ActivityEventConfirmationRejected ActivityEventType = "account.confirmation.rejected"
	ActivityEventAccountUpdated       ActivityEventType = "account.updated"
	ActivityEventPasswordChanged      ActivityEventType = "account.password.changed"
	ActivityEventAccountDeleted       ActivityEventType = "account.deleted"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventLogout               ActivityEventType = "auth.logout"
	ActivityEventNotificationFailed   ActivityEventType = "notification.failed"
)

// ActivityEvent captures audit friendly information about an action. It
// never carries passwords, hashes or tokens.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Email      string
	FromStatus AccountStatus
	ToStatus   AccountStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

type loggerActivitySink struct {
	logger Logger
}

// NewLoggerActivitySink writes every event to logger at info level.
func NewLoggerActivitySink(logger Logger) ActivitySink {
	return loggerActivitySink{logger: normalizeLogger(logger)}
}

func (s loggerActivitySink) Record(_ context.Context, event ActivityEvent) error {
	args := []any{"event", string(event.EventType), "occurred_at", event.OccurredAt}
	if event.AccountID != "" {
		args = append(args, "account_id", event.AccountID)
	}
	if event.Email != "" {
		args = append(args, "email", event.Email)
	}
	if event.FromStatus != "" || event.ToStatus != "" {
		args = append(args, "from", event.FromStatus, "to", event.ToStatus)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	s.logger.Info("activity", args...)
	return nil
}

type fanOutActivitySink []ActivitySink

// NewFanOutActivitySink delivers each event to every sink. Errors are joined.
func NewFanOutActivitySink(sinks ...ActivitySink) ActivitySink {
	out := make(fanOutActivitySink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanOutActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// activityRecorder stamps and delivers events, logging sink failures.
type activityRecorder struct {
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

func (r activityRecorder) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}
	if err := normalizeActivitySink(r.sink).Record(ctx, event); err != nil {
		r.logger.Warn("activity sink error", "event", string(event.EventType), "error", err)
	}
}
