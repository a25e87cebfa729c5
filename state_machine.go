package accounts

import (
	"context"
	"time"
)

// AccountStateMachine applies lifecycle transitions and persists them.
type AccountStateMachine interface {
	Transition(ctx context.Context, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	CanTransition(from, to AccountStatus) bool
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	reason   string
	metadata map[string]any
}

// WithTransitionReason sets the human readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.reason = reason
	}
}

// WithTransitionMetadata merges metadata into the emitted event.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata == nil {
			opts.metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata[k] = v
		}
	}
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock.
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the sink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default implementation backed by directory.
func NewAccountStateMachine(directory AccountDirectory, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		directory: directory,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusUnconfirmed: {
				AccountStatusConfirmed: {},
				AccountStatusDeleted:   {},
			},
			AccountStatusConfirmed: {
				AccountStatusDeleted: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	directory    AccountDirectory
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

// Transition moves account to target. A same state request returns the
// account unchanged. A successful deletion returns the removed record.
func (sm *accountStateMachine) Transition(ctx context.Context, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, newInvalidTransitionError(AccountStatusDeleted, target)
	}

	from := account.Status()
	if from == target {
		return account, nil
	}

	if !sm.CanTransition(from, target) {
		return nil, newInvalidTransitionError(from, target)
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	var (
		updated *Account
		err     error
		event   ActivityEventType
	)

	switch target {
	case AccountStatusConfirmed:
		event = ActivityEventAccountConfirmed
		updated, err = sm.directory.SetConfirmed(ctx, account.ID, sm.now())
	case AccountStatusDeleted:
		event = ActivityEventAccountDeleted
		updated, err = sm.directory.DeleteByID(ctx, account.ID)
	default:
		return nil, newInvalidTransitionError(from, target)
	}
	if err != nil {
		return nil, asDependency(err, "failed to persist account transition")
	}
	if updated == nil {
		updated = account
	}

	activityRecorder{sink: sm.activitySink, logger: sm.logger, now: sm.now}.record(ctx, ActivityEvent{
		EventType:  event,
		AccountID:  account.ID.String(),
		Email:      account.Email,
		FromStatus: from,
		ToStatus:   target,
		Metadata:   options.eventMetadata(),
	})

	return updated, nil
}

func (sm *accountStateMachine) CanTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (o *transitionOptions) eventMetadata() map[string]any {
	if o.reason == "" && len(o.metadata) == 0 {
		return nil
	}
	result := map[string]any{}
	if o.reason != "" {
		result["reason"] = o.reason
	}
	for k, v := range o.metadata {
		result[k] = v
	}
	return result
}
