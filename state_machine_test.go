package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountStateMachineConfirmPersistsTimestamp(t *testing.T) {
	repo := &MockDirectory{}
	clock := newFakeClock()
	account := &accounts.Account{ID: uuid.New(), Email: "alice@example.com"}

	confirmedAt := clock.now
	repo.On("SetConfirmed", mock.Anything, account.ID, clock.now).
		Return(&accounts.Account{ID: account.ID, Email: account.Email, Confirmed: true, ConfirmedAt: &confirmedAt}, nil).
		Once()

	sm := accounts.NewAccountStateMachine(repo, accounts.WithStateMachineClock(clock.Now))

	updated, err := sm.Transition(context.Background(), account, accounts.AccountStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, accounts.AccountStatusConfirmed, updated.Status())
	require.NotNil(t, updated.ConfirmedAt)
	assert.True(t, updated.ConfirmedAt.Equal(clock.now))
	repo.AssertExpectations(t)
}

func TestAccountStateMachineRejectsInvalidTransition(t *testing.T) {
	repo := &MockDirectory{}
	sm := accounts.NewAccountStateMachine(repo)
	confirmed := &accounts.Account{ID: uuid.New(), Confirmed: true}

	_, err := sm.Transition(context.Background(), confirmed, accounts.AccountStatusUnconfirmed)
	require.Error(t, err)
	assert.True(t, accounts.IsInvalidTransition(err))

	_, err = sm.Transition(context.Background(), nil, accounts.AccountStatusConfirmed)
	require.Error(t, err)
	assert.True(t, accounts.IsInvalidTransition(err))

	repo.AssertNotCalled(t, "SetConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountStateMachineSameStateIsNoop(t *testing.T) {
	repo := &MockDirectory{}
	sm := accounts.NewAccountStateMachine(repo)
	account := &accounts.Account{ID: uuid.New(), Confirmed: true}

	out, err := sm.Transition(context.Background(), account, accounts.AccountStatusConfirmed)
	require.NoError(t, err)
	assert.Same(t, account, out)
	repo.AssertExpectations(t)
}

func TestAccountStateMachineTransitionTable(t *testing.T) {
	sm := accounts.NewAccountStateMachine(&MockDirectory{})

	assert.True(t, sm.CanTransition(accounts.AccountStatusUnconfirmed, accounts.AccountStatusConfirmed))
	assert.True(t, sm.CanTransition(accounts.AccountStatusUnconfirmed, accounts.AccountStatusDeleted))
	assert.True(t, sm.CanTransition(accounts.AccountStatusConfirmed, accounts.AccountStatusDeleted))
	assert.False(t, sm.CanTransition(accounts.AccountStatusConfirmed, accounts.AccountStatusUnconfirmed))
	assert.False(t, sm.CanTransition(accounts.AccountStatusDeleted, accounts.AccountStatusUnconfirmed))
	assert.False(t, sm.CanTransition(accounts.AccountStatusDeleted, accounts.AccountStatusConfirmed))
}

func TestAccountStateMachineDeleteEmitsActivityEvent(t *testing.T) {
	repo := &MockDirectory{}
	sink := &MockActivitySink{}
	account := &accounts.Account{ID: uuid.New(), Email: "alice@example.com", Confirmed: true}

	repo.On("DeleteByID", mock.Anything, account.ID).Return(account, nil).Once()
	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt accounts.ActivityEvent) bool {
		return evt.EventType == accounts.ActivityEventAccountDeleted &&
			evt.AccountID == account.ID.String() &&
			evt.FromStatus == accounts.AccountStatusConfirmed &&
			evt.ToStatus == accounts.AccountStatusDeleted &&
			evt.Metadata["reason"] == "owner_requested" &&
			!evt.OccurredAt.IsZero()
	})).Return(nil).Once()

	sm := accounts.NewAccountStateMachine(repo, accounts.WithStateMachineActivitySink(sink))

	_, err := sm.Transition(context.Background(), account, accounts.AccountStatusDeleted,
		accounts.WithTransitionReason("owner_requested"))
	require.NoError(t, err)

	repo.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestAccountStateMachineSinkErrorsAreSwallowed(t *testing.T) {
	repo := &MockDirectory{}
	account := &accounts.Account{ID: uuid.New()}
	repo.On("DeleteByID", mock.Anything, account.ID).Return(account, nil).Once()

	sink := accounts.ActivitySinkFunc(func(context.Context, accounts.ActivityEvent) error {
		return errors.New("sink down")
	})
	sm := accounts.NewAccountStateMachine(repo,
		accounts.WithStateMachineActivitySink(sink),
		accounts.WithStateMachineLogger(accounts.NoopLogger()),
	)

	_, err := sm.Transition(context.Background(), account, accounts.AccountStatusDeleted)
	assert.NoError(t, err)
}

func TestAccountStateMachineWrapsPersistenceFaults(t *testing.T) {
	repo := &MockDirectory{}
	account := &accounts.Account{ID: uuid.New()}
	repo.On("SetConfirmed", mock.Anything, account.ID, mock.Anything).
		Return(nil, errors.New("disk full")).Once()

	sm := accounts.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), account, accounts.AccountStatusConfirmed)
	require.Error(t, err)
	assert.True(t, accounts.IsDependencyError(err))
}
