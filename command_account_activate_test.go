package kanban_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kanbanhq/kanban"
)

func pendingTokenUser(value string, expiresAt time.Time) *kanban.User {
	user := testUser()
	user.Enabled = false
	user.ActivationToken = &kanban.SecondaryToken{Value: value, ExpiresAt: &expiresAt}
	return user
}

func TestActivateAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token enables the account and is consumed", func(t *testing.T) {
		repo := newMockRepo()
		user := pendingTokenUser("activation-token", time.Now().Add(time.Hour))

		repo.UsersRepo.On("GetByUsername", mock.Anything, "gordon").Return(user, nil).Once()

		var updated *kanban.User
		repo.UsersRepo.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				updated = args.Get(2).(*kanban.User)
			}).
			Return(user, nil).Once()

		handler := kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, kanban.ActivateAccountMessage{Username: "gordon", Token: "activation-token"})
		require.NoError(t, err)

		require.NotNil(t, updated)
		assert.True(t, updated.Enabled)
		assert.Empty(t, updated.ActivationToken.Value)

		repo.AssertExpectations(t)
	})

	t.Run("expired token fails but is still cleared", func(t *testing.T) {
		repo := newMockRepo()
		user := pendingTokenUser("activation-token", time.Now().Add(-time.Hour))

		repo.UsersRepo.On("GetByUsername", mock.Anything, "gordon").Return(user, nil).Once()

		var updated *kanban.User
		repo.UsersRepo.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				updated = args.Get(2).(*kanban.User)
			}).
			Return(user, nil).Once()

		handler := kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, kanban.ActivateAccountMessage{Username: "gordon", Token: "activation-token"})
		assert.ErrorIs(t, err, kanban.ErrSecondaryTokenExpired)

		require.NotNil(t, updated)
		assert.False(t, updated.Enabled)
		assert.Empty(t, updated.ActivationToken.Value)

		repo.AssertExpectations(t)
	})

	t.Run("wrong token fails without touching the account", func(t *testing.T) {
		repo := newMockRepo()
		user := pendingTokenUser("activation-token", time.Now().Add(time.Hour))

		repo.UsersRepo.On("GetByUsername", mock.Anything, "gordon").Return(user, nil).Once()

		handler := kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, kanban.ActivateAccountMessage{Username: "gordon", Token: "nope"})
		assert.ErrorIs(t, err, kanban.ErrSecondaryTokenMismatch)

		repo.UsersRepo.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no pending token fails", func(t *testing.T) {
		repo := newMockRepo()
		user := testUser()
		user.ActivationToken = nil

		repo.UsersRepo.On("GetByUsername", mock.Anything, "gordon").Return(user, nil).Once()

		handler := kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, kanban.ActivateAccountMessage{Username: "gordon", Token: "activation-token"})
		assert.ErrorIs(t, err, kanban.ErrNoSecondaryToken)
	})

	t.Run("unknown user fails", func(t *testing.T) {
		repo := newMockRepo()
		repo.UsersRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, kanban.ErrUserNotFound).Once()

		handler := kanban.NewActivateAccountHandler(repo).WithLogger(testLogger{})

		err := handler.Execute(ctx, kanban.ActivateAccountMessage{Username: "ghost", Token: "activation-token"})
		assert.ErrorIs(t, err, kanban.ErrUserNotFound)
	})
}
