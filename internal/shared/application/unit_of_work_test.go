package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type txKey struct{}

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestWithUnitOfWork(t *testing.T) {
	t.Run("commits after success", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		txCtx := context.WithValue(ctx, txKey{}, "tx")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)

		executed := false
		err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error {
			executed = true
			assert.Equal(t, txCtx, ctx)
			return nil
		})

		require.NoError(t, err)
		assert.True(t, executed)
		uow.AssertExpectations(t)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		txCtx := context.WithValue(ctx, txKey{}, "tx")

		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(nil)

		fnErr := errors.New("apply failed")
		err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error {
			return fnErr
		})

		assert.ErrorIs(t, err, fnErr)
		uow.AssertExpectations(t)
		uow.AssertNotCalled(t, "Commit", mock.Anything)
	})

	t.Run("begin failure skips the function", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		beginErr := errors.New("begin failed")
		uow.On("Begin", ctx).Return(ctx, beginErr)

		called := false
		err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, beginErr)
		assert.False(t, called)
	})

	t.Run("commit failure is returned", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		commitErr := errors.New("commit failed")
		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Commit", ctx).Return(commitErr)

		err := WithUnitOfWork(ctx, uow, func(ctx context.Context) error { return nil })

		assert.ErrorIs(t, err, commitErr)
	})
}

func TestWithUnitOfWorkResult(t *testing.T) {
	t.Run("returns the value on commit", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Commit", ctx).Return(nil)

		got, err := WithUnitOfWorkResult(ctx, uow, func(ctx context.Context) (int, error) {
			return 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, got)
	})

	t.Run("returns zero value when commit fails", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Commit", ctx).Return(errors.New("commit failed"))

		got, err := WithUnitOfWorkResult(ctx, uow, func(ctx context.Context) (string, error) {
			return "created", nil
		})

		assert.Error(t, err)
		assert.Empty(t, got)
	})
}
