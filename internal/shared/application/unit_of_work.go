package application

import "context"

// UnitOfWork provides transactional support for aggregating multiple operations.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork executes fn inside a unit of work. The work is rolled back
// when fn fails and committed otherwise.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) error {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}

	return uow.Commit(txCtx)
}

// WithUnitOfWorkResult is WithUnitOfWork for functions producing a value.
// The zero value is returned whenever the unit of work does not commit.
func WithUnitOfWorkResult[T any](ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		var fnErr error
		result, fnErr = fn(txCtx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
