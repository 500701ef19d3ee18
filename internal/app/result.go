package app

import (
	"fmt"

	"github.com/semmidev/omran/internal/domain"
)

// Result is what every public operation returns: either Success with Data
// or an Error message with its Kind.
type Result[T any] struct {
	Success bool             `json:"success"`
	Data    T                `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Kind    domain.ErrorKind `json:"kind,omitempty"`
}

func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	return domain.NewError(r.Kind, r.Error, nil)
}

// run executes fn and converts its outcome, including panics, to a Result.
func run[T any](a *App, op string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Errorf("Unexpected failure during %s: %v", op, p)
			a.metrics.OperationFailed(op)
			res = Result[T]{
				Error: fmt.Sprintf("unexpected error during %s", op),
				Kind:  domain.KindInternal,
			}
		}
	}()

	data, err := fn()
	if err != nil {
		return Result[T]{Error: domain.Message(err), Kind: domain.KindOf(err)}
	}
	return Result[T]{Success: true, Data: data}
}
