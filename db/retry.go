package db

import (
	"context"
	"errors"
	"time"
)

const (
	readRetryAttempts = 3
	readRetryBaseWait = 100 * time.Millisecond
)

// RetryRead выполняет read-only операцию с ограниченным числом повторов и
// экспоненциальной паузой. Ошибки из permanent (доменные сентинелы вроде
// "not found") повторять бессмысленно - они возвращаются сразу. Для записей
// (create/update) хелпер не используется: повтор мог бы применить изменение
// рейтинга дважды.
func RetryRead[T any](ctx context.Context, fn func(ctx context.Context) (T, error), permanent ...error) (T, error) {
	var result T
	var err error

	wait := readRetryBaseWait
	for attempt := 0; attempt < readRetryAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || isPermanent(err, permanent) {
			return result, err
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return result, err
}

func isPermanent(err error, permanent []error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, p := range permanent {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
