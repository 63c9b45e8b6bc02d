package helpers

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WrapTxAndCommit runs fn inside a transaction on db. When tx is given, fn
// joins it and the caller stays responsible for committing. Otherwise a new
// transaction is opened, committed when fn succeeds and rolled back when fn
// fails or panics.
func WrapTxAndCommit[T any](ctx context.Context, fn func(*gorm.DB) (T, error), db *gorm.DB, tx *gorm.DB) (result T, err error) {
	if tx != nil {
		return fn(tx)
	}

	tx = db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	result, err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return result, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return result, err
	}
	if cErr := tx.Commit().Error; cErr != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", cErr)
	}
	return result, nil
}
