package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oszuidwest/zwfm-soundscape/pkg/logger"
)

// TxManager defines the transaction management interface.
type TxManager interface {
	// WithTransaction executes a function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function panics, the transaction is rolled back and the panic is re-raised.
	// If the function succeeds, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// txManager implements TxManager using sqlx.
type txManager struct {
	db *sqlx.DB
}

// NewTxManager creates a new transaction manager.
func NewTxManager(db *sqlx.DB) TxManager {
	return &txManager{db: db}
}

// WithTransaction executes fn within a transaction. The transaction is stored
// in the context and picked up by repositories through TxFromContext.
func (m *txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return ParseDBError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic in transaction: %v", p)
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Failed to roll back transaction: %v", rbErr)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ParseDBError(err)
	}
	return nil
}
