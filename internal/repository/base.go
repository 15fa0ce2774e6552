package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// BaseRepository provides common CRUD operations for all repositories.
// It uses Go generics to work with any model type.
type BaseRepository[T any] struct {
	db        *sqlx.DB
	tableName string
}

// NewBaseRepository creates a new base repository for the given table.
func NewBaseRepository[T any](db *sqlx.DB, tableName string) *BaseRepository[T] {
	return &BaseRepository[T]{
		db:        db,
		tableName: tableName,
	}
}

// getQueryable returns the transaction from context if present, otherwise the db.
func (r *BaseRepository[T]) getQueryable(ctx context.Context) Queryable {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// TableName returns the table name for this repository.
func (r *BaseRepository[T]) TableName() string {
	return r.tableName
}

// GetByID retrieves a record by its primary key.
func (r *BaseRepository[T]) GetByID(ctx context.Context, id any) (*T, error) {
	q := r.getQueryable(ctx)

	var result T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.tableName)

	if err := q.GetContext(ctx, &result, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, ParseDBError(err)
	}

	return &result, nil
}

// Count returns the total number of records.
func (r *BaseRepository[T]) Count(ctx context.Context) (int64, error) {
	q := r.getQueryable(ctx)

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.tableName)

	if err := q.GetContext(ctx, &count, query); err != nil {
		return 0, ParseDBError(err)
	}

	return count, nil
}

// Delete performs a hard delete of a record by primary key.
func (r *BaseRepository[T]) Delete(ctx context.Context, id any) error {
	q := r.getQueryable(ctx)

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.tableName)
	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return ParseDBError(err)
	}

	return requireRowsAffected(result)
}

// ExistsBy checks if any record matches the given condition.
// The condition should be a valid SQL WHERE clause fragment (e.g., "name = ? AND user_id = ?").
func (r *BaseRepository[T]) ExistsBy(ctx context.Context, condition string, args ...any) (bool, error) {
	q := r.getQueryable(ctx)

	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", r.tableName, condition)

	if err := q.GetContext(ctx, &exists, query, args...); err != nil {
		return false, ParseDBError(err)
	}

	return exists, nil
}

// FindBy retrieves the single record matching a condition.
func (r *BaseRepository[T]) FindBy(ctx context.Context, condition string, args ...any) (*T, error) {
	q := r.getQueryable(ctx)

	var result T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1", r.tableName, condition)

	if err := q.GetContext(ctx, &result, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, ParseDBError(err)
	}

	return &result, nil
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return ParseDBError(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
