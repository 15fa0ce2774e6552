// Package repository provides data access abstractions for the soundscape service.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors returned by every repository. Services translate them with
// apperrors.TranslateRepoError.
var (
	// ErrNotFound indicates the sound, preset or user does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a username, email or per-user preset name is taken.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKeyViolation indicates a preset or sound points at a missing
	// row, or a row is still referenced.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrDataTooLong indicates a name or identifier exceeds its column.
	ErrDataTooLong = errors.New("data too long for column")
)

// MySQL server error numbers the schema can produce.
const (
	mysqlDupEntry             = 1062
	mysqlDataTooLong          = 1406
	mysqlRowIsReferenced      = 1451
	mysqlNoReferencedRow      = 1452
	mysqlRowIsReferencedOld   = 1217
	mysqlNoReferencedRowOld   = 1216
	mysqlDuplicateKeyTextHint = "Duplicate entry"
)

var mysqlErrors = map[uint16]error{
	mysqlDupEntry:           ErrDuplicateKey,
	mysqlDataTooLong:        ErrDataTooLong,
	mysqlRowIsReferenced:    ErrForeignKeyViolation,
	mysqlNoReferencedRow:    ErrForeignKeyViolation,
	mysqlRowIsReferencedOld: ErrForeignKeyViolation,
	mysqlNoReferencedRowOld: ErrForeignKeyViolation,
}

// ParseDBError maps driver errors onto the repository sentinels. The driver
// error stays in the chain for logging.
func ParseDBError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if sentinel, ok := mysqlErrors[mysqlErr.Number]; ok {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
		return err
	}

	// Errors that lost their type crossing a transaction boundary.
	if strings.Contains(err.Error(), mysqlDuplicateKeyTextHint) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// DuplicateKeyName returns the unique index named in a duplicate-entry error,
// e.g. "uq_presets_user_name", or "" when err is not one.
func DuplicateKeyName(err error) string {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlDupEntry {
		return ""
	}
	_, key, ok := strings.Cut(mysqlErr.Message, "for key '")
	if !ok {
		return ""
	}
	key = strings.TrimSuffix(key, "'")
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	return key
}
