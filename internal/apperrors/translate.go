package apperrors

import (
	"errors"
	"fmt"

	"github.com/oszuidwest/zwfm-soundscape/internal/repository"
)

// uniqueKeyFields names the request field behind each unique index.
var uniqueKeyFields = map[string]string{
	"uq_users_username":    "username",
	"uq_users_email":       "email",
	"uq_presets_user_name": "name",
}

// TranslateRepoError converts a repository error into an application error
// about resource ("Sound", "Preset", "User"), prefixed with op. Returns nil
// if err is nil. Unrecognised errors become database errors that keep err
// for logging.
func TranslateRepoError(op, resource string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	switch {
	case errors.Is(err, repository.ErrNotFound):
		appErr = NotFound(resource + " not found")
	case errors.Is(err, repository.ErrDuplicateKey):
		appErr = Duplicate(resource + " already exists")
		if field, ok := uniqueKeyFields[repository.DuplicateKeyName(err)]; ok {
			appErr.Field = field
		}
	case errors.Is(err, repository.ErrForeignKeyViolation):
		appErr = &Error{Code: CodeDependencyExists, Message: resource + " is still referenced", Err: err}
	case errors.Is(err, repository.ErrDataTooLong):
		appErr = &Error{Code: CodeDataTooLong, Message: resource + " has a value that is too long", Err: err}
	default:
		appErr = Database("Database operation failed").Wrap(err)
	}
	return fmt.Errorf("%s: %w", op, appErr)
}
