// Package validation checks uploaded audio before it reaches ffmpeg.
package validation

import (
	"fmt"
	"strings"

	"github.com/oszuidwest/zwfm-soundscape/internal/apperrors"
)

// Problem is one reason an upload was refused.
type Problem struct {
	Field   string
	Message string
}

// Report collects every problem found with an upload.
type Report struct {
	Problems []Problem
}

func (r *Report) add(field, format string, args ...any) *Report {
	r.Problems = append(r.Problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
	return r
}

// OK reports whether the upload passed every check.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Err converts the report into an application error, or nil when OK.
// Problems on one field become a validation error on that field; problems
// spread over several fields become invalid input.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}

	field := r.Problems[0].Field
	messages := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		if p.Field != field {
			field = ""
		}
		messages = append(messages, p.Message)
	}

	if field != "" {
		return apperrors.InvalidField(field, strings.Join(messages, "; "))
	}
	qualified := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		qualified = append(qualified, p.Field+": "+p.Message)
	}
	return apperrors.InvalidInput(strings.Join(qualified, "; "))
}
