package audio

import "fmt"

// Operation represents the type of audio operation
type Operation string

const (
	OpConvert     Operation = "convert"
	OpGetDuration Operation = "get_duration"
	OpDecode      Operation = "decode"
)

// AudioError represents a structured audio processing error
type AudioError struct {
	Op         Operation
	FilePath   string
	Stderr     string
	Underlying error
}

func (e *AudioError) Error() string {
	msg := fmt.Sprintf("audio %s failed for %s", e.Op, e.FilePath)
	if e.Underlying != nil {
		msg += fmt.Sprintf(": %v", e.Underlying)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf(" (%s)", firstLine(e.Stderr))
	}
	return msg
}

func (e *AudioError) Unwrap() error {
	return e.Underlying
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// NewConversionError creates an error for audio conversion failures
func NewConversionError(inputPath string, stderr string, err error) *AudioError {
	return &AudioError{
		Op:         OpConvert,
		FilePath:   inputPath,
		Stderr:     stderr,
		Underlying: err,
	}
}

// NewDurationError creates an error for duration extraction failures
func NewDurationError(filePath string, stderr string, err error) *AudioError {
	return &AudioError{
		Op:         OpGetDuration,
		FilePath:   filePath,
		Stderr:     stderr,
		Underlying: err,
	}
}

// NewDecodeError creates an error for PCM decode failures
func NewDecodeError(filePath string, stderr string, err error) *AudioError {
	return &AudioError{
		Op:         OpDecode,
		FilePath:   filePath,
		Stderr:     stderr,
		Underlying: err,
	}
}
