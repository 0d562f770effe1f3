package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInputRequired    = "input_required"
	ErrCodeBusy             = "busy"
	ErrCodeCompletionFailed = "completion_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeBadRequest       = "bad_request"
	ErrCodeDiscarded        = "discarded"
)

// Display strings shown to the user.
const (
	InputRequiredText    = "Please enter a prompt"
	CompletionFailedText = "An error occurred while fetching the response. Please try again."
)

var (
	// ErrInputRequired is returned by Submit for empty or whitespace-only input.
	ErrInputRequired = errors.New("input required")
	// ErrBusy is returned by Submit while another request is in flight.
	ErrBusy = errors.New("request already in flight")
	// ErrDiscarded is the outcome of a request whose response arrived after a clear.
	ErrDiscarded = errors.New("response discarded after clear")
	// ErrNotFound is returned when a message id is not in the log.
	ErrNotFound = errors.New("message not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// ToCoreError maps an error returned by this package to the code and text a
// client is shown. Completion failures of every kind share one message.
func ToCoreError(err error) *CoreError {
	var ce *CoreError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, ErrInputRequired):
		return coreError(ErrCodeInputRequired, InputRequiredText)
	case errors.Is(err, ErrBusy):
		return coreError(ErrCodeBusy, "A request is already in progress")
	case errors.Is(err, ErrNotFound):
		return coreError(ErrCodeNotFound, "Message not found")
	case errors.Is(err, ErrDiscarded):
		return coreError(ErrCodeDiscarded, "The conversation was cleared before the response arrived")
	default:
		return coreError(ErrCodeCompletionFailed, CompletionFailedText)
	}
}
