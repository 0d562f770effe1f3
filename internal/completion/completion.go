// Package completion defines the capability that turns raw user text into a
// corrected sentence, and the error taxonomy its backends report.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// DefaultPromptTemplate wraps the raw user text before it is sent for correction.
const DefaultPromptTemplate = `"%s" - give proper english sentence`

// Client produces a completion for one piece of user text.
type Client interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, text string) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Kind classifies a completion failure.
type Kind int

const (
	// KindNetwork covers transport failures and unexpected HTTP statuses.
	KindNetwork Kind = iota + 1
	// KindAuth means the credential was missing or rejected.
	KindAuth
	// KindMalformedResponse means the endpoint answered but not with a usable candidate.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// Error is a classified completion failure.
type Error struct {
	Kind Kind
	Err  error
}

// Sentinels for errors.Is checks against a Kind.
var (
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return "completion: " + e.Kind.String()
	}
	return fmt.Sprintf("completion: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Wrapf classifies a formatted error under kind.
func Wrapf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind. Unclassified errors count as network failures.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNetwork
}

// Prompt renders the prompt sent upstream. An empty template selects DefaultPromptTemplate.
// The text is inserted verbatim.
func Prompt(template, text string) string {
	if template == "" {
		template = DefaultPromptTemplate
	}
	return fmt.Sprintf(template, text)
}
