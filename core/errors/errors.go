// Package errors provides the error types shared by the survey converter.
//
// Conversion diagnostics (UsageError, UnknownCodeError, DirectiveError and
// DomainError) are never returned to abort a run: the converter renders them
// as XML comments and counts them. IOError and ParseError are ordinary Go
// errors returned by the I/O glue around the converter.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates malformed survey input
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "run", "document")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// UsageError reports a record whose field count does not match its kind.
type UsageError struct {
	Code string // Record code (e.g., "DB", "T", ".ORDER")
}

func (e *UsageError) Error() string {
	return "wrong usage of " + e.Code
}

func (e *UsageError) Unwrap() error {
	return ErrInvalidInput
}

// UnknownCodeError reports a record code that has no cluster mapping,
// no writer, or no directive handler.
type UnknownCodeError struct {
	Prefix string // "undefined code", "unknown command" or "unknown directive"
	Code   string
}

func (e *UnknownCodeError) Error() string {
	return e.Prefix + " " + e.Code
}

func (e *UnknownCodeError) Unwrap() error {
	return ErrInvalidInput
}

// DirectiveError reports malformed .SET usage.
type DirectiveError struct {
	Directive string // Directive code (e.g., ".SET")
	Message   string
}

func (e *DirectiveError) Error() string {
	return e.Message
}

func (e *DirectiveError) Unwrap() error {
	return ErrInvalidInput
}

// DomainError reports a syntactically complete record carrying a value that
// cannot be interpreted, such as an empty or garbled bearing.
type DomainError struct {
	Message string
	Value   string // Offending value, if any
}

func (e *DomainError) Error() string {
	if e.Value != "" {
		return e.Message + " " + e.Value
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "XML", "survey text")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewUsage creates a UsageError
func NewUsage(code string) *UsageError {
	return &UsageError{Code: code}
}

// NewUndefinedCode creates an UnknownCodeError for a code missing from the
// cluster table.
func NewUndefinedCode(code string) *UnknownCodeError {
	return &UnknownCodeError{Prefix: "undefined code", Code: code}
}

// NewUnknownCommand creates an UnknownCodeError for a code without a writer.
func NewUnknownCommand(code string) *UnknownCodeError {
	return &UnknownCodeError{Prefix: "unknown command", Code: code}
}

// NewUnknownDirective creates an UnknownCodeError for an unhandled directive.
func NewUnknownDirective(code string) *UnknownCodeError {
	return &UnknownCodeError{Prefix: "unknown directive", Code: code}
}

// NewDirective creates a DirectiveError
func NewDirective(directive, message string) *DirectiveError {
	return &DirectiveError{
		Directive: directive,
		Message:   message,
	}
}

// NewDomain creates a DomainError
func NewDomain(message, value string) *DomainError {
	return &DomainError{
		Message: message,
		Value:   value,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
