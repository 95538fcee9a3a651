// Package errors defines the typed error taxonomy of the interaction flows.
// Fatal conditions (unsafe return URLs, broken external assertions) propagate
// to the HTTP boundary as *FlowError values and are never converted into
// redirects; recoverable conditions are handled by re-rendering the form.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Flow error codes.
const (
	CodeInvalidReturnURL    = "invalid_return_url"
	CodeExternalAuth        = "external_authentication_error"
	CodeUnknownExternalUser = "unknown_external_user_id"
	CodeSessionNotFound     = "session_not_found"
	CodeInvalidClient       = "invalid_client"
	CodeNoMatchingResources = "no_matching_resources"
	CodeValidation          = "validation_error"
	CodePersistence         = "persistence_failure"
)

// FlowError is a typed interaction flow error.
type FlowError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *FlowError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Recoverable reports whether the user can correct the condition by fixing
// their input. Everything else is fatal to the current request.
func (e *FlowError) Recoverable() bool {
	return e.Code == CodeValidation
}

// IsCode reports whether err is (or wraps) a FlowError with the given code.
func IsCode(err error, code string) bool {
	var fe *FlowError
	return stderrors.As(err, &fe) && fe.Code == code
}

func NewInvalidReturnURL(url string) *FlowError {
	return &FlowError{Code: CodeInvalidReturnURL, Description: fmt.Sprintf("%q is not a trusted return URL", url)}
}

func NewExternalAuthError(description string) *FlowError {
	return &FlowError{Code: CodeExternalAuth, Description: description}
}

func NewUnknownExternalUser() *FlowError {
	return &FlowError{Code: CodeUnknownExternalUser, Description: "external assertion carries no stable subject identifier"}
}

func NewSessionNotFound() *FlowError {
	return &FlowError{Code: CodeSessionNotFound, Description: "no pending authorization session matches the request"}
}

func NewInvalidClient(clientID string) *FlowError {
	return &FlowError{Code: CodeInvalidClient, Description: fmt.Sprintf("client %q is unknown or disabled", clientID)}
}

func NewNoMatchingResources() *FlowError {
	return &FlowError{Code: CodeNoMatchingResources, Description: "requested scopes match no configured resources"}
}

func NewValidation(description string) *FlowError {
	return &FlowError{Code: CodeValidation, Description: description}
}

func NewPersistenceFailure(err error) *FlowError {
	return &FlowError{Code: CodePersistence, Description: err.Error()}
}
