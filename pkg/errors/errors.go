package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// loan lifecycle
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"

	// return reconciliation and fines
	CodeQuantityMismatch Code = "QUANTITY_MISMATCH"
	CodeEmptyClaim       Code = "EMPTY_CLAIM"
	CodeMissingReason    Code = "MISSING_REASON"
	CodeFineRequired     Code = "FINE_REQUIRED"
	CodeDuplicateReturn  Code = "DUPLICATE_RETURN"
	CodeAlreadyPaid      Code = "ALREADY_PAID"
	CodeNoFineOwed       Code = "NO_FINE_OWED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:      {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
	CodeForbidden:         {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
	CodeNotFound:          {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:          {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeIdempotency:       {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeRateLimit:         {HTTPStatus: http.StatusTooManyRequests, PublicMessage: "rate limit exceeded"},
	CodeInternal:          {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:        {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	CodeInvalidTransition: {HTTPStatus: http.StatusConflict, PublicMessage: "loan is not in a state that allows this action", DetailsAllowed: true},
	CodeInsufficientStock: {HTTPStatus: http.StatusConflict, PublicMessage: "equipment unavailable or insufficient quantity", DetailsAllowed: true},
	CodeQuantityMismatch:  {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "condition split must equal the borrowed quantity", DetailsAllowed: true},
	CodeEmptyClaim:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "at least one condition count must be filled"},
	CodeMissingReason:     {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "a reason is required"},
	CodeFineRequired:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "fine is mandatory for damaged or lost condition before confirmation"},
	CodeDuplicateReturn:   {HTTPStatus: http.StatusConflict, PublicMessage: "a return for this loan was already submitted"},
	CodeAlreadyPaid:       {HTTPStatus: http.StatusConflict, PublicMessage: "fine already marked as paid"},
	CodeNoFineOwed:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "no fine to settle"},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsDomain reports whether the code describes a business rule rejection
// whose message is safe to show verbatim.
func IsDomain(code Code) bool {
	switch code {
	case CodeInvalidTransition, CodeInsufficientStock, CodeQuantityMismatch, CodeEmptyClaim,
		CodeMissingReason, CodeFineRequired, CodeDuplicateReturn, CodeAlreadyPaid, CodeNoFineOwed:
		return true
	}
	return false
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
