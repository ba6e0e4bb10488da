package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeSessionExpired     Code = "SESSION_EXPIRED"
	CodeNetworkFailure     Code = "NETWORK_FAILURE"
	CodeServerError        Code = "SERVER_ERROR"
	CodeServerRejected     Code = "SERVER_REJECTED"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Metadata describes how a code surfaces to the user. UserMessage is the
// synchronous message the presentation layer shows for the failure.
type Metadata struct {
	Retryable      bool
	UserMessage    string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeInvalidCredentials: {
		Retryable:      false,
		UserMessage:    "invalid credentials",
		DetailsAllowed: false,
	},
	CodeSessionExpired: {
		Retryable:      false,
		UserMessage:    "your session has expired, please log in again",
		DetailsAllowed: false,
	},
	CodeNetworkFailure: {
		Retryable:      true,
		UserMessage:    "could not reach the store, check your connection",
		DetailsAllowed: false,
	},
	CodeServerError: {
		Retryable:      true,
		UserMessage:    "the store is having trouble, try again shortly",
		DetailsAllowed: false,
	},
	CodeServerRejected: {
		Retryable:      false,
		UserMessage:    "your order could not be placed",
		DetailsAllowed: true,
	},
	CodeValidation: {
		Retryable:      false,
		UserMessage:    "please fill in all fields",
		DetailsAllowed: true,
	},
	CodeEmptyCart: {
		Retryable:      false,
		UserMessage:    "your cart is empty",
		DetailsAllowed: false,
	},
	CodeNotFound: {
		Retryable:      false,
		UserMessage:    "item not available",
		DetailsAllowed: false,
	},
	CodeInternal: {
		Retryable:      true,
		UserMessage:    "something went wrong",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
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

// CodeOf extracts the taxonomy code from any error, defaulting to internal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
