// Package service implements the library's use cases: the borrow engine, the
// session issuer and revocation checks, access control, accounts, catalog
// administration and reporting.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies an AppError; handlers map it to an HTTP status.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}

// Machine-readable error codes returned to clients.
const (
	CodeValidation         = "validation_error"
	CodeAuthRequired       = "authorization_required"
	CodeTokenExpired       = "token_expired"
	CodeInvalidToken       = "invalid_token"
	CodeFreshTokenRequired = "fresh_token_required"
	CodeTokenRevoked       = "token_revoked"
	CodeInvalidCredentials = "invalid_credentials"
	CodeForbidden          = "forbidden"
	CodeAccountBanned      = "account_banned"
	CodeUserNotFound       = "user_not_found"
	CodeBookNotFound       = "book_not_found"
	CodeBorrowNotFound     = "borrow_not_found"
	CodeCategoryNotFound   = "category_not_found"
	CodeInsufficientStock  = "insufficient_stock"
	CodeAlreadyBorrowed    = "already_borrowed"
	CodeBookOnLoan         = "book_on_loan"
	CodeUsernameTaken      = "username_taken"
	CodeEmailTaken         = "email_taken"
	CodePhoneTaken         = "phone_taken"
	CodeISBNTaken          = "isbn_taken"
	CodeAlreadyBanned      = "already_banned"
	CodeNotBanned          = "not_banned"
	CodeInternal           = "internal_error"
)

// AppError is the error type every service method returns.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(kind Kind, code, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

func validation(msg string) *AppError { return newError(KindValidation, CodeValidation, msg) }

func unauthorized(code, msg string) *AppError { return newError(KindUnauthorized, code, msg) }

func forbidden(msg string) *AppError { return newError(KindForbidden, CodeForbidden, msg) }

func notFound(code, msg string) *AppError { return newError(KindNotFound, code, msg) }

func conflict(code, msg string) *AppError { return newError(KindConflict, code, msg) }

// persistence wraps an unexpected storage failure. The cause stays in Err for
// logging and is never shown to clients.
func persistence(err error) *AppError {
	return &AppError{Kind: KindPersistence, Code: CodeInternal, Message: "internal error", Err: err}
}

// asAppError returns err unchanged when it already is an *AppError and wraps
// it as a persistence failure otherwise.
func asAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return persistence(err)
}

// KindOf reports the kind of err, KindPersistence for foreign errors.
func KindOf(err error) Kind {
	return asAppError(err).Kind
}

// CodeOf reports the machine-readable code of err.
func CodeOf(err error) string {
	return asAppError(err).Code
}
