// Package apperr defines the error codes surfaced to API callers and the
// request error type that carries an HTTP status with them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInsufficientFunds is wrapped by every failure caused by the wallet
// holding too little to pay for a write
var ErrInsufficientFunds = errors.New("insufficient funds")

// Code identifies an error condition for API callers
type Code string

const (
	CodeNotEnoughBalanceForWrite           Code = "not_enough_balance_for_write"
	CodeValueTimeLockNotFound              Code = "value_time_lock_not_found"
	CodeDatabaseDowngradeNotAllowed        Code = "database_downgrade_not_allowed"
	CodeWalletIncorrectImportString        Code = "wallet_incorrect_import_string"
	CodeInvalidTransactionNumberOrTimeHash Code = "invalid_transaction_number_or_time_hash"
	CodeInvalidRequestBody                 Code = "invalid_request_body"
	CodeInvalidTransactionNumber           Code = "invalid_transaction_number"
)

// RequestError is an error that maps onto an HTTP response
type RequestError struct {
	Status int
	Code   Code
	Err    error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("request error %d", e.Status)
	if e.Code != "" {
		msg += " (" + string(e.Code) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ClientClass reports whether the error is the caller's fault (4xx)
func (e *RequestError) ClientClass() bool {
	return e.Status >= 400 && e.Status < 500
}

// New builds a RequestError with the given status and code
func New(status int, code Code, err error) *RequestError {
	return &RequestError{Status: status, Code: code, Err: err}
}

// BadRequest builds a 400 RequestError
func BadRequest(code Code) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Code: code}
}

// NotFound builds a 404 RequestError
func NotFound(code Code) *RequestError {
	return &RequestError{Status: http.StatusNotFound, Code: code}
}

// StatusOf returns the HTTP status for err, 500 when it is not a RequestError
func StatusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code carried by err, if any
func CodeOf(err error) (Code, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Code != "" {
		return reqErr.Code, true
	}
	return "", false
}
