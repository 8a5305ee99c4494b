package domain

import (
	"errors"
	"fmt"
	"maps"
)

// ErrorKind groups error codes into the categories clients and transports care about.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindValidation           ErrorKind = "validation"
	KindInsufficientResource ErrorKind = "insufficient_resource"
	KindAlreadyInProgress    ErrorKind = "already_in_progress"
	KindAlreadyClaimed       ErrorKind = "already_claimed"
	KindInvalidReferral      ErrorKind = "invalid_referral"
	KindConflict             ErrorKind = "conflict"
	KindInvariant            ErrorKind = "invariant"
)

// Code is a machine-readable failure reason.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeValidation            Code = "validation_error"
	CodeDuplicateUsername     Code = "duplicate_username"
	CodeDuplicateUser         Code = "duplicate_user"
	CodeUnknownInviter        Code = "unknown_inviter"
	CodeSelfReferral          Code = "self_referral"
	CodeInsufficientEnergy    Code = "insufficient_energy"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodeInsufficientStars     Code = "insufficient_stars"
	CodeMaxLevelReached       Code = "max_level_reached"
	CodeWrongPaymentMode      Code = "wrong_payment_mode_for_level"
	CodeBotAlreadyMining      Code = "bot_already_mining"
	CodePaymentNotValidated   Code = "payment_not_validated"
	CodeInvalidTier           Code = "invalid_tier"
	CodeBotNotActive          Code = "bot_not_active"
	CodeNothingToClaim        Code = "nothing_to_claim"
	CodeAlreadyCheckedInToday Code = "already_checked_in_today"
	CodeNoClaimableReward     Code = "no_claimable_reward"
	CodeTaskNotFound          Code = "task_not_found"
	CodeTaskUnavailable       Code = "task_unavailable"
	CodeTaskAlreadyCompleted  Code = "task_already_completed"
	CodeTaskInProgress        Code = "task_completion_in_progress"
	CodeNoPendingCompletion   Code = "no_pending_completion"
	CodeInvariantViolation    Code = "invariant_violation"
)

// Kind maps a code to its category.
func (c Code) Kind() ErrorKind {
	switch c {
	case CodeNotFound, CodeTaskNotFound, CodeNoPendingCompletion:
		return KindNotFound
	case CodeValidation, CodeInvalidTier, CodeWrongPaymentMode, CodePaymentNotValidated, CodeTaskUnavailable:
		return KindValidation
	case CodeInsufficientEnergy, CodeInsufficientFunds, CodeInsufficientStars, CodeMaxLevelReached, CodeNothingToClaim, CodeNoClaimableReward, CodeBotNotActive:
		return KindInsufficientResource
	case CodeBotAlreadyMining, CodeTaskInProgress:
		return KindAlreadyInProgress
	case CodeAlreadyCheckedInToday, CodeTaskAlreadyCompleted:
		return KindAlreadyClaimed
	case CodeUnknownInviter, CodeSelfReferral:
		return KindInvalidReferral
	case CodeDuplicateUsername, CodeDuplicateUser:
		return KindConflict
	default:
		return KindInvariant
	}
}

// Error is a structured business failure. Details carries the values a client
// needs to explain the condition (required vs current, seconds to wait, ...).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the error category.
func (e *Error) Kind() ErrorKind {
	return e.Code.Kind()
}

// With returns a copy of e carrying the given key/value details.
// Sentinels are never mutated.
func (e *Error) With(kv ...any) *Error {
	out := &Error{Code: e.Code, Message: e.Message, Cause: e.Cause, Details: maps.Clone(e.Details)}
	if out.Details == nil {
		out.Details = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out.Details[key] = kv[i+1]
	}
	return out
}

// NewError creates a business error with a code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a business error around an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Violation reports a broken account invariant. It indicates a bug, never a
// user mistake.
func Violation(format string, args ...any) *Error {
	return &Error{Code: CodeInvariantViolation, Message: "invariant violation: " + fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind() == kind
}

var (
	ErrNotFound              = NewError(CodeNotFound, "account not found")
	ErrValidation            = NewError(CodeValidation, "invalid input")
	ErrDuplicateUsername     = NewError(CodeDuplicateUsername, "username already exists")
	ErrDuplicateUser         = NewError(CodeDuplicateUser, "account already registered")
	ErrUnknownInviter        = NewError(CodeUnknownInviter, "referral username does not exist")
	ErrSelfReferral          = NewError(CodeSelfReferral, "cannot refer yourself")
	ErrInsufficientEnergy    = NewError(CodeInsufficientEnergy, "not enough energy")
	ErrInsufficientFunds     = NewError(CodeInsufficientFunds, "insufficient funds")
	ErrInsufficientStars     = NewError(CodeInsufficientStars, "insufficient stars")
	ErrMaxLevelReached       = NewError(CodeMaxLevelReached, "maximum level reached")
	ErrWrongPaymentMode      = NewError(CodeWrongPaymentMode, "wrong payment mode for level")
	ErrBotAlreadyMining      = NewError(CodeBotAlreadyMining, "auto tap bot is currently active and mining")
	ErrPaymentNotValidated   = NewError(CodePaymentNotValidated, "payment not validated")
	ErrInvalidTier           = NewError(CodeInvalidTier, "invalid bot tier")
	ErrBotNotActive          = NewError(CodeBotNotActive, "auto tap bot is not active")
	ErrNothingToClaim        = NewError(CodeNothingToClaim, "nothing to claim yet")
	ErrAlreadyCheckedInToday = NewError(CodeAlreadyCheckedInToday, "already checked in today")
	ErrNoClaimableReward     = NewError(CodeNoClaimableReward, "no claimable referral reward")
	ErrTaskNotFound          = NewError(CodeTaskNotFound, "task not found")
	ErrTaskUnavailable       = NewError(CodeTaskUnavailable, "task is not available")
	ErrTaskAlreadyCompleted  = NewError(CodeTaskAlreadyCompleted, "task already completed by this user")
	ErrTaskInProgress        = NewError(CodeTaskInProgress, "task completion already in progress")
	ErrNoPendingCompletion   = NewError(CodeNoPendingCompletion, "no pending completion found")
	ErrInvariantViolation    = NewError(CodeInvariantViolation, "invariant violation")
)
