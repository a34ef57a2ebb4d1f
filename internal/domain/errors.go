package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code and message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Error codes.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeRuleViolation   = "RULE_VIOLATION"
	CodeHistoryConflict = "HISTORY_CONFLICT"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeAccountLocked   = "ACCOUNT_LOCKED"
	CodeInternal        = "INTERNAL_ERROR"
)

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg, Status: 400}
}

// ErrRuleViolation reports a well-formed request that league rules forbid.
func ErrRuleViolation(msg string) *AppError {
	return &AppError{Code: CodeRuleViolation, Message: msg, Status: 422}
}

// ConflictingMatch identifies a recorded match that contradicts a retroactive promotion.
type ConflictingMatch struct {
	MatchID int64
	Date    time.Time
	Tier    Tier
}

// ErrHistoryConflict reports that promoting playerID to tier as of date would
// contradict the given later-dated matches.
func ErrHistoryConflict(playerID int64, tier Tier, date time.Time, matches []ConflictingMatch) *AppError {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("match %d on %s in tier %s", m.MatchID, FormatDate(m.Date), m.Tier))
	}
	return &AppError{
		Code: CodeHistoryConflict,
		Message: fmt.Sprintf("promoting player %d to tier %s as of %s conflicts with later non-winning result(s): %s",
			playerID, tier, FormatDate(date), strings.Join(parts, "; ")),
		Status: 409,
	}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Status: 403}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: CodeAccountLocked, Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Status: 500, Cause: cause}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
