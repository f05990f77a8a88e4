// Package apperr defines the error codes surfaced by the service layer and
// how they map onto HTTP statuses.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	NotFound             Code = "NOT_FOUND"
	CatalogItemNotFound  Code = "CATALOG_ITEM_NOT_FOUND"
	MemberNotFound       Code = "MEMBER_NOT_FOUND"
	UserNotInHousehold   Code = "USER_NOT_IN_HOUSEHOLD"
	Unauthorized         Code = "UNAUTHORIZED"
	NotHouseholdAdmin    Code = "NOT_HOUSEHOLD_ADMIN"
	NotHouseholdMember   Code = "NOT_HOUSEHOLD_MEMBER"
	MemberNotInSameHouse Code = "MEMBER_NOT_IN_SAME_HOUSEHOLD"
	InvalidPIN           Code = "INVALID_PIN"
	PINExpired           Code = "PIN_EXPIRED"
	DuplicateTitle       Code = "DUPLICATE_TITLE"
	DuplicateChore       Code = "DUPLICATE_CHORE"
	CannotRemoveLast     Code = "CANNOT_REMOVE_LAST_ADMIN"
	CannotRemoveSelf     Code = "CANNOT_REMOVE_SELF"
	DailyLimitExceeded   Code = "DAILY_LIMIT_EXCEEDED"
	AlreadyInHousehold   Code = "ALREADY_IN_HOUSEHOLD"
	AssigneeNotInHouse   Code = "ASSIGNEE_NOT_IN_HOUSEHOLD"
	ValidationFailed     Code = "VALIDATION_FAILED"
	BadRequest           Code = "BAD_REQUEST"
	Unauthenticated      Code = "UNAUTHENTICATED"
	TooManyRequests      Code = "TOO_MANY_REQUESTS"
	Internal             Code = "INTERNAL"
)

var messages = map[Code]string{
	NotFound:             "resource not found",
	CatalogItemNotFound:  "catalog item not found",
	MemberNotFound:       "household member not found",
	UserNotInHousehold:   "user does not belong to a household",
	Unauthorized:         "not allowed to modify this chore",
	NotHouseholdAdmin:    "household admin role required",
	NotHouseholdMember:   "not a member of this household",
	MemberNotInSameHouse: "member belongs to a different household",
	InvalidPIN:           "invalid household PIN",
	PINExpired:           "household PIN has expired",
	DuplicateTitle:       "a chore with this title already exists",
	DuplicateChore:       "this chore is already scheduled for that slot",
	CannotRemoveLast:     "household must keep at least one admin",
	CannotRemoveSelf:     "admins cannot remove themselves",
	DailyLimitExceeded:   "daily chore limit reached",
	AlreadyInHousehold:   "user already belongs to a household",
	AssigneeNotInHouse:   "assignee is not a member of this household",
	ValidationFailed:     "validation failed",
	BadRequest:           "malformed request",
	Unauthenticated:      "authentication required",
	TooManyRequests:      "too many requests",
	Internal:             "internal server error",
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Code    Code
	Message string
	Details []FieldError
}

func (e *Error) Error() string {
	if e.Message != "" && e.Message != messages[e.Code] {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

// Is matches on code, so errors.Is(err, apperr.New(apperr.NotFound)) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New returns an error carrying the default message for code.
func New(code Code) *Error {
	return &Error{Code: code, Message: messages[code]}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a VALIDATION_FAILED error with the given field details.
func Validation(details ...FieldError) *Error {
	return &Error{Code: ValidationFailed, Message: messages[ValidationFailed], Details: details}
}

// Field is shorthand for a single-field validation error.
func Field(field, message string) *Error {
	return Validation(FieldError{Field: field, Message: message})
}

// CodeOf extracts the code of err, or Internal when err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Status maps a code to its HTTP status.
func Status(code Code) int {
	switch code {
	case NotFound, CatalogItemNotFound, MemberNotFound, UserNotInHousehold:
		return http.StatusNotFound
	case Unauthorized, NotHouseholdAdmin, NotHouseholdMember, MemberNotInSameHouse, InvalidPIN, PINExpired:
		return http.StatusForbidden
	case DuplicateTitle, DuplicateChore, CannotRemoveLast, CannotRemoveSelf, DailyLimitExceeded, AlreadyInHousehold:
		return http.StatusConflict
	case ValidationFailed, AssigneeNotInHouse:
		return http.StatusUnprocessableEntity
	case BadRequest:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type body struct {
	Error   string       `json:"error"`
	Code    Code         `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

// Write renders e as the JSON error body with its mapped status.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(e.Code))
	json.NewEncoder(w).Encode(body{Error: e.Message, Code: e.Code, Details: e.Details})
}
