package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when a session operation runs before Start.
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrSessionCompleted is returned when navigating a finished session.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrOptionOutOfRange indicates a selected option index is invalid.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrEmptyPack indicates a pack without questions.
	ErrEmptyPack = errors.New("pack has no questions")
	// ErrPackNotFound indicates the pack is not in the catalog or store.
	ErrPackNotFound = errors.New("pack not found")
	// ErrProfileNotFound is returned by stores when a user has no document yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNotSignedIn is returned for operations that need a user.
	ErrNotSignedIn = errors.New("not signed in")
)

// ValidationReasonUnanswered is the reason for navigating without an answer.
const ValidationReasonUnanswered = "unanswered"

// ValidationError is user guidance: the session did not change.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Reason + ": " + e.Message
}

// LoadError reports a pack that could not be fetched or parsed.
type LoadError struct {
	PackID  string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load pack %s: %s: %v", e.PackID, e.Message, e.Err)
	}
	return fmt.Sprintf("load pack %s: %s", e.PackID, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// AuthError is a rejected sign-in, identified by a provider code.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// Auth error codes understood by the sign-in message mapping.
const (
	AuthInvalidEmail      = "auth/invalid-email"
	AuthUserNotFound      = "auth/user-not-found"
	AuthWrongPassword     = "auth/wrong-password"
	AuthInvalidCredential = "auth/invalid-credential"
	AuthTooManyRequests   = "auth/too-many-requests"
	AuthInvalidToken      = "auth/invalid-token"
)

// SyncOp names the remote operation behind a SyncError.
type SyncOp string

const (
	SyncLoad    SyncOp = "load"
	SyncPersist SyncOp = "persist"
)

// SyncError is a non-fatal failure to read or write the remote profile.
type SyncError struct {
	Op     SyncOp
	UserID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
