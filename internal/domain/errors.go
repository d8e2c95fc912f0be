package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeGameNotFound     ErrorCode = "GAME_NOT_FOUND"
	ErrCodeWrongRole        ErrorCode = "WRONG_ROLE"
	ErrCodeInvalidPhase     ErrorCode = "INVALID_PHASE"
	ErrCodeAlreadyAnswered  ErrorCode = "ALREADY_ANSWERED"
	ErrCodeNotYourTurn      ErrorCode = "NOT_YOUR_TURN"
	ErrCodeInvalidBid       ErrorCode = "INVALID_BID"
	ErrCodeInvalidPayload   ErrorCode = "INVALID_PAYLOAD"
	ErrCodeGamePaused       ErrorCode = "GAME_PAUSED"
	ErrCodePlayerNotFound   ErrorCode = "PLAYER_NOT_FOUND"
	ErrCodeSlotTaken        ErrorCode = "SLOT_TAKEN"
	ErrCodeGameFull         ErrorCode = "GAME_FULL"
	ErrCodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	ErrCodeThemeNotFound    ErrorCode = "THEME_NOT_FOUND"
	ErrCodeAlreadyReviewed  ErrorCode = "ALREADY_REVIEWED"
	ErrCodeRestricted       ErrorCode = "RESTRICTED"
	ErrCodeUnknownAction    ErrorCode = "UNKNOWN_ACTION"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// ClientError is an expected rejection of a user request. It never carries a
// state change and is reported only to the originating connection.
type ClientError struct {
	Code    ErrorCode
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewClientError(code ErrorCode, format string, args ...any) *ClientError {
	return &ClientError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ServerError is an internal invariant violation.
type ServerError struct {
	Op  string
	Err error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func NewServerError(op string, format string, args ...any) *ServerError {
	return &ServerError{Op: op, Err: fmt.Errorf(format, args...)}
}

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindClient
	KindServer
)

// KindOf classifies err. Anything that is not a ClientError is a server error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return KindClient
	}
	return KindServer
}

// AsClientError extracts the client error from err, if any.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
