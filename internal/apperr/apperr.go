// Package apperr 定义了对外暴露的错误分类与稳定错误码。
package apperr

import (
	"errors"
	"fmt"
)

// 稳定错误码，直接用于 chat:error 载荷。
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeSessionExists   = "SESSION_EXISTS"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeStartFailed     = "START_FAILED"
	CodeProcessFailed   = "PROCESS_FAILED"
	CodeSummaryFailed   = "SUMMARY_FAILED"
	CodeNoSpeech        = "NO_SPEECH"
	CodeMaxTurns        = "MAX_TURNS_REACHED"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// Error 携带稳定错误码的业务错误，支持 errors.As/Is 解包。
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建一个不包裹底层错误的业务错误。
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 包裹底层错误并标注错误码。message 中应保留协作方名称以便排查。
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound 未知会话 ID。
func NotFound(conversationID string) *Error {
	return New(CodeNotFound, fmt.Sprintf("conversation not found: %s", conversationID))
}

// CodeOf 提取错误码；非业务错误一律归为 INTERNAL_ERROR。
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// MessageOf 提取对外展示的错误消息。
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
