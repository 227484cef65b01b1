package util

import (
	"errors"
	"fmt"
)

// 错误类别，配合 errors.Is 使用
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrConcurrency = errors.New("concurrent modification")
	ErrInternal    = errors.New("internal error")
)

// AppError 带操作上下文的业务错误
type AppError struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *AppError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newAppError(kind error, op, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(op, format string, args ...any) error {
	return newAppError(ErrValidation, op, format, args...)
}

func NewNotFoundError(op, format string, args ...any) error {
	return newAppError(ErrNotFound, op, format, args...)
}

func NewForbiddenError(op, format string, args ...any) error {
	return newAppError(ErrForbidden, op, format, args...)
}

func NewConflictError(op, format string, args ...any) error {
	return newAppError(ErrConflict, op, format, args...)
}

func NewConcurrencyError(op, format string, args ...any) error {
	return newAppError(ErrConcurrency, op, format, args...)
}

// NewInternalError 包装存储层等非业务错误
func NewInternalError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: ErrInternal, Op: op, Message: "internal failure", Err: err}
}

// TransitionConflict 非法状态迁移，消息中包含当前状态
func TransitionConflict(entity, attempted, current string) error {
	return newAppError(ErrConflict, entity+"."+attempted,
		"cannot %s %s with status %s", attempted, entity, current)
}

// Message 返回可以直接展示给调用方的错误信息
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsForbidden(err error) bool   { return errors.Is(err, ErrForbidden) }
func IsConflict(err error) bool    { return errors.Is(err, ErrConflict) }
func IsConcurrency(err error) bool { return errors.Is(err, ErrConcurrency) }
