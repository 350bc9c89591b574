// Package apperror defines the error kinds surfaced by the bank services.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindAuth              Kind = "auth"
	KindNotFound          Kind = "not_found"
	KindNotVerified       Kind = "not_verified"
	KindInvalidAmount     Kind = "invalid_amount"
	KindLimitExceeded     Kind = "limit_exceeded"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindRecipientNotFound Kind = "recipient_not_found"
	KindSelfTransfer      Kind = "self_transfer"
	KindForbidden         Kind = "forbidden"
	KindUnavailable       Kind = "unavailable"
	KindStorage           Kind = "storage"
)

// Error is the concrete error returned by services.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports a match when target is an *Error of the same kind, so the
// sentinels below work with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrNotVerified       = &Error{Kind: KindNotVerified}
	ErrInvalidAmount     = &Error{Kind: KindInvalidAmount}
	ErrLimitExceeded     = &Error{Kind: KindLimitExceeded}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrRecipientNotFound = &Error{Kind: KindRecipientNotFound}
	ErrSelfTransfer      = &Error{Kind: KindSelfTransfer}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrStorage           = &Error{Kind: KindStorage}
)

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return New(KindValidation, format, args...) }
func Conflict(format string, args ...any) *Error   { return New(KindConflict, format, args...) }
func Auth(format string, args ...any) *Error       { return New(KindAuth, format, args...) }
func NotFound(format string, args ...any) *Error   { return New(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error  { return New(KindForbidden, format, args...) }

// Storage wraps a backing store failure. It is fatal to the current call only.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: op, cause: cause}
}

// KindOf extracts the kind of err, or the empty kind when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

var userMessages = map[Kind]string{
	KindValidation:        "Проверьте правильность заполнения полей",
	KindConflict:          "Такая запись уже существует",
	KindAuth:              "Неверный email или пароль",
	KindNotFound:          "Запись не найдена",
	KindNotVerified:       "Паспорт не найден или не подтверждён",
	KindInvalidAmount:     "Введите корректную сумму",
	KindLimitExceeded:     "Превышен лимит перевода",
	KindInsufficientFunds: "Недостаточно средств",
	KindRecipientNotFound: "Получатель не найден",
	KindSelfTransfer:      "Нельзя перевести деньги самому себе",
	KindForbidden:         "Недостаточно прав",
	KindUnavailable:       "Сервис временно недоступен",
	KindStorage:           "Временная проблема, попробуйте позже",
}

// UserMessage returns the single human-readable message for the kind of err.
func UserMessage(err error) string {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Произошла ошибка"
}
