package apperror

import (
	"errors"
	"net/http"
)

var statusByKind = map[Kind]int{
	KindValidation:        http.StatusBadRequest,
	KindInvalidAmount:     http.StatusBadRequest,
	KindLimitExceeded:     http.StatusUnprocessableEntity,
	KindInsufficientFunds: http.StatusUnprocessableEntity,
	KindSelfTransfer:      http.StatusUnprocessableEntity,
	KindNotVerified:       http.StatusUnprocessableEntity,
	KindConflict:          http.StatusConflict,
	KindAuth:              http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindNotFound:          http.StatusNotFound,
	KindRecipientNotFound: http.StatusNotFound,
	KindUnavailable:       http.StatusServiceUnavailable,
	KindStorage:           http.StatusInternalServerError,
}

// HTTPStatus maps err to a response status. Errors without a kind are 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		if status, ok := statusByKind[appErr.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}
