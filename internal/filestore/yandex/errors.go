package yandex

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/realms/internal/errs"
)

func mapTransportError(err error) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "yandex request", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "yandex request", err)
}

func mapStatus(status int, msg string) *errs.Error {
	switch status {
	case http.StatusNotFound:
		return errs.New(errs.ErrKindNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.New(errs.ErrKindPermissionDenied, msg)
	case http.StatusBadRequest:
		return errs.New(errs.ErrKindInvalidInput, msg)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errs.New(errs.ErrKindTimeout, msg)
	default:
		return errs.New(errs.ErrKindQueryFailed, msg)
	}
}
