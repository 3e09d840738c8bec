package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/paycore/internal/api/httpx"
	"github.com/baharkarakas/paycore/internal/api/validate"
	"github.com/baharkarakas/paycore/internal/services"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrConcurrencyConflict),
		errors.Is(err, services.ErrCardExists),
		errors.Is(err, services.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch services.KindOf(err) {
	case services.KindValidation, services.KindConflict, services.KindInsufficientFunds:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindAuthentication:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		code := "internal_error"
		if status == http.StatusGatewayTimeout {
			code = "timeout"
		}
		httpx.WriteError(w, status, code, "internal error", nil)
		return
	}
	httpx.WriteError(w, status, services.CodeOf(err), err.Error(), nil)
}

func writeInvalid(w http.ResponseWriter, errs validate.Errs) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_input", "invalid payment data", errs)
}

func writeBadJSON(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}
