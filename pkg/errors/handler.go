package errors

import (
	"errors"
	"fmt"
	"net/http"

	"flowcanvas/pkg/common"

	"go.uber.org/zap"
)

// ErrorHandler translates error chains into envelope responses. The
// mapping from error type to HTTP status lives here and nowhere else;
// handlers hand their errors over untouched.
type ErrorHandler struct {
	logger        *zap.Logger
	debug         bool
	defaultStatus int
}

// NewErrorHandler creates a new error handler. With debug enabled the
// responses carry stack traces and raw error text; keep it off outside
// development.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		logger:        logger,
		debug:         debug,
		defaultStatus: http.StatusInternalServerError,
	}
}

// Handle writes err as an envelope response. Validation collections
// keep every field error, single domain errors carry their own status
// code, application errors map through their HTTP status, and anything
// unrecognized becomes an opaque 500.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	status, info := h.classify(err)
	h.log(r, status, info.Code, err)
	common.RespondErrorWithDetails(w, status, info.Code, info.Message, info.Details)
}

func (h *ErrorHandler) classify(err error) (int, common.ErrorInfo) {
	var collection *ValidationErrors
	if errors.As(err, &collection) && collection.HasErrors() {
		return http.StatusBadRequest, common.ErrorInfo{
			Code:    "VALIDATION_FAILED",
			Message: "Validation failed",
			Details: map[string]interface{}{"errors": collection.ToMap()},
		}
	}

	if domainErr := GetDomainError(err); domainErr != nil {
		status := domainErr.StatusCode
		if status == 0 {
			status = h.defaultStatus
		}
		details := domainErr.Details
		if len(details) == 0 {
			details = nil
		}
		return status, common.ErrorInfo{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: details,
		}
	}

	if appErr := GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = h.defaultStatus
		}
		code := appErr.Code
		if code == "" {
			code = string(appErr.Type)
		}
		details := appErr.Details
		if h.debug && appErr.StackTrace != "" {
			if details == nil {
				details = make(map[string]interface{})
			}
			details["stack_trace"] = appErr.StackTrace
		}
		return status, common.ErrorInfo{
			Code:    code,
			Message: appErr.Message,
			Details: details,
		}
	}

	message := "An internal error occurred"
	if h.debug {
		message = err.Error()
	}
	return h.defaultStatus, common.ErrorInfo{
		Code:    common.StandardErrorCodes.InternalError,
		Message: message,
	}
}

func (h *ErrorHandler) log(r *http.Request, status int, code string, err error) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("error_code", code),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if requestID := common.ExtractRequestID(r); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if elapsed := common.GetElapsedTime(r.Context()); elapsed > 0 {
		fields = append(fields, zap.Duration("elapsed", elapsed))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
		return
	}
	h.logger.Warn("request rejected", fields...)
}

// Middleware recovers panics from downstream handlers and answers them
// with the same envelope every other error uses.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
