package types

import (
	"errors"

	appErr "github.com/devportal/engine/pkg/errors"
)

// FromAppError renders err for clients. Only AppError messages are exposed;
// anything else becomes a generic internal error.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		out := &APIError{Code: string(ae.Code), Message: ae.Message, Fields: ae.Meta}
		if ae.Code == appErr.CodeInvalid && ae.Err != nil {
			out.Details = ae.Err.Error()
		}
		return out
	}
	return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
}
