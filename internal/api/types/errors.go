package types

import (
	"errors"

	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// FromAppError renders err for a response body. Internal errors keep their message but never
// the wrapped cause.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		return &APIError{Code: string(ae.Code), Message: ae.Message}
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}

// FromValidation lists the failed fields of a validator error.
func FromValidation(err error) *APIError {
	out := &APIError{Code: string(appErr.CodeInvalid), Message: "request validation failed"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for i, fe := range verrs {
			if i > 0 {
				out.Details += "; "
			}
			out.Details += fe.Field() + " failed " + fe.Tag()
		}
		return out
	}
	out.Details = err.Error()
	return out
}
