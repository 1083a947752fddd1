package handler

import (
	"errors"
	"net/http"

	customError "github.com/ssdev/emi-engine/pkg/errors"
	"github.com/ssdev/emi-engine/pkg/response"
)

// writeBusinessError maps BusinessError codes to HTTP statuses. Write paths
// surface a generic message plus the underlying cause.
func writeBusinessError(w http.ResponseWriter, message string, err error) {
	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		switch businessErr.Code {
		case customError.ErrCodeBorrowerNotFound, customError.ErrCodeInstallmentNotFound:
			response.Error(w, http.StatusNotFound, message, err)
			return
		case customError.ErrCodeBorrowerAlreadyExists:
			response.Error(w, http.StatusConflict, message, err)
			return
		case customError.ErrCodeInvalidPaidDate, customError.ErrCodeInvalidStartDate,
			customError.ErrCodeInvalidStatus, customError.ErrCodeInvalidPeriod:
			response.BadRequest(w, message, err)
			return
		}
	}

	response.InternalServerError(w, message, err)
}
