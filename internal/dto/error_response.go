package dto

import (
	"errors"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Available string `json:"available,omitempty"`
	Requested string `json:"requested,omitempty"`
}

// NewErrorResponse builds the body for err, adding the available/requested amounts of limit rejections.
func NewErrorResponse(err error) ErrorResponse {
	res := ErrorResponse{Error: err.Error(), Code: apperrors.Code(err)}
	var limitErr *apperrors.LimitError
	if errors.As(err, &limitErr) {
		res.Available = FormatMinor(limitErr.Available)
		res.Requested = FormatMinor(limitErr.Requested)
	}
	return res
}
