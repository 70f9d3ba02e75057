package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeUserEmailInvalid,
		CodeUserUsernameInvalid,
		CodeUserPasswordInvalid,
		CodeUserPasswordMismatch,
		CodeUserBioTooLong,
		CodeUserLocationTooLong,
		CodeCategoryNameEmpty,
		CodeCategoryInactive,
		CodeRequestTitleInvalid,
		CodeRequestDescriptionInvalid,
		CodeRequestBudgetInvalid,
		CodeRequestDeadlineInvalid,
		CodeBidAmountInvalid,
		CodeBidAmountAboveBudget,
		CodeBidMessageInvalid,
		CodeBidDeliveryInvalid,
		CodeBidExpiryInvalid,
		CodeEscrowPaymentMethodInvalid,
		CodePageTokenInvalid,
		CodeOrderByInvalid,
		CodeInvalidBody:
		return http.StatusBadRequest

	// Unauthorized - missing or unusable credentials
	case CodeAuthRequired,
		CodeAuthInvalidCredentials,
		CodeAuthTokenInvalid,
		CodeAuthTokenExpired,
		CodeAuthSessionRevoked:
		return http.StatusUnauthorized

	// Forbidden - authenticated but not allowed
	case CodePermissionDenied,
		CodeBidOwnRequest:
		return http.StatusForbidden

	// Not found
	case CodeNotFound:
		return http.StatusNotFound

	// Conflict - unique constraints and state preconditions
	case CodeUserEmailTaken,
		CodeUserUsernameTaken,
		CodeCategoryNameTaken,
		CodeAlreadyExists,
		CodeBidDuplicate,
		CodeEscrowAlreadyExists,
		CodeRequestInvalidStatusTransition,
		CodeRequestStatusDisallowsOp,
		CodeRequestNotBiddable,
		CodeRequestBudgetLocked,
		CodeRequestHasBids,
		CodeBidNotEditable,
		CodeBidNotAcceptable,
		CodeBidExpired,
		CodeEscrowInvalidStatusTransition,
		CodeEscrowStatusDisallowsOp:
		return http.StatusConflict

	// Payment required - simulated processor declines
	case CodeEscrowPaymentDeclined:
		return http.StatusPaymentRequired

	// Too many requests
	case CodeAuthRateLimited:
		return http.StatusTooManyRequests

	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus resolves the status code for any error. Non-domain errors map
// to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// CodeOf extracts the domain code from any error, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
