// Package errors provides structured error handling for the marketplace.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// User errors
	CodeUserEmailInvalid     Code = "USER_EMAIL_INVALID"
	CodeUserEmailTaken       Code = "USER_EMAIL_TAKEN"
	CodeUserUsernameInvalid  Code = "USER_USERNAME_INVALID"
	CodeUserUsernameTaken    Code = "USER_USERNAME_TAKEN"
	CodeUserPasswordInvalid  Code = "USER_PASSWORD_INVALID"
	CodeUserPasswordMismatch Code = "USER_PASSWORD_MISMATCH"
	CodeUserBioTooLong       Code = "USER_BIO_TOO_LONG"
	CodeUserLocationTooLong  Code = "USER_LOCATION_TOO_LONG"

	// Auth errors
	CodeAuthRequired           Code = "AUTH_REQUIRED"
	CodeAuthInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAuthTokenInvalid       Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired       Code = "AUTH_TOKEN_EXPIRED"
	CodeAuthSessionRevoked     Code = "AUTH_SESSION_REVOKED"
	CodeAuthRateLimited        Code = "AUTH_RATE_LIMITED"

	// Category errors
	CodeCategoryNameEmpty Code = "CATEGORY_NAME_EMPTY"
	CodeCategoryNameTaken Code = "CATEGORY_NAME_TAKEN"
	CodeCategoryInactive  Code = "CATEGORY_INACTIVE"

	// Request errors
	CodeRequestTitleInvalid            Code = "REQUEST_TITLE_INVALID"
	CodeRequestDescriptionInvalid      Code = "REQUEST_DESCRIPTION_INVALID"
	CodeRequestBudgetInvalid           Code = "REQUEST_BUDGET_INVALID"
	CodeRequestDeadlineInvalid         Code = "REQUEST_DEADLINE_INVALID"
	CodeRequestInvalidStatusTransition Code = "REQUEST_INVALID_STATUS_TRANSITION"
	CodeRequestStatusDisallowsOp       Code = "REQUEST_STATUS_DISALLOWS_OPERATION"
	CodeRequestNotBiddable             Code = "REQUEST_NOT_BIDDABLE"
	CodeRequestBudgetLocked            Code = "REQUEST_BUDGET_LOCKED"
	CodeRequestHasBids                 Code = "REQUEST_HAS_BIDS"

	// Bid errors
	CodeBidAmountInvalid     Code = "BID_AMOUNT_INVALID"
	CodeBidAmountAboveBudget Code = "BID_AMOUNT_ABOVE_BUDGET"
	CodeBidMessageInvalid    Code = "BID_MESSAGE_INVALID"
	CodeBidDeliveryInvalid   Code = "BID_DELIVERY_INVALID"
	CodeBidExpiryInvalid     Code = "BID_EXPIRY_INVALID"
	CodeBidOwnRequest        Code = "BID_OWN_REQUEST"
	CodeBidDuplicate         Code = "BID_DUPLICATE"
	CodeBidNotEditable       Code = "BID_NOT_EDITABLE"
	CodeBidNotAcceptable     Code = "BID_NOT_ACCEPTABLE"
	CodeBidExpired           Code = "BID_EXPIRED"

	// Escrow errors
	CodeEscrowInvalidStatusTransition Code = "ESCROW_INVALID_STATUS_TRANSITION"
	CodeEscrowStatusDisallowsOp       Code = "ESCROW_STATUS_DISALLOWS_OPERATION"
	CodeEscrowPaymentMethodInvalid    Code = "ESCROW_PAYMENT_METHOD_INVALID"
	CodeEscrowAlreadyExists           Code = "ESCROW_ALREADY_EXISTS"
	CodeEscrowPaymentDeclined         Code = "ESCROW_PAYMENT_DECLINED"

	// Listing errors
	CodePageTokenInvalid Code = "PAGE_TOKEN_INVALID"
	CodeOrderByInvalid   Code = "ORDER_BY_INVALID"

	// Transport errors
	CodeInvalidBody Code = "INVALID_BODY"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodePermissionDenied Code = "PERMISSION_DENIED"
)
