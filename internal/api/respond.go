package api

import (
	"encoding/json"
	"log"
	"net/http"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// envelope is the single response shape for every endpoint.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// codeFields names the request field behind each validation code so
// error responses can point clients at what to fix.
var codeFields = map[apperrors.Code]string{
	apperrors.CodeUserEmailInvalid:           "email",
	apperrors.CodeUserEmailTaken:             "email",
	apperrors.CodeUserUsernameInvalid:        "username",
	apperrors.CodeUserUsernameTaken:          "username",
	apperrors.CodeUserPasswordInvalid:        "password",
	apperrors.CodeUserPasswordMismatch:       "password_confirm",
	apperrors.CodeUserBioTooLong:             "bio",
	apperrors.CodeUserLocationTooLong:        "location",
	apperrors.CodeCategoryNameEmpty:          "name",
	apperrors.CodeCategoryNameTaken:          "name",
	apperrors.CodeRequestTitleInvalid:        "title",
	apperrors.CodeRequestDescriptionInvalid:  "description",
	apperrors.CodeRequestBudgetInvalid:       "budget_cents",
	apperrors.CodeRequestDeadlineInvalid:     "deadline",
	apperrors.CodeBidAmountInvalid:           "amount_cents",
	apperrors.CodeBidAmountAboveBudget:       "amount_cents",
	apperrors.CodeBidMessageInvalid:          "message",
	apperrors.CodeBidDeliveryInvalid:         "delivery_days",
	apperrors.CodeBidExpiryInvalid:           "expires_at",
	apperrors.CodeEscrowPaymentMethodInvalid: "payment_method",
	apperrors.CodePageTokenInvalid:           "page_token",
	apperrors.CodeOrderByInvalid:             "order_by",
}

// writeJSON writes a payload with a consistent content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeMessage writes a success envelope with a human message.
func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError translates a domain error into the error envelope.
// Untyped errors become opaque 500s; their detail goes to the log only.
func writeError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		writeJSON(w, http.StatusOK, envelope{Success: true})
		return
	}
	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("api error: %v", err)
		message = "internal server error"
	}
	env := envelope{Success: false, Message: message, Code: string(code)}
	if field, ok := codeFields[code]; ok {
		env.Errors = map[string]string{field: message}
	}
	writeJSON(w, status, env)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return apperrors.New(apperrors.CodeInvalidBody, "request body is required")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidBody, "request body is not valid JSON", err)
	}
	return nil
}
