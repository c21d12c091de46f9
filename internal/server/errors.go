package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	issuancedomain "github.com/tably/tably/internal/issuance/domain"
	orderdomain "github.com/tably/tably/internal/order/domain"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
)

type errorPayload struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Field   string   `json:"field,omitempty"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

// respondError maps domain errors onto the HTTP error taxonomy:
// validation 400, unknown resources 404, state conflicts 409, rules the
// engine cannot issue 422. Everything unmapped is a 500 with no detail
// leaked.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var fieldErr *templatedomain.FieldError
	if errors.As(err, &fieldErr) {
		c.JSON(http.StatusBadRequest, errorPayload{
			Error:   "validation_failed",
			Code:    fieldErr.Code,
			Field:   fieldErr.Field,
			Message: fieldErr.Message,
		})
		return
	}

	var missing *issuancedomain.MissingTemplatesError
	if errors.As(err, &missing) {
		c.JSON(http.StatusBadRequest, errorPayload{
			Error:   "validation_failed",
			Code:    "missing_templates",
			Message: "one or more line items reference templates that do not exist",
			Details: missing.IDs,
		})
		return
	}

	status, code := classify(err)
	payload := errorPayload{Error: errorLabel(status), Code: code}
	if status == http.StatusInternalServerError {
		payload.Code = ""
	}
	c.JSON(status, payload)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, templatedomain.ErrInvalidID),
		errors.Is(err, programdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, userdomain.ErrInvalidID),
		errors.Is(err, coupondomain.ErrInvalidUserID):
		return http.StatusBadRequest, "invalid_id"
	case errors.Is(err, userdomain.ErrMissingRef):
		return http.StatusBadRequest, "missing_user_ref"
	case errors.Is(err, userdomain.ErrAmbiguousRef):
		return http.StatusBadRequest, "ambiguous_user_ref"

	case errors.Is(err, templatedomain.ErrNotFound),
		errors.Is(err, programdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, issuancedomain.ErrProgramNotFound):
		return http.StatusNotFound, "program_not_found"

	case errors.Is(err, userdomain.ErrDuplicatePhone):
		return http.StatusConflict, "duplicate_phone"
	case errors.Is(err, issuancedomain.ErrProgramNotActive):
		return http.StatusConflict, "program_not_active"
	case errors.Is(err, issuancedomain.ErrNotPushProgram):
		return http.StatusConflict, "not_push_program"
	case errors.Is(err, issuancedomain.ErrNothingToIssue):
		return http.StatusConflict, "nothing_to_issue"
	case errors.Is(err, issuancedomain.ErrProgramLimitReached):
		return http.StatusConflict, "program_limit_reached"
	case errors.Is(err, issuancedomain.ErrPerUserLimitReached):
		return http.StatusConflict, "per_user_limit_reached"
	case errors.Is(err, orderdomain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, orderdomain.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	case errors.Is(err, orderdomain.ErrOrderNotAmendable):
		return http.StatusConflict, "order_not_amendable"

	case errors.Is(err, issuancedomain.ErrPercentRuleNotIssuable):
		return http.StatusUnprocessableEntity, "percent_rule_not_issuable"

	default:
		return http.StatusInternalServerError, ""
	}
}

func errorLabel(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_failed"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	default:
		return "internal_error"
	}
}

// classifyErrorForLog feeds the request logger's error fields.
func classifyErrorForLog(err error) (string, string) {
	var fieldErr *templatedomain.FieldError
	if errors.As(err, &fieldErr) {
		return "validation", fieldErr.Code
	}
	var missing *issuancedomain.MissingTemplatesError
	if errors.As(err, &missing) {
		return "validation", "missing_templates"
	}

	status, code := classify(err)
	switch status {
	case http.StatusBadRequest:
		return "validation", code
	case http.StatusNotFound:
		return "not_found", code
	case http.StatusConflict:
		return "conflict", code
	case http.StatusUnprocessableEntity:
		return "unsupported", code
	default:
		return "internal", code
	}
}
