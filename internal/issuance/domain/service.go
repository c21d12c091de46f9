package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Service interface {
	// Issue runs an admin push for one program against one user. The
	// whole batch commits atomically: either every line item's coupons
	// land in the wallet and the program counter moves, or nothing does.
	Issue(ctx context.Context, req IssueRequest) (*IssueResponse, error)
}

type IssueRequest struct {
	ProgramID string `json:"program_id"`

	// Target user: exactly one of user_id or phone.
	UserID string `json:"user_id"`
	Phone  string `json:"phone"`

	// IdempotencyKey deduplicates retries. When absent the server
	// assigns one, which makes the request effectively at-most-once
	// from the caller's view but never double-issues.
	IdempotencyKey string `json:"idempotency_key"`
}

type IssueResponse struct {
	ProgramID   string `json:"program_id"`
	UserID      string `json:"user_id"`
	IssuedCount int    `json:"issued_count"`

	// Replayed is true when the idempotency key matched a previous
	// commit and this response echoes it.
	Replayed bool `json:"replayed"`
}

var (
	ErrProgramNotFound        = errors.New("program_not_found")
	ErrProgramNotActive       = errors.New("program_not_active")
	ErrNotPushProgram         = errors.New("not_push_program")
	ErrNothingToIssue         = errors.New("nothing_to_issue")
	ErrPercentRuleNotIssuable = errors.New("percent_rule_not_issuable")
	ErrProgramLimitReached    = errors.New("program_limit_reached")
	ErrPerUserLimitReached    = errors.New("per_user_limit_reached")
)

// MissingTemplatesError reports line items whose template no longer
// exists. The whole request is rejected; nothing partial is issued.
type MissingTemplatesError struct {
	IDs []string
}

func (e *MissingTemplatesError) Error() string {
	return fmt.Sprintf("missing templates: %s", strings.Join(e.IDs, ", "))
}
