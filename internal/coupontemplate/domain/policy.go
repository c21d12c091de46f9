package domain

import "strings"

type PolicyMode string

const (
	PolicyModeManual PolicyMode = "manual"
	PolicyModeAuto   PolicyMode = "auto"
)

// IssuePolicy is an open document: mode and expires_in_days are the
// recognized functional fields, everything else the operator stored
// (preset names, display hints) survives in Extra and round-trips.
type IssuePolicy struct {
	Mode          PolicyMode
	ExpiresInDays int
	Extra         map[string]any
}

// ParseIssuePolicy validates the recognized fields of an issuance-policy
// document. A nil document is a valid empty policy.
func ParseIssuePolicy(doc map[string]any) (IssuePolicy, error) {
	policy := IssuePolicy{}
	if len(doc) == 0 {
		return policy, nil
	}

	for key, value := range doc {
		switch key {
		case "mode":
			raw, ok := value.(string)
			if !ok {
				return IssuePolicy{}, NewFieldError("issue_policy.mode", "invalid_mode", "mode must be a string")
			}
			switch PolicyMode(strings.ToLower(strings.TrimSpace(raw))) {
			case PolicyModeManual:
				policy.Mode = PolicyModeManual
			case PolicyModeAuto:
				policy.Mode = PolicyModeAuto
			default:
				return IssuePolicy{}, NewFieldError("issue_policy.mode", "unknown_mode", "mode must be manual or auto")
			}
		case "expires_in_days":
			days, ok := docInt(doc, "expires_in_days")
			if !ok || days <= 0 {
				return IssuePolicy{}, NewFieldError("issue_policy.expires_in_days", "positive_integer_required", "expires_in_days must be a positive integer")
			}
			policy.ExpiresInDays = int(days)
		default:
			if policy.Extra == nil {
				policy.Extra = make(map[string]any)
			}
			policy.Extra[key] = value
		}
	}

	return policy, nil
}
