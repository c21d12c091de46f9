package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ProgramStatus string

const (
	ProgramStatusDraft  ProgramStatus = "draft"
	ProgramStatusActive ProgramStatus = "active"
	ProgramStatusPaused ProgramStatus = "paused"
	ProgramStatusEnded  ProgramStatus = "ended"
)

type DistributionMode string

const (
	ModeAutomaticTrigger DistributionMode = "automatic_trigger"
	ModeManualClaim      DistributionMode = "manual_claim"
	ModePromoCode        DistributionMode = "promo_code"
	ModeAdminPush        DistributionMode = "admin_push"
)

// LineItem references a template and how many coupons of it the program
// issues per target user.
type LineItem struct {
	TemplateID string `json:"template_id"`
	Quantity   int    `json:"quantity"`
}

// CouponProgram is a distribution campaign. IssuedCount only moves
// forward and only inside the issuance transaction; no other code path
// writes it.
type CouponProgram struct {
	ID     snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name   string        `gorm:"type:text;not null" json:"name"`
	Status ProgramStatus `gorm:"type:text;not null;default:'draft'" json:"status"`

	Mode        DistributionMode `gorm:"column:distribution_mode;type:text;not null" json:"distribution_mode"`
	TriggerType *string          `gorm:"column:trigger_type;type:text" json:"trigger_type,omitempty"`
	PromoCode   *string          `gorm:"column:promo_code;type:text" json:"promo_code,omitempty"`

	TotalLimit   *int  `gorm:"column:total_limit" json:"total_limit,omitempty"`
	PerUserLimit *int  `gorm:"column:per_user_limit" json:"per_user_limit,omitempty"`
	IssuedCount  int64 `gorm:"column:issued_count;not null;default:0" json:"issued_count"`

	Eligibility datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"eligibility,omitempty"`
	LineItems   datatypes.JSON    `gorm:"column:line_items;type:jsonb;not null" json:"line_items"`

	ValidFrom *time.Time `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CouponProgram) TableName() string { return "coupon_programs" }

// Items decodes the stored line-item list.
func (p *CouponProgram) Items() ([]LineItem, error) {
	if len(p.LineItems) == 0 {
		return nil, nil
	}
	var items []LineItem
	if err := json.Unmarshal(p.LineItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func ValidProgramStatus(s ProgramStatus) bool {
	switch s {
	case ProgramStatusDraft, ProgramStatusActive, ProgramStatusPaused, ProgramStatusEnded:
		return true
	default:
		return false
	}
}

func ValidDistributionMode(m DistributionMode) bool {
	switch m {
	case ModeAutomaticTrigger, ModeManualClaim, ModePromoCode, ModeAdminPush:
		return true
	default:
		return false
	}
}
