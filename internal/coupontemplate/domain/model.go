package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TemplateStatus string

const (
	TemplateStatusDraft  TemplateStatus = "draft"
	TemplateStatusActive TemplateStatus = "active"
	TemplateStatusPaused TemplateStatus = "paused"
	TemplateStatusEnded  TemplateStatus = "ended"
)

// CouponTemplate is a reusable discount definition. The rule and policy
// documents are stored as validated-at-write JSON so operator metadata in
// the policy round-trips untouched. Templates are never hard-deleted;
// status moves to ended instead.
type CouponTemplate struct {
	ID     snowflake.ID   `gorm:"primaryKey" json:"id"`
	Title  string         `gorm:"type:text;not null" json:"title"`
	Status TemplateStatus `gorm:"type:text;not null;default:'draft'" json:"status"`

	ValidFrom *time.Time `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to,omitempty"`

	UseRule     datatypes.JSONMap `gorm:"type:jsonb;not null" json:"use_rule"`
	IssuePolicy datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"issue_policy"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CouponTemplate) TableName() string { return "coupon_templates" }

func ValidTemplateStatus(s TemplateStatus) bool {
	switch s {
	case TemplateStatusDraft, TemplateStatusActive, TemplateStatusPaused, TemplateStatusEnded:
		return true
	default:
		return false
	}
}
