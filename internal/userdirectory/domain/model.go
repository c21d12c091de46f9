package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is the minimal member record issuance targets. Phone is stored in
// normalized form and is the natural key admins reach for when pushing
// coupons from support tooling.
type User struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Phone string       `gorm:"type:text;not null;uniqueIndex" json:"phone"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// NormalizePhone strips everything except digits, keeping a single
// leading plus. "+86 138-0000-0000" and "8613800000000" stay distinct;
// normalization is formatting cleanup, not country-code inference.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for i, r := range raw {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}
