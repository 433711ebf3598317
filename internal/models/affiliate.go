package models

import (
	"time"

	"gorm.io/gorm"
)

// Affiliate is a member of the referral hierarchy. Balance and counter
// columns are only ever mutated through atomic increments; the one
// whole-field assignment allowed is the category/level promotion.
type Affiliate struct {
	ID                 uint           `gorm:"primarykey" json:"id"`
	ReferralCode       string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"referral_code"`
	ParentID           *uint          `gorm:"index" json:"parent_id,omitempty"`
	Category           string         `gorm:"type:varchar(20);not null;index" json:"category"`
	CategoryLevel      int            `gorm:"not null;default:1" json:"category_level"`
	DirectIndications  int64          `gorm:"not null;default:0" json:"direct_indications"`
	TotalIndications   int64          `gorm:"not null;default:0" json:"total_indications"`
	TotalCommissions   Money          `gorm:"type:decimal(20,4);not null;default:0" json:"total_commissions"`
	AvailableBalance   Money          `gorm:"type:decimal(20,4);not null;default:0" json:"available_balance"`
	CurrentMonthVolume Money          `gorm:"type:decimal(20,4);not null;default:0" json:"current_month_volume"`
	LastActivityAt     *time.Time     `gorm:"index" json:"last_activity_at,omitempty"`
	Status             string         `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Parent *Affiliate `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
}

// TableName sets the table name.
func (Affiliate) TableName() string {
	return "affiliates"
}
