package models

import (
	"time"

	"gorm.io/gorm"
)

// Indication records a validated referral between an affiliate and a
// customer. The unique pair index is the bonus-duplication guard: at most
// one non-rejected row per (source affiliate, customer).
type Indication struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	SourceAffiliateID uint           `gorm:"not null;index;index:idx_indication_pair,unique" json:"source_affiliate_id"`
	CustomerID        uint           `gorm:"not null;index;index:idx_indication_pair,unique" json:"customer_id"`
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`
	BonusAmount       Money          `gorm:"type:decimal(20,4);not null;default:0" json:"bonus_amount"`
	ValidatedAt       *time.Time     `gorm:"index" json:"validated_at,omitempty"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (Indication) TableName() string {
	return "indications"
}
