package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission is one per-level payout created by a distribution run. The
// composite unique index is the idempotency guard: at most one row may exist
// per (transaction, beneficiary, hierarchy level, validation model).
type Commission struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	AffiliateID       uint           `gorm:"not null;index;index:idx_commission_unique,unique" json:"affiliate_id"`
	SourceAffiliateID uint           `gorm:"not null;index" json:"source_affiliate_id"`
	CustomerID        uint           `gorm:"not null;index" json:"customer_id"`
	TransactionID     uint           `gorm:"not null;index;index:idx_commission_unique,unique" json:"transaction_id"`
	Level             int            `gorm:"not null;index:idx_commission_unique,unique" json:"level"`
	ValidationModel   string         `gorm:"type:varchar(10);not null;index:idx_commission_unique,unique" json:"validation_model"`
	BaseAmount        Money          `gorm:"type:decimal(20,4);not null;default:0" json:"base_amount"`
	Percentage        Money          `gorm:"type:decimal(10,4);not null;default:0" json:"percentage"`
	CommissionAmount  Money          `gorm:"type:decimal(20,4);not null;default:0" json:"commission_amount"`
	FinalAmount       Money          `gorm:"type:decimal(20,4);not null;default:0" json:"final_amount"`
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`
	Metadata          JSON           `gorm:"type:json" json:"metadata"`
	ApprovedAt        *time.Time     `gorm:"index" json:"approved_at,omitempty"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Affiliate Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
}

// TableName sets the table name.
func (Commission) TableName() string {
	return "commissions"
}
