package models

import "time"

// Transaction is the engine's read-model copy of a customer transaction.
// It is owned by the transaction-monitoring collaborator and never mutated
// here; the engine only upserts the inbound copy before validation so that
// first-deposit counting sees the triggering row.
type Transaction struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CustomerID  uint      `gorm:"not null;index" json:"customer_id"`
	AffiliateID uint      `gorm:"not null;index" json:"affiliate_id"`
	Type        string    `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount      Money     `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	Status      string    `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (Transaction) TableName() string {
	return "transactions"
}
