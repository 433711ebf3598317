package repository

import "time"

// CommissionListFilter filters commission queries.
type CommissionListFilter struct {
	Page          int
	PageSize      int
	AffiliateID   uint
	TransactionID uint
	Status        string
}

// IndicationListFilter filters indication queries.
type IndicationListFilter struct {
	Page              int
	PageSize          int
	SourceAffiliateID uint
	Status            string
}

// AffiliateListFilter filters affiliate queries.
type AffiliateListFilter struct {
	Page     int
	PageSize int
	Category string
	Status   string
}

// AuditLogListFilter filters audit log queries.
type AuditLogListFilter struct {
	Page       int
	PageSize   int
	Action     string
	Severity   string
	ResourceID string
	Since      *time.Time
	RequestID  string
}
