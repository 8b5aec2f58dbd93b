// Package domain defines the monthly provider-call ledger. One row per
// calendar month; calls_used only ever grows and is capped by the configured
// ceiling before any external call is made.
package domain

import (
	"errors"
	"time"
)

type QuotaCounter struct {
	Period    string    `gorm:"primaryKey;type:text"`
	CallsUsed int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (QuotaCounter) TableName() string { return "api_quota" }

// PeriodKey formats the ledger key for a point in time.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

var (
	ErrQuotaExceeded     = errors.New("quota_exceeded")
	ErrQuotaInsufficient = errors.New("quota_insufficient")
)
