package models

import "time"

// IssueStat stores aggregated captcha issuance counts per day and kind
// (created, refreshed, assigned, verified, failed).
type IssueStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_issue_date_kind,unique;type:date;not null" json:"date"`
	Kind      string    `gorm:"index:idx_issue_date_kind,unique;size:32;not null" json:"kind"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
