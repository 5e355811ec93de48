// Package entity defines the domain models for the company feature.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Company represents a listed company tracked by the system.
// ISIN is globally unique; Name and StockTicker are indexed for lookups.
type Company struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"size:200;not null;index"`
	StockTicker string    `gorm:"size:10;not null;index"`
	Exchange    string    `gorm:"size:100;not null"`
	ISIN        string    `gorm:"column:isin;size:12;not null;uniqueIndex"`
	Website     *string   `gorm:"size:500"`
	// タイムスタンプはusecase層が管理するため、GORMの自動設定を無効化
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for GORM.
func (Company) TableName() string {
	return "companies"
}
