package model

import (
	"time"

	"gorm.io/gorm"
)

// Account maps a chat user to the custodial key material held on their
// behalf. Mnemonic is written once at creation and never updated; Address
// is derived from it at the same moment and never regenerated.
type Account struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex;not null"`
	Chain     string `gorm:"size:32;index"`
	Address   string `gorm:"size:128;uniqueIndex"`
	Mnemonic  string `gorm:"type:text" json:"-"` // secret, never serialized or logged
	CreatedAt time.Time
}

// helper: create tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{})
}
