package models

import "gorm.io/gorm"

// ResetTokenUse records the jti of a consumed password-reset token. The
// unique index makes first use win and every replay fail.
type ResetTokenUse struct {
	gorm.Model

	JTI    string `gorm:"uniqueIndex;not null"`
	UserID uint   `gorm:"not null;index"`
}
