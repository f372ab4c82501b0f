package models

import "gorm.io/gorm"

// Session is one device record per issued refresh token. Records are marked
// revoked rather than deleted so a revoked token value can never slip past
// the uniqueness check and authenticate again.
type Session struct {
	gorm.Model

	UserID       uint   `gorm:"not null;index"`
	RefreshToken string `gorm:"uniqueIndex;not null"`
	IPAddress    string
	UserAgent    string
	IsRevoked    bool `gorm:"not null;default:false"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
