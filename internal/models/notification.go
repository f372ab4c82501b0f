package models

import "gorm.io/gorm"

type Notification struct {
	gorm.Model

	Title         string `gorm:"not null"`
	Body          string `gorm:"not null"`
	Status        string `gorm:"not null;default:UNSEEN"`
	RecipientID   uint   `gorm:"not null;index"`
	RelatedTaskID *uint  `gorm:"index"`

	// Relationships
	Recipient   User  `gorm:"foreignKey:RecipientID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	RelatedTask *Task `gorm:"foreignKey:RelatedTaskID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
