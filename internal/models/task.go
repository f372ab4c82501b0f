package models

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	gorm.Model

	Title       string `gorm:"not null"`
	Description string
	Status      string `gorm:"not null;default:TODO"`
	Priority    string `gorm:"not null;default:MEDIUM"`
	DueDate     *time.Time
	ProjectID   uint `gorm:"not null;index"`

	// Relationships
	Project       Project        `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Assignees     []TaskAssignee `gorm:"foreignKey:TaskID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications []Notification `gorm:"foreignKey:RelatedTaskID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
