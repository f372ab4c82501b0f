package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Workspace struct {
	gorm.Model

	Name        string `gorm:"not null"`
	Description string
	OwnerID     uint           `gorm:"not null;index"`
	Settings    datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	Owner    User              `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
