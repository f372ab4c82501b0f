package models

import "gorm.io/gorm"

type WorkspaceMember struct {
	gorm.Model

	WorkspaceID uint   `gorm:"not null;uniqueIndex:idx_workspace_user"`
	UserID      uint   `gorm:"not null;uniqueIndex:idx_workspace_user"`
	Role        string `gorm:"not null"`

	// Relationships
	Workspace Workspace `gorm:"foreignKey:WorkspaceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
