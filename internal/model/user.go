package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User account, table users
type User struct {
	ID           string `gorm:"type:varchar(36);primaryKey"            json:"id"`
	UserID       string `gorm:"type:varchar(50);not null;uniqueIndex"  json:"userId"`
	Name         string `gorm:"type:varchar(100);not null"             json:"name"`
	Email        string `gorm:"type:varchar(254);not null"             json:"email"`
	Dept         string `gorm:"type:varchar(20);not null;index"        json:"dept"`
	Role         Role   `gorm:"type:varchar(30);not null;index"        json:"role"`
	Desg         string `gorm:"type:varchar(50)"                       json:"desg"`
	PasswordHash string `gorm:"type:varchar(255);not null"             json:"-"`
	IsActive     bool   `gorm:"not null;default:true"                  json:"isActive"`
	BaseModel
}

// TableName table name
func (User) TableName() string { return "users" }

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Designation falls back to the role, matching how accounts were provisioned.
func (u *User) Designation() string {
	if u.Desg != "" {
		return u.Desg
	}
	return string(u.Role)
}
