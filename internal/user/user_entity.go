package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleEmployee = "EMPLOYEE"
	RoleAdmin    = "ADMIN"
)

// User is the login identity. It runs parallel to the employee record and
// is joined to it by email; chat always works in user ids.
type User struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID *uuid.UUID     `gorm:"column:employee_id;type:uuid;uniqueIndex"`
	Name       string         `gorm:"column:name;type:varchar(255)"`
	Email      string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Password   string         `gorm:"column:password;type:text;not null"`
	Role       string         `gorm:"column:role;type:varchar(50);not null;default:'EMPLOYEE'"`
	AvatarURL  *string        `gorm:"column:avatar_url;type:text"`
	IsActive   bool           `gorm:"column:is_active;default:true"`
	LastSeenAt *time.Time     `gorm:"column:last_seen_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// DisplayName is what chat shows for a sender: name, else email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
