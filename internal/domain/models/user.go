package models

import (
	"strconv"
	"time"
)

// UserStatus is the lifecycle state of an identity store account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User is an identity store account.
type User struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password;not null" json:"password_hash"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	Roles        []Role     `gorm:"many2many:user_roles" json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// Subject is the token subject minted for this user.
func (u *User) Subject() string {
	return strconv.FormatUint(u.ID, 10)
}

// RoleNames returns the role names in stored order, never nil.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Role is a named grant attached to users.
type Role struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
}

// TableName specifies the table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
