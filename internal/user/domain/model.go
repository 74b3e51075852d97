// Package domain contains persistence models for the user service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the platform-wide role of a user.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
	RoleTenantAdmin   Role = "TENANT_ADMIN"
	RoleEndUser       Role = "END_USER"
)

// NormalizeRole maps legacy role names onto the canonical set. Unknown
// values come back unchanged so callers can reject them explicitly.
func NormalizeRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RolePlatformAdmin:
		return RolePlatformAdmin
	case RoleTenantAdmin, "ADMIN", "TENANT_OWNER":
		return RoleTenantAdmin
	case RoleEndUser, "USER", "MEMBER":
		return RoleEndUser
	default:
		return Role(strings.ToUpper(strings.TrimSpace(raw)))
	}
}

// IsPlatformRole reports whether the role bypasses tenant scoping.
func (r Role) IsPlatformRole() bool {
	return r == RoleSuperAdmin || r == RolePlatformAdmin
}

// Valid reports whether the role belongs to the canonical set.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RolePlatformAdmin, RoleTenantAdmin, RoleEndUser:
		return true
	default:
		return false
	}
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInvited  UserStatus = "INVITED"
	UserStatusDisabled UserStatus = "DISABLED"
)

type UserType string

const (
	UserTypeRegular  UserType = "REGULAR"
	UserTypeExternal UserType = "EXTERNAL"
)

// User belongs to exactly one tenant. Rows are soft-deleted via
// status plus deleted_at, never removed.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    snowflake.ID `gorm:"column:tenant_id;not null;index;uniqueIndex:ux_users_tenant_email,priority:1"`
	Email       string       `gorm:"type:text;not null;uniqueIndex:ux_users_tenant_email,priority:2"`
	DisplayName string       `gorm:"type:text;not null"`
	Role        Role         `gorm:"type:text;not null"`
	Status      UserStatus   `gorm:"type:text;not null;default:INVITED"`
	UserType    UserType     `gorm:"column:user_type;type:text;not null;default:REGULAR"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt   *time.Time   `gorm:"column:deleted_at"`
}

func (User) TableName() string { return "users" }

// UserFeatureAccess narrows what an end user sees inside features the
// tenant's plan already grants. Only consulted for END_USER; admin
// roles ignore it.
type UserFeatureAccess struct {
	UserID    snowflake.ID `gorm:"primaryKey;column:user_id"`
	FeatureID snowflake.ID `gorm:"primaryKey;column:feature_id"`
	IsActive  bool         `gorm:"column:is_active;not null;default:false"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (UserFeatureAccess) TableName() string { return "user_feature_access" }
