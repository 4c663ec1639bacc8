package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin roles, ordered by privilege.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleModerator  = "moderator"
)

// Admin permissions.
const (
	PermManageSweets  = "manage_sweets"
	PermManageUsers   = "manage_users"
	PermViewAnalytics = "view_analytics"
	PermManageOrders  = "manage_orders"
	PermSystemConfig  = "system_config"
)

// Admin is a staff account. Admins are never hard-deleted; the active flag
// toggles access instead.
type Admin struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username      string               `bson:"username" json:"username"`
	Email         string               `bson:"email" json:"email"`
	Password      string               `bson:"password" json:"-"`
	Role          string               `bson:"role" json:"role"`
	Permissions   []string             `bson:"permissions" json:"permissions"`
	FirstName     string               `bson:"firstName" json:"firstName"`
	LastName      string               `bson:"lastName" json:"lastName"`
	PhoneNumber   string               `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	IsActive      bool                 `bson:"isActive" json:"isActive"`
	LastLogin     *time.Time           `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	RefreshTokens []RefreshTokenRecord `bson:"refreshTokens" json:"-"`
	CreatedBy     primitive.ObjectID   `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasRefreshToken reports whether the given refresh token is still on the
// admin's outstanding list.
func (a *Admin) HasRefreshToken(token string) bool {
	for _, rt := range a.RefreshTokens {
		if rt.Token == token {
			return true
		}
	}
	return false
}

// ValidAdminRole reports whether r is a known admin role.
func ValidAdminRole(r string) bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleModerator
}

// DefaultPermissions derives the permission set granted to a role when the
// creator supplies none.
func DefaultPermissions(role string) []string {
	switch role {
	case RoleSuperAdmin:
		return []string{PermManageSweets, PermManageUsers, PermViewAnalytics, PermManageOrders, PermSystemConfig}
	case RoleAdmin:
		return []string{PermManageSweets, PermManageUsers, PermViewAnalytics, PermManageOrders}
	case RoleModerator:
		return []string{PermManageSweets, PermViewAnalytics}
	default:
		return []string{PermViewAnalytics}
	}
}
