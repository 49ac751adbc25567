package models

import "time"

// Основные роли. У пользователя ровно одна роль.
const (
	RoleDriver     = "driver"
	RoleShipper    = "shipper"
	RoleSuperAdmin = "super_admin"
	RoleOperations = "operations"
	RoleSupport    = "support"
)

// AdminRole reports whether the role belongs to the admin family.
func AdminRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleOperations, RoleSupport:
		return true
	}
	return false
}

type UserProfile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProfileCreateInput struct {
	FullName     string
	Email        string
	Phone        string
	Role         string
	PasswordHash string
}

// Credentials — то, что нужно для проверки входа. Хэш пароля наружу
// профиля не отдаём.
type Credentials struct {
	UserID       string
	PasswordHash string
	Role         string
	Verified     bool
}

type AdminStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	TotalDrivers   int64 `json:"totalDrivers"`
	TotalShippers  int64 `json:"totalShippers"`
	ActiveLoads    int64 `json:"activeLoads"`
	CompletedLoads int64 `json:"completedLoads"`
}

type UserStats struct {
	ActiveLoads    int64 `json:"activeLoads"`
	CompletedLoads int64 `json:"completedLoads"`
}
