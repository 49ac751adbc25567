package access

import "github.com/BearBump/LoadBoard/internal/models"

// Operation — именованная операция жизненного цикла или срез UI.
type Operation string

const (
	OpPostLoad     Operation = "post_load"
	OpAcceptLoad   Operation = "accept_load"
	OpCompleteLoad Operation = "complete_load"
	OpCancelLoad   Operation = "cancel_load"
	OpForceCancel  Operation = "force_cancel"

	OpViewMarket     Operation = "view_market"
	OpViewOwnLoads   Operation = "view_own_loads"
	OpViewAllLoads   Operation = "view_all_loads"
	OpViewAdminStats Operation = "view_admin_stats"
	OpManageUsers    Operation = "manage_users"
)

// Таблица прав — чистые данные, задаётся один раз. Никакая роль не
// расширяет себя динамически.
var permissions = map[string]map[Operation]struct{}{
	models.RoleShipper: set(
		OpPostLoad, OpCompleteLoad, OpViewOwnLoads,
	),
	models.RoleDriver: set(
		OpAcceptLoad, OpCompleteLoad, OpCancelLoad, OpViewMarket, OpViewOwnLoads,
	),
	models.RoleSuperAdmin: set(
		OpForceCancel, OpViewAllLoads, OpViewAdminStats, OpManageUsers,
	),
	models.RoleOperations: set(
		OpForceCancel, OpViewAllLoads, OpViewAdminStats,
	),
	models.RoleSupport: set(
		OpViewAllLoads, OpViewAdminStats,
	),
}

func set(ops ...Operation) map[Operation]struct{} {
	m := make(map[Operation]struct{}, len(ops))
	for _, op := range ops {
		m[op] = struct{}{}
	}
	return m
}

// Allowed — O(1) проверка "роль может выполнить операцию".
func Allowed(role string, op Operation) bool {
	ops, ok := permissions[role]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

// Sections returns the navigable UI sections for a role (consumed by
// routing on the client side).
func Sections(role string) []string {
	switch role {
	case models.RoleShipper:
		return []string{"dashboard", "post-load", "my-loads", "notifications"}
	case models.RoleDriver:
		return []string{"dashboard", "market", "my-loads", "notifications"}
	case models.RoleSuperAdmin:
		return []string{"dashboard", "loads", "users", "admins", "reports"}
	case models.RoleOperations:
		return []string{"dashboard", "loads", "reports"}
	case models.RoleSupport:
		return []string{"dashboard", "loads"}
	default:
		return nil
	}
}
