package authz

import "fieldservice/pkg/constants"

type Permission string

// --- СПИСОК ВСЕХ ПРАВ В СИСТЕМЕ ---

const (
	// Заявки
	RequestsCreate  Permission = "requests:create"
	RequestsUpdate  Permission = "requests:update"
	RequestsDelete  Permission = "requests:delete"
	RequestsView    Permission = "requests:view"
	RequestsViewAll Permission = "requests:view:all"

	// Баланс
	BalanceUpdate  Permission = "balance:update"
	BalanceView    Permission = "balance:view"
	BalanceViewAll Permission = "balance:view:all"

	// Пользователи
	UsersManage Permission = "users:manage"

	// Статистика и отчёты
	StatsView     Permission = "stats:view"
	StatsViewAll  Permission = "stats:view:all"
	FunnelView    Permission = "stats:funnel"
	ReportsExport Permission = "reports:export"
)

var rolePermissions = map[constants.Role]map[Permission]bool{
	constants.RoleEngineer: {
		RequestsUpdate: true,
		RequestsView:   true,
		BalanceView:    true,
		StatsView:      true,
	},
	constants.RoleOperator: {
		RequestsCreate:  true,
		RequestsUpdate:  true,
		RequestsDelete:  true,
		RequestsView:    true,
		RequestsViewAll: true,
		StatsView:       true,
		StatsViewAll:    true,
		FunnelView:      true,
	},
	constants.RoleManager: {
		RequestsUpdate:  true,
		RequestsDelete:  true,
		RequestsView:    true,
		RequestsViewAll: true,
		BalanceUpdate:   true,
		BalanceView:     true,
		BalanceViewAll:  true,
		UsersManage:     true,
		StatsView:       true,
		StatsViewAll:    true,
		FunnelView:      true,
		ReportsExport:   true,
	},
}

func HasPermission(role constants.Role, p Permission) bool {
	return rolePermissions[role][p]
}
