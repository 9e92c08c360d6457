package constants

//============== ROLES ==============

// Role - роль пользователя (совпадает с roles.role_id в БД).
type Role int

const (
	RoleEngineer Role = 1
	RoleOperator Role = 2
	RoleManager  Role = 3
)

func (r Role) Valid() bool {
	return r == RoleEngineer || r == RoleOperator || r == RoleManager
}

func (r Role) String() string {
	switch r {
	case RoleEngineer:
		return "engineer"
	case RoleOperator:
		return "operator"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

//============== REQUEST STATUSES ==============

// ID статусов заявок (таблица status).
const (
	StatusCreated    int64 = 1
	StatusAssigned   int64 = 2
	StatusInProgress int64 = 3
	StatusDone       int64 = 4
	StatusDeleted    int64 = 5
)

func IsValidStatus(id int64) bool {
	return id >= StatusCreated && id <= StatusDeleted
}

//============== PAGINATION ==============

const (
	CompletedPageSize = 10
)

//============== CACHE KEYS ==============

const (
	// Формат: lockout:<login> -> "locked"
	CacheKeyLockout = "lockout:%s"

	// Формат: login_attempts:<login> -> count
	CacheKeyLoginAttempts = "login_attempts:%s"

	// Формат: revoked_token:<jti> -> "1"
	CacheKeyRevokedToken = "revoked_token:%s"

	// Справочник статусов в JSON.
	CacheKeyStatusDictionary = "dict:statuses"

	// Формат: stats:funnel:<YYYY-MM>:v<версия>
	CacheKeyMonthlyFunnel = "stats:funnel:%04d-%02d:v%d"

	// Формат: stats:funnel_version:<YYYY-MM> -> счётчик, растёт при каждом изменении заявок месяца
	CacheKeyFunnelVersion = "stats:funnel_version:%04d-%02d"
)
