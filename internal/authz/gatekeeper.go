package authz

import (
	apperrors "fieldservice/pkg/errors"
	"fieldservice/pkg/types"
)

// Require возвращает Forbidden, если у роли нет права.
func Require(actor types.Actor, p Permission) error {
	if !HasPermission(actor.Role, p) {
		return apperrors.NewForbidden("недостаточно прав для выполнения операции")
	}
	return nil
}

// RequireScoped: право p на данные инженера engineerID.
// С правом all доступ к любому инженеру, без него - только к себе.
func RequireScoped(actor types.Actor, p, all Permission, engineerID uint64) error {
	if err := Require(actor, p); err != nil {
		return err
	}
	if HasPermission(actor.Role, all) || actor.UserID == engineerID {
		return nil
	}
	return apperrors.NewForbidden("доступ разрешён только к собственным данным")
}

// ScopeEngineer: для ролей без права all фильтр принудительно сужается до самого пользователя.
func ScopeEngineer(actor types.Actor, all Permission, requested *uint64) *uint64 {
	if HasPermission(actor.Role, all) {
		return requested
	}
	own := actor.UserID
	return &own
}
