package authz

import (
	"fieldservice/internal/entities"
	"fieldservice/pkg/constants"
	apperrors "fieldservice/pkg/errors"
)

// engineerFields - всё, что инженер может менять в заявке.
var engineerFields = map[entities.RequestField]bool{
	entities.FieldAssignedTime: true,
	entities.FieldInWorksTime:  true,
	entities.FieldDoneTime:     true,
}

// AllowedFields оставляет из requested только поля, которые роль может менять.
// Недоступные поля отбрасываются молча; неизвестная роль - Forbidden.
func AllowedFields(role constants.Role, requested entities.RequestChanges) (entities.RequestChanges, error) {
	allowed := make(entities.RequestChanges, len(requested))

	switch role {
	case constants.RoleManager, constants.RoleOperator:
		for f, v := range requested {
			if f.Valid() {
				allowed[f] = v
			}
		}
	case constants.RoleEngineer:
		for f, v := range requested {
			if engineerFields[f] {
				allowed[f] = v
			}
		}
	default:
		return nil, apperrors.NewForbidden("роль не может изменять заявки")
	}

	return allowed, nil
}
