package objects

import (
	"pmflow/app/db/models"
	"pmflow/pkg/contextx"
)

const (
	MemberTypeUser  = "user"
	MemberTypeGroup = "group"
)

func QueryUserByID(ctx *contextx.Context, id uint) (*models.User, error) {
	var u models.User
	err := GetDB(ctx).Where("id = ?", id).Take(&u).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FirstUser returns the user with the lowest id, or nil for an empty table.
func FirstUser(ctx *contextx.Context) (*models.User, error) {
	var u models.User
	err := GetDB(ctx).Order("id").Take(&u).Error
	if IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserHasPermission reports whether the user holds the named permission
// directly or through a group. Administrators hold every permission.
func UserHasPermission(ctx *contextx.Context, userID uint, name string) (bool, error) {
	user, err := QueryUserByID(ctx, userID)
	if err != nil || user == nil {
		return false, err
	}
	if user.IsAdministrator {
		return true, nil
	}

	groupIDs := GetDB(ctx).Model(&models.GroupMember{}).
		Select("group_id").
		Where("member_type = ? AND member_id = ?", MemberTypeUser, userID)

	var count int64
	err = GetDB(ctx).Model(&models.PermissionAssignment{}).
		Joins("JOIN permissions ON permissions.id = permission_assignments.permission_id").
		Where("permissions.name = ?", name).
		Where(GetDB(ctx).
			Where("permission_assignments.assignable_type = ? AND permission_assignments.assignable_id = ?", MemberTypeUser, userID).
			Or("permission_assignments.assignable_type = ? AND permission_assignments.assignable_id IN (?)", MemberTypeGroup, groupIDs)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
