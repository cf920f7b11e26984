package seeds

import (
	"testing"

	"pmflow/app/db/dbtest"
	"pmflow/app/db/models"
	"pmflow/app/objects"

	"github.com/stretchr/testify/assert"
)

func TestPermissions(t *testing.T) {
	asserter := assert.New(t)

	names := Permissions()
	asserter.Len(names, 50)
	asserter.Contains(names, "requests.create")
	asserter.Contains(names, "processes.edit")
}

func TestPermissionSeeder_Run(t *testing.T) {
	asserter := assert.New(t)
	ctx := dbtest.NewContext(t)
	conn := ctx.GetDB()

	first := models.User{Username: "first"}
	second := models.User{Username: "second"}
	if !asserter.NoError(conn.Create(&first).Error) || !asserter.NoError(conn.Create(&second).Error) {
		return
	}

	seeder, err := NewPermissionSeeder()
	if !asserter.NoError(err) {
		return
	}

	group, err := seeder.Run(ctx, nil)
	if asserter.NoError(err) {
		asserter.Equal("All Permissions", group.Name)

		ok, err := objects.UserHasPermission(ctx, first.ID, "requests.create")
		if asserter.NoError(err) {
			asserter.True(ok)
		}
		ok, err = objects.UserHasPermission(ctx, second.ID, "requests.create")
		if asserter.NoError(err) {
			asserter.False(ok)
		}
	}

	// seeding again, for the second user, only adds the membership
	_, err = seeder.Run(ctx, &second.ID)
	if asserter.NoError(err) {
		var count int64
		conn.Model(&models.Permission{}).Count(&count)
		asserter.Equal(int64(50), count)
		conn.Model(&models.PermissionAssignment{}).Count(&count)
		asserter.Equal(int64(50), count)
		conn.Model(&models.Group{}).Count(&count)
		asserter.Equal(int64(1), count)
		conn.Model(&models.GroupMember{}).Count(&count)
		asserter.Equal(int64(2), count)

		ok, err := objects.UserHasPermission(ctx, second.ID, "processes.show")
		if asserter.NoError(err) {
			asserter.True(ok)
		}
	}
}

func TestPermissionSeeder_NoUser(t *testing.T) {
	asserter := assert.New(t)
	ctx := dbtest.NewContext(t)

	seeder, err := NewPermissionSeeder()
	if asserter.NoError(err) {
		_, err = seeder.Run(ctx, nil)
		asserter.True(objects.IsKind(err, objects.InvalidInput))

		missing := uint(99)
		_, err = seeder.Run(ctx, &missing)
		asserter.True(objects.IsKind(err, objects.InvalidInput))
	}
}
