// Package seeds installs the permission fixture: one group holding every
// permission, with a user as its member.
package seeds

import (
	_ "embed"
	"fmt"

	"pmflow/app/db/models"
	"pmflow/app/objects"
	"pmflow/pkg/contextx"
	"pmflow/pkg/log"

	"gopkg.in/yaml.v2"
)

//go:embed permissions.yaml
var permissionsYAML []byte

type fixture struct {
	Group       string   `yaml:"group"`
	Permissions []string `yaml:"permissions"`
}

func loadFixture(data []byte) (*fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse permission fixture: %w", err)
	}
	if f.Group == "" {
		return nil, fmt.Errorf("permission fixture has no group")
	}
	return &f, nil
}

// Permissions lists the permission names the seeder installs.
func Permissions() []string {
	f, err := loadFixture(permissionsYAML)
	if err != nil {
		panic(err)
	}
	return f.Permissions
}

type PermissionSeeder struct {
	fixture *fixture
}

func NewPermissionSeeder() (*PermissionSeeder, error) {
	f, err := loadFixture(permissionsYAML)
	if err != nil {
		return nil, err
	}
	return &PermissionSeeder{fixture: f}, nil
}

// Run seeds the fixture for userID, or for the first user when userID is
// nil. Running it again changes nothing.
func (s *PermissionSeeder) Run(ctx *contextx.Context, userID *uint) (*models.Group, error) {
	var group *models.Group
	err := objects.Transaction(ctx, func(subCtx *contextx.Context) error {
		memberID, err := s.member(subCtx, userID)
		if err != nil {
			return err
		}
		conn := objects.GetDB(subCtx)

		group = &models.Group{}
		if err := conn.Where(models.Group{Name: s.fixture.Group}).FirstOrCreate(group).Error; err != nil {
			return err
		}
		member := models.GroupMember{GroupID: group.ID, MemberType: objects.MemberTypeUser, MemberID: memberID}
		if err := conn.Where(member).FirstOrCreate(&member).Error; err != nil {
			return err
		}

		for _, name := range s.fixture.Permissions {
			permission := models.Permission{}
			if err := conn.Where(models.Permission{Name: name}).
				Attrs(models.Permission{GuardName: name}).
				FirstOrCreate(&permission).Error; err != nil {
				return err
			}
			assignment := models.PermissionAssignment{
				PermissionID:   permission.ID,
				AssignableType: objects.MemberTypeGroup,
				AssignableID:   group.ID,
			}
			if err := conn.Where(assignment).FirstOrCreate(&assignment).Error; err != nil {
				return err
			}
		}
		log.Infof(subCtx, "seeded %d permissions into group %s for user %d", len(s.fixture.Permissions), group.Name, memberID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *PermissionSeeder) member(ctx *contextx.Context, userID *uint) (uint, error) {
	if userID != nil {
		user, err := objects.QueryUserByID(ctx, *userID)
		if err != nil {
			return 0, err
		}
		if user == nil {
			return 0, objects.NewError(objects.InvalidInput, "user %d not found", *userID)
		}
		return user.ID, nil
	}
	user, err := objects.FirstUser(ctx)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, objects.NewError(objects.InvalidInput, "no user to seed permissions for")
	}
	return user.ID, nil
}
