package models

// Models lists every table created by db.Migrate.
var Models = []interface{}{
	&User{},
	&Group{},
	&GroupMember{},
	&Permission{},
	&PermissionAssignment{},
	&Process{},
	&ProcessVersion{},
	&ProcessRequest{},
	&ProcessRequestToken{},
	&NamedLock{},
}
