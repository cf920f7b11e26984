package models

import "time"

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"size:255;uniqueIndex" json:"username"`
	Email           string    `gorm:"size:255" json:"email"`
	Status          string    `gorm:"size:32;default:'ACTIVE'" json:"status"`
	IsAdministrator bool      `json:"is_administrator"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex" json:"name"`
	Status    string    `gorm:"size:32;default:'ACTIVE'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupMember links a member (a user, or a nested group) to a group.
type GroupMember struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	GroupID    uint      `gorm:"uniqueIndex:idx_group_member" json:"group_id"`
	MemberType string    `gorm:"size:64;uniqueIndex:idx_group_member" json:"member_type"`
	MemberID   uint      `gorm:"uniqueIndex:idx_group_member" json:"member_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex" json:"name"`
	GuardName string    `gorm:"size:64" json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PermissionAssignment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PermissionID   uint      `gorm:"uniqueIndex:idx_permission_assignment" json:"permission_id"`
	AssignableType string    `gorm:"size:64;uniqueIndex:idx_permission_assignment" json:"assignable_type"`
	AssignableID   uint      `gorm:"uniqueIndex:idx_permission_assignment" json:"assignable_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
