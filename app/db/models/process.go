package models

import (
	"time"

	"pmflow/pkg/gormx"
)

type Process struct {
	ID          string `gorm:"primaryKey;size:255;" json:"id"`
	Name        string `gorm:"index;size:255" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Status      string `gorm:"size:32" json:"status"`
	// number of the newest ProcessVersion
	Version int `json:"version"`

	CreatedAt time.Time  `gorm:"default:null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:null" json:"updated_at"`
	Deleted   int        `gorm:"default:0" json:"-"`
	DeletedAt *time.Time `gorm:"default:null" json:"-"`
}

// ProcessVersion is immutable once written.
type ProcessVersion struct {
	ID        string `gorm:"primaryKey;size:255;" json:"id"`
	ProcessID string `gorm:"size:255;uniqueIndex:idx_process_version" json:"process_id"`
	Version   int    `gorm:"uniqueIndex:idx_process_version" json:"version"`
	Bpmn      string `gorm:"type:mediumtext" json:"bpmn"`
	// placeholder user id to real user id, applied to task assignments
	Users gormx.MapJson `gorm:"type:text" json:"users"`

	CreatedAt time.Time `gorm:"default:null" json:"created_at"`
}

type ProcessRequest struct {
	ID               string        `gorm:"primaryKey;size:255;" json:"id"`
	ProcessID        string        `gorm:"size:255;index" json:"process_id"`
	ProcessVersionID string        `gorm:"size:255;index" json:"process_version_id"`
	Name             string        `gorm:"size:255" json:"name"`
	Status           string        `gorm:"size:32;index" json:"status"`
	Data             gormx.MapJson `gorm:"type:longtext" json:"data"`
	StartEventID     string        `gorm:"size:255" json:"start_event_id"`
	UserID           *uint         `gorm:"index" json:"user_id"`
	ErrorMessage     string        `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt   time.Time  `gorm:"default:null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:null" json:"updated_at"`
	CompletedAt *time.Time `gorm:"default:null" json:"completed_at"`
	Deleted     int        `gorm:"default:0" json:"-"`
	DeletedAt   *time.Time `gorm:"default:null" json:"-"`
}

type ProcessRequestToken struct {
	ID               string `gorm:"primaryKey;size:255;" json:"id"`
	ProcessRequestID string `gorm:"size:255;index" json:"process_request_id"`
	ProcessID        string `gorm:"size:255;index" json:"process_id"`
	ElementID        string `gorm:"size:255;index" json:"element_id"`
	ElementType      string `gorm:"size:64" json:"element_type"`
	ElementName      string `gorm:"size:255" json:"element_name"`
	Status           string `gorm:"size:32;index" json:"status"`
	UserID           *uint  `gorm:"index" json:"user_id"`
	// local payload: submitted task data, caught event payload or action result
	Data gormx.MapJson `gorm:"type:longtext" json:"data"`
	// message or signal name a catch event waits for
	EventName string     `gorm:"size:255;index" json:"event_name,omitempty"`
	DueAt     *time.Time `gorm:"index;default:null" json:"due_at,omitempty"`
	// "<request>:<element>" while ACTIVE, NULL afterwards
	ActiveKey *string `gorm:"size:255;uniqueIndex" json:"-"`
	// arrivals per incoming flow on a join gateway token
	Arrivals gormx.MapJson `gorm:"type:text" json:"arrivals,omitempty"`
	Sequence int           `gorm:"index" json:"sequence"`

	CreatedAt   time.Time  `gorm:"default:null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:null" json:"updated_at"`
	CompletedAt *time.Time `gorm:"default:null" json:"completed_at"`
	Deleted     int        `gorm:"default:0" json:"-"`
	DeletedAt   *time.Time `gorm:"default:null" json:"-"`
}
