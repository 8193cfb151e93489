// Package garxml stream-decodes address-object record files of the registry
// snapshot without materializing a whole file in memory.
package garxml

import (
	"time"

	"github.com/google/uuid"
)

// Record is one address-registry entry tied to a reference level.
type Record struct {
	ID          int64
	ObjectGUID  uuid.UUID
	OperTypeID  int
	Level       int
	TypeName    string
	Name        string
	ParentObjID uuid.NullUUID
	IsActive    bool
	StartDate   time.Time
	EndDate     time.Time
	UpdateDate  time.Time
}

// Less orders records by display name using bytewise comparison.
func (r Record) Less(other Record) bool {
	return r.Name < other.Name
}
