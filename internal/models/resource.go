package models

import (
	"time"

	"gorm.io/datatypes"
)

// Resource is the last known state of one catalog resource. Rows are soft deleted and keep
// their graph data.
type Resource struct {
	ID             string         `gorm:"primaryKey;size:255" json:"id"`
	ResourceType   ResourceType   `gorm:"type:varchar(32);index;not null" json:"resourceType"`
	ResourceJSON   datatypes.JSON `gorm:"column:resource_json;type:jsonb" json:"resourceJson,omitempty" swaggertype:"object"`
	ResourceJSONLD datatypes.JSON `gorm:"column:resource_json_ld;type:jsonb" json:"resourceJsonLd,omitempty" swaggertype:"object"`
	URI            *string        `gorm:"index" json:"uri,omitempty"`
	Timestamp      int64          `gorm:"not null" json:"timestamp"`
	Deleted        bool           `gorm:"not null;default:false;index" json:"deleted"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Resource) TableName() string { return "resources" }

// HasGraph reports whether the resource carries JSON-LD to merge.
func (r *Resource) HasGraph() bool {
	return len(r.ResourceJSONLD) > 0 && string(r.ResourceJSONLD) != "null"
}
