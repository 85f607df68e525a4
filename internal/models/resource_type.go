package models

import (
	"fmt"
	"strings"
)

// ResourceType is the catalog a resource belongs to.
type ResourceType string

const (
	ResourceTypeConcept          ResourceType = "CONCEPT"
	ResourceTypeDataset          ResourceType = "DATASET"
	ResourceTypeDataService      ResourceType = "DATA_SERVICE"
	ResourceTypeInformationModel ResourceType = "INFORMATION_MODEL"
	ResourceTypeService          ResourceType = "SERVICE"
	ResourceTypeEvent            ResourceType = "EVENT"
)

// AllResourceTypes lists every type in the order union graphs visit them.
var AllResourceTypes = []ResourceType{
	ResourceTypeConcept,
	ResourceTypeDataset,
	ResourceTypeDataService,
	ResourceTypeInformationModel,
	ResourceTypeService,
	ResourceTypeEvent,
}

func (t ResourceType) Valid() bool {
	for _, known := range AllResourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseResourceType accepts the canonical upper case name in any case.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}
