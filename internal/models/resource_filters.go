package models

import "encoding/json"

// TypeFilter is the filter variant for one resource type.
type TypeFilter interface {
	ResourceType() ResourceType
	IsEmpty() bool
	Matches(resourceJSON map[string]any) bool
}

// ResourceFilters holds at most one filter variant per resource type. Only datasets can be
// filtered today.
type ResourceFilters struct {
	Dataset *DatasetFilters `json:"dataset,omitempty"`
}

// DatasetFilters narrows datasets on flags of their internal model. Nil fields do not filter.
type DatasetFilters struct {
	IsOpenData                 *bool `json:"isOpenData,omitempty"`
	IsRelatedToTransportportal *bool `json:"isRelatedToTransportportal,omitempty"`
}

var _ TypeFilter = (*DatasetFilters)(nil)

func (f *DatasetFilters) ResourceType() ResourceType { return ResourceTypeDataset }

func (f *DatasetFilters) IsEmpty() bool {
	return f == nil || (f.IsOpenData == nil && f.IsRelatedToTransportportal == nil)
}

// Matches compares each set flag with the same field of the dataset. A missing field counts
// as false.
func (f *DatasetFilters) Matches(resourceJSON map[string]any) bool {
	if f.IsEmpty() {
		return true
	}
	return flagMatches(resourceJSON, "isOpenData", f.IsOpenData) &&
		flagMatches(resourceJSON, "isRelatedToTransportportal", f.IsRelatedToTransportportal)
}

func flagMatches(doc map[string]any, field string, want *bool) bool {
	if want == nil {
		return true
	}
	got, _ := doc[field].(bool)
	return got == *want
}

// Variants returns the non-empty filter variants.
func (f *ResourceFilters) Variants() []TypeFilter {
	if f == nil {
		return nil
	}
	var out []TypeFilter
	if !f.Dataset.IsEmpty() {
		out = append(out, f.Dataset)
	}
	return out
}

// For returns the variant for t, or nil when t is not filtered.
func (f *ResourceFilters) For(t ResourceType) TypeFilter {
	for _, v := range f.Variants() {
		if v.ResourceType() == t {
			return v
		}
	}
	return nil
}

// Normalized drops empty variants and returns nil when nothing is left, so equivalent
// filters compare and hash the same.
func (f *ResourceFilters) Normalized() *ResourceFilters {
	if f == nil {
		return nil
	}
	var out ResourceFilters
	if !f.Dataset.IsEmpty() {
		d := *f.Dataset
		out.Dataset = &d
	}
	if out.Dataset == nil {
		return nil
	}
	return &out
}

// DecodeResourceFilters reads a stored filter document. Empty input and JSON null give nil.
func DecodeResourceFilters(raw []byte) (*ResourceFilters, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var f ResourceFilters
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f.Normalized(), nil
}
