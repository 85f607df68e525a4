package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/fdk/resource-service/pkg/utils"
	"gorm.io/datatypes"
)

// OrderStatus is the lifecycle state of a union graph order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusFailed,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusPriority ranks statuses when several orders share a configuration. Lower wins.
func StatusPriority(s OrderStatus) int {
	switch s {
	case OrderStatusCompleted:
		return 1
	case OrderStatusProcessing:
		return 2
	case OrderStatusPending:
		return 3
	case OrderStatusFailed:
		return 4
	default:
		return 5
	}
}

// UnionGraphOrder is a request to build a merged JSON-LD graph over many resources.
type UnionGraphOrder struct {
	ID                               string         `gorm:"primaryKey;size:36" json:"id"`
	Status                           OrderStatus    `gorm:"type:varchar(16);index;not null" json:"status"`
	ResourceTypes                    datatypes.JSON `gorm:"type:jsonb" json:"resourceTypes" swaggertype:"array,string"`
	ResourceFilters                  datatypes.JSON `gorm:"type:jsonb" json:"resourceFilters,omitempty" swaggertype:"object"`
	ExpandDistributionAccessServices bool           `gorm:"not null;default:false" json:"expandDistributionAccessServices"`
	UpdateTTLHours                   int            `gorm:"column:update_ttl_hours;not null;default:0" json:"updateTtlHours"`
	WebhookURL                       *string        `gorm:"column:webhook_url;type:text" json:"webhookUrl,omitempty"`
	ConfigKey                        string         `gorm:"type:varchar(64);index;not null" json:"-"`
	GraphJSONLD                      datatypes.JSON `gorm:"column:graph_json_ld;type:jsonb" json:"-"`
	ErrorMessage                     *string        `gorm:"type:text" json:"errorMessage,omitempty"`
	LockedBy                         *string        `gorm:"size:255" json:"lockedBy,omitempty"`
	LockedAt                         *time.Time     `json:"lockedAt,omitempty"`
	ProcessingStartedAt              *time.Time     `json:"processingStartedAt,omitempty"`
	ProcessedAt                      *time.Time     `json:"processedAt,omitempty"`
	CreatedAt                        time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt                        time.Time      `json:"updatedAt"`
}

func (UnionGraphOrder) TableName() string { return "union_graphs" }

// Types decodes the stored type list. Nil means every type.
func (o *UnionGraphOrder) Types() []ResourceType {
	if len(o.ResourceTypes) == 0 || string(o.ResourceTypes) == "null" {
		return nil
	}
	var types []ResourceType
	if err := json.Unmarshal(o.ResourceTypes, &types); err != nil {
		return nil
	}
	return types
}

// Filters decodes the stored filter document.
func (o *UnionGraphOrder) Filters() *ResourceFilters {
	f, err := DecodeResourceFilters(o.ResourceFilters)
	if err != nil {
		return nil
	}
	return f
}

// Expired reports whether a completed order is due for a TTL refresh at now.
func (o *UnionGraphOrder) Expired(now time.Time) bool {
	if o.Status != OrderStatusCompleted || o.UpdateTTLHours <= 0 || o.ProcessedAt == nil {
		return false
	}
	due := o.ProcessedAt.Add(time.Duration(o.UpdateTTLHours) * time.Hour)
	return !now.Before(due)
}

// OrderConfig is the tuple that identifies a logical build configuration.
type OrderConfig struct {
	ResourceTypes                    []ResourceType   `json:"resourceTypes"`
	UpdateTTLHours                   int              `json:"updateTtlHours"`
	WebhookURL                       *string          `json:"webhookUrl"`
	ResourceFilters                  *ResourceFilters `json:"resourceFilters"`
	ExpandDistributionAccessServices bool             `json:"expandDistributionAccessServices"`
}

// Normalized sorts and de-duplicates the types, treats an empty list as all types and
// normalizes the filters.
func (c OrderConfig) Normalized() OrderConfig {
	out := c
	out.ResourceTypes = nil
	seen := map[ResourceType]bool{}
	for _, t := range c.ResourceTypes {
		if !seen[t] {
			seen[t] = true
			out.ResourceTypes = append(out.ResourceTypes, t)
		}
	}
	sort.Slice(out.ResourceTypes, func(i, j int) bool { return out.ResourceTypes[i] < out.ResourceTypes[j] })
	if c.WebhookURL != nil && *c.WebhookURL == "" {
		out.WebhookURL = nil
	}
	out.ResourceFilters = c.ResourceFilters.Normalized()
	return out
}

// Key hashes the normalized configuration. Equal configurations always give the same key.
func (c OrderConfig) Key() string {
	b, _ := json.Marshal(c.Normalized())
	return utils.HexSHA256(b)
}

// NewOrder builds a PENDING order for the configuration.
func NewOrder(id string, c OrderConfig, now time.Time) (*UnionGraphOrder, error) {
	n := c.Normalized()
	o := &UnionGraphOrder{
		ID:                               id,
		Status:                           OrderStatusPending,
		ExpandDistributionAccessServices: n.ExpandDistributionAccessServices,
		UpdateTTLHours:                   n.UpdateTTLHours,
		WebhookURL:                       n.WebhookURL,
		ConfigKey:                        n.Key(),
		CreatedAt:                        now,
		UpdatedAt:                        now,
	}
	if len(n.ResourceTypes) > 0 {
		b, err := json.Marshal(n.ResourceTypes)
		if err != nil {
			return nil, err
		}
		o.ResourceTypes = b
	}
	if n.ResourceFilters != nil {
		b, err := json.Marshal(n.ResourceFilters)
		if err != nil {
			return nil, err
		}
		o.ResourceFilters = b
	}
	return o, nil
}

// PreferredOrder picks the order a dedup lookup returns: best status first, then the most
// recently updated. Returns nil for an empty slice.
func PreferredOrder(orders []UnionGraphOrder) *UnionGraphOrder {
	if len(orders) == 0 {
		return nil
	}
	sorted := make([]UnionGraphOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := StatusPriority(sorted[i].Status), StatusPriority(sorted[j].Status)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return &sorted[0]
}
