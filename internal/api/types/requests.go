package types

import (
	"github.com/fdk/resource-service/internal/models"
)

// CreateUnionGraphRequest configures a union graph. Every field is optional; no resource
// types means all types.
type CreateUnionGraphRequest struct {
	ResourceTypes                    []string                `json:"resourceTypes"`
	UpdateTTLHours                   int                     `json:"updateTtlHours" validate:"ttl_hours"`
	WebhookURL                       string                  `json:"webhookUrl" validate:"omitempty,https_url"`
	ResourceFilters                  *models.ResourceFilters `json:"resourceFilters"`
	ExpandDistributionAccessServices bool                    `json:"expandDistributionAccessServices"`
}

// Config converts the request. Unknown type names are dropped and returned separately.
func (r CreateUnionGraphRequest) Config() (models.OrderConfig, []string) {
	var (
		cfg     models.OrderConfig
		unknown []string
	)
	for _, name := range r.ResourceTypes {
		rt, err := models.ParseResourceType(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		cfg.ResourceTypes = append(cfg.ResourceTypes, rt)
	}
	cfg.UpdateTTLHours = r.UpdateTTLHours
	if r.WebhookURL != "" {
		u := r.WebhookURL
		cfg.WebhookURL = &u
	}
	cfg.ResourceFilters = r.ResourceFilters.Normalized()
	cfg.ExpandDistributionAccessServices = r.ExpandDistributionAccessServices
	return cfg, unknown
}
