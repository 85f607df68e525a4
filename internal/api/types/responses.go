package types

import (
	"time"

	"github.com/fdk/resource-service/internal/models"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// UnionGraphResponse describes an order without its graph artifact.
type UnionGraphResponse struct {
	ID                               string                  `json:"id"`
	Status                           models.OrderStatus      `json:"status"`
	ResourceTypes                    []models.ResourceType   `json:"resourceTypes"`
	UpdateTTLHours                   int                     `json:"updateTtlHours"`
	WebhookURL                       *string                 `json:"webhookUrl"`
	ErrorMessage                     *string                 `json:"errorMessage"`
	CreatedAt                        string                  `json:"createdAt"`
	UpdatedAt                        string                  `json:"updatedAt"`
	ProcessedAt                      *string                 `json:"processedAt"`
	ResourceFilters                  *models.ResourceFilters `json:"resourceFilters"`
	ExpandDistributionAccessServices bool                    `json:"expandDistributionAccessServices"`
}

func NewUnionGraphResponse(o *models.UnionGraphOrder) UnionGraphResponse {
	out := UnionGraphResponse{
		ID:                               o.ID,
		Status:                           o.Status,
		ResourceTypes:                    o.Types(),
		UpdateTTLHours:                   o.UpdateTTLHours,
		WebhookURL:                       o.WebhookURL,
		ErrorMessage:                     o.ErrorMessage,
		CreatedAt:                        o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                        o.UpdatedAt.UTC().Format(time.RFC3339),
		ResourceFilters:                  o.Filters().Normalized(),
		ExpandDistributionAccessServices: o.ExpandDistributionAccessServices,
	}
	if o.ProcessedAt != nil {
		s := o.ProcessedAt.UTC().Format(time.RFC3339)
		out.ProcessedAt = &s
	}
	return out
}

func NewUnionGraphList(orders []models.UnionGraphOrder) []UnionGraphResponse {
	out := make([]UnionGraphResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewUnionGraphResponse(&orders[i]))
	}
	return out
}

// ListenersResponse reports the consumption state after a manual pause or resume.
type ListenersResponse struct {
	Paused bool `json:"paused"`
}
