// Package graph builds union graphs: one merged JSON-LD document over the active
// resources selected by an order.
package graph

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

// ErrEmptyGraph means no resource contributed to the union.
var ErrEmptyGraph = errors.New("no resources found or failed to build union graph")

// ResourceSource is the read side of the resource store the builder needs.
type ResourceSource interface {
	ListActiveByTypeAfter(ctx context.Context, rt models.ResourceType, afterID string, limit int) ([]models.Resource, error)
	GetActiveByURI(ctx context.Context, uri string, rt *models.ResourceType) (*models.Resource, error)
}

// Request selects what goes into a union graph. An empty type list means every type.
type Request struct {
	ResourceTypes                    []models.ResourceType
	Filters                          *models.ResourceFilters
	ExpandDistributionAccessServices bool
}

// RequestFor derives the build request from an order.
func RequestFor(o *models.UnionGraphOrder) Request {
	return Request{
		ResourceTypes:                    o.Types(),
		Filters:                          o.Filters(),
		ExpandDistributionAccessServices: o.ExpandDistributionAccessServices,
	}
}

type Result struct {
	Document     []byte
	Resources    int
	DataServices int
	Nodes        int
}

// Builder builds a union graph from the current resource snapshot. Building is
// deterministic for a fixed snapshot, so running it twice for one order is harmless.
type Builder interface {
	Build(ctx context.Context, req Request) (*Result, error)
}

type builder struct {
	source    ResourceSource
	batchSize int
}

func NewBuilder(source ResourceSource, batchSize int) Builder {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &builder{source: source, batchSize: batchSize}
}

var _ Builder = (*builder)(nil)

func (b *builder) Build(ctx context.Context, req Request) (*Result, error) {
	types := req.ResourceTypes
	if len(types) == 0 {
		types = models.AllResourceTypes
	}

	union := NewUnion()
	res := &Result{}
	expanded := map[string]bool{}

	for _, rt := range types {
		filter := req.Filters.For(rt)
		expand := req.ExpandDistributionAccessServices && rt == models.ResourceTypeDataset

		after := ""
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			page, err := b.source.ListActiveByTypeAfter(ctx, rt, after, b.batchSize)
			if err != nil {
				return nil, err
			}

			for i := range page {
				r := &page[i]
				if !r.HasGraph() {
					continue
				}
				var doc map[string]any
				if (filter != nil || expand) && len(r.ResourceJSON) > 0 {
					if err := json.Unmarshal(r.ResourceJSON, &doc); err != nil {
						// filters then see no fields and the resource is left out
						logger.L().Warn("unreadable resource json", zap.String("resource_id", r.ID), zap.Error(err))
						doc = nil
					}
				}
				if filter != nil && !filter.Matches(doc) {
					continue
				}
				if err := union.Add(r.ID, r.ResourceJSONLD); err != nil {
					logger.L().Warn("skipping resource in union graph", zap.String("resource_id", r.ID), zap.Error(err))
					continue
				}
				res.Resources++

				if expand {
					res.DataServices += b.expandAccessServices(ctx, union, doc, expanded)
				}
			}

			if len(page) < b.batchSize {
				break
			}
			after = page[len(page)-1].ID
		}
	}

	if union.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	document, err := union.Document()
	if err != nil {
		return nil, err
	}
	res.Document = document
	res.Nodes = union.Len()
	return res, nil
}

// expandAccessServices merges the DataService graphs referenced by a dataset's
// distributions. Each URI is merged once per build.
func (b *builder) expandAccessServices(ctx context.Context, union *Union, dataset map[string]any, seen map[string]bool) int {
	dataService := models.ResourceTypeDataService
	added := 0
	for _, uri := range AccessServiceURIs(dataset) {
		if seen[uri] {
			continue
		}
		seen[uri] = true

		svc, err := b.source.GetActiveByURI(ctx, uri, &dataService)
		if err != nil {
			if !appErr.IsCode(err, appErr.CodeNotFound) {
				logger.L().Warn("lookup of access service failed", zap.String("uri", uri), zap.Error(err))
			}
			continue
		}
		if !svc.HasGraph() {
			continue
		}
		if err := union.Add(svc.ID, svc.ResourceJSONLD); err != nil {
			logger.L().Warn("skipping access service in union graph", zap.String("resource_id", svc.ID), zap.Error(err))
			continue
		}
		added++
	}
	return added
}

// AccessServiceURIs reads distribution[].accessService[].uri from a dataset's internal
// model. Both single objects and lists are accepted at every level, and uri may be a
// string or a list of strings.
func AccessServiceURIs(dataset map[string]any) []string {
	var out []string
	for _, dist := range objects(dataset["distribution"]) {
		for _, svc := range objects(dist["accessService"]) {
			switch uri := svc["uri"].(type) {
			case string:
				if uri != "" {
					out = append(out, uri)
				}
			case []any:
				for _, u := range uri {
					if s, ok := u.(string); ok && s != "" {
						out = append(out, s)
					}
				}
			}
		}
	}
	return out
}

func objects(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
