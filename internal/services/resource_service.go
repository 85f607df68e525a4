package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/repository"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

// ResourceService writes ingested resources into the last-write-wins store and serves reads.
// Store methods report whether the write was applied; a stale write is not an error.
type ResourceService interface {
	// Ingestion
	ShouldUpdate(ctx context.Context, id string, timestamp int64) (bool, error)
	StoreParsed(ctx context.Context, id string, rt models.ResourceType, data []byte, timestamp int64) (bool, error)
	StoreHarvestedGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error)
	StoreReasonedGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error)
	MarkDeleted(ctx context.Context, id string, rt models.ResourceType, timestamp int64) (bool, error)

	// Reads
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context, rt models.ResourceType) ([]models.Resource, error)
	GetResourceByURI(ctx context.Context, uri string, rt *models.ResourceType) (*models.Resource, error)
}

type resourceService struct {
	repo    repository.ResourceRepository
	metrics *metrics.Metrics
}

func NewResourceService(repo repository.ResourceRepository, m *metrics.Metrics) ResourceService {
	return &resourceService{repo: repo, metrics: m}
}

var _ ResourceService = (*resourceService)(nil)

// ShouldUpdate is a read-only pre-check used to skip expensive conversions for events older
// than the stored state. The conditional write stays authoritative.
func (s *resourceService) ShouldUpdate(ctx context.Context, id string, timestamp int64) (bool, error) {
	stored, found, err := s.repo.GetTimestamp(ctx, id)
	if err != nil {
		return false, err
	}
	return !found || stored <= timestamp, nil
}

func (s *resourceService) StoreParsed(ctx context.Context, id string, rt models.ResourceType, data []byte, timestamp int64) (bool, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return false, appErr.New(appErr.CodeInvalid, "resource data is not a JSON object").WithMeta("id", id)
	}
	var uri *string
	if u, ok := doc["uri"].(string); ok && u != "" {
		uri = &u
	}
	return s.record("upsert_parsed", id, rt, timestamp, func() (bool, error) {
		return s.repo.UpsertParsed(ctx, id, rt, data, uri, timestamp)
	})
}

// StoreHarvestedGraph stores a freshly harvested graph. Harvesting means the resource exists,
// so a previously deleted resource becomes active again.
func (s *resourceService) StoreHarvestedGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error) {
	return s.record("undelete_graph", id, rt, timestamp, func() (bool, error) {
		return s.repo.UndeleteWithGraph(ctx, id, rt, jsonLD, timestamp)
	})
}

func (s *resourceService) StoreReasonedGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error) {
	return s.record("upsert_graph", id, rt, timestamp, func() (bool, error) {
		return s.repo.UpsertGraph(ctx, id, rt, jsonLD, timestamp)
	})
}

func (s *resourceService) MarkDeleted(ctx context.Context, id string, rt models.ResourceType, timestamp int64) (bool, error) {
	return s.record("mark_deleted", id, rt, timestamp, func() (bool, error) {
		return s.repo.MarkDeleted(ctx, id, rt, timestamp)
	})
}

func (s *resourceService) record(op, id string, rt models.ResourceType, timestamp int64, fn func() (bool, error)) (bool, error) {
	start := time.Now()
	applied, err := fn()
	s.metrics.RecordStore(op, err, time.Since(start))
	if err != nil {
		logger.L().Error("resource store failed", zap.String("operation", op), zap.String("resource_id", id), zap.Error(err))
		return false, err
	}
	if !applied {
		logger.L().Debug("ignored older resource write",
			zap.String("operation", op), zap.String("resource_id", id),
			zap.String("resource_type", string(rt)), zap.Int64("timestamp", timestamp))
	}
	return applied, nil
}

// GetResource returns the resource including deleted ones, so callers can see tombstones.
func (s *resourceService) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	var r models.Resource
	if err := s.repo.GetByID(ctx, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *resourceService) ListResources(ctx context.Context, rt models.ResourceType) ([]models.Resource, error) {
	if !rt.Valid() {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown resource type %q", rt)
	}
	return s.repo.GetActiveByType(ctx, rt)
}

func (s *resourceService) GetResourceByURI(ctx context.Context, uri string, rt *models.ResourceType) (*models.Resource, error) {
	if uri == "" {
		return nil, appErr.New(appErr.CodeInvalid, "uri is required")
	}
	if rt != nil && !rt.Valid() {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown resource type %q", *rt)
	}
	return s.repo.GetActiveByURI(ctx, uri, rt)
}
