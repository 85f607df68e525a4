package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ResourceRepository is the last-write-wins resource store. Every mutation is a single
// conditional upsert; the bool result is false when the stored timestamp was newer and the
// write was ignored.
type ResourceRepository interface {
	BaseRepository[models.Resource]
	UpsertParsed(ctx context.Context, id string, rt models.ResourceType, resourceJSON []byte, uri *string, timestamp int64) (bool, error)
	UpsertGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error)
	UndeleteWithGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error)
	MarkDeleted(ctx context.Context, id string, rt models.ResourceType, timestamp int64) (bool, error)
	GetActive(ctx context.Context, id string) (*models.Resource, error)
	GetActiveByType(ctx context.Context, rt models.ResourceType) ([]models.Resource, error)
	ListActiveByTypeAfter(ctx context.Context, rt models.ResourceType, afterID string, limit int) ([]models.Resource, error)
	GetActiveByURI(ctx context.Context, uri string, rt *models.ResourceType) (*models.Resource, error)
	GetTimestamp(ctx context.Context, id string) (int64, bool, error)
}

type resourceRepository struct {
	BaseRepository[models.Resource]
	db  *gorm.DB
	now func() time.Time
}

func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{
		BaseRepository: NewBaseRepository[models.Resource](db),
		db:             db,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

const upsertParsedSQL = `INSERT INTO resources (id, resource_type, resource_json, uri, "timestamp", deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	resource_json = excluded.resource_json,
	uri = excluded.uri,
	"timestamp" = excluded."timestamp",
	updated_at = excluded.updated_at
WHERE resources."timestamp" <= excluded."timestamp"`

const upsertGraphSQL = `INSERT INTO resources (id, resource_type, resource_json_ld, "timestamp", deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	resource_json_ld = excluded.resource_json_ld,
	"timestamp" = excluded."timestamp",
	updated_at = excluded.updated_at
WHERE resources."timestamp" <= excluded."timestamp"`

const undeleteWithGraphSQL = `INSERT INTO resources (id, resource_type, resource_json_ld, "timestamp", deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	resource_json_ld = excluded.resource_json_ld,
	deleted = excluded.deleted,
	"timestamp" = excluded."timestamp",
	updated_at = excluded.updated_at
WHERE resources."timestamp" <= excluded."timestamp"`

const markDeletedSQL = `INSERT INTO resources (id, resource_type, "timestamp", deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	deleted = excluded.deleted,
	"timestamp" = excluded."timestamp",
	updated_at = excluded.updated_at
WHERE resources."timestamp" <= excluded."timestamp"`

func (r *resourceRepository) UpsertParsed(ctx context.Context, id string, rt models.ResourceType, resourceJSON []byte, uri *string, timestamp int64) (bool, error) {
	now := r.now()
	return r.exec(ctx, "upsert parsed resource failed", upsertParsedSQL,
		id, rt, datatypes.JSON(resourceJSON), uri, timestamp, false, now, now)
}

func (r *resourceRepository) UpsertGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error) {
	now := r.now()
	return r.exec(ctx, "upsert resource graph failed", upsertGraphSQL,
		id, rt, datatypes.JSON(jsonLD), timestamp, false, now, now)
}

func (r *resourceRepository) UndeleteWithGraph(ctx context.Context, id string, rt models.ResourceType, jsonLD []byte, timestamp int64) (bool, error) {
	now := r.now()
	return r.exec(ctx, "undelete resource failed", undeleteWithGraphSQL,
		id, rt, datatypes.JSON(jsonLD), timestamp, false, now, now)
}

// MarkDeleted soft deletes the resource, creating a deleted row for unknown ids so a late
// create event cannot resurrect it.
func (r *resourceRepository) MarkDeleted(ctx context.Context, id string, rt models.ResourceType, timestamp int64) (bool, error) {
	now := r.now()
	return r.exec(ctx, "mark resource deleted failed", markDeletedSQL,
		id, rt, timestamp, true, now, now)
}

func (r *resourceRepository) exec(ctx context.Context, msg, sql string, args ...any) (bool, error) {
	res := r.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, msg)
	}
	return res.RowsAffected > 0, nil
}

func (r *resourceRepository) GetActive(ctx context.Context, id string) (*models.Resource, error) {
	var out models.Resource
	if err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "resource not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get resource failed")
	}
	return &out, nil
}

func (r *resourceRepository) GetActiveByType(ctx context.Context, rt models.ResourceType) ([]models.Resource, error) {
	var out []models.Resource
	if err := r.db.WithContext(ctx).
		Where("resource_type = ? AND deleted = ?", rt, false).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list resources failed")
	}
	return out, nil
}

// ListActiveByTypeAfter pages through active resources of a type in id order, starting after afterID.
func (r *resourceRepository) ListActiveByTypeAfter(ctx context.Context, rt models.ResourceType, afterID string, limit int) ([]models.Resource, error) {
	var out []models.Resource
	q := r.db.WithContext(ctx).Where("resource_type = ? AND deleted = ?", rt, false)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list resource page failed")
	}
	return out, nil
}

// GetActiveByURI returns the active resource with the newest timestamp for uri, optionally
// restricted to one type.
func (r *resourceRepository) GetActiveByURI(ctx context.Context, uri string, rt *models.ResourceType) (*models.Resource, error) {
	var out models.Resource
	q := r.db.WithContext(ctx).Where("uri = ? AND deleted = ?", uri, false)
	if rt != nil {
		q = q.Where("resource_type = ?", *rt)
	}
	if err := q.Order(`"timestamp" DESC`).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "resource not found")
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get resource by uri failed")
	}
	return &out, nil
}

func (r *resourceRepository) GetTimestamp(ctx context.Context, id string) (int64, bool, error) {
	var stamps []int64
	if err := r.db.WithContext(ctx).Model(&models.Resource{}).Where("id = ?", id).Limit(1).Pluck("timestamp", &stamps).Error; err != nil {
		return 0, false, appErr.Wrap(err, appErr.CodeInternal, "get resource timestamp failed")
	}
	if len(stamps) == 0 {
		return 0, false, nil
	}
	return stamps[0], true, nil
}
