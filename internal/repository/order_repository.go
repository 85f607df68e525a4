package repository

import (
	"context"
	"time"

	"github.com/fdk/resource-service/internal/models"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository coordinates union graph orders between service instances. All state
// changes are conditional updates, so a zero row count means another instance won the race.
type OrderRepository interface {
	BaseRepository[models.UnionGraphOrder]
	FindOrCreate(ctx context.Context, candidate *models.UnionGraphOrder) (*models.UnionGraphOrder, bool, error)
	FindByConfigKey(ctx context.Context, key string) ([]models.UnionGraphOrder, error)
	ListAll(ctx context.Context) ([]models.UnionGraphOrder, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.UnionGraphOrder, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)

	ClaimBatch(ctx context.Context, instanceID string, lockTimeout time.Duration, limit int) ([]models.UnionGraphOrder, error)
	ClaimNext(ctx context.Context, instanceID string, lockTimeout time.Duration) (*models.UnionGraphOrder, error)
	Lock(ctx context.Context, id, instanceID string) (bool, error)
	Complete(ctx context.Context, id string, graph []byte) (bool, error)
	Fail(ctx context.Context, id, message string) (bool, error)
	Release(ctx context.Context, id string) error
	ResetToPending(ctx context.Context, id string) error

	FindStale(ctx context.Context, cutoff time.Time) ([]models.UnionGraphOrder, error)
	ResetStale(ctx context.Context, id string, cutoff time.Time) (bool, error)
	RecoverReleased(ctx context.Context) (int64, error)
	ResetExpired(ctx context.Context, id string, ttlHours int, now time.Time) (bool, error)
}

type orderRepository struct {
	BaseRepository[models.UnionGraphOrder]
	db       *gorm.DB
	postgres bool
	now      func() time.Time
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{
		BaseRepository: NewBaseRepository[models.UnionGraphOrder](db),
		db:             db,
		postgres:       db.Dialector.Name() == "postgres",
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// summary skips the graph artifact, which can be large.
func (r *orderRepository) summary(tx *gorm.DB) *gorm.DB {
	return tx.Omit("graph_json_ld")
}

// FindOrCreate returns the preferred existing order with the candidate's configuration key,
// or stores the candidate. Concurrent calls for the same key are serialized with a
// transaction scoped advisory lock on Postgres.
func (r *orderRepository) FindOrCreate(ctx context.Context, candidate *models.UnionGraphOrder) (*models.UnionGraphOrder, bool, error) {
	var (
		result  *models.UnionGraphOrder
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.postgres {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", candidate.ConfigKey).Error; err != nil {
				return appErr.Wrap(err, appErr.CodeInternal, "acquire order config lock failed")
			}
		}

		var matches []models.UnionGraphOrder
		if err := r.summary(tx).Where("config_key = ?", candidate.ConfigKey).Find(&matches).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "find orders by configuration failed")
		}
		if existing := models.PreferredOrder(matches); existing != nil {
			result = existing
			return nil
		}

		if err := tx.Create(candidate).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "create order failed")
		}
		result, created = candidate, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *orderRepository) FindByConfigKey(ctx context.Context, key string) ([]models.UnionGraphOrder, error) {
	var out []models.UnionGraphOrder
	if err := r.summary(r.db.WithContext(ctx)).Where("config_key = ?", key).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find orders by configuration failed")
	}
	return out, nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]models.UnionGraphOrder, error) {
	var out []models.UnionGraphOrder
	if err := r.summary(r.db.WithContext(ctx)).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list orders failed")
	}
	return out, nil
}

// ListByStatus lists orders with status, newest first like ListAll.
func (r *orderRepository) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.UnionGraphOrder, error) {
	var out []models.UnionGraphOrder
	if err := r.summary(r.db.WithContext(ctx)).Where("status = ?", status).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list orders by status failed")
	}
	return out, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "count orders failed")
	}
	out := make(map[models.OrderStatus]int64, len(models.AllOrderStatuses))
	for _, s := range models.AllOrderStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// ClaimBatch locks up to limit claimable orders for instanceID, oldest first. Rows already
// locked by another transaction are skipped, so concurrent claimers never share an order.
func (r *orderRepository) ClaimBatch(ctx context.Context, instanceID string, lockTimeout time.Duration, limit int) ([]models.UnionGraphOrder, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := r.now()
	cutoff := now.Add(-lockTimeout)

	var claimed []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.UnionGraphOrder{})
		if r.postgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var ids []string
		if err := q.
			Where("status = ? AND (locked_by IS NULL OR locked_at < ?)", models.OrderStatusPending, cutoff).
			Order("created_at ASC").
			Limit(limit).
			Pluck("id", &ids).Error; err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "select claimable orders failed")
		}

		for _, id := range ids {
			ok, err := r.lock(tx, id, instanceID, now)
			if err != nil {
				return err
			}
			if ok {
				claimed = append(claimed, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	var out []models.UnionGraphOrder
	if err := r.db.WithContext(ctx).Where("id IN ?", claimed).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "load claimed orders failed")
	}
	return out, nil
}

// ClaimNext claims a single order. It returns nil when nothing is claimable.
func (r *orderRepository) ClaimNext(ctx context.Context, instanceID string, lockTimeout time.Duration) (*models.UnionGraphOrder, error) {
	orders, err := r.ClaimBatch(ctx, instanceID, lockTimeout, 1)
	if err != nil || len(orders) == 0 {
		return nil, err
	}
	return &orders[0], nil
}

// Lock moves a PENDING order to PROCESSING for instanceID. False means the order was not
// PENDING anymore.
func (r *orderRepository) Lock(ctx context.Context, id, instanceID string) (bool, error) {
	return r.lock(r.db.WithContext(ctx), id, instanceID, r.now())
}

func (r *orderRepository) lock(tx *gorm.DB, id, instanceID string, now time.Time) (bool, error) {
	res := tx.Model(&models.UnionGraphOrder{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]any{
			"status":                models.OrderStatusProcessing,
			"locked_by":             instanceID,
			"locked_at":             now,
			"processing_started_at": now,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "lock order failed")
	}
	return res.RowsAffected == 1, nil
}

// Complete stores the artifact. It only applies while the order is PROCESSING, so a build
// that finishes after a reset is discarded.
func (r *orderRepository) Complete(ctx context.Context, id string, graph []byte) (bool, error) {
	now := r.now()
	return r.transition(ctx, "complete order failed", id, models.OrderStatusProcessing, map[string]any{
		"status":        models.OrderStatusCompleted,
		"graph_json_ld": datatypes.JSON(graph),
		"error_message": nil,
		"processed_at":  now,
		"updated_at":    now,
	})
}

func (r *orderRepository) Fail(ctx context.Context, id, message string) (bool, error) {
	return r.transition(ctx, "fail order failed", id, models.OrderStatusProcessing, map[string]any{
		"status":        models.OrderStatusFailed,
		"error_message": message,
		"updated_at":    r.now(),
	})
}

func (r *orderRepository) transition(ctx context.Context, msg, id string, from models.OrderStatus, values map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, msg)
	}
	return res.RowsAffected == 1, nil
}

// Release drops the processing lock and leaves the status alone.
func (r *orderRepository) Release(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"locked_by":  nil,
			"locked_at":  nil,
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "release order lock failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "order not found")
	}
	return nil
}

// ResetToPending requeues an order from any status.
func (r *orderRepository) ResetToPending(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("id = ?", id).
		Updates(pendingValues(r.now()))
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "reset order failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "order not found")
	}
	return nil
}

func pendingValues(now time.Time) map[string]any {
	return map[string]any{
		"status":                models.OrderStatusPending,
		"error_message":         nil,
		"locked_by":             nil,
		"locked_at":             nil,
		"processing_started_at": nil,
		"updated_at":            now,
	}
}

const staleCondition = "status = ? AND (locked_at < ? OR locked_by IS NULL)"

// FindStale lists PROCESSING orders whose lock is older than cutoff or was released.
func (r *orderRepository) FindStale(ctx context.Context, cutoff time.Time) ([]models.UnionGraphOrder, error) {
	var out []models.UnionGraphOrder
	if err := r.summary(r.db.WithContext(ctx)).
		Where(staleCondition, models.OrderStatusProcessing, cutoff).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "find stale orders failed")
	}
	return out, nil
}

// ResetStale requeues id only if it is still stale, so an order whose owner refreshed or
// finished in the meantime is left alone.
func (r *orderRepository) ResetStale(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("id = ?", id).
		Where(staleCondition, models.OrderStatusProcessing, cutoff).
		Updates(pendingValues(r.now()))
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "reset stale order failed")
	}
	return res.RowsAffected == 1, nil
}

// RecoverReleased requeues PROCESSING orders whose owner released them on shutdown.
func (r *orderRepository) RecoverReleased(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("status = ? AND locked_by IS NULL", models.OrderStatusProcessing).
		Updates(pendingValues(r.now()))
	if res.Error != nil {
		return 0, appErr.Wrap(res.Error, appErr.CodeInternal, "recover released orders failed")
	}
	return res.RowsAffected, nil
}

const expiredCondition = "status = ? AND update_ttl_hours = ? AND update_ttl_hours > 0 AND processed_at IS NOT NULL AND processed_at <= ?"

// ResetExpired requeues id for a TTL refresh only while it is still COMPLETED and its last build
// is at least ttlHours old at now. An order rebuilt since it was listed keeps its newer graph.
func (r *orderRepository) ResetExpired(ctx context.Context, id string, ttlHours int, now time.Time) (bool, error) {
	cutoff := now.Add(-time.Duration(ttlHours) * time.Hour)
	res := r.db.WithContext(ctx).Model(&models.UnionGraphOrder{}).
		Where("id = ?", id).
		Where(expiredCondition, models.OrderStatusCompleted, ttlHours, cutoff).
		Updates(pendingValues(r.now()))
	if res.Error != nil {
		return false, appErr.Wrap(res.Error, appErr.CodeInternal, "reset expired order failed")
	}
	return res.RowsAffected == 1, nil
}
