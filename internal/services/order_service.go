package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/repository"
	appErr "github.com/fdk/resource-service/pkg/errors"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService manages union graph orders on behalf of API callers. Building is done by the
// scheduler.
type OrderService interface {
	CreateOrder(ctx context.Context, cfg models.OrderConfig) (*models.UnionGraphOrder, bool, error)
	GetOrder(ctx context.Context, id string) (*models.UnionGraphOrder, error)
	ListOrders(ctx context.Context, status *models.OrderStatus) ([]models.UnionGraphOrder, error)
	ResetOrder(ctx context.Context, id string) (*models.UnionGraphOrder, error)
	DeleteOrder(ctx context.Context, id string) error
}

type orderService struct {
	orders   repository.OrderRepository
	notifier WebhookNotifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepository, notifier WebhookNotifier, m *metrics.Metrics) OrderService {
	return &orderService{
		orders:   orders,
		notifier: notifier,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ OrderService = (*orderService)(nil)

// ValidateOrderConfig checks a configuration before it is stored.
func ValidateOrderConfig(cfg models.OrderConfig) error {
	if cfg.UpdateTTLHours < 0 {
		return appErr.New(appErr.CodeInvalid, "updateTtlHours must not be negative")
	}
	for _, t := range cfg.ResourceTypes {
		if !t.Valid() {
			return appErr.Newf(appErr.CodeInvalid, "unknown resource type %q", t)
		}
	}
	if cfg.WebhookURL != nil && strings.TrimSpace(*cfg.WebhookURL) != "" {
		u, err := url.Parse(*cfg.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return appErr.New(appErr.CodeInvalid, "webhook URL must use HTTPS protocol")
		}
	}
	if f := cfg.ResourceFilters.Normalized(); f != nil && f.Dataset != nil && len(cfg.ResourceTypes) > 0 {
		includesDataset := false
		for _, t := range cfg.ResourceTypes {
			if t == models.ResourceTypeDataset {
				includesDataset = true
			}
		}
		if !includesDataset {
			return appErr.New(appErr.CodeInvalid, "dataset filters require the DATASET resource type")
		}
	}
	return nil
}

// CreateOrder returns the existing order for an equivalent configuration, or creates a new
// PENDING one. The bool is true when the order was created by this call.
func (s *orderService) CreateOrder(ctx context.Context, cfg models.OrderConfig) (*models.UnionGraphOrder, bool, error) {
	if err := ValidateOrderConfig(cfg); err != nil {
		return nil, false, err
	}
	candidate, err := models.NewOrder(uuid.NewString(), cfg, s.now())
	if err != nil {
		return nil, false, appErr.Wrap(err, appErr.CodeInvalid, "invalid order configuration")
	}

	order, created, err := s.orders.FindOrCreate(ctx, candidate)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.metrics.OrderCreated()
		logger.L().Info("union graph order created", zap.String("order_id", order.ID), zap.String("config_key", order.ConfigKey))
	} else {
		logger.L().Info("union graph order exists", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
	}
	return order, created, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*models.UnionGraphOrder, error) {
	var o models.UnionGraphOrder
	if err := s.orders.GetByID(ctx, id, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *orderService) ListOrders(ctx context.Context, status *models.OrderStatus) ([]models.UnionGraphOrder, error) {
	if status != nil {
		return s.orders.ListByStatus(ctx, *status)
	}
	return s.orders.ListAll(ctx)
}

// ResetOrder moves an order back to PENDING so it is rebuilt, and notifies its webhook with
// the status it had before.
func (s *orderService) ResetOrder(ctx context.Context, id string) (*models.UnionGraphOrder, error) {
	before, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.orders.ResetToPending(ctx, id); err != nil {
		return nil, err
	}
	s.metrics.OrderReset("manual", 1)

	after, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.L().Info("union graph order reset", zap.String("order_id", id), zap.String("previous_status", string(before.Status)))
	previous := before.Status
	s.notifier.Notify(ctx, after, &previous)
	return after, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.OrderDeleted()
	logger.L().Info("union graph order deleted", zap.String("order_id", id))
	return nil
}
