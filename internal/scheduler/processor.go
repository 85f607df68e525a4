// Package scheduler runs the union graph order loops: claiming and building pending orders,
// recovering stale locks and refreshing expired graphs. Instances coordinate only through
// the order table.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fdk/resource-service/internal/graph"
	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/internal/repository"
	"github.com/fdk/resource-service/internal/services"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MessageEmptyGraph is stored on orders whose selection produced no graph.
	MessageEmptyGraph = "No resources found or failed to build union graph"
	// MessageBuildError prefixes the error stored on orders whose build failed.
	MessageBuildError = "Error processing order: "

	releaseTimeout = 10 * time.Second
)

type Options struct {
	InstanceID         string
	PollInterval       time.Duration
	LockTimeout        time.Duration
	StaleSweepInterval time.Duration
	TTLSweepInterval   time.Duration
	MaxConcurrent      int
}

// Processor owns the scheduler loops of one instance.
type Processor struct {
	orders   repository.OrderRepository
	builder  graph.Builder
	notifier services.WebhookNotifier
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
	log      *zap.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	builds   sync.WaitGroup
}

func NewProcessor(orders repository.OrderRepository, builder graph.Builder, notifier services.WebhookNotifier, m *metrics.Metrics, opts Options) *Processor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	return &Processor{
		orders:   orders,
		builder:  builder,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logger.Named("scheduler").With(zap.String("instance_id", opts.InstanceID)),
		inflight: map[string]struct{}{},
	}
}

// Run starts the loops and blocks until ctx is done. In-flight builds are cancelled and
// their orders released before Run returns.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("union graph processor starting",
		zap.Duration("poll_interval", p.opts.PollInterval),
		zap.Duration("lock_timeout", p.opts.LockTimeout),
		zap.Int("max_concurrent", p.opts.MaxConcurrent))

	p.SweepStale(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.every(gctx, p.opts.PollInterval, p.Poll) })
	g.Go(func() error { return p.every(gctx, p.opts.StaleSweepInterval, p.SweepStale) })
	g.Go(func() error { return p.every(gctx, p.opts.TTLSweepInterval, p.SweepExpired) })
	err := g.Wait()

	p.builds.Wait()
	p.log.Info("union graph processor stopped")
	return err
}

func (p *Processor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// InFlight returns the ids of orders being built by this instance.
func (p *Processor) InFlight() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.inflight))
	for id := range p.inflight {
		ids = append(ids, id)
	}
	return ids
}

func (p *Processor) freeSlots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.MaxConcurrent - len(p.inflight)
}

// Poll requeues released orders, then claims as many pending orders as there are free
// build slots and starts a build for each.
func (p *Processor) Poll(ctx context.Context) {
	if n, err := p.orders.RecoverReleased(ctx); err != nil {
		p.log.Error("recover released orders failed", zap.Error(err))
	} else if n > 0 {
		p.metrics.OrderReset("released", int(n))
		p.log.Info("released orders requeued", zap.Int64("count", n))
	}

	p.refreshCounts(ctx)

	free := p.freeSlots()
	if free <= 0 {
		return
	}
	claimed, err := p.orders.ClaimBatch(ctx, p.opts.InstanceID, p.opts.LockTimeout, free)
	if err != nil {
		p.log.Error("claim orders failed", zap.Error(err))
		return
	}
	for i := range claimed {
		p.start(ctx, claimed[i])
	}
}

func (p *Processor) start(ctx context.Context, order models.UnionGraphOrder) {
	p.mu.Lock()
	p.inflight[order.ID] = struct{}{}
	p.mu.Unlock()

	p.builds.Add(1)
	go func() {
		defer p.builds.Done()
		defer func() {
			p.mu.Lock()
			delete(p.inflight, order.ID)
			p.mu.Unlock()
		}()
		p.process(ctx, &order)
	}()
}

// process builds one claimed order and records the outcome. Outcome writes are conditional on
// PROCESSING, so an order reset during the build keeps its new state.
func (p *Processor) process(ctx context.Context, order *models.UnionGraphOrder) {
	log := p.log.With(zap.String("order_id", order.ID))
	log.Info("building union graph")
	done := p.metrics.BuildStarted()

	res, err := p.builder.Build(ctx, graph.RequestFor(order))
	if ctx.Err() != nil {
		p.release(order.ID, log)
		done(metrics.BuildReleased, 0, 0)
		return
	}

	writeCtx := context.WithoutCancel(ctx)
	var applied bool
	switch {
	case err == nil:
		applied, err = p.orders.Complete(writeCtx, order.ID, res.Document)
		if err == nil {
			done(metrics.BuildCompleted, res.Resources, res.DataServices)
			log.Info("union graph completed", zap.Int("resources", res.Resources), zap.Int("nodes", res.Nodes))
		}
	case errors.Is(err, graph.ErrEmptyGraph):
		log.Warn("union graph is empty")
		applied, err = p.orders.Fail(writeCtx, order.ID, MessageEmptyGraph)
		done(metrics.BuildFailed, 0, 0)
	default:
		log.Error("union graph build failed", zap.Error(err))
		applied, err = p.orders.Fail(writeCtx, order.ID, MessageBuildError+err.Error())
		done(metrics.BuildFailed, 0, 0)
	}
	if err != nil {
		log.Error("store build outcome failed", zap.Error(err))
		return
	}
	if !applied {
		log.Warn("order left PROCESSING during build, outcome discarded")
		return
	}
	p.notify(writeCtx, order.ID, log)
}

func (p *Processor) release(id string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := p.orders.Release(ctx, id); err != nil {
		log.Error("release order failed", zap.Error(err))
		return
	}
	log.Info("order released on shutdown")
}

func (p *Processor) notify(ctx context.Context, id string, log *zap.Logger) {
	if p.notifier == nil {
		return
	}
	var stored models.UnionGraphOrder
	if err := p.orders.GetByID(ctx, id, &stored); err != nil {
		log.Warn("reload order for webhook failed", zap.Error(err))
		return
	}
	previous := models.OrderStatusProcessing
	p.notifier.Notify(ctx, &stored, &previous)
}

// SweepStale returns PROCESSING orders whose lock is older than the lock timeout to PENDING.
func (p *Processor) SweepStale(ctx context.Context) {
	cutoff := p.now().Add(-p.opts.LockTimeout)
	stale, err := p.orders.FindStale(ctx, cutoff)
	if err != nil {
		p.log.Error("find stale orders failed", zap.Error(err))
		return
	}
	reset := 0
	for _, o := range stale {
		ok, err := p.orders.ResetStale(ctx, o.ID, cutoff)
		if err != nil {
			p.log.Error("reset stale order failed", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		if ok {
			reset++
			p.log.Warn("stale order reset", zap.String("order_id", o.ID), zap.Stringp("locked_by", o.LockedBy))
		}
	}
	p.metrics.OrderReset("stale", reset)
}

// SweepExpired queues COMPLETED orders whose TTL has passed for a rebuild.
func (p *Processor) SweepExpired(ctx context.Context) {
	completed, err := p.orders.ListByStatus(ctx, models.OrderStatusCompleted)
	if err != nil {
		p.log.Error("list completed orders failed", zap.Error(err))
		return
	}
	now := p.now()
	reset := 0
	for i := range completed {
		if !completed[i].Expired(now) {
			continue
		}
		// The listing is a snapshot; the update re-checks the TTL against the row.
		ok, err := p.orders.ResetExpired(ctx, completed[i].ID, completed[i].UpdateTTLHours, now)
		if err != nil {
			p.log.Error("refresh expired order failed", zap.String("order_id", completed[i].ID), zap.Error(err))
			continue
		}
		if ok {
			reset++
			p.log.Info("expired order queued for refresh", zap.String("order_id", completed[i].ID))
		}
	}
	p.metrics.OrderReset("expired", reset)
}

func (p *Processor) refreshCounts(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	counts, err := p.orders.CountByStatus(ctx)
	if err != nil {
		return
	}
	out := make(map[string]int64, len(models.AllOrderStatuses))
	for _, s := range models.AllOrderStatuses {
		out[string(s)] = counts[s]
	}
	p.metrics.SetOrderCounts(out)
}
