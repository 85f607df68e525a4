package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/models"
	"github.com/fdk/resource-service/pkg/logger"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskWebhook is the asynq task type that delivers an order status notification.
const TaskWebhook = "union_graph:webhook"

// WebhookPayload is the JSON body posted to an order's webhook URL.
type WebhookPayload struct {
	ID             string                `json:"id"`
	Status         models.OrderStatus    `json:"status"`
	PreviousStatus *models.OrderStatus   `json:"previousStatus"`
	ResourceTypes  []models.ResourceType `json:"resourceTypes"`
	UpdateTTLHours int                   `json:"updateTtlHours"`
	ErrorMessage   *string               `json:"errorMessage"`
	CreatedAt      string                `json:"createdAt"`
	UpdatedAt      string                `json:"updatedAt"`
	ProcessedAt    *string               `json:"processedAt"`
}

// WebhookTask is the asynq task payload.
type WebhookTask struct {
	URL     string         `json:"url"`
	Payload WebhookPayload `json:"payload"`
}

func NewWebhookPayload(o *models.UnionGraphOrder, previous *models.OrderStatus) WebhookPayload {
	p := WebhookPayload{
		ID:             o.ID,
		Status:         o.Status,
		PreviousStatus: previous,
		ResourceTypes:  o.Types(),
		UpdateTTLHours: o.UpdateTTLHours,
		ErrorMessage:   o.ErrorMessage,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if o.ProcessedAt != nil {
		s := o.ProcessedAt.UTC().Format(time.RFC3339)
		p.ProcessedAt = &s
	}
	return p
}

// WebhookSender delivers one notification.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload WebhookPayload) error
}

type httpWebhookSender struct {
	client  *http.Client
	metrics *metrics.Metrics
}

func NewHTTPWebhookSender(timeout time.Duration, m *metrics.Metrics) WebhookSender {
	return &httpWebhookSender{client: &http.Client{Timeout: timeout}, metrics: m}
}

// Send posts the payload as JSON. Any non-2xx answer is an error.
func (s *httpWebhookSender) Send(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RecordWebhook("error", time.Since(start))
		return fmt.Errorf("call webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.metrics.RecordWebhook("rejected", time.Since(start))
		return fmt.Errorf("webhook answered %d", resp.StatusCode)
	}
	s.metrics.RecordWebhook("delivered", time.Since(start))
	return nil
}

// TaskEnqueuer is the part of *asynq.Client the notifier uses.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// WebhookNotifier tells an order's webhook about status changes. Notification is best
// effort and never affects the order.
type WebhookNotifier interface {
	Notify(ctx context.Context, order *models.UnionGraphOrder, previous *models.OrderStatus)
}

type WebhookOptions struct {
	MaxRetry int
	Timeout  time.Duration
}

type webhookNotifier struct {
	enqueuer TaskEnqueuer
	sender   WebhookSender
	opts     WebhookOptions
}

// NewWebhookNotifier enqueues deliveries when enqueuer is set and otherwise sends inline.
func NewWebhookNotifier(enqueuer TaskEnqueuer, sender WebhookSender, opts WebhookOptions) WebhookNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &webhookNotifier{enqueuer: enqueuer, sender: sender, opts: opts}
}

var _ WebhookNotifier = (*webhookNotifier)(nil)

func (n *webhookNotifier) Notify(ctx context.Context, order *models.UnionGraphOrder, previous *models.OrderStatus) {
	if order == nil || order.WebhookURL == nil || *order.WebhookURL == "" {
		return
	}
	task := WebhookTask{URL: *order.WebhookURL, Payload: NewWebhookPayload(order, previous)}
	log := logger.L().With(zap.String("order_id", order.ID), zap.String("status", string(order.Status)))

	if n.enqueuer != nil {
		b, err := json.Marshal(task)
		if err == nil {
			_, err = n.enqueuer.EnqueueContext(ctx, asynq.NewTask(TaskWebhook, b),
				asynq.MaxRetry(n.opts.MaxRetry), asynq.Timeout(n.opts.Timeout))
		}
		if err == nil {
			log.Info("webhook enqueued")
			return
		}
		log.Warn("enqueue webhook failed, delivering inline", zap.Error(err))
	}

	if n.sender == nil {
		log.Warn("no webhook sender configured, dropping notification")
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.opts.Timeout)
	defer cancel()
	if err := n.sender.Send(sendCtx, task.URL, task.Payload); err != nil {
		log.Error("webhook delivery failed", zap.Error(err))
		return
	}
	log.Info("webhook delivered")
}
